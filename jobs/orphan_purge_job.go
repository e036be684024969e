package jobs

import (
	"github.com/meetly/messagebox/metrics"
	"github.com/meetly/messagebox/models"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PurgeOrphanedMessages physically removes direct messages both sides have
// deleted. Nobody can see them any more. Thread messages are kept, since
// other participants may still read them.
func PurgeOrphanedMessages(db *gorm.DB, log *zap.Logger) (int64, error) {
	res := db.
		Where("thread_id IS NULL AND deleted_by_sender = ? AND deleted_by_receiver = ?", true, true).
		Delete(&models.Message{})
	if res.Error != nil {
		log.Error("orphan purge failed", zap.Error(res.Error))
		return 0, errors.Wrap(res.Error, "purge orphaned messages")
	}

	if res.RowsAffected > 0 {
		metrics.OrphansPurged.Add(float64(res.RowsAffected))
		log.Info("purged orphaned messages", zap.Int64("count", res.RowsAffected))
	} else {
		log.Debug("no orphaned messages found")
	}
	return res.RowsAffected, nil
}

// Schedule registers the purge on c. An empty spec leaves it unscheduled.
func Schedule(c *cron.Cron, spec string, db *gorm.DB, log *zap.Logger) error {
	if spec == "" {
		log.Info("orphan purge disabled")
		return nil
	}
	_, err := c.AddFunc(spec, func() {
		_, _ = PurgeOrphanedMessages(db, log)
	})
	if err != nil {
		return errors.Wrapf(err, "schedule orphan purge %q", spec)
	}
	log.Info("orphan purge scheduled", zap.String("spec", spec))
	return nil
}
