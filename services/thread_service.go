package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/meetly/messagebox/metrics"
	"github.com/meetly/messagebox/models"
	"github.com/meetly/messagebox/utils"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxThreadNameLength = 255

var (
	errBlankThreadName   = errors.New("name must not be empty")
	errLongThreadName    = errors.New("name must be at most 255 characters")
	errEmptyParticipants = errors.New("participants must not be empty")
)

// ThreadUpdate carries a full or partial thread update. A nil field is left
// unchanged; a non-nil empty Participants is rejected.
type ThreadUpdate struct {
	Name         *string
	Participants []uuid.UUID
}

func validateThreadName(name string) error {
	if strings.TrimSpace(name) == "" {
		return newValidationError("name", errBlankThreadName)
	}
	if utf8.RuneCountInString(name) > maxThreadNameLength {
		return newValidationError("name", errLongThreadName)
	}
	return nil
}

func replaceParticipants(tx *gorm.DB, threadID uuid.UUID, ids []uuid.UUID) error {
	if err := tx.Where("thread_id = ?", threadID).Delete(&models.ThreadParticipant{}).Error; err != nil {
		return errors.Wrap(err, "clear participants")
	}
	rows := make([]models.ThreadParticipant, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, models.ThreadParticipant{ThreadID: threadID, UserID: id})
	}
	return errors.Wrap(tx.Create(&rows).Error, "add participants")
}

func loadThread(tx *gorm.DB, id uuid.UUID) (*models.Thread, error) {
	var thread models.Thread
	if err := tx.Preload("Participants").First(&thread, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "load thread")
	}
	return &thread, nil
}

// CreateThread starts a thread. The creator always joins, whether or not
// listed in participants.
func (s *MessageboxService) CreateThread(ctx context.Context, creator uuid.UUID, participants []uuid.UUID, name string) (*models.Thread, error) {
	if err := validateThreadName(name); err != nil {
		return nil, err
	}
	ids := uniqueIDs(append(append([]uuid.UUID{}, participants...), creator))

	var thread *models.Thread
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := requireActiveUsers(tx, "participants", ids); err != nil {
			return err
		}
		created := models.Thread{Name: name, CreatedAt: s.now()}
		if err := tx.Create(&created).Error; err != nil {
			return errors.Wrap(err, "create thread")
		}
		if err := replaceParticipants(tx, created.ID, ids); err != nil {
			return err
		}
		var err error
		thread, err = loadThread(tx, created.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.ThreadsCreated.Inc()
	s.log.Debug("thread created", zap.Stringer("thread_id", thread.ID), zap.Stringer("creator_id", creator), zap.Int("participants", len(ids)))
	return thread, nil
}

// GetThread opens a thread for viewer with the messages visible to them,
// newest first. Opening marks every message the viewer did not send as read.
func (s *MessageboxService) GetThread(ctx context.Context, viewer, id uuid.UUID) (*models.Thread, error) {
	var thread *models.Thread
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if thread, err = loadThread(tx, id); err != nil {
			return err
		}
		m, err := membership(tx, id, viewer)
		if err != nil {
			return err
		}
		if !ThreadVisible(m) {
			return ErrNotFound
		}

		res := tx.Model(&models.Message{}).
			Where("thread_id = ? AND read_status = ?", id, false).
			Where("sender_id IS NULL OR sender_id <> ?", viewer).
			Update("read_status", true)
		if res.Error != nil {
			return errors.Wrap(res.Error, "mark thread read")
		}
		if res.RowsAffected > 0 {
			metrics.MessagesRead.Add(float64(res.RowsAffected))
			s.log.Debug("thread read", zap.Stringer("thread_id", id), zap.Stringer("reader_id", viewer), zap.Int64("messages", res.RowsAffected))
		}

		err = tx.Scopes(visibleThreadMessages(viewer)).
			Where("thread_id = ?", id).
			Order("date_sent DESC, id DESC").
			Find(&thread.Messages).Error
		return errors.Wrap(err, "load thread messages")
	})
	if err != nil {
		return nil, err
	}
	return thread, nil
}

// ThreadQuery is the threads viewer takes part in and has not deleted.
func (s *MessageboxService) ThreadQuery(ctx context.Context, viewer uuid.UUID) *gorm.DB {
	db := s.db.WithContext(ctx)
	joined := db.Model(&models.ThreadParticipant{}).Select("thread_id").Where("user_id = ?", viewer)
	deleted := db.Model(&models.ThreadDeletion{}).Select("thread_id").Where("user_id = ?", viewer)
	return db.Model(&models.Thread{}).
		Where("id IN (?)", joined).
		Where("id NOT IN (?)", deleted).
		Session(&gorm.Session{})
}

// ListThreads pages through ThreadQuery, newest first, with participants and
// the messages visible to viewer. Listing does not mark anything read.
func (s *MessageboxService) ListThreads(ctx context.Context, viewer uuid.UUID, page utils.PageRequest) (utils.Page[models.Thread], error) {
	return utils.Paginate[models.Thread](s.ThreadQuery(ctx, viewer), "created_at DESC, id DESC", page,
		func(db *gorm.DB) *gorm.DB {
			return db.Preload("Participants").Preload("Messages", func(db *gorm.DB) *gorm.DB {
				return db.Scopes(visibleThreadMessages(viewer)).Order("date_sent DESC, id DESC")
			})
		})
}

// UpdateThread applies upd for any current participant. Concurrent
// replacements of the participant list resolve last writer wins.
func (s *MessageboxService) UpdateThread(ctx context.Context, actor, id uuid.UUID, upd ThreadUpdate) (*models.Thread, error) {
	if upd.Name != nil {
		if err := validateThreadName(*upd.Name); err != nil {
			return nil, err
		}
	}
	if upd.Participants != nil && len(upd.Participants) == 0 {
		return nil, newValidationError("participants", errEmptyParticipants)
	}

	var thread *models.Thread
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked models.Thread
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&locked, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "load thread")
		}
		m, err := membership(tx, id, actor)
		if err != nil {
			return err
		}
		if !CanModifyThread(m) {
			return ErrForbidden
		}

		if upd.Participants != nil {
			ids := uniqueIDs(upd.Participants)
			if _, err := requireActiveUsers(tx, "participants", ids); err != nil {
				return err
			}
			if err := replaceParticipants(tx, id, ids); err != nil {
				return err
			}
		}
		if upd.Name != nil {
			if err := tx.Model(&locked).Update("name", *upd.Name).Error; err != nil {
				return errors.Wrap(err, "rename thread")
			}
		}
		thread, err = loadThread(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("thread updated", zap.Stringer("thread_id", id), zap.Stringer("actor_id", actor))
	return thread, nil
}

// UpdateThreadParticipants replaces the participant list. The actor does not
// have to stay in it.
func (s *MessageboxService) UpdateThreadParticipants(ctx context.Context, actor, id uuid.UUID, participants []uuid.UUID) (*models.Thread, error) {
	if participants == nil {
		participants = []uuid.UUID{}
	}
	return s.UpdateThread(ctx, actor, id, ThreadUpdate{Participants: participants})
}

// SoftDeleteThread removes the thread from the actor's view only. Deleting
// an already deleted thread succeeds.
func (s *MessageboxService) SoftDeleteThread(ctx context.Context, actor, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var thread models.Thread
		if err := tx.First(&thread, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "load thread")
		}
		m, err := membership(tx, id, actor)
		if err != nil {
			return err
		}
		if !m.Participant {
			return ErrForbidden
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.ThreadDeletion{ThreadID: id, UserID: actor})
		if res.Error != nil {
			return errors.Wrap(res.Error, "soft delete thread")
		}
		if res.RowsAffected > 0 {
			metrics.SoftDeletes.WithLabelValues(metrics.EntityThread, metrics.SideParticipant).Inc()
			s.log.Debug("thread soft deleted", zap.Stringer("thread_id", id), zap.Stringer("actor_id", actor))
		}
		return nil
	})
}
