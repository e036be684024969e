package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/meetly/messagebox/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MessageboxService runs the message and thread operations for an
// authenticated caller. Every operation is one transaction against db.
type MessageboxService struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

func NewMessageboxService(db *gorm.DB, log *zap.Logger) *MessageboxService {
	return &MessageboxService{db: db, log: log, now: time.Now}
}

func membership(tx *gorm.DB, threadID, userID uuid.UUID) (Membership, error) {
	var m Membership
	var n int64
	err := tx.Model(&models.ThreadParticipant{}).
		Where("thread_id = ? AND user_id = ?", threadID, userID).
		Count(&n).Error
	if err != nil {
		return m, errors.Wrap(err, "check thread participant")
	}
	m.Participant = n > 0

	n = 0
	err = tx.Model(&models.ThreadDeletion{}).
		Where("thread_id = ? AND user_id = ?", threadID, userID).
		Count(&n).Error
	if err != nil {
		return m, errors.Wrap(err, "check thread deletion")
	}
	m.Deleted = n > 0
	return m, nil
}

func messageMembership(tx *gorm.DB, msg *models.Message, viewer uuid.UUID) (Membership, error) {
	if !msg.IsThreaded() {
		return Membership{}, nil
	}
	return membership(tx, *msg.ThreadID, viewer)
}

// requireActiveUsers loads ids and rejects the request under field when one
// of them is unknown or inactive.
func requireActiveUsers(tx *gorm.DB, field string, ids []uuid.UUID) ([]*models.User, error) {
	var users []*models.User
	if err := tx.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "load users")
	}
	byID := make(map[uuid.UUID]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, id := range ids {
		u, ok := byID[id]
		if !ok {
			return nil, newValidationError(field, errors.Wrap(ErrUnknownUser, id.String()))
		}
		if !u.IsActive {
			return nil, newValidationError(field, errors.Wrap(ErrInactiveParticipant, id.String()))
		}
	}
	return users, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func entityValidationError(err error) error {
	switch {
	case errors.Is(err, models.ErrEmptyContent):
		return newValidationError("content", err)
	case errors.Is(err, models.ErrInvalidTombstoneState):
		return newValidationError("deleted_by_receiver", err)
	case errors.Is(err, models.ErrInvalidAddressing):
		return newValidationError("non_field_errors", err)
	default:
		return err
	}
}

// visibleThreadMessages drops thread messages the viewer deleted as sender.
func visibleThreadMessages(viewer uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("sender_id IS NULL OR sender_id <> ? OR deleted_by_sender = ?", viewer, false)
	}
}
