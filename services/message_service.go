package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/meetly/messagebox/metrics"
	"github.com/meetly/messagebox/models"
	"github.com/meetly/messagebox/utils"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SendMessageInput addresses a message to a receiver or to a thread.
type SendMessageInput struct {
	ReceiverID *uuid.UUID
	ThreadID   *uuid.UUID
	Content    string
}

func (s *MessageboxService) SendMessage(ctx context.Context, sender uuid.UUID, in SendMessageInput) (*models.Message, error) {
	msg := &models.Message{
		SenderID:   &sender,
		ReceiverID: in.ReceiverID,
		ThreadID:   in.ThreadID,
		Content:    in.Content,
		DateSent:   s.now(),
	}
	msg.Normalize()
	if err := msg.Validate(); err != nil {
		return nil, entityValidationError(err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if msg.IsThreaded() {
			// the row lock orders this check against participant replacement
			var thread models.Thread
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&thread, "id = ?", *msg.ThreadID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newValidationError("thread_id", ErrNotAThreadParticipant)
			}
			if err != nil {
				return errors.Wrap(err, "load thread")
			}
			m, err := membership(tx, thread.ID, sender)
			if err != nil {
				return err
			}
			if !m.Participant {
				return newValidationError("thread_id", ErrNotAThreadParticipant)
			}
		} else if _, err := requireActiveUsers(tx, "receiver_id", []uuid.UUID{*msg.ReceiverID}); err != nil {
			return err
		}
		return errors.Wrap(tx.Create(msg).Error, "create message")
	})
	if err != nil {
		return nil, err
	}

	mode := metrics.ModeDirect
	if msg.IsThreaded() {
		mode = metrics.ModeThread
	}
	metrics.MessagesSent.WithLabelValues(mode).Inc()
	s.log.Debug("message sent", zap.Stringer("message_id", msg.ID), zap.Stringer("sender_id", sender), zap.String("mode", mode))
	return msg, nil
}

// GetMessage returns a message visible to viewer. The first retrieval by a
// reader flips the read status, later ones leave it alone.
func (s *MessageboxService) GetMessage(ctx context.Context, viewer, id uuid.UUID) (*models.Message, error) {
	var msg models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&msg, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "load message")
		}
		m, err := messageMembership(tx, &msg, viewer)
		if err != nil {
			return err
		}
		if !MessageVisible(&msg, viewer, m) {
			return ErrNotFound
		}
		if msg.ReadStatus || !IsReader(&msg, viewer, m) {
			return nil
		}

		res := tx.Model(&models.Message{}).
			Where("id = ? AND read_status = ?", msg.ID, false).
			Update("read_status", true)
		if res.Error != nil {
			return errors.Wrap(res.Error, "mark message read")
		}
		if res.RowsAffected > 0 {
			metrics.MessagesRead.Inc()
			s.log.Debug("message read", zap.Stringer("message_id", msg.ID), zap.Stringer("reader_id", viewer))
		}
		msg.ReadStatus = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// EditMessageContent replaces the content of a message. Only the sender may
// edit; everything else about the message is immutable.
func (s *MessageboxService) EditMessageContent(ctx context.Context, actor, id uuid.UUID, content string) (*models.Message, error) {
	var msg models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&msg, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "load message")
		}
		m, err := messageMembership(tx, &msg, actor)
		if err != nil {
			return err
		}
		if !MessageVisible(&msg, actor, m) {
			return ErrNotFound
		}
		if !CanEditMessage(&msg, actor) {
			return ErrForbidden
		}

		msg.Content = content
		if err := msg.Validate(); err != nil {
			return entityValidationError(err)
		}
		return errors.Wrap(tx.Model(&msg).Update("content", content).Error, "update message content")
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// SoftDeleteMessage hides a message from the actor only. The sender and
// receiver tombstones are separate columns and never touch each other.
func (s *MessageboxService) SoftDeleteMessage(ctx context.Context, actor, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var msg models.Message
		if err := tx.First(&msg, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "load message")
		}
		m, err := messageMembership(tx, &msg, actor)
		if err != nil {
			return err
		}
		if !MessageVisible(&msg, actor, m) {
			return ErrNotFound
		}
		if !CanDeleteMessage(&msg, actor) {
			return ErrForbidden
		}

		column, side := "deleted_by_receiver", metrics.SideReceiver
		if msg.SentBy(actor) {
			column, side = "deleted_by_sender", metrics.SideSender
		}
		err = tx.Model(&models.Message{}).Where("id = ?", msg.ID).Update(column, true).Error
		if err != nil {
			return errors.Wrap(err, "soft delete message")
		}

		metrics.SoftDeletes.WithLabelValues(metrics.EntityMessage, side).Inc()
		s.log.Debug("message soft deleted", zap.Stringer("message_id", msg.ID), zap.Stringer("actor_id", actor), zap.String("side", side))
		return nil
	})
}

// MessageQuery is the viewer's messages in direction d. Nothing runs until
// the query is executed and it can be executed any number of times.
func (s *MessageboxService) MessageQuery(ctx context.Context, viewer uuid.UUID, d Direction) *gorm.DB {
	base := s.db.WithContext(ctx).Model(&models.Message{})
	return DirectionScope(viewer, d)(base).Session(&gorm.Session{})
}

// ListMessages pages through MessageQuery, newest first.
func (s *MessageboxService) ListMessages(ctx context.Context, viewer uuid.UUID, d Direction, page utils.PageRequest) (utils.Page[models.Message], error) {
	return utils.Paginate[models.Message](s.MessageQuery(ctx, viewer, d), "date_sent DESC, id DESC", page)
}
