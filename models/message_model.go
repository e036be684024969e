package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrInvalidAddressing     = errors.New("exactly one of receiver or thread must be set")
	ErrInvalidTombstoneState = errors.New("deleted_by_receiver cannot be set on a thread message")
	ErrEmptyContent          = errors.New("content must not be empty")
)

// Message is addressed either to a single receiver (direct) or to a thread,
// never both. DeletedByReceiver is nil for thread messages, where there is no
// receiver side to tombstone.
type Message struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	SenderID   *uuid.UUID `gorm:"type:uuid;index" json:"sender_id"`
	ReceiverID *uuid.UUID `gorm:"type:uuid;index" json:"receiver_id"`
	ThreadID   *uuid.UUID `gorm:"type:uuid;index" json:"thread_id"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	DateSent   time.Time  `gorm:"not null;index" json:"date_sent"`
	ReadStatus bool       `gorm:"not null;default:false" json:"read_status"`

	DeletedBySender   bool  `gorm:"not null;default:false" json:"-"`
	DeletedByReceiver *bool `json:"-"`
}

// NewDirectMessage builds a message for a single receiver with both
// tombstones cleared.
func NewDirectMessage(sender, receiver uuid.UUID, content string) *Message {
	notDeleted := false
	return &Message{
		SenderID:          &sender,
		ReceiverID:        &receiver,
		Content:           content,
		DeletedByReceiver: &notDeleted,
	}
}

// NewThreadMessage builds a message addressed to a thread.
func NewThreadMessage(sender, thread uuid.UUID, content string) *Message {
	return &Message{
		SenderID: &sender,
		ThreadID: &thread,
		Content:  content,
	}
}

func (m *Message) IsThreaded() bool {
	return m.ThreadID != nil
}

func (m *Message) SentBy(user uuid.UUID) bool {
	return m.SenderID != nil && *m.SenderID == user
}

func (m *Message) ReceivedBy(user uuid.UUID) bool {
	return m.ReceiverID != nil && *m.ReceiverID == user
}

// ReceiverDeleted reports the receiver tombstone. applicable is false for
// thread messages.
func (m *Message) ReceiverDeleted() (deleted, applicable bool) {
	if m.IsThreaded() {
		return false, false
	}
	return m.DeletedByReceiver != nil && *m.DeletedByReceiver, true
}

// Normalize sets the receiver tombstone to its addressing default: false for
// direct messages, nil for thread messages.
func (m *Message) Normalize() {
	switch {
	case m.ThreadID != nil:
		m.DeletedByReceiver = nil
	case m.DeletedByReceiver == nil:
		notDeleted := false
		m.DeletedByReceiver = &notDeleted
	}
}

func (m *Message) Validate() error {
	if (m.ReceiverID == nil) == (m.ThreadID == nil) {
		return ErrInvalidAddressing
	}
	if m.ThreadID != nil && m.DeletedByReceiver != nil {
		return ErrInvalidTombstoneState
	}
	if strings.TrimSpace(m.Content) == "" {
		return ErrEmptyContent
	}
	return nil
}

// BeforeCreate only fills what is unset and never rewrites a tombstone that
// was set explicitly, so a thread message carrying one fails validation.
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.DateSent.IsZero() {
		m.DateSent = tx.NowFunc()
	}
	if m.ThreadID == nil && m.DeletedByReceiver == nil {
		m.Normalize()
	}
	return m.Validate()
}
