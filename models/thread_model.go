package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Thread is a multi-party conversation. It is never physically removed by a
// participant; deleting it only records a ThreadDeletion for that participant.
type Thread struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`

	Participants []*User   `gorm:"many2many:thread_participants;" json:"-"`
	Messages     []Message `gorm:"foreignKey:ThreadID" json:"-"`
}

func (t *Thread) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// ParticipantIDs lists the loaded participants. Participants must be preloaded.
func (t *Thread) ParticipantIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(t.Participants))
	for _, p := range t.Participants {
		ids = append(ids, p.ID)
	}
	return ids
}

// ThreadParticipant is the join row behind Thread.Participants.
type ThreadParticipant struct {
	ThreadID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time
}

// ThreadDeletion records that a user removed a thread from their own view.
type ThreadDeletion struct {
	ThreadID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time
}
