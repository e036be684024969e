package services

import (
	"github.com/google/uuid"
	"github.com/meetly/messagebox/models"
)

// Membership is a viewer's standing in one thread.
type Membership struct {
	Participant bool
	Deleted     bool
}

// ThreadVisible reports whether a thread shows up for the viewer: they take
// part in it and have not deleted it from their view.
func ThreadVisible(m Membership) bool {
	return m.Participant && !m.Deleted
}

// MessageVisible decides whether viewer may see msg. membership is the
// viewer's standing in the message thread and is ignored for direct messages.
// The sender's own tombstone always hides the message from the sender.
func MessageVisible(msg *models.Message, viewer uuid.UUID, membership Membership) bool {
	if msg.SentBy(viewer) {
		if msg.DeletedBySender {
			return false
		}
		return true
	}
	if msg.IsThreaded() {
		return ThreadVisible(membership)
	}
	if msg.ReceivedBy(viewer) {
		deleted, _ := msg.ReceiverDeleted()
		return !deleted
	}
	return false
}

// IsReader reports whether viewer opening msg counts as reading it: the
// receiver of a direct message, or any participant other than the sender of
// a thread message.
func IsReader(msg *models.Message, viewer uuid.UUID, membership Membership) bool {
	if msg.SentBy(viewer) {
		return false
	}
	if msg.IsThreaded() {
		return membership.Participant
	}
	return msg.ReceivedBy(viewer)
}
