package services

import (
	"github.com/google/uuid"
	"github.com/meetly/messagebox/models"
)

// Only the sender may change a message content.
func CanEditMessage(msg *models.Message, actor uuid.UUID) bool {
	return msg.SentBy(actor)
}

// Sender and receiver may each delete their own side of a message. Thread
// messages only have a sender side.
func CanDeleteMessage(msg *models.Message, actor uuid.UUID) bool {
	return msg.SentBy(actor) || (!msg.IsThreaded() && msg.ReceivedBy(actor))
}

// Any current participant may change a thread, there is no admin tier.
func CanModifyThread(m Membership) bool {
	return m.Participant
}
