package services

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Direction string

const (
	DirectionAll      Direction = "all"
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// ParseDirection maps a msg_direction token to a Direction. Missing or
// unknown tokens mean all.
func ParseDirection(token string) Direction {
	switch Direction(token) {
	case DirectionSent:
		return DirectionSent
	case DirectionReceived:
		return DirectionReceived
	default:
		return DirectionAll
	}
}

// DirectionScope restricts a messages query to what viewer sees in the given
// direction, leaving out messages the viewer tombstoned.
func DirectionScope(viewer uuid.UUID, d Direction) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch d {
		case DirectionSent:
			return db.Where("sender_id = ? AND deleted_by_sender = ?", viewer, false)
		case DirectionReceived:
			return db.Where("receiver_id = ? AND deleted_by_receiver = ?", viewer, false)
		default:
			return db.Where("(sender_id = ? AND deleted_by_sender = ?) OR (receiver_id = ? AND deleted_by_receiver = ?)",
				viewer, false, viewer, false)
		}
	}
}
