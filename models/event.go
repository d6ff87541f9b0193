package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event lifecycle statuses.
const (
	EventActive    = "active"
	EventCancelled = "cancelled"
	EventCompleted = "completed"
)

type Event struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClubID           primitive.ObjectID `bson:"club_id" json:"club_id"`
	CreatorID        primitive.ObjectID `bson:"creator_id" json:"creator_id"`
	Title            string             `bson:"title" json:"title"`
	Description      string             `bson:"description,omitempty" json:"description,omitempty"`
	Location         string             `bson:"location,omitempty" json:"location,omitempty"`
	StartsAt         time.Time          `bson:"starts_at" json:"starts_at"`
	MaxAttendees     int                `bson:"max_attendees,omitempty" json:"max_attendees,omitempty"` // 0 = unlimited
	CurrentAttendees int                `bson:"current_attendees" json:"current_attendees"`
	Status           string             `bson:"status" json:"status"` // active, cancelled, completed
	Images           []string           `bson:"images" json:"images"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}

func ValidEventStatus(s string) bool {
	switch s {
	case EventActive, EventCancelled, EventCompleted:
		return true
	}
	return false
}
