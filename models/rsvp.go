package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RSVP statuses. Not-going is a recorded response, not an absence.
const (
	RSVPGoing    = "going"
	RSVPNotGoing = "not_going"
)

// RSVP is one person's response to one event. At most one document per
// (event_id, user_id); a second response overwrites the first.
type RSVP struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EventID   primitive.ObjectID `bson:"event_id" json:"event_id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Status    string             `bson:"status" json:"status"` // going, not_going
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

func ValidRSVPStatus(s string) bool {
	return s == RSVPGoing || s == RSVPNotGoing
}

// RSVPSummary is the per-event response breakdown returned to callers.
// Full is advisory only; an RSVP is never rejected on capacity.
type RSVPSummary struct {
	Going    int  `json:"going"`
	NotGoing int  `json:"not_going"`
	Total    int  `json:"total"`
	Full     bool `json:"full"`
}
