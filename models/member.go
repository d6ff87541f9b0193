package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Membership statuses.
const (
	MemberActive   = "active"
	MemberInactive = "inactive"
	MemberBanned   = "banned"
)

// ClubMember is the authoritative join between users and clubs. Exactly one
// document per (club_id, user_id); exactly one owner-role document per club.
type ClubMember struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClubID       primitive.ObjectID `bson:"club_id" json:"club_id"`
	UserID       primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role         Role               `bson:"role" json:"role"`
	Status       string             `bson:"status" json:"status"` // active, inactive, banned
	Permissions  []Capability       `bson:"permissions" json:"permissions"`
	JoinedAt     time.Time          `bson:"joined_at" json:"joined_at"`
	LastActiveAt time.Time          `bson:"last_active_at" json:"last_active_at"`
}

func ValidMemberStatus(s string) bool {
	switch s {
	case MemberActive, MemberInactive, MemberBanned:
		return true
	}
	return false
}
