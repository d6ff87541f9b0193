package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Club lifecycle statuses.
const (
	ClubActive   = "active"
	ClubInactive = "inactive"
	ClubArchived = "archived"
)

// ClubSettings is the free-form settings bag attached to a club.
type ClubSettings struct {
	AllowGuests   bool   `bson:"allow_guests" json:"allow_guests"`
	RequireInvite bool   `bson:"require_invite" json:"require_invite"`
	Timezone      string `bson:"timezone,omitempty" json:"timezone,omitempty"`
}

type Club struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID     primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Status      string             `bson:"status" json:"status"` // active, inactive, archived
	Settings    ClubSettings       `bson:"settings" json:"settings"`
	MemberCount int                `bson:"member_count" json:"member_count"`
	MaxMembers  int                `bson:"max_members,omitempty" json:"max_members,omitempty"` // 0 = unlimited
	Tags        []string           `bson:"tags" json:"tags"`
	IsPrivate   bool               `bson:"is_private" json:"is_private"`
	JoinCode    string             `bson:"join_code,omitempty" json:"-"`
	Images      []string           `bson:"images" json:"images"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// ClubStats is the per-club activity counters document, one per club,
// keyed by the club id. Member counters move in the same transaction as
// the membership write they mirror.
type ClubStats struct {
	ClubID         primitive.ObjectID `bson:"_id" json:"club_id"`
	TotalMembers   int                `bson:"total_members" json:"total_members"`
	ActiveMembers  int                `bson:"active_members" json:"active_members"`
	TotalEvents    int                `bson:"total_events" json:"total_events"`
	TotalPosts     int                `bson:"total_posts" json:"total_posts"`
	LastActivityAt time.Time          `bson:"last_activity_at" json:"last_activity_at"`
}

func ValidClubStatus(s string) bool {
	switch s {
	case ClubActive, ClubInactive, ClubArchived:
		return true
	}
	return false
}
