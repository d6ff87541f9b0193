package services

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/phillip/club-manager-go/models"
	store "github.com/phillip/club-manager-go/store"
)

// EventService owns event lifecycle. Attendance counters belong to
// AttendanceService; this service never touches current_attendees.
type EventService struct {
	store store.Store
}

func NewEventService(st store.Store) *EventService {
	return &EventService{store: st}
}

type CreateEventInput struct {
	Title        string
	Description  string
	Location     string
	StartsAt     time.Time
	MaxAttendees int
	Images       []string
}

// CreateEvent creates an event in an active club. Requires the event-create
// capability (owner or organizer). The club's total_events counter moves in
// the same transaction.
func (s *EventService) CreateEvent(ctx context.Context, clubID, creatorID primitive.ObjectID, in CreateEventInput) (*models.Event, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, newError(KindValidationFailed, "event", "", "event title is required")
	}
	if in.StartsAt.IsZero() {
		return nil, newError(KindValidationFailed, "event", "", "event start time is required")
	}
	if in.MaxAttendees < 0 {
		return nil, newError(KindValidationFailed, "event", "", "max_attendees cannot be negative")
	}

	now := time.Now()
	event := models.Event{
		ID:           primitive.NewObjectID(),
		ClubID:       clubID,
		CreatorID:    creatorID,
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Location:     in.Location,
		StartsAt:     in.StartsAt,
		MaxAttendees: in.MaxAttendees,
		Status:       models.EventActive,
		Images:       in.Images,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		var club models.Club
		if err := s.store.Get(ctx, store.ColClubs, bson.M{"_id": clubID}, &club); err != nil {
			return storeErr(err, "club", clubID.Hex())
		}
		if club.Status != models.ClubActive {
			return newError(KindInvalidState, "club", clubID.Hex(), "club is not active")
		}
		var creator models.ClubMember
		err := s.store.Get(ctx, store.ColClubMembers,
			bson.M{"club_id": clubID, "user_id": creatorID, "status": models.MemberActive}, &creator)
		if err != nil || !models.HasCapability(creator.Role, models.CapCreateEvents) {
			return newError(KindPermissionDenied, "club", clubID.Hex(), "no permission to create events in this club")
		}
		if err := s.store.InsertOne(ctx, store.ColEvents, event); err != nil {
			return err
		}
		return s.store.UpdateOne(ctx, store.ColClubStats, bson.M{"_id": clubID},
			bson.M{"$inc": bson.M{"total_events": 1}, "$set": bson.M{"last_activity_at": now}})
	})
	if err != nil {
		return nil, storeErr(err, "event", event.ID.Hex())
	}
	return &event, nil
}

type EventUpdate struct {
	Title        *string
	Description  *string
	Location     *string
	StartsAt     *time.Time
	MaxAttendees *int
	Images       []string
}

// UpdateEvent edits event fields. Allowed for the creator and for club
// members holding the event-create capability.
func (s *EventService) UpdateEvent(ctx context.Context, eventID, actorID primitive.ObjectID, in EventUpdate) (*models.Event, error) {
	set := bson.M{"updated_at": time.Now()}
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return nil, newError(KindValidationFailed, "event", eventID.Hex(), "event title cannot be empty")
		}
		set["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		set["description"] = *in.Description
	}
	if in.Location != nil {
		set["location"] = *in.Location
	}
	if in.StartsAt != nil {
		set["starts_at"] = *in.StartsAt
	}
	if in.MaxAttendees != nil {
		if *in.MaxAttendees < 0 {
			return nil, newError(KindValidationFailed, "event", eventID.Hex(), "max_attendees cannot be negative")
		}
		set["max_attendees"] = *in.MaxAttendees
	}
	if in.Images != nil {
		set["images"] = in.Images
	}

	var event models.Event
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.Get(ctx, store.ColEvents, bson.M{"_id": eventID}, &event); err != nil {
			return storeErr(err, "event", eventID.Hex())
		}
		if err := s.canManageEvent(ctx, &event, actorID); err != nil {
			return err
		}
		if err := s.store.UpdateOne(ctx, store.ColEvents, bson.M{"_id": eventID}, bson.M{"$set": set}); err != nil {
			return err
		}
		return s.store.Get(ctx, store.ColEvents, bson.M{"_id": eventID}, &event)
	})
	if err != nil {
		return nil, storeErr(err, "event", eventID.Hex())
	}
	return &event, nil
}

// CancelEvent is a terminal transition. RSVPs on a cancelled event are still
// accepted by the attendance service; callers that want to block them do so
// at the call site.
func (s *EventService) CancelEvent(ctx context.Context, eventID, actorID primitive.ObjectID) error {
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		var event models.Event
		if err := s.store.Get(ctx, store.ColEvents, bson.M{"_id": eventID}, &event); err != nil {
			return storeErr(err, "event", eventID.Hex())
		}
		if event.Status != models.EventActive {
			return newError(KindInvalidState, "event", eventID.Hex(), "event is already "+event.Status)
		}
		if err := s.canManageEvent(ctx, &event, actorID); err != nil {
			return err
		}
		return s.store.UpdateOne(ctx, store.ColEvents, bson.M{"_id": eventID},
			bson.M{"$set": bson.M{"status": models.EventCancelled, "updated_at": time.Now()}})
	})
	return storeErr(err, "event", eventID.Hex())
}

func (s *EventService) GetEvent(ctx context.Context, eventID primitive.ObjectID) (*models.Event, error) {
	var event models.Event
	if err := s.store.Get(ctx, store.ColEvents, bson.M{"_id": eventID}, &event); err != nil {
		return nil, storeErr(err, "event", eventID.Hex())
	}
	return &event, nil
}

func (s *EventService) ListClubEvents(ctx context.Context, clubID primitive.ObjectID) ([]models.Event, error) {
	events := []models.Event{}
	err := s.store.Find(ctx, store.ColEvents, bson.M{"club_id": clubID}, &events)
	return events, err
}

func (s *EventService) canManageEvent(ctx context.Context, event *models.Event, actorID primitive.ObjectID) error {
	if event.CreatorID == actorID {
		return nil
	}
	var actor models.ClubMember
	err := s.store.Get(ctx, store.ColClubMembers,
		bson.M{"club_id": event.ClubID, "user_id": actorID, "status": models.MemberActive}, &actor)
	if err != nil || !models.HasCapability(actor.Role, models.CapCreateEvents) {
		return newError(KindPermissionDenied, "event", event.ID.Hex(), "no permission to manage this event")
	}
	return nil
}
