package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/phillip/club-manager-go/models"
	store "github.com/phillip/club-manager-go/store"
)

// AttendanceService owns RSVP records and the current_attendees counter
// derived from them. The counter is never incremented: after every write it
// is recomputed from the authoritative RSVP set inside the same transaction,
// so a missed or doubled delta can never accumulate.
type AttendanceService struct {
	store store.Store
}

func NewAttendanceService(st store.Store) *AttendanceService {
	return &AttendanceService{store: st}
}

// SetRSVP records userID's response to an event. At most one record exists
// per (event, user); a repeat response overwrites the previous one, so a
// double submit is harmless. Event lifecycle is deliberately not consulted
// here: whether RSVPs on a cancelled or completed event should be refused is
// the caller's policy. Capacity is never enforced; max_attendees only
// surfaces as the summary's full flag.
func (s *AttendanceService) SetRSVP(ctx context.Context, eventID, userID primitive.ObjectID, status string) (*models.RSVP, error) {
	if !models.ValidRSVPStatus(status) {
		return nil, newError(KindValidationFailed, "rsvp", "", "status must be going or not_going")
	}
	if userID.IsZero() {
		return nil, newError(KindValidationFailed, "user", "", "user identity is required")
	}

	now := time.Now()
	var rsvp models.RSVP
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		var event models.Event
		if err := s.store.Get(ctx, store.ColEvents, bson.M{"_id": eventID}, &event); err != nil {
			return storeErr(err, "event", eventID.Hex())
		}
		err := s.store.UpsertOne(ctx, store.ColRSVPs,
			bson.M{"event_id": eventID, "user_id": userID},
			bson.M{
				"$set": bson.M{"status": status, "updated_at": now},
				"$setOnInsert": bson.M{
					"_id":        primitive.NewObjectID(),
					"event_id":   eventID,
					"user_id":    userID,
					"created_at": now,
				},
			})
		if err != nil {
			return err
		}
		// recompute from source, never increment
		going, err := s.store.Count(ctx, store.ColRSVPs,
			bson.M{"event_id": eventID, "status": models.RSVPGoing})
		if err != nil {
			return err
		}
		err = s.store.UpdateOne(ctx, store.ColEvents, bson.M{"_id": eventID},
			bson.M{"$set": bson.M{"current_attendees": int(going), "updated_at": now}})
		if err != nil {
			return err
		}
		return s.store.Get(ctx, store.ColRSVPs, bson.M{"event_id": eventID, "user_id": userID}, &rsvp)
	})
	if err != nil {
		return nil, storeErr(err, "rsvp", eventID.Hex())
	}
	return &rsvp, nil
}

// GetRSVPSummary returns the response breakdown for an event. It derives
// from the same RSVP set as current_attendees; a disagreement between the
// two is an invariant violation, not a legitimate state.
func (s *AttendanceService) GetRSVPSummary(ctx context.Context, eventID primitive.ObjectID) (*models.RSVPSummary, error) {
	var event models.Event
	if err := s.store.Get(ctx, store.ColEvents, bson.M{"_id": eventID}, &event); err != nil {
		return nil, storeErr(err, "event", eventID.Hex())
	}
	going, err := s.store.Count(ctx, store.ColRSVPs, bson.M{"event_id": eventID, "status": models.RSVPGoing})
	if err != nil {
		return nil, err
	}
	notGoing, err := s.store.Count(ctx, store.ColRSVPs, bson.M{"event_id": eventID, "status": models.RSVPNotGoing})
	if err != nil {
		return nil, err
	}
	return &models.RSVPSummary{
		Going:    int(going),
		NotGoing: int(notGoing),
		Total:    int(going + notGoing),
		Full:     event.MaxAttendees > 0 && int(going) >= event.MaxAttendees,
	}, nil
}

func (s *AttendanceService) ListRSVPs(ctx context.Context, eventID primitive.ObjectID) ([]models.RSVP, error) {
	rsvps := []models.RSVP{}
	err := s.store.Find(ctx, store.ColRSVPs, bson.M{"event_id": eventID}, &rsvps)
	return rsvps, err
}
