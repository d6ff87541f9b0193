package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/phillip/club-manager-go/models"
	store "github.com/phillip/club-manager-go/store"
)

// attendanceFixture wires a club, an owner and one event.
func attendanceFixture(t *testing.T) (*AttendanceService, *EventService, *store.MemStore, *models.Event, primitive.ObjectID) {
	t.Helper()
	st := store.NewMemStore()
	membership := NewMembershipService(st)
	events := NewEventService(st)
	attendance := NewAttendanceService(st)

	owner := primitive.NewObjectID()
	club := mustCreateClub(t, membership, owner, CreateClubInput{Name: "Club"})
	event, err := events.CreateEvent(context.Background(), club.ID, owner, CreateEventInput{
		Title:    "Meetup",
		StartsAt: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	return attendance, events, st, event, owner
}

func currentAttendees(t *testing.T, st *store.MemStore, eventID primitive.ObjectID) int {
	t.Helper()
	var event models.Event
	require.NoError(t, st.Get(context.Background(), store.ColEvents, bson.M{"_id": eventID}, &event))
	return event.CurrentAttendees
}

func TestSetRSVPScenario(t *testing.T) {
	attendance, _, st, event, _ := attendanceFixture(t)
	ctx := context.Background()

	userA := primitive.NewObjectID()
	userB := primitive.NewObjectID()

	assert.Equal(t, 0, currentAttendees(t, st, event.ID))

	_, err := attendance.SetRSVP(ctx, event.ID, userA, models.RSVPGoing)
	require.NoError(t, err)
	assert.Equal(t, 1, currentAttendees(t, st, event.ID))

	_, err = attendance.SetRSVP(ctx, event.ID, userB, models.RSVPGoing)
	require.NoError(t, err)
	assert.Equal(t, 2, currentAttendees(t, st, event.ID))

	_, err = attendance.SetRSVP(ctx, event.ID, userA, models.RSVPNotGoing)
	require.NoError(t, err)
	assert.Equal(t, 1, currentAttendees(t, st, event.ID))

	summary, err := attendance.GetRSVPSummary(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Going)
	assert.Equal(t, 1, summary.NotGoing)
	assert.Equal(t, 2, summary.Total)
}

func TestSetRSVPIdempotent(t *testing.T) {
	attendance, _, st, event, _ := attendanceFixture(t)
	ctx := context.Background()

	userA := primitive.NewObjectID()
	_, err := attendance.SetRSVP(ctx, event.ID, userA, models.RSVPGoing)
	require.NoError(t, err)
	_, err = attendance.SetRSVP(ctx, event.ID, userA, models.RSVPGoing)
	require.NoError(t, err)

	n, err := st.Count(ctx, store.ColRSVPs, bson.M{"event_id": event.ID, "user_id": userA})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "repeat response must not create a second record")
	assert.Equal(t, 1, currentAttendees(t, st, event.ID))
}

func TestSetRSVPValidation(t *testing.T) {
	attendance, _, _, event, _ := attendanceFixture(t)
	ctx := context.Background()

	_, err := attendance.SetRSVP(ctx, event.ID, primitive.NewObjectID(), "maybe")
	assert.Equal(t, KindValidationFailed, KindOf(err))

	_, err = attendance.SetRSVP(ctx, primitive.NewObjectID(), primitive.NewObjectID(), models.RSVPGoing)
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = attendance.SetRSVP(ctx, event.ID, primitive.NilObjectID, models.RSVPGoing)
	assert.Equal(t, KindValidationFailed, KindOf(err))
}

func TestRSVPOverbookingAllowed(t *testing.T) {
	st := store.NewMemStore()
	membership := NewMembershipService(st)
	events := NewEventService(st)
	attendance := NewAttendanceService(st)
	ctx := context.Background()

	owner := primitive.NewObjectID()
	club := mustCreateClub(t, membership, owner, CreateClubInput{Name: "Club"})
	event, err := events.CreateEvent(ctx, club.ID, owner, CreateEventInput{
		Title:        "Small room",
		StartsAt:     time.Now().Add(time.Hour),
		MaxAttendees: 1,
	})
	require.NoError(t, err)

	_, err = attendance.SetRSVP(ctx, event.ID, primitive.NewObjectID(), models.RSVPGoing)
	require.NoError(t, err)

	// capacity is advisory: the second going response is accepted
	_, err = attendance.SetRSVP(ctx, event.ID, primitive.NewObjectID(), models.RSVPGoing)
	require.NoError(t, err)

	assert.Equal(t, 2, currentAttendees(t, st, event.ID))

	summary, err := attendance.GetRSVPSummary(ctx, event.ID)
	require.NoError(t, err)
	assert.True(t, summary.Full)
	assert.Equal(t, 2, summary.Going)
}

func TestRSVPAfterCancelStillRecorded(t *testing.T) {
	attendance, events, st, event, owner := attendanceFixture(t)
	ctx := context.Background()

	require.NoError(t, events.CancelEvent(ctx, event.ID, owner))

	// lifecycle gating is the caller's policy, not enforced here
	_, err := attendance.SetRSVP(ctx, event.ID, primitive.NewObjectID(), models.RSVPGoing)
	require.NoError(t, err)
	assert.Equal(t, 1, currentAttendees(t, st, event.ID))
}

func TestConcurrentRSVPsKeepCounterConsistent(t *testing.T) {
	attendance, _, st, event, _ := attendanceFixture(t)
	ctx := context.Background()

	users := make([]primitive.ObjectID, 12)
	for i := range users {
		users[i] = primitive.NewObjectID()
	}

	var wg sync.WaitGroup
	for i, u := range users {
		wg.Add(1)
		go func(i int, u primitive.ObjectID) {
			defer wg.Done()
			status := models.RSVPGoing
			if i%3 == 0 {
				status = models.RSVPNotGoing
			}
			_, err := attendance.SetRSVP(ctx, event.ID, u, status)
			assert.NoError(t, err)
		}(i, u)
	}
	wg.Wait()

	going, err := st.Count(ctx, store.ColRSVPs, bson.M{"event_id": event.ID, "status": models.RSVPGoing})
	require.NoError(t, err)
	assert.Equal(t, int(going), currentAttendees(t, st, event.ID),
		"current_attendees must equal the count of going records")

	summary, err := attendance.GetRSVPSummary(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, len(users), summary.Total)
	assert.Equal(t, int(going), summary.Going)
}

func TestConcurrentRSVPFlipsSamePerson(t *testing.T) {
	attendance, _, st, event, _ := attendanceFixture(t)
	ctx := context.Background()

	userA := primitive.NewObjectID()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := models.RSVPGoing
			if i%2 == 0 {
				status = models.RSVPNotGoing
			}
			_, err := attendance.SetRSVP(ctx, event.ID, userA, status)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// exactly one record, counter consistent with whatever won
	n, err := st.Count(ctx, store.ColRSVPs, bson.M{"event_id": event.ID, "user_id": userA})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	going, err := st.Count(ctx, store.ColRSVPs, bson.M{"event_id": event.ID, "status": models.RSVPGoing})
	require.NoError(t, err)
	assert.Equal(t, int(going), currentAttendees(t, st, event.ID))
}
