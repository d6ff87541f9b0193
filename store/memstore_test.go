package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type testDoc struct {
	ID    primitive.ObjectID `bson:"_id,omitempty"`
	Name  string             `bson:"name"`
	Count int                `bson:"count"`
}

func TestInsertAndGet(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	doc := testDoc{ID: primitive.NewObjectID(), Name: "chess", Count: 3}
	require.NoError(t, m.InsertOne(ctx, ColClubs, doc))

	var got testDoc
	require.NoError(t, m.Get(ctx, ColClubs, bson.M{"_id": doc.ID}, &got))
	assert.Equal(t, "chess", got.Name)
	assert.Equal(t, 3, got.Count)

	err := m.Get(ctx, ColClubs, bson.M{"_id": primitive.NewObjectID()}, &got)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateOneInc(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	doc := testDoc{ID: primitive.NewObjectID(), Name: "chess", Count: 1}
	require.NoError(t, m.InsertOne(ctx, ColClubs, doc))

	require.NoError(t, m.UpdateOne(ctx, ColClubs, bson.M{"_id": doc.ID},
		bson.M{"$inc": bson.M{"count": 1}, "$set": bson.M{"name": "chess club"}}))

	var got testDoc
	require.NoError(t, m.Get(ctx, ColClubs, bson.M{"_id": doc.ID}, &got))
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, "chess club", got.Name)

	err := m.UpdateOne(ctx, ColClubs, bson.M{"_id": doc.ID, "count": 99}, bson.M{"$inc": bson.M{"count": 1}})
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestUniqueIndexes(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	clubID := primitive.NewObjectID()
	userID := primitive.NewObjectID()

	first := bson.M{"_id": primitive.NewObjectID(), "club_id": clubID, "user_id": userID, "role": "member"}
	require.NoError(t, m.InsertOne(ctx, ColClubMembers, first))

	dup := bson.M{"_id": primitive.NewObjectID(), "club_id": clubID, "user_id": userID, "role": "guest"}
	assert.ErrorIs(t, m.InsertOne(ctx, ColClubMembers, dup), ErrDuplicate)

	// partial unique index: only one owner per club
	owner := bson.M{"_id": primitive.NewObjectID(), "club_id": clubID, "user_id": primitive.NewObjectID(), "role": "owner"}
	require.NoError(t, m.InsertOne(ctx, ColClubMembers, owner))
	secondOwner := bson.M{"_id": primitive.NewObjectID(), "club_id": clubID, "user_id": primitive.NewObjectID(), "role": "owner"}
	assert.ErrorIs(t, m.InsertOne(ctx, ColClubMembers, secondOwner), ErrDuplicate)

	// a second non-owner in the same club is fine
	other := bson.M{"_id": primitive.NewObjectID(), "club_id": clubID, "user_id": primitive.NewObjectID(), "role": "member"}
	assert.NoError(t, m.InsertOne(ctx, ColClubMembers, other))
}

func TestUpsertOne(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	eventID := primitive.NewObjectID()
	userID := primitive.NewObjectID()
	filter := bson.M{"event_id": eventID, "user_id": userID}
	now := time.Now()

	update := bson.M{
		"$set":         bson.M{"status": "going", "updated_at": now},
		"$setOnInsert": bson.M{"_id": primitive.NewObjectID(), "event_id": eventID, "user_id": userID, "created_at": now},
	}
	require.NoError(t, m.UpsertOne(ctx, ColRSVPs, filter, update))

	n, err := m.Count(ctx, ColRSVPs, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// second upsert overwrites, never duplicates
	update["$set"] = bson.M{"status": "not_going", "updated_at": time.Now()}
	require.NoError(t, m.UpsertOne(ctx, ColRSVPs, filter, update))

	n, err = m.Count(ctx, ColRSVPs, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = m.Count(ctx, ColRSVPs, bson.M{"event_id": eventID, "status": "not_going"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	doc := testDoc{ID: primitive.NewObjectID(), Name: "before", Count: 1}
	require.NoError(t, m.InsertOne(ctx, ColClubs, doc))

	boom := errors.New("boom")
	err := m.WithTransaction(ctx, func(ctx context.Context) error {
		if err := m.UpdateOne(ctx, ColClubs, bson.M{"_id": doc.ID}, bson.M{"$set": bson.M{"name": "after"}}); err != nil {
			return err
		}
		if err := m.InsertOne(ctx, ColClubs, testDoc{ID: primitive.NewObjectID(), Name: "extra"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// nothing from the failed unit is visible
	var got testDoc
	require.NoError(t, m.Get(ctx, ColClubs, bson.M{"_id": doc.ID}, &got))
	assert.Equal(t, "before", got.Name)

	n, err := m.Count(ctx, ColClubs, bson.M{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTransactionCommitsAtomically(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	id := primitive.NewObjectID()
	err := m.WithTransaction(ctx, func(ctx context.Context) error {
		if err := m.InsertOne(ctx, ColClubs, testDoc{ID: id, Name: "club", Count: 1}); err != nil {
			return err
		}
		return m.UpdateOne(ctx, ColClubs, bson.M{"_id": id}, bson.M{"$inc": bson.M{"count": 1}})
	})
	require.NoError(t, err)

	var got testDoc
	require.NoError(t, m.Get(ctx, ColClubs, bson.M{"_id": id}, &got))
	assert.Equal(t, 2, got.Count)
}

func TestFindFilters(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	clubID := primitive.NewObjectID()
	for i, status := range []string{"active", "active", "inactive"} {
		doc := bson.M{"_id": primitive.NewObjectID(), "club_id": clubID, "status": status, "n": i}
		require.NoError(t, m.InsertOne(ctx, ColClubMembers, doc))
	}

	var out []bson.M
	require.NoError(t, m.Find(ctx, ColClubMembers, bson.M{"club_id": clubID, "status": "active"}, &out))
	assert.Len(t, out, 2)

	require.NoError(t, m.Find(ctx, ColClubMembers, bson.M{"club_id": primitive.NewObjectID()}, &out))
	assert.Len(t, out, 0)
}
