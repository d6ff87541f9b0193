package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

// Collection names.
const (
	ColUsers       = "users"
	ColClubs       = "clubs"
	ColClubMembers = "club_members"
	ColClubStats   = "club_stats"
	ColEvents      = "events"
	ColRSVPs       = "rsvps"
)

var (
	// ErrNotFound is returned by Get when no document matches.
	ErrNotFound = errors.New("store: document not found")
	// ErrNoMatch is returned by UpdateOne/DeleteOne when the filter matched
	// nothing; inside a transaction this aborts the whole unit.
	ErrNoMatch = errors.New("store: filter matched no document")
	// ErrDuplicate is returned by InsertOne on a unique index violation.
	ErrDuplicate = errors.New("store: duplicate key")
)

// Store is the document-store contract the services are written against:
// point reads, equality-predicate queries, counts, and single-document
// mutations. WithTransaction is the grouped-write primitive: every
// operation invoked with the callback's context is part of one
// all-or-nothing unit, and reads inside it observe the unit's own writes.
//
// Counter fields are only ever mutated through $inc or $set inside a
// transaction, never by read-then-write-back outside one.
type Store interface {
	Get(ctx context.Context, collection string, filter bson.M, out any) error
	Find(ctx context.Context, collection string, filter bson.M, out any) error
	Count(ctx context.Context, collection string, filter bson.M) (int64, error)
	InsertOne(ctx context.Context, collection string, doc any) error
	UpdateOne(ctx context.Context, collection string, filter, update bson.M) error
	UpsertOne(ctx context.Context, collection string, filter, update bson.M) error
	DeleteOne(ctx context.Context, collection string, filter bson.M) error
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
