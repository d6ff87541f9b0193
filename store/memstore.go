package store

import (
	"context"
	"reflect"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemStore is an in-memory Store with the same semantics as MongoStore,
// including unique indexes and all-or-nothing transactions. It exists so the
// services can be tested without a running database; a transaction holds the
// single write lock, so concurrent units fully serialize.
type MemStore struct {
	mu     sync.Mutex
	data   map[string]map[string]bson.M
	unique map[string][]uniqueSpec
}

// uniqueSpec mirrors a unique index: documents agreeing on all Fields
// collide. When PartialField is set the spec only applies to documents
// whose PartialField equals PartialValue.
type uniqueSpec struct {
	Fields       []string
	PartialField string
	PartialValue string
}

type txnKey struct{}

func NewMemStore() *MemStore {
	return &MemStore{
		data: make(map[string]map[string]bson.M),
		unique: map[string][]uniqueSpec{
			ColClubMembers: {
				{Fields: []string{"club_id", "user_id"}},
				{Fields: []string{"club_id"}, PartialField: "role", PartialValue: "owner"},
			},
			ColRSVPs: {{Fields: []string{"event_id", "user_id"}}},
			ColUsers: {{Fields: []string{"email"}}},
		},
	}
}

// state returns the dataset an operation should act on: the transaction's
// staged copy when ctx carries one, the live data otherwise. locked reports
// whether the caller must take the store lock (transactions already hold it).
func (m *MemStore) state(ctx context.Context) (data map[string]map[string]bson.M, locked bool) {
	if staged, ok := ctx.Value(txnKey{}).(map[string]map[string]bson.M); ok {
		return staged, true
	}
	return m.data, false
}

func (m *MemStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txnKey{}).(map[string]map[string]bson.M); ok {
		// nested unit joins the outer transaction
		return fn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := make(map[string]map[string]bson.M, len(m.data))
	for col, docs := range m.data {
		staged[col] = make(map[string]bson.M, len(docs))
		for id, doc := range docs {
			staged[col][id] = copyDoc(doc)
		}
	}
	if err := fn(context.WithValue(ctx, txnKey{}, staged)); err != nil {
		return err
	}
	m.data = staged
	return nil
}

func (m *MemStore) Get(ctx context.Context, collection string, filter bson.M, out any) error {
	data, locked := m.state(ctx)
	if !locked {
		m.mu.Lock()
		defer m.mu.Unlock()
	}
	for _, doc := range data[collection] {
		if matches(doc, filter) {
			return decodeDoc(doc, out)
		}
	}
	return ErrNotFound
}

func (m *MemStore) Find(ctx context.Context, collection string, filter bson.M, out any) error {
	data, locked := m.state(ctx)
	if !locked {
		m.mu.Lock()
		defer m.mu.Unlock()
	}
	slice := reflect.ValueOf(out).Elem()
	slice.SetLen(0)
	for _, doc := range data[collection] {
		if !matches(doc, filter) {
			continue
		}
		elem := reflect.New(slice.Type().Elem())
		if err := decodeDoc(doc, elem.Interface()); err != nil {
			return err
		}
		slice.Set(reflect.Append(slice, elem.Elem()))
	}
	return nil
}

func (m *MemStore) Count(ctx context.Context, collection string, filter bson.M) (int64, error) {
	data, locked := m.state(ctx)
	if !locked {
		m.mu.Lock()
		defer m.mu.Unlock()
	}
	var n int64
	for _, doc := range data[collection] {
		if matches(doc, filter) {
			n++
		}
	}
	return n, nil
}

func (m *MemStore) InsertOne(ctx context.Context, collection string, doc any) error {
	data, locked := m.state(ctx)
	if !locked {
		m.mu.Lock()
		defer m.mu.Unlock()
	}
	raw := bson.M{}
	if err := decodeAny(doc, &raw); err != nil {
		return err
	}
	return m.insertDoc(data, collection, raw)
}

func (m *MemStore) UpdateOne(ctx context.Context, collection string, filter, update bson.M) error {
	data, locked := m.state(ctx)
	if !locked {
		m.mu.Lock()
		defer m.mu.Unlock()
	}
	for id, doc := range data[collection] {
		if matches(doc, filter) {
			data[collection][id] = applyUpdate(doc, update, false)
			return nil
		}
	}
	return ErrNoMatch
}

func (m *MemStore) UpsertOne(ctx context.Context, collection string, filter, update bson.M) error {
	data, locked := m.state(ctx)
	if !locked {
		m.mu.Lock()
		defer m.mu.Unlock()
	}
	for id, doc := range data[collection] {
		if matches(doc, filter) {
			data[collection][id] = applyUpdate(doc, update, false)
			return nil
		}
	}
	fresh := applyUpdate(bson.M{}, update, true)
	for k, v := range filter {
		if _, ok := fresh[k]; !ok {
			fresh[k] = v
		}
	}
	return m.insertDoc(data, collection, fresh)
}

func (m *MemStore) DeleteOne(ctx context.Context, collection string, filter bson.M) error {
	data, locked := m.state(ctx)
	if !locked {
		m.mu.Lock()
		defer m.mu.Unlock()
	}
	for id, doc := range data[collection] {
		if matches(doc, filter) {
			delete(data[collection], id)
			return nil
		}
	}
	return ErrNoMatch
}

func (m *MemStore) insertDoc(data map[string]map[string]bson.M, collection string, doc bson.M) error {
	if _, ok := doc["_id"]; !ok || isZeroID(doc["_id"]) {
		doc["_id"] = primitive.NewObjectID()
	}
	for _, spec := range m.unique[collection] {
		if spec.PartialField != "" && !eqValue(doc[spec.PartialField], spec.PartialValue) {
			continue
		}
		for _, existing := range data[collection] {
			clash := true
			for _, f := range spec.Fields {
				if !eqValue(existing[f], doc[f]) {
					clash = false
					break
				}
			}
			if clash && (spec.PartialField == "" || eqValue(existing[spec.PartialField], spec.PartialValue)) {
				return ErrDuplicate
			}
		}
	}
	if data[collection] == nil {
		data[collection] = make(map[string]bson.M)
	}
	id, ok := doc["_id"].(primitive.ObjectID)
	if !ok {
		return ErrNoMatch
	}
	data[collection][id.Hex()] = doc
	return nil
}

// matches supports equality filters only, which is all the services use.
func matches(doc, filter bson.M) bool {
	for k, want := range filter {
		if !eqValue(doc[k], want) {
			return false
		}
	}
	return true
}

func applyUpdate(doc, update bson.M, isInsert bool) bson.M {
	out := copyDoc(doc)
	if set, ok := update["$set"].(bson.M); ok {
		for k, v := range set {
			out[k] = v
		}
	}
	if isInsert {
		if set, ok := update["$setOnInsert"].(bson.M); ok {
			for k, v := range set {
				out[k] = v
			}
		}
	}
	if inc, ok := update["$inc"].(bson.M); ok {
		for k, v := range inc {
			cur, _ := toInt64(out[k])
			delta, _ := toInt64(v)
			out[k] = cur + delta
		}
	}
	return out
}

func eqValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if oa, ok := a.(primitive.ObjectID); ok {
		ob, ok := b.(primitive.ObjectID)
		return ok && oa == ob
	}
	if na, ok := toInt64(a); ok {
		nb, ok := toInt64(b)
		return ok && na == nb
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Kind() == reflect.String && rb.Kind() == reflect.String {
		return ra.String() == rb.String()
	}
	return reflect.DeepEqual(a, b)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}

func isZeroID(v any) bool {
	id, ok := v.(primitive.ObjectID)
	return ok && id.IsZero()
}

func copyDoc(doc bson.M) bson.M {
	out := bson.M{}
	if err := decodeAny(doc, &out); err != nil {
		// documents round-trip through bson by construction
		panic(err)
	}
	return out
}

func decodeDoc(doc bson.M, out any) error {
	return decodeAny(doc, out)
}

func decodeAny(in, out any) error {
	b, err := bson.Marshal(in)
	if err != nil {
		return err
	}
	return bson.Unmarshal(b, out)
}
