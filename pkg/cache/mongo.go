package cache

import (
	"context"
	stderrors "errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo is a StringStore backed by a MongoDB collection, one document per
// key. A TTL index on expires_at lets the server remove expired entries;
// entries past their deadline read as misses before the TTL monitor runs.
type Mongo struct {
	coll *mongo.Collection
	now  func() time.Time
}

type mongoEntry struct {
	Key       string        `bson:"_id"`
	Value     string        `bson:"value"`
	ExpiresAt *time.Time    `bson:"expires_at,omitempty"`
	Absolute  *time.Time    `bson:"absolute_at,omitempty"`
	Sliding   time.Duration `bson:"sliding_ns,omitempty"`
}

// NewMongo creates a store on coll and ensures its TTL index.
func NewMongo(ctx context.Context, coll *mongo.Collection) (*Mongo, error) {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return nil, backendError(err, "create index", "mongo", coll.Name())
	}
	return &Mongo{coll: coll, now: time.Now}, nil
}

// GetString implements StringStore.
func (m *Mongo) GetString(ctx context.Context, key string) (string, error) {
	var e mongoEntry
	err := m.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&e)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", backendError(err, "get", m.Name(), key)
	}

	now := m.now()
	if e.ExpiresAt != nil && !now.Before(*e.ExpiresAt) {
		return "", nil
	}
	if e.Sliding > 0 {
		life := lifetime{Sliding: e.Sliding, TouchedAt: now}
		if e.Absolute != nil {
			life.Absolute = *e.Absolute
		}
		_, err := m.coll.UpdateOne(ctx,
			bson.M{"_id": key},
			bson.M{"$set": bson.M{"expires_at": life.deadline()}},
		)
		if err != nil {
			return "", backendError(err, "touch", m.Name(), key)
		}
	}
	return e.Value, nil
}

// SetString implements StringStore.
func (m *Mongo) SetString(ctx context.Context, key, value string, exp Expiration) error {
	now := m.now()
	life := exp.start(now)
	if life.expired(now) {
		return m.Delete(ctx, key)
	}

	e := mongoEntry{Key: key, Value: value, Sliding: life.Sliding}
	if d := life.deadline(); !d.IsZero() {
		e.ExpiresAt = &d
	}
	if !life.Absolute.IsZero() {
		e.Absolute = &life.Absolute
	}
	_, err := m.coll.ReplaceOne(ctx, bson.M{"_id": key}, e, options.Replace().SetUpsert(true))
	return backendError(err, "set", m.Name(), key)
}

// Delete removes key.
func (m *Mongo) Delete(ctx context.Context, key string) error {
	_, err := m.coll.DeleteOne(ctx, bson.M{"_id": key})
	return backendError(err, "delete", m.Name(), key)
}

// Name implements Named.
func (m *Mongo) Name() string { return "mongo" }

// Ensure Mongo implements StringStore.
var _ StringStore = (*Mongo)(nil)
