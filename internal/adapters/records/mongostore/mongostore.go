// Package mongostore keeps SyncRecords in the MongoDB "histories" collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"lipsync/internal/models"
)

// CollectionName is the collection the records live in.
const CollectionName = "histories"

// Collection is the subset of *mongo.Collection the store uses.
type Collection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult
}

type document struct {
	ID             primitive.ObjectID `bson:"_id"`
	SyncedVideoURL string             `bson:"syncedVideoUrl,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt"`
}

func (d document) record() models.SyncRecord {
	return models.SyncRecord{
		ID:             d.ID.Hex(),
		SyncedVideoURL: d.SyncedVideoURL,
		CreatedAt:      d.CreatedAt.UTC(),
	}
}

type Store struct {
	client *mongo.Client
	coll   Collection
	now    func() time.Time
}

// Connect dials uri and pings the primary before returning.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return &Store{
		client: client,
		coll:   client.Database(database).Collection(CollectionName),
		now:    time.Now,
	}, nil
}

// New builds a store over an existing collection.
func New(coll Collection) *Store {
	return &Store{coll: coll, now: time.Now}
}

func (s *Store) Insert(ctx context.Context, syncedVideoURL string) (models.SyncRecord, error) {
	doc := document{
		ID:             primitive.NewObjectID(),
		SyncedVideoURL: syncedVideoURL,
		CreatedAt:      s.now().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return models.SyncRecord{}, fmt.Errorf("failed to insert record: %w", err)
	}
	return doc.record(), nil
}

func (s *Store) List(ctx context.Context) ([]models.SyncRecord, error) {
	cur, err := s.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]models.SyncRecord, 0)
	for cur.Next(ctx) {
		var doc document
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		out = append(out, doc.record())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return out, nil
}

func (s *Store) FillLatestMissing(ctx context.Context, syncedVideoURL string) (bool, error) {
	filter := bson.D{{Key: "syncedVideoUrl", Value: bson.D{{Key: "$exists", Value: false}}}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "syncedVideoUrl", Value: syncedVideoURL}}}}
	opts := options.FindOneAndUpdate().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to update record: %w", err)
	}
	return true, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
