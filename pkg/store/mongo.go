package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/goliatone/go-formval/pkg/model"
)

const mongoCollection = "dynamic_options"

// Mongo stores dynamic options in a MongoDB collection.
type Mongo struct {
	client     *mongo.Client
	collection *mongo.Collection
	now        func() time.Time
}

var _ DynamicOptionStore = (*Mongo)(nil)

// OpenMongo connects to uri, pings the primary and ensures the unique key
// index on the collection.
func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	collection := client.Database(database).Collection(mongoCollection)
	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "document_id", Value: 1}, {Key: "question", Value: 1}, {Key: "slug", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Mongo{client: client, collection: collection, now: time.Now}, nil
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) GetOrCreate(ctx context.Context, opt model.DynamicOption) (model.DynamicOption, bool, error) {
	if err := checkKey(opt); err != nil {
		return model.DynamicOption{}, false, err
	}
	opt = stamp(opt, m.now)

	filter := bson.M{"document_id": opt.DocumentID, "question": opt.Question, "slug": opt.Slug}
	update := bson.M{"$setOnInsert": opt}
	findOpts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.Before)

	var existing model.DynamicOption
	err := m.collection.FindOneAndUpdate(ctx, filter, update, findOpts).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return opt, true, nil
	}
	if err != nil {
		return model.DynamicOption{}, false, fmt.Errorf("upsert dynamic option: %w", err)
	}
	return existing, false, nil
}

func (m *Mongo) List(ctx context.Context, documentID string) ([]model.DynamicOption, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "question", Value: 1}, {Key: "slug", Value: 1}})
	cursor, err := m.collection.Find(ctx, bson.M{"document_id": documentID}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("list dynamic options: %w", err)
	}
	out := make([]model.DynamicOption, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("list dynamic options: %w", err)
	}
	return out, nil
}
