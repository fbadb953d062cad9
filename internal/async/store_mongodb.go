package async

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"gatewire/internal/core"
)

type mongoInvocationDocument struct {
	ID        string `bson:"_id"`
	Provider  string `bson:"provider"`
	CreatedAt int64  `bson:"created_at"`
	UpdatedAt int64  `bson:"updated_at"`
	Status    string `bson:"status"`
	Data      []byte `bson:"data"`
}

// MongoDBStore stores invocations in MongoDB.
type MongoDBStore struct {
	collection *mongo.Collection
}

// NewMongoDBStore creates collection indexes if needed.
func NewMongoDBStore(ctx context.Context, database *mongo.Database) (*MongoDBStore, error) {
	if database == nil {
		return nil, fmt.Errorf("database is required")
	}

	coll := database.Collection("async_invocations")
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
	if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("create async_invocations indexes: %w", err)
	}

	return &MongoDBStore{collection: coll}, nil
}

// Create inserts a new invocation.
func (s *MongoDBStore) Create(ctx context.Context, meta *core.AsyncInvocationMetadata) error {
	payload, err := serializeInvocation(meta)
	if err != nil {
		return err
	}

	doc := mongoInvocationDocument{
		ID:        meta.ID,
		Provider:  meta.Provider,
		CreatedAt: meta.CreatedAt,
		UpdatedAt: time.Now().Unix(),
		Status:    string(meta.Status),
		Data:      payload,
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert invocation: %w", err)
	}
	return nil
}

// Get returns an invocation by id.
func (s *MongoDBStore) Get(ctx context.Context, id string) (*core.AsyncInvocationMetadata, error) {
	var doc mongoInvocationDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query invocation: %w", err)
	}

	meta, err := deserializeInvocation(doc.Data)
	if err != nil {
		return nil, fmt.Errorf("decode invocation: %w", err)
	}
	return meta, nil
}

// List returns invocations ordered by created_at desc, id desc.
func (s *MongoDBStore) List(ctx context.Context, limit int, after string) ([]*core.AsyncInvocationMetadata, error) {
	limit = normalizeLimit(limit)
	filter := bson.M{}

	if after != "" {
		var cursorDoc mongoInvocationDocument
		err := s.collection.FindOne(ctx, bson.M{"_id": after}).Decode(&cursorDoc)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("query after cursor: %w", err)
		}
		filter = bson.M{
			"$or": bson.A{
				bson.M{"created_at": bson.M{"$lt": cursorDoc.CreatedAt}},
				bson.M{
					"created_at": cursorDoc.CreatedAt,
					"_id":        bson.M{"$lt": cursorDoc.ID},
				},
			},
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list invocations: %w", err)
	}
	defer cursor.Close(ctx)

	items := make([]*core.AsyncInvocationMetadata, 0, limit)
	for cursor.Next(ctx) {
		var doc mongoInvocationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode invocation document: %w", err)
		}
		meta, err := deserializeInvocation(doc.Data)
		if err != nil {
			return nil, fmt.Errorf("decode invocation payload: %w", err)
		}
		items = append(items, meta)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate invocations cursor: %w", err)
	}

	return items, nil
}

// Update updates a stored invocation.
func (s *MongoDBStore) Update(ctx context.Context, meta *core.AsyncInvocationMetadata) error {
	payload, err := serializeInvocation(meta)
	if err != nil {
		return err
	}

	result, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": meta.ID},
		bson.M{"$set": bson.M{
			"updated_at": time.Now().Unix(),
			"status":     string(meta.Status),
			"data":       payload,
		}},
	)
	if err != nil {
		return fmt.Errorf("update invocation: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Close is a no-op; Mongo client lifecycle is managed by storage layer.
func (s *MongoDBStore) Close() error {
	return nil
}
