package storage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"gatewire/config"
)

// MongoDB wraps a connected client and the selected database.
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// NewMongoDB connects and pings the server at cfg.URL.
func NewMongoDB(ctx context.Context, cfg config.MongoDBConfig) (*MongoDB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("MongoDB URL is required")
	}
	dbName := cfg.Database
	if dbName == "" {
		dbName = "gatewire"
	}

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoDB{Client: client, Database: client.Database(dbName)}, nil
}

func (s *MongoDB) Type() string { return TypeMongoDB }

func (s *MongoDB) Close() error {
	if s.Client != nil {
		return s.Client.Disconnect(context.Background())
	}
	return nil
}
