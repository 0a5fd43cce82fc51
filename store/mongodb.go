package store

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
	baseURL  string
}

func NewMongoDB(ctx context.Context, uri, dbName, baseURL string) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	slog.Info("connected to MongoDB", "db", dbName)
	return &DB{
		Client:   client,
		Database: client.Database(dbName),
		baseURL:  baseURL,
	}, nil
}

func (db *DB) Users() *mongo.Collection {
	return db.Database.Collection("users")
}

func (db *DB) Blobs() *mongo.Collection {
	return db.Database.Collection("blobs")
}

func (db *DB) ReleaseEvents() *mongo.Collection {
	return db.Database.Collection("release_events")
}

// EnsureIndexes creates the secondary indexes the collections rely on.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	idx := mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "at", Value: -1}},
	}
	_, err := db.ReleaseEvents().Indexes().CreateOne(ctx, idx)
	return err
}

func (db *DB) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return db.Client.Disconnect(ctx)
}
