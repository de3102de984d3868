package store

import (
	"context"
	"errors"
	"time"

	"vagent/core"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig holds connection settings for the MongoDB-backed store.
type MongoConfig struct {
	URI        string `json:"uri"`
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

// DefaultMongoConfig returns a MongoConfig pointing at a local instance.
func DefaultMongoConfig() MongoConfig {
	return MongoConfig{
		URI:        "mongodb://127.0.0.1:27017",
		Database:   "vagent",
		Collection: "conversations",
	}
}

// MongoStore persists conversations as one document per user identifier:
// { userId, messages: [...], createdAt, updatedAt } with userId indexed.
type MongoStore struct {
	config MongoConfig
	logger *core.Logger
	conn   *connGuard
}

func NewMongoStore(config MongoConfig, logger *core.Logger) *MongoStore {
	if config.URI == "" {
		config.URI = DefaultMongoConfig().URI
	}
	if config.Database == "" {
		config.Database = DefaultMongoConfig().Database
	}
	if config.Collection == "" {
		config.Collection = DefaultMongoConfig().Collection
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	s := &MongoStore{
		config: config,
		logger: logger.With(map[string]interface{}{"component": "mongostore"}),
	}
	s.conn = newConnGuard(s.connect)
	return s
}

// connect dials the configured instance and ensures the userId lookup
// index. It runs at most once concurrently; see connGuard.
func (s *MongoStore) connect(ctx context.Context) (*mongo.Client, error) {
	s.logger.Info("connecting to mongodb", "uri", s.config.URI)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(s.config.URI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	coll := client.Database(s.config.Database).Collection(s.config.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}},
	})
	if err != nil {
		s.logger.Warn("failed to ensure userId index", "error", err)
	}

	s.logger.Info("mongodb connected")
	return client, nil
}

func (s *MongoStore) collection(client *mongo.Client) *mongo.Collection {
	return client.Database(s.config.Database).Collection(s.config.Collection)
}

func (s *MongoStore) FindOrCreate(ctx context.Context, userID string) (*core.Conversation, error) {
	client, err := s.conn.get(ctx)
	if err != nil {
		return nil, &core.PersistenceError{Op: "connect", Err: err}
	}

	var conv core.Conversation
	err = s.collection(client).FindOne(ctx, bson.M{"userId": userID}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Created on first append, not here.
		return &core.Conversation{UserID: userID}, nil
	}
	if err != nil {
		return nil, &core.PersistenceError{Op: "find", Err: err}
	}
	return &conv, nil
}

func (s *MongoStore) Append(ctx context.Context, userID string, msgs ...core.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	client, err := s.conn.get(ctx)
	if err != nil {
		return &core.PersistenceError{Op: "connect", Err: err}
	}

	now := time.Now()
	update := bson.M{
		"$push":        bson.M{"messages": bson.M{"$each": msgs}},
		"$set":         bson.M{"updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	_, err = s.collection(client).UpdateOne(
		ctx,
		bson.M{"userId": userID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return &core.PersistenceError{Op: "append", Err: err}
	}
	return nil
}
