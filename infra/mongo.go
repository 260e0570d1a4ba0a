package infra

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/tnqbao/gau-asset-service/config"
)

type MongoClient struct {
	Client   *mongo.Client
	Database *mongo.Database
	Activity *mongo.Collection
}

// InitMongoClient returns nil when no document store is configured.
func InitMongoClient(cfg *config.EnvConfig) *MongoClient {
	if cfg.Mongo.URI == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to MongoDB: %v", err))
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		panic(fmt.Sprintf("MongoDB ping failed: %v", err))
	}

	db := client.Database(cfg.Mongo.Database)
	activity := db.Collection(cfg.Mongo.ActivityCollection)

	_, err = activity.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "actorId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "kind", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		log.Printf("Warning: failed to create activity indexes: %v", err)
	}

	log.Println("Connected to MongoDB:", cfg.Mongo.Database)

	return &MongoClient{Client: client, Database: db, Activity: activity}
}

func (m *MongoClient) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
