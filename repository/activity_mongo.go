package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tnqbao/gau-asset-service/entity"
)

type ActivityMongoRepository struct {
	collection *mongo.Collection
}

func NewActivityMongoRepository(collection *mongo.Collection) *ActivityMongoRepository {
	return &ActivityMongoRepository{collection: collection}
}

func (r *ActivityMongoRepository) Insert(ctx context.Context, entry *entity.ActivityLog) error {
	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

func (r *ActivityMongoRepository) find(ctx context.Context, filter bson.M, limit int) ([]entity.ActivityLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []entity.ActivityLog
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode activity: %w", err)
	}
	return entries, nil
}

func (r *ActivityMongoRepository) ListByActor(ctx context.Context, actorID string, limit int) ([]entity.ActivityLog, error) {
	return r.find(ctx, bson.M{"actorId": actorID}, limit)
}

func (r *ActivityMongoRepository) ListRecent(ctx context.Context, limit int) ([]entity.ActivityLog, error) {
	return r.find(ctx, bson.M{}, limit)
}

func (r *ActivityMongoRepository) CountByKind(ctx context.Context) ([]entity.ActivityKindCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$kind"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate activity: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []entity.ActivityKindCount
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode activity counts: %w", err)
	}
	return rows, nil
}

func (r *ActivityMongoRepository) DeleteByActor(ctx context.Context, actorID string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"actorId": actorID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete activity: %w", err)
	}
	return res.DeletedCount, nil
}
