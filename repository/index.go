package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/dododo1295/notetree/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func noteIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		// Owner list, newest edit first
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "updated_at", Value: -1},
			},
			Options: options.Index().
				SetName("user_notes_updated"),
		},
		// Sibling order under a parent
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "parent_id", Value: 1},
				{Key: "order", Value: 1},
			},
			Options: options.Index().
				SetName("user_parent_order"),
		},
		// Tags index
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "tags", Value: 1},
			},
			Options: options.Index().
				SetName("user_tags"),
		},
	}
}

func SetupIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := db.Collection(notesCollection).Indexes().CreateMany(ctx, noteIndexes())
	if err != nil {
		return fmt.Errorf("failed to create notes indexes: %w", err)
	}

	utils.Logger.Info("Successfully created all indexes", zap.String("database", db.Name()))
	return nil
}
