package utils

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// MongoClient is a global variable holding the MongoDB client
var MongoClient *mongo.Client

// InitMongoClient connects with opts, attaches the pool monitor and pings the primary.
func InitMongoClient(ctx context.Context, opts *options.ClientOptions) error {
	opts.SetPoolMonitor(NewPoolMonitor())

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	Logger.Info("connected to MongoDB")
	MongoClient = client
	return nil
}

// CloseMongoClient disconnects the global client if one was opened.
func CloseMongoClient(ctx context.Context) {
	if MongoClient == nil {
		return
	}
	if err := MongoClient.Disconnect(ctx); err != nil {
		Logger.Warn("failed to disconnect from MongoDB", zap.Error(err))
	}
	MongoClient = nil
}
