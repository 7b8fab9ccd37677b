package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection names
const (
	ProductsCollection        = "products"
	InventoryCollection       = "inventory"
	DealerInventoryCollection = "dealer_inventory"
	DealersCollection         = "dealers"
	ShipmentsCollection       = "shipments"
	SessionsCollection        = "user_sessions"
)

var (
	once        sync.Once
	mongoClient *mongo.Client
	mongoDB     *mongo.Database
	connectErr  error
)

// ErrNotConnected is returned by accessors used before Connect succeeded.
var ErrNotConnected = errors.New("mongodb not connected")

// Connect creates the process-wide client exactly once. Later calls return
// the outcome of the first one.
func Connect(ctx context.Context, mongoURL, dbName string, logger *zap.Logger) (*mongo.Database, error) {
	once.Do(func() {
		timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		client, err := mongo.Connect(timeoutCtx, options.Client().ApplyURI(mongoURL))
		if err != nil {
			connectErr = fmt.Errorf("failed to connect to MongoDB: %w", err)
			return
		}
		if err := client.Ping(timeoutCtx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			connectErr = fmt.Errorf("failed to ping MongoDB: %w", err)
			return
		}
		mongoClient = client
		mongoDB = client.Database(dbName)
		logger.Info("Connected to MongoDB", zap.String("database", dbName))
	})
	if connectErr != nil {
		return nil, connectErr
	}
	return mongoDB, nil
}

// Client returns the shared client.
func Client() (*mongo.Client, error) {
	if mongoClient == nil {
		return nil, ErrNotConnected
	}
	return mongoClient, nil
}

// DB returns the shared database handle.
func DB() (*mongo.Database, error) {
	if mongoDB == nil {
		return nil, ErrNotConnected
	}
	return mongoDB, nil
}

// Close disconnects from MongoDB
func Close() error {
	if mongoClient == nil {
		return nil
	}
	disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := mongoClient.Disconnect(disconnectCtx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}

// SupportsTransactions reports whether the deployment is a replica set or a
// sharded cluster, the topologies that accept multi-document transactions.
func SupportsTransactions(ctx context.Context, db *mongo.Database) bool {
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	if err := db.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		return false
	}
	return hello.SetName != "" || hello.Msg == "isdbgrid"
}

// EnsureIndexes creates the unique keys the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		ProductsCollection: {
			{Keys: bson.D{{Key: "productId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		InventoryCollection: {
			{Keys: bson.D{{Key: "productId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		DealerInventoryCollection: {
			{Keys: bson.D{{Key: "dealerUsername", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		DealersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		ShipmentsCollection: {
			{Keys: bson.D{{Key: "company", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "dealerUsername", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "batchId", Value: 1}}},
		},
		SessionsCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
