package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yashrajoria/distributor-backend/services/distributor-service/database"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CentralInventoryRepository defines warehouse stock data access. Adjust is
// a single conditional update: a decrement only matches when the stored
// quantity covers it.
type CentralInventoryRepository interface {
	Get(ctx context.Context, productID string) (*models.CentralStock, error)
	List(ctx context.Context) ([]models.CentralStock, error)
	Set(ctx context.Context, productID string, quantity int) (int, error)
	Adjust(ctx context.Context, productID string, delta int, upsertUnknown bool) (int, error)
}

type mongoCentralInventoryRepository struct {
	collection *mongo.Collection
}

func NewCentralInventoryRepository(db *mongo.Database) CentralInventoryRepository {
	return &mongoCentralInventoryRepository{collection: db.Collection(database.InventoryCollection)}
}

func (r *mongoCentralInventoryRepository) Get(ctx context.Context, productID string) (*models.CentralStock, error) {
	var stock models.CentralStock
	err := r.collection.FindOne(ctx, bson.M{"productId": productID}).Decode(&stock)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find central stock %s: %w", productID, err)
	}
	return &stock, nil
}

func (r *mongoCentralInventoryRepository) List(ctx context.Context) ([]models.CentralStock, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "productId", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list central stock: %w", err)
	}
	defer cursor.Close(ctx)

	stock := []models.CentralStock{}
	if err := cursor.All(ctx, &stock); err != nil {
		return nil, fmt.Errorf("decode central stock: %w", err)
	}
	return stock, nil
}

func (r *mongoCentralInventoryRepository) Set(ctx context.Context, productID string, quantity int) (int, error) {
	update := bson.M{"$set": bson.M{"quantity": quantity, "updatedAt": time.Now().UTC()}}
	if _, err := r.collection.UpdateOne(ctx, bson.M{"productId": productID}, update, options.Update().SetUpsert(true)); err != nil {
		return 0, fmt.Errorf("set central stock %s: %w", productID, err)
	}
	return quantity, nil
}

func (r *mongoCentralInventoryRepository) Adjust(ctx context.Context, productID string, delta int, upsertUnknown bool) (int, error) {
	filter := bson.M{"productId": productID}
	if delta < 0 {
		filter["quantity"] = bson.M{"$gte": -delta}
	}
	update := bson.M{
		"$inc": bson.M{"quantity": delta},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetUpsert(upsertUnknown && delta >= 0)

	var stock models.CentralStock
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stock)
	if err == nil {
		return stock.Quantity, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, fmt.Errorf("adjust central stock %s: %w", productID, err)
	}

	// Nothing matched: either the product row is missing or stock is short.
	current, getErr := r.Get(ctx, productID)
	switch {
	case errors.Is(getErr, ErrNotFound) && upsertUnknown:
		return 0, &StockError{ProductID: productID, Requested: -delta, Available: 0}
	case getErr != nil:
		return 0, getErr
	}
	return 0, &StockError{ProductID: productID, Requested: -delta, Available: current.Quantity}
}
