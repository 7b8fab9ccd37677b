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

// DealerInventoryRepository defines per-dealer stock data access. A dealer
// document is created on the first write; reads of an unknown dealer return
// an empty inventory.
type DealerInventoryRepository interface {
	Get(ctx context.Context, dealer string) (*models.DealerInventory, error)
	Set(ctx context.Context, dealer, productID string, quantity int) (int, error)
	Add(ctx context.Context, dealer, productID string, quantity int) (int, error)
	Subtract(ctx context.Context, dealer, productID string, quantity int) (int, error)
}

type mongoDealerInventoryRepository struct {
	collection *mongo.Collection
}

func NewDealerInventoryRepository(db *mongo.Database) DealerInventoryRepository {
	return &mongoDealerInventoryRepository{collection: db.Collection(database.DealerInventoryCollection)}
}

func inventoryField(productID string) string {
	return "inventory." + productID
}

func (r *mongoDealerInventoryRepository) Get(ctx context.Context, dealer string) (*models.DealerInventory, error) {
	var inv models.DealerInventory
	err := r.collection.FindOne(ctx, bson.M{"dealerUsername": dealer}).Decode(&inv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &models.DealerInventory{DealerUsername: dealer, Inventory: map[string]int{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find dealer inventory %s: %w", dealer, err)
	}
	if inv.Inventory == nil {
		inv.Inventory = map[string]int{}
	}
	return &inv, nil
}

func (r *mongoDealerInventoryRepository) Set(ctx context.Context, dealer, productID string, quantity int) (int, error) {
	now := time.Now().UTC()
	update := bson.M{
		"$set":         bson.M{inventoryField(productID): quantity, "updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	if _, err := r.collection.UpdateOne(ctx, bson.M{"dealerUsername": dealer}, update, options.Update().SetUpsert(true)); err != nil {
		return 0, fmt.Errorf("set dealer stock %s/%s: %w", dealer, productID, err)
	}
	return quantity, nil
}

func (r *mongoDealerInventoryRepository) Add(ctx context.Context, dealer, productID string, quantity int) (int, error) {
	now := time.Now().UTC()
	update := bson.M{
		"$inc":         bson.M{inventoryField(productID): quantity},
		"$set":         bson.M{"updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var inv models.DealerInventory
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"dealerUsername": dealer}, update, opts).Decode(&inv); err != nil {
		return 0, fmt.Errorf("add dealer stock %s/%s: %w", dealer, productID, err)
	}
	return inv.Inventory[productID], nil
}

func (r *mongoDealerInventoryRepository) Subtract(ctx context.Context, dealer, productID string, quantity int) (int, error) {
	if quantity == 0 {
		inv, err := r.Get(ctx, dealer)
		if err != nil {
			return 0, err
		}
		return inv.Inventory[productID], nil
	}

	filter := bson.M{
		"dealerUsername":          dealer,
		inventoryField(productID): bson.M{"$gte": quantity},
	}
	update := bson.M{
		"$inc": bson.M{inventoryField(productID): -quantity},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var inv models.DealerInventory
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&inv)
	if err == nil {
		return inv.Inventory[productID], nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, fmt.Errorf("subtract dealer stock %s/%s: %w", dealer, productID, err)
	}

	current, getErr := r.Get(ctx, dealer)
	if getErr != nil {
		return 0, getErr
	}
	return 0, &StockError{ProductID: productID, Requested: quantity, Available: current.Inventory[productID]}
}
