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

// ProductRepository defines catalogue data access
type ProductRepository interface {
	Upsert(ctx context.Context, p *models.Product) error
	Get(ctx context.Context, productID string) (*models.Product, error)
	List(ctx context.Context) ([]models.Product, error)
	GetMany(ctx context.Context, productIDs []string) (map[string]models.Product, error)
}

type mongoProductRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(db *mongo.Database) ProductRepository {
	return &mongoProductRepository{collection: db.Collection(database.ProductsCollection)}
}

func (r *mongoProductRepository) Upsert(ctx context.Context, p *models.Product) error {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"name":      p.Name,
			"cost":      p.Cost,
			"price":     p.Price,
			"endPrice":  p.EndPrice,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"productId": p.ProductID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert product %s: %w", p.ProductID, err)
	}
	p.UpdatedAt = now
	return nil
}

func (r *mongoProductRepository) Get(ctx context.Context, productID string) (*models.Product, error) {
	var p models.Product
	err := r.collection.FindOne(ctx, bson.M{"productId": productID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find product %s: %w", productID, err)
	}
	return &p, nil
}

func (r *mongoProductRepository) List(ctx context.Context) ([]models.Product, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "productId", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}

func (r *mongoProductRepository) GetMany(ctx context.Context, productIDs []string) (map[string]models.Product, error) {
	out := make(map[string]models.Product, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"productId": bson.M{"$in": productIDs}})
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	for _, p := range products {
		out[p.ProductID] = p
	}
	return out, nil
}
