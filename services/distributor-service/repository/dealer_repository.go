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

// DealerRepository defines dealer account data access. Usernames are stored
// normalized; callers normalize before every lookup.
type DealerRepository interface {
	Create(ctx context.Context, dealer *models.Dealer) error
	FindByUsername(ctx context.Context, username string) (*models.Dealer, error)
	List(ctx context.Context, status models.DealerStatus) ([]models.Dealer, error)
	UpdateStatus(ctx context.Context, username string, from []models.DealerStatus, to models.DealerStatus, actor string) (*models.Dealer, error)
}

type mongoDealerRepository struct {
	collection *mongo.Collection
}

func NewDealerRepository(db *mongo.Database) DealerRepository {
	return &mongoDealerRepository{collection: db.Collection(database.DealersCollection)}
}

func (r *mongoDealerRepository) Create(ctx context.Context, dealer *models.Dealer) error {
	if _, err := r.collection.InsertOne(ctx, dealer); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert dealer %s: %w", dealer.Username, err)
	}
	return nil
}

func (r *mongoDealerRepository) FindByUsername(ctx context.Context, username string) (*models.Dealer, error) {
	var dealer models.Dealer
	err := r.collection.FindOne(ctx, bson.M{"username": username}).Decode(&dealer)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find dealer %s: %w", username, err)
	}
	return &dealer, nil
}

func (r *mongoDealerRepository) List(ctx context.Context, status models.DealerStatus) ([]models.Dealer, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list dealers: %w", err)
	}
	defer cursor.Close(ctx)

	dealers := []models.Dealer{}
	if err := cursor.All(ctx, &dealers); err != nil {
		return nil, fmt.Errorf("decode dealers: %w", err)
	}
	return dealers, nil
}

// UpdateStatus moves a dealer to `to` only when its current status is one of
// `from`, as a single conditional update.
func (r *mongoDealerRepository) UpdateStatus(ctx context.Context, username string, from []models.DealerStatus, to models.DealerStatus, actor string) (*models.Dealer, error) {
	filter := bson.M{"username": username, "status": bson.M{"$in": from}}
	update := bson.M{"$set": bson.M{
		"status":          to,
		"statusChangedBy": actor,
		"updatedAt":       time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var dealer models.Dealer
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&dealer)
	if err == nil {
		return &dealer, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("update dealer status %s: %w", username, err)
	}

	if _, findErr := r.FindByUsername(ctx, username); findErr != nil {
		return nil, findErr
	}
	return nil, ErrInvalidTransition
}
