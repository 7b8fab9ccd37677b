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

// SessionRepository stores presence records. Touch is an upsert.
type SessionRepository interface {
	Touch(ctx context.Context, username string, action models.PresenceAction, at time.Time) error
	Get(ctx context.Context, username string) (*models.UserSession, error)
	List(ctx context.Context) ([]models.UserSession, error)
}

type mongoSessionRepository struct {
	collection *mongo.Collection
}

func NewSessionRepository(db *mongo.Database) SessionRepository {
	return &mongoSessionRepository{collection: db.Collection(database.SessionsCollection)}
}

func (r *mongoSessionRepository) Touch(ctx context.Context, username string, action models.PresenceAction, at time.Time) error {
	set := bson.M{"lastActivity": at}
	update := bson.M{"$set": set}
	switch action {
	case models.ActionLogin:
		set["loginTime"] = at
		update["$inc"] = bson.M{"sessionCount": 1}
	case models.ActionLogout:
		set["logoutTime"] = at
		update["$setOnInsert"] = bson.M{"sessionCount": 0}
	default:
		update["$setOnInsert"] = bson.M{"sessionCount": 0}
	}

	_, err := r.collection.UpdateOne(ctx, bson.M{"username": username}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("touch session %s: %w", username, err)
	}
	return nil
}

func (r *mongoSessionRepository) Get(ctx context.Context, username string) (*models.UserSession, error) {
	var s models.UserSession
	err := r.collection.FindOne(ctx, bson.M{"username": username}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find session %s: %w", username, err)
	}
	return &s, nil
}

func (r *mongoSessionRepository) List(ctx context.Context) ([]models.UserSession, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	sessions := []models.UserSession{}
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	return sessions, nil
}
