package database

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// TxManager runs a unit of work atomically when the store allows it.
type TxManager interface {
	// WithTransaction runs fn. Repositories must use the ctx passed to fn.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	// Transactional reports whether WithTransaction rolls back on error.
	Transactional() bool
}

// MongoTxManager runs fn inside a session transaction.
type MongoTxManager struct {
	client *mongo.Client
}

// NewMongoTxManager returns a TxManager backed by client sessions.
func NewMongoTxManager(client *mongo.Client) *MongoTxManager {
	return &MongoTxManager{client: client}
}

func (m *MongoTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := m.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (m *MongoTxManager) Transactional() bool { return true }

// NoTxManager runs fn directly; callers compensate on failure.
type NoTxManager struct{}

func (NoTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (NoTxManager) Transactional() bool { return false }
