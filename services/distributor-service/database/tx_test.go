package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestNoTxManager(t *testing.T) {
	var tx TxManager = NoTxManager{}
	assert.False(t, tx.Transactional())

	calls := 0
	err := tx.WithTransaction(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, calls)
}

func TestAccessorsBeforeConnect(t *testing.T) {
	if mongoClient != nil {
		t.Skip("client already connected")
	}
	_, err := DB()
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = Client()
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.NoError(t, Close())
}

func TestSupportsTransactions(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("replica set", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "setName", Value: "rs0"}))
		assert.True(t, SupportsTransactions(context.Background(), mt.DB))
	})

	mt.Run("mongos", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "msg", Value: "isdbgrid"}))
		assert.True(t, SupportsTransactions(context.Background(), mt.DB))
	})

	mt.Run("standalone", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "isWritablePrimary", Value: true}))
		assert.False(t, SupportsTransactions(context.Background(), mt.DB))
	})
}
