package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const ns = "distributor.test"

func TestDealerInventoryRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("get unknown dealer returns empty inventory", func(mt *mtest.T) {
		repo := NewDealerInventoryRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		inv, err := repo.Get(ctx, "dealer001")
		require.NoError(t, err)
		assert.Equal(t, "dealer001", inv.DealerUsername)
		assert.Empty(t, inv.Inventory)
	})

	mt.Run("subtract returns the new quantity", func(mt *mtest.T) {
		repo := NewDealerInventoryRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "dealerUsername", Value: "dealer001"},
			{Key: "inventory", Value: bson.D{{Key: "P1", Value: 6}}},
		}}))

		qty, err := repo.Subtract(ctx, "dealer001", "P1", 4)
		require.NoError(t, err)
		assert.Equal(t, 6, qty)
	})

	mt.Run("subtract below zero reports the shortfall", func(mt *mtest.T) {
		repo := NewDealerInventoryRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
				{Key: "dealerUsername", Value: "dealer001"},
				{Key: "inventory", Value: bson.D{{Key: "P1", Value: 3}}},
			}),
		)

		_, err := repo.Subtract(ctx, "dealer001", "P1", 5)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInsufficientStock))

		var stockErr *StockError
		require.True(t, errors.As(err, &stockErr))
		assert.Equal(t, 3, stockErr.Available)
		assert.Equal(t, 5, stockErr.Requested)
	})

	mt.Run("subtract zero only reads", func(mt *mtest.T) {
		repo := NewDealerInventoryRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "dealerUsername", Value: "dealer001"},
			{Key: "inventory", Value: bson.D{{Key: "P1", Value: 3}}},
		}))

		qty, err := repo.Subtract(ctx, "dealer001", "P1", 0)
		require.NoError(t, err)
		assert.Equal(t, 3, qty)
	})

	mt.Run("add upserts", func(mt *mtest.T) {
		repo := NewDealerInventoryRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "dealerUsername", Value: "dealer002"},
			{Key: "inventory", Value: bson.D{{Key: "P9", Value: 12}}},
		}}))

		qty, err := repo.Add(ctx, "dealer002", "P9", 12)
		require.NoError(t, err)
		assert.Equal(t, 12, qty)

		started := mt.GetStartedEvent()
		require.NotNil(t, started)
		assert.Equal(t, "findAndModify", started.CommandName)
		assert.True(t, started.Command.Lookup("upsert").Boolean())
	})

	mt.Run("set", func(mt *mtest.T) {
		repo := NewDealerInventoryRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		qty, err := repo.Set(ctx, "dealer001", "P1", 10)
		require.NoError(t, err)
		assert.Equal(t, 10, qty)
	})
}

func TestCentralInventoryRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("adjust decrements", func(mt *mtest.T) {
		repo := NewCentralInventoryRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "productId", Value: "P1"},
			{Key: "quantity", Value: 96},
		}}))

		qty, err := repo.Adjust(ctx, "P1", -4, false)
		require.NoError(t, err)
		assert.Equal(t, 96, qty)
	})

	mt.Run("adjust unknown product", func(mt *mtest.T) {
		repo := NewCentralInventoryRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
		)

		_, err := repo.Adjust(ctx, "P404", 5, false)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("adjust unknown product with zero baseline", func(mt *mtest.T) {
		repo := NewCentralInventoryRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
		)

		_, err := repo.Adjust(ctx, "P404", -1, true)
		assert.ErrorIs(t, err, ErrInsufficientStock)
	})

	mt.Run("adjust insufficient", func(mt *mtest.T) {
		repo := NewCentralInventoryRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
				{Key: "productId", Value: "P1"},
				{Key: "quantity", Value: 2},
			}),
		)

		_, err := repo.Adjust(ctx, "P1", -3, false)
		var stockErr *StockError
		require.True(t, errors.As(err, &stockErr))
		assert.Equal(t, 2, stockErr.Available)
	})

	mt.Run("list", func(mt *mtest.T) {
		repo := NewCentralInventoryRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "productId", Value: "P1"}, {Key: "quantity", Value: 10}},
			bson.D{{Key: "productId", Value: "P2"}, {Key: "quantity", Value: 0}},
		))

		stock, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, stock, 2)
		assert.Equal(t, "P2", stock[1].ProductID)
	})
}
