package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func sampleShipments(n int) []models.Shipment {
	out := make([]models.Shipment, n)
	for i := range out {
		out[i] = models.Shipment{
			ID:        "s" + string(rune('a'+i)),
			BatchID:   "b1",
			Company:   "Acme",
			ProductID: "P1",
			Quantity:  2,
			Price:     5,
			Amount:    10,
			CreatedAt: time.Now().UTC(),
		}
	}
	return out
}

func TestShipmentRepositoryInsertMany(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("all inserted", func(mt *mtest.T) {
		repo := NewShipmentRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		res, err := repo.InsertMany(ctx, sampleShipments(3))
		require.NoError(t, err)
		assert.Equal(t, 3, res.InsertedCount)
		assert.Equal(t, -1, res.FailedIndex)
	})

	mt.Run("partial failure reports leading inserts", func(mt *mtest.T) {
		repo := NewShipmentRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   2,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		res, err := repo.InsertMany(ctx, sampleShipments(4))
		require.Error(t, err)
		assert.Equal(t, 2, res.InsertedCount)
		assert.Equal(t, 2, res.FailedIndex)
	})

	mt.Run("empty batch is a no-op", func(mt *mtest.T) {
		repo := NewShipmentRepository(mt.DB)
		res, err := repo.InsertMany(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, res.InsertedCount)
	})
}

func TestShipmentRepositoryList(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("count then page", func(mt *mtest.T) {
		repo := NewShipmentRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(7)}}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "s1"}, {Key: "company", Value: "Acme"}, {Key: "quantity", Value: 4}, {Key: "amount", Value: 40.0}},
			),
		)

		items, total, err := repo.List(ctx, models.ShipmentFilter{Company: "Acme"}, 2, 5)
		require.NoError(t, err)
		assert.Equal(t, int64(7), total)
		require.Len(t, items, 1)
		assert.Equal(t, "s1", items[0].ID)
	})
}

func TestListFilter(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := listFilter(models.ShipmentFilter{Company: "Acme", DealerUsername: "dealer001", StartDate: &start})

	assert.Equal(t, "Acme", f["company"])
	assert.Equal(t, "dealer001", f["dealerUsername"])
	assert.Equal(t, bson.M{"$gte": start}, f["createdAt"])
	assert.Empty(t, listFilter(models.ShipmentFilter{}))

	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	f = listFilter(models.ShipmentFilter{EndDate: &end})
	assert.Equal(t, bson.M{"$lt": end}, f["createdAt"])
}

func TestBillingFilter(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	legacy := bson.M{"billedAt": bson.M{"$exists": false}}

	f := billingFilter(models.BillingQuery{Company: "Acme", From: &from, To: &to})
	assert.Equal(t, "Acme", f["company"])
	assert.Equal(t, bson.A{bson.M{"billedAt": bson.M{"$gte": from, "$lt": to}}, legacy}, f["$or"])

	f = billingFilter(models.BillingQuery{Month: 3})
	assert.Equal(t, bson.A{
		bson.M{"$expr": bson.M{"$eq": bson.A{bson.M{"$month": "$billedAt"}, 3}}},
		legacy,
	}, f["$or"])

	assert.Equal(t, bson.M{"company": "Globex"}, billingFilter(models.BillingQuery{Company: "Globex"}))
}

func TestShipmentRepositoryFind(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("decodes billing rows", func(mt *mtest.T) {
		repo := NewShipmentRepository(mt.DB)
		billed := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "s1"}, {Key: "company", Value: "Acme"}, {Key: "quantity", Value: 4}, {Key: "billedAt", Value: billed}},
		))

		from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 1, 0)
		items, err := repo.Find(ctx, models.BillingQuery{Company: "Acme", From: &from, To: &to}, 3)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, billed, items[0].BilledAt.UTC())
	})
}
