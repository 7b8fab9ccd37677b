package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yashrajoria/distributor-backend/services/distributor-service/database"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ShipmentRepository defines shipment data access. Shipments are append-only;
// DeleteBatch exists only to compensate a failed batch commit.
type ShipmentRepository interface {
	InsertMany(ctx context.Context, shipments []models.Shipment) (models.BatchResult, error)
	List(ctx context.Context, filter models.ShipmentFilter, page, limit int) ([]models.Shipment, int64, error)
	Find(ctx context.Context, q models.BillingQuery, limit int) ([]models.Shipment, error)
	DeleteBatch(ctx context.Context, batchID string) (int64, error)
}

type mongoShipmentRepository struct {
	collection *mongo.Collection
}

func NewShipmentRepository(db *mongo.Database) ShipmentRepository {
	return &mongoShipmentRepository{collection: db.Collection(database.ShipmentsCollection)}
}

// InsertMany performs one ordered insert. On a write error the result counts
// the leading documents that were persisted.
func (r *mongoShipmentRepository) InsertMany(ctx context.Context, shipments []models.Shipment) (models.BatchResult, error) {
	result := models.BatchResult{FailedIndex: -1}
	if len(shipments) == 0 {
		return result, nil
	}

	docs := make([]interface{}, len(shipments))
	for i := range shipments {
		docs[i] = shipments[i]
	}

	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err == nil {
		result.InsertedCount = len(shipments)
		return result, nil
	}

	var bulkErr mongo.BulkWriteException
	if errors.As(err, &bulkErr) && len(bulkErr.WriteErrors) > 0 {
		first := bulkErr.WriteErrors[0].Index
		for _, we := range bulkErr.WriteErrors {
			if we.Index < first {
				first = we.Index
			}
		}
		result.InsertedCount = first
		result.FailedIndex = first
	} else {
		result.FailedIndex = 0
	}
	return result, fmt.Errorf("insert shipments: %w", err)
}

func listFilter(f models.ShipmentFilter) bson.M {
	filter := bson.M{}
	if f.Company != "" {
		filter["company"] = f.Company
	}
	if f.DealerUsername != "" {
		filter["dealerUsername"] = f.DealerUsername
	}
	if f.StartDate != nil || f.EndDate != nil {
		created := bson.M{}
		if f.StartDate != nil {
			created["$gte"] = *f.StartDate
		}
		if f.EndDate != nil {
			created["$lt"] = *f.EndDate
		}
		filter["createdAt"] = created
	}
	return filter
}

func (r *mongoShipmentRepository) List(ctx context.Context, f models.ShipmentFilter, page, limit int) ([]models.Shipment, int64, error) {
	filter := listFilter(f)

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count shipments: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list shipments: %w", err)
	}
	defer cursor.Close(ctx)

	shipments := []models.Shipment{}
	if err := cursor.All(ctx, &shipments); err != nil {
		return nil, 0, fmt.Errorf("decode shipments: %w", err)
	}
	return shipments, total, nil
}

// billingFilter matches on billedAt. Records written before billedAt existed
// carry none and are passed through for the caller to bucket.
func billingFilter(q models.BillingQuery) bson.M {
	filter := bson.M{}
	if q.Company != "" {
		filter["company"] = q.Company
	}

	var billed bson.M
	switch {
	case q.From != nil || q.To != nil:
		rng := bson.M{}
		if q.From != nil {
			rng["$gte"] = *q.From
		}
		if q.To != nil {
			rng["$lt"] = *q.To
		}
		billed = bson.M{"billedAt": rng}
	case q.Month > 0:
		billed = bson.M{"$expr": bson.M{"$eq": bson.A{bson.M{"$month": "$billedAt"}, q.Month}}}
	default:
		return filter
	}
	filter["$or"] = bson.A{billed, bson.M{"billedAt": bson.M{"$exists": false}}}
	return filter
}

func (r *mongoShipmentRepository) Find(ctx context.Context, q models.BillingQuery, limit int) ([]models.Shipment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "billedAt", Value: -1}, {Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, billingFilter(q), opts)
	if err != nil {
		return nil, fmt.Errorf("find shipments: %w", err)
	}
	defer cursor.Close(ctx)

	shipments := []models.Shipment{}
	if err := cursor.All(ctx, &shipments); err != nil {
		return nil, fmt.Errorf("decode shipments: %w", err)
	}
	return shipments, nil
}

func (r *mongoShipmentRepository) DeleteBatch(ctx context.Context, batchID string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"batchId": batchID})
	if err != nil {
		return 0, fmt.Errorf("delete shipment batch %s: %w", batchID, err)
	}
	return res.DeletedCount, nil
}
