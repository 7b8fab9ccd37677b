package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	apperrors "github.com/yashrajoria/distributor-backend/services/common/errors"
	"github.com/yashrajoria/distributor-backend/services/common/logger"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/repository"
	"go.uber.org/zap"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// amountTolerance is how far a client-supplied amount may drift from
// quantity*price before it is rejected.
var amountTolerance = decimal.New(5, -3)

// ShipmentService records immutable shipments and lists them.
type ShipmentService struct {
	repo repository.ShipmentRepository
	now  func() time.Time
}

// NewShipmentService creates a new ShipmentService
func NewShipmentService(repo repository.ShipmentRepository) *ShipmentService {
	return &ShipmentService{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Amount is quantity*price in decimal arithmetic.
func Amount(quantity int, price float64) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(quantity)))
}

// BuildShipment validates one line and turns it into a shipment record. The
// line must already carry its company and price.
func (s *ShipmentService) BuildShipment(line models.ShipmentLine, batchID, dealer, submittedAt string) (models.Shipment, error) {
	productID := line.Product()
	if err := models.ValidateProductKey(productID); err != nil {
		return models.Shipment{}, apperrors.Validation("Invalid shipment line", err)
	}
	if strings.TrimSpace(line.Company) == "" {
		return models.Shipment{}, apperrors.Validation("Company is required for product "+productID, nil)
	}
	if line.Quantity <= 0 {
		return models.Shipment{}, apperrors.Validation("Quantity must be positive for product "+productID, nil)
	}
	if line.Price == nil {
		return models.Shipment{}, apperrors.Validation("Price is required for product "+productID, nil)
	}
	if *line.Price < 0 {
		return models.Shipment{}, apperrors.Validation("Price must not be negative for product "+productID, nil)
	}

	amount := Amount(line.Quantity, *line.Price)
	if line.Amount != nil && decimal.NewFromFloat(*line.Amount).Sub(amount).Abs().GreaterThan(amountTolerance) {
		return models.Shipment{}, apperrors.Validation("Amount does not match quantity * price for product "+productID, nil)
	}

	if submittedAt == "" {
		submittedAt = line.Time
	}
	createdAt := s.now()
	return models.Shipment{
		ID:             uuid.NewString(),
		BatchID:        batchID,
		DealerUsername: dealer,
		Company:        strings.TrimSpace(line.Company),
		ProductID:      productID,
		ProductName:    line.Name(),
		Quantity:       line.Quantity,
		Price:          *line.Price,
		Amount:         amount.InexactFloat64(),
		Time:           submittedAt,
		BilledAt:       BilledAt(submittedAt, createdAt),
		CreatedAt:      createdAt,
	}, nil
}

// RecordShipment validates and appends a single shipment
func (s *ShipmentService) RecordShipment(ctx context.Context, line models.ShipmentLine) (*models.Shipment, error) {
	shipment, err := s.BuildShipment(line, uuid.NewString(), "", "")
	if err != nil {
		return nil, err
	}
	if _, err := s.RecordBatch(ctx, []models.Shipment{shipment}); err != nil {
		return nil, err
	}
	return &shipment, nil
}

// RecordBatch appends already-built shipments in one ordered insert. On a
// partial failure the result still reports how many were persisted.
func (s *ShipmentService) RecordBatch(ctx context.Context, shipments []models.Shipment) (models.BatchResult, error) {
	for i, sh := range shipments {
		if sh.Quantity <= 0 || sh.Price < 0 || !amountMatches(sh) {
			return models.BatchResult{FailedIndex: i}, apperrors.Validation("Invalid shipment record for product "+sh.ProductID, nil)
		}
	}

	result, err := s.repo.InsertMany(ctx, shipments)
	if err != nil {
		logger.Error(ctx, "Shipment batch insert failed", err,
			zap.Int("inserted", result.InsertedCount),
			zap.Int("failed_index", result.FailedIndex),
		)
		return result, dependencyError(err)
	}
	return result, nil
}

// ListShipments returns one page of shipments, newest first
func (s *ShipmentService) ListShipments(ctx context.Context, filter models.ShipmentFilter, page, limit int) (*models.ShipmentPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, apperrors.Validation("endDate must not be before startDate", nil)
	}

	items, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, dependencyError(err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &models.ShipmentPage{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// DeleteBatch removes the records of a batch whose commit failed.
func (s *ShipmentService) DeleteBatch(ctx context.Context, batchID string) (int64, error) {
	return s.repo.DeleteBatch(ctx, batchID)
}

func amountMatches(sh models.Shipment) bool {
	return decimal.NewFromFloat(sh.Amount).Sub(Amount(sh.Quantity, sh.Price)).Abs().LessThanOrEqual(amountTolerance)
}
