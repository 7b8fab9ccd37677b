package services

import (
	"context"
	"errors"

	awspkg "github.com/yashrajoria/distributor-backend/pkg/aws"
	apperrors "github.com/yashrajoria/distributor-backend/services/common/errors"
	"github.com/yashrajoria/distributor-backend/services/common/logger"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/repository"
	"go.uber.org/zap"
)

// LedgerService owns central and per-dealer stock quantities. Every decrement
// is a conditional update, so no quantity ever goes below zero.
type LedgerService struct {
	central       repository.CentralInventoryRepository
	dealers       repository.DealerInventoryRepository
	upsertUnknown bool
	metrics       *awspkg.MetricsClient
}

// NewLedgerService creates a new LedgerService. With upsertUnknown, central
// adjustments of an unknown product start from a zero baseline instead of
// failing with NotFound.
func NewLedgerService(central repository.CentralInventoryRepository, dealers repository.DealerInventoryRepository, upsertUnknown bool, metrics *awspkg.MetricsClient) *LedgerService {
	return &LedgerService{central: central, dealers: dealers, upsertUnknown: upsertUnknown, metrics: metrics}
}

func validateAdjustment(productID string, quantity int) error {
	if err := models.ValidateProductKey(productID); err != nil {
		return apperrors.Validation("Invalid product", err)
	}
	if quantity < 0 {
		return apperrors.Validation("Quantity must not be negative", nil)
	}
	return nil
}

// GetCentralStock returns the warehouse quantity of a product
func (s *LedgerService) GetCentralStock(ctx context.Context, productID string) (int, error) {
	stock, err := s.central.Get(ctx, productID)
	if err != nil {
		return 0, stockError(err, productID, models.ScopeCentral)
	}
	return stock.Quantity, nil
}

// ListCentralStock returns every warehouse stock row
func (s *LedgerService) ListCentralStock(ctx context.Context) ([]models.CentralStock, error) {
	stock, err := s.central.List(ctx)
	if err != nil {
		return nil, dependencyError(err)
	}
	return stock, nil
}

// AdjustCentralStock applies a signed delta to warehouse stock in one
// conditional update.
func (s *LedgerService) AdjustCentralStock(ctx context.Context, productID string, delta int) (int, error) {
	if err := models.ValidateProductKey(productID); err != nil {
		return 0, apperrors.Validation("Invalid product", err)
	}
	qty, err := s.central.Adjust(ctx, productID, delta, s.upsertUnknown)
	if err != nil {
		return 0, stockError(err, productID, models.ScopeCentral)
	}
	logger.Info(ctx, "Central stock adjusted", zap.String("product_id", productID), zap.Int("delta", delta), zap.Int("quantity", qty))
	recordCount(s.metrics, awspkg.MetricStockAdjustments, map[string]string{"Scope": models.ScopeCentral})
	return qty, nil
}

// ApplyCentral dispatches a set/add/subtract request against warehouse stock
func (s *LedgerService) ApplyCentral(ctx context.Context, productID string, quantity int, mode models.StockMode) (int, error) {
	if err := validateAdjustment(productID, quantity); err != nil {
		return 0, err
	}
	switch mode {
	case models.StockSet:
		qty, err := s.central.Set(ctx, productID, quantity)
		if err != nil {
			return 0, dependencyError(err)
		}
		logger.Info(ctx, "Central stock set", zap.String("product_id", productID), zap.Int("quantity", qty))
		return qty, nil
	case models.StockAdd:
		return s.AdjustCentralStock(ctx, productID, quantity)
	case models.StockSubtract:
		return s.AdjustCentralStock(ctx, productID, -quantity)
	}
	return 0, apperrors.Validation("Unknown stock action", nil)
}

// GetDealerInventory returns every product quantity a dealer holds
func (s *LedgerService) GetDealerInventory(ctx context.Context, dealer string) (*models.DealerInventory, error) {
	dealer = NormalizeUsername(dealer)
	if dealer == "" {
		return nil, apperrors.Validation("dealerUsername is required", nil)
	}
	inv, err := s.dealers.Get(ctx, dealer)
	if err != nil {
		return nil, dependencyError(err)
	}
	return inv, nil
}

// GetDealerStock returns one product quantity of a dealer, zero when absent
func (s *LedgerService) GetDealerStock(ctx context.Context, dealer, productID string) (int, error) {
	inv, err := s.GetDealerInventory(ctx, dealer)
	if err != nil {
		return 0, err
	}
	return inv.Inventory[productID], nil
}

// AdjustDealerStock sets, adds or subtracts a non-negative quantity on one
// dealer's stock. A subtract that would go below zero is rejected.
func (s *LedgerService) AdjustDealerStock(ctx context.Context, dealer, productID string, quantity int, mode models.StockMode) (int, error) {
	dealer = NormalizeUsername(dealer)
	if dealer == "" {
		return 0, apperrors.Validation("dealerUsername is required", nil)
	}
	if err := validateAdjustment(productID, quantity); err != nil {
		return 0, err
	}

	var (
		qty int
		err error
	)
	switch mode {
	case models.StockSet:
		qty, err = s.dealers.Set(ctx, dealer, productID, quantity)
	case models.StockAdd:
		qty, err = s.dealers.Add(ctx, dealer, productID, quantity)
	case models.StockSubtract:
		qty, err = s.dealers.Subtract(ctx, dealer, productID, quantity)
	default:
		return 0, apperrors.Validation("Unknown stock action", nil)
	}
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			logger.Warn(ctx, "Dealer stock subtract rejected", zap.String("dealer", dealer), zap.String("product_id", productID), zap.Int("quantity", quantity))
		}
		return 0, stockError(err, productID, models.ScopeDealer)
	}

	logger.Info(ctx, "Dealer stock adjusted",
		zap.String("dealer", dealer),
		zap.String("product_id", productID),
		zap.String("action", string(mode)),
		zap.Int("quantity", qty),
	)
	recordCount(s.metrics, awspkg.MetricStockAdjustments, map[string]string{"Scope": models.ScopeDealer})
	return qty, nil
}
