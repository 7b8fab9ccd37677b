package controllers

import (
	"context"

	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/services"
)

// Ledger is the stock surface used by InventoryController.
type Ledger interface {
	GetCentralStock(ctx context.Context, productID string) (int, error)
	ListCentralStock(ctx context.Context) ([]models.CentralStock, error)
	ApplyCentral(ctx context.Context, productID string, quantity int, mode models.StockMode) (int, error)
	GetDealerInventory(ctx context.Context, dealer string) (*models.DealerInventory, error)
	AdjustDealerStock(ctx context.Context, dealer, productID string, quantity int, mode models.StockMode) (int, error)
}

// ShipmentWorkflow submits shipment batches.
type ShipmentWorkflow interface {
	SubmitBatch(ctx context.Context, sub models.Submission) (*models.SubmissionReport, error)
}

// ShipmentLister pages through recorded shipments.
type ShipmentLister interface {
	ListShipments(ctx context.Context, filter models.ShipmentFilter, page, limit int) (*models.ShipmentPage, error)
}

// EventStream hands out live shipment subscriptions.
type EventStream interface {
	Subscribe(ctx context.Context) (<-chan models.ShipmentEvent, func())
}

// BillingAggregator builds billing reports.
type BillingAggregator interface {
	Aggregate(ctx context.Context, filter models.BillingFilter) (*models.BillingResult, error)
}

// DealerDirectory manages dealer accounts and logins.
type DealerDirectory interface {
	Register(ctx context.Context, req models.RegisterDealerRequest) (*models.Dealer, error)
	Get(ctx context.Context, username string) (*models.Dealer, error)
	List(ctx context.Context, status models.DealerStatus) ([]models.Dealer, error)
	TransitionStatus(ctx context.Context, username string, target models.DealerStatus, actor string) (*models.Dealer, error)
	Authenticate(ctx context.Context, username, password string) (*services.Session, error)
	Logout(ctx context.Context, username string) error
}

// PresenceTracker records and reports user presence.
type PresenceTracker interface {
	Touch(ctx context.Context, username string, action models.PresenceAction) error
	Statuses(ctx context.Context) (map[string]models.PresenceStatus, error)
}

// ProductCatalogue manages product reference data.
type ProductCatalogue interface {
	List(ctx context.Context) ([]models.Product, error)
	Upsert(ctx context.Context, req models.UpsertProductRequest) (*models.Product, error)
}
