package models

import (
	"fmt"
	"strings"
	"time"
)

// StockMode selects how an adjustment quantity is applied.
type StockMode string

const (
	StockSet      StockMode = "set"
	StockAdd      StockMode = "add"
	StockSubtract StockMode = "subtract"
)

// Valid reports whether m is a known mode.
func (m StockMode) Valid() bool {
	switch m {
	case StockSet, StockAdd, StockSubtract:
		return true
	}
	return false
}

// CentralStock is the warehouse quantity of one product
type CentralStock struct {
	ProductID string    `bson:"productId" json:"productId"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// DealerInventory is the consigned stock held by one dealer
type DealerInventory struct {
	DealerUsername string         `bson:"dealerUsername" json:"dealerUsername"`
	Inventory      map[string]int `bson:"inventory" json:"inventory"`
	CreatedAt      time.Time      `bson:"createdAt" json:"createdAt,omitempty"`
	UpdatedAt      time.Time      `bson:"updatedAt" json:"updatedAt,omitempty"`
}

// AdjustStockRequest adjusts central stock. Quantity is never negative; the
// action carries the sign.
type AdjustStockRequest struct {
	ProductID string    `json:"productId" binding:"required,productkey"`
	Quantity  int       `json:"quantity" binding:"gte=0"`
	Action    StockMode `json:"action" binding:"required,oneof=set add subtract"`
}

// AdjustDealerStockRequest adjusts one dealer's stock
type AdjustDealerStockRequest struct {
	DealerUsername string    `json:"dealerUsername" binding:"required"`
	ProductID      string    `json:"productId" binding:"required,productkey"`
	Quantity       int       `json:"quantity" binding:"gte=0"`
	Action         StockMode `json:"action" binding:"required,oneof=set add subtract"`
}

// RestockMessage is a warehouse receipt delivered on the restock queue.
// Action defaults to add.
type RestockMessage struct {
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	Action    StockMode `json:"action,omitempty"`
	Reference string    `json:"reference,omitempty"`
}

// Shortfall describes one product that cannot cover a requested quantity
type Shortfall struct {
	ProductID string `json:"productId"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	Shortfall int    `json:"shortfall"`
	Scope     string `json:"scope"`
}

// ValidateProductKey checks that id can be used as a field name inside an
// inventory map.
func ValidateProductKey(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("productId is required")
	case strings.Contains(id, "."):
		return fmt.Errorf("productId %q must not contain '.'", id)
	case strings.HasPrefix(id, "$"):
		return fmt.Errorf("productId %q must not start with '$'", id)
	}
	return nil
}
