package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yashrajoria/distributor-backend/services/common/errors"
	commonmw "github.com/yashrajoria/distributor-backend/services/common/middleware"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/middleware"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/services"
	"go.uber.org/zap"
)

// InventoryController handles HTTP requests for central and dealer stock
type InventoryController struct {
	ledger Ledger
}

// NewInventoryController creates a new InventoryController
func NewInventoryController(ledger Ledger) *InventoryController {
	return &InventoryController{ledger: ledger}
}

// GetCentralStock returns warehouse stock, or one product with ?productId=
// GET /inventory
func (ic *InventoryController) GetCentralStock(c *gin.Context) {
	if productID := c.Query("productId"); productID != "" {
		qty, err := ic.ledger.GetCentralStock(c.Request.Context(), productID)
		if err != nil {
			apperrors.Respond(c, err)
			return
		}
		apperrors.OK(c, http.StatusOK, models.CentralStock{ProductID: productID, Quantity: qty})
		return
	}

	stock, err := ic.ledger.ListCentralStock(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	apperrors.OK(c, http.StatusOK, stock)
}

// AdjustCentralStock sets, adds or subtracts warehouse stock
// POST /inventory
func (ic *InventoryController) AdjustCentralStock(c *gin.Context) {
	var req models.AdjustStockRequest
	if !bindJSON(c, &req) {
		return
	}

	commonmw.Annotate(c, zap.String("product_id", req.ProductID), zap.String("action", string(req.Action)), zap.Int("quantity", req.Quantity))
	qty, err := ic.ledger.ApplyCentral(c.Request.Context(), req.ProductID, req.Quantity, req.Action)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	apperrors.OK(c, http.StatusOK, gin.H{"productId": req.ProductID, "quantity": qty})
}

// GetDealerInventory returns one dealer's stock. Dealers may only read their
// own.
// GET /dealer-inventory?dealerUsername=X
func (ic *InventoryController) GetDealerInventory(c *gin.Context) {
	dealer := services.NormalizeUsername(c.Query("dealerUsername"))
	if !middleware.IsAdmin(c) {
		caller := c.GetString(middleware.UserContextKey)
		if dealer == "" {
			dealer = caller
		}
		if dealer != caller {
			apperrors.Respond(c, apperrors.Forbidden("Dealers can only view their own inventory", nil))
			return
		}
	}
	if dealer == "" {
		apperrors.Respond(c, apperrors.Validation("dealerUsername is required", nil))
		return
	}

	inv, err := ic.ledger.GetDealerInventory(c.Request.Context(), dealer)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if inv.Inventory == nil {
		inv.Inventory = map[string]int{}
	}
	apperrors.OK(c, http.StatusOK, gin.H{"dealerUsername": inv.DealerUsername, "inventory": inv.Inventory})
}

// AdjustDealerStock sets, adds or subtracts one dealer's stock
// POST /dealer-inventory
func (ic *InventoryController) AdjustDealerStock(c *gin.Context) {
	var req models.AdjustDealerStockRequest
	if !bindJSON(c, &req) {
		return
	}

	commonmw.Annotate(c,
		zap.String("dealer", services.NormalizeUsername(req.DealerUsername)),
		zap.String("product_id", req.ProductID),
		zap.String("action", string(req.Action)),
		zap.Int("quantity", req.Quantity),
	)
	qty, err := ic.ledger.AdjustDealerStock(c.Request.Context(), req.DealerUsername, req.ProductID, req.Quantity, req.Action)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	apperrors.OK(c, http.StatusOK, gin.H{
		"dealerUsername": services.NormalizeUsername(req.DealerUsername),
		"productId":      req.ProductID,
		"quantity":       qty,
	})
}
