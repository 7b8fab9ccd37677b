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

// DealerController handles dealer registration and status changes
type DealerController struct {
	dealers DealerDirectory
}

// NewDealerController creates a new DealerController
func NewDealerController(dealers DealerDirectory) *DealerController {
	return &DealerController{dealers: dealers}
}

// Register creates a pending dealer account
// POST /dealers
func (dc *DealerController) Register(c *gin.Context) {
	var req models.RegisterDealerRequest
	if !bindJSON(c, &req) {
		return
	}

	commonmw.Annotate(c, zap.String("dealer", services.NormalizeUsername(req.Username)))
	dealer, err := dc.dealers.Register(c.Request.Context(), req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	apperrors.OK(c, http.StatusCreated, dealer)
}

// List returns dealers, optionally by status
// GET /dealers?status=
func (dc *DealerController) List(c *gin.Context) {
	dealers, err := dc.dealers.List(c.Request.Context(), models.DealerStatus(c.Query("status")))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if dealers == nil {
		dealers = []models.Dealer{}
	}
	apperrors.OK(c, http.StatusOK, dealers)
}

// Transition moves a dealer to a new status
// PUT /dealers
func (dc *DealerController) Transition(c *gin.Context) {
	var req models.TransitionRequest
	if !bindJSON(c, &req) {
		return
	}

	commonmw.Annotate(c, zap.String("dealer", services.NormalizeUsername(req.Username)), zap.String("to_status", string(req.Status)))
	dealer, err := dc.dealers.TransitionStatus(c.Request.Context(), req.Username, req.Status, c.GetString(middleware.UserContextKey))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	apperrors.OK(c, http.StatusOK, dealer)
}
