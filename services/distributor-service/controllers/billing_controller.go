package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yashrajoria/distributor-backend/services/common/errors"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/services"
)

// TruncatedHeader tells the caller the shipment limit cut the report short.
const TruncatedHeader = "X-Billing-Truncated"

type BillingController struct {
	billing BillingAggregator
}

func NewBillingController(billing BillingAggregator) *BillingController {
	return &BillingController{billing: billing}
}

// GetBilling groups shipments by company and month
// GET /billing?company=&month=&year=&limit=
func (bc *BillingController) GetBilling(c *gin.Context) {
	month, err := services.ParseMonth(c.Query("month"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	year, err := services.ParseYear(c.Query("year"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	result, err := bc.billing.Aggregate(c.Request.Context(), models.BillingFilter{
		Company: c.Query("company"),
		Month:   month,
		Year:    year,
		Limit:   limit,
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.Header(TruncatedHeader, strconv.FormatBool(result.Truncated))
	apperrors.OK(c, http.StatusOK, result.Report)
}
