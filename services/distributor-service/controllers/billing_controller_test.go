package controllers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	apperrors "github.com/yashrajoria/distributor-backend/services/common/errors"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/controllers"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
)

func TestGetBilling(t *testing.T) {
	billing := new(mockBilling)
	billing.On("Aggregate", mock.Anything, models.BillingFilter{Company: "Acme", Month: 1, Year: 2024}).Return(&models.BillingResult{
		Report: models.BillingReport{
			"Acme": {"2024-01": {Items: []models.Shipment{{ProductID: "P1", Quantity: 2, Amount: 5}}, TotalQuantity: 2, TotalAmount: 5}},
		},
	}, nil)
	billing.On("Aggregate", mock.Anything, models.BillingFilter{Company: "Globex", Limit: 1}).Return(&models.BillingResult{
		Report:    models.BillingReport{"Globex": {"2024-03": {Items: []models.Shipment{{ProductID: "P2", Quantity: 1, Amount: 1}}, TotalQuantity: 1, TotalAmount: 1}}},
		Truncated: true,
		Limit:     1,
	}, nil)

	r := newRouter(as("admin", models.RoleAdmin))
	r.GET("/billing", controllers.NewBillingController(billing).GetBilling)

	w := doJSON(r, http.MethodGet, "/billing?company=Acme&month=01&year=2024", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"2024-01"`)
	assert.Equal(t, "false", w.Header().Get(controllers.TruncatedHeader))

	w = doJSON(r, http.MethodGet, "/billing?company=Globex&limit=1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Header().Get(controllers.TruncatedHeader))

	for _, q := range []string{"month=13", "month=1a", "year=24", "limit=-1"} {
		w = doJSON(r, http.MethodGet, "/billing?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
	billing.AssertExpectations(t)
}

func TestPresence(t *testing.T) {
	presence := new(mockPresence)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	presence.On("Statuses", mock.Anything).Return(map[string]models.PresenceStatus{
		"dealer001": {Online: true, LastActivity: now, SessionCount: 1},
	}, nil)
	presence.On("Touch", mock.Anything, "dealer001", models.ActionActivity).Return(nil)
	presence.On("Touch", mock.Anything, "dealer001", models.ActionLogout).Return(apperrors.DependencyUnavailable("Service temporarily unavailable", nil))

	r := newRouter(as("dealer001", models.RoleDealer))
	pc := controllers.NewPresenceController(presence)
	r.GET("/user-status", pc.Statuses)
	r.POST("/user-status", pc.Touch)

	w := doJSON(r, http.MethodGet, "/user-status", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"online":true`)

	w = doJSON(r, http.MethodPost, "/user-status", map[string]string{"action": "activity"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/user-status", map[string]string{"action": "logout"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = doJSON(r, http.MethodPost, "/user-status", map[string]string{"action": "dance"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProducts(t *testing.T) {
	products := new(mockProducts)
	products.On("List", mock.Anything).Return([]models.Product{{ProductID: "P1", Name: "Brake pad", Price: 12.5}}, nil)
	products.On("Upsert", mock.Anything, models.UpsertProductRequest{ProductID: "P2", Name: "Oil filter", Price: 4}).
		Return(&models.Product{ProductID: "P2", Name: "Oil filter", Price: 4}, nil)

	r := newRouter(as("admin", models.RoleAdmin))
	pc := controllers.NewProductController(products)
	r.GET("/products", pc.List)
	r.POST("/products", pc.Upsert)

	w := doJSON(r, http.MethodGet, "/products", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"productId":"P1"`)

	w = doJSON(r, http.MethodPost, "/products", map[string]interface{}{"productId": "P2", "name": "Oil filter", "price": 4})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/products", map[string]interface{}{"productId": "P3", "name": "Bad", "price": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	products.AssertExpectations(t)
}
