package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/middleware"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/services"
)

// ---- mock ledger ----

type mockLedger struct{ mock.Mock }

func (m *mockLedger) GetCentralStock(ctx context.Context, productID string) (int, error) {
	args := m.Called(ctx, productID)
	return args.Int(0), args.Error(1)
}

func (m *mockLedger) ListCentralStock(ctx context.Context) ([]models.CentralStock, error) {
	args := m.Called(ctx)
	stock, _ := args.Get(0).([]models.CentralStock)
	return stock, args.Error(1)
}

func (m *mockLedger) ApplyCentral(ctx context.Context, productID string, quantity int, mode models.StockMode) (int, error) {
	args := m.Called(ctx, productID, quantity, mode)
	return args.Int(0), args.Error(1)
}

func (m *mockLedger) GetDealerInventory(ctx context.Context, dealer string) (*models.DealerInventory, error) {
	args := m.Called(ctx, dealer)
	inv, _ := args.Get(0).(*models.DealerInventory)
	return inv, args.Error(1)
}

func (m *mockLedger) AdjustDealerStock(ctx context.Context, dealer, productID string, quantity int, mode models.StockMode) (int, error) {
	args := m.Called(ctx, dealer, productID, quantity, mode)
	return args.Int(0), args.Error(1)
}

// ---- mock shipments ----

type mockWorkflow struct{ mock.Mock }

func (m *mockWorkflow) SubmitBatch(ctx context.Context, sub models.Submission) (*models.SubmissionReport, error) {
	args := m.Called(ctx, sub)
	r, _ := args.Get(0).(*models.SubmissionReport)
	return r, args.Error(1)
}

type mockLister struct{ mock.Mock }

func (m *mockLister) ListShipments(ctx context.Context, filter models.ShipmentFilter, page, limit int) (*models.ShipmentPage, error) {
	args := m.Called(ctx, filter, page, limit)
	p, _ := args.Get(0).(*models.ShipmentPage)
	return p, args.Error(1)
}

// ---- mock billing ----

type mockBilling struct{ mock.Mock }

func (m *mockBilling) Aggregate(ctx context.Context, filter models.BillingFilter) (*models.BillingResult, error) {
	args := m.Called(ctx, filter)
	r, _ := args.Get(0).(*models.BillingResult)
	return r, args.Error(1)
}

// ---- mock dealer directory ----

type mockDirectory struct{ mock.Mock }

func (m *mockDirectory) Register(ctx context.Context, req models.RegisterDealerRequest) (*models.Dealer, error) {
	args := m.Called(ctx, req)
	d, _ := args.Get(0).(*models.Dealer)
	return d, args.Error(1)
}

func (m *mockDirectory) Get(ctx context.Context, username string) (*models.Dealer, error) {
	args := m.Called(ctx, username)
	d, _ := args.Get(0).(*models.Dealer)
	return d, args.Error(1)
}

func (m *mockDirectory) List(ctx context.Context, status models.DealerStatus) ([]models.Dealer, error) {
	args := m.Called(ctx, status)
	d, _ := args.Get(0).([]models.Dealer)
	return d, args.Error(1)
}

func (m *mockDirectory) TransitionStatus(ctx context.Context, username string, target models.DealerStatus, actor string) (*models.Dealer, error) {
	args := m.Called(ctx, username, target, actor)
	d, _ := args.Get(0).(*models.Dealer)
	return d, args.Error(1)
}

func (m *mockDirectory) Authenticate(ctx context.Context, username, password string) (*services.Session, error) {
	args := m.Called(ctx, username, password)
	s, _ := args.Get(0).(*services.Session)
	return s, args.Error(1)
}

func (m *mockDirectory) Logout(ctx context.Context, username string) error {
	return m.Called(ctx, username).Error(0)
}

// ---- mock presence ----

type mockPresence struct{ mock.Mock }

func (m *mockPresence) Touch(ctx context.Context, username string, action models.PresenceAction) error {
	return m.Called(ctx, username, action).Error(0)
}

func (m *mockPresence) Statuses(ctx context.Context) (map[string]models.PresenceStatus, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(map[string]models.PresenceStatus)
	return s, args.Error(1)
}

// ---- mock products ----

type mockProducts struct{ mock.Mock }

func (m *mockProducts) List(ctx context.Context) ([]models.Product, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).([]models.Product)
	return p, args.Error(1)
}

func (m *mockProducts) Upsert(ctx context.Context, req models.UpsertProductRequest) (*models.Product, error) {
	args := m.Called(ctx, req)
	p, _ := args.Get(0).(*models.Product)
	return p, args.Error(1)
}

// ---- helpers ----

// as stands in for RequireAuth.
func as(username, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if username != "" {
			c.Set(middleware.UserContextKey, username)
			c.Set(middleware.RoleContextKey, role)
		}
		c.Next()
	}
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	return r
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Status  string          `json:"status"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Details json.RawMessage `json:"details"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}
