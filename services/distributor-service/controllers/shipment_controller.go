package controllers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yashrajoria/distributor-backend/services/common/errors"
	"github.com/yashrajoria/distributor-backend/services/common/logger"
	commonmw "github.com/yashrajoria/distributor-backend/services/common/middleware"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/middleware"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/services"
	"go.uber.org/zap"
)

// DefaultHeartbeat is the SSE keep-alive interval.
const DefaultHeartbeat = 25 * time.Second

// ShipmentController handles shipment submission, listing and the live feed
type ShipmentController struct {
	workflow  ShipmentWorkflow
	lister    ShipmentLister
	stream    EventStream
	heartbeat time.Duration
}

// NewShipmentController creates a new ShipmentController
func NewShipmentController(workflow ShipmentWorkflow, lister ShipmentLister, stream EventStream, heartbeat time.Duration) *ShipmentController {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &ShipmentController{workflow: workflow, lister: lister, stream: stream, heartbeat: heartbeat}
}

// Submit records a single shipment or a batch
// POST /shipments
func (sc *ShipmentController) Submit(c *gin.Context) {
	var req models.SubmitShipmentsRequest
	if !bindJSON(c, &req) {
		return
	}

	caller := c.GetString(middleware.UserContextKey)
	sub := models.Submission{
		Scope:          req.Scope,
		DealerUsername: req.DealerUsername,
		SubmittedBy:    caller,
		Time:           req.Time,
		Lines:          req.Lines(),
	}
	if sub.Scope == "" {
		sub.Scope = models.ScopeDealer
	}

	if !middleware.IsAdmin(c) {
		if sub.Scope != models.ScopeDealer {
			apperrors.Respond(c, apperrors.Forbidden("Only admins can ship from central stock", nil))
			return
		}
		if sub.DealerUsername != "" && services.NormalizeUsername(sub.DealerUsername) != caller {
			apperrors.Respond(c, apperrors.Forbidden("Dealers can only ship their own stock", nil))
			return
		}
		sub.DealerUsername = caller
	}

	commonmw.Annotate(c, zap.String("scope", sub.Scope), zap.String("dealer", sub.DealerUsername), zap.Int("lines", len(sub.Lines)))
	report, err := sc.workflow.SubmitBatch(c.Request.Context(), sub)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	commonmw.Annotate(c, zap.String("batch_id", report.BatchID), zap.Int("total_quantity", report.TotalQuantity))
	apperrors.OK(c, http.StatusCreated, report)
}

// List returns a page of shipments. Dealers only see their own.
// GET /shipments
func (sc *ShipmentController) List(c *gin.Context) {
	filter := models.ShipmentFilter{
		Company:        c.Query("company"),
		DealerUsername: services.NormalizeUsername(c.Query("dealerUsername")),
	}
	if !middleware.IsAdmin(c) {
		filter.DealerUsername = c.GetString(middleware.UserContextKey)
	}

	for _, p := range []struct {
		name  string
		dst   **time.Time
		parse func(string) (time.Time, error)
	}{
		{"startDate", &filter.StartDate, services.ParseShipmentTime},
		{"endDate", &filter.EndDate, services.ParseEndDate},
	} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		t, err := p.parse(raw)
		if err != nil {
			apperrors.Respond(c, apperrors.Validation("Invalid "+p.name, err))
			return
		}
		*p.dst = &t
	}

	page, err := queryInt(c, "page")
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	result, err := sc.lister.ListShipments(c.Request.Context(), filter, page, limit)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	apperrors.OK(c, http.StatusOK, result)
}

// Stream pushes committed batches as Server-Sent Events until the client
// goes away.
// GET /shipments/stream?company=
func (sc *ShipmentController) Stream(c *gin.Context) {
	company := c.Query("company")
	ctx := c.Request.Context()

	events, cancel := sc.stream.Subscribe(ctx)
	defer cancel()
	ticker := time.NewTicker(sc.heartbeat)
	defer ticker.Stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	_, _ = io.WriteString(c.Writer, ": connected\n\n")
	c.Writer.Flush()

	logger.Debug(ctx, "Shipment stream opened", zap.String("company", company))
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-events:
			if !ok {
				return false
			}
			if company != "" && !event.HasCompany(company) {
				return true
			}
			c.SSEvent(event.Type, event)
			return true
		case <-ticker.C:
			_, err := io.WriteString(w, ": heartbeat\n\n")
			return err == nil
		}
	})
	logger.Debug(ctx, "Shipment stream closed", zap.String("company", company))
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperrors.Validation(name+" must be a non-negative integer", err)
	}
	return v, nil
}
