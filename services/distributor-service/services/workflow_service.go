package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	awspkg "github.com/yashrajoria/distributor-backend/pkg/aws"
	apperrors "github.com/yashrajoria/distributor-backend/services/common/errors"
	"github.com/yashrajoria/distributor-backend/services/common/logger"
	"github.com/yashrajoria/distributor-backend/services/common/telemetry"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/database"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// WorkflowService validates a batch of shipment lines against stock, then
// decrements dealer and central stock and records one shipment per line.
// Either the whole batch commits or none of it does.
type WorkflowService struct {
	dealerStock  repository.DealerInventoryRepository
	centralStock repository.CentralInventoryRepository
	products     repository.ProductRepository
	dealers      repository.DealerRepository
	recorder     *ShipmentService
	presence     *PresenceService
	tx           database.TxManager
	locker       Locker
	publisher    EventPublisher
	metrics      *awspkg.MetricsClient
	now          func() time.Time
}

// WorkflowDeps groups the collaborators of WorkflowService.
type WorkflowDeps struct {
	DealerStock  repository.DealerInventoryRepository
	CentralStock repository.CentralInventoryRepository
	Products     repository.ProductRepository
	Dealers      repository.DealerRepository
	Recorder     *ShipmentService
	Presence     *PresenceService
	Tx           database.TxManager
	Locker       Locker
	Publisher    EventPublisher
	Metrics      *awspkg.MetricsClient
}

// NewWorkflowService creates a new WorkflowService. Tx, Locker and Publisher
// are optional.
func NewWorkflowService(d WorkflowDeps) *WorkflowService {
	if d.Tx == nil {
		d.Tx = database.NoTxManager{}
	}
	if d.Locker == nil {
		d.Locker = NoopLocker{}
	}
	return &WorkflowService{
		dealerStock:  d.DealerStock,
		centralStock: d.CentralStock,
		products:     d.Products,
		dealers:      d.Dealers,
		recorder:     d.Recorder,
		presence:     d.Presence,
		tx:           d.Tx,
		locker:       d.Locker,
		publisher:    d.Publisher,
		metrics:      d.Metrics,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// demand is the summed quantity requested for one product, in order of
// first appearance.
type demand struct {
	productID string
	quantity  int
}

type batchPlan struct {
	scope     string
	dealer    string
	batchID   string
	time      string
	demands   []demand
	shipments []models.Shipment
}

// undo records one applied mutation so it can be reversed.
type undo struct {
	kind      string
	productID string
	quantity  int
}

const (
	undoDealer    = "dealer"
	undoCentral   = "central"
	undoShipments = "shipments"
)

// SubmitBatch runs collect, validate, commit and report for one submission.
func (w *WorkflowService) SubmitBatch(ctx context.Context, sub models.Submission) (*models.SubmissionReport, error) {
	ctx, span := telemetry.Tracer("distributor-service").Start(ctx, "shipments.submit_batch")
	defer span.End()

	plan, err := w.collect(ctx, sub)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("batch.id", plan.batchID),
		attribute.String("batch.scope", plan.scope),
		attribute.String("batch.dealer", plan.dealer),
		attribute.Int("batch.lines", len(plan.shipments)),
	)

	owner := plan.dealer
	if plan.scope == models.ScopeCentral {
		owner = "warehouse"
	}
	release, err := w.locker.Acquire(ctx, lockKey(plan.scope, owner))
	if err != nil {
		if errors.Is(err, ErrLockBusy) {
			return nil, apperrors.Conflict("Another batch for this stock is in progress, please retry", err)
		}
		return nil, dependencyError(err)
	}
	defer release()

	if err := w.validate(ctx, plan); err != nil {
		span.SetStatus(codes.Error, err.Error())
		recordCount(w.metrics, awspkg.MetricShipmentsRejected, map[string]string{"Scope": plan.scope})
		logger.Warn(ctx, "Shipment batch rejected", zap.String("batch_id", plan.batchID), zap.Error(err))
		return nil, err
	}

	dealerStock, centralStock, err := w.commit(ctx, plan)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		recordCount(w.metrics, awspkg.MetricShipmentsRejected, map[string]string{"Scope": plan.scope})
		return nil, err
	}

	report := w.report(plan, dealerStock, centralStock)

	if sub.SubmittedBy != "" && w.presence != nil {
		w.presence.TouchQuietly(ctx, sub.SubmittedBy, models.ActionActivity)
	}
	w.publish(ctx, plan, sub.SubmittedBy, report)

	logger.Info(ctx, "Shipment batch recorded",
		zap.String("batch_id", plan.batchID),
		zap.String("scope", plan.scope),
		zap.String("dealer", plan.dealer),
		zap.Int("lines", report.Count),
		zap.Int("total_quantity", report.TotalQuantity),
		zap.Float64("total_amount", report.TotalAmount),
	)
	recordCount(w.metrics, awspkg.MetricShipmentBatches, map[string]string{"Scope": plan.scope})
	recordValue(w.metrics, awspkg.MetricShipmentLines, float64(report.Count), map[string]string{"Scope": plan.scope})
	recordValue(w.metrics, awspkg.MetricShipmentAmount, report.TotalAmount, map[string]string{"Scope": plan.scope})
	return report, nil
}

// collect normalizes the submission and builds every shipment record before
// any stock is touched.
func (w *WorkflowService) collect(ctx context.Context, sub models.Submission) (*batchPlan, error) {
	plan := &batchPlan{
		scope:   sub.Scope,
		dealer:  NormalizeUsername(sub.DealerUsername),
		batchID: uuid.NewString(),
		time:    strings.TrimSpace(sub.Time),
	}
	if plan.scope == "" {
		plan.scope = models.ScopeDealer
	}
	switch plan.scope {
	case models.ScopeDealer:
		if plan.dealer == "" {
			return nil, apperrors.Validation("dealerUsername is required", nil)
		}
	case models.ScopeCentral:
	default:
		return nil, apperrors.Validation("scope must be dealer or central", nil)
	}
	if plan.time == "" {
		plan.time = w.now().Format(time.RFC3339)
	}
	if _, err := ParseShipmentTime(plan.time); err != nil {
		return nil, apperrors.Validation("Invalid submission time", err)
	}

	if len(sub.Lines) == 0 {
		return nil, apperrors.Validation("Batch has no shipments", nil)
	}

	lines := make([]models.ShipmentLine, 0, len(sub.Lines))
	for _, line := range sub.Lines {
		if line.Quantity < 0 {
			return nil, apperrors.Validation("Quantity must not be negative for product "+line.Product(), nil)
		}
		if line.Quantity == 0 {
			continue
		}
		if err := models.ValidateProductKey(line.Product()); err != nil {
			return nil, apperrors.Validation("Invalid shipment line", err)
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, apperrors.Validation("Batch has no line with a positive quantity", nil)
	}

	if err := w.fillDefaults(ctx, plan, lines); err != nil {
		return nil, err
	}

	index := map[string]int{}
	for _, line := range lines {
		shipment, err := w.recorder.BuildShipment(line, plan.batchID, plan.dealer, plan.time)
		if err != nil {
			return nil, err
		}
		plan.shipments = append(plan.shipments, shipment)

		if i, ok := index[shipment.ProductID]; ok {
			plan.demands[i].quantity += shipment.Quantity
			continue
		}
		index[shipment.ProductID] = len(plan.demands)
		plan.demands = append(plan.demands, demand{productID: shipment.ProductID, quantity: shipment.Quantity})
	}
	return plan, nil
}

// fillDefaults completes lines missing a company, price or product name from
// the dealer record and the catalogue.
func (w *WorkflowService) fillDefaults(ctx context.Context, plan *batchPlan, lines []models.ShipmentLine) error {
	var missing []string
	needCompany := false
	for _, line := range lines {
		if line.Price == nil || line.Name() == "" {
			missing = append(missing, line.Product())
		}
		if strings.TrimSpace(line.Company) == "" {
			needCompany = true
		}
	}

	if needCompany && plan.scope == models.ScopeDealer && w.dealers != nil {
		dealer, err := w.dealers.FindByUsername(ctx, plan.dealer)
		switch {
		case err == nil:
			for i := range lines {
				if strings.TrimSpace(lines[i].Company) == "" {
					lines[i].Company = dealer.Company
				}
			}
		case !errors.Is(err, repository.ErrNotFound):
			return dependencyError(err)
		}
	}

	if len(missing) == 0 || w.products == nil {
		return nil
	}
	catalogue, err := w.products.GetMany(ctx, missing)
	if err != nil {
		return dependencyError(err)
	}
	for i := range lines {
		p, ok := catalogue[lines[i].Product()]
		if !ok {
			continue
		}
		if lines[i].Price == nil {
			price := p.Price
			lines[i].Price = &price
		}
		if lines[i].Name() == "" {
			lines[i].ProductName = p.Name
		}
	}
	return nil
}

// validate checks every summed demand against current stock with one read
// of the dealer document, and reports every shortfall.
func (w *WorkflowService) validate(ctx context.Context, plan *batchPlan) error {
	available := map[string]int{}

	if plan.scope == models.ScopeDealer {
		inv, err := w.dealerStock.Get(ctx, plan.dealer)
		if err != nil {
			return dependencyError(err)
		}
		available = inv.Inventory
	} else {
		for _, d := range plan.demands {
			stock, err := w.centralStock.Get(ctx, d.productID)
			switch {
			case err == nil:
				available[d.productID] = stock.Quantity
			case errors.Is(err, repository.ErrNotFound):
				available[d.productID] = 0
			default:
				return dependencyError(err)
			}
		}
	}

	var shortfalls []models.Shortfall
	for _, d := range plan.demands {
		have := available[d.productID]
		if d.quantity > have {
			shortfalls = append(shortfalls, models.Shortfall{
				ProductID: d.productID,
				Requested: d.quantity,
				Available: have,
				Shortfall: d.quantity - have,
				Scope:     plan.scope,
			})
		}
	}
	if len(shortfalls) > 0 {
		return shortfallError(shortfalls, repository.ErrInsufficientStock)
	}
	return nil
}

// commit applies every mutation of the plan. With a transactional store the
// whole unit rolls back on error; otherwise applied steps are compensated.
func (w *WorkflowService) commit(ctx context.Context, plan *batchPlan) (map[string]int, map[string]int, error) {
	var (
		dealerStock  map[string]int
		centralStock map[string]int
		journal      []undo
	)

	err := w.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		// WithTransaction may retry fn; start every attempt from scratch
		dealerStock = map[string]int{}
		centralStock = map[string]int{}
		journal = journal[:0]
		return w.apply(txCtx, plan, dealerStock, centralStock, &journal)
	})
	if err == nil {
		return dealerStock, centralStock, nil
	}

	if !w.tx.Transactional() {
		w.compensate(ctx, plan, journal)
	}
	logger.Error(ctx, "Shipment batch commit failed", err,
		zap.String("batch_id", plan.batchID),
		zap.Bool("transactional", w.tx.Transactional()),
	)

	return nil, nil, dependencyError(err)
}

func (w *WorkflowService) apply(ctx context.Context, plan *batchPlan, dealerStock, centralStock map[string]int, journal *[]undo) error {
	for _, d := range plan.demands {
		if plan.scope == models.ScopeDealer {
			qty, err := w.dealerStock.Subtract(ctx, plan.dealer, d.productID, d.quantity)
			if err != nil {
				return stockError(err, d.productID, models.ScopeDealer)
			}
			dealerStock[d.productID] = qty
			*journal = append(*journal, undo{kind: undoDealer, productID: d.productID, quantity: d.quantity})
		}

		qty, err := w.centralStock.Adjust(ctx, d.productID, -d.quantity, false)
		if err != nil {
			return stockError(err, d.productID, models.ScopeCentral)
		}
		centralStock[d.productID] = qty
		*journal = append(*journal, undo{kind: undoCentral, productID: d.productID, quantity: d.quantity})
	}

	// DeleteBatch is idempotent, so a failed insert is always undone by batch id
	*journal = append(*journal, undo{kind: undoShipments})
	_, err := w.recorder.RecordBatch(ctx, plan.shipments)
	return err
}

// compensate reverses the journal newest first. It runs detached from the
// request context so a cancelled client cannot leave stock half-applied.
func (w *WorkflowService) compensate(ctx context.Context, plan *batchPlan, journal []undo) {
	if len(journal) == 0 {
		return
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	recordCount(w.metrics, awspkg.MetricCompensations, map[string]string{"Scope": plan.scope})
	for i := len(journal) - 1; i >= 0; i-- {
		u := journal[i]
		var err error
		switch u.kind {
		case undoDealer:
			_, err = w.dealerStock.Add(cctx, plan.dealer, u.productID, u.quantity)
		case undoCentral:
			_, err = w.centralStock.Adjust(cctx, u.productID, u.quantity, false)
		case undoShipments:
			_, err = w.recorder.DeleteBatch(cctx, plan.batchID)
		}
		if err != nil {
			logger.Error(ctx, "Compensation step failed", err,
				zap.String("batch_id", plan.batchID),
				zap.String("step", u.kind),
				zap.String("product_id", u.productID),
				zap.Int("quantity", u.quantity),
			)
		}
	}
}

func (w *WorkflowService) report(plan *batchPlan, dealerStock, centralStock map[string]int) *models.SubmissionReport {
	total := decimal.Zero
	qty := 0
	for _, sh := range plan.shipments {
		total = total.Add(Amount(sh.Quantity, sh.Price))
		qty += sh.Quantity
	}

	report := &models.SubmissionReport{
		BatchID:       plan.batchID,
		Count:         len(plan.shipments),
		TotalQuantity: qty,
		TotalAmount:   total.InexactFloat64(),
		Time:          plan.time,
		CentralStock:  centralStock,
		Shipments:     plan.shipments,
	}
	if plan.scope == models.ScopeDealer {
		report.DealerStock = dealerStock
	}
	return report
}

func (w *WorkflowService) publish(ctx context.Context, plan *batchPlan, submittedBy string, report *models.SubmissionReport) {
	if w.publisher == nil {
		return
	}
	event := models.ShipmentEvent{
		Type:           models.EventShipmentsRecorded,
		BatchID:        plan.batchID,
		Scope:          plan.scope,
		DealerUsername: plan.dealer,
		SubmittedBy:    submittedBy,
		Time:           plan.time,
		TotalQuantity:  report.TotalQuantity,
		TotalAmount:    report.TotalAmount,
		Shipments:      plan.shipments,
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	// Failures are logged by the publisher; the batch is already committed
	_ = w.publisher.Publish(pctx, event)
}
