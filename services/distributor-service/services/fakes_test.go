package services_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/repository"
)

// ---- in-memory central stock ----

type fakeCentral struct {
	mu        sync.Mutex
	stock     map[string]int
	adjustErr error
	adjusts   int
}

func newFakeCentral(stock map[string]int) *fakeCentral {
	if stock == nil {
		stock = map[string]int{}
	}
	return &fakeCentral{stock: stock}
}

func (f *fakeCentral) Get(_ context.Context, productID string) (*models.CentralStock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	qty, ok := f.stock[productID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &models.CentralStock{ProductID: productID, Quantity: qty}, nil
}

func (f *fakeCentral) List(_ context.Context) ([]models.CentralStock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.CentralStock, 0, len(f.stock))
	for id, qty := range f.stock {
		out = append(out, models.CentralStock{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (f *fakeCentral) Set(_ context.Context, productID string, quantity int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stock[productID] = quantity
	return quantity, nil
}

func (f *fakeCentral) Adjust(_ context.Context, productID string, delta int, upsertUnknown bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adjusts++
	if f.adjustErr != nil && delta < 0 {
		return 0, f.adjustErr
	}
	qty, ok := f.stock[productID]
	if !ok && !upsertUnknown {
		return 0, repository.ErrNotFound
	}
	if qty+delta < 0 {
		return 0, &repository.StockError{ProductID: productID, Requested: -delta, Available: qty}
	}
	f.stock[productID] = qty + delta
	return qty + delta, nil
}

func (f *fakeCentral) qty(productID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stock[productID]
}

// ---- in-memory dealer stock ----

type fakeDealerStock struct {
	mu     sync.Mutex
	stock  map[string]map[string]int
	getErr error
	reads  int
}

func newFakeDealerStock() *fakeDealerStock {
	return &fakeDealerStock{stock: map[string]map[string]int{}}
}

func (f *fakeDealerStock) seed(dealer string, inv map[string]int) {
	f.stock[dealer] = inv
}

func (f *fakeDealerStock) Get(_ context.Context, dealer string) (*models.DealerInventory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.getErr != nil {
		return nil, f.getErr
	}
	inv := map[string]int{}
	for k, v := range f.stock[dealer] {
		inv[k] = v
	}
	return &models.DealerInventory{DealerUsername: dealer, Inventory: inv}, nil
}

func (f *fakeDealerStock) inv(dealer string) map[string]int {
	if f.stock[dealer] == nil {
		f.stock[dealer] = map[string]int{}
	}
	return f.stock[dealer]
}

func (f *fakeDealerStock) Set(_ context.Context, dealer, productID string, quantity int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inv(dealer)[productID] = quantity
	return quantity, nil
}

func (f *fakeDealerStock) Add(_ context.Context, dealer, productID string, quantity int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv := f.inv(dealer)
	inv[productID] += quantity
	return inv[productID], nil
}

func (f *fakeDealerStock) Subtract(_ context.Context, dealer, productID string, quantity int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv := f.inv(dealer)
	have := inv[productID]
	if have < quantity {
		return 0, &repository.StockError{ProductID: productID, Requested: quantity, Available: have}
	}
	inv[productID] = have - quantity
	return inv[productID], nil
}

func (f *fakeDealerStock) qty(dealer, productID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stock[dealer][productID]
}

// ---- in-memory shipments ----

type fakeShipments struct {
	mu        sync.Mutex
	items     []models.Shipment
	insertErr error
	deleted   []string
}

func (f *fakeShipments) InsertMany(_ context.Context, shipments []models.Shipment) (models.BatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		// the first record lands before the failure, like an ordered insert
		f.items = append(f.items, shipments[0])
		return models.BatchResult{InsertedCount: 1, FailedIndex: 1}, f.insertErr
	}
	f.items = append(f.items, shipments...)
	return models.BatchResult{InsertedCount: len(shipments), FailedIndex: -1}, nil
}

func (f *fakeShipments) List(_ context.Context, filter models.ShipmentFilter, page, limit int) ([]models.Shipment, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []models.Shipment
	for _, s := range f.items {
		if filter.Company != "" && s.Company != filter.Company {
			continue
		}
		matched = append(matched, s)
	}
	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], int64(len(matched)), nil
}

func (f *fakeShipments) Find(_ context.Context, q models.BillingQuery, limit int) ([]models.Shipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Shipment
	for _, s := range f.items {
		if q.Company != "" && s.Company != q.Company {
			continue
		}
		if !s.BilledAt.IsZero() {
			if q.From != nil && s.BilledAt.Before(*q.From) {
				continue
			}
			if q.To != nil && !s.BilledAt.Before(*q.To) {
				continue
			}
			if q.Month > 0 && int(s.BilledAt.Month()) != q.Month {
				continue
			}
		}
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeShipments) DeleteBatch(_ context.Context, batchID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, batchID)
	kept := f.items[:0]
	var n int64
	for _, s := range f.items {
		if s.BatchID == batchID {
			n++
			continue
		}
		kept = append(kept, s)
	}
	f.items = kept
	return n, nil
}

func (f *fakeShipments) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// ---- catalogue ----

type fakeProducts struct {
	products map[string]models.Product
}

func (f *fakeProducts) Upsert(_ context.Context, p *models.Product) error {
	if f.products == nil {
		f.products = map[string]models.Product{}
	}
	f.products[p.ProductID] = *p
	return nil
}

func (f *fakeProducts) Get(_ context.Context, productID string) (*models.Product, error) {
	p, ok := f.products[productID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProducts) List(_ context.Context) ([]models.Product, error) {
	out := make([]models.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProducts) GetMany(_ context.Context, ids []string) (map[string]models.Product, error) {
	out := map[string]models.Product{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// ---- dealers ----

type fakeDealers struct {
	mu      sync.Mutex
	dealers map[string]*models.Dealer
	findErr error
}

func newFakeDealers() *fakeDealers {
	return &fakeDealers{dealers: map[string]*models.Dealer{}}
}

func (f *fakeDealers) Create(_ context.Context, d *models.Dealer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.dealers[d.Username]; ok {
		return repository.ErrDuplicate
	}
	cp := *d
	f.dealers[d.Username] = &cp
	return nil
}

func (f *fakeDealers) FindByUsername(_ context.Context, username string) (*models.Dealer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	d, ok := f.dealers[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDealers) List(_ context.Context, status models.DealerStatus) ([]models.Dealer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Dealer
	for _, d := range f.dealers {
		if status == "" || d.Status == status {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (f *fakeDealers) UpdateStatus(_ context.Context, username string, from []models.DealerStatus, to models.DealerStatus, actor string) (*models.Dealer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.dealers[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for _, s := range from {
		if d.Status == s {
			d.Status = to
			d.StatusChangedBy = actor
			cp := *d
			return &cp, nil
		}
	}
	return nil, repository.ErrInvalidTransition
}

// ---- presence ----

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]*models.UserSession
	touchErr error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]*models.UserSession{}}
}

func (f *fakeSessions) Touch(_ context.Context, username string, action models.PresenceAction, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.touchErr != nil {
		return f.touchErr
	}
	s, ok := f.sessions[username]
	if !ok {
		s = &models.UserSession{Username: username}
		f.sessions[username] = s
	}
	s.LastActivity = at
	switch action {
	case models.ActionLogin:
		t := at
		s.LoginTime = &t
		s.SessionCount++
	case models.ActionLogout:
		t := at
		s.LogoutTime = &t
	}
	return nil
}

func (f *fakeSessions) Get(_ context.Context, username string) (*models.UserSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) List(_ context.Context) ([]models.UserSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.UserSession, 0, len(f.sessions))
	for _, s := range f.sessions {
		out = append(out, *s)
	}
	return out, nil
}

// ---- publishers ----

type recordingPublisher struct {
	mu     sync.Mutex
	name   string
	events []models.ShipmentEvent
	err    error
}

func (p *recordingPublisher) Name() string { return p.name }

func (p *recordingPublisher) Publish(_ context.Context, e models.ShipmentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) published() []models.ShipmentEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.ShipmentEvent(nil), p.events...)
}

// ---- transactions ----

// snapshotTx emulates a transactional store by restoring the fakes when fn
// fails.
type snapshotTx struct {
	central  *fakeCentral
	dealers  *fakeDealerStock
	shipment *fakeShipments
	calls    int
}

func (t *snapshotTx) Transactional() bool { return true }

func (t *snapshotTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	central := map[string]int{}
	for k, v := range t.central.stock {
		central[k] = v
	}
	dealers := map[string]map[string]int{}
	for d, inv := range t.dealers.stock {
		dealers[d] = map[string]int{}
		for k, v := range inv {
			dealers[d][k] = v
		}
	}
	items := append([]models.Shipment(nil), t.shipment.items...)

	if err := fn(ctx); err != nil {
		t.central.stock = central
		t.dealers.stock = dealers
		t.shipment.items = items
		return err
	}
	return nil
}

type busyLocker struct{ err error }

func (l busyLocker) Acquire(context.Context, string) (func(), error) {
	return nil, l.err
}

var errBoom = errors.New("boom")

func floatPtr(v float64) *float64 { return &v }
