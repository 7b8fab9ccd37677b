package services_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/services"
)

// ---- in-memory deduper ----

type memDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (d *memDeduper) FirstSeen(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	if d.seen[key] {
		return false, nil
	}
	d.seen[key] = true
	return true, nil
}

func (d *memDeduper) Forget(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, key)
}

func TestRestockAppliesReceipts(t *testing.T) {
	central := newFakeCentral(map[string]int{"P1": 10})
	restock := services.NewRestockService(newLedger(central, newFakeDealerStock(), false), &memDeduper{})
	ctx := context.Background()

	require.NoError(t, restock.HandleMessage(ctx, `{"productId":"P1","quantity":5,"reference":"GRN-1"}`))
	assert.Equal(t, 15, central.qty("P1"))

	// redelivery of the same receipt
	require.NoError(t, restock.HandleMessage(ctx, `{"productId":"P1","quantity":5,"reference":"GRN-1"}`))
	assert.Equal(t, 15, central.qty("P1"))

	require.NoError(t, restock.HandleMessage(ctx, `{"productId":"P1","quantity":40,"action":"set","reference":"COUNT-7"}`))
	assert.Equal(t, 40, central.qty("P1"))
}

func TestRestockUnwrapsSNSEnvelope(t *testing.T) {
	central := newFakeCentral(map[string]int{"P1": 0})
	restock := services.NewRestockService(newLedger(central, newFakeDealerStock(), false), nil)

	inner := `{"productId":"P1","quantity":3}`
	body, err := json.Marshal(map[string]string{"Type": "Notification", "Message": inner})
	require.NoError(t, err)

	require.NoError(t, restock.HandleMessage(context.Background(), string(body)))
	assert.Equal(t, 3, central.qty("P1"))
}

func TestRestockAcknowledgesBadMessages(t *testing.T) {
	central := newFakeCentral(map[string]int{"P1": 2})
	restock := services.NewRestockService(newLedger(central, newFakeDealerStock(), false), nil)
	ctx := context.Background()

	for _, body := range []string{
		`not json`,
		`{"productId":"P1","quantity":1,"action":"steal"}`,
		`{"productId":"P.1","quantity":1}`,
		`{"productId":"P1","quantity":-1}`,
		`{"productId":"P404","quantity":1}`,
		`{"productId":"P1","quantity":5,"action":"subtract"}`,
	} {
		assert.NoError(t, restock.HandleMessage(ctx, body), body)
	}
	assert.Equal(t, 2, central.qty("P1"))
}

func TestRestockRetriesDependencyFailures(t *testing.T) {
	central := newFakeCentral(map[string]int{"P1": 5})
	central.adjustErr = errBoom
	dedupe := &memDeduper{}
	restock := services.NewRestockService(newLedger(central, newFakeDealerStock(), false), dedupe)
	ctx := context.Background()

	msg := `{"productId":"P1","quantity":1,"action":"subtract","reference":"RET-9"}`
	assert.Error(t, restock.HandleMessage(ctx, msg))

	// the reference is released so the redelivery is applied
	central.adjustErr = nil
	require.NoError(t, restock.HandleMessage(ctx, msg))
	assert.Equal(t, 4, central.qty("P1"))
}
