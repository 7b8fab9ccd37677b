package services

import (
	"context"
	"time"

	awspkg "github.com/yashrajoria/distributor-backend/pkg/aws"
)

// Metrics are recorded asynchronously so CloudWatch latency never reaches the
// request path.

func recordCount(m *awspkg.MetricsClient, name string, dims map[string]string) {
	if !m.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.RecordCount(ctx, name, dims)
	}()
}

func recordValue(m *awspkg.MetricsClient, name string, value float64, dims map[string]string) {
	if !m.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.RecordValue(ctx, name, value, dims)
	}()
}
