package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	apperrors "github.com/yashrajoria/distributor-backend/services/common/errors"
	"github.com/yashrajoria/distributor-backend/services/common/logger"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/repository"
	"go.uber.org/zap"
)

const defaultBillingLimit = 5000

// timeLayouts are the submission timestamp formats clients send.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006/01/02",
}

// ParseShipmentTime parses a client submission timestamp.
func ParseShipmentTime(s string) (time.Time, error) {
	t, _, err := parseShipmentTime(s)
	return t, err
}

// ParseEndDate parses an inclusive end-of-range query value and returns the
// exclusive bound after it. A bare date covers that whole day.
func ParseEndDate(s string) (time.Time, error) {
	t, layout, err := parseShipmentTime(s)
	if err != nil {
		return time.Time{}, err
	}
	if layout == "2006-01-02" || layout == "2006/01/02" {
		return t.AddDate(0, 0, 1), nil
	}
	return t.Add(time.Millisecond), nil
}

func parseShipmentTime(s string) (time.Time, string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, layout, nil
		}
	}
	return time.Time{}, "", fmt.Errorf("unparsable shipment time %q", s)
}

// BilledAt normalizes a shipment's billing instant: the client's wall clock
// from its time string, else createdAt. It is stored as UTC so range queries
// and month buckets agree. An unparsable time yields the zero value.
func BilledAt(timeStr string, createdAt time.Time) time.Time {
	if strings.TrimSpace(timeStr) == "" {
		return createdAt.UTC()
	}
	t, err := ParseShipmentTime(timeStr)
	if err != nil {
		return time.Time{}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// billingMonth derives the billing instant of a shipment, preferring the
// stored billedAt.
func billingMonth(sh models.Shipment) (time.Time, error) {
	if !sh.BilledAt.IsZero() {
		return sh.BilledAt.UTC(), nil
	}
	if strings.TrimSpace(sh.Time) == "" && sh.CreatedAt.IsZero() {
		return time.Time{}, fmt.Errorf("shipment %s has no timestamp", sh.ID)
	}
	at := BilledAt(sh.Time, sh.CreatedAt)
	if at.IsZero() {
		return time.Time{}, fmt.Errorf("unparsable shipment time %q", sh.Time)
	}
	return at, nil
}

// billingQuery turns the month/year filter into a billedAt range.
func billingQuery(filter models.BillingFilter) models.BillingQuery {
	q := models.BillingQuery{Company: filter.Company}
	switch {
	case filter.Year > 0 && filter.Month > 0:
		from := time.Date(filter.Year, time.Month(filter.Month), 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 1, 0)
		q.From, q.To = &from, &to
	case filter.Year > 0:
		from := time.Date(filter.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(1, 0, 0)
		q.From, q.To = &from, &to
	case filter.Month > 0:
		q.Month = filter.Month
	}
	return q
}

// BillingService groups shipments by company and month.
type BillingService struct {
	repo     repository.ShipmentRepository
	maxLimit int
}

// NewBillingService creates a new BillingService. maxLimit caps how many
// shipments one aggregation may read.
func NewBillingService(repo repository.ShipmentRepository, maxLimit int) *BillingService {
	if maxLimit <= 0 {
		maxLimit = 20000
	}
	return &BillingService{repo: repo, maxLimit: maxLimit}
}

// Aggregate returns company -> YYYY-MM -> bill. The month/year filter is
// applied by the store before the limit; Truncated reports that the limit
// was reached. Totals are exact sums of the grouped items.
func (s *BillingService) Aggregate(ctx context.Context, filter models.BillingFilter) (*models.BillingResult, error) {
	if filter.Month < 0 || filter.Month > 12 {
		return nil, apperrors.Validation("month must be between 1 and 12", nil)
	}
	if filter.Year < 0 || (filter.Year > 0 && filter.Year < 1000) || filter.Year > 9999 {
		return nil, apperrors.Validation("year must have four digits", nil)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultBillingLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	shipments, err := s.repo.Find(ctx, billingQuery(filter), limit+1)
	if err != nil {
		return nil, dependencyError(err)
	}
	truncated := len(shipments) > limit
	if truncated {
		shipments = shipments[:limit]
		logger.Warn(ctx, "Billing aggregation hit the shipment limit",
			zap.String("company", filter.Company),
			zap.Int("month", filter.Month),
			zap.Int("year", filter.Year),
			zap.Int("limit", limit),
		)
	}

	report := models.BillingReport{}
	totals := map[*models.MonthlyBill]decimal.Decimal{}
	skipped := 0

	for _, sh := range shipments {
		at, err := billingMonth(sh)
		if err != nil {
			skipped++
			logger.Warn(ctx, "Skipping shipment with unparsable timestamp", zap.String("shipment_id", sh.ID), zap.String("time", sh.Time))
			continue
		}
		if filter.Year > 0 && at.Year() != filter.Year {
			continue
		}
		if filter.Month > 0 && int(at.Month()) != filter.Month {
			continue
		}

		months, ok := report[sh.Company]
		if !ok {
			months = map[string]*models.MonthlyBill{}
			report[sh.Company] = months
		}
		key := at.Format("2006-01")
		bill, ok := months[key]
		if !ok {
			bill = &models.MonthlyBill{Items: []models.Shipment{}}
			months[key] = bill
		}

		bill.Items = append(bill.Items, sh)
		bill.TotalQuantity += sh.Quantity
		totals[bill] = totals[bill].Add(decimal.NewFromFloat(sh.Amount))
	}

	for bill, total := range totals {
		bill.TotalAmount = total.InexactFloat64()
	}

	if skipped > 0 {
		logger.Info(ctx, "Billing aggregation skipped shipments", zap.Int("skipped", skipped))
	}
	return &models.BillingResult{Report: report, Truncated: truncated, Limit: limit}, nil
}

// ParseMonth accepts "1".."12" or "01".."12"; empty means no filter.
func ParseMonth(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	m, err := strconv.Atoi(s)
	if err != nil || m < 1 || m > 12 || len(s) > 2 {
		return 0, apperrors.Validation("month must be between 1 and 12", err)
	}
	return m, nil
}

// ParseYear accepts a four digit year; empty means no filter.
func ParseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	t, err := time.Parse("2006", s)
	if err != nil {
		return 0, apperrors.Validation("year must have four digits", err)
	}
	return t.Year(), nil
}
