package models

import "time"

// BillingFilter narrows the billing aggregation
type BillingFilter struct {
	Company string
	Month   int
	Year    int
	Limit   int
}

// MonthlyBill groups one company's shipments for one YYYY-MM month
type MonthlyBill struct {
	Items         []Shipment `json:"items"`
	TotalQuantity int        `json:"totalQuantity"`
	TotalAmount   float64    `json:"totalAmount"`
}

// BillingReport is keyed by company, then by YYYY-MM
type BillingReport map[string]map[string]*MonthlyBill

// BillingQuery is what the billing aggregation asks the shipment store for.
// From/To bound billedAt as [From, To). Month without a range matches that
// calendar month in any year.
type BillingQuery struct {
	Company string
	From    *time.Time
	To      *time.Time
	Month   int
}

// BillingResult is an aggregation plus whether the shipment limit cut it short
type BillingResult struct {
	Report    BillingReport
	Truncated bool
	Limit     int
}
