package models

import "time"

// Scopes a shipment batch can be drawn from.
const (
	ScopeDealer  = "dealer"
	ScopeCentral = "central"
)

// Shipment is an immutable record of stock leaving a dealer or the warehouse.
type Shipment struct {
	ID             string    `bson:"_id" json:"id"`
	BatchID        string    `bson:"batchId" json:"batchId"`
	DealerUsername string    `bson:"dealerUsername,omitempty" json:"dealerUsername,omitempty"`
	Company        string    `bson:"company" json:"company"`
	ProductID      string    `bson:"productId" json:"productId"`
	ProductName    string    `bson:"productName,omitempty" json:"productName,omitempty"`
	Quantity       int       `bson:"quantity" json:"quantity"`
	Price          float64   `bson:"price" json:"price"`
	Amount         float64   `bson:"amount" json:"amount"`
	Time           string    `bson:"time,omitempty" json:"time,omitempty"`
	BilledAt       time.Time `bson:"billedAt,omitempty" json:"billedAt,omitempty"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
}

// ShipmentLine is one requested line item. partId/partName are accepted as
// aliases of productId/productName.
type ShipmentLine struct {
	Company     string   `json:"company"`
	ProductID   string   `json:"productId"`
	PartID      string   `json:"partId"`
	ProductName string   `json:"productName"`
	PartName    string   `json:"partName"`
	Quantity    int      `json:"quantity"`
	Price       *float64 `json:"price"`
	Amount      *float64 `json:"amount"`
	Time        string   `json:"time"`
}

// Product returns the line's product key, whichever alias was used.
func (l ShipmentLine) Product() string {
	if l.ProductID != "" {
		return l.ProductID
	}
	return l.PartID
}

// Name returns the line's product name, whichever alias was used.
func (l ShipmentLine) Name() string {
	if l.ProductName != "" {
		return l.ProductName
	}
	return l.PartName
}

// SubmitShipmentsRequest is the body of POST /shipments. Either the batch or
// the inline single line is used.
type SubmitShipmentsRequest struct {
	ShipmentLine
	DealerUsername string         `json:"dealerUsername"`
	Scope          string         `json:"scope"`
	BatchShipments []ShipmentLine `json:"batchShipments"`
}

// Lines returns the batch, or the inline line as a batch of one.
func (r SubmitShipmentsRequest) Lines() []ShipmentLine {
	if len(r.BatchShipments) > 0 {
		return r.BatchShipments
	}
	if r.Product() == "" && r.Quantity == 0 {
		return nil
	}
	return []ShipmentLine{r.ShipmentLine}
}

// Submission is a validated batch submission handed to the workflow
type Submission struct {
	Scope          string
	DealerUsername string
	SubmittedBy    string
	Time           string
	Lines          []ShipmentLine
}

// SubmissionReport is returned after a batch commits
type SubmissionReport struct {
	BatchID       string         `json:"batchId"`
	Count         int            `json:"count"`
	TotalQuantity int            `json:"totalQuantity"`
	TotalAmount   float64        `json:"totalAmount"`
	Time          string         `json:"time"`
	DealerStock   map[string]int `json:"dealerStock,omitempty"`
	CentralStock  map[string]int `json:"centralStock"`
	Shipments     []Shipment     `json:"shipments"`
}

// BatchResult reports how many leading entries of a batch insert persisted.
// FailedIndex is -1 when every entry was inserted.
type BatchResult struct {
	InsertedCount int `json:"insertedCount"`
	FailedIndex   int `json:"failedIndex"`
}

// ShipmentFilter narrows shipment listings. EndDate is exclusive.
type ShipmentFilter struct {
	Company        string
	DealerUsername string
	StartDate      *time.Time
	EndDate        *time.Time
}

// ShipmentPage is one page of a shipment listing
type ShipmentPage struct {
	Items      []Shipment `json:"items"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalPages int        `json:"totalPages"`
}

// ShipmentEvent is published after a batch commits
type ShipmentEvent struct {
	Type           string     `json:"type"`
	BatchID        string     `json:"batchId"`
	Scope          string     `json:"scope"`
	DealerUsername string     `json:"dealerUsername,omitempty"`
	SubmittedBy    string     `json:"submittedBy"`
	Time           string     `json:"time"`
	TotalQuantity  int        `json:"totalQuantity"`
	TotalAmount    float64    `json:"totalAmount"`
	Shipments      []Shipment `json:"shipments"`
}

// EventShipmentsRecorded is the type of ShipmentEvent
const EventShipmentsRecorded = "shipments.recorded"

// HasCompany reports whether the event carries a shipment for company.
func (e ShipmentEvent) HasCompany(company string) bool {
	for _, s := range e.Shipments {
		if s.Company == company {
			return true
		}
	}
	return false
}
