package models

import "time"

// Product is catalogue reference data. ProductID is the stable external key
// used by every inventory map and shipment.
type Product struct {
	ProductID string    `bson:"productId" json:"productId"`
	Name      string    `bson:"name" json:"name"`
	Cost      float64   `bson:"cost" json:"cost"`
	Price     float64   `bson:"price" json:"price"`
	EndPrice  float64   `bson:"endPrice" json:"endPrice"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// UpsertProductRequest creates or replaces a catalogue entry
type UpsertProductRequest struct {
	ProductID string  `json:"productId" binding:"required,productkey"`
	Name      string  `json:"name" binding:"required"`
	Cost      float64 `json:"cost" binding:"gte=0"`
	Price     float64 `json:"price" binding:"gte=0"`
	EndPrice  float64 `json:"endPrice" binding:"gte=0"`
}
