package models

import "time"

// DealerStatus is the lifecycle state of a dealer account
type DealerStatus string

const (
	DealerPending   DealerStatus = "pending"
	DealerActive    DealerStatus = "active"
	DealerSuspended DealerStatus = "suspended"
)

// Roles carried in session tokens
const (
	RoleAdmin  = "admin"
	RoleDealer = "dealer"
)

// Dealer is a registered dealer account
type Dealer struct {
	Username        string       `bson:"username" json:"username"`
	PasswordHash    string       `bson:"passwordHash" json:"-"`
	Company         string       `bson:"company" json:"company"`
	Status          DealerStatus `bson:"status" json:"status"`
	ContactName     string       `bson:"contactName,omitempty" json:"contactName,omitempty"`
	Email           string       `bson:"email,omitempty" json:"email,omitempty"`
	Phone           string       `bson:"phone,omitempty" json:"phone,omitempty"`
	Address         string       `bson:"address,omitempty" json:"address,omitempty"`
	StatusChangedBy string       `bson:"statusChangedBy,omitempty" json:"statusChangedBy,omitempty"`
	CreatedAt       time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time    `bson:"updatedAt" json:"updatedAt"`
}

// RegisterDealerRequest is the body of POST /dealers
type RegisterDealerRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=64"`
	Password    string `json:"password" binding:"required,min=8,max=128"`
	Company     string `json:"company" binding:"required"`
	ContactName string `json:"contactName"`
	Email       string `json:"email" binding:"omitempty,email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
}

// TransitionRequest is the body of PUT /dealers
type TransitionRequest struct {
	Username string       `json:"username" binding:"required"`
	Status   DealerStatus `json:"status" binding:"required,oneof=pending active suspended"`
}

// LoginRequest is the body of POST /login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Profile is the authenticated identity returned at login
type Profile struct {
	Username string       `json:"username"`
	Role     string       `json:"role"`
	Company  string       `json:"company,omitempty"`
	Status   DealerStatus `json:"status,omitempty"`
}
