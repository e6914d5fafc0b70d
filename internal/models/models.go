package models

import (
	"time"

	"github.com/lib/pq"
)

// Customer represents a registered customer account
type Customer struct {
	ID        int64     `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Password  string    `db:"password" json:"-"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Product represents a product in the merchant catalog.
// Images holds the reference photo URLs in catalog order; the
// matcher's tie-break depends on that order.
type Product struct {
	ID             int64          `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	Price          int64          `db:"price" json:"price"`
	Images         pq.StringArray `db:"images" json:"images"`
	DamagePolicyID int64          `db:"damage_policy_id" json:"damage_policy_id"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// Order represents a past purchase linking a customer to a product
type Order struct {
	ID                 int64     `db:"id" json:"id"`
	CustomerID         int64     `db:"customer_id" json:"customer_id"`
	ProductID          int64     `db:"product_id" json:"product_id"`
	OrderDate          time.Time `db:"order_date" json:"order_date"`
	DeliveryDate       time.Time `db:"delivery_date" json:"delivery_date"`
	ReturnEligibleDate time.Time `db:"return_eligible_date" json:"return_eligible_date"`
}

// DamagePolicy holds the required condition keywords for a product,
// stored as a comma-separated list
type DamagePolicy struct {
	ID         int64  `db:"id" json:"id"`
	Conditions string `db:"conditions" json:"conditions"`
}

// ReturnedOrder represents a recorded, approved return
type ReturnedOrder struct {
	ID           int64     `db:"id" json:"id"`
	OrderID      int64     `db:"order_id" json:"order_id"`
	CustomerID   int64     `db:"customer_id" json:"customer_id"`
	ProductID    int64     `db:"product_id" json:"product_id"`
	QtyReturned  int       `db:"qty_returned" json:"qty_returned"`
	RefundAmount int64     `db:"refund_amount" json:"refund_amount"`
	ReturnedAt   time.Time `db:"returned_at" json:"returned_at"`
}

// Return outcome statuses
const (
	ReturnStatusApproved = "APPROVED"
	ReturnStatusRejected = "REJECTED"
)

// Rejection reasons, used as metric labels
const (
	ReasonAuthFailed     = "auth_failed"
	ReasonNoImage        = "no_image"
	ReasonNoMatch        = "no_match"
	ReasonNotPurchased   = "not_purchased"
	ReasonWindowExpired  = "window_expired"
	ReasonNoPolicy       = "no_policy"
	ReasonNonCompliant   = "non_compliant"
	ReasonInfrastructure = "infrastructure"
)

// ProcessedEvent for idempotent event consumption
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
