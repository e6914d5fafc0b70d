package models

import "time"

// Event types
const (
	EventTypeReturnRecorded = "RETURN_RECORDED"
	EventTypeReturnRejected = "RETURN_REJECTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ReturnRecordedEvent published when a return is approved and persisted
type ReturnRecordedEvent struct {
	BaseEvent
	OrderID      int64   `json:"order_id"`
	CustomerID   int64   `json:"customer_id"`
	ProductID    int64   `json:"product_id"`
	ProductName  string  `json:"product_name"`
	RefundAmount int64   `json:"refund_amount"`
	MatchScore   float64 `json:"match_score"`
}

// ReturnRejectedEvent published when a return request is denied by a gate
type ReturnRejectedEvent struct {
	BaseEvent
	CustomerID int64  `json:"customer_id,omitempty"`
	ProductID  int64  `json:"product_id,omitempty"`
	Reason     string `json:"reason"`
	Message    string `json:"message"`
}
