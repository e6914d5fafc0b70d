package store

import (
	"context"
	"database/sql"

	"return-service/internal/models"
)

// GetOrderByCustomerAndProduct retrieves the order linking a customer to a
// product. Returns nil without error when the customer never purchased it.
func (s *Store) GetOrderByCustomerAndProduct(ctx context.Context, customerID, productID int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE customer_id = $1 AND product_id = $2 ORDER BY order_date DESC LIMIT 1",
		customerID, productID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateReturnedOrder records an approved return
func (s *Store) CreateReturnedOrder(ctx context.Context, ret *models.ReturnedOrder) error {
	query := `
		INSERT INTO returned_orders (order_id, customer_id, product_id, qty_returned, refund_amount, returned_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	return s.db.GetContext(ctx, &ret.ID, query,
		ret.OrderID, ret.CustomerID, ret.ProductID, ret.QtyReturned, ret.RefundAmount, ret.ReturnedAt)
}

// GetReturnedOrdersByOrderID retrieves recorded returns for an order
func (s *Store) GetReturnedOrdersByOrderID(ctx context.Context, orderID int64) ([]models.ReturnedOrder, error) {
	var returns []models.ReturnedOrder
	err := s.db.SelectContext(ctx, &returns,
		"SELECT * FROM returned_orders WHERE order_id = $1 ORDER BY returned_at DESC", orderID)
	return returns, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
