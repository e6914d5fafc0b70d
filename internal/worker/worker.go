package worker

import (
	"context"
	"log"

	"return-service/internal/broker"
	"return-service/internal/models"
	"return-service/internal/util"

	"go.uber.org/zap"
)

// AuditStore is what the audit worker needs from the database
type AuditStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// ReturnAuditWorker consumes return outcome events and writes them to the
// audit trail exactly once
type ReturnAuditWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        AuditStore
	logger       *zap.Logger
}

// NewReturnAuditWorker creates a new audit worker
func NewReturnAuditWorker(consumer *broker.Consumer, store AuditStore) *ReturnAuditWorker {
	w := &ReturnAuditWorker{
		consumer: consumer,
		store:    store,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnReturnRecorded(w.handleReturnRecorded)
	eventHandler.OnReturnRejected(w.handleReturnRejected)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *ReturnAuditWorker) Start(ctx context.Context) error {
	log.Println("Starting return audit worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ReturnAuditWorker) Stop() error {
	log.Println("Stopping return audit worker...")
	return w.consumer.Close()
}

func (w *ReturnAuditWorker) handleReturnRecorded(ctx context.Context, event *models.ReturnRecordedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		return nil
	}

	w.logger.Info("Return approved",
		zap.String("event_id", event.EventID),
		zap.Int64("order_id", event.OrderID),
		zap.Int64("customer_id", event.CustomerID),
		zap.String("product", event.ProductName),
		zap.Int64("refund_amount", event.RefundAmount),
		zap.Float64("match_score", event.MatchScore))

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

func (w *ReturnAuditWorker) handleReturnRejected(ctx context.Context, event *models.ReturnRejectedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		return nil
	}

	w.logger.Info("Return denied",
		zap.String("event_id", event.EventID),
		zap.Int64("customer_id", event.CustomerID),
		zap.String("reason", event.Reason))

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}
