package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"return-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishReturnRecorded publishes a ReturnRecorded event, keyed by order so
// all events for one order stay in partition order
func (ep *EventPublisher) PublishReturnRecorded(ctx context.Context, event *models.ReturnRecordedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishReturnRejected publishes a ReturnRejected event
func (ep *EventPublisher) PublishReturnRejected(ctx context.Context, event *models.ReturnRejectedEvent) error {
	key := fmt.Sprintf("customer-%d", event.CustomerID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes incoming events to registered handlers
type EventHandler struct {
	onReturnRecorded func(context.Context, *models.ReturnRecordedEvent) error
	onReturnRejected func(context.Context, *models.ReturnRejectedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnReturnRecorded registers a handler for ReturnRecorded events
func (eh *EventHandler) OnReturnRecorded(handler func(context.Context, *models.ReturnRecordedEvent) error) {
	eh.onReturnRecorded = handler
}

// OnReturnRejected registers a handler for ReturnRejected events
func (eh *EventHandler) OnReturnRejected(handler func(context.Context, *models.ReturnRejectedEvent) error) {
	eh.onReturnRejected = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeReturnRecorded:
		if eh.onReturnRecorded != nil {
			var event models.ReturnRecordedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ReturnRecorded event: %w", err)
			}
			return eh.onReturnRecorded(ctx, &event)
		}

	case models.EventTypeReturnRejected:
		if eh.onReturnRejected != nil {
			var event models.ReturnRejectedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ReturnRejected event: %w", err)
			}
			return eh.onReturnRejected(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
