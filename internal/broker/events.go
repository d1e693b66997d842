package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"bookmarket-service/internal/models"
	"bookmarket-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher is what EventPublisher needs from a producer
type Publisher interface {
	PublishEvent(ctx context.Context, key, eventType string, event interface{}) error
}

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer Publisher
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer Publisher) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func submissionKey(id int64) string { return fmt.Sprintf("submission-%d", id) }

// PublishSubmissionEvent publishes a submission lifecycle event
func (ep *EventPublisher) PublishSubmissionEvent(ctx context.Context, event *models.SubmissionEvent) error {
	return ep.producer.PublishEvent(ctx, submissionKey(event.SubmissionID), event.EventType, event)
}

// PublishOfferMade publishes OfferMade event
func (ep *EventPublisher) PublishOfferMade(ctx context.Context, event *models.OfferMadeEvent) error {
	return ep.producer.PublishEvent(ctx, submissionKey(event.SubmissionID), event.EventType, event)
}

// PublishSubmissionCompleted publishes SubmissionCompleted event
func (ep *EventPublisher) PublishSubmissionCompleted(ctx context.Context, event *models.SubmissionCompletedEvent) error {
	return ep.producer.PublishEvent(ctx, submissionKey(event.SubmissionID), event.EventType, event)
}

// PublishOrderPlaced publishes OrderPlaced event
func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event.EventType, event)
}

// PublishBookRestocked publishes BookRestocked event
func (ep *EventPublisher) PublishBookRestocked(ctx context.Context, event *models.BookRestockedEvent) error {
	key := fmt.Sprintf("book-%d", event.BookID)
	return ep.producer.PublishEvent(ctx, key, event.EventType, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onSubmissionCompleted func(context.Context, *models.SubmissionCompletedEvent) error
	onOrderPlaced         func(context.Context, *models.OrderPlacedEvent) error
	onBookRestocked       func(context.Context, *models.BookRestockedEvent) error
	logger                *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnSubmissionCompleted registers a handler for SubmissionCompleted events
func (eh *EventHandler) OnSubmissionCompleted(handler func(context.Context, *models.SubmissionCompletedEvent) error) {
	eh.onSubmissionCompleted = handler
}

// OnOrderPlaced registers a handler for OrderPlaced events
func (eh *EventHandler) OnOrderPlaced(handler func(context.Context, *models.OrderPlacedEvent) error) {
	eh.onOrderPlaced = handler
}

// OnBookRestocked registers a handler for BookRestocked events
func (eh *EventHandler) OnBookRestocked(handler func(context.Context, *models.BookRestockedEvent) error) {
	eh.onBookRestocked = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeSubmissionCompleted:
		if eh.onSubmissionCompleted != nil {
			var event models.SubmissionCompletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal SubmissionCompleted event: %w", err)
			}
			return eh.onSubmissionCompleted(ctx, &event)
		}

	case models.EventTypeOrderPlaced:
		if eh.onOrderPlaced != nil {
			var event models.OrderPlacedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderPlaced event: %w", err)
			}
			return eh.onOrderPlaced(ctx, &event)
		}

	case models.EventTypeBookRestocked:
		if eh.onBookRestocked != nil {
			var event models.BookRestockedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal BookRestocked event: %w", err)
			}
			return eh.onBookRestocked(ctx, &event)
		}

	default:
		eh.logger.Debug("Ignoring event", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}
