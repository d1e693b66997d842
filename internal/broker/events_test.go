package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"bookmarket-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	messages []kafka.Message
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func base(eventType string) models.BaseEvent {
	return models.BaseEvent{EventID: "evt-" + eventType, EventType: eventType, Timestamp: time.Now()}
}

func TestPublisherKeysByAggregate(t *testing.T) {
	w := &captureWriter{}
	pub := NewEventPublisher(NewProducerWithWriter(w))
	ctx := context.Background()

	require.NoError(t, pub.PublishOfferMade(ctx, &models.OfferMadeEvent{
		BaseEvent: base(models.EventTypeOfferMade), SubmissionID: 3, OfferedPrice: decimal.NewFromInt(25),
	}))
	require.NoError(t, pub.PublishOrderPlaced(ctx, &models.OrderPlacedEvent{
		BaseEvent: base(models.EventTypeOrderPlaced), OrderID: 9, BookIDs: []int64{1, 2},
	}))

	require.Len(t, w.messages, 2)
	assert.Equal(t, "submission-3", string(w.messages[0].Key))
	assert.Equal(t, "order-9", string(w.messages[1].Key))
	assert.Equal(t, "event_type", w.messages[1].Headers[0].Key)
	assert.Equal(t, models.EventTypeOrderPlaced, string(w.messages[1].Headers[0].Value))

	var decoded models.OrderPlacedEvent
	require.NoError(t, json.Unmarshal(w.messages[1].Value, &decoded))
	assert.Equal(t, []int64{1, 2}, decoded.BookIDs)
}

func TestEventHandlerDispatch(t *testing.T) {
	eh := NewEventHandler()
	var got []int64
	eh.OnOrderPlaced(func(_ context.Context, e *models.OrderPlacedEvent) error {
		got = append(got, e.BookIDs...)
		return nil
	})
	eh.OnBookRestocked(func(_ context.Context, e *models.BookRestockedEvent) error {
		got = append(got, e.BookID)
		return nil
	})

	send := func(event interface{}) error {
		value, err := json.Marshal(event)
		require.NoError(t, err)
		return eh.HandleMessage(context.Background(), kafka.Message{Value: value})
	}

	require.NoError(t, send(&models.OrderPlacedEvent{BaseEvent: base(models.EventTypeOrderPlaced), BookIDs: []int64{4, 5}}))
	require.NoError(t, send(&models.BookRestockedEvent{BaseEvent: base(models.EventTypeBookRestocked), BookID: 6}))
	// no handler registered
	require.NoError(t, send(&models.SubmissionCompletedEvent{BaseEvent: base(models.EventTypeSubmissionCompleted), BookID: 7}))
	require.NoError(t, send(&models.SubmissionEvent{BaseEvent: base(models.EventTypeSubmissionCreated)}))

	assert.Equal(t, []int64{4, 5, 6}, got)

	err := eh.HandleMessage(context.Background(), kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)
}
