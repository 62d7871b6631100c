package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"checkout-service/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishOrderEvent_KeysByOrderID(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "order-events", nil)

	evt := models.OrderEvent{
		EventType:   models.EventOrderConfirmed,
		OrderID:     "4b0c7f8e-3a51-4c55-9d43-3f7c9d0c2f11",
		UserID:      "42",
		Status:      models.OrderStatusConfirmed,
		TotalAmount: decimal.RequireFromString("20.00"),
	}
	require.NoError(t, p.PublishOrderEvent(context.Background(), evt))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, evt.OrderID, string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, models.EventOrderConfirmed, string(msg.Headers[0].Value))

	var decoded models.OrderEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, evt.UserID, decoded.UserID)
	assert.True(t, evt.TotalAmount.Equal(decoded.TotalAmount))
}

func TestPublishOrderEvent_WriterError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := NewProducerWithWriter(w, "order-events", nil)

	err := p.PublishOrderEvent(context.Background(), models.OrderEvent{OrderID: "o1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
