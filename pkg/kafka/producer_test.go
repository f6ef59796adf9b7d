package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anitha-22/myecommerce/pkg/logger"
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

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestProducer_PublishKeysByAggregate(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, discardLogger())

	e1, err := NewEvent("product.created", "product", "11", "catalogctl", nil)
	require.NoError(t, err)
	e2, err := NewEvent("product.created", "product", "12", "catalogctl", nil)
	require.NoError(t, err)

	ctx := logger.WithCorrelationID(context.Background(), "seed-run")
	require.NoError(t, p.Publish(ctx, Topic("product", "created"), e1, e2))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "catalog.product.created", w.msgs[0].Topic)
	assert.Equal(t, "11", string(w.msgs[0].Key))
	assert.Equal(t, "product.created", header(w.msgs[0], "event_type"))
	assert.Equal(t, "seed-run", header(w.msgs[1], "correlation_id"))

	decoded, err := UnmarshalEvent(w.msgs[1].Value)
	require.NoError(t, err)
	assert.Equal(t, "12", decoded.AggregateID)
	assert.Equal(t, "seed-run", decoded.CorrelationID)
}

func TestProducer_PublishNothing(t *testing.T) {
	w := &fakeWriter{err: errors.New("should not be called")}
	p := NewProducerWithWriter(w, discardLogger())
	assert.NoError(t, p.Publish(context.Background(), "t"))
}

func TestProducer_PublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := NewProducerWithWriter(w, discardLogger())

	e, err := NewEvent("product.deleted", "product", "5", "catalogctl", nil)
	require.NoError(t, err)

	err = p.Publish(context.Background(), Topic("product", "deleted"), e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog.product.deleted")
	assert.Contains(t, err.Error(), "leader not available")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	err := PingBrokers(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers configured")
}

func TestDLQProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	d := NewDLQProducerWithWriter(w, discardLogger())

	orig := kafka.Message{
		Topic:     "catalog.product.updated",
		Partition: 2,
		Offset:    41,
		Key:       []byte("8"),
		Value:     []byte(`{"event_type":"product.updated"}`),
		Headers:   []kafka.Header{{Key: "source", Value: []byte("catalog-service")}},
	}
	require.NoError(t, d.Publish(context.Background(), orig, errors.New("mapping conflict"), "search-service"))

	require.Len(t, w.msgs, 1)
	out := w.msgs[0]
	assert.Equal(t, "catalog.dlq.catalog.product.updated", out.Topic)
	assert.Equal(t, orig.Value, out.Value)
	assert.Equal(t, "catalog-service", header(out, "source"))
	assert.Equal(t, "2", header(out, "dlq.original_partition"))
	assert.Equal(t, "41", header(out, "dlq.original_offset"))
	assert.Equal(t, "search-service", header(out, "dlq.consumer_group"))
	assert.Equal(t, "mapping conflict", header(out, "dlq.error"))
}

func TestDLQProducer_WriteError(t *testing.T) {
	d := NewDLQProducerWithWriter(&fakeWriter{err: errors.New("timeout")}, discardLogger())
	err := d.Publish(context.Background(), kafka.Message{Topic: "x"}, nil, "g")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog.dlq.x")
}
