package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anitha-22/myecommerce/pkg/logger"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []kafka.Message
	closed    bool
	drained   chan struct{}
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{msgs: msgs, drained: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	if len(r.msgs) == 0 {
		select {
		case <-r.drained:
		default:
			close(r.drained)
		}
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

type fakeDeadLetter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	causes []error
}

func (d *fakeDeadLetter) Publish(_ context.Context, msg kafka.Message, cause error, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.msgs = append(d.msgs, msg)
	d.causes = append(d.causes, cause)
	return nil
}

func eventMessage(t *testing.T, eventType, id string) kafka.Message {
	t.Helper()
	e, err := NewEvent(eventType, "product", id, "catalog-service", map[string]string{"id": id})
	require.NoError(t, err)
	data, err := e.Marshal()
	require.NoError(t, err)
	return kafka.Message{Topic: Topic("product", "updated"), Value: data}
}

// runUntilDrained starts c and stops it once every message is committed.
func runUntilDrained(t *testing.T, c *Consumer, r *fakeReader) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	select {
	case <-r.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("messages were not committed in time")
	}
	cancel()
	require.NoError(t, <-done)
}

func testConfig() ConsumerConfig {
	return ConsumerConfig{
		Topic:      Topic("product", "updated"),
		GroupID:    "search-service",
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	}
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	r := newFakeReader(eventMessage(t, "product.updated", "1"), eventMessage(t, "product.updated", "2"))

	var mu sync.Mutex
	var seen []string
	c := newConsumer(r, testConfig(), func(_ context.Context, e *Event) error {
		mu.Lock()
		seen = append(seen, e.AggregateID)
		mu.Unlock()
		return nil
	}, discardLogger())

	runUntilDrained(t, c, r)

	assert.Equal(t, []string{"1", "2"}, seen)
	assert.Len(t, r.committed, 2)
	assert.True(t, r.closed)
}

func TestConsumer_RetriesThenSucceeds(t *testing.T) {
	r := newFakeReader(eventMessage(t, "product.updated", "7"))

	calls := 0
	c := newConsumer(r, testConfig(), func(context.Context, *Event) error {
		calls++
		if calls < 3 {
			return errors.New("index unavailable")
		}
		return nil
	}, discardLogger())

	runUntilDrained(t, c, r)

	assert.Equal(t, 3, calls)
	assert.Len(t, r.committed, 1)
}

func TestConsumer_ExhaustedRetriesGoToDeadLetter(t *testing.T) {
	r := newFakeReader(eventMessage(t, "product.updated", "9"))
	dl := &fakeDeadLetter{}

	calls := 0
	c := newConsumer(r, testConfig(), func(context.Context, *Event) error {
		calls++
		return errors.New("boom")
	}, discardLogger(), WithDeadLetter(dl))

	runUntilDrained(t, c, r)

	assert.Equal(t, 3, calls)
	require.Len(t, dl.msgs, 1)
	assert.EqualError(t, dl.causes[0], "boom")
	assert.Len(t, r.committed, 1)
}

func TestConsumer_UndecodableMessageIsSkipped(t *testing.T) {
	r := newFakeReader(kafka.Message{Topic: "catalog.product.updated", Value: []byte("not json")})
	dl := &fakeDeadLetter{}

	called := false
	c := newConsumer(r, testConfig(), func(context.Context, *Event) error {
		called = true
		return nil
	}, discardLogger(), WithDeadLetter(dl))

	runUntilDrained(t, c, r)

	assert.False(t, called)
	assert.Len(t, dl.msgs, 1)
	assert.Len(t, r.committed, 1)
}

func TestConsumer_PropagatesCorrelationID(t *testing.T) {
	e, err := NewEvent("product.created", "product", "3", "catalog-service", nil)
	require.NoError(t, err)
	e.CorrelationID = "corr-42"
	data, err := e.Marshal()
	require.NoError(t, err)
	r := newFakeReader(kafka.Message{Value: data})

	var got string
	c := newConsumer(r, testConfig(), func(ctx context.Context, _ *Event) error {
		got = logger.CorrelationIDFromContext(ctx)
		return nil
	}, discardLogger())

	runUntilDrained(t, c, r)
	assert.Equal(t, "corr-42", got)
}

func TestConsumer_StopsOnCancel(t *testing.T) {
	r := newFakeReader()
	c := newConsumer(r, testConfig(), func(context.Context, *Event) error { return nil }, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, c.Start(ctx))
	assert.True(t, r.closed)
	assert.Equal(t, "catalog.product.updated", c.Topic())
}
