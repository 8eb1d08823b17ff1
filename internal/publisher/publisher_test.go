package publisher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"msgkit/internal/domain"
	"msgkit/internal/model"
	"msgkit/internal/outbox"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingPublisher records published ids and fails on the ids in failOn.
type recordingPublisher struct {
	published []string
	failOn    map[string]bool
}

func (p *recordingPublisher) Publish(_ context.Context, rec domain.OutboxRecord) error {
	if p.failOn[rec.ID] {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, rec.ID)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func seedStore(t *testing.T, n int) (*outbox.Store, []string) {
	t.Helper()
	store, err := outbox.Open(filepath.Join(t.TempDir(), "outbox.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	var ids []string
	for i := 0; i < n; i++ {
		req, err := model.SMS("+15551112222", "+15553334444", "app-1", model.NewSms("msg"))
		require.NoError(t, err)
		rec, err := store.Enqueue(context.Background(), req)
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}
	return store, ids
}

func TestRelay_DrainPublishesInOrder(t *testing.T) {
	store, ids := seedStore(t, 3)
	pub := &recordingPublisher{}
	relay := NewRelay(store, pub, 10, testLogger())

	var hooked []string
	relay.OnPublished(func(rec domain.OutboxRecord) {
		assert.Equal(t, domain.OutboxPublished, rec.Status)
		hooked = append(hooked, rec.ID)
	})

	n, err := relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, ids, pub.published)
	assert.Equal(t, ids, hooked)

	pending, err := store.ListPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRelay_StopsAtFirstFailure(t *testing.T) {
	store, ids := seedStore(t, 3)
	pub := &recordingPublisher{failOn: map[string]bool{ids[1]: true}}
	relay := NewRelay(store, pub, 10, testLogger())
	var failed []string
	relay.OnFailed(func(rec domain.OutboxRecord, err error) { failed = append(failed, rec.ID) })

	n, err := relay.Drain(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{ids[1]}, failed)
	assert.Equal(t, []string{ids[0]}, pub.published)

	pending, err := store.ListPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, ids[1], pending[0].ID)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, "broker unavailable", pending[0].LastError)
	assert.Equal(t, 0, pending[1].Attempts, "records after the failure are not attempted")
}

func TestRelay_RespectsBatch(t *testing.T) {
	store, ids := seedStore(t, 3)
	pub := &recordingPublisher{}
	relay := NewRelay(store, pub, 2, testLogger())

	n, err := relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, ids[:2], pub.published)

	n, err = relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRelay_CancelledContext(t *testing.T) {
	store, _ := seedStore(t, 2)
	pub := &recordingPublisher{}
	relay := NewRelay(store, pub, 10, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := relay.Drain(ctx)
	assert.Error(t, err)
	assert.Empty(t, pub.published)
}

func TestLogPublisher_WritesPayloadLine(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(testLogger(), &buf)
	err := p.Publish(context.Background(), domain.OutboxRecord{ID: "r1", Payload: []byte(`{"to":"+1"}`)})
	require.NoError(t, err)
	assert.Equal(t, "{\"to\":\"+1\"}\n", buf.String())
	assert.NoError(t, p.Close())
}

func TestMessage_Properties(t *testing.T) {
	created := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	rec := domain.OutboxRecord{ID: "id-1", Tag: "order-9", Payload: []byte(`{}`), CreatedAt: created}

	msg := message(rec)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp091.Persistent, msg.DeliveryMode)
	assert.Equal(t, "id-1", msg.MessageId)
	assert.Equal(t, "order-9", msg.CorrelationId)
	assert.Equal(t, MessageType, msg.Type)
	assert.Equal(t, created, msg.Timestamp)

	rec.Tag = ""
	assert.Equal(t, "id-1", message(rec).CorrelationId)
}

type fakeChannel struct {
	exchange, key string
	msgs          []amqp091.Publishing
	err           error
	closed        bool
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.exchange, c.key = exchange, key
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func TestAMQPPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := newAMQPPublisher(ch, AMQPConfig{Exchange: "messaging", RoutingKey: "multichannel.request", Timeout: time.Second}, testLogger())

	require.NoError(t, p.Publish(context.Background(), domain.OutboxRecord{ID: "a", Payload: []byte(`{}`)}))
	assert.Equal(t, "messaging", ch.exchange)
	assert.Equal(t, "multichannel.request", ch.key)
	require.Len(t, ch.msgs, 1)
	assert.Equal(t, "a", ch.msgs[0].MessageId)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestAMQPPublisher_Confirms(t *testing.T) {
	confirms := make(chan amqp091.Confirmation, 1)
	p := newAMQPPublisher(&fakeChannel{}, AMQPConfig{Exchange: "x", Timeout: time.Second}, testLogger())
	p.confirms = confirms

	confirms <- amqp091.Confirmation{DeliveryTag: 1, Ack: true}
	assert.NoError(t, p.Publish(context.Background(), domain.OutboxRecord{ID: "a"}))

	confirms <- amqp091.Confirmation{DeliveryTag: 2, Ack: false}
	assert.Error(t, p.Publish(context.Background(), domain.OutboxRecord{ID: "b"}))

	// no confirm arrives before the timeout
	p.timeout = 10 * time.Millisecond
	assert.ErrorIs(t, p.Publish(context.Background(), domain.OutboxRecord{ID: "c"}), context.DeadlineExceeded)
}

func TestAMQPPublisher_PublishError(t *testing.T) {
	p := newAMQPPublisher(&fakeChannel{err: amqp091.ErrClosed}, AMQPConfig{Exchange: "x"}, testLogger())
	err := p.Publish(context.Background(), domain.OutboxRecord{ID: "a"})
	assert.ErrorIs(t, err, amqp091.ErrClosed)
}
