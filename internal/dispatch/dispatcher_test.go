package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"msgkit/internal/bus"
	"msgkit/internal/domain"
	"msgkit/internal/model"
	"msgkit/internal/outbox"
	"msgkit/internal/publisher"
	"msgkit/internal/wire"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	d      *Dispatcher
	store  *outbox.Store
	events *bus.EventBus
}

func newHarness(t *testing.T) harness {
	t.Helper()
	store, err := outbox.Open(filepath.Join(t.TempDir(), "outbox.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	contract, err := wire.NewContract()
	require.NoError(t, err)

	events := bus.NewEventBus(testLogger(), 0)
	return harness{d: New(contract, store, events, testLogger()), store: store, events: events}
}

func validRequest(t *testing.T) *model.Request {
	t.Helper()
	req, err := model.RBM("+15551112222", "+15553334444", "app-1", model.NewRbmText("Hello"))
	require.NoError(t, err)
	require.NoError(t, req.WithSMS("+15553334444", "app-1", model.NewSms("Hello")))
	return req
}

func TestRender_EmitsRendered(t *testing.T) {
	h := newHarness(t)

	out, err := h.d.Render(validRequest(t))
	require.NoError(t, err)
	assert.Contains(t, string(out), `"channel":"RBM"`)

	events := h.events.Replay(bus.EventRequestRendered, time0())
	require.Len(t, events, 1)
	assert.Equal(t, []string{"RBM", "SMS"}, events[0].Payload["channels"])
	assert.Equal(t, len(out), events[0].Payload["bytes"])
	assert.Equal(t, "dispatch", events[0].Source)
}

func TestRender_RejectsInvalid(t *testing.T) {
	h := newHarness(t)

	req := validRequest(t)
	req.To = ""
	_, err := h.d.Render(req)
	require.Error(t, err)

	events := h.events.Replay(bus.EventRequestRejected, time0())
	require.Len(t, events, 1)
	assert.Equal(t, string(domain.KindMissingRequiredField), events[0].Payload["kind"])
	assert.Empty(t, h.events.Replay(bus.EventRequestRendered, time0()))
}

func TestValidate(t *testing.T) {
	h := newHarness(t)
	assert.NoError(t, h.d.Validate(validRequest(t)))

	err := h.d.Validate(model.NewRequest("+15551112222"))
	assert.Equal(t, domain.KindEmptyCollection, domain.KindOf(err))
	assert.Len(t, h.events.Replay(bus.EventRequestRejected, time0()), 1)
}

func TestSubmit_EnqueuesAndEmits(t *testing.T) {
	h := newHarness(t)

	rec, err := h.d.Submit(context.Background(), validRequest(t))
	require.NoError(t, err)

	stored, err := h.store.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutboxPending, stored.Status)

	events := h.events.Replay(bus.EventOutboxEnqueued, time0())
	require.Len(t, events, 1)
	assert.Equal(t, rec.ID, events[0].Payload["id"])
}

func TestSubmit_InvalidNeverStored(t *testing.T) {
	h := newHarness(t)

	_, err := h.d.Submit(context.Background(), model.NewRequest("+15551112222"))
	require.Error(t, err)

	pending, err := h.store.ListPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSubmit_OutboxDisabled(t *testing.T) {
	d := New(nil, nil, nil, testLogger())
	_, err := d.Submit(context.Background(), validRequest(t))
	assert.ErrorIs(t, err, ErrOutboxDisabled)

	_, err = d.Render(validRequest(t))
	assert.NoError(t, err, "render works without contract or bus")
}

func TestObserve_OnlyValidationErrors(t *testing.T) {
	h := newHarness(t)
	h.d.Observe(errors.New("io failure"))
	h.d.Observe(domain.NewValidationError(domain.KindLengthExceeded, "RbmText", "too long", "text"))

	events := h.events.Replay(bus.EventRequestRejected, time0())
	require.Len(t, events, 1)
	assert.Equal(t, "length_exceeded", events[0].Payload["kind"])
}

type flakyPublisher struct{ fail bool }

func (p *flakyPublisher) Publish(context.Context, domain.OutboxRecord) error {
	if p.fail {
		return errors.New("down")
	}
	return nil
}

func (p *flakyPublisher) Close() error { return nil }

func TestWatch_RelayOutcomes(t *testing.T) {
	h := newHarness(t)
	_, err := h.d.Submit(context.Background(), validRequest(t))
	require.NoError(t, err)

	pub := &flakyPublisher{fail: true}
	relay := publisher.NewRelay(h.store, pub, 10, testLogger())
	h.d.Watch(relay)

	_, err = relay.Drain(context.Background())
	require.Error(t, err)
	assert.Len(t, h.events.Replay(bus.EventOutboxFailed, time0()), 1)

	pub.fail = false
	n, err := relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, h.events.Replay(bus.EventOutboxPublished, time0()), 1)
}

func time0() time.Time { return time.Time{} }
