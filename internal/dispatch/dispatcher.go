// Package dispatch validates, renders and enqueues requests, reporting each
// outcome on the event bus.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"msgkit/internal/bus"
	"msgkit/internal/domain"
	"msgkit/internal/model"
	"msgkit/internal/publisher"
	"msgkit/internal/wire"
)

// ErrOutboxDisabled is returned by Submit when no outbox is configured.
var ErrOutboxDisabled = errors.New("outbox is disabled")

const source = "dispatch"

// Enqueuer stores rendered requests.
type Enqueuer interface {
	Enqueue(ctx context.Context, req *model.Request) (*domain.OutboxRecord, error)
}

type Dispatcher struct {
	contract *wire.Contract
	outbox   Enqueuer
	events   *bus.EventBus
	logger   *slog.Logger
}

// New builds a dispatcher. contract and outbox may be nil; without a
// contract rendered output is not re-checked, without an outbox Submit fails.
func New(contract *wire.Contract, outbox Enqueuer, events *bus.EventBus, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{contract: contract, outbox: outbox, events: events, logger: logger}
}

// Validate checks req and reports a rejection on failure.
func (d *Dispatcher) Validate(req *model.Request) error {
	if err := req.Validate(); err != nil {
		d.reject(err)
		return err
	}
	return nil
}

// Render validates req and returns its wire JSON. The output is checked
// against the request schema when a contract is set.
func (d *Dispatcher) Render(req *model.Request) ([]byte, error) {
	out, err := wire.Encode(req)
	if err != nil {
		d.reject(err)
		return nil, err
	}
	if d.contract != nil {
		if err := d.contract.Check(out); err != nil {
			d.logger.Error("rendered request violates the wire schema", "err", err)
			return nil, fmt.Errorf("rendered request failed schema check: %w", err)
		}
	}

	channels := channelNames(req)
	d.emit(bus.EventRequestRendered, map[string]any{"channels": channels, "bytes": len(out)})
	d.logger.Debug("request rendered", "to", req.To, "channels", channels, "bytes", len(out))
	return out, nil
}

// Submit renders req and stores it in the outbox.
func (d *Dispatcher) Submit(ctx context.Context, req *model.Request) (*domain.OutboxRecord, error) {
	if d.outbox == nil {
		return nil, ErrOutboxDisabled
	}
	if _, err := d.Render(req); err != nil {
		return nil, err
	}
	rec, err := d.outbox.Enqueue(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("enqueue: %w", err)
	}
	d.emit(bus.EventOutboxEnqueued, map[string]any{"id": rec.ID, "channels": rec.Channels})
	d.logger.Info("request enqueued", "id", rec.ID, "to", rec.To, "channels", rec.Channels)
	return rec, nil
}

// Observe reports a decode or validation failure that happened before a
// request could be built, such as a definition that did not parse.
func (d *Dispatcher) Observe(err error) {
	if domain.IsValidation(err) {
		d.reject(err)
	}
}

// Watch reports the relay's publish outcomes on the event bus.
func (d *Dispatcher) Watch(relay *publisher.Relay) {
	relay.OnPublished(func(rec domain.OutboxRecord) {
		d.emit(bus.EventOutboxPublished, map[string]any{"id": rec.ID})
	})
	relay.OnFailed(func(rec domain.OutboxRecord, err error) {
		d.emit(bus.EventOutboxFailed, map[string]any{"id": rec.ID, "err": err.Error()})
	})
}

func (d *Dispatcher) reject(err error) {
	findings := domain.Flatten(err)
	payload := map[string]any{"kind": string(domain.KindOf(err)), "findings": len(findings)}
	if len(findings) > 0 {
		payload["path"] = findings[0].Path
		payload["message"] = findings[0].Message
	}
	d.emit(bus.EventRequestRejected, payload)
	d.logger.Debug("request rejected", "err", err)
}

func (d *Dispatcher) emit(eventType string, payload map[string]any) {
	if d.events == nil {
		return
	}
	d.events.Emit(bus.Event{Type: eventType, Source: source, Payload: payload})
}

func channelNames(req *model.Request) []string {
	var names []string
	for _, ch := range req.Channels() {
		names = append(names, string(ch))
	}
	return names
}
