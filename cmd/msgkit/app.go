package main

import (
	"fmt"
	"io"
	"time"

	"msgkit/internal/bus"
	"msgkit/internal/config"
	"msgkit/internal/dispatch"
	"msgkit/internal/domain"
	"msgkit/internal/metrics"
	"msgkit/internal/outbox"
	"msgkit/internal/publisher"
	"msgkit/internal/wire"
)

// app holds the components shared by the commands.
type app struct {
	cfg        *config.Config
	events     *bus.EventBus
	metrics    *metrics.RequestMetrics
	store      *outbox.Store // nil when the outbox is disabled
	dispatcher *dispatch.Dispatcher
}

func newApp(cfg *config.Config, withOutbox bool) (*app, error) {
	contract, err := wire.NewContract()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		events:  bus.NewEventBus(logger, 0),
		metrics: metrics.NewRequestMetrics(),
	}
	a.metrics.Subscribe(a.events)

	var enqueuer dispatch.Enqueuer
	if withOutbox && cfg.Outbox.Enabled {
		a.store, err = outbox.Open(cfg.Outbox.DBPath, logger)
		if err != nil {
			return nil, fmt.Errorf("outbox: %w", err)
		}
		enqueuer = a.store
	}
	a.dispatcher = dispatch.New(contract, enqueuer, a.events, logger)
	return a, nil
}

func (a *app) requireOutbox() error {
	if a.store == nil {
		return dispatch.ErrOutboxDisabled
	}
	return nil
}

// publisher dials the broker, or logs records (writing payloads to out)
// when no broker URL is configured.
func (a *app) publisher(out io.Writer) (domain.Publisher, error) {
	if a.cfg.Broker.URL == "" {
		logger.Warn("no broker configured, records are written to the log")
		return publisher.NewLogPublisher(logger, out), nil
	}
	return publisher.DialAMQP(publisher.AMQPConfig{
		URL:        a.cfg.Broker.URL,
		Exchange:   a.cfg.Broker.Exchange,
		RoutingKey: a.cfg.Broker.RoutingKey,
		Timeout:    time.Duration(a.cfg.Broker.PublishTimeoutSeconds) * time.Second,
	}, logger)
}

func (a *app) relay(pub domain.Publisher) *publisher.Relay {
	r := publisher.NewRelay(a.store, pub, a.cfg.Outbox.RelayBatch, logger)
	a.dispatcher.Watch(r)
	return r
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}
