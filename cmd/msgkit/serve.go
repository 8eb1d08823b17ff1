package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"msgkit/internal/api"
	"msgkit/internal/domain"
)

// serve runs the relay loop and, when enabled, the HTTP API until ctx ends.
func serve(ctx context.Context, a *app) error {
	if !a.cfg.API.Enabled && a.store == nil {
		return errors.New("nothing to serve: both the API and the outbox are disabled")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	if a.store != nil {
		if counts, err := a.store.Counts(ctx); err == nil {
			a.metrics.Pending.Set(int64(counts[domain.OutboxPending]))
		}

		pub, err := a.publisher(nil)
		if err != nil {
			return fmt.Errorf("broker: %w", err)
		}
		defer pub.Close()

		relay := a.relay(pub)
		interval := time.Duration(a.cfg.Outbox.RelayIntervalSeconds) * time.Second
		wg.Add(1)
		go func() {
			defer wg.Done()
			relay.Run(ctx, interval)
		}()
		logger.Info("outbox relay started", "interval", interval, "batch", a.cfg.Outbox.RelayBatch)
	}

	if a.cfg.API.Enabled {
		var reader api.OutboxReader
		if a.store != nil {
			reader = a.store
		}
		opts := api.OptionsFromConfig(a.cfg, logger)
		opts.Events = a.events
		srv := api.NewServer(opts, a.dispatcher, reader, a.metrics)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Start(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	logger.Info("msgkit serving. Press Ctrl+C to stop.")

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		logger.Error("API server failed", "err", runErr)
	}
	logger.Info("shutting down...")
	cancel()

	// Graceful shutdown with timeout
	const shutdownTimeout = 10 * time.Second
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-time.After(shutdownTimeout):
		logger.Warn("shutdown timed out, forcing exit")
		if runErr == nil {
			runErr = errors.New("shutdown timed out")
		}
	}
	return runErr
}
