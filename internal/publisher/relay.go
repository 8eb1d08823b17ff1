package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"msgkit/internal/domain"
)

// Relay moves pending outbox records to a publisher.
type Relay struct {
	store       domain.OutboxStore
	pub         domain.Publisher
	batch       int
	logger      *slog.Logger
	onPublished func(domain.OutboxRecord)
	onFailed    func(domain.OutboxRecord, error)
}

func NewRelay(store domain.OutboxStore, pub domain.Publisher, batch int, logger *slog.Logger) *Relay {
	if batch <= 0 {
		batch = 100
	}
	return &Relay{store: store, pub: pub, batch: batch, logger: logger}
}

// OnPublished registers fn to run after each record is marked published.
func (r *Relay) OnPublished(fn func(domain.OutboxRecord)) {
	r.onPublished = fn
}

// OnFailed registers fn to run when publishing a record fails.
func (r *Relay) OnFailed(fn func(domain.OutboxRecord, error)) {
	r.onFailed = fn
}

// Drain makes one pass over pending records in insertion order. It stops at
// the first publish failure; the failed record stays pending with the error
// recorded. It returns how many records were published.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	records, err := r.store.List(ctx, domain.OutboxPending, r.batch)
	if err != nil {
		return 0, fmt.Errorf("list pending: %w", err)
	}

	published := 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return published, err
		}
		if err := r.pub.Publish(ctx, rec); err != nil {
			if ferr := r.store.RecordFailure(ctx, rec.ID, err.Error()); ferr != nil {
				r.logger.Warn("cannot record publish failure", "id", rec.ID, "err", ferr)
			}
			if r.onFailed != nil {
				r.onFailed(rec, err)
			}
			return published, fmt.Errorf("relay stopped at %s: %w", rec.ID, err)
		}
		now := time.Now().UTC()
		if err := r.store.MarkPublished(ctx, rec.ID, now); err != nil {
			return published, fmt.Errorf("mark %s published: %w", rec.ID, err)
		}
		rec.Status = domain.OutboxPublished
		rec.PublishedAt = &now
		published++
		if r.onPublished != nil {
			r.onPublished(rec)
		}
	}

	if published > 0 {
		r.logger.Info("relay pass complete", "published", published)
	}
	return published, nil
}

// Run drains on every tick until ctx is cancelled.
func (r *Relay) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.Drain(ctx); err != nil && ctx.Err() == nil {
			r.logger.Warn("relay pass failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
