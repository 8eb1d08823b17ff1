package domain

import (
	"context"
	"time"
)

// OutboxStatus is the delivery state of a stored request.
type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxPublished OutboxStatus = "published"
)

// OutboxRecord is a serialized multi-channel request waiting for, or done with, publishing.
type OutboxRecord struct {
	ID          string       `json:"id"`
	To          string       `json:"to"`
	Channels    []string     `json:"channels"`
	Tag         string       `json:"tag,omitempty"`
	Payload     []byte       `json:"-"`
	Status      OutboxStatus `json:"status"`
	Attempts    int          `json:"attempts"`
	LastError   string       `json:"lastError,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	PublishedAt *time.Time   `json:"publishedAt,omitempty"`
}

// OutboxStore persists serialized requests until they are published.
type OutboxStore interface {
	Save(ctx context.Context, rec OutboxRecord) error
	Get(ctx context.Context, id string) (*OutboxRecord, error)
	List(ctx context.Context, status OutboxStatus, limit int) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, id string, at time.Time) error
	RecordFailure(ctx context.Context, id string, reason string) error
	Close() error
}

// Publisher hands a stored request to a downstream broker.
type Publisher interface {
	Publish(ctx context.Context, rec OutboxRecord) error
	Close() error
}
