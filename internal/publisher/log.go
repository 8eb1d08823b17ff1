package publisher

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"msgkit/internal/domain"
)

// LogPublisher stands in for a broker: it logs each record and, when out is
// set, writes the payload as one JSON line.
type LogPublisher struct {
	logger *slog.Logger
	out    io.Writer
}

var _ domain.Publisher = (*LogPublisher)(nil)

func NewLogPublisher(logger *slog.Logger, out io.Writer) *LogPublisher {
	return &LogPublisher{logger: logger, out: out}
}

func (p *LogPublisher) Publish(_ context.Context, rec domain.OutboxRecord) error {
	p.logger.Info("request published to log",
		"id", rec.ID,
		"to", rec.To,
		"channels", rec.Channels,
		"bytes", len(rec.Payload),
	)
	if p.out != nil {
		if _, err := fmt.Fprintf(p.out, "%s\n", rec.Payload); err != nil {
			return fmt.Errorf("write payload: %w", err)
		}
	}
	return nil
}

func (p *LogPublisher) Close() error { return nil }
