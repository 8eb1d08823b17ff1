// Package publisher hands outbox records to a broker.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"msgkit/internal/domain"

	"github.com/rabbitmq/amqp091-go"
)

// MessageType is set as the AMQP type of every published request.
const MessageType = "multichannel.request"

type AMQPConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
	Timeout    time.Duration
}

// amqpChannel is the part of *amqp091.Channel the publisher uses.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// AMQPPublisher publishes records to a topic exchange with publisher confirms.
type AMQPPublisher struct {
	mu         sync.Mutex
	conn       *amqp091.Connection
	ch         amqpChannel
	confirms   <-chan amqp091.Confirmation
	exchange   string
	routingKey string
	timeout    time.Duration
	logger     *slog.Logger
}

var _ domain.Publisher = (*AMQPPublisher)(nil)

// DialAMQP connects, declares the exchange and puts the channel in confirm mode.
func DialAMQP(cfg AMQPConfig, logger *slog.Logger) (*AMQPPublisher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	conn, err := amqp091.DialConfig(cfg.URL, amqp091.Config{Dial: amqp091.DefaultDial(cfg.Timeout)})
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}

	p := newAMQPPublisher(ch, cfg, logger)
	p.conn = conn
	p.confirms = ch.NotifyPublish(make(chan amqp091.Confirmation, 1))
	logger.Info("broker connected", "exchange", cfg.Exchange, "routing_key", cfg.RoutingKey)
	return p, nil
}

func newAMQPPublisher(ch amqpChannel, cfg AMQPConfig, logger *slog.Logger) *AMQPPublisher {
	return &AMQPPublisher{
		ch:         ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		timeout:    cfg.Timeout,
		logger:     logger,
	}
}

// Publish sends the record's wire payload and waits for the broker to confirm it.
func (p *AMQPPublisher) Publish(ctx context.Context, rec domain.OutboxRecord) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, message(rec)); err != nil {
		return fmt.Errorf("publish %s: %w", rec.ID, err)
	}

	if p.confirms != nil {
		select {
		case c, ok := <-p.confirms:
			if !ok {
				return errors.New("broker channel closed before confirm")
			}
			if !c.Ack {
				return fmt.Errorf("broker rejected %s", rec.ID)
			}
		case <-ctx.Done():
			return fmt.Errorf("confirm %s: %w", rec.ID, ctx.Err())
		}
	}

	p.logger.Info("published", slog.String("id", rec.ID), slog.String("exchange", p.exchange), slog.String("key", p.routingKey))
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); cerr != nil && !errors.Is(cerr, amqp091.ErrClosed) {
			err = errors.Join(err, cerr)
		}
	}
	return err
}

// message builds the AMQP publishing for a record. The tag doubles as the
// correlation id so replies can be matched to the caller's reference.
func message(rec domain.OutboxRecord) amqp091.Publishing {
	cid := rec.Tag
	if cid == "" {
		cid = rec.ID
	}
	return amqp091.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp091.Persistent,
		MessageId:     rec.ID,
		CorrelationId: cid,
		Type:          MessageType,
		Timestamp:     rec.CreatedAt,
		Body:          rec.Payload,
	}
}
