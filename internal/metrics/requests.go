package metrics

import (
	"fmt"

	"msgkit/internal/bus"
)

const namespace = "msgkit"

// RequestMetrics holds the request and outbox instruments.
type RequestMetrics struct {
	c            *MetricsCollector
	Rendered     *Counter
	Enqueued     *Counter
	Published    *Counter
	Failed       *Counter
	Pending      *Gauge
	PayloadBytes *Histogram
}

// NewRequestMetrics registers the request instruments on a fresh collector.
func NewRequestMetrics() *RequestMetrics {
	c := NewMetricsCollector(namespace)
	return &RequestMetrics{
		c:         c,
		Rendered:  c.Counter(namespace+"_requests_rendered_total", "Requests validated and serialized", ""),
		Enqueued:  c.Counter(namespace+"_outbox_enqueued_total", "Requests stored in the outbox", ""),
		Published: c.Counter(namespace+"_outbox_published_total", "Outbox records handed to the broker", ""),
		Failed:    c.Counter(namespace+"_outbox_publish_failures_total", "Failed publish attempts", ""),
		Pending:   c.Gauge(namespace+"_outbox_pending", "Outbox records waiting for the relay", ""),
		PayloadBytes: c.Histogram(namespace+"_payload_bytes", "Size of serialized requests in bytes", "",
			[]float64{256, 512, 1024, 4096, 16384, 65536}),
	}
}

// Rejected returns the rejection counter for one error kind.
func (m *RequestMetrics) Rejected(kind string) *Counter {
	return m.c.Counter(namespace+"_requests_rejected_total", "Requests that failed validation, by error kind",
		fmt.Sprintf("kind=%q", kind))
}

// ChannelItems returns the counter of rendered list items for one channel.
func (m *RequestMetrics) ChannelItems(channel string) *Counter {
	return m.c.Counter(namespace+"_channel_items_total", "Rendered channel list items, by channel",
		fmt.Sprintf("channel=%q", channel))
}

func (m *RequestMetrics) Collector() *MetricsCollector { return m.c }

// Subscribe updates the instruments from request and outbox events.
func (m *RequestMetrics) Subscribe(eb *bus.EventBus) {
	eb.On(bus.EventRequestRendered, func(e bus.Event) {
		m.Rendered.Inc()
		if n, ok := e.Payload["bytes"].(int); ok {
			m.PayloadBytes.Observe(float64(n))
		}
		if channels, ok := e.Payload["channels"].([]string); ok {
			for _, ch := range channels {
				m.ChannelItems(ch).Inc()
			}
		}
	})
	eb.On(bus.EventRequestRejected, func(e bus.Event) {
		kind, _ := e.Payload["kind"].(string)
		if kind == "" {
			kind = "unknown"
		}
		m.Rejected(kind).Inc()
	})
	eb.On(bus.EventOutboxEnqueued, func(bus.Event) {
		m.Enqueued.Inc()
		m.Pending.Inc()
	})
	eb.On(bus.EventOutboxPublished, func(bus.Event) {
		m.Published.Inc()
		m.Pending.Dec()
	})
	eb.On(bus.EventOutboxFailed, func(bus.Event) {
		m.Failed.Inc()
	})
}
