package pipeline

import (
	"ipsguard/internal/bus"
	"ipsguard/internal/logger"
	"ipsguard/internal/metrics"
)

// Outbox buffers outbound signals so the dispatch loop never waits on the bus.
type Outbox struct {
	ch chan bus.Message
}

// NewOutbox creates an outbox holding up to size pending signals.
func NewOutbox(size int) *Outbox {
	if size <= 0 {
		size = 128
	}
	return &Outbox{ch: make(chan bus.Message, size)}
}

// Emit queues a signal, dropping it when the outbox is full.
func (o *Outbox) Emit(channel, payload string) {
	select {
	case o.ch <- bus.Message{Channel: channel, Payload: []byte(payload)}:
	default:
		metrics.OutboxDroppedTotal.Inc()
		logger.Warnf("Outbox full, dropping %s signal: %s", channel, payload)
	}
}

// Pending returns the number of queued signals.
func (o *Outbox) Pending() int {
	return len(o.ch)
}
