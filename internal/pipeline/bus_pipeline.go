package pipeline

import (
	"context"
	"sync"
	"time"

	"ipsguard/internal/bus"
	"ipsguard/internal/logger"
	"ipsguard/internal/metrics"
	"ipsguard/internal/transform/alertevent"
	"ipsguard/pkg/models"
)

const publishAttempts = 3

// Sink receives decoded inbound events.
type Sink interface {
	Alert(ctx context.Context, event *models.AlertEvent) error
	Block(ctx context.Context, addr string) error
}

// BusPipeline moves detector events from the bus into the session and
// publishes the session's outbound signals.
type BusPipeline struct {
	bus          bus.Bus
	sink         Sink
	outbox       *Outbox
	retryBackoff time.Duration
}

// NewBusPipeline creates a pipeline over b.
func NewBusPipeline(b bus.Bus, sink Sink, outbox *Outbox) *BusPipeline {
	return &BusPipeline{
		bus:          b,
		sink:         sink,
		outbox:       outbox,
		retryBackoff: 500 * time.Millisecond,
	}
}

// Run starts the pipeline loops and blocks until ctx is done.
func (p *BusPipeline) Run(ctx context.Context) error {
	inbound, err := p.bus.Subscribe(ctx, bus.ChannelAlert, bus.ChannelBlock)
	if err != nil {
		return err
	}
	logger.Infof("Bus pipeline started")

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.readLoop(ctx, inbound)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.writeLoop(ctx)
	}()

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

// Close releases the bus.
func (p *BusPipeline) Close() error {
	if p.bus != nil {
		return p.bus.Close()
	}
	return nil
}

// A single reader keeps alert and block events in bus order.
func (p *BusPipeline) readLoop(ctx context.Context, in <-chan bus.Message) {
	for msg := range in {
		var err error
		switch msg.Channel {
		case bus.ChannelAlert:
			event, perr := alertevent.Parse(msg.Payload)
			if perr != nil {
				metrics.RejectedMessagesTotal.WithLabelValues(msg.Channel).Inc()
				logger.Warnf("Failed to parse alert event: %v", perr)
				continue
			}
			err = p.sink.Alert(ctx, event)
		case bus.ChannelBlock:
			addr, perr := alertevent.ParseAddress(msg.Payload)
			if perr != nil {
				metrics.RejectedMessagesTotal.WithLabelValues(msg.Channel).Inc()
				logger.Warnf("Failed to parse block event: %v", perr)
				continue
			}
			err = p.sink.Block(ctx, addr)
		default:
			logger.Debugf("Ignoring message on channel %s", msg.Channel)
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Errorf("Failed to submit %s event: %v", msg.Channel, err)
		}
	}
}

func (p *BusPipeline) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return
		case msg := <-p.outbox.ch:
			p.publish(ctx, msg)
		}
	}
}

// drain makes a best-effort attempt to deliver signals queued before shutdown.
func (p *BusPipeline) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for {
		select {
		case msg := <-p.outbox.ch:
			p.publish(ctx, msg)
		default:
			return
		}
	}
}

func (p *BusPipeline) publish(ctx context.Context, msg bus.Message) {
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		err := p.bus.Publish(ctx, msg.Channel, msg.Payload)
		if err == nil {
			metrics.PublishedTotal.WithLabelValues(msg.Channel).Inc()
			return
		}
		logger.Errorf("Failed to publish %s (attempt %d/%d): %v", msg.Channel, attempt, publishAttempts, err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.retryBackoff):
		}
	}
	logger.Errorf("Giving up on %s signal: %s", msg.Channel, msg.Payload)
}
