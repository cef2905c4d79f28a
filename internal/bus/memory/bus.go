package memory

import (
	"context"
	"errors"
	"sync"

	"ipsguard/internal/bus"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("memory bus closed")

type subscriber struct {
	channels map[string]struct{}
	out      chan bus.Message
	done     <-chan struct{}
}

// Bus is an in-process bus. Publish blocks until every matching subscriber
// has buffer space, has ended its subscription, or ctx is done.
type Bus struct {
	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	buffer int
	closed bool
}

// New creates a bus whose subscriptions buffer up to buffer messages.
func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{subs: make(map[*subscriber]struct{}), buffer: buffer}
}

var _ bus.Bus = (*Bus)(nil)

// Publish delivers payload to subscribers of channel.
func (b *Bus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	msg := bus.Message{Channel: channel, Payload: append([]byte(nil), payload...)}
	for sub := range b.subs {
		if _, ok := sub.channels[channel]; !ok {
			continue
		}
		select {
		case sub.out <- msg:
		case <-sub.done:
			// Subscription ended; remove() runs once the read lock is released.
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe registers a subscription that ends when ctx is done.
func (b *Bus) Subscribe(ctx context.Context, channels ...string) (<-chan bus.Message, error) {
	sub := &subscriber{
		channels: make(map[string]struct{}, len(channels)),
		out:      make(chan bus.Message, b.buffer),
		done:     ctx.Done(),
	}
	for _, ch := range channels {
		sub.channels[ch] = struct{}{}
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(sub)
	}()
	return sub.out, nil
}

func (b *Bus) remove(sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.out)
	}
}

// Close ends every subscription.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for sub := range b.subs {
		close(sub.out)
		delete(b.subs, sub)
	}
	return nil
}
