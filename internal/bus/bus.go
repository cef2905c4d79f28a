package bus

import "context"

// Channel names shared with detectors, enforcement and the dashboard shell.
const (
	ChannelAlert         = "alert"
	ChannelBlock         = "block"
	ChannelUnblock       = "unblock"
	ChannelCollector     = "csv"
	ChannelAvoidBlocking = "avoidBlocking"
)

// Message is one payload received on a named channel.
type Message struct {
	Channel string
	Payload []byte
}

// Bus is a named-channel publish/subscribe transport.
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe delivers messages for the given channels until ctx is done,
	// then closes the returned channel.
	Subscribe(ctx context.Context, channels ...string) (<-chan Message, error)
	Close() error
}
