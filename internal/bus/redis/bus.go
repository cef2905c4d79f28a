package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"ipsguard/internal/bus"
	"ipsguard/internal/logger"
)

// Config configures the Redis pub/sub bus.
type Config struct {
	Addr        string
	Password    string
	DB          int
	Prefix      string
	DialTimeout time.Duration
}

// Bus maps named channels onto Redis pub/sub channels.
type Bus struct {
	client *redis.Client
	prefix string
}

var _ bus.Bus = (*Bus)(nil)

// NewBus connects to Redis and verifies the connection.
func NewBus(cfg Config) (*Bus, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis bus: %w", err)
	}

	return &Bus{client: client, prefix: strings.TrimSpace(cfg.Prefix)}, nil
}

func (b *Bus) channelName(name string) string {
	if b.prefix == "" {
		return name
	}
	return b.prefix + ":" + name
}

func (b *Bus) logicalName(channel string) string {
	if b.prefix == "" {
		return channel
	}
	return strings.TrimPrefix(channel, b.prefix+":")
}

// Publish sends payload on the named channel.
func (b *Bus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.client.Publish(ctx, b.channelName(channel), payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe listens on the named channels until ctx is done.
func (b *Bus) Subscribe(ctx context.Context, channels ...string) (<-chan bus.Message, error) {
	names := make([]string, 0, len(channels))
	for _, ch := range channels {
		names = append(names, b.channelName(ch))
	}

	pubsub := b.client.Subscribe(ctx, names...)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %v: %w", channels, err)
	}

	out := make(chan bus.Message, 64)
	go func() {
		defer close(out)
		defer pubsub.Close()

		in := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					logger.Warnf("Redis subscription closed: %v", channels)
					return
				}
				select {
				case out <- bus.Message{Channel: b.logicalName(msg.Channel), Payload: []byte(msg.Payload)}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close closes the Redis client.
func (b *Bus) Close() error {
	return b.client.Close()
}
