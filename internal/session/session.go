package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"ipsguard/internal/blocklist"
	"ipsguard/internal/collector"
	"ipsguard/internal/correlator"
	"ipsguard/internal/logger"
	"ipsguard/internal/metrics"
	"ipsguard/internal/rules"
	"ipsguard/pkg/models"
)

var (
	// ErrClosed is returned once Run has returned.
	ErrClosed = errors.New("session closed")
	// ErrRunning is returned when Run is called twice.
	ErrRunning = errors.New("session already running")
)

// Kind identifies an inbound message.
type Kind int

const (
	KindAlert Kind = iota
	KindBlock
	KindUnblock
	KindToggle
)

func (k Kind) String() string {
	switch k {
	case KindAlert:
		return "alert"
	case KindBlock:
		return "block"
	case KindUnblock:
		return "unblock"
	case KindToggle:
		return "toggle"
	default:
		return "unknown"
	}
}

// Message is one unit of work for the dispatch loop.
type Message struct {
	Kind  Kind
	Alert *models.AlertEvent
	// Value carries the address for block/unblock and the collector name for toggle.
	Value string

	reply chan error
}

// Config controls the dispatch loop and alert aging.
type Config struct {
	SweepInterval time.Duration
	StaleAfter    time.Duration
	Retention     time.Duration
	QueueSize     int
}

// Session owns the alert table, the blocklist and the collector flags.
// All mutations go through Run so each message is fully applied before the
// next one is looked at.
type Session struct {
	cfg        Config
	alerts     *correlator.Correlator
	blocked    *blocklist.Coordinator
	collectors *collector.Tracker

	inbox   chan Message
	done    chan struct{}
	started atomic.Bool
	now     func() time.Time
}

// New builds a session. engine and emitter may be nil.
func New(cfg Config, engine rules.Engine, emitter Emitter) *Session {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Second
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = correlator.DefaultStaleAfter
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	sig := &signals{emit: emitter}
	blocked := blocklist.NewCoordinator(sig)
	return &Session{
		cfg:        cfg,
		blocked:    blocked,
		alerts:     correlator.New(correlator.Config{StaleAfter: cfg.StaleAfter, Retention: cfg.Retention}, blocked, engine),
		collectors: collector.NewTracker(sig),
		inbox:      make(chan Message, cfg.QueueSize),
		done:       make(chan struct{}),
		now:        time.Now,
	}
}

// Run processes messages and sweeps stale alerts until ctx is done. It first
// announces the avoid-blocking directive. The sweep ticker is stopped before
// Run returns.
func (s *Session) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	logger.Infof("Session started: sweep=%s stale_after=%s retention=%s", s.cfg.SweepInterval, s.cfg.StaleAfter, s.cfg.Retention)
	s.collectors.Announce()
	for {
		select {
		case <-ctx.Done():
			logger.Infof("Session stopped")
			return ctx.Err()
		case msg := <-s.inbox:
			err := s.handle(msg)
			if msg.reply != nil {
				msg.reply <- err
			}
		case <-ticker.C:
			s.sweep(s.now())
		}
	}
}

func (s *Session) handle(msg Message) error {
	now := s.now()
	switch msg.Kind {
	case KindAlert:
		outcome, err := s.alerts.Apply(msg.Alert, now)
		if err != nil {
			metrics.RejectedMessagesTotal.WithLabelValues("alert").Inc()
			logger.Warnf("Rejected alert event: %v", err)
			return err
		}
		metrics.AlertEventsTotal.WithLabelValues(outcome.String()).Inc()
		logger.Debugf("Alert %s: attacker=%s port=%s method=%s protocol=%s", outcome, msg.Alert.AttackerIP, msg.Alert.TargetPort, msg.Alert.Method, msg.Alert.Protocol)
		s.observeAlerts()
		return nil

	case KindBlock:
		added, err := s.blocked.OnBlock(msg.Value)
		if err != nil {
			metrics.RejectedMessagesTotal.WithLabelValues("block").Inc()
			logger.Warnf("Rejected block event: %v", err)
			return err
		}
		if added {
			logger.Infof("Attacker blocked: %s", msg.Value)
		}
		metrics.BlockedAddresses.Set(float64(s.blocked.Len()))
		return nil

	case KindUnblock:
		removed, err := s.blocked.Unblock(msg.Value)
		if err != nil {
			metrics.RejectedMessagesTotal.WithLabelValues("unblock").Inc()
			logger.Warnf("Rejected unblock command: %v", err)
			return err
		}
		if removed {
			logger.Infof("Attacker unblocked: %s", msg.Value)
		}
		metrics.BlockedAddresses.Set(float64(s.blocked.Len()))
		return nil

	case KindToggle:
		avoid, err := s.collectors.Toggle(msg.Value)
		if err != nil {
			metrics.RejectedMessagesTotal.WithLabelValues("toggle").Inc()
			logger.Warnf("Rejected toggle command: %v", err)
			return err
		}
		logger.Infof("Collector %s toggled, avoid_blocking=%t", msg.Value, avoid)
		if avoid {
			metrics.AvoidBlocking.Set(1)
		} else {
			metrics.AvoidBlocking.Set(0)
		}
		return nil

	default:
		return fmt.Errorf("unknown message kind %d", msg.Kind)
	}
}

func (s *Session) sweep(now time.Time) {
	demoted := s.alerts.SweepStale(now)
	evicted := s.alerts.EvictPassive(now)
	if demoted == 0 && evicted == 0 {
		return
	}
	metrics.AlertsDemotedTotal.Add(float64(demoted))
	metrics.AlertsEvictedTotal.Add(float64(evicted))
	logger.Debugf("Sweep: demoted=%d evicted=%d", demoted, evicted)
	s.observeAlerts()
}

func (s *Session) observeAlerts() {
	active, passive := s.alerts.Counts()
	metrics.AlertsTracked.WithLabelValues(string(models.StatusActive)).Set(float64(active))
	metrics.AlertsTracked.WithLabelValues(string(models.StatusPassive)).Set(float64(passive))
}

// Submit queues msg for the dispatch loop without waiting for it to be applied.
func (s *Session) Submit(ctx context.Context, msg Message) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.inbox <- msg:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) call(ctx context.Context, msg Message) error {
	msg.reply = make(chan error, 1)
	if err := s.Submit(ctx, msg); err != nil {
		return err
	}
	select {
	case err := <-msg.reply:
		return err
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Alert queues a detector observation.
func (s *Session) Alert(ctx context.Context, event *models.AlertEvent) error {
	return s.Submit(ctx, Message{Kind: KindAlert, Alert: event})
}

// Block queues a block report.
func (s *Session) Block(ctx context.Context, addr string) error {
	return s.Submit(ctx, Message{Kind: KindBlock, Value: addr})
}

// Unblock lifts a block and waits until it has been applied.
func (s *Session) Unblock(ctx context.Context, addr string) error {
	return s.call(ctx, Message{Kind: KindUnblock, Value: addr})
}

// Toggle flips a collector and waits until it has been applied.
func (s *Session) Toggle(ctx context.Context, name string) error {
	return s.call(ctx, Message{Kind: KindToggle, Value: name})
}

// Alerts returns the alert table in order of first appearance.
func (s *Session) Alerts() []models.Alert {
	return s.alerts.Snapshot()
}

// Blocked returns blocked addresses in insertion order.
func (s *Session) Blocked() []string {
	return s.blocked.Snapshot()
}

// Collectors returns the collector flags.
func (s *Session) Collectors() models.CollectorState {
	return s.collectors.State()
}
