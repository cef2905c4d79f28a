package collector

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"ipsguard/pkg/models"
)

// Name identifies a traffic collector.
type Name string

const (
	TCP  Name = "tcp"
	UDP  Name = "udp"
	ICMP Name = "icmp"
)

// ErrUnknownCollector is returned for names other than tcp, udp and icmp.
var ErrUnknownCollector = errors.New("unknown collector")

// ParseName normalizes a collector name.
func ParseName(raw string) (Name, error) {
	switch Name(strings.ToLower(strings.TrimSpace(raw))) {
	case TCP:
		return TCP, nil
	case UDP:
		return UDP, nil
	case ICMP:
		return ICMP, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCollector, raw)
	}
}

// Signaler receives the tracker's outbound signals.
type Signaler interface {
	SignalToggle(name Name)
	SignalAvoidBlocking(avoid bool)
}

// AvoidBlocking reports whether automatic blocking should be suppressed.
func AvoidBlocking(state models.CollectorState) bool {
	return state.TCP || state.UDP || state.ICMP
}

// Tracker holds collector enablement.
type Tracker struct {
	mu     sync.Mutex
	state  models.CollectorState
	signal Signaler
}

// NewTracker creates a tracker with every collector disabled.
func NewTracker(signal Signaler) *Tracker {
	return &Tracker{signal: signal}
}

// Toggle flips one collector and emits the recomputed avoid-blocking
// directive, whether or not it changed.
func (t *Tracker) Toggle(raw string) (bool, error) {
	name, err := ParseName(raw)
	if err != nil {
		return false, err
	}

	t.mu.Lock()
	switch name {
	case TCP:
		t.state.TCP = !t.state.TCP
	case UDP:
		t.state.UDP = !t.state.UDP
	case ICMP:
		t.state.ICMP = !t.state.ICMP
	}
	avoid := AvoidBlocking(t.state)
	t.mu.Unlock()

	if t.signal != nil {
		t.signal.SignalToggle(name)
		t.signal.SignalAvoidBlocking(avoid)
	}
	return avoid, nil
}

// Announce emits the current avoid-blocking directive without changing any
// flag, so enforcement learns the start state.
func (t *Tracker) Announce() bool {
	t.mu.Lock()
	avoid := AvoidBlocking(t.state)
	t.mu.Unlock()

	if t.signal != nil {
		t.signal.SignalAvoidBlocking(avoid)
	}
	return avoid
}

// State returns a copy of the current flags.
func (t *Tracker) State() models.CollectorState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
