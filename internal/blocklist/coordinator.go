package blocklist

import (
	"errors"
	"strings"
	"sync"
)

// ErrEmptyAddress is returned when a block or unblock names no address.
var ErrEmptyAddress = errors.New("address is empty")

// Notifier forwards unblock intents to the enforcement side.
type Notifier interface {
	NotifyUnblock(addr string)
}

// Coordinator tracks the attacker addresses currently under enforcement.
type Coordinator struct {
	mu     sync.RWMutex
	set    map[string]struct{}
	order  []string
	notify Notifier
}

// NewCoordinator creates an empty blocklist.
func NewCoordinator(notify Notifier) *Coordinator {
	return &Coordinator{
		set:    make(map[string]struct{}),
		notify: notify,
	}
}

// OnBlock records addr as blocked. It reports whether the set changed.
func (c *Coordinator) OnBlock(addr string) (bool, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return false, ErrEmptyAddress
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.set[addr]; ok {
		return false, nil
	}
	c.set[addr] = struct{}{}
	c.order = append(c.order, addr)
	return true, nil
}

// Unblock removes addr and signals the removal. Unknown addresses are a no-op
// and produce no signal.
func (c *Coordinator) Unblock(addr string) (bool, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return false, ErrEmptyAddress
	}

	c.mu.Lock()
	if _, ok := c.set[addr]; !ok {
		c.mu.Unlock()
		return false, nil
	}
	delete(c.set, addr)
	for i, v := range c.order {
		if v == addr {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	if c.notify != nil {
		c.notify.NotifyUnblock(addr)
	}
	return true, nil
}

// IsBlocked reports whether addr is currently blocked.
func (c *Coordinator) IsBlocked(addr string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.set[addr]
	return ok
}

// Len returns the number of blocked addresses.
func (c *Coordinator) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Snapshot returns blocked addresses in the order they were first blocked.
func (c *Coordinator) Snapshot() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}
