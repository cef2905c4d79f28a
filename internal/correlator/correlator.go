package correlator

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ipsguard/internal/rules"
	"ipsguard/pkg/models"
)

// DefaultStaleAfter is how long an alert stays active without a refresh.
const DefaultStaleAfter = 10 * time.Second

// ErrMalformedAlert is returned for events missing an identity field.
var ErrMalformedAlert = errors.New("malformed alert")

// BlockChecker answers whether an attacker is currently blocked.
type BlockChecker interface {
	IsBlocked(addr string) bool
}

// Outcome describes what Apply did with an event.
type Outcome int

const (
	Created Outcome = iota
	Refreshed
	Dropped
	Suppressed
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Refreshed:
		return "refreshed"
	case Dropped:
		return "dropped"
	case Suppressed:
		return "suppressed"
	default:
		return "unknown"
	}
}

// Config controls alert aging.
type Config struct {
	StaleAfter time.Duration
	// Retention removes passive alerts unseen for longer than this. Zero keeps them forever.
	Retention time.Duration
}

// Correlator owns the alert table.
type Correlator struct {
	mu     sync.Mutex
	cfg    Config
	blocks BlockChecker
	engine rules.Engine
	byKey  map[models.AlertKey]*models.Alert
	order  []models.AlertKey
	newID  func() string
}

// New creates a correlator. blocks and engine may be nil.
func New(cfg Config, blocks BlockChecker, engine rules.Engine) *Correlator {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if cfg.Retention < 0 {
		cfg.Retention = 0
	}
	return &Correlator{
		cfg:    cfg,
		blocks: blocks,
		engine: engine,
		byKey:  make(map[models.AlertKey]*models.Alert),
		newID:  uuid.NewString,
	}
}

// Validate checks that an event carries the fields needed for correlation.
func Validate(event *models.AlertEvent) error {
	if event == nil {
		return fmt.Errorf("%w: nil event", ErrMalformedAlert)
	}
	var missing []string
	if strings.TrimSpace(event.AttackerIP) == "" {
		missing = append(missing, "attacker address")
	}
	if strings.TrimSpace(event.Method) == "" {
		missing = append(missing, "method")
	}
	if strings.TrimSpace(event.Protocol) == "" {
		missing = append(missing, "protocol")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMalformedAlert, strings.Join(missing, ", "))
	}
	return nil
}

// normalize returns a copy of event with identity fields trimmed, so keys and
// blocklist lookups agree with how addresses are stored.
func normalize(event *models.AlertEvent) *models.AlertEvent {
	ev := *event
	ev.AttackerIP = strings.TrimSpace(ev.AttackerIP)
	ev.TargetPort = strings.TrimSpace(ev.TargetPort)
	ev.Method = strings.TrimSpace(ev.Method)
	ev.Protocol = strings.TrimSpace(ev.Protocol)
	return &ev
}

// Apply correlates one event observed at now. Events for blocked attackers
// leave the table untouched, including any alert the attacker already has.
func (c *Correlator) Apply(event *models.AlertEvent, now time.Time) (Outcome, error) {
	if err := Validate(event); err != nil {
		return Dropped, err
	}
	event = normalize(event)
	if c.engine != nil && len(c.engine.Match(event)) > 0 {
		return Suppressed, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.blocks != nil && c.blocks.IsBlocked(event.AttackerIP) {
		return Dropped, nil
	}

	key := event.Key()
	if alert, ok := c.byKey[key]; ok {
		alert.Status = models.StatusActive
		alert.LastSeen = now
		return Refreshed, nil
	}

	c.byKey[key] = &models.Alert{
		ID:        c.newID(),
		AlertKey:  key,
		Message:   event.Message,
		Status:    models.StatusActive,
		StartTime: now,
		LastSeen:  now,
	}
	c.order = append(c.order, key)
	return Created, nil
}

// SweepStale demotes active alerts not refreshed within the stale window and
// returns how many changed.
func (c *Correlator) SweepStale(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	demoted := 0
	for _, key := range c.order {
		alert := c.byKey[key]
		if alert.Status == models.StatusActive && now.Sub(alert.LastSeen) > c.cfg.StaleAfter {
			alert.Status = models.StatusPassive
			demoted++
		}
	}
	return demoted
}

// EvictPassive drops passive alerts older than the retention window.
func (c *Correlator) EvictPassive(now time.Time) int {
	if c.cfg.Retention == 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.order[:0]
	evicted := 0
	for _, key := range c.order {
		alert := c.byKey[key]
		if alert.Status == models.StatusPassive && now.Sub(alert.LastSeen) > c.cfg.Retention {
			delete(c.byKey, key)
			evicted++
			continue
		}
		kept = append(kept, key)
	}
	c.order = kept
	return evicted
}

// Counts returns the number of active and passive alerts.
func (c *Correlator) Counts() (active, passive int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, alert := range c.byKey {
		if alert.Active() {
			active++
		} else {
			passive++
		}
	}
	return active, passive
}

// Snapshot returns copies of all alerts in order of first appearance.
func (c *Correlator) Snapshot() []models.Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Alert, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, *c.byKey[key])
	}
	return out
}
