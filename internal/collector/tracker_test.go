package collector

import (
	"errors"
	"testing"

	"ipsguard/pkg/models"
)

type recordingSignaler struct {
	toggles []Name
	avoid   []bool
}

func (r *recordingSignaler) SignalToggle(name Name) { r.toggles = append(r.toggles, name) }
func (r *recordingSignaler) SignalAvoidBlocking(avoid bool) { r.avoid = append(r.avoid, avoid) }

func TestAvoidBlocking(t *testing.T) {
	if AvoidBlocking(models.CollectorState{}) {
		t.Fatalf("expected false with all collectors off")
	}
	if !AvoidBlocking(models.CollectorState{ICMP: true}) {
		t.Fatalf("expected true with icmp on")
	}
}

func TestToggleEmitsDerivedSignal(t *testing.T) {
	sig := &recordingSignaler{}
	tr := NewTracker(sig)

	avoid, err := tr.Toggle("tcp")
	if err != nil || !avoid {
		t.Fatalf("expected avoid=true, got %v (%v)", avoid, err)
	}
	avoid, err = tr.Toggle("TCP")
	if err != nil || avoid {
		t.Fatalf("expected avoid=false, got %v (%v)", avoid, err)
	}

	if len(sig.avoid) != 2 || !sig.avoid[0] || sig.avoid[1] {
		t.Fatalf("unexpected avoid signals: %v", sig.avoid)
	}
	if len(sig.toggles) != 2 || sig.toggles[0] != TCP {
		t.Fatalf("unexpected toggle signals: %v", sig.toggles)
	}
}

func TestToggleEmitsEvenWhenUnchanged(t *testing.T) {
	sig := &recordingSignaler{}
	tr := NewTracker(sig)
	tr.Toggle("udp")
	tr.Toggle("icmp")

	if len(sig.avoid) != 2 || !sig.avoid[0] || !sig.avoid[1] {
		t.Fatalf("expected two true signals, got %v", sig.avoid)
	}
	state := tr.State()
	if state.TCP || !state.UDP || !state.ICMP {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestToggleRejectsUnknownCollector(t *testing.T) {
	sig := &recordingSignaler{}
	tr := NewTracker(sig)

	if _, err := tr.Toggle("arp"); !errors.Is(err, ErrUnknownCollector) {
		t.Fatalf("expected ErrUnknownCollector, got %v", err)
	}
	if len(sig.avoid) != 0 || len(sig.toggles) != 0 {
		t.Fatalf("rejected toggle must not signal")
	}
	if tr.State() != (models.CollectorState{}) {
		t.Fatalf("rejected toggle must not change state")
	}
}

func TestAnnounceEmitsCurrentDirective(t *testing.T) {
	sig := &recordingSignaler{}
	tr := NewTracker(sig)

	if tr.Announce() {
		t.Fatalf("expected false with all collectors off")
	}
	if _, err := tr.Toggle("udp"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !tr.Announce() {
		t.Fatalf("expected true with udp on")
	}

	want := []bool{false, true, true}
	if len(sig.avoid) != len(want) {
		t.Fatalf("expected %v, got %v", want, sig.avoid)
	}
	for i := range want {
		if sig.avoid[i] != want[i] {
			t.Fatalf("signal %d: expected %t, got %t", i, want[i], sig.avoid[i])
		}
	}
	if len(sig.toggles) != 1 {
		t.Fatalf("announce must not signal a toggle, got %v", sig.toggles)
	}
}
