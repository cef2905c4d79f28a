package blocklist

import (
	"errors"
	"testing"
)

type recordingNotifier struct {
	unblocked []string
}

func (r *recordingNotifier) NotifyUnblock(addr string) {
	r.unblocked = append(r.unblocked, addr)
}

func TestOnBlockIsIdempotent(t *testing.T) {
	c := NewCoordinator(nil)

	added, err := c.OnBlock("10.0.0.5")
	if err != nil || !added {
		t.Fatalf("expected first block to add, got added=%v err=%v", added, err)
	}
	added, err = c.OnBlock("10.0.0.5")
	if err != nil || added {
		t.Fatalf("expected second block to be a no-op, got added=%v err=%v", added, err)
	}

	snap := c.Snapshot()
	if len(snap) != 1 || snap[0] != "10.0.0.5" {
		t.Fatalf("unexpected blocklist: %v", snap)
	}
	if !c.IsBlocked("10.0.0.5") {
		t.Fatalf("expected address to be blocked")
	}
}

func TestUnblockRoundTrip(t *testing.T) {
	n := &recordingNotifier{}
	c := NewCoordinator(n)
	c.OnBlock("10.0.0.5")

	removed, err := c.Unblock("10.0.0.5")
	if err != nil || !removed {
		t.Fatalf("expected unblock to remove, got removed=%v err=%v", removed, err)
	}
	if c.IsBlocked("10.0.0.5") {
		t.Fatalf("expected address to be unblocked")
	}
	if len(n.unblocked) != 1 || n.unblocked[0] != "10.0.0.5" {
		t.Fatalf("expected one unblock signal, got %v", n.unblocked)
	}
}

func TestUnblockUnknownAddressIsNoop(t *testing.T) {
	n := &recordingNotifier{}
	c := NewCoordinator(n)

	removed, err := c.Unblock("10.0.0.9")
	if err != nil || removed {
		t.Fatalf("expected no-op, got removed=%v err=%v", removed, err)
	}
	if len(n.unblocked) != 0 {
		t.Fatalf("expected no unblock signal, got %v", n.unblocked)
	}
}

func TestEmptyAddressRejected(t *testing.T) {
	c := NewCoordinator(nil)
	if _, err := c.OnBlock("  "); !errors.Is(err, ErrEmptyAddress) {
		t.Fatalf("expected ErrEmptyAddress, got %v", err)
	}
	if _, err := c.Unblock(""); !errors.Is(err, ErrEmptyAddress) {
		t.Fatalf("expected ErrEmptyAddress, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty blocklist")
	}
}

func TestSnapshotKeepsInsertionOrder(t *testing.T) {
	c := NewCoordinator(nil)
	for _, addr := range []string{"10.0.0.3", "10.0.0.1", "10.0.0.2"} {
		c.OnBlock(addr)
	}
	c.Unblock("10.0.0.1")
	c.OnBlock("10.0.0.1")

	got := c.Snapshot()
	want := []string{"10.0.0.3", "10.0.0.2", "10.0.0.1"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
