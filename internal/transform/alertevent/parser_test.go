package alertevent

import (
	"errors"
	"testing"

	"ipsguard/internal/correlator"
)

func TestParseDetectorPayload(t *testing.T) {
	payload := []byte(`{"Method":"Rule Detection","Protocol":"TCP","Attacker_ip":"10.0.0.5","Target_port":"80","Message":"SYN flood"}`)

	ev, err := Parse(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.AttackerIP != "10.0.0.5" || ev.TargetPort != "80" || ev.Method != "Rule Detection" || ev.Protocol != "TCP" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.Message != "SYN flood" {
		t.Fatalf("unexpected message: %q", ev.Message)
	}
}

func TestParseNumericPortAndSnakeCase(t *testing.T) {
	ev, err := Parse([]byte(`{"method":"AI","protocol":"UDP","attacker_ip":"10.0.0.7","target_port":53}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.TargetPort != "53" || ev.AttackerIP != "10.0.0.7" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestParseSkipsEmptyAlias(t *testing.T) {
	ev, err := Parse([]byte(`{"Method":"SYN","Protocol":"TCP","Attacker_ip":"","attacker_ip":"10.0.0.8","Target_port":"  ","target_port":"22"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.AttackerIP != "10.0.0.8" || ev.TargetPort != "22" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestParseRejectsMissingIdentity(t *testing.T) {
	cases := [][]byte{
		[]byte(`{"Method":"AI","Protocol":"TCP","Target_port":"80"}`),
		[]byte(`{"Attacker_ip":"10.0.0.5"}`),
		[]byte(`not json`),
	}
	for i, payload := range cases {
		if _, err := Parse(payload); !errors.Is(err, correlator.ErrMalformedAlert) {
			t.Fatalf("case %d: expected ErrMalformedAlert, got %v", i, err)
		}
	}
}

func TestParseAddress(t *testing.T) {
	for _, payload := range []string{"10.0.0.5", " 10.0.0.5\n", `"10.0.0.5"`} {
		addr, err := ParseAddress([]byte(payload))
		if err != nil {
			t.Fatalf("payload %q: unexpected error: %v", payload, err)
		}
		if addr != "10.0.0.5" {
			t.Fatalf("payload %q: expected 10.0.0.5, got %q", payload, addr)
		}
	}
	if _, err := ParseAddress([]byte("  ")); err == nil {
		t.Fatalf("expected error for empty payload")
	}
}
