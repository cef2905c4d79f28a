package main

import (
	"os"
	"path/filepath"
	"testing"

	"ipsguard/config"
	"ipsguard/internal/rules"
	"ipsguard/pkg/models"
)

const gatewayRule = `title: Ignore docker gateway
logsource:
  product: ipsguard
detection:
  selection:
    Attacker_ip: 172.30.0.1
  condition: selection
`

func TestLoadRulesFallsBackToNoop(t *testing.T) {
	for _, cfg := range []config.RulesConfig{
		{Enabled: false, Path: "rules/"},
		{Enabled: true, Path: "  "},
	} {
		engine, err := loadRules(cfg)
		if err != nil {
			t.Fatalf("%+v: unexpected error: %v", cfg, err)
		}
		if _, ok := engine.(*rules.NoopEngine); !ok {
			t.Fatalf("%+v: expected NoopEngine, got %T", cfg, engine)
		}
	}
}

func TestLoadRulesSigma(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "gateway.yml"), []byte(gatewayRule), 0o644); err != nil {
		t.Fatalf("write rule: %v", err)
	}

	engine, err := loadRules(config.RulesConfig{Enabled: true, Path: dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := engine.(*rules.SigmaEngine); !ok {
		t.Fatalf("expected SigmaEngine, got %T", engine)
	}
	if got := engine.Match(&models.AlertEvent{AttackerIP: "172.30.0.1", Method: "SYN", Protocol: "TCP"}); len(got) != 1 {
		t.Fatalf("expected gateway rule to match, got %+v", got)
	}

	if _, err := loadRules(config.RulesConfig{Enabled: true, Path: filepath.Join(dir, "missing")}); err == nil {
		t.Fatalf("expected error for missing rules path")
	}
}
