package rules

import "ipsguard/pkg/models"

// Engine matches suppression rules against alert events.
type Engine interface {
	Match(event *models.AlertEvent) []models.RuleMatch
}

// NoopEngine matches nothing.
type NoopEngine struct{}

// Match returns no matches.
func (n *NoopEngine) Match(event *models.AlertEvent) []models.RuleMatch {
	return nil
}
