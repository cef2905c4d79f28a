package models

import "time"

// AlertStatus is the liveness of a tracked alert.
type AlertStatus string

const (
	StatusActive  AlertStatus = "active"
	StatusPassive AlertStatus = "passive"
)

// AlertKey identifies one attack signature. Two events with the same key
// refer to the same attack.
type AlertKey struct {
	AttackerIP string `json:"attacker_ip"`
	TargetPort string `json:"target_port"`
	Method     string `json:"method"`
	Protocol   string `json:"protocol"`
}

// AlertEvent is a single detector observation as published on the alert channel.
type AlertEvent struct {
	Method     string `json:"Method"`
	Protocol   string `json:"Protocol"`
	AttackerIP string `json:"Attacker_ip"`
	TargetPort string `json:"Target_port"`
	Message    string `json:"Message"`
}

// Key returns the correlation key of the event.
func (e *AlertEvent) Key() AlertKey {
	return AlertKey{
		AttackerIP: e.AttackerIP,
		TargetPort: e.TargetPort,
		Method:     e.Method,
		Protocol:   e.Protocol,
	}
}

// Alert is the correlated view of every event sharing one AlertKey.
type Alert struct {
	ID string `json:"id"`
	AlertKey
	Message   string      `json:"message"`
	Status    AlertStatus `json:"status"`
	StartTime time.Time   `json:"start_time"`
	LastSeen  time.Time   `json:"last_seen"`
}

// Active reports whether the alert has been refreshed within the stale window.
func (a *Alert) Active() bool {
	return a.Status == StatusActive
}

// RuleMatch describes a suppression rule that matched an alert event.
type RuleMatch struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Level string `json:"level,omitempty"`
}
