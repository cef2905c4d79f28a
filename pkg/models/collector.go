package models

// CollectorState holds the enablement of the traffic collectors.
type CollectorState struct {
	TCP  bool `json:"tcp"`
	UDP  bool `json:"udp"`
	ICMP bool `json:"icmp"`
}
