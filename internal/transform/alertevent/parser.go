package alertevent

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"ipsguard/internal/correlator"
	"ipsguard/pkg/models"
)

// Parse decodes a detector alert payload. Detectors publish the
// Attacker_ip/Target_port spelling; snake_case keys are accepted as well.
func Parse(data []byte) (*models.AlertEvent, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", correlator.ErrMalformedAlert, err)
	}

	event := &models.AlertEvent{
		Method:     getString(raw, "Method", "method"),
		Protocol:   getString(raw, "Protocol", "protocol"),
		AttackerIP: getString(raw, "Attacker_ip", "AttackerIP", "attacker_ip"),
		TargetPort: getString(raw, "Target_port", "TargetPort", "target_port"),
		Message:    getString(raw, "Message", "message"),
	}
	if err := correlator.Validate(event); err != nil {
		return nil, err
	}
	return event, nil
}

// ParseAddress decodes a block payload: a bare address or a JSON string.
func ParseAddress(data []byte) (string, error) {
	value := strings.TrimSpace(string(data))
	if strings.HasPrefix(value, `"`) {
		var s string
		if err := json.Unmarshal([]byte(value), &s); err != nil {
			return "", fmt.Errorf("decode address: %w", err)
		}
		value = strings.TrimSpace(s)
	}
	if value == "" {
		return "", fmt.Errorf("empty address payload")
	}
	return value, nil
}

func getString(root map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		v, ok := root[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			if s := strings.TrimSpace(val); s != "" {
				return s
			}
		case float64:
			if val == float64(int64(val)) {
				return strconv.FormatInt(int64(val), 10)
			}
			return strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(val)
		default:
			return fmt.Sprintf("%v", val)
		}
	}
	return ""
}
