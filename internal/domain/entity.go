package domain

import (
	"encoding/json"
	"strconv"
)

// EntityState is the last known state of one remote entity. It is replaced
// wholesale on every notification; attributes are never merged.
type EntityState struct {
	EntityID   string         `json:"entity_id"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// Float returns a numeric attribute. JSON numbers and numeric strings are
// accepted; missing, null or non-numeric values report false.
func (s EntityState) Float(attr string) (float64, bool) {
	raw, ok := s.Attributes[attr]
	if !ok || raw == nil {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Command is a request to invoke a remote service on an entity. Commands are
// immutable once enqueued.
type Command struct {
	Domain   string
	Service  string
	EntityID string
	Data     map[string]any
}

// NewCommand creates a command with no extra service data.
func NewCommand(domain, service, entityID string) Command {
	return Command{Domain: domain, Service: service, EntityID: entityID}
}

// ServiceData returns the service_data payload: the extra data plus entity_id.
func (c Command) ServiceData() map[string]any {
	data := make(map[string]any, len(c.Data)+1)
	for k, v := range c.Data {
		data[k] = v
	}
	if c.EntityID != "" {
		data["entity_id"] = c.EntityID
	}
	return data
}

// String returns "domain.service(entity_id)".
func (c Command) String() string {
	return c.Domain + "." + c.Service + "(" + c.EntityID + ")"
}

// Face is what a button looks like.
type Face struct {
	Text       string
	Icon       string
	Background RGB
}
