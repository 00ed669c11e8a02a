// Package hass implements the Home Assistant websocket API client.
//
// One Session is one connection attempt:
//
//	server: {"type":"auth_required"}
//	client: {"type":"auth","access_token":"..."}
//	server: {"type":"auth_ok"}            (anything else aborts the session)
//	client: {"id":1,"type":"get_states"}
//	client: {"id":2,"type":"subscribe_events","event_type":"state_changed"}
//	client: {"id":3,"type":"call_service","domain":"light","service":"toggle","service_data":{...}}
//
// Request ids restart at 1 for every session.
package hass

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jwulff/deckhand/internal/domain"
)

// Message types.
const (
	TypeAuthRequired    = "auth_required"
	TypeAuth            = "auth"
	TypeAuthOK          = "auth_ok"
	TypeAuthInvalid     = "auth_invalid"
	TypeGetStates       = "get_states"
	TypeSubscribeEvents = "subscribe_events"
	TypeCallService     = "call_service"
	TypeResult          = "result"
	TypeEvent           = "event"
)

// EventStateChanged is the only event type the bridge subscribes to.
const EventStateChanged = "state_changed"

// AuthMessage is the client's reply to auth_required.
type AuthMessage struct {
	Type        string `json:"type"`
	AccessToken string `json:"access_token"`
}

// GetStatesMessage requests every current entity state.
type GetStatesMessage struct {
	ID   int    `json:"id"`
	Type string `json:"type"`
}

// SubscribeEventsMessage subscribes to future events of one type.
type SubscribeEventsMessage struct {
	ID        int    `json:"id"`
	Type      string `json:"type"`
	EventType string `json:"event_type"`
}

// CallServiceMessage invokes a service.
type CallServiceMessage struct {
	ID          int            `json:"id"`
	Type        string         `json:"type"`
	Domain      string         `json:"domain"`
	Service     string         `json:"service"`
	ServiceData map[string]any `json:"service_data"`
}

// Message is the envelope for every server-to-client frame. Result is kept
// raw because its shape depends on the request it answers.
type Message struct {
	ID      int             `json:"id,omitempty"`
	Type    string          `json:"type"`
	Success *bool           `json:"success,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ResultError    `json:"error,omitempty"`
	Event   *Event          `json:"event,omitempty"`
	Message string          `json:"message,omitempty"`
}

// ResultError describes a failed request.
type ResultError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Event is the payload of an event frame.
type Event struct {
	EventType string    `json:"event_type"`
	Data      EventData `json:"data"`
	TimeFired string    `json:"time_fired,omitempty"`
}

// EventData is the data of a state_changed event. NewState is nil when the
// entity was removed.
type EventData struct {
	EntityID string     `json:"entity_id"`
	NewState *StateData `json:"new_state"`
}

// StateData is an entity state as sent inside events.
type StateData struct {
	EntityID   string         `json:"entity_id,omitempty"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// CreateAuthMessage creates the auth reply.
func CreateAuthMessage(token string) AuthMessage {
	return AuthMessage{Type: TypeAuth, AccessToken: token}
}

// CreateGetStatesMessage creates a get_states request.
func CreateGetStatesMessage(id int) GetStatesMessage {
	return GetStatesMessage{ID: id, Type: TypeGetStates}
}

// CreateSubscribeMessage creates a state_changed subscription request.
func CreateSubscribeMessage(id int) SubscribeEventsMessage {
	return SubscribeEventsMessage{ID: id, Type: TypeSubscribeEvents, EventType: EventStateChanged}
}

// CreateCallServiceMessage creates a call_service request for cmd.
func CreateCallServiceMessage(id int, cmd domain.Command) CallServiceMessage {
	return CallServiceMessage{
		ID:          id,
		Type:        TypeCallService,
		Domain:      cmd.Domain,
		Service:     cmd.Service,
		ServiceData: cmd.ServiceData(),
	}
}

// StateEntries splits a successful get_states result into its raw
// elements so each can be decoded on its own. Results of other requests
// (null, objects) report false.
func (m *Message) StateEntries() ([]json.RawMessage, bool) {
	if m.Type != TypeResult || m.Success == nil || !*m.Success || len(m.Result) == 0 {
		return nil, false
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(m.Result, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

var errMissingEntityID = errors.New("invalid entity state: missing entity_id")

// DecodeEntityState decodes one element of a get_states result.
func DecodeEntityState(raw json.RawMessage) (domain.EntityState, error) {
	var state domain.EntityState
	if err := json.Unmarshal(raw, &state); err != nil {
		return domain.EntityState{}, fmt.Errorf("invalid entity state: %w", err)
	}
	if state.EntityID == "" {
		return domain.EntityState{}, errMissingEntityID
	}
	return state, nil
}

// StateChange extracts the new entity state from a state_changed event.
func (m *Message) StateChange() (domain.EntityState, bool) {
	if m.Type != TypeEvent || m.Event == nil || m.Event.EventType != EventStateChanged {
		return domain.EntityState{}, false
	}
	data := m.Event.Data
	if data.EntityID == "" || data.NewState == nil {
		return domain.EntityState{}, false
	}
	return domain.EntityState{
		EntityID:   data.EntityID,
		State:      data.NewState.State,
		Attributes: data.NewState.Attributes,
	}, true
}

// Failed reports whether m is an unsuccessful result.
func (m *Message) Failed() bool {
	return m.Type == TypeResult && m.Success != nil && !*m.Success
}
