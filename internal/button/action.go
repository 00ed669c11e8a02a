package button

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jwulff/deckhand/internal/domain"
)

// Kind selects what a button does when pressed.
type Kind int

const (
	// None only gives press feedback.
	None Kind = iota
	// Shell runs a local command.
	Shell
	// Service calls a Home Assistant service.
	Service
	// Watch shows a watched entity and toggles it.
	Watch
	// Adjust steps a numeric attribute up or down.
	Adjust
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Shell:
		return "shell"
	case Service:
		return "service"
	case Watch:
		return "watch"
	case Adjust:
		return "adjust"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Action is a tagged union: Kind says which of the other fields apply.
type Action struct {
	Kind    Kind
	Command string      // Shell
	Call    ServiceCall // Service
	Watch   WatchSpec   // Watch
	Adjust  AdjustSpec  // Adjust
}

// ServiceCall is a fixed service invocation.
type ServiceCall struct {
	Domain   string
	Service  string
	EntityID string
	Data     map[string]any
}

// Command returns the call as a queued command.
func (c ServiceCall) Command() domain.Command {
	return domain.Command{Domain: c.Domain, Service: c.Service, EntityID: c.EntityID, Data: c.Data}
}

// WatchSpec describes a watched-entity button.
//
// EntityID is the entity that is toggled and whose state picks the
// background color. The optional reading is shown under the label, taken
// from ReadingAttribute of ReadingEntity (or its state when the attribute
// is empty).
type WatchSpec struct {
	EntityID string
	OnState  string
	OnColor  domain.RGB
	OffColor domain.RGB

	ReadingEntity    string
	ReadingAttribute string
	Unit             string

	// Toggle is the service called on press. When Field is set the service
	// gets Field set to OffValue while on and OnValue otherwise.
	Toggle   ServiceCall
	Field    string
	OnValue  string
	OffValue string
}

// HasReading reports whether a reading line is shown.
func (w WatchSpec) HasReading() bool {
	return w.ReadingEntity != "" || w.ReadingAttribute != ""
}

func (w WatchSpec) readingEntity() string {
	if w.ReadingEntity != "" {
		return w.ReadingEntity
	}
	return w.EntityID
}

// Entities returns the ids the button depends on.
func (w WatchSpec) Entities() []string {
	ids := []string{w.EntityID}
	if w.HasReading() && w.readingEntity() != w.EntityID {
		ids = append(ids, w.readingEntity())
	}
	return ids
}

// IsOn reports whether state counts as on.
func (w WatchSpec) IsOn(state domain.EntityState) bool {
	if w.OnState != "" {
		return state.State == w.OnState
	}
	return state.State == "on"
}

// ToggleCommand returns the command that flips the entity given its
// current state.
func (w WatchSpec) ToggleCommand(current domain.EntityState, known bool) domain.Command {
	call := w.Toggle
	if call.EntityID == "" {
		call.EntityID = w.EntityID
	}
	if call.Domain == "" {
		call.Domain = entityDomain(w.EntityID)
	}
	if call.Service == "" {
		call.Service = "toggle"
	}
	if w.Field == "" {
		return call.Command()
	}

	value := w.OnValue
	if known && w.IsOn(current) {
		value = w.OffValue
	}
	data := make(map[string]any, len(call.Data)+1)
	for k, v := range call.Data {
		data[k] = v
	}
	data[w.Field] = value
	call.Data = data
	return call.Command()
}

// FormatReading renders the reading line, "--" when unknown.
func (w WatchSpec) FormatReading(state domain.EntityState, known bool) string {
	if known {
		var (
			v  float64
			ok bool
		)
		if w.ReadingAttribute != "" {
			v, ok = state.Float(w.ReadingAttribute)
		} else {
			f, err := strconv.ParseFloat(state.State, 64)
			v, ok = f, err == nil
		}
		if ok {
			return fmt.Sprintf("%.1f%s", v, w.Unit)
		}
	}
	return "--" + w.Unit
}

// AdjustSpec steps a numeric attribute, e.g. a media player's volume.
type AdjustSpec struct {
	EntityID  string
	Attribute string
	Step      float64
	Min       float64
	Max       float64
	Default   float64

	Domain  string
	Service string
	Field   string
}

// Next returns the clamped value after one step from the current state.
func (a AdjustSpec) Next(current domain.EntityState, known bool) float64 {
	v := a.Default
	if known {
		if f, ok := current.Float(a.Attribute); ok {
			v = f
		}
	}
	v = math.Max(a.Min, math.Min(a.Max, v+a.Step))
	// Keep repeated steps of 0.1 from drifting.
	return math.Round(v*1000) / 1000
}

// Command returns the service call that sets value.
func (a AdjustSpec) Command(value float64) domain.Command {
	return domain.Command{
		Domain:   a.Domain,
		Service:  a.Service,
		EntityID: a.EntityID,
		Data:     map[string]any{a.Field: value},
	}
}

func entityDomain(id string) string {
	d, _, _ := strings.Cut(id, ".")
	return d
}
