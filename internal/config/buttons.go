package config

import (
	"errors"
	"fmt"

	"github.com/jwulff/deckhand/internal/button"
	"github.com/jwulff/deckhand/internal/domain"
	"github.com/jwulff/deckhand/internal/render"
)

// ButtonConfig is one key. At most one of Shell, Service, Watch and Adjust
// may be set; a button with none of them only gives press feedback.
type ButtonConfig struct {
	Key   int    `yaml:"key"`
	Text  string `yaml:"text"`
	Icon  string `yaml:"icon"`
	Color string `yaml:"color"`

	Shell   string         `yaml:"shell"`
	Service *ServiceConfig `yaml:"service"`
	Watch   *WatchConfig   `yaml:"watch"`
	Adjust  *AdjustConfig  `yaml:"adjust"`
}

// ServiceConfig is a service call, e.g. light.toggle on light.office.
type ServiceConfig struct {
	Domain   string         `yaml:"domain"`
	Service  string         `yaml:"service"`
	EntityID string         `yaml:"entity_id"`
	Data     map[string]any `yaml:"data"`
}

// WatchConfig shows and toggles an entity.
type WatchConfig struct {
	EntityID string `yaml:"entity_id"`

	// OnState is the state drawn with OnColor. Default: "on".
	OnState  string `yaml:"on_state"`
	OnColor  string `yaml:"on_color"`
	OffColor string `yaml:"off_color"`

	// Reading shows a number under the label: ReadingAttribute of
	// ReadingEntity (default: EntityID), or its state if no attribute.
	ReadingEntity    string `yaml:"reading_entity"`
	ReadingAttribute string `yaml:"reading_attribute"`
	Unit             string `yaml:"unit"`

	// Toggle overrides the service called on press (default: <domain>.toggle).
	// With Field set the call carries Field=OffValue while on, else OnValue.
	Toggle   *ServiceConfig `yaml:"toggle"`
	Field    string         `yaml:"field"`
	OnValue  string         `yaml:"on_value"`
	OffValue string         `yaml:"off_value"`
}

// AdjustConfig steps a numeric attribute. Defaults suit media player volume.
type AdjustConfig struct {
	EntityID  string   `yaml:"entity_id"`
	Attribute string   `yaml:"attribute"`
	Step      float64  `yaml:"step"`
	Min       *float64 `yaml:"min"`
	Max       *float64 `yaml:"max"`
	Default   *float64 `yaml:"default"`
	Domain    string   `yaml:"domain"`
	Service   string   `yaml:"service"`
	Field     string   `yaml:"field"`
}

func (b ButtonConfig) actions() int {
	n := 0
	if b.Shell != "" {
		n++
	}
	if b.Service != nil {
		n++
	}
	if b.Watch != nil {
		n++
	}
	if b.Adjust != nil {
		n++
	}
	return n
}

func (b ButtonConfig) validate() error {
	var errs []error
	if n := b.actions(); n > 1 {
		errs = append(errs, fmt.Errorf("%d actions set, want at most one", n))
	}
	if b.Color != "" {
		if _, err := render.ParseColor(b.Color); err != nil {
			errs = append(errs, err)
		}
	}
	if s := b.Service; s != nil {
		if s.Domain == "" || s.Service == "" || s.EntityID == "" {
			errs = append(errs, errors.New("service needs domain, service and entity_id"))
		}
	}
	if w := b.Watch; w != nil {
		if w.EntityID == "" {
			errs = append(errs, errors.New("watch needs entity_id"))
		}
		for _, c := range []string{w.OnColor, w.OffColor} {
			if c == "" {
				continue
			}
			if _, err := render.ParseColor(c); err != nil {
				errs = append(errs, err)
			}
		}
		if w.Field != "" && (w.OnValue == "" || w.OffValue == "") {
			errs = append(errs, errors.New("watch field needs on_value and off_value"))
		}
	}
	if a := b.Adjust; a != nil {
		if a.EntityID == "" {
			errs = append(errs, errors.New("adjust needs entity_id"))
		}
		if a.Step == 0 {
			errs = append(errs, errors.New("adjust needs a non-zero step"))
		}
		spec := a.spec()
		if spec.Max <= spec.Min {
			errs = append(errs, fmt.Errorf("adjust max (%g) must exceed min (%g)", spec.Max, spec.Min))
		}
	}
	return errors.Join(errs...)
}

// Face returns the button's idle face.
func (b ButtonConfig) Face() domain.Face {
	face := domain.Face{Text: b.Text, Icon: b.Icon, Background: render.ColorBg}
	if c, err := render.ParseColor(b.Color); err == nil {
		face.Background = c
	}
	return face
}

// Action returns the button's action.
func (b ButtonConfig) Action() button.Action {
	switch {
	case b.Shell != "":
		return button.Action{Kind: button.Shell, Command: b.Shell}
	case b.Service != nil:
		return button.Action{Kind: button.Service, Call: b.Service.call()}
	case b.Watch != nil:
		return button.Action{Kind: button.Watch, Watch: b.Watch.spec()}
	case b.Adjust != nil:
		return button.Action{Kind: button.Adjust, Adjust: b.Adjust.spec()}
	default:
		return button.Action{Kind: button.None}
	}
}

// BuildButtons creates every configured button.
func (c *Config) BuildButtons(env *button.Env) []*button.Button {
	buttons := make([]*button.Button, 0, len(c.Buttons))
	for _, b := range c.Buttons {
		buttons = append(buttons, button.New(b.Key, b.Face(), b.Action(), env))
	}
	return buttons
}

func (s *ServiceConfig) call() button.ServiceCall {
	return button.ServiceCall{Domain: s.Domain, Service: s.Service, EntityID: s.EntityID, Data: s.Data}
}

func (w *WatchConfig) spec() button.WatchSpec {
	spec := button.WatchSpec{
		EntityID:         w.EntityID,
		OnState:          w.OnState,
		OnColor:          colorOr(w.OnColor, render.ColorActive),
		OffColor:         colorOr(w.OffColor, render.ColorInactive),
		ReadingEntity:    w.ReadingEntity,
		ReadingAttribute: w.ReadingAttribute,
		Unit:             w.Unit,
		Field:            w.Field,
		OnValue:          w.OnValue,
		OffValue:         w.OffValue,
	}
	if w.Toggle != nil {
		spec.Toggle = w.Toggle.call()
	}
	return spec
}

func (a *AdjustConfig) spec() button.AdjustSpec {
	spec := button.AdjustSpec{
		EntityID:  a.EntityID,
		Attribute: a.Attribute,
		Step:      a.Step,
		Min:       floatOr(a.Min, 0),
		Max:       floatOr(a.Max, 1),
		Default:   floatOr(a.Default, 0.5),
		Domain:    a.Domain,
		Service:   a.Service,
		Field:     a.Field,
	}
	if spec.Attribute == "" {
		spec.Attribute = "volume_level"
	}
	if spec.Domain == "" {
		spec.Domain = "media_player"
	}
	if spec.Service == "" {
		spec.Service = "volume_set"
	}
	if spec.Field == "" {
		spec.Field = spec.Attribute
	}
	return spec
}

func colorOr(s string, fallback domain.RGB) domain.RGB {
	if s == "" {
		return fallback
	}
	c, err := render.ParseColor(s)
	if err != nil {
		return fallback
	}
	return c
}

func floatOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
