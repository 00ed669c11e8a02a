// Package config loads the deck layout and connection settings.
//
// Configuration comes from a single file given with --config. There is no
// discovery and no environment override except the access token. YAML is
// the native format; files ending in .json or .jsonc are accepted too, with
// comments and trailing commas stripped before decoding.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jwulff/deckhand/internal/hass"
	"github.com/jwulff/deckhand/internal/screensaver"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Config is the whole daemon configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Screensaver ScreensaverConfig `yaml:"screensaver"`

	// StateDB is an optional sqlite file for last-known states and session
	// history. Empty disables persistence.
	StateDB string `yaml:"state_db"`

	// IconsDir is where relative icon names are looked up.
	IconsDir string `yaml:"icons_dir"`

	Buttons []ButtonConfig `yaml:"buttons"`
}

// ServerConfig configures the Home Assistant connection.
type ServerConfig struct {
	// URL is the websocket endpoint, e.g. wss://ha.example.net/api/websocket.
	URL string `yaml:"url"`

	// TokenFile holds the long-lived access token.
	// Default: ~/.config/home-assistant/token
	TokenFile string `yaml:"token_file"`

	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	AuthTimeout    time.Duration `yaml:"auth_timeout"`
	PingInterval   time.Duration `yaml:"ping_interval"`
}

// ScreensaverConfig configures dimming and blanking.
type ScreensaverConfig struct {
	CheckInterval time.Duration `yaml:"check_interval"`
	DimAfter      time.Duration `yaml:"dim_after"`
	OffAfter      time.Duration `yaml:"off_after"`
	DimBrightness int           `yaml:"dim_brightness"`
	Brightness    int           `yaml:"brightness"`
}

// Default returns the configuration every file is merged into.
func Default() *Config {
	ss := screensaver.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			TokenFile:      "~/.config/home-assistant/token",
			ReconnectDelay: hass.DefaultReconnectDelay,
			AuthTimeout:    hass.DefaultAuthTimeout,
			PingInterval:   hass.DefaultPingInterval,
		},
		Screensaver: ScreensaverConfig{
			CheckInterval: ss.CheckInterval,
			DimAfter:      ss.DimAfter,
			OffAfter:      ss.OffAfter,
			DimBrightness: ss.DimBrightness,
			Brightness:    ss.Brightness,
		},
	}
}

// LoadFile loads, expands and validates a configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes configuration data. ext selects JSONC handling for
// ".json" and ".jsonc"; anything else is YAML.
func Parse(data []byte, ext string) (*Config, error) {
	switch strings.ToLower(ext) {
	case ".json", ".jsonc":
		converted, err := jsoncToYAML(data)
		if err != nil {
			return nil, err
		}
		data = converted
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.expandPaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// jsoncToYAML strips comments and trailing commas, then re-encodes the
// document as YAML so both formats share one decoder and its duration
// handling.
func jsoncToYAML(data []byte) ([]byte, error) {
	var doc any
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("converting config: %w", err)
	}
	return out, nil
}

func (c *Config) expandPaths() {
	c.Server.TokenFile = expandHome(c.Server.TokenFile)
	c.StateDB = expandHome(c.StateDB)
	c.IconsDir = expandHome(c.IconsDir)
}

// expandHome replaces a leading "~" with the home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Validate checks the configuration for errors. All problems are reported.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.URL == "" {
		errs = append(errs, errors.New("server.url is required"))
	} else if !strings.HasPrefix(c.Server.URL, "ws://") && !strings.HasPrefix(c.Server.URL, "wss://") {
		errs = append(errs, fmt.Errorf("server.url must be ws:// or wss://, got %q", c.Server.URL))
	}
	if c.Server.ReconnectDelay <= 0 {
		errs = append(errs, errors.New("server.reconnect_delay must be positive"))
	}
	if c.Server.PingInterval < 0 {
		errs = append(errs, errors.New("server.ping_interval must not be negative"))
	}

	ss := c.Screensaver
	if ss.CheckInterval <= 0 {
		errs = append(errs, errors.New("screensaver.check_interval must be positive"))
	}
	if ss.OffAfter <= ss.DimAfter {
		errs = append(errs, fmt.Errorf("screensaver.off_after (%s) must be after dim_after (%s)", ss.OffAfter, ss.DimAfter))
	}
	if !inPercent(ss.DimBrightness) || !inPercent(ss.Brightness) {
		errs = append(errs, errors.New("screensaver brightness values must be 0-100"))
	}

	seen := make(map[int]bool)
	for i, b := range c.Buttons {
		if b.Key < 0 {
			errs = append(errs, fmt.Errorf("buttons[%d]: key must not be negative", i))
		} else if seen[b.Key] {
			errs = append(errs, fmt.Errorf("buttons[%d]: duplicate key %d", i, b.Key))
		}
		seen[b.Key] = true
		if err := b.validate(); err != nil {
			errs = append(errs, fmt.Errorf("buttons[%d] (key %d): %w", i, b.Key, err))
		}
	}

	return errors.Join(errs...)
}

// MaxKey returns the highest configured key index, or -1 without buttons.
func (c *Config) MaxKey() int {
	maxKey := -1
	for _, b := range c.Buttons {
		maxKey = max(maxKey, b.Key)
	}
	return maxKey
}

// HassConfig returns the connection settings for token.
func (c *Config) HassConfig(token string) hass.Config {
	cfg := hass.DefaultConfig(c.Server.URL, token)
	cfg.ReconnectDelay = c.Server.ReconnectDelay
	cfg.AuthTimeout = c.Server.AuthTimeout
	cfg.PingInterval = c.Server.PingInterval
	return cfg
}

// ScreensaverSettings returns the idle settings.
func (c *Config) ScreensaverSettings() screensaver.Config {
	return screensaver.Config{
		CheckInterval: c.Screensaver.CheckInterval,
		DimAfter:      c.Screensaver.DimAfter,
		OffAfter:      c.Screensaver.OffAfter,
		DimBrightness: c.Screensaver.DimBrightness,
		Brightness:    c.Screensaver.Brightness,
	}
}

func inPercent(v int) bool {
	return v >= 0 && v <= 100
}
