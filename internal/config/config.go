// Package config loads the natya runtime configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ayusman/natya/internal/gesture"
)

// Source kinds.
const (
	SourceBridge = "bridge"
	SourceReplay = "replay"
)

// Default values used when a field is omitted.
const (
	DefaultListenAddr    = ":8080"
	DefaultDataDir       = "~/.natya"
	DefaultBridgeCommand = "natya-bridge"
	DefaultIdleFPS       = 5
	DefaultActiveFPS     = 30
	DefaultIdleTimeout   = 2 * time.Second
	DefaultPluginTimeout = 5 * time.Second
)

// Config is the root runtime configuration. Every field is optional; the Get*
// methods fall back to defaults for omitted values, so partial files are safe.
type Config struct {
	ListenAddr *string `json:"listen_addr,omitempty"`
	DataDir    *string `json:"data_dir,omitempty"`
	PluginDir  *string `json:"plugin_dir,omitempty"`
	StaticDir  *string `json:"static_dir,omitempty"`

	// Gesture params
	EnabledGestures []string                 `json:"enabled_gestures,omitempty"`
	GestureLimits   map[string]GestureLimits `json:"gesture_limits,omitempty"`
	EvictAfterTicks *int                     `json:"evict_after_ticks,omitempty"`

	// Pipeline params
	IdleFPS       *int    `json:"idle_fps,omitempty"`
	ActiveFPS     *int    `json:"active_fps,omitempty"`
	IdleTimeout   *string `json:"idle_timeout,omitempty"`   // duration string like "2s"
	PluginTimeout *string `json:"plugin_timeout,omitempty"` // duration string like "5s"

	Source *SourceConfig `json:"source,omitempty"`
	Tray   *bool         `json:"tray,omitempty"`
}

// GestureLimits overrides the timing limits of one gesture. Zero keeps the
// built-in value.
type GestureLimits struct {
	WindowSize    int `json:"window_size,omitempty"`
	MaxPauseCount int `json:"max_pause_count,omitempty"`
}

// SourceConfig selects where body frames come from.
type SourceConfig struct {
	Kind      string   `json:"kind"`
	Command   string   `json:"command,omitempty"`
	Args      []string `json:"args,omitempty"`
	Path      string   `json:"path,omitempty"`
	MaxBodies int      `json:"max_bodies,omitempty"`
}

// Default returns a Config with every field unset.
func Default() *Config {
	return &Config{}
}

// LoadConfig loads a Config from a JSON file. A missing file yields the
// defaults. The file must have a .json extension and be under 1MB.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	registry := gesture.DefaultRegistry()

	if _, err := registry.Resolve(c.GetEnabledGestures()); err != nil {
		return fmt.Errorf("enabled_gestures: %w", err)
	}

	for name, limits := range c.GestureLimits {
		if _, ok := registry.Lookup(gesture.Type(name)); !ok {
			return fmt.Errorf("gesture_limits: %w: %q", gesture.ErrUnknownType, name)
		}
		if limits.WindowSize < 0 || limits.MaxPauseCount < 0 {
			return fmt.Errorf("gesture_limits %s: limits must be non-negative", name)
		}
	}

	if c.IdleFPS != nil && *c.IdleFPS <= 0 {
		return fmt.Errorf("idle_fps must be positive, got %d", *c.IdleFPS)
	}
	if c.ActiveFPS != nil && *c.ActiveFPS <= 0 {
		return fmt.Errorf("active_fps must be positive, got %d", *c.ActiveFPS)
	}

	if c.IdleTimeout != nil && *c.IdleTimeout != "" {
		if _, err := time.ParseDuration(*c.IdleTimeout); err != nil {
			return fmt.Errorf("invalid idle_timeout '%s': %w", *c.IdleTimeout, err)
		}
	}
	if c.PluginTimeout != nil && *c.PluginTimeout != "" {
		if _, err := time.ParseDuration(*c.PluginTimeout); err != nil {
			return fmt.Errorf("invalid plugin_timeout '%s': %w", *c.PluginTimeout, err)
		}
	}

	if c.Source != nil {
		switch c.Source.Kind {
		case "", SourceBridge:
		case SourceReplay:
			if c.Source.Path == "" {
				return fmt.Errorf("source: replay requires a path")
			}
		default:
			return fmt.Errorf("source: unknown kind %q", c.Source.Kind)
		}
		if c.Source.MaxBodies < 0 {
			return fmt.Errorf("source: max_bodies must be non-negative, got %d", c.Source.MaxBodies)
		}
	}

	return nil
}

// GetListenAddr returns the HTTP listen address or the default.
func (c *Config) GetListenAddr() string {
	if c.ListenAddr == nil || *c.ListenAddr == "" {
		return DefaultListenAddr
	}
	return *c.ListenAddr
}

// GetDataDir returns the data directory with a leading ~ expanded.
func (c *Config) GetDataDir() string {
	dir := DefaultDataDir
	if c.DataDir != nil && *c.DataDir != "" {
		dir = *c.DataDir
	}
	return expandHome(dir)
}

// GetDBPath returns the path of the SQLite database inside the data directory.
func (c *Config) GetDBPath() string {
	return filepath.Join(c.GetDataDir(), "natya.db")
}

// GetPluginDir returns the plugin directory, defaulting to plugins/ under the
// data directory.
func (c *Config) GetPluginDir() string {
	if c.PluginDir == nil || *c.PluginDir == "" {
		return filepath.Join(c.GetDataDir(), "plugins")
	}
	return expandHome(*c.PluginDir)
}

// GetStaticDir returns the directory served at /, or "" to serve nothing.
func (c *Config) GetStaticDir() string {
	if c.StaticDir == nil {
		return ""
	}
	return expandHome(*c.StaticDir)
}

// GetEnabledGestures returns the enabled gesture types. Omitted means all.
func (c *Config) GetEnabledGestures() []gesture.Type {
	if len(c.EnabledGestures) == 0 {
		return []gesture.Type{gesture.TypeAll}
	}
	types := make([]gesture.Type, len(c.EnabledGestures))
	for i, name := range c.EnabledGestures {
		types[i] = gesture.Type(name)
	}
	return types
}

// GetEvictAfterTicks returns the eviction threshold or the default.
func (c *Config) GetEvictAfterTicks() int {
	if c.EvictAfterTicks == nil {
		return gesture.DefaultEvictAfter
	}
	return *c.EvictAfterTicks
}

// GetIdleFPS returns the frame rate used while nobody is in view. Values
// below one select the default.
func (c *Config) GetIdleFPS() int {
	if c.IdleFPS == nil || *c.IdleFPS <= 0 {
		return DefaultIdleFPS
	}
	return *c.IdleFPS
}

// GetActiveFPS returns the frame rate used while bodies are tracked. Values
// below one select the default.
func (c *Config) GetActiveFPS() int {
	if c.ActiveFPS == nil || *c.ActiveFPS <= 0 {
		return DefaultActiveFPS
	}
	return *c.ActiveFPS
}

// GetIdleTimeout parses and returns the IdleTimeout as a time.Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return parseDuration(c.IdleTimeout, DefaultIdleTimeout)
}

// GetPluginTimeout parses and returns the PluginTimeout as a time.Duration.
func (c *Config) GetPluginTimeout() time.Duration {
	return parseDuration(c.PluginTimeout, DefaultPluginTimeout)
}

// GetSource returns the source configuration, defaulting to the sensor bridge.
func (c *Config) GetSource() SourceConfig {
	if c.Source == nil {
		return SourceConfig{Kind: SourceBridge, Command: DefaultBridgeCommand}
	}

	src := *c.Source
	if src.Kind == "" {
		src.Kind = SourceBridge
	}
	if src.Kind == SourceBridge && src.Command == "" {
		src.Command = DefaultBridgeCommand
	}
	return src
}

// GetTray reports whether the system tray icon is enabled.
func (c *Config) GetTray() bool {
	if c.Tray == nil {
		return true
	}
	return *c.Tray
}

func parseDuration(s *string, fallback time.Duration) time.Duration {
	if s == nil || *s == "" {
		return fallback
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return fallback
	}
	return d
}

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
