package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/natya/internal/gesture"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "natya.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.GetListenAddr())
	assert.Equal(t, []gesture.Type{gesture.TypeAll}, cfg.GetEnabledGestures())
	assert.Equal(t, gesture.DefaultEvictAfter, cfg.GetEvictAfterTicks())
	assert.Equal(t, 5, cfg.GetIdleFPS())
	assert.Equal(t, 30, cfg.GetActiveFPS())
	assert.Equal(t, 2*time.Second, cfg.GetIdleTimeout())
	assert.Equal(t, 5*time.Second, cfg.GetPluginTimeout())
	assert.Equal(t, SourceConfig{Kind: SourceBridge, Command: DefaultBridgeCommand}, cfg.GetSource())
	assert.True(t, cfg.GetTray())
	assert.Empty(t, cfg.GetStaticDir())

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".natya"), cfg.GetDataDir())
	assert.Equal(t, filepath.Join(home, ".natya", "natya.db"), cfg.GetDBPath())
	assert.Equal(t, filepath.Join(home, ".natya", "plugins"), cfg.GetPluginDir())
}

func TestGetFPS_NonPositiveFallsBack(t *testing.T) {
	zero, negative := 0, -4
	cfg := &Config{IdleFPS: &zero, ActiveFPS: &negative}

	assert.Equal(t, DefaultIdleFPS, cfg.GetIdleFPS())
	assert.Equal(t, DefaultActiveFPS, cfg.GetActiveFPS())
	assert.Error(t, cfg.Validate(), "files still reject non-positive rates")
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `{
		"listen_addr": "127.0.0.1:9090",
		"data_dir": "/var/lib/natya",
		"enabled_gestures": ["wave-right", "menu"],
		"gesture_limits": {"menu": {"window_size": 80}},
		"evict_after_ticks": -1,
		"active_fps": 15,
		"idle_timeout": "500ms",
		"source": {"kind": "replay", "path": "/tmp/session.jsonl"},
		"tray": false
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.GetListenAddr())
	assert.Equal(t, "/var/lib/natya", cfg.GetDataDir())
	assert.Equal(t, "/var/lib/natya/plugins", cfg.GetPluginDir())
	assert.Equal(t, []gesture.Type{gesture.TypeWaveRight, gesture.TypeMenu}, cfg.GetEnabledGestures())
	assert.Equal(t, GestureLimits{WindowSize: 80}, cfg.GestureLimits["menu"])
	assert.Equal(t, -1, cfg.GetEvictAfterTicks())
	assert.Equal(t, 5, cfg.GetIdleFPS(), "omitted field keeps its default")
	assert.Equal(t, 15, cfg.GetActiveFPS())
	assert.Equal(t, 500*time.Millisecond, cfg.GetIdleTimeout())
	assert.Equal(t, SourceConfig{Kind: SourceReplay, Path: "/tmp/session.jsonl"}, cfg.GetSource())
	assert.False(t, cfg.GetTray())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadConfig_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{"bad json", `{"listen_addr": `, "parse"},
		{"unknown gesture", `{"enabled_gestures": ["moonwalk"]}`, "enabled_gestures"},
		{"limits for unknown gesture", `{"gesture_limits": {"moonwalk": {"window_size": 10}}}`, "gesture_limits"},
		{"negative limits", `{"gesture_limits": {"menu": {"max_pause_count": -2}}}`, "non-negative"},
		{"zero fps", `{"idle_fps": 0}`, "idle_fps"},
		{"bad duration", `{"plugin_timeout": "soon"}`, "plugin_timeout"},
		{"replay without path", `{"source": {"kind": "replay"}}`, "path"},
		{"unknown source", `{"source": {"kind": "webcam"}}`, "unknown kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestLoadConfig_Extension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "natya.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".json")
}

func TestLoadConfig_TooLarge(t *testing.T) {
	big := `{"listen_addr": "` + strings.Repeat("x", 1024*1024) + `"}`
	_, err := LoadConfig(writeConfig(t, big))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestGetSource_BridgeDefaults(t *testing.T) {
	cfg := &Config{Source: &SourceConfig{Args: []string{"--depth"}}}

	assert.Equal(t, SourceConfig{Kind: SourceBridge, Command: DefaultBridgeCommand, Args: []string{"--depth"}}, cfg.GetSource())
}
