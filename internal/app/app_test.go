package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/natya/internal/config"
	"github.com/ayusman/natya/internal/gesture"
	"github.com/ayusman/natya/internal/plugin"
	"github.com/ayusman/natya/internal/server"
	"github.com/ayusman/natya/internal/skeleton"
	"github.com/ayusman/natya/internal/store"
	"github.com/ayusman/natya/testdata"
)

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []string
	data   []any
}

func (f *fakeBroadcaster) Broadcast(eventType string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
	f.data = append(f.data, data)
}

func (f *fakeBroadcaster) count(eventType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e == eventType {
			n++
		}
	}
	return n
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func openSequence(t *testing.T, name string) skeleton.Source {
	t.Helper()
	src, err := testdata.OpenSequence(name)
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })
	return src
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestApp_ReplayWaveRight(t *testing.T) {
	s := newTestStore(t)
	hub := &fakeBroadcaster{}
	a, err := New(Config{Store: s, Broadcaster: hub})
	require.NoError(t, err)

	var seen []gesture.Recognition
	a.RegisterGestureCallback(func(rec gesture.Recognition) {
		seen = append(seen, rec)
	})

	recs, err := a.Replay(context.Background(), openSequence(t, testdata.WaveRight))
	require.NoError(t, err)

	require.Len(t, recs, 1)
	assert.Equal(t, gesture.TypeWaveRight, recs[0].Type)
	assert.Equal(t, testdata.WaveRightTrackingID, recs[0].TrackingID)
	assert.Equal(t, uint64(8), recs[0].Tick, "two empty frames then six wave frames")
	assert.Equal(t, recs, seen)

	last, ok := a.LastRecognition()
	require.True(t, ok)
	assert.Equal(t, recs[0], last)

	stored, err := s.Recognitions().ListRecent(10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "wave-right", stored[0].GestureType)
	assert.Equal(t, testdata.WaveRightTrackingID, stored[0].TrackingID)
	assert.Equal(t, uint64(8), stored[0].Tick)

	assert.Equal(t, 1, hub.count(server.EventRecognition))
	assert.Equal(t, 11, hub.count(server.EventBodies), "every frame is broadcast")
}

func TestApp_ReplayStandingStill(t *testing.T) {
	a, err := New(Config{})
	require.NoError(t, err)

	recs, err := a.Replay(context.Background(), openSequence(t, testdata.Standing))
	require.NoError(t, err)
	assert.Empty(t, recs)

	_, ok := a.LastRecognition()
	assert.False(t, ok)
}

func TestApp_ReplayCancelled(t *testing.T) {
	a, err := New(Config{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = a.Replay(ctx, openSequence(t, testdata.Standing))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestApp_DispatchesBoundActions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := t.TempDir()
	requestPath := filepath.Join(dir, "request.json")
	script := filepath.Join(dir, "recorder.sh")
	body := "#!/bin/sh\ncat > '" + requestPath + "'\necho '{\"success\":true}'\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0755))

	plugins := plugin.NewManager(dir)
	plugins.Register(&plugin.Plugin{
		Manifest:   plugin.Manifest{Name: "recorder", Executable: "recorder.sh", Actions: []string{"record"}},
		Path:       dir,
		Executable: script,
	})

	s := newTestStore(t)
	require.NoError(t, s.Actions().Create(&store.Action{
		GestureType: "wave-right",
		PluginName:  "recorder",
		ActionName:  "record",
		Config:      json.RawMessage(`{"label":"hello"}`),
		Enabled:     true,
	}))

	a, err := New(Config{Store: s, Plugins: plugins})
	require.NoError(t, err)

	recs, err := a.Replay(context.Background(), openSequence(t, testdata.WaveRight))
	require.NoError(t, err)
	require.Len(t, recs, 1)

	// Replay waits for dispatched actions
	data, err := os.ReadFile(requestPath)
	require.NoError(t, err)

	var req plugin.Request
	require.NoError(t, json.Unmarshal(data, &req))
	assert.Equal(t, "record", req.Action)
	assert.Equal(t, "wave-right", req.Gesture)
	assert.Equal(t, testdata.WaveRightTrackingID, req.TrackingID)
	assert.JSONEq(t, `{"label":"hello"}`, string(req.Config))
}

func TestApp_LoadSettings(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Gestures().Upsert(&store.GestureSetting{Type: "wave-right", Enabled: false}))
	require.NoError(t, s.Gestures().Upsert(&store.GestureSetting{Type: "menu", Enabled: true, WindowSize: 90}))
	require.NoError(t, s.Gestures().Upsert(&store.GestureSetting{Type: "retired-gesture", Enabled: true}))

	a, err := New(Config{Store: s})
	require.NoError(t, err)
	require.NoError(t, a.LoadSettings())

	assert.NotContains(t, a.Enabled(), gesture.TypeWaveRight)
	assert.Contains(t, a.Enabled(), gesture.TypeMenu)

	menu, ok := a.Registry().Lookup(gesture.TypeMenu)
	require.True(t, ok)
	assert.Equal(t, 90, menu.WindowSize)
	assert.Equal(t, gesture.DefaultMaxPauseCount, menu.MaxPauseCount)

	recs, err := a.Replay(context.Background(), openSequence(t, testdata.WaveRight))
	require.NoError(t, err)
	assert.Empty(t, recs, "wave-right is disabled by the stored settings")
}

func TestApp_ConfigLayers(t *testing.T) {
	settings := config.Default()
	settings.EnabledGestures = []string{"menu", "wave-right"}
	settings.GestureLimits = map[string]config.GestureLimits{
		"menu": {WindowSize: 80},
	}

	a, err := New(Config{Settings: settings})
	require.NoError(t, err)

	assert.Equal(t, []gesture.Type{gesture.TypeWaveRight, gesture.TypeMenu}, a.Enabled(), "registry order")

	menu, _ := a.Registry().Lookup(gesture.TypeMenu)
	assert.Equal(t, 80, menu.WindowSize)

	// A zero stored limit keeps the configured one
	require.NoError(t, a.ApplyGestureSetting(&store.GestureSetting{Type: "menu", Enabled: true, MaxPauseCount: 4}))
	menu, _ = a.Registry().Lookup(gesture.TypeMenu)
	assert.Equal(t, 80, menu.WindowSize)
	assert.Equal(t, 4, menu.MaxPauseCount)

	// Stored settings can enable a gesture the config left out
	require.NoError(t, a.ApplyGestureSetting(&store.GestureSetting{Type: "zoom-in", Enabled: true}))
	assert.Equal(t, []gesture.Type{gesture.TypeWaveRight, gesture.TypeZoomIn, gesture.TypeMenu}, a.Enabled())

	err = a.ApplyGestureSetting(&store.GestureSetting{Type: "cartwheel", Enabled: true})
	assert.ErrorIs(t, err, gesture.ErrUnknownType)
}

func TestApp_ApplyKeepsUnchangedMatchers(t *testing.T) {
	a, err := New(Config{})
	require.NoError(t, err)

	frames, err := testdata.LoadSequence(testdata.WaveRight)
	require.NoError(t, err)

	// Wave halfway through, change another gesture, then finish the wave
	for _, bodies := range frames[:5] {
		require.Empty(t, a.Process(bodies))
	}
	require.NoError(t, a.ApplyGestureSetting(&store.GestureSetting{Type: "menu", Enabled: true, WindowSize: 70}))

	var recs []gesture.Recognition
	for _, bodies := range frames[5:] {
		recs = append(recs, a.Process(bodies)...)
	}
	require.Len(t, recs, 1)
	assert.Equal(t, gesture.TypeWaveRight, recs[0].Type)
}

func TestApp_DisableEveryGesture(t *testing.T) {
	settings := config.Default()
	settings.EnabledGestures = []string{"wave-right"}

	a, err := New(Config{Settings: settings})
	require.NoError(t, err)
	require.NoError(t, a.ApplyGestureSetting(&store.GestureSetting{Type: "wave-right", Enabled: false}))

	assert.Empty(t, a.Enabled())

	recs, err := a.Replay(context.Background(), openSequence(t, testdata.WaveRight))
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, 0, a.Controller().Len())
}

func TestApp_RecognitionToggle(t *testing.T) {
	s := newTestStore(t)
	hub := &fakeBroadcaster{}
	a, err := New(Config{Store: s, Broadcaster: hub})
	require.NoError(t, err)
	require.True(t, a.IsEnabled())

	a.SetEnabled(false)
	assert.False(t, a.IsEnabled())
	assert.Equal(t, 1, hub.count(server.EventStatus))

	recs, err := a.Replay(context.Background(), openSequence(t, testdata.WaveRight))
	require.NoError(t, err)
	assert.Empty(t, recs)

	value, err := s.Settings().Get(store.SettingRecognitionEnabled)
	require.NoError(t, err)
	assert.Equal(t, "false", value)

	// The toggle survives a restart
	restarted, err := New(Config{Store: s})
	require.NoError(t, err)
	require.NoError(t, restarted.LoadSettings())
	assert.False(t, restarted.IsEnabled())
}

func TestApp_Pipeline(t *testing.T) {
	frames, err := testdata.LoadSequence(testdata.WaveRight)
	require.NoError(t, err)

	src := skeleton.NewMockSource()
	src.SetFrames(frames, false)

	settings := config.Default()
	settings.IdleFPS = intPtr(200)
	settings.ActiveFPS = intPtr(200)

	a, err := New(Config{Source: src, Settings: settings})
	require.NoError(t, err)

	recognized := make(chan gesture.Recognition, 1)
	a.RegisterGestureCallback(func(rec gesture.Recognition) {
		recognized <- rec
	})

	require.NoError(t, a.Start())
	require.NoError(t, a.Start(), "starting twice is a no-op")

	select {
	case rec := <-recognized:
		assert.Equal(t, gesture.TypeWaveRight, rec.Type)
	case <-time.After(3 * time.Second):
		t.Fatal("wave was not recognized")
	}

	require.Eventually(t, func() bool { return !a.Running() }, 3*time.Second, 10*time.Millisecond,
		"pipeline should end with the stream")
	a.Stop()
}

func TestApp_PipelineIdleReset(t *testing.T) {
	frames := [][]skeleton.Body{}
	for i := 0; i < 3; i++ {
		frames = append(frames, []skeleton.Body{skeleton.StandingBody(1)})
	}
	for i := 0; i < 30; i++ {
		frames = append(frames, nil)
	}

	src := skeleton.NewMockSource()
	src.SetFrames(frames, false)

	settings := config.Default()
	settings.IdleFPS = intPtr(100)
	settings.ActiveFPS = intPtr(100)
	settings.IdleTimeout = strPtr("20ms")
	settings.EvictAfterTicks = intPtr(-1)

	a, err := New(Config{Source: src, Settings: settings})
	require.NoError(t, err)
	require.NoError(t, a.Start())
	defer a.Stop()

	require.Eventually(t, func() bool { return !a.Running() }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, a.Controller().Len(), "idle mode drops every matcher")
	assert.Equal(t, uint64(len(frames)), a.Controller().Tick())
}

func TestApp_StopWithSilentBridge(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	src, err := skeleton.NewBridgeSource("sh", []string{"-c", "exec sleep 30"}, skeleton.DefaultConfig())
	require.NoError(t, err)

	settings := config.Default()
	settings.IdleFPS = intPtr(100)

	a, err := New(Config{Source: src, Settings: settings})
	require.NoError(t, err)
	require.NoError(t, a.Start())

	// Let the pipeline block on the bridge before stopping.
	time.Sleep(100 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		a.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop blocked on a bridge that never writes")
	}
	assert.False(t, a.Running())
}

func TestApp_PipelineZeroFPS(t *testing.T) {
	settings := config.Default()
	settings.IdleFPS = intPtr(0)
	settings.ActiveFPS = intPtr(0)

	src := skeleton.NewMockSource()
	src.SetFrames([][]skeleton.Body{{skeleton.StandingBody(1)}}, false)

	a, err := New(Config{Source: src, Settings: settings})
	require.NoError(t, err)
	require.NoError(t, a.Start())

	require.Eventually(t, func() bool { return !a.Running() }, 3*time.Second, 10*time.Millisecond)
	a.Stop()
	assert.Equal(t, uint64(1), a.Controller().Tick())
}

func TestApp_StartWithoutSource(t *testing.T) {
	a, err := New(Config{})
	require.NoError(t, err)
	assert.ErrorIs(t, a.Start(), ErrNoSource)
	assert.False(t, a.Running())
}

func TestApp_ReplaySwipeLeft(t *testing.T) {
	a, err := New(Config{})
	require.NoError(t, err)

	recs, err := a.Replay(context.Background(), openSequence(t, testdata.SwipeLeft))
	require.NoError(t, err)

	var types []gesture.Type
	for _, rec := range recs {
		types = append(types, rec.Type)
	}
	assert.Contains(t, types, gesture.TypeSwipeLeft)
	assert.NotContains(t, types, gesture.TypeSwipeRight)
}
