// Package app provides the main application logic for the Natya gesture recognition system.
package app

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/ayusman/natya/internal/config"
	"github.com/ayusman/natya/internal/gesture"
	"github.com/ayusman/natya/internal/monitoring"
	"github.com/ayusman/natya/internal/plugin"
	"github.com/ayusman/natya/internal/server"
	"github.com/ayusman/natya/internal/skeleton"
	"github.com/ayusman/natya/internal/store"
)

// Broadcaster pushes events to connected clients. *server.Hub implements it.
type Broadcaster interface {
	Broadcast(eventType string, data any)
}

// Config holds configuration options for the application.
type Config struct {
	Store       *store.Store
	Source      skeleton.Source
	Plugins     *plugin.Manager
	Broadcaster Broadcaster

	// Settings supplies gesture selection, limits and pipeline timing.
	// Defaults to config.Default().
	Settings *config.Config
}

// App is the main application that orchestrates gesture recognition and
// action execution.
type App struct {
	config     Config
	settings   *config.Config
	base       *gesture.Registry
	controller *gesture.Controller
	dispatcher *plugin.Dispatcher

	overrides map[gesture.Type]store.GestureSetting
	selected  map[gesture.Type]bool
	idle      bool // no gesture selected
	enabled   bool
	last      *gesture.Recognition
	callbacks []func(gesture.Recognition)
	mu        sync.RWMutex

	// pipeline
	stopCh chan struct{}
	doneCh chan struct{}

	// in-flight plugin dispatches
	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
}

// New creates a new App instance with the given configuration. Every gesture
// selected by the settings is enabled and recognition starts enabled; call
// LoadSettings to apply stored overrides.
func New(cfg Config) (*App, error) {
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}

	base := gesture.DefaultRegistry()
	controller, err := gesture.NewController(gesture.ControllerConfig{
		Registry:   base,
		Enabled:    settings.GetEnabledGestures(),
		EvictAfter: settings.GetEvictAfterTicks(),
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		config:     cfg,
		settings:   settings,
		base:       base,
		controller: controller,
		overrides:  make(map[gesture.Type]store.GestureSetting),
		selected:   make(map[gesture.Type]bool),
		enabled:    true,
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, t := range controller.Enabled() {
		a.selected[t] = true
	}

	if cfg.Store != nil && cfg.Plugins != nil {
		a.dispatcher = plugin.NewDispatcher(cfg.Store.Actions(), cfg.Plugins, plugin.NewExecutor(settings.GetPluginTimeout()))
	}

	if err := a.apply(); err != nil {
		cancel()
		return nil, err
	}
	return a, nil
}

// LoadSettings applies the gesture settings and the recognition toggle stored
// in the database.
func (a *App) LoadSettings() error {
	if a.config.Store == nil {
		return nil
	}

	stored, err := a.config.Store.Gestures().List()
	if err != nil {
		return err
	}

	a.mu.Lock()
	for _, s := range stored {
		t := gesture.Type(s.Type)
		if _, ok := a.base.Lookup(t); !ok {
			monitoring.Logf("Ignoring settings for unknown gesture %q", s.Type)
			continue
		}
		a.overrides[t] = *s
	}
	if v, err := a.config.Store.Settings().Get(store.SettingRecognitionEnabled); err == nil {
		if enabled, err := strconv.ParseBool(v); err == nil {
			a.enabled = enabled
		}
	}
	a.mu.Unlock()

	if err := a.apply(); err != nil {
		return err
	}

	monitoring.Logf("Loaded %d gesture settings from database", len(stored))
	return nil
}

// apply rebuilds the registry and the enabled set from the settings layers:
// built-in definitions, then config limits, then stored overrides.
func (a *App) apply() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	limits := a.settings.GestureLimits
	current := a.controller.Registry()
	registry := a.base
	var enabled []gesture.Type
	for _, def := range a.base.Definitions() {
		d := def
		if l, ok := limits[string(def.Type)]; ok {
			d = d.WithLimits(l.WindowSize, l.MaxPauseCount)
		}

		on := a.selected[def.Type]
		if o, ok := a.overrides[def.Type]; ok {
			d = d.WithLimits(o.WindowSize, o.MaxPauseCount)
			on = o.Enabled
		}

		if !sameLimits(d, def) {
			// Keep the running definition when its limits are unchanged so
			// its matchers survive
			if cur, ok := current.Lookup(def.Type); ok && sameLimits(cur, d) {
				d = cur
			}
			var err error
			if registry, err = registry.Replace(d); err != nil {
				return err
			}
		}
		if on {
			enabled = append(enabled, def.Type)
		}
	}

	if err := a.controller.SetRegistry(registry); err != nil {
		return err
	}

	// Configure treats an empty set as every gesture
	a.idle = len(enabled) == 0
	if a.idle {
		a.controller.Reset()
		return nil
	}
	return a.controller.Configure(enabled...)
}

func sameLimits(a, b *gesture.Definition) bool {
	return a.WindowSize == b.WindowSize && a.MaxPauseCount == b.MaxPauseCount
}

// ApplyGestureSetting stores s as the override for its gesture and applies
// it to the running controller.
func (a *App) ApplyGestureSetting(s *store.GestureSetting) error {
	t := gesture.Type(s.Type)
	if _, ok := a.base.Lookup(t); !ok {
		return gesture.ErrUnknownType
	}

	a.mu.Lock()
	a.overrides[t] = *s
	a.mu.Unlock()

	if err := a.apply(); err != nil {
		return err
	}

	monitoring.Logf("Applied settings for %s (enabled=%t window=%d pause=%d)", t, s.Enabled, s.WindowSize, s.MaxPauseCount)
	return nil
}

// Registry returns the gesture definitions in use, with effective limits.
func (a *App) Registry() *gesture.Registry {
	return a.controller.Registry()
}

// Enabled returns the gesture types being matched, in registry order.
func (a *App) Enabled() []gesture.Type {
	a.mu.RLock()
	idle := a.idle
	a.mu.RUnlock()
	if idle {
		return []gesture.Type{}
	}
	return a.controller.Enabled()
}

// SetEnabled turns recognition on or off and persists the choice. Turning
// recognition off drops every partial match.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()

	if !enabled {
		a.controller.Reset()
	}

	if a.config.Store != nil {
		if err := a.config.Store.Settings().Set(store.SettingRecognitionEnabled, strconv.FormatBool(enabled)); err != nil {
			monitoring.Logf("Failed to persist recognition toggle: %v", err)
		}
	}
	if a.config.Broadcaster != nil {
		a.config.Broadcaster.Broadcast(server.EventStatus, map[string]bool{"enabled": enabled})
	}
}

// IsEnabled returns whether gesture recognition is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// RegisterGestureCallback registers a function called for every recognition.
func (a *App) RegisterGestureCallback(cb func(gesture.Recognition)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.callbacks = append(a.callbacks, cb)
}

// LastRecognition returns the most recent recognition, if any.
func (a *App) LastRecognition() (gesture.Recognition, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.last == nil {
		return gesture.Recognition{}, false
	}
	return *a.last, true
}

// Controller returns the gesture controller.
func (a *App) Controller() *gesture.Controller {
	return a.controller
}

// Process feeds one frame of bodies through the controller and handles the
// resulting recognitions. It returns nil while recognition is disabled.
func (a *App) Process(bodies []skeleton.Body) []gesture.Recognition {
	if a.config.Broadcaster != nil {
		a.config.Broadcaster.Broadcast(server.EventBodies, bodies)
	}

	a.mu.RLock()
	skip := !a.enabled || a.idle
	a.mu.RUnlock()
	if skip {
		return nil
	}

	recs := a.controller.Update(bodies)
	for _, rec := range recs {
		a.handleRecognition(rec)
	}
	return recs
}

// handleRecognition logs, records, broadcasts and dispatches a recognition.
func (a *App) handleRecognition(rec gesture.Recognition) {
	monitoring.Logf("Gesture recognized: %s (body %d)", rec.Type, rec.TrackingID)

	if a.config.Store != nil {
		err := a.config.Store.Recognitions().Create(&store.Recognition{
			GestureType: string(rec.Type),
			TrackingID:  rec.TrackingID,
			Tick:        rec.Tick,
		})
		if err != nil {
			monitoring.Logf("Failed to record recognition: %v", err)
		}
	}

	if a.config.Broadcaster != nil {
		a.config.Broadcaster.Broadcast(server.EventRecognition, rec)
	}

	a.mu.Lock()
	a.last = &rec
	callbacks := slices.Clone(a.callbacks)
	a.mu.Unlock()

	for _, cb := range callbacks {
		cb(rec)
	}

	if a.dispatcher != nil {
		a.inflight.Add(1)
		go func() {
			defer a.inflight.Done()
			a.executeActions(rec)
		}()
	}
}

// executeActions runs the plugin actions bound to rec.
func (a *App) executeActions(rec gesture.Recognition) {
	outcomes, err := a.dispatcher.Dispatch(a.ctx, rec)
	for _, out := range outcomes {
		if out.Err == nil {
			monitoring.Logf("Action %s/%s executed for %s", out.Plugin, out.Action, rec.Type)
		}
	}
	if err != nil {
		monitoring.Logf("Action dispatch for %s failed: %v", rec.Type, err)
	}
}

// Wait blocks until every in-flight plugin dispatch has finished.
func (a *App) Wait() {
	a.inflight.Wait()
}
