package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayusman/natya/internal/gesture"
	"github.com/ayusman/natya/internal/store"
)

// ActionLister returns the actions bound to a gesture type.
type ActionLister interface {
	ListByGestureType(gestureType string) ([]*store.Action, error)
}

// Runner executes a plugin request. *Executor implements it.
type Runner interface {
	Execute(ctx context.Context, plugin *Plugin, req *Request) (*Response, error)
}

// Outcome is the result of running one bound action.
type Outcome struct {
	ActionID string
	Plugin   string
	Action   string
	Response *Response
	Err      error
}

// Dispatcher runs the plugin actions bound to recognized gestures.
type Dispatcher struct {
	actions ActionLister
	plugins *Manager
	runner  Runner
}

// NewDispatcher creates a Dispatcher resolving bindings from actions and
// plugins from the manager.
func NewDispatcher(actions ActionLister, plugins *Manager, runner Runner) *Dispatcher {
	return &Dispatcher{
		actions: actions,
		plugins: plugins,
		runner:  runner,
	}
}

// Dispatch runs every enabled action bound to the recognized gesture, in
// binding order. A failing action does not stop the others; the returned error
// joins every failure.
func (d *Dispatcher) Dispatch(ctx context.Context, rec gesture.Recognition) ([]Outcome, error) {
	bound, err := d.actions.ListByGestureType(string(rec.Type))
	if err != nil {
		return nil, fmt.Errorf("list actions for %s: %w", rec.Type, err)
	}

	params, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal recognition: %w", err)
	}

	var outcomes []Outcome
	var errs []error
	for _, a := range bound {
		if !a.Enabled {
			continue
		}

		out := Outcome{ActionID: a.ID, Plugin: a.PluginName, Action: a.ActionName}
		out.Response, out.Err = d.run(ctx, a, rec, params)
		if out.Err != nil {
			errs = append(errs, fmt.Errorf("action %s (%s/%s): %w", a.ID, a.PluginName, a.ActionName, out.Err))
		}
		outcomes = append(outcomes, out)
	}

	return outcomes, errors.Join(errs...)
}

func (d *Dispatcher) run(ctx context.Context, a *store.Action, rec gesture.Recognition, params json.RawMessage) (*Response, error) {
	plugin, err := d.plugins.Get(a.PluginName)
	if err != nil {
		return nil, err
	}
	if !plugin.Manifest.HasAction(a.ActionName) {
		return nil, fmt.Errorf("plugin %s has no action %q", a.PluginName, a.ActionName)
	}

	config := a.Config
	if len(config) == 0 {
		config = json.RawMessage("{}")
	}

	resp, err := d.runner.Execute(ctx, plugin, &Request{
		Action:     a.ActionName,
		Gesture:    string(rec.Type),
		TrackingID: rec.TrackingID,
		Config:     config,
		Params:     params,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return resp, fmt.Errorf("plugin reported failure: %s", resp.Error)
	}
	return resp, nil
}
