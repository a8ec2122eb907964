package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ayusman/mudra/internal/binding"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/hand"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls []call
	resp  *Response
	err   error
	done  chan struct{}
}

type call struct {
	plugin string
	req    Request
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{resp: &Response{Success: true}, done: make(chan struct{}, 16)}
}

func (f *fakeRunner) Execute(_ context.Context, p *Plugin, req *Request) (*Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{p.Manifest.Name, *req})
	resp, err := f.resp, f.err
	f.mu.Unlock()
	f.done <- struct{}{}
	return resp, err
}

func (f *fakeRunner) wait(t *testing.T, n int) []call {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for call %d", i+1)
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func bundledManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	writeManifest(t, dir, Manifest{Name: KeyboardPlugin, Executable: "keyboard"})
	writeManifest(t, dir, Manifest{Name: SystemControlPlugin, Executable: "system-control"})
	m := NewManager(dir, nil)
	require.NoError(t, m.Discover())
	return m
}

func fired(name string) gesture.Event {
	return gesture.Event{ID: "e1", Type: gesture.EventMotion, Gesture: name, Hand: hand.Left, Confidence: 0.82}
}

func TestActionExecutor_RoutesAndForwards(t *testing.T) {
	runner := newFakeRunner()
	a := NewActionExecutor(bundledManager(t), runner, ActionConfig{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	require.NoError(t, a.Execute(binding.Binding{ID: "b1", Gesture: "swipe_up", Action: binding.Scroll("up")}, fired("swipe_up")))
	require.NoError(t, a.Execute(binding.Binding{ID: "b2", Gesture: "fist", Action: binding.Simple(binding.ActionMuteToggle)}, fired("fist")))

	calls := runner.wait(t, 2)
	require.Len(t, calls, 2)
	assert.Equal(t, KeyboardPlugin, calls[0].plugin)
	assert.Equal(t, Request{
		Action:     "SCROLL",
		Direction:  "up",
		Gesture:    "swipe_up",
		Hand:       "left",
		Confidence: 0.82,
		Binding:    "b1",
	}, calls[0].req)
	assert.Equal(t, SystemControlPlugin, calls[1].plugin)
	assert.Equal(t, "MUTE_TOGGLE", calls[1].req.Action)
}

func TestActionExecutor_CustomPayload(t *testing.T) {
	runner := newFakeRunner()
	a := NewActionExecutor(bundledManager(t), runner, ActionConfig{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	payload := json.RawMessage(`{"shortcut":"cmd+shift+4"}`)
	require.NoError(t, a.Execute(binding.Binding{ID: "c", Gesture: "rock", Action: binding.Custom(payload)}, fired("rock")))

	calls := runner.wait(t, 1)
	assert.JSONEq(t, string(payload), string(calls[0].req.Payload))
}

func TestActionExecutor_RouteOverride(t *testing.T) {
	a := NewActionExecutor(bundledManager(t), newFakeRunner(), ActionConfig{
		Routes: map[binding.ActionType]string{binding.ActionZoom: SystemControlPlugin},
	}, nil)

	got, ok := a.Route(binding.ActionZoom)
	assert.True(t, ok)
	assert.Equal(t, SystemControlPlugin, got)

	got, _ = a.Route(binding.ActionNavigate)
	assert.Equal(t, SystemControlPlugin, got)
	got, _ = a.Route(binding.ActionSelect)
	assert.Equal(t, KeyboardPlugin, got)
}

func TestActionExecutor_Errors(t *testing.T) {
	m := NewManager(t.TempDir(), nil)
	require.NoError(t, m.Discover())
	a := NewActionExecutor(m, newFakeRunner(), ActionConfig{}, nil)

	err := a.Execute(binding.Binding{ID: "b", Action: binding.Simple(binding.ActionSelect)}, fired("fist"))
	assert.ErrorIs(t, err, ErrPluginNotFound)

	a.routes = map[binding.ActionType]string{}
	err = a.Execute(binding.Binding{ID: "b", Action: binding.Simple(binding.ActionSelect)}, fired("fist"))
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestActionExecutor_RateLimited(t *testing.T) {
	a := NewActionExecutor(bundledManager(t), newFakeRunner(), ActionConfig{RatePerSecond: 0.001, Burst: 2}, nil)
	b := binding.Binding{ID: "b", Action: binding.Simple(binding.ActionSelect)}

	require.NoError(t, a.Execute(b, fired("fist")))
	require.NoError(t, a.Execute(b, fired("fist")))
	assert.ErrorIs(t, a.Execute(b, fired("fist")), ErrRateLimited)
}

func TestActionExecutor_UnroutableKeepsRateBudget(t *testing.T) {
	a := NewActionExecutor(bundledManager(t), newFakeRunner(), ActionConfig{
		RatePerSecond: 0.001,
		Burst:         1,
		Routes:        map[binding.ActionType]string{binding.ActionNavigate: "missing"},
	}, nil)

	nav := binding.Binding{ID: "nav", Action: binding.Navigate("home")}
	assert.ErrorIs(t, a.Execute(nav, fired("fist")), ErrPluginNotFound)
	delete(a.routes, binding.ActionNavigate)
	assert.ErrorIs(t, a.Execute(nav, fired("fist")), ErrNoRoute)

	sel := binding.Binding{ID: "sel", Action: binding.Simple(binding.ActionSelect)}
	require.NoError(t, a.Execute(sel, fired("fist")))
	assert.ErrorIs(t, a.Execute(sel, fired("fist")), ErrRateLimited)
}

func TestActionExecutor_QueueFull(t *testing.T) {
	a := NewActionExecutor(bundledManager(t), newFakeRunner(), ActionConfig{QueueSize: 1}, nil)
	b := binding.Binding{ID: "b", Action: binding.Simple(binding.ActionSelect)}

	require.NoError(t, a.Execute(b, fired("fist")))
	assert.ErrorIs(t, a.Execute(b, fired("fist")), ErrQueueFull)
}

func TestActionExecutor_LogsPluginFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	runner := newFakeRunner()
	a := NewActionExecutor(bundledManager(t), runner, ActionConfig{}, zap.New(core))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	b := binding.Binding{ID: "b", Action: binding.Simple(binding.ActionSelect)}

	runner.mu.Lock()
	runner.resp = &Response{Success: false, Error: "no accessibility permission"}
	runner.mu.Unlock()
	require.NoError(t, a.Execute(b, fired("fist")))
	runner.wait(t, 1)

	runner.mu.Lock()
	runner.resp, runner.err = nil, errors.New("exec: not found")
	runner.mu.Unlock()
	require.NoError(t, a.Execute(b, fired("fist")))
	runner.wait(t, 1)

	assert.Eventually(t, func() bool { return logs.Len() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, logs.FilterMessage("plugin reported failure").Len())
	assert.Equal(t, 1, logs.FilterMessage("plugin call failed").Len())
}
