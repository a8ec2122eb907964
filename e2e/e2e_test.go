package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/engine"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
)

const tick = 16 * time.Millisecond

type recordingRunner struct {
	mu    sync.Mutex
	calls []string // plugin name + request
	reqs  []plugin.Request
	done  chan struct{}
}

func (r *recordingRunner) Execute(_ context.Context, p *plugin.Plugin, req *plugin.Request) (*plugin.Response, error) {
	r.mu.Lock()
	r.calls = append(r.calls, p.Manifest.Name)
	r.reqs = append(r.reqs, *req)
	r.mu.Unlock()
	r.done <- struct{}{}
	return &plugin.Response{Success: true}, nil
}

func (r *recordingRunner) await(t *testing.T) (string, plugin.Request) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a plugin call")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1], r.reqs[len(r.reqs)-1]
}

func (r *recordingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reqs)
}

func installPlugins(t *testing.T, dir string) {
	t.Helper()
	for _, name := range []string{plugin.KeyboardPlugin, plugin.SystemControlPlugin} {
		pdir := filepath.Join(dir, name)
		if err := os.MkdirAll(pdir, 0o755); err != nil {
			t.Fatal(err)
		}
		manifest := `{"name":"` + name + `","version":"1.0.0","executable":"` + name + `"}`
		if err := os.WriteFile(filepath.Join(pdir, "plugin.json"), []byte(manifest), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(tmpDir, "data.db")
	cfg.Plugins.Dir = filepath.Join(tmpDir, "plugins")
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Server.StaticDir = tmpDir
	cfg.Recognition.SmoothingFactor = 0
	cfg.Recognition.EnabledPoses = []string{"spread"}
	cfg.Recognition.EnabledMotions = []string{"swipe_right"}
	installPlugins(t, cfg.Plugins.Dir)

	source := capture.NewLandmarkSource(capture.NewMockCamera(nil, false), detector.NewMockDetector(), capture.SourceConfig{
		SmoothingFactor: cfg.Recognition.SmoothingFactor,
		NoiseThreshold:  cfg.Recognition.NoiseThreshold,
	}, nil)
	driver := engine.NewManualDriver()
	runner := &recordingRunner{done: make(chan struct{}, 16)}

	application, err := app.New(app.Options{Config: cfg, Source: source, Driver: driver, Runner: runner})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	defer application.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go application.Run(ctx)

	ts := httptest.NewServer(application.Handler())
	defer ts.Close()
	client := ts.Client()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	step := func(hands ...detector.HandLandmarks) {
		now = now.Add(tick)
		source.Update(now, hands)
		driver.Step(now)
	}

	call := func(t *testing.T, method, path, body string, want int) *http.Response {
		t.Helper()
		req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("%s %s error = %v", method, path, err)
		}
		if resp.StatusCode != want {
			resp.Body.Close()
			t.Fatalf("%s %s status = %d, want %d", method, path, resp.StatusCode, want)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	feed, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/events", nil)
	if err != nil {
		t.Fatalf("dial event feed: %v", err)
	}
	defer feed.Close()
	for deadline := time.Now().Add(2 * time.Second); application.Hub().Clients() == 0; {
		if time.Now().After(deadline) {
			t.Fatal("event feed client not registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	palm := detector.OpenPalmLandmarks()

	t.Run("CalibratePose", func(t *testing.T) {
		sample, err := json.Marshal(gesture.Sample{Landmarks: palm.Points[:], Handedness: palm.Handedness})
		if err != nil {
			t.Fatal(err)
		}
		call(t, http.MethodPost, "/api/poses/spread/calibrate",
			`{"samples":[`+string(sample)+`,`+string(sample)+`,`+string(sample)+`]}`, http.StatusCreated)

		if _, ok := application.Engine().Catalog().Pose("spread"); !ok {
			t.Fatal("calibrated pose not staged on the engine")
		}
	})

	t.Run("CreateBindings", func(t *testing.T) {
		call(t, http.MethodPost, "/api/bindings",
			`{"id":"confirm","gesture":"spread","action":{"type":"CONFIRM"}}`, http.StatusCreated)
		call(t, http.MethodPost, "/api/bindings",
			`{"id":"scroll","gesture":"swipe_right","hand":"right","action":{"type":"SCROLL","direction":"right"},"cooldownMs":250}`, http.StatusCreated)

		if got := len(application.Dispatcher().Bindings()); got != 2 {
			t.Fatalf("staged bindings = %d, want 2", got)
		}
	})

	t.Run("HeldPoseRunsAction", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			step(palm)
		}

		name, req := runner.await(t)
		if name != plugin.KeyboardPlugin {
			t.Errorf("plugin = %s, want %s", name, plugin.KeyboardPlugin)
		}
		if req.Action != "CONFIRM" || req.Gesture != "spread" || req.Binding != "confirm" {
			t.Errorf("request = %+v", req)
		}
	})

	t.Run("SwipeRunsAction", func(t *testing.T) {
		step() // hand leaves the frame
		base := detector.ThumbsUpLandmarks()
		for i := 0; i < 25; i++ {
			step(base.Translate(0.01*float64(i), 0, 0))
		}

		name, req := runner.await(t)
		if name != plugin.KeyboardPlugin {
			t.Errorf("plugin = %s, want %s", name, plugin.KeyboardPlugin)
		}
		if req.Action != "SCROLL" || req.Direction != "right" || req.Hand != "right" {
			t.Errorf("request = %+v", req)
		}
	})

	t.Run("EventFeed", func(t *testing.T) {
		feed.SetReadDeadline(time.Now().Add(2 * time.Second))
		for {
			var msg server.Message
			if err := feed.ReadJSON(&msg); err != nil {
				t.Fatalf("no swipe_right event on the feed: %v", err)
			}
			if msg.Type == server.MessageEvent && msg.Event != nil && msg.Event.Gesture == "swipe_right" {
				return
			}
		}
	})

	t.Run("History", func(t *testing.T) {
		resp := call(t, http.MethodGet, "/api/history", "", http.StatusOK)
		var body struct {
			History []struct {
				Event    gesture.Event `json:"event"`
				Executed []string      `json:"executed"`
			} `json:"history"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if len(body.History) != 2 {
			t.Fatalf("history length = %d, want 2", len(body.History))
		}
		if body.History[0].Event.Gesture != "swipe_right" || body.History[1].Event.Gesture != "spread" {
			t.Errorf("history order = %s, %s", body.History[0].Event.Gesture, body.History[1].Event.Gesture)
		}
		if len(body.History[0].Executed) != 1 || body.History[0].Executed[0] != "scroll" {
			t.Errorf("executed = %v, want [scroll]", body.History[0].Executed)
		}
	})

	t.Run("DisableStopsRecognition", func(t *testing.T) {
		call(t, http.MethodPut, "/api/enabled", `{"enabled":false}`, http.StatusOK)

		before := runner.count()
		for i := 0; i < 40; i++ {
			step(palm)
		}
		time.Sleep(50 * time.Millisecond)
		if got := runner.count(); got != before {
			t.Errorf("plugin calls after disabling = %d, want %d", got, before)
		}
		if application.Store().Settings().Bool(store.SettingEnabled, true) {
			t.Error("disabled flag not persisted")
		}
	})
}
