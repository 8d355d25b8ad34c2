package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/char5742/mts-bridge/internal/config"
	"github.com/char5742/mts-bridge/internal/event"
	"github.com/char5742/mts-bridge/internal/mts"
)

// recordingDevice はイベントをメモリに記録する仮想デバイス
type recordingDevice struct {
	event.Recorder
	closed bool
}

func (d *recordingDevice) Close() error {
	d.closed = true
	return nil
}

func newTestServer(t *testing.T) (*Server, *BridgeService, *recordingDevice) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Motion.SmoothingFactor = 0
	device := &recordingDevice{}
	service := NewBridgeService(cfg, func(*config.Config) (Device, error) { return device, nil })
	server := NewServer(cfg, filepath.Join(t.TempDir(), "config.toml"), 0, service)
	return server, service, device
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var resp map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

// events はエンジンのゴルーチン上で記録済みイベントを写し取る
func events(t *testing.T, service *BridgeService, device *recordingDevice) []event.Event {
	t.Helper()
	var out []event.Event
	if err := service.Call(context.Background(), func(*mts.Engine) error {
		out = append(out, device.Events...)
		return nil
	}); err != nil {
		t.Fatalf("call: %v", err)
	}
	return out
}

func TestHealthAndLifecycle(t *testing.T) {
	server, service, device := newTestServer(t)
	h := server.Handler()

	if rec, resp := doJSON(t, h, "GET", "/api/health", nil); rec.Code != http.StatusOK || resp["status"] != "ok" {
		t.Fatalf("health = %d %v", rec.Code, resp)
	}
	if rec, _ := doJSON(t, h, "POST", "/api/touch", touchRequest{Samples: []mts.TouchSample{{ID: 1, Pressure: 1}}}); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("touch before start = %d", rec.Code)
	}

	if _, resp := doJSON(t, h, "POST", "/api/service/start", nil); resp["status"] != "started" {
		t.Fatalf("start = %v", resp)
	}
	if _, resp := doJSON(t, h, "POST", "/api/service/start", nil); resp["status"] != "already_running" {
		t.Fatalf("second start = %v", resp)
	}

	rec, resp := doJSON(t, h, "POST", "/api/touch", map[string]interface{}{
		"display_id": 0,
		"samples":    []map[string]interface{}{{"id": 7, "x": 10, "y": 10, "pressure": 3, "phase": "down"}},
	})
	if rec.Code != http.StatusOK || resp["status"] != "ok" {
		t.Fatalf("touch = %d %v", rec.Code, resp)
	}
	status := service.Status(context.Background())
	if !status.Running || len(status.Engine.Slots) != 1 || status.Engine.Slots[0].ID != 7 {
		t.Fatalf("status = %+v", status)
	}

	if _, resp := doJSON(t, h, "POST", "/api/service/stop", nil); resp["status"] != "stopped" {
		t.Fatalf("stop = %v", resp)
	}
	if !device.closed {
		t.Fatalf("device not closed")
	}
	// 停止時に押下中の接触を解放している
	ids := device.Values(event.Abs, event.AbsMtTrackingId)
	if len(ids) != 2 || ids[1] != event.TrackingIDRelease {
		t.Fatalf("tracking ids = %v", ids)
	}
	if _, resp := doJSON(t, h, "POST", "/api/service/stop", nil); resp["status"] != "not_running" {
		t.Fatalf("second stop = %v", resp)
	}
}

func TestPointerEndpoints(t *testing.T) {
	server, service, device := newTestServer(t)
	h := server.Handler()
	if err := service.Start(); err != nil {
		t.Fatal(err)
	}
	defer service.Stop()

	if _, resp := doJSON(t, h, "POST", "/api/mouse", map[string]interface{}{"x": 5, "y": 5, "down": true}); resp["status"] != "ok" {
		t.Fatalf("mouse = %v", resp)
	}
	if _, resp := doJSON(t, h, "POST", "/api/mouse", map[string]interface{}{"x": 5, "y": 5}); resp["status"] != "ok" {
		t.Fatalf("mouse up = %v", resp)
	}

	rec, resp := doJSON(t, h, "POST", "/api/pen", map[string]interface{}{"id": 1, "x": 1, "y": 1, "pressure": 5, "rubber": true, "phase": "down"})
	if rec.Code != http.StatusOK || resp["status"] != "ok" {
		t.Fatalf("pen = %d %v", rec.Code, resp)
	}
	if _, resp := doJSON(t, h, "POST", "/api/pen", map[string]interface{}{"id": 2, "pressure": 5, "phase": "down"}); resp["status"] != "dropped" {
		t.Fatalf("second pen = %v", resp)
	}

	rec, _ = doJSON(t, h, "POST", "/api/touch", map[string]interface{}{
		"display_id": 5,
		"samples":    []map[string]interface{}{{"id": 1, "pressure": 1}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown display = %d", rec.Code)
	}
	if rec, _ := doJSON(t, h, "POST", "/api/touch", "not json"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad body = %d", rec.Code)
	}

	evs := events(t, service, device)
	penSlot := int32(config.DefaultConfig().TouchScreen.MaxSlots)
	var sawPen bool
	for _, ev := range evs {
		if ev.Type == event.Abs && ev.Code == event.AbsMtTrackingId && ev.Value == penSlot {
			sawPen = true
		}
	}
	if !sawPen {
		t.Fatalf("pen slot never acquired: %v", evs)
	}
}

func TestConfigEndpoints(t *testing.T) {
	server, _, _ := newTestServer(t)
	h := server.Handler()

	update := map[string]interface{}{
		"Displays": map[string]interface{}{
			"Screens": []map[string]interface{}{{"ID": 0, "Width": 800, "Height": 600}},
		},
	}
	if rec, resp := doJSON(t, h, "PUT", "/api/config", update); rec.Code != http.StatusOK {
		t.Fatalf("update = %d %v", rec.Code, resp)
	}
	if got := server.GetConfig().Displays.Screens[0].Width; got != 800 {
		t.Fatalf("width = %d", got)
	}
	if got := server.GetConfig().TouchScreen.MaxSlots; got != 10 {
		t.Fatalf("unrelated setting changed: %d", got)
	}

	invalid := map[string]interface{}{"TouchScreen": map[string]interface{}{"MaxSlots": 0}}
	if rec, _ := doJSON(t, h, "PUT", "/api/config", invalid); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid update = %d", rec.Code)
	}

	rec, resp := doJSON(t, h, "POST", "/api/config/save", map[string]string{})
	if rec.Code != http.StatusOK {
		t.Fatalf("save = %d %v", rec.Code, resp)
	}
	saved, err := config.LoadConfig(resp["path"].(string))
	if err != nil || saved.Displays.Screens[0].Width != 800 {
		t.Fatalf("saved config = %+v, %v", saved, err)
	}
}

func TestTaskResult(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ErrServiceStopped, http.StatusServiceUnavailable},
		{mts.ErrQueueFull, http.StatusTooManyRequests},
		{errors.Join(mts.ErrUnknownSlot, mts.ErrTransport), http.StatusBadGateway},
		{mts.ErrNoDisplay, http.StatusBadRequest},
		{mts.ErrPoolExhausted, http.StatusOK},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got, _ := taskResult(tt.err); got != tt.want {
			t.Errorf("taskResult(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestStream(t *testing.T) {
	server, service, _ := newTestServer(t)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// 停止中はキューに入れられない
	if err := conn.WriteJSON(map[string]interface{}{"type": "touch"}); err != nil {
		t.Fatal(err)
	}
	var se streamError
	if err := conn.ReadJSON(&se); err != nil || se.Seq != 0 || se.Error == "" {
		t.Fatalf("stream error = %+v, %v", se, err)
	}

	if err := service.Start(); err != nil {
		t.Fatal(err)
	}
	defer service.Stop()

	frames := []map[string]interface{}{
		{"type": "touch", "samples": []map[string]interface{}{{"id": 1, "x": 1, "y": 1, "pressure": 1, "phase": "down"}}},
		{"type": "touch", "samples": []map[string]interface{}{{"id": 2, "x": 2, "y": 2, "pressure": 1, "phase": "down"}}},
		{"type": "pen", "pen": map[string]interface{}{"id": 3, "pressure": 1, "phase": "down"}},
	}
	for _, f := range frames {
		if err := conn.WriteJSON(f); err != nil {
			t.Fatal(err)
		}
	}
	if err := conn.WriteJSON(map[string]interface{}{"type": "wheel"}); err != nil {
		t.Fatal(err)
	}
	if err := conn.ReadJSON(&se); err != nil || se.Seq != 4 {
		t.Fatalf("unknown type error = %+v, %v", se, err)
	}

	// 不明なメッセージの応答より前に3フレームはキューに入っている
	status := service.Status(context.Background())
	if status.Engine == nil || len(status.Engine.Slots) != 3 {
		t.Fatalf("status = %+v", status.Engine)
	}
}

func TestUpdateConfigWhileRunning(t *testing.T) {
	server, service, _ := newTestServer(t)
	if err := service.Start(); err != nil {
		t.Fatal(err)
	}
	defer service.Stop()

	cfg := *server.GetConfig()
	cfg.Displays.Screens = []config.Screen{{ID: 0, Width: 10, Height: 10}, {ID: 3, Width: 10, Height: 10}}
	server.UpdateConfig(&cfg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := service.Call(ctx, func(e *mts.Engine) error {
		return e.OnTouchFrame(3, []mts.TouchSample{{ID: 1, Pressure: 1, Phase: mts.PhaseBegin}})
	})
	if err != nil {
		t.Fatalf("touch on added display: %v", err)
	}
}
