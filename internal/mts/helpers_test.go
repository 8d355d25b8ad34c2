package mts

import (
	"errors"
	"testing"
	"time"

	"github.com/char5742/mts-bridge/internal/event"
)

// identityExtent を幅と高さに使うとディスプレイ座標がそのまま軸の値になる
const identityExtent = AxisMax + 1

type fixedGeometry struct {
	width, height int
	err           error
}

func (g fixedGeometry) DisplaySize(int) (int, int, error) {
	return g.width, g.height, g.err
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestEngine(capacity int) (*Engine, *event.Recorder, *testClock) {
	rec := &event.Recorder{}
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	engine := NewEngine(rec, fixedGeometry{width: identityExtent, height: identityExtent}, Options{
		Capacity: capacity,
		Now:      clock.Now,
	})
	return engine, rec, clock
}

func absEv(code uint16, value int32) event.Event {
	return event.Event{Type: event.Abs, Code: code, Value: value}
}

func keyEv(code uint16, value int32) event.Event {
	return event.Event{Type: event.Key, Code: code, Value: value}
}

var syn = event.Event{Type: event.Syn, Code: event.SynReport}

func expectEvents(t *testing.T, rec *event.Recorder, want ...event.Event) {
	t.Helper()
	if len(rec.Events) != len(want) {
		t.Fatalf("got %d events %v, want %d %v", len(rec.Events), rec.Events, len(want), want)
	}
	for i := range want {
		if rec.Events[i] != want[i] {
			t.Fatalf("event %d = %v, want %v (all: %v)", i, rec.Events[i], want[i], rec.Events)
		}
	}
}

func expectErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want %v", err, target)
	}
}

func mustOK(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func touch(id PointerID, phase Phase, x, y int, pressure int32) TouchSample {
	return TouchSample{ID: id, Phase: phase, X: x, Y: y, Pressure: pressure}
}

// checkProtocol はイベント列を protocol B の受信側として解釈し、
// スロット選択とトラッキングIDの整合性を検証する
func checkProtocol(t *testing.T, events []event.Event, slots int) {
	t.Helper()
	current := NoSlot
	active := make([]bool, slots)
	for i, ev := range events {
		if ev.Type == event.Abs && ev.Code == event.AbsMtSlot {
			current = int(ev.Value)
			continue
		}
		if ev.Type == event.Syn {
			continue
		}
		if current == NoSlot {
			t.Fatalf("event %d %v sent without a selected slot", i, ev)
		}
		if ev.Type == event.Abs && ev.Code == event.AbsMtTrackingId {
			if ev.Value == event.TrackingIDRelease {
				if !active[current] {
					t.Fatalf("event %d releases idle slot %d", i, current)
				}
				active[current] = false
				current = NoSlot
				continue
			}
			if active[current] {
				t.Fatalf("event %d acquires busy slot %d", i, current)
			}
			active[current] = true
			continue
		}
		if !active[current] {
			t.Fatalf("event %d %v targets idle slot %d", i, ev, current)
		}
	}
}
