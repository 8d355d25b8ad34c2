package features

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/lunixbochs/struc"

	"github.com/char5742/mts-bridge/internal/event"
	"github.com/char5742/mts-bridge/internal/mts"
)

func testOptions() TouchScreenOptions {
	return TouchScreenOptions{
		Name:           "test",
		MaxSlots:       10,
		MaxPressure:    0x400,
		TouchMajorMax:  0x7FFF,
		TouchMinorMax:  0x7FFF,
		OrientationMin: -90,
		OrientationMax: 90,
	}
}

func TestTouchScreenCapabilities(t *testing.T) {
	keys, axes := touchScreenCapabilities(testOptions())

	wantKeys := map[int]bool{event.BtnTouch: true, event.BtnToolPen: true, event.BtnToolRubber: true, event.BtnStylus: true}
	for _, k := range keys {
		delete(wantKeys, k)
	}
	if len(wantKeys) != 0 {
		t.Fatalf("missing keys %v", wantKeys)
	}

	ranges := map[int]absAxis{}
	for _, a := range axes {
		ranges[a.code] = a
	}
	checks := []absAxis{
		{event.AbsMtSlot, 0, 10},
		{event.AbsMtTrackingId, 0, 11},
		{event.AbsMtPositionX, 0, mts.AxisMax},
		{event.AbsMtPressure, 0, 0x400},
		{event.AbsMtOrientation, -90, 90},
		{event.AbsMtToolType, 0, event.MtToolMax},
	}
	for _, want := range checks {
		if got := ranges[want.code]; got != want {
			t.Errorf("axis %#x = %+v, want %+v", want.code, got, want)
		}
	}
}

func TestTouchScreenUserDevLayout(t *testing.T) {
	opts := testOptions()
	_, axes := touchScreenCapabilities(opts)
	dev := touchScreenUserDev(opts, axes)

	var buf bytes.Buffer
	if err := struc.PackWithOptions(&buf, &dev, packOptions); err != nil {
		t.Fatalf("pack: %v", err)
	}
	// name[80] + input_id + ff_effects_max + absmax/absmin/absfuzz/absflat[64]
	if buf.Len() != 80+8+4+4*64*4 {
		t.Fatalf("uinput_user_dev size = %d", buf.Len())
	}
	b := buf.Bytes()
	if string(b[:4]) != "test" || b[4] != 0 {
		t.Fatalf("name = %q", b[:8])
	}
	absmaxSlot := 92 + 4*event.AbsMtSlot
	if got := int32(binary.LittleEndian.Uint32(b[absmaxSlot:])); got != 10 {
		t.Fatalf("absmax[ABS_MT_SLOT] = %d", got)
	}
}

func TestTouchScreenEmit(t *testing.T) {
	var buf bytes.Buffer
	ts := &TouchScreen{w: &buf, now: func() time.Time { return time.Unix(10, 5000) }}
	if err := ts.Emit(event.Abs, event.AbsMtTrackingId, -1); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	b := buf.Bytes()
	if len(b) != eventSize {
		t.Fatalf("event size = %d", len(b))
	}
	if binary.LittleEndian.Uint64(b[0:]) != 10 || binary.LittleEndian.Uint64(b[8:]) != 5 {
		t.Fatalf("timestamp = %v", b[:16])
	}
	if binary.LittleEndian.Uint16(b[16:]) != event.Abs || binary.LittleEndian.Uint16(b[18:]) != event.AbsMtTrackingId {
		t.Fatalf("type/code = %v", b[16:20])
	}
	if int32(binary.LittleEndian.Uint32(b[20:])) != -1 {
		t.Fatalf("value = %v", b[20:])
	}
	if err := ts.Close(); err != nil {
		t.Fatalf("Close without device: %v", err)
	}
}

func TestSourceDecodeScalesToDisplay(t *testing.T) {
	var stream bytes.Buffer
	ts := &TouchScreen{w: &stream, now: time.Now}
	ts.Emit(event.Abs, event.AbsMtTrackingId, 9)
	ts.Emit(event.Abs, event.AbsMtPositionX, 4095)
	ts.Emit(event.Abs, event.AbsMtPositionY, 0)
	ts.Emit(event.Syn, event.SynReport, 0)

	src := &TouchSource{}
	src.rangeX.Maximum = 4095
	src.rangeY.Maximum = 4095
	var frames [][]mts.TouchSample
	if err := src.decode(&stream, 1920, 1080, func(s []mts.TouchSample) { frames = append(frames, s) }); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(frames) != 1 || len(frames[0]) != 1 {
		t.Fatalf("frames = %+v", frames)
	}
	if s := frames[0][0]; s.ID != 9 || s.X != 1919 || s.Y != 0 || s.Phase != mts.PhaseBegin {
		t.Fatalf("sample = %+v", s)
	}
}
