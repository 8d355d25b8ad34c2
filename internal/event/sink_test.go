package event

import (
	"errors"
	"testing"
)

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	_ = r.Emit(Abs, AbsMtSlot, 2)
	_ = r.Emit(Abs, AbsMtTrackingId, 2)
	_ = r.Emit(Abs, AbsMtTrackingId, TrackingIDRelease)
	_ = r.Emit(Syn, SynReport, 0)

	if got := r.Count(Abs, AbsMtTrackingId); got != 2 {
		t.Fatalf("Count(tracking id) = %d, want 2", got)
	}
	values := r.Values(Abs, AbsMtTrackingId)
	if len(values) != 2 || values[0] != 2 || values[1] != -1 {
		t.Fatalf("Values(tracking id) = %v", values)
	}
	if got := r.Events[0].String(); got != "(0x3, 0x2f, 2)" {
		t.Fatalf("String() = %q", got)
	}

	r.Reset()
	if len(r.Events) != 0 {
		t.Fatalf("Reset left %d events", len(r.Events))
	}

	failure := errors.New("write failed")
	r.Err = failure
	if err := r.Emit(Syn, SynReport, 0); !errors.Is(err, failure) {
		t.Fatalf("Emit error = %v, want %v", err, failure)
	}
	if len(r.Events) != 1 {
		t.Fatalf("failed Emit should still record the event")
	}
}
