package mts

import (
	"encoding/json"
	"testing"
)

func TestButtonsState(t *testing.T) {
	state := CreateButtonsState(true, false, true)
	if state != 0b101 {
		t.Fatalf("CreateButtonsState = %b, want 101", state)
	}
	if !state.IsTouchDown() || state.ShouldSkipSync() || !state.IsSecondFinger() {
		t.Fatalf("flags decoded wrong from %b", state)
	}
	if CreateButtonsState(false, true, false) != ButtonSkipSync {
		t.Fatalf("skip sync should be bit 1")
	}
}

func TestParsePhase(t *testing.T) {
	tests := map[string]Phase{
		"":        PhaseAuto,
		"begin":   PhaseBegin,
		"Down":    PhaseBegin,
		"update":  PhaseUpdate,
		"move":    PhaseUpdate,
		" end ":   PhaseEnd,
		"release": PhaseEnd,
	}
	for in, want := range tests {
		got, err := ParsePhase(in)
		if err != nil {
			t.Fatalf("ParsePhase(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParsePhase(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParsePhase("hover"); err == nil {
		t.Fatalf("ParsePhase(hover) should fail")
	}
}

func TestTouchSampleJSON(t *testing.T) {
	var s TouchSample
	if err := json.Unmarshal([]byte(`{"id":7,"x":10,"y":20,"pressure":3,"phase":"begin"}`), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.ID != 7 || s.X != 10 || s.Y != 20 || s.Pressure != 3 || s.Phase != PhaseBegin {
		t.Fatalf("decoded %+v", s)
	}
}
