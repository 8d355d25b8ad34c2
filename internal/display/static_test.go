package display

import (
	"errors"
	"testing"

	"github.com/char5742/mts-bridge/internal/config"
)

func TestStatic(t *testing.T) {
	s := NewStatic([]config.Screen{
		{ID: 1, Width: 1024, Height: 768},
		{ID: 0, Width: 1920, Height: 1080},
	})

	w, h, err := s.DisplaySize(1)
	if err != nil || w != 1024 || h != 768 {
		t.Fatalf("DisplaySize(1) = %d, %d, %v", w, h, err)
	}
	if _, _, err := s.DisplaySize(2); !errors.Is(err, ErrUnknownDisplay) {
		t.Fatalf("error = %v, want %v", err, ErrUnknownDisplay)
	}
	if got := s.Screens(); len(got) != 2 || got[0].ID != 0 || got[1].ID != 1 {
		t.Fatalf("Screens() = %+v", got)
	}

	s.Update([]config.Screen{{ID: 2, Width: 10, Height: 20}})
	if _, _, err := s.DisplaySize(1); err == nil {
		t.Fatalf("stale display still registered")
	}
	if w, h, _ := s.DisplaySize(2); w != 10 || h != 20 {
		t.Fatalf("DisplaySize(2) = %d, %d", w, h)
	}
}

func TestNewWithoutX11UsesConfig(t *testing.T) {
	s := New(config.DisplaysConfig{Screens: []config.Screen{{ID: 0, Width: 640, Height: 480}}})
	if w, h, err := s.DisplaySize(0); err != nil || w != 640 || h != 480 {
		t.Fatalf("DisplaySize(0) = %d, %d, %v", w, h, err)
	}
}
