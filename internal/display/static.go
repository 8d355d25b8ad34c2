package display

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/char5742/mts-bridge/internal/config"
)

// ErrUnknownDisplay は大きさが登録されていないディスプレイを指定したときのエラー
var ErrUnknownDisplay = errors.New("未登録のディスプレイです")

type size struct {
	width, height int
}

// Static は設定ファイルで指定したディスプレイの大きさを返す。
// 設定の再読み込みに備えて Update は別のゴルーチンから呼んでもよい
type Static struct {
	mutex   sync.RWMutex
	screens map[int]size
}

func NewStatic(screens []config.Screen) *Static {
	s := &Static{}
	s.Update(screens)
	return s
}

// Update は登録内容を置き換える
func (s *Static) Update(screens []config.Screen) {
	m := make(map[int]size, len(screens))
	for _, sc := range screens {
		m[sc.ID] = size{width: sc.Width, height: sc.Height}
	}
	s.mutex.Lock()
	s.screens = m
	s.mutex.Unlock()
}

func (s *Static) DisplaySize(displayID int) (int, int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	sz, ok := s.screens[displayID]
	if !ok {
		return 0, 0, fmt.Errorf("%d: %w", displayID, ErrUnknownDisplay)
	}
	return sz.width, sz.height, nil
}

// Screens は登録されているディスプレイをID順に返す
func (s *Static) Screens() []config.Screen {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	screens := make([]config.Screen, 0, len(s.screens))
	for id, sz := range s.screens {
		screens = append(screens, config.Screen{ID: id, Width: sz.width, Height: sz.height})
	}
	sort.Slice(screens, func(i, j int) bool { return screens[i].ID < screens[j].ID })
	return screens
}
