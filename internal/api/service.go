package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/char5742/mts-bridge/internal/config"
	"github.com/char5742/mts-bridge/internal/display"
	"github.com/char5742/mts-bridge/internal/event"
	"github.com/char5742/mts-bridge/internal/features"
	"github.com/char5742/mts-bridge/internal/mts"
)

var (
	ErrServiceStopped = errors.New("サービスは実行されていません")
	ErrServiceRunning = errors.New("サービスは既に実行中です")
)

// stopTimeout は停止時に全ポインタを解放するまで待つ時間
const stopTimeout = 2 * time.Second

// Device は仮想タッチスクリーンとして使う Sink
type Device interface {
	event.Sink
	io.Closer
}

// DeviceFactory は設定から仮想タッチスクリーンを作成する
type DeviceFactory func(cfg *config.Config) (Device, error)

// CreateTouchScreen は uinput の仮想タッチスクリーンを作成する
func CreateTouchScreen(cfg *config.Config) (Device, error) {
	ts := cfg.TouchScreen
	if err := features.Preflight(ts.UinputPath); err != nil {
		return nil, err
	}
	return features.CreateTouchScreen(features.TouchScreenOptions{
		Path:           ts.UinputPath,
		Name:           ts.Name,
		MaxSlots:       ts.MaxSlots,
		MaxPressure:    ts.MaxPressure,
		TouchMajorMax:  ts.TouchMajorMax,
		TouchMinorMax:  ts.TouchMinorMax,
		OrientationMin: ts.OrientationMin,
		OrientationMax: ts.OrientationMax,
	})
}

// ServiceStatus はサービスの状態
type ServiceStatus struct {
	Running bool        `json:"running"`
	Engine  *mts.Status `json:"engine,omitempty"`
}

// BridgeService は仮想タッチスクリーンとポインタ変換エンジンの寿命を管理する
type BridgeService struct {
	cfg         *config.Config
	newDevice   DeviceFactory
	statusMutex sync.RWMutex
	running     bool
	device      Device
	geometry    *display.Static
	dispatcher  *mts.Dispatcher
	cancel      context.CancelFunc
	done        chan struct{}
	source      *features.TouchSource

	// 以下はエンジンのゴルーチンからのみ触る
	motion  config.MotionConfig
	filters map[int]*features.MotionFilter
}

// NewBridgeService は新しいサービスを作成する
func NewBridgeService(cfg *config.Config, newDevice DeviceFactory) *BridgeService {
	if newDevice == nil {
		newDevice = CreateTouchScreen
	}
	return &BridgeService{
		cfg:       cfg,
		newDevice: newDevice,
	}
}

// Start はデバイスを作成してイベントループを開始する
func (s *BridgeService) Start() error {
	s.statusMutex.Lock()
	defer s.statusMutex.Unlock()

	if s.running {
		return ErrServiceRunning
	}
	cfg := s.cfg

	device, err := s.newDevice(cfg)
	if err != nil {
		return fmt.Errorf("仮想タッチスクリーンの作成に失敗しました: %v", err)
	}

	s.geometry = display.New(cfg.Displays)
	engine := mts.NewEngine(device, s.geometry, mts.Options{
		Capacity:    cfg.TouchScreen.MaxSlots,
		TTL:         cfg.Engine.ExpirationTTL,
		MaxPressure: cfg.TouchScreen.MaxPressure,

		DebugAssertions: cfg.Engine.DebugAssertions,
	})
	s.device = device
	s.dispatcher = mts.NewDispatcher(engine, cfg.Engine.QueueSize)
	s.motion = cfg.Motion
	s.filters = make(map[int]*features.MotionFilter)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go func(d *mts.Dispatcher, done chan struct{}) {
		defer close(done)
		d.Run(ctx)
	}(s.dispatcher, s.done)

	if cfg.Source.Device != "" {
		if err := s.startSource(ctx, cfg.Source); err != nil {
			log.Printf("warning: タッチスクリーンの転送を開始できません: %v", err)
		}
	}

	s.running = true
	log.Printf("仮想タッチスクリーンを開始しました (スロット数: %d)", cfg.TouchScreen.MaxSlots)
	return nil
}

// startSource はホストのタッチスクリーンを読み取ってエンジンに渡す
func (s *BridgeService) startSource(ctx context.Context, cfg config.SourceConfig) error {
	dev, err := features.FindTouchScreen(cfg.Device)
	if err != nil {
		return err
	}
	width, height, err := s.geometry.DisplaySize(cfg.DisplayID)
	if err != nil {
		return err
	}
	source, err := features.OpenTouchSource(dev.Path, cfg.Grab)
	if err != nil {
		return err
	}
	s.source = source
	log.Printf("タッチスクリーンを転送します: %s (%s)", dev.Name, dev.Path)

	dispatcher := s.dispatcher
	go func() {
		err := source.Run(ctx, width, height, func(samples []mts.TouchSample) {
			if err := dispatcher.Submit(func(e *mts.Engine) error {
				return e.OnTouchFrame(cfg.DisplayID, samples)
			}); err != nil {
				log.Printf("warning: タッチスクリーンのフレームを破棄しました: %v", err)
			}
		})
		if err != nil {
			log.Printf("タッチスクリーンの転送を終了しました: %v", err)
		}
	}()
	return nil
}

// Stop はすべてのポインタを解放し、イベントループとデバイスを停止する
func (s *BridgeService) Stop() error {
	s.statusMutex.Lock()
	defer s.statusMutex.Unlock()

	if !s.running {
		return ErrServiceStopped
	}
	if s.source != nil {
		s.source.Close()
		s.source = nil
	}

	// ゲストに押したままの接触を残さない
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	err := s.dispatcher.CallWait(ctx, func(e *mts.Engine) error { return e.ReleaseAll() })
	cancel()
	if err != nil {
		log.Printf("warning: ポインタの解放に失敗しました: %v", err)
	}

	s.dispatcher.Close()
	s.cancel()
	<-s.done
	s.running = false

	if err := s.device.Close(); err != nil {
		return fmt.Errorf("仮想タッチスクリーンの破棄に失敗しました: %v", err)
	}
	log.Println("仮想タッチスクリーンを停止しました")
	return nil
}

// IsRunning はサービスが実行中かどうかを返す
func (s *BridgeService) IsRunning() bool {
	s.statusMutex.RLock()
	defer s.statusMutex.RUnlock()
	return s.running
}

func (s *BridgeService) currentDispatcher() (*mts.Dispatcher, error) {
	s.statusMutex.RLock()
	defer s.statusMutex.RUnlock()
	if !s.running {
		return nil, ErrServiceStopped
	}
	return s.dispatcher, nil
}

// Submit はタスクをエンジンのキューに入れる。結果は待たない
func (s *BridgeService) Submit(task mts.Task) error {
	d, err := s.currentDispatcher()
	if err != nil {
		return err
	}
	return d.Submit(task)
}

// Call はタスクをエンジンのキューに入れて結果を待つ
func (s *BridgeService) Call(ctx context.Context, task mts.Task) error {
	d, err := s.currentDispatcher()
	if err != nil {
		return err
	}
	return d.Call(ctx, task)
}

// MouseTask はマウスによるタッチのタスクを作る。押下中の座標は平滑化する
func (s *BridgeService) MouseTask(displayID, x, y int, buttons mts.ButtonsState) mts.Task {
	return func(e *mts.Engine) error {
		key := displayID
		if buttons.IsSecondFinger() {
			key = -displayID - 1
		}
		f, ok := s.filters[key]
		if !ok {
			f = features.NewMotionFilter(s.motion.SmoothingFactor, s.motion.WarmUpCount)
			s.filters[key] = f
		}
		if buttons.IsTouchDown() {
			x, y = f.Filter(x, y)
		} else {
			f.Reset()
		}
		return e.OnMouseAsTouch(displayID, x, y, buttons)
	}
}

// Status はサービスとエンジンの状態を返す
func (s *BridgeService) Status(ctx context.Context) ServiceStatus {
	status := ServiceStatus{Running: s.IsRunning()}
	if !status.Running {
		return status
	}
	snapshots := make(chan mts.Status, 1)
	err := s.Call(ctx, func(e *mts.Engine) error {
		snapshots <- e.Snapshot()
		return nil
	})
	if err != nil {
		log.Printf("warning: エンジンの状態を取得できません: %v", err)
		return status
	}
	snapshot := <-snapshots
	status.Engine = &snapshot
	return status
}

// UpdateConfig は実行中のサービスに設定を反映する。
// スロット数や uinput の設定は再起動するまで反映されない
func (s *BridgeService) UpdateConfig(cfg *config.Config) {
	s.statusMutex.Lock()
	s.cfg = cfg
	running := s.running
	geometry := s.geometry
	s.statusMutex.Unlock()

	if !running {
		return
	}
	if !cfg.Displays.UseX11 {
		geometry.Update(cfg.Displays.Screens)
	}
	motion := cfg.Motion
	if err := s.Submit(func(*mts.Engine) error {
		s.motion = motion
		s.filters = make(map[int]*features.MotionFilter)
		return nil
	}); err != nil {
		log.Printf("warning: 設定を反映できません: %v", err)
	}
	log.Println("設定を更新しました")
}
