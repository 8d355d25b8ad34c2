package mts

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/char5742/mts-bridge/internal/event"
)

const (
	DefaultCapacity    = 10    // 指とマウスで同時に追跡できるポインタ数
	DefaultMaxPressure = 0x400 // マウス押下時の圧力
	DefaultTouchAxis   = 0x500 // マウスによるタッチの TOUCH_MAJOR/MINOR
	MaxDisplays        = 11    // 受け付けるディスプレイIDの上限（virtio-input デバイス数）
)

// Geometry はディスプレイの大きさを返す。フレームごとに1回呼ばれる
type Geometry interface {
	DisplaySize(displayID int) (width int, height int, err error)
}

// Options はエンジンの設定
type Options struct {
	Capacity    int
	TTL         time.Duration
	MaxPressure int32
	Now         func() time.Time

	// DebugAssertions が true の場合、重複した押下で panic する
	DebugAssertions bool
}

// Engine はマウス、タッチ、ペンの各発生源からのサンプルを
// マルチタッチ protocol B のイベント列に変換する。
// 内部状態は同期されていないため、呼び出しは1つのゴルーチンに限ること（Dispatcher を参照）
type Engine struct {
	geometry    Geometry
	pool        *SlotPool
	store       *StateStore
	cursor      *SlotCursor
	emitter     *Emitter
	touchTTL    *ExpirationTracker
	penTTL      *ExpirationTracker
	maxPressure int32
	now         func() time.Time
	assertions  bool
}

func NewEngine(sink event.Sink, geometry Geometry, opts Options) *Engine {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxPressure <= 0 {
		opts.MaxPressure = DefaultMaxPressure
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	store := NewStateStore(opts.Capacity + 1)
	cursor := NewSlotCursor()
	pool := NewSlotPool(opts.Capacity, store, cursor)
	return &Engine{
		geometry:    geometry,
		pool:        pool,
		store:       store,
		cursor:      cursor,
		emitter:     NewEmitter(sink, pool, store, cursor),
		touchTTL:    NewExpirationTracker(opts.TTL),
		penTTL:      NewExpirationTracker(opts.TTL),
		maxPressure: opts.MaxPressure,
		now:         opts.Now,
		assertions:  opts.DebugAssertions,
	}
}

// pointerSample は発生源に依存しない形に変換したサンプル
type pointerSample struct {
	key      PointerKey
	phase    Phase
	pressure int32
	state    SlotState
}

// OnTouchFrame は同じサンプリング時刻のタッチサンプル群を処理する。
// 最後のサンプル以外の SYN_REPORT は抑制し、ゲストには1フレームとして見せる
func (e *Engine) OnTouchFrame(displayID int, samples []TouchSample) error {
	if len(samples) == 0 {
		return nil
	}
	width, height, err := e.displaySize(displayID)
	if err != nil {
		return err
	}
	now := e.now()
	reclaimed := e.sweep(e.touchTTL, now)
	if len(reclaimed) > 0 {
		// 回収した解放は新しいサンプルとは別のフレームでコミットする
		e.emitter.Sync(false)
	}

	var errs []error
	for _, s := range samples {
		ps := pointerSample{
			key:      PointerKey{Kind: SourceTouch, ID: s.ID},
			phase:    s.Phase,
			pressure: s.Pressure,
			state:    touchState(s, width, height),
		}
		if err := e.apply(ps, e.touchTTL, reclaimed, now); err != nil {
			errs = append(errs, err)
		}
	}
	e.emitter.Sync(samples[len(samples)-1].SkipSync)
	return e.finish(errors.Join(errs...))
}

// OnMouseAsTouch はマウス操作を1本（または2本目）の指として扱う
func (e *Engine) OnMouseAsTouch(displayID int, x, y int, buttons ButtonsState) error {
	width, height, err := e.displaySize(displayID)
	if err != nil {
		return err
	}

	key := PointerKey{Kind: SourceMouse, ID: 0}
	if buttons.IsSecondFinger() {
		key.ID = 1
	}
	_, bound := e.pool.Lookup(key)
	down := buttons.IsTouchDown()

	var phase Phase
	switch {
	case down && !bound:
		phase = PhaseBegin
	case down:
		phase = PhaseUpdate
	case bound:
		phase = PhaseEnd
	default:
		// ボタンを押していない移動は無視する
		return nil
	}

	var pressure int32
	if down {
		pressure = e.maxPressure
	}
	ps := pointerSample{
		key:      key,
		phase:    phase,
		pressure: pressure,
		state:    mouseState(x, y, width, height, pressure),
	}
	err = e.apply(ps, nil, nil, e.now())
	e.emitter.Sync(buttons.ShouldSkipSync())
	return e.finish(err)
}

// OnPenFrame はスタイラスのサンプルを予約スロットで処理する。
// 別のペンがスロットを使用中の場合はサンプルを破棄する
func (e *Engine) OnPenFrame(displayID int, p PenSample) error {
	width, height, err := e.displaySize(displayID)
	if err != nil {
		return err
	}
	now := e.now()
	reclaimed := e.sweep(e.penTTL, now)
	if len(reclaimed) > 0 {
		e.emitter.Sync(false)
	}

	key := PointerKey{Kind: SourcePen, ID: p.ID}
	if occupant, ok := e.pool.Occupant(e.pool.PenSlot()); ok && occupant != key {
		log.Printf("warning: ペンは同時に1本だけサポートしています (使用中: %s, 受信: %s)", occupant, key)
		return e.finish(fmt.Errorf("%s: %w", key, ErrPenBusy))
	}

	ps := pointerSample{
		key:      key,
		phase:    p.Phase,
		pressure: p.Pressure,
		state:    penState(p, width, height),
	}
	err = e.apply(ps, e.penTTL, reclaimed, now)
	e.emitter.Sync(p.SkipSync)
	return e.finish(err)
}

// ReleaseAll は占有中のすべてのスロットを解放する。デバイスを切り離す前に呼ぶ
func (e *Engine) ReleaseAll() error {
	for _, slot := range e.pool.Occupied() {
		key, _ := e.pool.Occupant(slot)
		e.emitter.Release(slot, key.Kind)
		e.touchTTL.Forget(key)
		e.penTTL.Forget(key)
	}
	e.emitter.Sync(false)
	return e.finish(nil)
}

// apply はフェーズに応じてスロットの状態遷移を行う
func (e *Engine) apply(ps pointerSample, tracker *ExpirationTracker, reclaimed map[PointerKey]bool, now time.Time) error {
	slot, bound := e.pool.Lookup(ps.key)
	phase := ps.phase

	// 期限切れで回収済みのポインタは新規の押下として扱う
	if reclaimed[ps.key] {
		if phase == PhaseEnd || (phase == PhaseAuto && ps.pressure == 0) {
			return nil
		}
		phase = PhaseBegin
		delete(reclaimed, ps.key)
	}
	if phase == PhaseAuto {
		phase = resolvePhase(bound, ps.pressure)
		if phase == PhaseAuto {
			return e.dropUnknown(ps.key, "hover")
		}
	}

	switch phase {
	case PhaseBegin:
		if bound {
			return e.duplicate(ps.key, slot)
		}
		slot, err := e.pool.Allocate(ps.key)
		if err != nil {
			log.Printf("warning: サンプルを破棄しました: %v", err)
			return err
		}
		e.emitter.Acquire(slot, ps.key.Kind, ps.state)
		if tracker != nil {
			tracker.Touch(ps.key, slot, now)
		}
	case PhaseUpdate:
		if !bound {
			return e.dropUnknown(ps.key, phase.String())
		}
		e.emitter.Update(slot, ps.key.Kind, ps.state)
		if tracker != nil {
			tracker.Touch(ps.key, slot, now)
		}
	case PhaseEnd:
		if !bound {
			return e.dropUnknown(ps.key, phase.String())
		}
		e.emitter.Release(slot, ps.key.Kind)
		if tracker != nil {
			tracker.Forget(ps.key)
		}
	default:
		return fmt.Errorf("%s: 不正なフェーズです: %v", ps.key, phase)
	}
	return nil
}

// resolvePhase は圧力と束縛状態からフェーズを決める。判定できない場合は PhaseAuto
func resolvePhase(bound bool, pressure int32) Phase {
	switch {
	case bound && pressure == 0:
		return PhaseEnd
	case bound:
		return PhaseUpdate
	case pressure > 0:
		return PhaseBegin
	}
	return PhaseAuto
}

// sweep は期限切れのポインタを解放イベント付きで回収する
func (e *Engine) sweep(tracker *ExpirationTracker, now time.Time) map[PointerKey]bool {
	reclaimed := make(map[PointerKey]bool)
	tracker.Sweep(now, func(key PointerKey, slot int) {
		if occupant, ok := e.pool.Occupant(slot); !ok || occupant != key {
			return
		}
		log.Printf("%s は %v 以上更新がないためスロット %d を回収しました", key, tracker.ttl, slot)
		e.emitter.Release(slot, key.Kind)
		reclaimed[key] = true
	})
	return reclaimed
}

func (e *Engine) dropUnknown(key PointerKey, phase string) error {
	log.Printf("warning: 割り当てのないポインタのサンプルを破棄しました: %s (%s)", key, phase)
	return fmt.Errorf("%s (%s): %w", key, phase, ErrUnknownSlot)
}

func (e *Engine) duplicate(key PointerKey, slot int) error {
	if e.assertions {
		panic(fmt.Sprintf("mts: %s はスロット %d で押下済みです", key, slot))
	}
	return fmt.Errorf("%s: %w", key, ErrDuplicateAcquire)
}

func (e *Engine) displaySize(displayID int) (int, int, error) {
	if displayID < 0 || displayID >= MaxDisplays {
		log.Printf("warning: 不正なディスプレイIDです: %d", displayID)
		return 0, 0, fmt.Errorf("ディスプレイ %d: %w", displayID, ErrNoDisplay)
	}
	width, height, err := e.geometry.DisplaySize(displayID)
	if err != nil {
		log.Printf("warning: ディスプレイ %d の大きさを取得できません: %v", displayID, err)
		return 0, 0, fmt.Errorf("ディスプレイ %d: %v: %w", displayID, err, ErrNoDisplay)
	}
	return width, height, nil
}

// finish は Sink のエラーを呼び出しの結果に合成する
func (e *Engine) finish(err error) error {
	if sinkErr := e.emitter.TakeErr(); sinkErr != nil {
		return errors.Join(err, fmt.Errorf("%w: %v", ErrTransport, sinkErr))
	}
	return err
}

func touchState(s TouchSample, width, height int) SlotState {
	var st SlotState
	st.set(FieldX, scaleToAxis(s.X, width))
	st.set(FieldY, scaleToAxis(s.Y, height))
	st.set(FieldTouchMajor, s.TouchMajor)
	st.set(FieldTouchMinor, s.TouchMinor)
	st.set(FieldOrientation, s.Orientation)
	st.set(FieldToolType, toolValue(s.ToolType))
	st.set(FieldPressure, s.Pressure)
	return st
}

func mouseState(x, y, width, height int, pressure int32) SlotState {
	var st SlotState
	st.set(FieldX, scaleToAxis(x, width))
	st.set(FieldY, scaleToAxis(y, height))
	st.set(FieldTouchMajor, DefaultTouchAxis)
	st.set(FieldTouchMinor, DefaultTouchAxis)
	st.set(FieldToolType, toolValue(ToolFinger))
	st.set(FieldPressure, pressure)
	return st
}

func penState(p PenSample, width, height int) SlotState {
	tool := ToolPen
	if p.Rubber {
		tool = ToolRubber
	}
	var st SlotState
	st.set(FieldX, scaleToAxis(p.X, width))
	st.set(FieldY, scaleToAxis(p.Y, height))
	st.set(FieldOrientation, p.Orientation)
	st.set(FieldToolType, toolValue(tool))
	st.set(FieldPressure, p.Pressure)
	st.set(FieldRubber, boolValue(p.Rubber))
	st.set(FieldStylus, boolValue(p.ButtonPressed))
	return st
}
