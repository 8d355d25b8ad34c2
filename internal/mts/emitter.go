package mts

import "github.com/char5742/mts-bridge/internal/event"

// Emitter はスロットの状態遷移を protocol B のイベント列に変換する。
// スロット固有のイベントの前には必ず選択中スロットを合わせる
type Emitter struct {
	sink    event.Sink
	pool    *SlotPool
	store   *StateStore
	cursor  *SlotCursor
	pending bool  // 最後の SYN_REPORT 以降にイベントを送ったか
	err     error // Sink が最初に返したエラー
}

func NewEmitter(sink event.Sink, pool *SlotPool, store *StateStore, cursor *SlotCursor) *Emitter {
	return &Emitter{sink: sink, pool: pool, store: store, cursor: cursor}
}

func (e *Emitter) emit(typ uint16, code uint16, value int32) {
	if err := e.sink.Emit(typ, code, value); err != nil && e.err == nil {
		e.err = err
	}
	e.pending = true
}

func (e *Emitter) selectSlot(slot int) {
	if e.cursor.Current() != slot {
		e.emit(event.Abs, event.AbsMtSlot, int32(slot))
		e.cursor.Set(slot)
	}
}

// Acquire は Free -> Down の遷移。トラッキングIDの後に全フィールドを送る
func (e *Emitter) Acquire(slot int, kind SourceKind, state SlotState) {
	e.selectSlot(slot)
	e.emit(event.Abs, event.AbsMtTrackingId, int32(slot))
	for _, f := range kind.fields() {
		v := state.Value(f)
		e.store.Set(slot, f, v)
		// キーは押されている場合だけ送る
		if f.isKey() && v == 0 {
			continue
		}
		typ, code := f.code()
		e.emit(typ, code, v)
	}
	e.pool.setPhase(slot, SlotDown)
}

// Update は Down/Tracking -> Tracking の遷移。変化したフィールドだけを送り、送ったイベント数を返す
func (e *Emitter) Update(slot int, kind SourceKind, state SlotState) int {
	prev := e.store.Get(slot)
	var changed []Field
	for _, f := range kind.fields() {
		if state.Value(f) != prev.Value(f) {
			changed = append(changed, f)
		}
	}
	if len(changed) == 0 {
		return 0
	}
	n := 0
	if e.cursor.Current() != slot {
		e.selectSlot(slot)
		n++
	}
	for _, f := range changed {
		v := state.Value(f)
		typ, code := f.code()
		e.emit(typ, code, v)
		e.store.Set(slot, f, v)
		n++
	}
	e.pool.setPhase(slot, SlotTracking)
	return n
}

// Release は Tracking -> Releasing -> Free の遷移
func (e *Emitter) Release(slot int, kind SourceKind) {
	e.pool.setPhase(slot, SlotReleasing)
	prev := e.store.Get(slot)
	e.selectSlot(slot)
	e.emit(event.Abs, event.AbsMtPressure, 0)
	if kind == SourcePen {
		e.emit(event.Abs, event.AbsMtOrientation, 0)
		if prev.Value(FieldRubber) != 0 {
			e.emit(event.Key, event.BtnToolRubber, 0)
		}
		if prev.Value(FieldStylus) != 0 {
			e.emit(event.Key, event.BtnStylus, 0)
		}
	}
	e.emit(event.Abs, event.AbsMtTrackingId, event.TrackingIDRelease)
	e.pool.Release(slot)
}

// Sync は suppress が false で未送信の変更がある場合に SYN_REPORT を送る
func (e *Emitter) Sync(suppress bool) {
	if suppress || !e.pending {
		return
	}
	if err := e.sink.Emit(event.Syn, event.SynReport, 0); err != nil && e.err == nil {
		e.err = err
	}
	e.pending = false
}

// Pending は未コミットのイベントがあるかどうかを返す
func (e *Emitter) Pending() bool {
	return e.pending
}

// TakeErr は記録した Sink のエラーを返してクリアする
func (e *Emitter) TakeErr() error {
	err := e.err
	e.err = nil
	return err
}
