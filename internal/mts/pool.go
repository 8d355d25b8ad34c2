package mts

import (
	"fmt"
	"log"
)

// SlotPhase はスロットの状態
type SlotPhase int

const (
	SlotFree SlotPhase = iota
	SlotDown
	SlotTracking
	SlotReleasing
)

func (p SlotPhase) String() string {
	switch p {
	case SlotFree:
		return "free"
	case SlotDown:
		return "down"
	case SlotTracking:
		return "tracking"
	case SlotReleasing:
		return "releasing"
	}
	return fmt.Sprintf("SlotPhase(%d)", int(p))
}

type trackingSlot struct {
	phase SlotPhase
	key   PointerKey
}

// SlotPool はポインタ識別子とトラッキングスロットの対応を管理する。
// スロット 0..capacity-1 は指とマウス、スロット capacity はペン専用
type SlotPool struct {
	capacity int
	slots    []trackingSlot
	store    *StateStore
	cursor   *SlotCursor
}

// NewSlotPool はペン用の予約スロットを含む capacity+1 個のスロットを持つプールを作成する
func NewSlotPool(capacity int, store *StateStore, cursor *SlotCursor) *SlotPool {
	return &SlotPool{
		capacity: capacity,
		slots:    make([]trackingSlot, capacity+1),
		store:    store,
		cursor:   cursor,
	}
}

// Capacity は指とマウスに割り当て可能なスロット数
func (p *SlotPool) Capacity() int {
	return p.capacity
}

// PenSlot はペン専用スロットの番号
func (p *SlotPool) PenSlot() int {
	return p.capacity
}

// Len は予約スロットを含む総スロット数
func (p *SlotPool) Len() int {
	return len(p.slots)
}

// eligible は発生源が使えるスロット範囲 [lo, hi) を返す
func (p *SlotPool) eligible(kind SourceKind) (int, int) {
	switch kind {
	case SourceTouch, SourceMouse:
		return 0, p.capacity
	case SourcePen:
		return p.capacity, p.capacity + 1
	}
	panic(fmt.Sprintf("mts: unknown source kind %d", int(kind)))
}

// Allocate は空いている最も小さい番号のスロットを key に割り当てる
func (p *SlotPool) Allocate(key PointerKey) (int, error) {
	if slot, ok := p.Lookup(key); ok {
		return slot, fmt.Errorf("%s はスロット %d に割り当て済みです: %w", key, slot, ErrDuplicateAcquire)
	}
	lo, hi := p.eligible(key.Kind)
	for i := lo; i < hi; i++ {
		if p.slots[i].phase == SlotFree {
			p.slots[i] = trackingSlot{phase: SlotDown, key: key}
			return i, nil
		}
	}
	return -1, fmt.Errorf("%s を割り当てられません: %w", key, ErrPoolExhausted)
}

// Lookup は key に割り当てられているスロットを探す
func (p *SlotPool) Lookup(key PointerKey) (int, bool) {
	for i := range p.slots {
		if p.slots[i].phase != SlotFree && p.slots[i].key == key {
			return i, true
		}
	}
	return -1, false
}

// Occupant はスロットを占有しているポインタを返す
func (p *SlotPool) Occupant(slot int) (PointerKey, bool) {
	s := p.slots[slot]
	return s.key, s.phase != SlotFree
}

func (p *SlotPool) Phase(slot int) SlotPhase {
	return p.slots[slot].phase
}

func (p *SlotPool) setPhase(slot int, phase SlotPhase) {
	p.slots[slot].phase = phase
}

// Release はスロットを解放し、保持している値を消去する。
// 選択中のスロットだった場合はカーソルを無効化する
func (p *SlotPool) Release(slot int) {
	if p.slots[slot].phase == SlotFree {
		log.Printf("warning: 空きスロット %d を解放しようとしました", slot)
	}
	p.slots[slot] = trackingSlot{}
	p.store.clear(slot)
	if p.cursor.Current() == slot {
		p.cursor.Invalidate()
	}
}

// Occupied は占有中のスロット番号を昇順で返す
func (p *SlotPool) Occupied() []int {
	var slots []int
	for i := range p.slots {
		if p.slots[i].phase != SlotFree {
			slots = append(slots, i)
		}
	}
	return slots
}
