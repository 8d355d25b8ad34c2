package mts

import "github.com/char5742/mts-bridge/internal/event"

// Field はスロットごとに保持し送信する値の種類
type Field int

const (
	FieldX Field = iota
	FieldY
	FieldTouchMajor
	FieldTouchMinor
	FieldOrientation
	FieldToolType
	FieldPressure
	FieldRubber // BTN_TOOL_RUBBER
	FieldStylus // BTN_STYLUS
	fieldCount
)

// 取得時の送信順
var (
	touchFields = []Field{FieldX, FieldY, FieldTouchMajor, FieldTouchMinor, FieldOrientation, FieldToolType, FieldPressure}
	penFields   = []Field{FieldX, FieldY, FieldOrientation, FieldToolType, FieldPressure, FieldRubber, FieldStylus}
)

// code はフィールドに対応するイベントタイプとコードを返す
func (f Field) code() (uint16, uint16) {
	switch f {
	case FieldX:
		return event.Abs, event.AbsMtPositionX
	case FieldY:
		return event.Abs, event.AbsMtPositionY
	case FieldTouchMajor:
		return event.Abs, event.AbsMtTouchMajor
	case FieldTouchMinor:
		return event.Abs, event.AbsMtTouchMinor
	case FieldOrientation:
		return event.Abs, event.AbsMtOrientation
	case FieldToolType:
		return event.Abs, event.AbsMtToolType
	case FieldPressure:
		return event.Abs, event.AbsMtPressure
	case FieldRubber:
		return event.Key, event.BtnToolRubber
	case FieldStylus:
		return event.Key, event.BtnStylus
	}
	panic("mts: unknown field")
}

func (f Field) isKey() bool {
	return f == FieldRubber || f == FieldStylus
}

// SlotState はスロットの最後に送信した値
type SlotState struct {
	values [fieldCount]int32
}

// Value はフィールドの値を返す
func (s SlotState) Value(f Field) int32 {
	return s.values[f]
}

func (s *SlotState) set(f Field, v int32) {
	s.values[f] = v
}

func (s SlotState) X() int32 { return s.values[FieldX] }
func (s SlotState) Y() int32 { return s.values[FieldY] }
func (s SlotState) Pressure() int32 { return s.values[FieldPressure] }

// toolValue は ABS_MT_TOOL_TYPE に載せる値
func toolValue(t ToolType) int32 {
	switch t {
	case ToolPen:
		return event.MtToolPen
	case ToolRubber:
		return event.MtToolMax
	}
	return event.MtToolFinger
}

func boolValue(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// StateStore はスロットごとの最後の送信値を保持し、差分送信の判定に使う
type StateStore struct {
	states []SlotState
}

func NewStateStore(slots int) *StateStore {
	return &StateStore{states: make([]SlotState, slots)}
}

func (s *StateStore) Get(slot int) SlotState {
	return s.states[slot]
}

func (s *StateStore) Set(slot int, f Field, v int32) {
	s.states[slot].set(f, v)
}

// clear はスロットの値をゼロに戻す
func (s *StateStore) clear(slot int) {
	s.states[slot] = SlotState{}
}

// NoSlot はワイヤ上で選択中のスロットが不明であることを示す
const NoSlot = -1

// SlotCursor は最後に ABS_MT_SLOT で選択したスロット
type SlotCursor struct {
	slot int
}

func NewSlotCursor() *SlotCursor {
	return &SlotCursor{slot: NoSlot}
}

func (c *SlotCursor) Current() int {
	return c.slot
}

func (c *SlotCursor) Set(slot int) {
	c.slot = slot
}

// Invalidate は次回の送信でスロット選択をやり直させる
func (c *SlotCursor) Invalidate() {
	c.slot = NoSlot
}
