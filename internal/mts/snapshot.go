package mts

// SlotInfo は状態表示用のスロットの写し
type SlotInfo struct {
	Slot     int       `json:"slot"`
	Phase    string    `json:"phase"`
	Source   string    `json:"source"`
	ID       PointerID `json:"id"`
	X        int32     `json:"x"`
	Y        int32     `json:"y"`
	Pressure int32     `json:"pressure"`
}

// Status はエンジン全体の状態
type Status struct {
	Capacity   int        `json:"capacity"`
	PenSlot    int        `json:"pen_slot"`
	ActiveSlot int        `json:"active_slot"`
	Slots      []SlotInfo `json:"slots"`
}

// Snapshot は占有中のスロットの一覧を返す
func (e *Engine) Snapshot() Status {
	status := Status{
		Capacity:   e.pool.Capacity(),
		PenSlot:    e.pool.PenSlot(),
		ActiveSlot: e.cursor.Current(),
		Slots:      []SlotInfo{},
	}
	for _, slot := range e.pool.Occupied() {
		key, _ := e.pool.Occupant(slot)
		state := e.store.Get(slot)
		status.Slots = append(status.Slots, SlotInfo{
			Slot:     slot,
			Phase:    e.pool.Phase(slot).String(),
			Source:   key.Kind.String(),
			ID:       key.ID,
			X:        state.X(),
			Y:        state.Y(),
			Pressure: state.Pressure(),
		})
	}
	return status
}
