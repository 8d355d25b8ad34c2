package features

import (
	"sort"

	"github.com/char5742/mts-bridge/internal/event"
	"github.com/char5742/mts-bridge/internal/mts"
)

// SYN_DROPPED はカーネルのバッファが溢れたことを示す
const synDropped = 3

type contact struct {
	trackingID  int32 // -1 は接触なし
	reportedID  int32 // 直前のフレームで報告した ID
	x, y        int32
	pressure    int32
	major       int32
	minor       int32
	orientation int32
	toolType    int32
	dirty       bool
}

// FrameDecoder はホストのタッチスクリーンが送る protocol B のイベント列を
// SYN_REPORT ごとに TouchSample のフレームへ変換する。座標はデバイスの値のまま
type FrameDecoder struct {
	slot            int32
	contacts        map[int32]*contact
	dropping        bool
	defaultPressure int32
}

// NewFrameDecoder は圧力を報告しないデバイスの接触に defaultPressure を使うデコーダーを作成する
func NewFrameDecoder(defaultPressure int32) *FrameDecoder {
	return &FrameDecoder{
		contacts:        make(map[int32]*contact),
		defaultPressure: defaultPressure,
	}
}

func (d *FrameDecoder) current() *contact {
	c, ok := d.contacts[d.slot]
	if !ok {
		c = &contact{trackingID: -1, reportedID: -1}
		d.contacts[d.slot] = c
	}
	return c
}

// Feed はイベントを1つ処理し、フレームが完成した場合はそのサンプルを返す
func (d *FrameDecoder) Feed(ev event.Event) ([]mts.TouchSample, bool) {
	if ev.Type == event.Syn {
		switch ev.Code {
		case synDropped:
			d.dropping = true
			return nil, false
		case event.SynReport:
			if d.dropping {
				// 欠落したフレームは捨て、次のフレームから差分を取り直す
				d.dropping = false
				return nil, false
			}
			return d.flush(), true
		}
		return nil, false
	}
	if d.dropping || ev.Type != event.Abs {
		return nil, false
	}

	if ev.Code == event.AbsMtSlot {
		d.slot = ev.Value
		return nil, false
	}
	c := d.current()
	switch ev.Code {
	case event.AbsMtTrackingId:
		c.trackingID = ev.Value
	case event.AbsMtPositionX:
		c.x = ev.Value
	case event.AbsMtPositionY:
		c.y = ev.Value
	case event.AbsMtPressure:
		c.pressure = ev.Value
	case event.AbsMtTouchMajor:
		c.major = ev.Value
	case event.AbsMtTouchMinor:
		c.minor = ev.Value
	case event.AbsMtOrientation:
		c.orientation = ev.Value
	case event.AbsMtToolType:
		c.toolType = ev.Value
	default:
		return nil, false
	}
	c.dirty = true
	return nil, false
}

// flush は変化のあったスロットをスロット番号順にサンプルへ変換する
func (d *FrameDecoder) flush() []mts.TouchSample {
	slots := make([]int32, 0, len(d.contacts))
	for slot, c := range d.contacts {
		if c.dirty {
			slots = append(slots, slot)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })

	var samples []mts.TouchSample
	for _, slot := range slots {
		c := d.contacts[slot]
		c.dirty = false

		// 別の ID に置き換わった場合は前の接触を先に終わらせる
		if c.reportedID != -1 && c.reportedID != c.trackingID {
			samples = append(samples, d.sample(c, c.reportedID, mts.PhaseEnd))
			c.reportedID = -1
		}
		switch {
		case c.trackingID == -1:
			continue
		case c.reportedID == -1:
			samples = append(samples, d.sample(c, c.trackingID, mts.PhaseBegin))
			c.reportedID = c.trackingID
		default:
			samples = append(samples, d.sample(c, c.trackingID, mts.PhaseUpdate))
		}
	}
	return samples
}

func (d *FrameDecoder) sample(c *contact, id int32, phase mts.Phase) mts.TouchSample {
	s := mts.TouchSample{
		ID:          mts.PointerID(id),
		X:           int(c.x),
		Y:           int(c.y),
		TouchMajor:  c.major,
		TouchMinor:  c.minor,
		Orientation: c.orientation,
		Phase:       phase,
	}
	if c.toolType == event.MtToolPen {
		s.ToolType = mts.ToolPen
	}
	if phase != mts.PhaseEnd {
		s.Pressure = c.pressure
		if s.Pressure == 0 {
			s.Pressure = d.defaultPressure
		}
	}
	return s
}
