package event

import "fmt"

// Sink は生成されたイベント列を受け取る仮想入力デバイスの抽象
type Sink interface {
	Emit(typ uint16, code uint16, value int32) error
}

// Recorder は受け取ったイベントをメモリに記録する Sink
type Recorder struct {
	Events []Event
	// Err が設定されている場合、Emit はイベントを記録したうえでこのエラーを返す
	Err error
}

func (r *Recorder) Emit(typ uint16, code uint16, value int32) error {
	r.Events = append(r.Events, Event{Type: typ, Code: code, Value: value})
	return r.Err
}

// Reset は記録済みのイベントを破棄する
func (r *Recorder) Reset() {
	r.Events = r.Events[:0]
}

// Count は指定したタイプとコードに一致するイベントの数を返す
func (r *Recorder) Count(typ uint16, code uint16) int {
	n := 0
	for _, ev := range r.Events {
		if ev.Type == typ && ev.Code == code {
			n++
		}
	}
	return n
}

// Values は指定したタイプとコードに一致するイベントの値を順に返す
func (r *Recorder) Values(typ uint16, code uint16) []int32 {
	var values []int32
	for _, ev := range r.Events {
		if ev.Type == typ && ev.Code == code {
			values = append(values, ev.Value)
		}
	}
	return values
}

// String はデバッグ表示用に (type, code, value) を返す
func (e Event) String() string {
	return fmt.Sprintf("(%#x, %#x, %d)", e.Type, e.Code, e.Value)
}
