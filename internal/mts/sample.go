package mts

import (
	"fmt"
	"strings"
)

// PointerID はイベント発生源が付与する不透明なポインタ識別子
type PointerID int64

// SourceKind はポインタイベントの発生源の種類
type SourceKind int

const (
	SourceTouch SourceKind = iota // 実デバイスまたはリモートからのマルチタッチ
	SourceMouse                   // マウス操作によるタッチのエミュレーション
	SourcePen                     // スタイラス
)

func (k SourceKind) String() string {
	switch k {
	case SourceTouch:
		return "touch"
	case SourceMouse:
		return "mouse"
	case SourcePen:
		return "pen"
	}
	return fmt.Sprintf("SourceKind(%d)", int(k))
}

// fields は取得時に送信するスロットのフィールドを送信順に返す
func (k SourceKind) fields() []Field {
	switch k {
	case SourceTouch, SourceMouse:
		return touchFields
	case SourcePen:
		return penFields
	}
	panic(fmt.Sprintf("mts: unknown source kind %d", int(k)))
}

// PointerKey はスロットに束縛されるポインタを一意に表す。
// 発生源ごとに識別子の名前空間を分ける
type PointerKey struct {
	Kind SourceKind
	ID   PointerID
}

func (k PointerKey) String() string {
	return fmt.Sprintf("%s/%d", k.Kind, k.ID)
}

// Phase はサンプルのライフサイクル上の位置
type Phase int

const (
	// PhaseAuto は圧力と束縛状態からフェーズを判定する
	PhaseAuto Phase = iota
	PhaseBegin
	PhaseUpdate
	PhaseEnd
)

var phaseNames = map[Phase]string{
	PhaseAuto:   "auto",
	PhaseBegin:  "begin",
	PhaseUpdate: "update",
	PhaseEnd:    "end",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// ParsePhase は "begin" などの文字列をフェーズに変換する。空文字は PhaseAuto
func ParsePhase(s string) (Phase, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PhaseAuto, nil
	}
	for p, name := range phaseNames {
		if name == s {
			return p, nil
		}
	}
	switch s {
	case "down", "press":
		return PhaseBegin, nil
	case "move":
		return PhaseUpdate, nil
	case "up", "release":
		return PhaseEnd, nil
	}
	return PhaseAuto, fmt.Errorf("不明なフェーズです: %q", s)
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ToolType は接触しているツールの種類
type ToolType int

const (
	ToolFinger ToolType = iota
	ToolPen
	ToolRubber
)

// TouchSample は1本の指（または接触）の1サンプル。座標はディスプレイ座標系
type TouchSample struct {
	ID          PointerID `json:"id"`
	X           int       `json:"x"`
	Y           int       `json:"y"`
	Pressure    int32     `json:"pressure"`
	TouchMajor  int32     `json:"touch_major"`
	TouchMinor  int32     `json:"touch_minor"`
	Orientation int32     `json:"orientation"`
	ToolType    ToolType  `json:"tool_type"`
	Phase       Phase     `json:"phase"`
	// SkipSync はこのサンプルの後に SYN_REPORT を送らないことを示す
	SkipSync bool `json:"skip_sync"`
}

// PenSample はスタイラスの1サンプル
type PenSample struct {
	ID            PointerID `json:"id"`
	X             int       `json:"x"`
	Y             int       `json:"y"`
	Pressure      int32     `json:"pressure"`
	Orientation   int32     `json:"orientation"`
	ButtonPressed bool      `json:"button_pressed"`
	Rubber        bool      `json:"rubber"`
	Phase         Phase     `json:"phase"`
	SkipSync      bool      `json:"skip_sync"`
}

// ButtonsState はマウスによるタッチエミュレーションのボタン状態ビットマスク
type ButtonsState int

const (
	ButtonTouchDown    ButtonsState = 1 << iota // タッチ中
	ButtonSkipSync                              // SYN_REPORT を送らない
	ButtonSecondFinger                          // 2本目の指として扱う
)

// CreateButtonsState はフラグからボタン状態を組み立てる
func CreateButtonsState(isDown, skipSync, secondFinger bool) ButtonsState {
	var state ButtonsState
	if isDown {
		state |= ButtonTouchDown
	}
	if skipSync {
		state |= ButtonSkipSync
	}
	if secondFinger {
		state |= ButtonSecondFinger
	}
	return state
}

func (b ButtonsState) IsTouchDown() bool { return b&ButtonTouchDown != 0 }
func (b ButtonsState) ShouldSkipSync() bool { return b&ButtonSkipSync != 0 }
func (b ButtonsState) IsSecondFinger() bool { return b&ButtonSecondFinger != 0 }
