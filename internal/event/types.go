package event

// イベントタイプの定数（input-event-codes.hより）
const (
	Syn = 0x00 // 同期イベント
	Key = 0x01 // キーイベント
	Abs = 0x03 // 絶対座標イベント

	AbsX             = 0x00 // X軸の絶対座標
	AbsY             = 0x01 // Y軸の絶対座標
	AbsMtSlot        = 0x2f // マルチタッチスロット
	AbsMtTouchMajor  = 0x30 // タッチ領域の長径
	AbsMtTouchMinor  = 0x31 // タッチ領域の短径
	AbsMtOrientation = 0x34 // タッチ領域の向き
	AbsMtPositionX   = 0x35 // マルチタッチのX座標
	AbsMtPositionY   = 0x36 // マルチタッチのY座標
	AbsMtToolType    = 0x37 // 接触しているツールの種類
	AbsMtTrackingId  = 0x39 // タッチ追跡用ID
	AbsMtPressure    = 0x3a // タッチ圧力

	SynReport     = 0     // イベント報告の同期
	BtnToolPen    = 0x140 // ペンによる接触
	BtnToolRubber = 0x141 // 消しゴムによる接触
	BtnToolFinger = 0x145 // 指によるタッチ
	BtnTouch      = 0x14a // タッチイベント
	BtnStylus     = 0x14b // スタイラスのサイドボタン
)

// ABS_MT_TOOL_TYPE の値
const (
	MtToolFinger = 0x00
	MtToolPen    = 0x01
	MtToolMax    = 0x0f
)

// TrackingIDRelease は接触の終了を示す ABS_MT_TRACKING_ID の値
const TrackingIDRelease = -1

// Event は入力イベントを表す構造体（64bit の struct input_event と同じレイアウト）
type Event struct {
	Sec   int64  // イベント発生時刻（秒）
	Usec  int64  // イベント発生時刻（マイクロ秒）
	Type  uint16 // イベントタイプ
	Code  uint16 // イベントコード
	Value int32  // イベント値
}
