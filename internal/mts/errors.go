package mts

import "errors"

// サンプルを破棄したことを示すエラー。いずれもエンジンにとって致命的ではない
var (
	ErrPoolExhausted    = errors.New("空きスロットがありません")
	ErrUnknownSlot      = errors.New("スロットに割り当てられていないポインタです")
	ErrDuplicateAcquire = errors.New("ポインタは既に押下されています")
	ErrPenBusy          = errors.New("別のペンがスロットを使用中です")
	ErrNoDisplay        = errors.New("ディスプレイの大きさを取得できません")
)

// ErrTransport は仮想入力デバイスへの書き込みに失敗したことを示す
var ErrTransport = errors.New("イベントの送信に失敗しました")

// ディスパッチャのエラー
var (
	ErrQueueFull        = errors.New("イベントキューが満杯です")
	ErrDispatcherClosed = errors.New("ディスパッチャは停止しています")
)

// IsDropped は err がサンプルの破棄を示すものかどうかを返す
func IsDropped(err error) bool {
	return errors.Is(err, ErrPoolExhausted) ||
		errors.Is(err, ErrUnknownSlot) ||
		errors.Is(err, ErrDuplicateAcquire) ||
		errors.Is(err, ErrPenBusy) ||
		errors.Is(err, ErrNoDisplay)
}
