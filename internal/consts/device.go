package consts

// UIInput デバイスの定数（uinput.hから）
const (
	MaxNameSize = 80         // デバイス名の最大サイズ
	DevCreate   = 0x5501     // デバイス作成用のIOCTL
	DevDestroy  = 0x5502     // デバイス破棄用のIOCTL
	SetEvBit    = 0x40045564 // イベントビット設定用のIOCTL
	SetKeyBit   = 0x40045565 // キービット設定用のIOCTL
	SetAbsBit   = 0x40045567 // 絶対座標ビット設定用のIOCTL
	SetPropBit  = 0x4004556a // プロパティビット設定用のIOCTL
	BusVirtual  = 0x06       // 仮想バスタイプ
)

// evdev デバイス制御用の定数（input.hから）
const (
	AbsSize    = 64         // 絶対座標の配列サイズ
	EVIOCGRAB  = 0x40044590 // デバイスの排他制御用のIOCTL
	EVIOCGABS0 = 0x80184540 // EVIOCGABS(0)。軸コードを加算して使う
	PropDirect = 0x01       // タッチスクリーン（直接入力）プロパティ
)

// EVIOCGABS は指定した軸の input_absinfo を取得する IOCTL 番号を返す
func EVIOCGABS(axis int) uintptr {
	return uintptr(EVIOCGABS0 + axis)
}
