package features

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/lunixbochs/struc"

	"github.com/char5742/mts-bridge/internal/consts"
	"github.com/char5742/mts-bridge/internal/event"
	"github.com/char5742/mts-bridge/internal/mts"
	"github.com/char5742/mts-bridge/internal/types"
	"github.com/char5742/mts-bridge/internal/utils"
)

var packOptions = &struc.Options{Order: binary.LittleEndian}

// TouchScreenOptions は仮想タッチスクリーンが広告する軸の範囲
type TouchScreenOptions struct {
	Path           string
	Name           string
	MaxSlots       int // 指とマウス用のスロット数。ペン用にもう1つ確保する
	MaxPressure    int32
	TouchMajorMax  int32
	TouchMinorMax  int32
	OrientationMin int32
	OrientationMax int32
}

// absAxis は EV_ABS で登録する軸とその範囲
type absAxis struct {
	code     int
	min, max int32
}

// TouchScreen は uinput で作成した仮想マルチタッチスクリーン。event.Sink を実装する
type TouchScreen struct {
	name       string
	w          io.Writer
	deviceFile *os.File
	now        func() time.Time
}

// CreateTouchScreen は新しいタッチスクリーンデバイスを作成する
func CreateTouchScreen(opts TouchScreenOptions) (*TouchScreen, error) {
	fd, err := createTouchScreen(opts)
	if err != nil {
		return nil, err
	}
	return &TouchScreen{name: opts.Name, w: fd, deviceFile: fd, now: time.Now}, nil
}

// Emit は input_event を1つ書き込む
func (ts *TouchScreen) Emit(typ uint16, code uint16, value int32) error {
	now := ts.now()
	ev := event.Event{
		Sec:   now.Unix(),
		Usec:  int64(now.Nanosecond() / 1000),
		Type:  typ,
		Code:  code,
		Value: value,
	}
	var buf bytes.Buffer
	if err := struc.PackWithOptions(&buf, &ev, packOptions); err != nil {
		return fmt.Errorf("イベントをバッファに書き込むのに失敗しました: %v", err)
	}
	if _, err := ts.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("イベントの書き込みに失敗しました: %v", err)
	}
	return nil
}

func (ts *TouchScreen) Name() string {
	return ts.name
}

func (ts *TouchScreen) Close() error {
	if ts.deviceFile == nil {
		return nil
	}
	_ = releaseDevice(ts.deviceFile)
	return ts.deviceFile.Close()
}

// touchScreenCapabilities はデバイスに登録するキーと軸を返す
func touchScreenCapabilities(opts TouchScreenOptions) ([]int, []absAxis) {
	keys := []int{
		event.BtnTouch,      // 画面タッチの検出
		event.BtnToolFinger, // 指の接触
		event.BtnToolPen,    // ペンの接触
		event.BtnToolRubber, // 消しゴムの接触
		event.BtnStylus,     // ペンのサイドボタン
	}
	slots := int32(opts.MaxSlots)
	axes := []absAxis{
		{event.AbsMtSlot, 0, slots},
		{event.AbsMtTrackingId, 0, slots + 1},
		{event.AbsMtPositionX, 0, mts.AxisMax},
		{event.AbsMtPositionY, 0, mts.AxisMax},
		{event.AbsMtTouchMajor, 0, opts.TouchMajorMax},
		{event.AbsMtTouchMinor, 0, opts.TouchMinorMax},
		{event.AbsMtOrientation, opts.OrientationMin, opts.OrientationMax},
		{event.AbsMtToolType, 0, event.MtToolMax},
		{event.AbsMtPressure, 0, opts.MaxPressure},
	}
	return keys, axes
}

// touchScreenUserDev は uinput_user_dev を組み立てる
func touchScreenUserDev(opts TouchScreenOptions, axes []absAxis) types.UserDev {
	dev := types.UserDev{
		Name: toUinputName([]byte(opts.Name)),
		ID: types.InputID{
			Bustype: consts.BusVirtual,
			Vendor:  0x4711,
			Product: 0x0818,
			Version: 1,
		},
	}
	for _, a := range axes {
		dev.Absmin[a.code] = a.min
		dev.Absmax[a.code] = a.max
	}
	return dev
}

func createTouchScreen(opts TouchScreenOptions) (*os.File, error) {
	deviceFile, err := createDeviceFile(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("マルチタッチデバイスを作成できません: %v", err)
	}
	keys, axes := touchScreenCapabilities(opts)

	// キー入力イベント(EV_KEY)を登録する
	if err := registerDevice(deviceFile, uintptr(event.Key)); err != nil {
		return nil, fmt.Errorf("キー入力イベント(EV_KEY)の登録に失敗しました: %v", err)
	}
	for _, k := range keys {
		if err := utils.IOCtl(deviceFile, consts.SetKeyBit, uintptr(k)); err != nil {
			_ = deviceFile.Close()
			return nil, fmt.Errorf("キー入力種別の登録に失敗しました %#x: %v", k, err)
		}
	}

	// 絶対座標入力イベント(EV_ABS)を登録する
	if err := registerDevice(deviceFile, uintptr(event.Abs)); err != nil {
		return nil, fmt.Errorf("絶対座標入力イベント(EV_ABS)の登録に失敗しました: %v", err)
	}
	for _, a := range axes {
		if err := utils.IOCtl(deviceFile, consts.SetAbsBit, uintptr(a.code)); err != nil {
			_ = deviceFile.Close()
			return nil, fmt.Errorf("マルチタッチ軸の登録に失敗しました %#x: %v", a.code, err)
		}
	}

	// 画面に直接触れる入力デバイスとして登録する
	if err := utils.IOCtl(deviceFile, consts.SetPropBit, uintptr(consts.PropDirect)); err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("直接入力プロパティの設定に失敗しました: %v", err)
	}

	if err := createUinputDevice(deviceFile, touchScreenUserDev(opts, axes)); err != nil {
		return nil, err
	}
	return deviceFile, nil
}

// デバイスファイルを開く
func createDeviceFile(path string) (*os.File, error) {
	deviceFile, err := os.OpenFile(path, syscall.O_WRONLY|syscall.O_NONBLOCK, 0660)
	if err != nil {
		return nil, errors.Join(errors.New("デバイスファイルを開くのに失敗しました"), err)
	}
	return deviceFile, nil
}

// デバイスを解放する
func releaseDevice(deviceFile *os.File) error {
	return utils.IOCtl(deviceFile, consts.DevDestroy, uintptr(0))
}

// イベント種別を登録する。失敗した場合はデバイスファイルを閉じる
func registerDevice(deviceFile *os.File, evType uintptr) error {
	err := utils.IOCtl(deviceFile, consts.SetEvBit, evType)
	if err != nil {
		defer deviceFile.Close()
		if rerr := releaseDevice(deviceFile); rerr != nil {
			return fmt.Errorf("デバイスを解放するのに失敗しました: %v", rerr)
		}
		return fmt.Errorf("無効なファイルハンドルがutils.IOCtlから返されました: %v", err)
	}
	return nil
}

// uinput_user_dev を書き込んでデバイスを作成する
func createUinputDevice(deviceFile *os.File, dev types.UserDev) error {
	var buf bytes.Buffer
	if err := struc.PackWithOptions(&buf, &dev, packOptions); err != nil {
		_ = deviceFile.Close()
		return fmt.Errorf("ユーザーデバイスバッファの書き込みに失敗しました: %v", err)
	}
	if _, err := deviceFile.Write(buf.Bytes()); err != nil {
		_ = deviceFile.Close()
		return fmt.Errorf("デバイス構造体をデバイスファイルに書き込むのに失敗しました: %v", err)
	}
	if err := utils.IOCtl(deviceFile, consts.DevCreate, uintptr(0)); err != nil {
		_ = deviceFile.Close()
		return fmt.Errorf("デバイスの作成に失敗しました: %v", err)
	}
	return nil
}

// 名前をuinput用の固定長配列に変換する
func toUinputName(name []byte) [consts.MaxNameSize]byte {
	var fixedSizeName [consts.MaxNameSize]byte
	copy(fixedSizeName[:], name)
	return fixedSizeName
}
