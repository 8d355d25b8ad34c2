package features

import (
	"fmt"
	"log"
	"math/big"
	"math/bits"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/char5742/mts-bridge/internal/consts"
	"github.com/char5742/mts-bridge/internal/event"
)

// Device はホストの入力デバイス
type Device struct {
	Name string     `json:"name"`
	Path string     `json:"path"`
	Type DeviceType `json:"type"`
}

// デバイスタイプを表す列挙型
type DeviceType int

const (
	DeviceTypeOther DeviceType = iota
	DeviceTypeTouchScreen
	DeviceTypeTouchPad
)

func (t DeviceType) String() string {
	switch t {
	case DeviceTypeTouchScreen:
		return "touchscreen"
	case DeviceTypeTouchPad:
		return "touchpad"
	}
	return "other"
}

func (t DeviceType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// sysfsRoot は入力デバイスの情報を読み取る sysfs のディレクトリ
var sysfsRoot = "/sys/class/input"

// ScanDevices はマルチタッチの軸を持つ入力デバイスを列挙する
func ScanDevices() ([]Device, error) {
	return scanDevices(sysfsRoot, "/dev/input")
}

func scanDevices(sysRoot, devRoot string) ([]Device, error) {
	entries, err := os.ReadDir(sysRoot)
	if err != nil {
		return nil, err
	}
	var devices []Device
	for _, entry := range entries {
		// event が含まれない場合はスキップ
		if !strings.HasPrefix(entry.Name(), "event") {
			continue
		}
		dir := filepath.Join(sysRoot, entry.Name(), "device")
		abs, err := readBitmap(filepath.Join(dir, "capabilities", "abs"))
		if err != nil {
			continue
		}
		if abs.Bit(event.AbsMtPositionX) == 0 || abs.Bit(event.AbsMtPositionY) == 0 {
			continue
		}

		typ := DeviceTypeTouchPad
		if props, err := readBitmap(filepath.Join(dir, "properties")); err == nil && props.Bit(consts.PropDirect) == 1 {
			typ = DeviceTypeTouchScreen
		}
		name, err := os.ReadFile(filepath.Join(dir, "name"))
		if err != nil {
			log.Printf("デバイス名を取得できません: %s - %v", entry.Name(), err)
		}
		devices = append(devices, Device{
			Name: strings.TrimSpace(string(name)),
			Path: filepath.Join(devRoot, entry.Name()),
			Type: typ,
		})
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Path < devices[j].Path })
	return devices, nil
}

// readBitmap は sysfs のビットマップ（上位ワードから空白区切りの16進数）を読む。
// ワードの幅はカーネルの unsigned long と同じ
func readBitmap(path string) (*big.Int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseBitmap(string(data), bits.UintSize)
}

func parseBitmap(data string, wordBits uint) (*big.Int, error) {
	words := strings.Fields(data)
	bitmap := new(big.Int)
	for _, w := range words {
		v, ok := new(big.Int).SetString(w, 16)
		if !ok {
			return nil, fmt.Errorf("ビットマップを解釈できません: %q", w)
		}
		bitmap.Lsh(bitmap, wordBits)
		bitmap.Or(bitmap, v)
	}
	return bitmap, nil
}

// FindTouchScreen は name が空でなければ名前またはパスが一致するデバイスを、
// 空であれば最初のタッチスクリーンを返す
func FindTouchScreen(name string) (*Device, error) {
	devices, err := ScanDevices()
	if err != nil {
		return nil, fmt.Errorf("デバイス一覧の取得に失敗しました: %v", err)
	}
	return selectTouchScreen(devices, name)
}

func selectTouchScreen(devices []Device, name string) (*Device, error) {
	for i := range devices {
		d := &devices[i]
		if name != "" && (d.Name == name || d.Path == name) {
			return d, nil
		}
		if name == "" && d.Type == DeviceTypeTouchScreen {
			return d, nil
		}
	}
	if name != "" {
		return nil, fmt.Errorf("タッチスクリーンが見つかりませんでした: %s", name)
	}
	return nil, fmt.Errorf("タッチスクリーンが見つかりませんでした")
}
