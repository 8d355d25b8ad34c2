package features

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSysfsDevice(t *testing.T, root, node, name, abs, props string) {
	t.Helper()
	dir := filepath.Join(root, node, "device")
	if err := os.MkdirAll(filepath.Join(dir, "capabilities"), 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		filepath.Join(dir, "name"):                name + "\n",
		filepath.Join(dir, "capabilities", "abs"): abs + "\n",
		filepath.Join(dir, "properties"):          props + "\n",
	}
	for path, data := range files {
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestScanDevices(t *testing.T) {
	root := t.TempDir()
	// ABS_MT_POSITION_X/Y (0x35, 0x36) と ABS_X/Y
	writeSysfsDevice(t, root, "event3", "Panel", "660000000000003", "2")
	writeSysfsDevice(t, root, "event1", "Pad", "660000000000003", "5")
	writeSysfsDevice(t, root, "event2", "Mouse", "0", "0")
	// 2ワード目に ABS の下位ビットがある場合
	writeSysfsDevice(t, root, "event4", "Wide", "1 660000000000000", "2")
	if err := os.MkdirAll(filepath.Join(root, "mouse0"), 0755); err != nil {
		t.Fatal(err)
	}

	devices, err := scanDevices(root, "/dev/input")
	if err != nil {
		t.Fatalf("scanDevices: %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("devices = %+v", devices)
	}
	if devices[0].Name != "Pad" || devices[0].Type != DeviceTypeTouchPad || devices[0].Path != "/dev/input/event1" {
		t.Fatalf("devices[0] = %+v", devices[0])
	}
	if devices[1].Name != "Panel" || devices[1].Type != DeviceTypeTouchScreen {
		t.Fatalf("devices[1] = %+v", devices[1])
	}
	if devices[2].Name != "Wide" {
		t.Fatalf("devices[2] = %+v", devices[2])
	}

	d, err := selectTouchScreen(devices, "")
	if err != nil || d.Name != "Panel" {
		t.Fatalf("default touchscreen = %+v, %v", d, err)
	}
	d, err = selectTouchScreen(devices, "/dev/input/event1")
	if err != nil || d.Name != "Pad" {
		t.Fatalf("touchscreen by path = %+v, %v", d, err)
	}
	if _, err := selectTouchScreen(devices, "missing"); err == nil {
		t.Fatalf("missing device found")
	}
}

func TestParseBitmapWordSize(t *testing.T) {
	// ABS_MT_POSITION_X (0x35) は 32 ビットワードでは2ワード目の bit 21
	b, err := parseBitmap("600000 3\n", 32)
	if err != nil {
		t.Fatalf("parseBitmap: %v", err)
	}
	for _, bit := range []int{0, 1, 0x35, 0x36} {
		if b.Bit(bit) != 1 {
			t.Fatalf("bit %#x not set in %x", bit, b)
		}
	}

	b, err = parseBitmap("600000 3", 64)
	if err != nil {
		t.Fatalf("parseBitmap: %v", err)
	}
	if b.Bit(0x35) != 0 || b.Bit(64+21) != 1 {
		t.Fatalf("64-bit words parsed as %x", b)
	}

	if _, err := parseBitmap("zz", 64); err == nil {
		t.Fatalf("invalid word accepted")
	}
}
