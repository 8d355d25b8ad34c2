package features

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"syscall"
	"unsafe"

	"github.com/lunixbochs/struc"

	"github.com/char5742/mts-bridge/internal/consts"
	"github.com/char5742/mts-bridge/internal/event"
	"github.com/char5742/mts-bridge/internal/mts"
	"github.com/char5742/mts-bridge/internal/types"
	"github.com/char5742/mts-bridge/internal/utils"
)

// eventSize は struct input_event の大きさ
const eventSize = 24

// TouchSource はホストのタッチスクリーンを読み取り、フレームごとに TouchSample を渡す
type TouchSource struct {
	file    *os.File
	grabbed bool
	rangeX  types.AbsInfo
	rangeY  types.AbsInfo
}

// OpenTouchSource は指定されたパスのタッチスクリーンを開く。grab の場合は入力を専有する
func OpenTouchSource(path string, grab bool) (*TouchSource, error) {
	f, err := os.OpenFile(path, syscall.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("デバイスファイルを開くのに失敗しました: %w", err)
	}
	s := &TouchSource{file: f}
	if s.rangeX, err = absInfo(f, event.AbsMtPositionX); err != nil {
		f.Close()
		return nil, fmt.Errorf("X軸の範囲を取得できません[path=%s]: %w", path, err)
	}
	if s.rangeY, err = absInfo(f, event.AbsMtPositionY); err != nil {
		f.Close()
		return nil, fmt.Errorf("Y軸の範囲を取得できません[path=%s]: %w", path, err)
	}
	if grab {
		if err := s.Grab(); err != nil {
			f.Close()
			return nil, err
		}
	}
	return s, nil
}

func absInfo(f *os.File, axis int) (types.AbsInfo, error) {
	var info types.AbsInfo
	err := utils.IOCtl(f, consts.EVIOCGABS(axis), uintptr(unsafe.Pointer(&info)))
	return info, err
}

// Grab はタッチスクリーンの入力を専有する
func (s *TouchSource) Grab() error {
	if s.grabbed {
		return nil
	}
	if err := utils.IOCtl(s.file, consts.EVIOCGRAB, 1); err != nil {
		return fmt.Errorf("failed to grab device: %w", err)
	}
	s.grabbed = true
	return nil
}

// Release は入力の専有を解除する
func (s *TouchSource) Release() error {
	if !s.grabbed {
		return nil
	}
	if err := utils.IOCtl(s.file, consts.EVIOCGRAB, 0); err != nil {
		return fmt.Errorf("failed to release device: %w", err)
	}
	s.grabbed = false
	return nil
}

// Close は専有を解除してデバイスを閉じる。実行中の Run は終了する
func (s *TouchSource) Close() error {
	_ = s.Release()
	return s.file.Close()
}

// Run は ctx が終了するかデバイスが閉じられるまでイベントを読み、
// フレームごとにディスプレイ座標へ変換したサンプルで fn を呼ぶ
func (s *TouchSource) Run(ctx context.Context, width, height int, fn func([]mts.TouchSample)) error {
	go func() {
		<-ctx.Done()
		s.file.Close()
	}()
	err := s.decode(s.file, width, height, fn)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (s *TouchSource) decode(r io.Reader, width, height int, fn func([]mts.TouchSample)) error {
	decoder := NewFrameDecoder(1)
	buf := make([]byte, eventSize)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return fmt.Errorf("タッチスクリーンの読み取りに失敗しました: %w", err)
		}
		var ev event.Event
		if err := struc.UnpackWithOptions(bytes.NewReader(buf), &ev, packOptions); err != nil {
			return fmt.Errorf("イベントを解釈できません: %v", err)
		}
		if ev.Type == event.Syn && ev.Code == synDropped {
			log.Printf("warning: タッチスクリーンのイベントが欠落しました")
		}
		samples, ok := decoder.Feed(ev)
		if !ok || len(samples) == 0 {
			continue
		}
		for i := range samples {
			samples[i].X = mts.Scale(samples[i].X, int(s.rangeX.Minimum), int(s.rangeX.Maximum), 0, width-1)
			samples[i].Y = mts.Scale(samples[i].Y, int(s.rangeY.Minimum), int(s.rangeY.Maximum), 0, height-1)
		}
		fn(samples)
	}
}
