package display

import (
	"fmt"
	"log"

	"github.com/BurntSushi/xgb/xinerama"
	"github.com/BurntSushi/xgbutil"
	xheads "github.com/BurntSushi/xgbutil/xinerama"

	"github.com/char5742/mts-bridge/internal/config"
)

// ConnectX11 は X サーバーに接続し、Xinerama のヘッドをディスプレイIDの順に登録した Static を返す。
// Xinerama が使えない場合はルートウィンドウの大きさを ID 0 として登録する
func ConnectX11() (*Static, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("X サーバーに接続できません: %v", err)
	}
	defer xu.Conn().Close()

	screens, err := physicalScreens(xu)
	if err != nil {
		log.Printf("warning: Xinerama のヘッドを取得できません: %v", err)
		root := xu.Screen()
		screens = []config.Screen{{ID: 0, Width: int(root.WidthInPixels), Height: int(root.HeightInPixels)}}
	}
	for _, s := range screens {
		log.Printf("ディスプレイ %d: %dx%d", s.ID, s.Width, s.Height)
	}
	return NewStatic(screens), nil
}

func physicalScreens(xu *xgbutil.XUtil) ([]config.Screen, error) {
	if err := xinerama.Init(xu.Conn()); err != nil {
		return nil, err
	}
	heads, err := xheads.PhysicalHeads(xu)
	if err != nil {
		return nil, err
	}
	if len(heads) == 0 {
		return nil, fmt.Errorf("ヘッドがありません")
	}
	screens := make([]config.Screen, len(heads))
	for i, h := range heads {
		screens[i] = config.Screen{ID: i, Width: h.Width(), Height: h.Height()}
	}
	return screens, nil
}

// New は設定に従ってディスプレイの大きさの取得元を作成する。
// X11 に接続できない場合は設定ファイルの値を使う
func New(cfg config.DisplaysConfig) *Static {
	if cfg.UseX11 {
		s, err := ConnectX11()
		if err == nil {
			return s
		}
		log.Printf("warning: %v (設定ファイルのディスプレイを使用します)", err)
	}
	return NewStatic(cfg.Screens)
}
