package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config はアプリケーション全体の設定を表す構造体
type Config struct {
	TouchScreen TouchScreenConfig `toml:"touchscreen"`
	Engine      EngineConfig      `toml:"engine"`
	Displays    DisplaysConfig    `toml:"displays"`
	Motion      MotionConfig      `toml:"motion"`
	Source      SourceConfig      `toml:"source"`
	API         APIConfig         `toml:"api"`
}

// TouchScreenConfig は仮想タッチスクリーンの設定
type TouchScreenConfig struct {
	UinputPath     string `toml:"uinput_path"`
	Name           string `toml:"name"`
	MaxSlots       int    `toml:"max_slots"`
	MaxPressure    int32  `toml:"max_pressure"`
	TouchMajorMax  int32  `toml:"touch_major_max"`
	TouchMinorMax  int32  `toml:"touch_minor_max"`
	OrientationMin int32  `toml:"orientation_min"`
	OrientationMax int32  `toml:"orientation_max"`
}

// EngineConfig はポインタ変換エンジンの設定
type EngineConfig struct {
	ExpirationTTL   time.Duration `toml:"expiration_ttl"`
	QueueSize       int           `toml:"queue_size"`
	DebugAssertions bool          `toml:"debug_assertions"`
}

// DisplaysConfig はディスプレイの大きさの設定。UseX11 の場合は Xinerama から取得する
type DisplaysConfig struct {
	UseX11  bool     `toml:"use_x11"`
	Screens []Screen `toml:"screen"`
}

// Screen は1つのディスプレイの大きさ（ピクセル）
type Screen struct {
	ID     int `toml:"id"`
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// MotionConfig はマウスによるタッチの平滑化の設定
type MotionConfig struct {
	SmoothingFactor float64 `toml:"smoothing_factor"`
	WarmUpCount     int     `toml:"warm_up_count"`
}

// SourceConfig はホストのタッチスクリーンを転送する設定
type SourceConfig struct {
	Device    string `toml:"device"`
	Grab      bool   `toml:"grab"`
	DisplayID int    `toml:"display_id"`
}

// APIConfig はAPIサーバーの設定
type APIConfig struct {
	Port        int  `toml:"port"`
	OpenBrowser bool `toml:"open_browser"`
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() *Config {
	return &Config{
		TouchScreen: TouchScreenConfig{
			UinputPath:     "/dev/uinput",
			Name:           "VirtualMultiTouch",
			MaxSlots:       10,
			MaxPressure:    0x400,
			TouchMajorMax:  0x7FFF,
			TouchMinorMax:  0x7FFF,
			OrientationMin: -90,
			OrientationMax: 90,
		},
		Engine: EngineConfig{
			ExpirationTTL: 120 * time.Second,
			QueueSize:     256,
		},
		Displays: DisplaysConfig{
			Screens: []Screen{
				{ID: 0, Width: 1920, Height: 1080},
			},
		},
		Motion: MotionConfig{
			SmoothingFactor: 0.5,
			WarmUpCount:     3,
		},
		API: APIConfig{
			Port: 8080,
		},
	}
}

// Validate は設定値の範囲を確認する
func (c *Config) Validate() error {
	if c.TouchScreen.MaxSlots <= 0 {
		return fmt.Errorf("touchscreen.max_slots は1以上である必要があります: %d", c.TouchScreen.MaxSlots)
	}
	if c.TouchScreen.MaxPressure <= 0 {
		return fmt.Errorf("touchscreen.max_pressure は1以上である必要があります: %d", c.TouchScreen.MaxPressure)
	}
	if c.TouchScreen.OrientationMin > c.TouchScreen.OrientationMax {
		return fmt.Errorf("touchscreen.orientation_min が orientation_max より大きくなっています")
	}
	if c.Engine.ExpirationTTL < time.Second {
		return fmt.Errorf("engine.expiration_ttl は1秒以上である必要があります: %v", c.Engine.ExpirationTTL)
	}
	if c.Motion.SmoothingFactor < 0 || c.Motion.SmoothingFactor >= 1 {
		return fmt.Errorf("motion.smoothing_factor は0以上1未満である必要があります: %v", c.Motion.SmoothingFactor)
	}
	seen := make(map[int]bool)
	for _, s := range c.Displays.Screens {
		if s.Width <= 0 || s.Height <= 0 {
			return fmt.Errorf("ディスプレイ %d の大きさが不正です: %dx%d", s.ID, s.Width, s.Height)
		}
		if seen[s.ID] {
			return fmt.Errorf("ディスプレイ %d が重複しています", s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

// GetDefaultConfigDir は設定ファイルを置くディレクトリを返す
func GetDefaultConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "mts-bridge"), nil
}

// LoadConfig は設定ファイルから設定を読み込む
func LoadConfig(configPath string) (*Config, error) {
	// デフォルト設定を用意
	config := DefaultConfig()

	// ファイルが存在しない場合はデフォルト設定を保存して返す
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := SaveConfig(configPath, config); err != nil {
			return config, err
		}
		return config, nil
	}

	// 配列は上書きではなくデコード結果で置き換える
	config.Displays.Screens = nil
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return DefaultConfig(), err
	}
	if len(config.Displays.Screens) == 0 {
		config.Displays.Screens = DefaultConfig().Displays.Screens
	}
	if err := config.Validate(); err != nil {
		return DefaultConfig(), err
	}

	return config, nil
}

// SaveConfig は設定をTOMLファイルに保存する
func SaveConfig(configPath string, config *Config) error {
	// 設定ディレクトリの作成
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	f, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer f.Close()

	// TOML形式でエンコードして書き込み
	encoder := toml.NewEncoder(f)
	return encoder.Encode(config)
}
