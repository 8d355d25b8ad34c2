package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/browser"

	"github.com/char5742/mts-bridge/internal/api"
	"github.com/char5742/mts-bridge/internal/config"
)

func main() {
	// コマンドライン引数の解析
	useApi := flag.Bool("api", false, "APIサーバーモードで起動します")
	configPath := flag.String("config", "", "設定ファイルのパス (指定しない場合はデフォルトパスを使用)")
	port := flag.Int("port", 0, "APIサーバーのポート番号 (指定しない場合は設定ファイルの値)")
	openBrowser := flag.Bool("open", false, "APIサーバーの起動後に状態ページをブラウザで開きます")
	source := flag.String("source", "", "転送するホストのタッチスクリーン (名前またはパス)")
	flag.Parse()

	// デフォルト設定ファイルパスの設定
	defaultConfigPath := ""
	configDir, err := config.GetDefaultConfigDir()
	if err == nil {
		defaultConfigPath = filepath.Join(configDir, "config.toml")
	}

	// 設定ファイルパスの決定
	cfgPath := defaultConfigPath
	if *configPath != "" {
		cfgPath = *configPath
	}

	// 設定ファイルの読み込み
	var cfg *config.Config
	if cfgPath != "" {
		cfg, err = config.LoadConfig(cfgPath)
		if err != nil {
			fmt.Printf("設定ファイルの読み込みに失敗しました: %v\nデフォルト設定を使用します\n", err)
			cfg = config.DefaultConfig()
		} else {
			fmt.Printf("設定ファイルを読み込みました: %s\n", cfgPath)
		}
	} else {
		cfg = config.DefaultConfig()
	}
	if *port != 0 {
		cfg.API.Port = *port
	}
	if *openBrowser {
		cfg.API.OpenBrowser = true
	}
	if *source != "" {
		cfg.Source.Device = *source
	}

	service := api.NewBridgeService(cfg, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// APIモードかCLIモードかを判断
	if *useApi {
		fmt.Printf("APIサーバーモードで起動します (ポート: %d)...\n", cfg.API.Port)
		runApiServer(ctx, cfg, cfgPath, service)
	} else {
		fmt.Println("CLIモードで起動します...")
		runCLI(ctx, cfg, cfgPath, service)
	}
}

// APIサーバーモードでの実行
func runApiServer(ctx context.Context, cfg *config.Config, cfgPath string, service *api.BridgeService) {
	server := api.NewServer(cfg, cfgPath, cfg.API.Port, service)
	handleSignals(func() {
		if err := server.Stop(); err != nil {
			log.Printf("APIサーバーの停止に失敗しました: %v", err)
		}
	})
	watchConfig(ctx, cfgPath, server.UpdateConfig)

	if cfg.API.OpenBrowser {
		go func() {
			// サーバーが待ち受けを始めるまで少し待つ
			time.Sleep(500 * time.Millisecond)
			if err := browser.OpenURL(server.URL() + "/api/status"); err != nil {
				log.Printf("ブラウザを開けませんでした: %v", err)
			}
		}()
	}

	if err := server.Start(); err != nil {
		log.Fatalf("APIサーバーの起動に失敗しました: %v", err)
	}
}

// CLIモードでの実行
func runCLI(ctx context.Context, cfg *config.Config, cfgPath string, service *api.BridgeService) {
	if err := service.Start(); err != nil {
		fmt.Printf("仮想タッチスクリーンの起動に失敗しました: %v\n", err)
		os.Exit(1)
	}
	watchConfig(ctx, cfgPath, service.UpdateConfig)

	done := make(chan struct{})
	handleSignals(func() {
		if err := service.Stop(); err != nil {
			log.Printf("サービスの停止に失敗しました: %v", err)
		}
		close(done)
	})
	<-done
}

func watchConfig(ctx context.Context, cfgPath string, fn func(*config.Config)) {
	if cfgPath == "" {
		return
	}
	if err := config.Watch(ctx, cfgPath, fn); err != nil {
		log.Printf("設定ファイルを監視できません: %v", err)
	}
}

func handleSignals(shutdown func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("シャットダウンします...")
		shutdown()
		os.Exit(0)
	}()
}
