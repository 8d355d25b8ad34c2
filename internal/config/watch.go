package config

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce はエディタの連続書き込みをまとめる時間
var watchDebounce = 300 * time.Millisecond

// Watch は設定ファイルの変更を監視し、読み込みに成功した設定で fn を呼び出す。
// エディタが置き換え保存することがあるため、ファイルではなくディレクトリを監視する
func Watch(ctx context.Context, configPath string, fn func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()

		timer := time.NewTimer(watchDebounce)
		timer.Stop()
		pending := false

		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return

			case <-timer.C:
				if !pending {
					continue
				}
				pending = false
				// 存在しない場合に LoadConfig がデフォルトで上書きしないようにする
				if _, err := os.Stat(configPath); err != nil {
					continue
				}
				cfg, err := LoadConfig(configPath)
				if err != nil {
					log.Printf("warning: 設定ファイルの再読み込みに失敗しました: %v", err)
					continue
				}
				log.Printf("設定ファイルを再読み込みしました: %s", configPath)
				fn(cfg)

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(configPath) {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				// タイマーをリセットして複数のイベントをまとめる
				pending = true
				timer.Reset(watchDebounce)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("設定ファイル監視エラー: %v", err)
			}
		}
	}()
	return nil
}
