package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/char5742/mts-bridge/internal/config"
	"github.com/char5742/mts-bridge/internal/features"
	"github.com/char5742/mts-bridge/internal/mts"
)

// ルートの設定
func (s *Server) setupRoutes(router *http.ServeMux) {
	// 設定関連のエンドポイント
	router.HandleFunc("GET /api/config", s.handleGetConfig)
	router.HandleFunc("PUT /api/config", s.handleUpdateConfig)
	router.HandleFunc("POST /api/config/save", s.handleSaveConfig)

	// デバイス関連のエンドポイント
	router.HandleFunc("GET /api/devices", s.handleGetDevices)

	// サービス関連のエンドポイント
	router.HandleFunc("POST /api/service/start", s.handleStartService)
	router.HandleFunc("POST /api/service/stop", s.handleStopService)
	router.HandleFunc("GET /api/status", s.handleStatus)

	// ポインタ入力のエンドポイント
	router.HandleFunc("POST /api/touch", s.handleTouch)
	router.HandleFunc("POST /api/mouse", s.handleMouse)
	router.HandleFunc("POST /api/pen", s.handlePen)
	router.HandleFunc("GET /api/stream", s.handleStream)

	// ヘルスチェック用エンドポイント
	router.HandleFunc("GET /api/health", s.handleHealthCheck)
}

// 設定取得ハンドラ
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.GetConfig())
}

// 設定更新ハンドラ。指定されなかった項目は現在の値を引き継ぐ
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	newConfig := *s.GetConfig()
	newConfig.Displays.Screens = append([]config.Screen(nil), newConfig.Displays.Screens...)

	if err := json.NewDecoder(r.Body).Decode(&newConfig); err != nil {
		writeError(w, http.StatusBadRequest, "設定の解析に失敗しました")
		return
	}
	if err := newConfig.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.UpdateConfig(&newConfig)
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// 設定保存ハンドラ
func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var saveRequest struct {
		Path string `json:"path"`
	}

	if err := json.NewDecoder(r.Body).Decode(&saveRequest); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの解析に失敗しました")
		return
	}

	configPath := saveRequest.Path
	if configPath == "" {
		configPath = s.configPath
	}
	if configPath == "" {
		// デフォルトパスを使用
		userConfigDir, err := config.GetDefaultConfigDir()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "デフォルト設定ディレクトリの取得に失敗しました")
			return
		}
		configPath = filepath.Join(userConfigDir, "config.toml")
	}

	if err := config.SaveConfig(configPath, s.GetConfig()); err != nil {
		writeError(w, http.StatusInternalServerError, "設定の保存に失敗しました: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"path":   configPath,
	})
}

// デバイス一覧取得ハンドラ
func (s *Server) handleGetDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := features.ScanDevices()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "デバイス一覧の取得に失敗しました: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, devices)
}

// サービス起動ハンドラ
func (s *Server) handleStartService(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Start(); err != nil {
		if errors.Is(err, ErrServiceRunning) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "already_running"})
			return
		}
		writeError(w, http.StatusInternalServerError, "サービスの起動に失敗しました: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

// サービス停止ハンドラ
func (s *Server) handleStopService(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Stop(); err != nil {
		if errors.Is(err, ErrServiceStopped) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "not_running"})
			return
		}
		writeError(w, http.StatusInternalServerError, "サービスの停止に失敗しました: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// サービス状態取得ハンドラ
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Status(r.Context()))
}

// ヘルスチェックハンドラ
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type touchRequest struct {
	DisplayID int               `json:"display_id"`
	Samples   []mts.TouchSample `json:"samples"`
}

type mouseFields struct {
	X            int  `json:"x"`
	Y            int  `json:"y"`
	Down         bool `json:"down"`
	SkipSync     bool `json:"skip_sync"`
	SecondFinger bool `json:"second_finger"`
}

func (m mouseFields) buttons() mts.ButtonsState {
	return mts.CreateButtonsState(m.Down, m.SkipSync, m.SecondFinger)
}

type mouseRequest struct {
	DisplayID int `json:"display_id"`
	mouseFields
}

type penRequest struct {
	DisplayID int `json:"display_id"`
	mts.PenSample
}

// タッチ入力ハンドラ。samples は1フレームとして処理する
func (s *Server) handleTouch(w http.ResponseWriter, r *http.Request) {
	var req touchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの解析に失敗しました: "+err.Error())
		return
	}
	s.dispatch(w, r, func(e *mts.Engine) error {
		return e.OnTouchFrame(req.DisplayID, req.Samples)
	})
}

// マウス入力ハンドラ
func (s *Server) handleMouse(w http.ResponseWriter, r *http.Request) {
	var req mouseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの解析に失敗しました: "+err.Error())
		return
	}
	s.dispatch(w, r, s.service.MouseTask(req.DisplayID, req.X, req.Y, req.buttons()))
}

// ペン入力ハンドラ
func (s *Server) handlePen(w http.ResponseWriter, r *http.Request) {
	var req penRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの解析に失敗しました: "+err.Error())
		return
	}
	s.dispatch(w, r, func(e *mts.Engine) error {
		return e.OnPenFrame(req.DisplayID, req.PenSample)
	})
}

// dispatch はタスクの実行を待って結果を返す
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, task mts.Task) {
	err := s.service.Call(r.Context(), task)
	status, body := taskResult(err)
	writeJSON(w, status, body)
}

// taskResult はエンジンのエラーをHTTPステータスに対応付ける
func taskResult(err error) (int, map[string]string) {
	switch {
	case err == nil:
		return http.StatusOK, map[string]string{"status": "ok"}
	case errors.Is(err, ErrServiceStopped), errors.Is(err, mts.ErrDispatcherClosed):
		return http.StatusServiceUnavailable, map[string]string{"error": err.Error()}
	case errors.Is(err, mts.ErrQueueFull):
		return http.StatusTooManyRequests, map[string]string{"error": err.Error()}
	case errors.Is(err, mts.ErrTransport):
		return http.StatusBadGateway, map[string]string{"error": err.Error()}
	case errors.Is(err, mts.ErrNoDisplay):
		return http.StatusBadRequest, map[string]string{"error": err.Error()}
	case mts.IsDropped(err):
		// 破棄は入力側の不整合なので成功扱いで理由を返す
		return http.StatusOK, map[string]string{"status": "dropped", "error": err.Error()}
	}
	return http.StatusInternalServerError, map[string]string{"error": err.Error()}
}
