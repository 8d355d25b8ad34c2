package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/char5742/mts-bridge/internal/mts"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// streamMessage はストリームで受け取る1フレーム
type streamMessage struct {
	Type      string            `json:"type"` // touch, mouse, pen
	DisplayID int               `json:"display_id"`
	Samples   []mts.TouchSample `json:"samples,omitempty"`
	Pen       *mts.PenSample    `json:"pen,omitempty"`
	mouseFields
}

// streamError はキューに入れられなかったフレームをクライアントに知らせる
type streamError struct {
	Seq   int    `json:"seq"`
	Error string `json:"error"`
}

func (s *Server) streamTask(msg streamMessage) (mts.Task, error) {
	switch msg.Type {
	case "touch":
		return func(e *mts.Engine) error {
			return e.OnTouchFrame(msg.DisplayID, msg.Samples)
		}, nil
	case "mouse":
		return s.service.MouseTask(msg.DisplayID, msg.X, msg.Y, msg.buttons()), nil
	case "pen":
		if msg.Pen == nil {
			return nil, fmt.Errorf("pen がありません")
		}
		pen := *msg.Pen
		return func(e *mts.Engine) error {
			return e.OnPenFrame(msg.DisplayID, pen)
		}, nil
	}
	return nil, fmt.Errorf("不明なメッセージです: %q", msg.Type)
}

// handleStream は WebSocket で受け取ったフレームを順にキューへ入れる。
// 実行結果は待たず、キューに入れられなかった場合だけエラーを返す
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket のアップグレードに失敗しました: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("ストリームに接続しました: %s", r.RemoteAddr)
	for seq := 0; ; seq++ {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ストリームの読み取りエラー: %v", err)
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg streamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.writeStreamError(conn, seq, err)
			continue
		}
		task, err := s.streamTask(msg)
		if err == nil {
			err = s.service.Submit(task)
		}
		if err != nil {
			s.writeStreamError(conn, seq, err)
		}
	}
	log.Printf("ストリームを切断しました: %s", r.RemoteAddr)
}

func (s *Server) writeStreamError(conn *websocket.Conn, seq int, err error) {
	if werr := conn.WriteJSON(streamError{Seq: seq, Error: err.Error()}); werr != nil {
		log.Printf("ストリームへの書き込みに失敗しました: %v", werr)
	}
}
