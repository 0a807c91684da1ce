package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/erazemk/najdeno/internal/board"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// StreamHandler pushes gallery snapshots over a websocket.
type StreamHandler struct {
	Records *store.Records
}

type streamMessage struct {
	Type  string           `json:"type"`
	Items []board.ViewItem `json:"items"`
	Error string           `json:"error,omitempty"`
}

// Stream handles GET /api/items/stream. The first message is the current
// board; every later message is a full replacement after a change.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Holds only the latest unsent snapshot.
	snapshots := make(chan []model.Record, 1)
	push := func(records []model.Record) {
		select {
		case <-snapshots:
		default:
		}
		snapshots <- records
	}

	unsubscribe, err := h.Records.Subscribe(ctx, push)
	if err != nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteJSON(streamMessage{Type: "error", Error: board.UserMessage(err)})
		return
	}
	defer unsubscribe()

	slog.Debug("stream client connected", "remote", r.RemoteAddr)
	go readLoop(conn, cancel)
	writeLoop(ctx, conn, snapshots)
	slog.Debug("stream client disconnected", "remote", r.RemoteAddr)
}

// readLoop discards client messages and keeps the read deadline moving on
// pongs. It cancels the stream when the connection goes away.
func readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("stream read failed", "error", err)
			}
			return
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, snapshots <-chan []model.Record) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case records := <-snapshots:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(streamMessage{Type: "snapshot", Items: board.Project(records)}); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
