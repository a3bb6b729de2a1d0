// Package console exposes the developer chat console: a WebSocket
// endpoint that feeds text frames through the same orchestrator as
// Telegram, so every flow can be exercised without a bot token.
package console

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/coder/websocket"

	"github.com/ashureev/interprep/internal/conversation"
)

// MessageHandler processes one incoming message and returns the reply.
type MessageHandler interface {
	HandleIncoming(ctx context.Context, id conversation.Identity, text string) string
}

// Handler upgrades console connections and relays frames.
type Handler struct {
	handler MessageHandler
	logger  *slog.Logger
	nextID  atomic.Int64
}

// NewHandler creates the console WebSocket handler.
func NewHandler(h MessageHandler, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		handler: h,
		logger:  logger.With("component", "console"),
	}
}

// wsMessage is the frame format, both directions.
type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("console accept failed", "error", err, "ip", r.RemoteAddr)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			h.logger.Debug("console close failed", "error", closeErr)
		}
	}()

	// Console identities are negative so they can never collide with
	// Telegram user ids.
	id := conversation.Identity{
		UserID:    -h.nextID.Add(1),
		Username:  "console",
		FirstName: "Console",
	}
	h.logger.Info("console session started", "user_id", id.UserID, "ip", r.RemoteAddr)

	ctx := r.Context()
	if err := h.writeFrame(ctx, ws, wsMessage{Type: "hello", Content: "Консоль подключена. Напиши /start."}); err != nil {
		h.logger.Warn("console hello failed", "user_id", id.UserID, "error", err)
		return
	}

	for {
		_, frame, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || ctx.Err() != nil {
				h.logger.Info("console session ended", "user_id", id.UserID)
			} else {
				h.logger.Warn("console read error", "user_id", id.UserID, "error", err)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(frame, &msg); err != nil {
			// Plain text frames work too.
			msg = wsMessage{Type: "message", Content: string(frame)}
		}
		text := strings.TrimSpace(msg.Content)
		if text == "" {
			continue
		}

		reply := h.handler.HandleIncoming(ctx, id, text)
		if err := h.writeFrame(ctx, ws, wsMessage{Type: "reply", Content: reply}); err != nil {
			h.logger.Warn("console write error", "user_id", id.UserID, "error", err)
			return
		}
	}
}

func (h *Handler) writeFrame(ctx context.Context, ws *websocket.Conn, msg wsMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
