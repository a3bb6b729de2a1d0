package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// secretHeader is the header Telegram echoes back when a webhook was
// registered with a secret token.
const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Webhook is the HTTP handler for webhook mode. It acknowledges the
// update immediately and sends the reply out of band, keeping the
// Telegram delivery timeout out of the model call path.
type Webhook struct {
	bot     *Bot
	handler MessageHandler
	secret  string
	logger  *slog.Logger
}

// NewWebhook creates the webhook handler. With an empty secret the
// header check is skipped.
func NewWebhook(bot *Bot, handler MessageHandler, secret string, logger *slog.Logger) *Webhook {
	if logger == nil {
		logger = slog.Default()
	}
	return &Webhook{
		bot:     bot,
		handler: handler,
		secret:  secret,
		logger:  logger.With("component", "webhook"),
	}
}

// ServeHTTP validates the secret, decodes the update and dispatches it.
func (wh *Webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if wh.secret != "" && r.Header.Get(secretHeader) != wh.secret {
		wh.logger.Warn("webhook secret mismatch", "remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var update Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		wh.logger.Error("webhook decode failed", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)

	msg := update.Message
	if msg == nil || msg.Text == "" || msg.From == nil || msg.From.IsBot {
		return
	}
	// The request context dies with the 200; the reply path needs its
	// own lifetime.
	go dispatchMessage(context.WithoutCancel(r.Context()), wh.bot, wh.handler, msg, wh.logger)
}
