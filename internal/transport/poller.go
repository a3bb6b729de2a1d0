package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/interprep/internal/conversation"
)

// pollRetryDelay is the backoff after a failed getUpdates call.
const pollRetryDelay = 5 * time.Second

// MessageHandler processes one incoming message and returns the reply.
type MessageHandler interface {
	HandleIncoming(ctx context.Context, id conversation.Identity, text string) string
}

// Poller drives the bot in long-poll mode.
type Poller struct {
	bot     *Bot
	handler MessageHandler
	timeout time.Duration
	logger  *slog.Logger
}

// NewPoller creates a long-poll loop over the bot.
func NewPoller(bot *Bot, handler MessageHandler, timeout time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		bot:     bot,
		handler: handler,
		timeout: timeout,
		logger:  logger.With("component", "poller"),
	}
}

// Run polls for updates until the context is cancelled. Each message
// is handled in its own goroutine; the orchestrator serializes per
// user, so concurrent updates from different users do not interleave
// one user's flow.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("telegram poller started", "timeout", p.timeout)

	var offset int64
	for {
		updates, err := p.bot.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("telegram poller shutting down", "reason", ctx.Err())
				return
			}
			p.logger.Error("get updates failed", "error", err)
			select {
			case <-time.After(pollRetryDelay):
			case <-ctx.Done():
				p.logger.Info("telegram poller shutting down", "reason", ctx.Err())
				return
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			msg := update.Message
			if msg == nil || msg.Text == "" || msg.From == nil || msg.From.IsBot {
				continue
			}
			go dispatchMessage(ctx, p.bot, p.handler, msg, p.logger)
		}
	}
}

// dispatchMessage runs one message through the orchestrator and sends
// the reply. Shared by poll and webhook modes.
func dispatchMessage(ctx context.Context, bot *Bot, handler MessageHandler, msg *IncomingMessage, logger *slog.Logger) {
	id := conversation.Identity{
		UserID:    msg.From.ID,
		Username:  msg.From.Username,
		FirstName: msg.From.FirstName,
	}

	reply := handler.HandleIncoming(ctx, id, msg.Text)
	if reply == "" {
		return
	}
	if err := bot.SendMessage(ctx, msg.Chat.ID, reply); err != nil {
		logger.Error("send reply failed", "chat_id", msg.Chat.ID, "error", err)
	}
}
