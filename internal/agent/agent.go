// Package agent implements the four specialist agents behind the bot:
// assessor, interviewer, planner and reviewer. Agents share one shape:
// build a prompt from the input plus session context, call the model,
// repair the reply with jsonx and fall back to a documented default
// when the reply is unusable.
package agent

import (
	"context"
	"log/slog"

	"github.com/ashureev/interprep/internal/domain"
	"github.com/ashureev/interprep/internal/llm"
	"github.com/ashureev/interprep/internal/rag"
)

// Completer is the model call every agent depends on.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// SessionContext carries the profile attributes that flavor prompts.
type SessionContext struct {
	Level   domain.Level
	Track   domain.Track
	History []domain.Turn // recent turns, oldest first
}

// lookupSnippets retrieves knowledge context for an agent prompt at
// the retriever's configured depth. Returns the snippets and whether
// any were found. Retrieval failures degrade to an uncontextualized
// prompt, never to an agent failure.
func lookupSnippets(ctx context.Context, retriever rag.Retriever, logger *slog.Logger, query string, kind domain.AgentKind) ([]rag.Snippet, bool) {
	if retriever == nil || !retriever.Enabled() {
		return nil, false
	}
	snippets, err := retriever.Search(ctx, query, kind, 0)
	if err != nil {
		logger.Debug("knowledge lookup failed", "agent", kind, "error", err)
		return nil, false
	}
	return snippets, len(snippets) > 0
}

// clampScore bounds a 0-100 score.
func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func ptr(f float64) *float64 {
	return &f
}
