package agent

import (
	"context"
	"log/slog"

	"github.com/ashureev/interprep/internal/domain"
	"github.com/ashureev/interprep/internal/jsonx"
	"github.com/ashureev/interprep/internal/llm"
	"github.com/ashureev/interprep/internal/rag"
)

// defaultAssessTopics are scored when the caller does not narrow the
// assessment.
var defaultAssessTopics = []string{"Python", "Алгоритмы", "Структуры данных"}

// Assessor estimates the user's knowledge level from a free-form
// description of their experience.
type Assessor struct {
	completer Completer
	retriever rag.Retriever
	logger    *slog.Logger
}

// NewAssessor creates an assessor. The retriever may be nil.
func NewAssessor(completer Completer, retriever rag.Retriever, logger *slog.Logger) *Assessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assessor{
		completer: completer,
		retriever: retriever,
		logger:    logger.With("agent", "assessor"),
	}
}

type assessReply struct {
	Scores     map[string]int `json:"scores"`
	WeakTopics []string       `json:"weak_topics"`
	FollowUp   string         `json:"follow_up"`
}

// Assess scores the user's self-description per topic. It always
// returns a result: when the model cannot be reached or its reply
// cannot be repaired, the documented fallback is returned so the
// conversation keeps moving.
func (a *Assessor) Assess(ctx context.Context, answer string, sctx SessionContext) *domain.AssessResult {
	snippets, used := lookupSnippets(ctx, a.retriever, a.logger, answer, domain.AgentAssessor)

	resp, err := a.completer.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: assessSystemPrompt},
			{Role: "user", Content: assessUserPrompt(answer, defaultAssessTopics, sctx, snippets)},
		},
		Temperature: ptr(0.3),
		MaxTokens:   600,
	})
	if err != nil {
		a.logger.Warn("assessment call failed, using fallback", "error", err)
		return fallbackAssessment()
	}

	var reply assessReply
	if !jsonx.Decode(resp.Content, &reply) || len(reply.Scores) == 0 {
		a.logger.Warn("assessment reply unusable, using fallback",
			"content_len", len(resp.Content))
		return fallbackAssessment()
	}

	scores := make(map[string]int, len(reply.Scores))
	for topic, score := range reply.Scores {
		scores[topic] = clampScore(score)
	}

	return &domain.AssessResult{
		Scores:      scores,
		WeakTopics:  reply.WeakTopics,
		FollowUp:    reply.FollowUp,
		ContextUsed: used,
	}
}

// fallbackAssessment is returned when no real assessment could be
// produced. Neutral scores, an explicit unknown marker and a follow-up
// asking for more detail.
func fallbackAssessment() *domain.AssessResult {
	return &domain.AssessResult{
		Scores:     map[string]int{"Python": 50, "Algorithms": 50},
		WeakTopics: []string{"unknown"},
		FollowUp:   "Можешь уточнить свой опыт подробнее?",
	}
}
