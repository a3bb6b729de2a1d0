// Package router decides which agent handles an inbound message.
//
// Routing is layered: a deterministic trigger check first, then model
// classification with repair, then a keyword fallback. Every layer
// produces a usable Decision, so routing never fails outright. The
// router reads session context but never modifies it.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/interprep/internal/domain"
	"github.com/ashureev/interprep/internal/jsonx"
	"github.com/ashureev/interprep/internal/llm"
	"github.com/ashureev/interprep/internal/rag"
)

// triggerConfidence is reported when a planning trigger short-circuits
// classification.
const triggerConfidence = 0.95

// keywordConfidence is reported when the keyword fallback picks the agent.
const keywordConfidence = 0.5

// maxContextTurns bounds how much recent history goes into the
// classification prompt.
const maxContextTurns = 3

// Completer is the model call the router depends on.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// SessionContext carries the session attributes the classifier may use.
type SessionContext struct {
	Level   domain.Level
	Track   domain.Track
	Agent   domain.AgentKind // active agent, empty when idle
	History []domain.Turn    // recent turns, oldest first
}

// Decision is the routing outcome for one message.
type Decision struct {
	Agent           domain.AgentKind
	Confidence      float64
	ContextNote     string
	SuggestedTopics []string
}

// NeedsClarification reports whether no agent could be chosen and the user
// should be asked to rephrase.
func (d Decision) NeedsClarification() bool {
	return d.Agent == domain.AgentUnknown
}

// Router classifies messages into agent kinds.
type Router struct {
	completer Completer
	retriever rag.Retriever
	rules     Rules
	logger    *slog.Logger
}

// New creates a router. The retriever may be nil when no knowledge base is
// configured.
func New(completer Completer, retriever rag.Retriever, rules Rules, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		completer: completer,
		retriever: retriever,
		rules:     rules,
		logger:    logger.With("component", "router"),
	}
}

// routeReply is the JSON shape the classification prompt asks for.
type routeReply struct {
	Agent           string   `json:"agent"`
	Confidence      float64  `json:"confidence"`
	Reasoning       string   `json:"reasoning"`
	SuggestedTopics []string `json:"suggested_topics"`
}

// Route picks the agent for a message. It always returns a Decision; when
// neither the model nor the keyword table can name an agent, the decision
// carries AgentUnknown and the caller asks the user to clarify.
func (r *Router) Route(ctx context.Context, message string, sctx SessionContext) Decision {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return Decision{Agent: domain.AgentUnknown}
	}

	if r.rules.MatchPlanTrigger(trimmed) {
		r.logger.Debug("planning trigger matched", "message_len", len(trimmed))
		return clamp(Decision{
			Agent:       domain.AgentPlanner,
			Confidence:  triggerConfidence,
			ContextNote: "сообщение содержит запрос на план подготовки",
		})
	}

	resp, err := r.completer.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: routeSystemPrompt},
			{Role: "user", Content: r.buildPrompt(ctx, trimmed, sctx)},
		},
		Temperature: ptr(0.1),
		MaxTokens:   300,
	})
	if err != nil {
		r.logger.Warn("classification call failed, using keyword fallback", "error", err)
		return r.keywordFallback(trimmed)
	}

	reply := routeReply{Confidence: keywordConfidence}
	if !jsonx.Decode(resp.Content, &reply) {
		// Damaged JSON: pull what survives out of the raw text before
		// giving up on the model's answer.
		reply.Agent, _ = jsonx.StringField(resp.Content, "agent")
		if conf, ok := jsonx.NumberField(resp.Content, "confidence"); ok {
			reply.Confidence = conf
		}
		reply.Reasoning, _ = jsonx.StringField(resp.Content, "reasoning")
	}

	kind := domain.ParseAgentKind(reply.Agent)
	if kind == domain.AgentUnknown {
		r.logger.Debug("model named no known agent, using keyword fallback",
			"agent", reply.Agent)
		return r.keywordFallback(trimmed)
	}

	return clamp(Decision{
		Agent:           kind,
		Confidence:      reply.Confidence,
		ContextNote:     reply.Reasoning,
		SuggestedTopics: reply.SuggestedTopics,
	})
}

// keywordFallback routes by the deterministic keyword table. No match means
// clarification.
func (r *Router) keywordFallback(message string) Decision {
	kind := r.rules.MatchKeyword(message)
	if kind == domain.AgentUnknown {
		return Decision{Agent: domain.AgentUnknown}
	}
	return clamp(Decision{
		Agent:       kind,
		Confidence:  keywordConfidence,
		ContextNote: "выбрано по ключевым словам",
	})
}

const routeSystemPrompt = `Ты маршрутизатор бота для подготовки к IT-собеседованиям.
Определи, какой агент должен обработать сообщение пользователя.

Доступные агенты:
- INTERVIEWER: проводит техническое собеседование, задаёт вопросы и оценивает ответы
- ASSESSOR: оценивает текущий уровень знаний пользователя
- PLANNER: составляет персональный план подготовки
- REVIEWER: делает ревью кода и предлагает улучшения

Ответь строго одним JSON-объектом без пояснений:
{"agent": "ИМЯ_АГЕНТА", "confidence": 0.0, "reasoning": "краткое объяснение", "suggested_topics": ["тема"]}`

// buildPrompt assembles the user part of the classification prompt:
// profile, active mode, recent turns, optional knowledge snippets and the
// message itself.
func (r *Router) buildPrompt(ctx context.Context, message string, sctx SessionContext) string {
	var b strings.Builder

	if sctx.Level != "" || sctx.Track != "" {
		fmt.Fprintf(&b, "Профиль пользователя: уровень %s, направление %s.\n", sctx.Level, sctx.Track)
	}
	if sctx.Agent != domain.AgentUnknown {
		fmt.Fprintf(&b, "Текущий режим: %s.\n", sctx.Agent)
	}

	if len(sctx.History) > 0 {
		turns := sctx.History
		if len(turns) > maxContextTurns {
			turns = turns[len(turns)-maxContextTurns:]
		}
		b.WriteString("Последние реплики:\n")
		for _, turn := range turns {
			label := "пользователь"
			if turn.Role == "assistant" {
				label = "бот"
			}
			fmt.Fprintf(&b, "- %s: %s\n", label, turn.Content)
		}
	}

	if snippets := r.lookupSnippets(ctx, message); len(snippets) > 0 {
		b.WriteString("Справочная информация из базы знаний:\n")
		for _, s := range snippets {
			fmt.Fprintf(&b, "- %s\n", s.Text)
		}
	}

	fmt.Fprintf(&b, "\nСообщение пользователя: %s", message)
	return b.String()
}

// lookupSnippets fetches knowledge context for the prompt. Retrieval
// failures only cost the extra context, never the routing itself.
func (r *Router) lookupSnippets(ctx context.Context, message string) []rag.Snippet {
	if r.retriever == nil || !r.retriever.Enabled() {
		return nil
	}
	snippets, err := r.retriever.Search(ctx, message, domain.AgentUnknown, 2)
	if err != nil {
		r.logger.Debug("knowledge lookup failed", "error", err)
		return nil
	}
	return snippets
}

// clamp bounds the decision confidence to [0, 1].
func clamp(d Decision) Decision {
	if d.Confidence < 0 {
		d.Confidence = 0
	}
	if d.Confidence > 1 {
		d.Confidence = 1
	}
	return d
}

func ptr(f float64) *float64 {
	return &f
}
