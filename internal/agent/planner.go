package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashureev/interprep/internal/domain"
	"github.com/ashureev/interprep/internal/jsonx"
	"github.com/ashureev/interprep/internal/llm"
	"github.com/ashureev/interprep/internal/rag"
)

// DefaultPlanWeeks is used when the planner is constructed with a
// non-positive week count.
const DefaultPlanWeeks = 4

// ErrEmptyPlan is returned when the model reply yields no usable
// weeks. A plan without weeks is worthless, so the flow must fail
// loudly rather than persist it.
var ErrEmptyPlan = errors.New("plan has no weeks")

// Planner builds weekly preparation plans.
type Planner struct {
	completer Completer
	retriever rag.Retriever
	weeks     int
	logger    *slog.Logger
}

// NewPlanner creates a planner producing `weeks`-week plans. The
// retriever may be nil.
func NewPlanner(completer Completer, retriever rag.Retriever, weeks int, logger *slog.Logger) *Planner {
	if weeks <= 0 {
		weeks = DefaultPlanWeeks
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		completer: completer,
		retriever: retriever,
		weeks:     weeks,
		logger:    logger.With("agent", "planner"),
	}
}

type planReply struct {
	Summary    string            `json:"summary"`
	FocusAreas []string          `json:"focus_areas"`
	Weeks      []domain.PlanWeek `json:"weeks"`
}

// MakePlan generates a preparation plan. The level is the plan
// difficulty ("easy", "medium", "hard"), separate from the user's
// seniority. Unlike the assessor and reviewer there is no fallback: a
// plan the user will follow for weeks must come from real model
// output, so any failure is an error.
func (p *Planner) MakePlan(ctx context.Context, topic, level string, hoursPerWeek int, sctx SessionContext) (*domain.Plan, error) {
	snippets, used := lookupSnippets(ctx, p.retriever, p.logger, topic, domain.AgentPlanner)

	resp, err := p.completer.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: planSystemPrompt},
			{Role: "user", Content: planUserPrompt(topic, level, p.weeks, hoursPerWeek, sctx, snippets)},
		},
		Temperature: ptr(0.4),
		MaxTokens:   2000,
	})
	if err != nil {
		return nil, fmt.Errorf("generate plan: %w", err)
	}

	var reply planReply
	if !jsonx.Decode(resp.Content, &reply) {
		return nil, fmt.Errorf("%w: reply not decodable", ErrEmptyPlan)
	}

	weeks := make([]domain.PlanWeek, 0, len(reply.Weeks))
	for _, w := range reply.Weeks {
		if w.Title == "" && len(w.Topics) == 0 && len(w.Tasks) == 0 {
			continue
		}
		if w.Week <= 0 {
			w.Week = len(weeks) + 1
		}
		weeks = append(weeks, w)
	}
	if len(weeks) == 0 {
		return nil, ErrEmptyPlan
	}

	return &domain.Plan{
		Topic:        topic,
		Level:        level,
		HoursPerWeek: hoursPerWeek,
		Weeks:        weeks,
		FocusAreas:   reply.FocusAreas,
		Summary:      reply.Summary,
		ContextUsed:  used,
	}, nil
}
