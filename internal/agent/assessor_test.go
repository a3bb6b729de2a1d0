package agent

import (
	"context"
	"testing"

	"github.com/ashureev/interprep/internal/domain"
)

func TestAssessParsesReply(t *testing.T) {
	t.Parallel()

	stub := &scriptedCompleter{responses: []string{
		`{"scores": {"Python": 70, "Алгоритмы": 40}, "weak_topics": ["рекурсия"], "follow_up": "Что такое глубина рекурсии?"}`,
	}}
	a := NewAssessor(stub, nil, nil)

	res := a.Assess(context.Background(), "пишу на питоне два года", SessionContext{Level: domain.LevelJunior})

	if res.Scores["Python"] != 70 || res.Scores["Алгоритмы"] != 40 {
		t.Errorf("Scores = %v", res.Scores)
	}
	if len(res.WeakTopics) != 1 || res.WeakTopics[0] != "рекурсия" {
		t.Errorf("WeakTopics = %v", res.WeakTopics)
	}
	if res.FollowUp != "Что такое глубина рекурсии?" {
		t.Errorf("FollowUp = %q", res.FollowUp)
	}
	if res.ContextUsed {
		t.Error("ContextUsed = true without a retriever")
	}
}

func TestAssessClampsScores(t *testing.T) {
	t.Parallel()

	stub := &scriptedCompleter{responses: []string{
		`{"scores": {"Python": 150, "SQL": -20}, "weak_topics": [], "follow_up": ""}`,
	}}
	a := NewAssessor(stub, nil, nil)

	res := a.Assess(context.Background(), "опыт", SessionContext{})

	if res.Scores["Python"] != 100 {
		t.Errorf("Python = %d, want 100", res.Scores["Python"])
	}
	if res.Scores["SQL"] != 0 {
		t.Errorf("SQL = %d, want 0", res.Scores["SQL"])
	}
}

func TestAssessFallbackOnModelFailure(t *testing.T) {
	t.Parallel()

	a := NewAssessor(failingCompleter(), nil, nil)

	res := a.Assess(context.Background(), "опыт", SessionContext{})

	assertFallbackAssessment(t, res)
}

func TestAssessFallbackOnGarbageReply(t *testing.T) {
	t.Parallel()

	stub := &scriptedCompleter{responses: []string{"извини, не могу оценить"}}
	a := NewAssessor(stub, nil, nil)

	res := a.Assess(context.Background(), "опыт", SessionContext{})

	assertFallbackAssessment(t, res)
}

func assertFallbackAssessment(t *testing.T, res *domain.AssessResult) {
	t.Helper()
	if res.Scores["Python"] != 50 || res.Scores["Algorithms"] != 50 {
		t.Errorf("Scores = %v, want neutral 50s", res.Scores)
	}
	if len(res.WeakTopics) != 1 || res.WeakTopics[0] != "unknown" {
		t.Errorf("WeakTopics = %v", res.WeakTopics)
	}
	if res.FollowUp != "Можешь уточнить свой опыт подробнее?" {
		t.Errorf("FollowUp = %q", res.FollowUp)
	}
}
