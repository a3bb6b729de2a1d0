package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSessionStateRoundTrip(t *testing.T) {
	t.Parallel()

	s := &Session{
		SessionID:    "abc",
		UserID:       42,
		CurrentAgent: AgentInterviewer,
		State: ConversationState{
			Kind: StateAwaitingInterviewAnswer,
			Interview: &InterviewSession{
				Topic: "Python",
				Level: LevelMiddle,
				Questions: []Question{
					{Topic: "Python", Text: "Что такое GIL?", Difficulty: DifficultyMedium},
				},
				StartedAt: time.Unix(1700000000, 0).UTC(),
			},
		},
	}

	data, err := json.Marshal(s.State)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var restored ConversationState
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if restored.Kind != StateAwaitingInterviewAnswer {
		t.Errorf("Kind = %q", restored.Kind)
	}
	if restored.Interview == nil || restored.Interview.Questions[0].Text != "Что такое GIL?" {
		t.Errorf("Interview = %+v", restored.Interview)
	}
}

func TestSessionReset(t *testing.T) {
	t.Parallel()

	s := &Session{
		SessionID:    "abc",
		CurrentAgent: AgentPlanner,
		State:        ConversationState{Kind: StateAwaitingPlanTopic},
	}
	s.Reset()
	if !s.State.Idle() {
		t.Errorf("State = %+v, want idle", s.State)
	}
	if s.CurrentAgent != AgentUnknown {
		t.Errorf("CurrentAgent = %q", s.CurrentAgent)
	}
	if s.SessionID != "abc" {
		t.Error("Reset must not touch identity")
	}
}

func TestSessionHistoryBounded(t *testing.T) {
	t.Parallel()

	s := &Session{}
	for i := 0; i < 20; i++ {
		s.RecordTurn("user", "msg")
		s.RecordTurn("assistant", "reply")
	}
	if len(s.History) != historyLimit {
		t.Errorf("len(History) = %d, want %d", len(s.History), historyLimit)
	}
	if got := s.RecentTurns(2); len(got) != 2 {
		t.Errorf("RecentTurns(2) = %d entries", len(got))
	}
}

func TestInterviewProgression(t *testing.T) {
	t.Parallel()

	is := &InterviewSession{
		Questions: []Question{{Text: "q1"}, {Text: "q2"}, {Text: "q3"}},
	}
	answered := 0
	for q := is.CurrentQuestion(); q != nil; q = is.CurrentQuestion() {
		is.RecordScore(Score{Value: 70})
		answered++
		if answered > 10 {
			t.Fatal("interview did not terminate")
		}
	}
	if answered != 3 {
		t.Errorf("answered = %d, want 3", answered)
	}
	if !is.Complete() {
		t.Error("Complete() = false after all answers")
	}
	if is.CurrentQuestion() != nil {
		t.Error("CurrentQuestion() != nil after completion")
	}
}
