package domain

import (
	"time"
)

// StateKind tags the active conversation flow of a session.
type StateKind string

const (
	StateIdle                     StateKind = "idle"
	StateAwaitingAssessmentAnswer StateKind = "awaiting_assessment_answer"
	StateAwaitingInterviewAnswer  StateKind = "awaiting_interview_answer"
	StateAwaitingPlanTopic        StateKind = "awaiting_plan_topic"
	StateAwaitingPlanLevel        StateKind = "awaiting_plan_level"
	StateAwaitingPlanHours        StateKind = "awaiting_plan_hours"
	StateAwaitingPlanSave         StateKind = "awaiting_plan_save"
	StateAwaitingReviewCode       StateKind = "awaiting_review_code"
)

// ConversationState is the tagged flow state. Kind selects the
// variant; only the payload fields that variant names are meaningful.
type ConversationState struct {
	Kind StateKind `json:"kind"`

	// Interview flow payload.
	Interview *InterviewSession `json:"interview,omitempty"`

	// Plan flow payload, filled in as the dialogue progresses.
	PlanTopic string `json:"plan_topic,omitempty"`
	PlanLevel string `json:"plan_level,omitempty"`
	Plan      *Plan  `json:"plan,omitempty"`
}

// Idle reports whether no flow is active.
func (s ConversationState) Idle() bool {
	return s.Kind == StateIdle || s.Kind == ""
}

// historyLimit bounds stored turns: three exchanges, both sides.
const historyLimit = 6

// Turn is one stored side of an exchange, kept for routing context.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Session holds per-user conversation state. One session exists per
// user; it is reset, never deleted.
type Session struct {
	SessionID    string            `json:"session_id"`
	UserID       int64             `json:"user_id"`
	CurrentAgent AgentKind         `json:"current_agent,omitempty"`
	State        ConversationState `json:"state"`
	History      []Turn            `json:"history,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Reset clears the flow state back to idle. The session row and its
// identifiers survive.
func (s *Session) Reset() {
	s.CurrentAgent = AgentUnknown
	s.State = ConversationState{Kind: StateIdle}
}

// RecordTurn appends a conversation turn, keeping only the most
// recent ones.
func (s *Session) RecordTurn(role, content string) {
	s.History = append(s.History, Turn{Role: role, Content: content})
	if len(s.History) > historyLimit {
		s.History = s.History[len(s.History)-historyLimit:]
	}
}

// RecentTurns returns up to n most recent turns, oldest first.
func (s *Session) RecentTurns(n int) []Turn {
	if n >= len(s.History) {
		return s.History
	}
	return s.History[len(s.History)-n:]
}
