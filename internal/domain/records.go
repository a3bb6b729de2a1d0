package domain

import "time"

// Persisted result records. Each completed agent interaction leaves
// one of these behind for the progress view.

// AssessmentRecord is one stored skill score.
type AssessmentRecord struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Skill     string    `json:"skill"`
	Score     int       `json:"score"`
	Feedback  string    `json:"feedback,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// InterviewRecord summarizes a finished interview.
type InterviewRecord struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Topic          string    `json:"topic"`
	Level          string    `json:"level"`
	TotalQuestions int       `json:"total_questions"`
	AverageScore   float64   `json:"average_score"`
	Performance    string    `json:"performance"`
	DetailsJSON    string    `json:"details,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// PlanRecord is a saved learning plan.
type PlanRecord struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Track         string    `json:"track,omitempty"`
	Level         string    `json:"level,omitempty"`
	DurationWeeks int       `json:"duration_weeks"`
	PlanJSON      string    `json:"plan_data"`
	Progress      float64   `json:"progress"`
	Active        bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ReviewRecord is a persisted code review.
type ReviewRecord struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Language    string    `json:"language"`
	Code        string    `json:"code_snippet"`
	Score       int       `json:"score"`
	IssuesFound int       `json:"issues_found"`
	DetailsJSON string    `json:"details,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// StoredMessage is one transcript entry.
type StoredMessage struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"` // user|assistant
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ProgressSummary aggregates a user's stored results for /progress.
type ProgressSummary struct {
	Assessments []AssessmentRecord `json:"assessments,omitempty"`
	Interviews  []InterviewRecord  `json:"interviews,omitempty"`
	Plans       []PlanRecord       `json:"plans,omitempty"`
	Reviews     int                `json:"reviews"`
}
