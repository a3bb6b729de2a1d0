package domain

import (
	"time"
)

// Difficulty grades an interview question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question is a single interview question.
type Question struct {
	Topic            string     `json:"topic"`
	Text             string     `json:"question"`
	ExpectedConcepts []string   `json:"expected_concepts"`
	Difficulty       Difficulty `json:"difficulty"`
	Hints            []string   `json:"hints,omitempty"`
}

// Score grades one interview answer on a 0-100 scale.
type Score struct {
	Value        int      `json:"score"`
	Comment      string   `json:"comment"`
	StrongPoints []string `json:"strong_points,omitempty"`
	WeakPoints   []string `json:"weak_points,omitempty"`
}

// InterviewSession tracks one interview from first question to
// summary. It lives inside the conversation state while the interview
// is active and is discarded once the summary is produced.
type InterviewSession struct {
	Topic         string     `json:"topic"`
	Level         Level      `json:"level"`
	Questions     []Question `json:"questions"`
	QuestionIndex int        `json:"question_index"`
	Scores        []Score    `json:"scores,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
}

// CurrentQuestion returns the question awaiting an answer, or nil
// once every answer has been scored.
func (is *InterviewSession) CurrentQuestion() *Question {
	if is.QuestionIndex >= len(is.Questions) {
		return nil
	}
	return &is.Questions[is.QuestionIndex]
}

// RecordScore stores the score for the current question and advances
// to the next one.
func (is *InterviewSession) RecordScore(s Score) {
	is.Scores = append(is.Scores, s)
	is.QuestionIndex++
}

// Complete reports whether all questions have been answered.
func (is *InterviewSession) Complete() bool {
	return is.QuestionIndex >= len(is.Questions)
}

// InterviewSummary is the final report for a completed interview.
type InterviewSummary struct {
	Topic          string   `json:"topic"`
	TotalQuestions int      `json:"total_questions"`
	AverageScore   float64  `json:"average_score"`
	Performance    string   `json:"performance_level"`
	StrongPoints   []string `json:"strong_points,omitempty"`
	WeakPoints     []string `json:"weak_points,omitempty"`
}
