// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ashureev/interprep/internal/domain"
)

// ErrSessionCorrupt is returned by GetSession when a stored session
// row cannot be decoded. The caller is expected to recreate the
// session in the idle state and tell the user, never to crash.
var ErrSessionCorrupt = errors.New("session state corrupt")

// Repository defines the interface for persisting users, sessions and
// agent results.
type Repository interface {
	// GetUser retrieves a user profile. Returns (nil, nil) when the
	// user has never been seen.
	GetUser(ctx context.Context, userID int64) (*domain.User, error)

	// UpsertUser creates or refreshes a user record on contact. Level
	// and track of an existing row are left untouched; UpdateProfile
	// owns those.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateProfile sets the user's seniority and track.
	UpdateProfile(ctx context.Context, userID int64, level domain.Level, track domain.Track) error

	// GetSession retrieves the user's session. Returns (nil, nil) when
	// none exists yet and ErrSessionCorrupt when the stored state does
	// not decode.
	GetSession(ctx context.Context, userID int64) (*domain.Session, error)

	// SaveSession upserts the session atomically, retrying on SQLite
	// lock contention.
	SaveSession(ctx context.Context, session *domain.Session) error

	// ResetStaleSessions returns abandoned non-idle sessions to the
	// idle state and reports how many were reset.
	ResetStaleSessions(ctx context.Context, olderThan time.Duration) (int64, error)

	// AddMessage appends one transcript entry.
	AddMessage(ctx context.Context, msg *domain.StoredMessage) error

	// SaveAssessment stores one skill score row.
	SaveAssessment(ctx context.Context, rec *domain.AssessmentRecord) error

	// SaveInterviewResult stores a completed interview summary.
	SaveInterviewResult(ctx context.Context, rec *domain.InterviewRecord) error

	// SaveLearningPlan stores a confirmed plan and returns its row id.
	SaveLearningPlan(ctx context.Context, rec *domain.PlanRecord) (int64, error)

	// SaveCodeReview stores a completed review.
	SaveCodeReview(ctx context.Context, rec *domain.ReviewRecord) error

	// GetProgress aggregates recent results for the progress view.
	// limit bounds each record list.
	GetProgress(ctx context.Context, userID int64, limit int) (*domain.ProgressSummary, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
