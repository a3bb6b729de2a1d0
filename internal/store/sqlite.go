package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ashureev/interprep/internal/domain"
	"github.com/ashureev/interprep/internal/shared"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	sessionMu sync.Mutex // serializes session writes to prevent SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id INTEGER PRIMARY KEY,
		username TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		level TEXT NOT NULL DEFAULT 'junior',
		track TEXT NOT NULL DEFAULT 'backend',
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		user_id INTEGER PRIMARY KEY,
		session_id TEXT NOT NULL,
		current_agent TEXT,
		state_kind TEXT NOT NULL DEFAULT 'idle',
		state_json TEXT NOT NULL,
		history_json TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_stale ON sessions(state_kind, updated_at);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		session_id TEXT,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_user ON messages(user_id, created_at);

	CREATE TABLE IF NOT EXISTS assessments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		skill TEXT NOT NULL,
		score INTEGER NOT NULL,
		feedback TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_assessments_user ON assessments(user_id, created_at);

	CREATE TABLE IF NOT EXISTS interview_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		topic TEXT NOT NULL,
		level TEXT,
		total_questions INTEGER NOT NULL,
		average_score REAL NOT NULL,
		performance TEXT,
		details_json TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_interview_results_user ON interview_results(user_id, created_at);

	CREATE TABLE IF NOT EXISTS learning_plans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		track TEXT,
		level TEXT,
		duration_weeks INTEGER NOT NULL DEFAULT 4,
		plan_json TEXT NOT NULL,
		progress REAL NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_learning_plans_user ON learning_plans(user_id, is_active);

	CREATE TABLE IF NOT EXISTS code_reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		language TEXT NOT NULL DEFAULT 'python',
		code_snippet TEXT NOT NULL,
		score INTEGER NOT NULL,
		issues_found INTEGER NOT NULL DEFAULT 0,
		details_json TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_code_reviews_user ON code_reviews(user_id, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetUser retrieves a user profile.
func (s *SQLiteStore) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	query := `
		SELECT user_id, username, first_name, level, track,
		       last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var user domain.User
	var lastSeen, createdAt, updatedAt int64

	err := row.Scan(
		&user.UserID, &user.Username, &user.FirstName, &user.Level, &user.Track,
		&lastSeen, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)

	return &user, nil
}

// UpsertUser creates or refreshes a user record on contact. An
// existing row keeps its level and track.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, username, first_name, level, track, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		first_name = excluded.first_name,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	level := user.Level
	if level == "" {
		level = domain.LevelJunior
	}
	track := user.Track
	if track == "" {
		track = domain.TrackBackend
	}

	now := time.Now()
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.Username, user.FirstName, level, track,
		now.Unix(), createdAt.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateProfile sets the user's seniority and track.
func (s *SQLiteStore) UpdateProfile(ctx context.Context, userID int64, level domain.Level, track domain.Track) error {
	query := `UPDATE users SET level = ?, track = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, level, track, time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user %d not found", userID)
	}
	return nil
}

// GetSession retrieves the user's session.
func (s *SQLiteStore) GetSession(ctx context.Context, userID int64) (*domain.Session, error) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	query := `
		SELECT user_id, session_id, current_agent, state_json, history_json,
		       created_at, updated_at
		FROM sessions WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var session domain.Session
	var currentAgent, historyJSON sql.NullString
	var stateJSON string
	var createdAt, updatedAt int64

	err := row.Scan(
		&session.UserID, &session.SessionID, &currentAgent,
		&stateJSON, &historyJSON, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	session.CreatedAt = time.Unix(createdAt, 0)
	session.UpdatedAt = time.Unix(updatedAt, 0)
	session.CurrentAgent = domain.ParseAgentKind(currentAgent.String)

	if err := json.Unmarshal([]byte(stateJSON), &session.State); err != nil {
		return nil, fmt.Errorf("%w: decode state for user %d: %v", ErrSessionCorrupt, userID, err)
	}
	if !validStateKind(session.State.Kind) {
		return nil, fmt.Errorf("%w: unknown state kind %q for user %d", ErrSessionCorrupt, session.State.Kind, userID)
	}
	if historyJSON.Valid && historyJSON.String != "" {
		if err := json.Unmarshal([]byte(historyJSON.String), &session.History); err != nil {
			return nil, fmt.Errorf("%w: decode history for user %d: %v", ErrSessionCorrupt, userID, err)
		}
	}

	return &session, nil
}

func validStateKind(kind domain.StateKind) bool {
	switch kind {
	case "", domain.StateIdle,
		domain.StateAwaitingAssessmentAnswer,
		domain.StateAwaitingInterviewAnswer,
		domain.StateAwaitingPlanTopic,
		domain.StateAwaitingPlanLevel,
		domain.StateAwaitingPlanHours,
		domain.StateAwaitingPlanSave,
		domain.StateAwaitingReviewCode:
		return true
	default:
		return false
	}
}

// SaveSession upserts the session. Retries with exponential backoff
// on SQLite lock contention.
func (s *SQLiteStore) SaveSession(ctx context.Context, session *domain.Session) error {
	const maxRetries = 3
	baseDelay := 100 * time.Millisecond

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		lastErr = s.saveSessionOnce(ctx, session)
		if lastErr == nil {
			return nil
		}

		if shared.IsSQLiteConflictError(lastErr) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i) // 100ms, 200ms, 400ms
			slog.Debug("SaveSession hit lock contention, retrying",
				"user_id", session.UserID,
				"attempt", i+1,
				"delay", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}
		break
	}

	return fmt.Errorf("save session for user %d: %w", session.UserID, lastErr)
}

func (s *SQLiteStore) saveSessionOnce(ctx context.Context, session *domain.Session) error {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	stateJSON, err := json.Marshal(session.State)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	var historyJSON interface{}
	if len(session.History) > 0 {
		data, err := json.Marshal(session.History)
		if err != nil {
			return fmt.Errorf("encode history: %w", err)
		}
		historyJSON = string(data)
	}

	var currentAgent interface{}
	if session.CurrentAgent != domain.AgentUnknown {
		currentAgent = string(session.CurrentAgent)
	}

	kind := session.State.Kind
	if kind == "" {
		kind = domain.StateIdle
	}

	now := time.Now()
	createdAt := session.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	query := `
	INSERT INTO sessions (user_id, session_id, current_agent, state_kind, state_json, history_json, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		session_id = excluded.session_id,
		current_agent = excluded.current_agent,
		state_kind = excluded.state_kind,
		state_json = excluded.state_json,
		history_json = excluded.history_json,
		updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query,
		session.UserID, session.SessionID, currentAgent, kind,
		string(stateJSON), historyJSON, createdAt.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// ResetStaleSessions returns abandoned non-idle sessions to idle.
func (s *SQLiteStore) ResetStaleSessions(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	threshold := time.Now().Add(-olderThan).Unix()
	idleState, _ := json.Marshal(domain.ConversationState{Kind: domain.StateIdle})

	query := `
	UPDATE sessions
	SET state_kind = ?, state_json = ?, current_agent = NULL, updated_at = ?
	WHERE state_kind != ? AND updated_at < ?`

	result, err := s.db.ExecContext(ctx, query,
		domain.StateIdle, string(idleState), time.Now().Unix(),
		domain.StateIdle, threshold,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stale sessions: %w", err)
	}
	return result.RowsAffected()
}

// AddMessage appends one transcript entry.
func (s *SQLiteStore) AddMessage(ctx context.Context, msg *domain.StoredMessage) error {
	query := `
	INSERT INTO messages (user_id, session_id, role, content, created_at)
	VALUES (?, ?, ?, ?, ?)`

	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, query,
		msg.UserID, msg.SessionID, msg.Role, msg.Content, createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// SaveAssessment stores one skill score row.
func (s *SQLiteStore) SaveAssessment(ctx context.Context, rec *domain.AssessmentRecord) error {
	query := `
	INSERT INTO assessments (user_id, skill, score, feedback, created_at)
	VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		rec.UserID, rec.Skill, rec.Score, rec.Feedback, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

// SaveInterviewResult stores a completed interview summary.
func (s *SQLiteStore) SaveInterviewResult(ctx context.Context, rec *domain.InterviewRecord) error {
	query := `
	INSERT INTO interview_results (user_id, topic, level, total_questions, average_score, performance, details_json, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	var details interface{}
	if rec.DetailsJSON != "" {
		details = rec.DetailsJSON
	}

	_, err := s.db.ExecContext(ctx, query,
		rec.UserID, rec.Topic, rec.Level, rec.TotalQuestions,
		rec.AverageScore, rec.Performance, details, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert interview result: %w", err)
	}
	return nil
}

// SaveLearningPlan stores a confirmed plan and returns its row id.
func (s *SQLiteStore) SaveLearningPlan(ctx context.Context, rec *domain.PlanRecord) (int64, error) {
	query := `
	INSERT INTO learning_plans (user_id, title, description, track, level, duration_weeks, plan_json, progress, is_active, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now().Unix()
	active := 0
	if rec.Active {
		active = 1
	}

	result, err := s.db.ExecContext(ctx, query,
		rec.UserID, rec.Title, rec.Description, rec.Track, rec.Level,
		rec.DurationWeeks, rec.PlanJSON, rec.Progress, active, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert learning plan: %w", err)
	}
	return result.LastInsertId()
}

// SaveCodeReview stores a completed review.
func (s *SQLiteStore) SaveCodeReview(ctx context.Context, rec *domain.ReviewRecord) error {
	query := `
	INSERT INTO code_reviews (user_id, language, code_snippet, score, issues_found, details_json, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	language := rec.Language
	if language == "" {
		language = "python"
	}

	_, err := s.db.ExecContext(ctx, query,
		rec.UserID, language, rec.Code, rec.Score, rec.IssuesFound,
		rec.DetailsJSON, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert code review: %w", err)
	}
	return nil
}

// GetProgress aggregates recent results for the progress view.
func (s *SQLiteStore) GetProgress(ctx context.Context, userID int64, limit int) (*domain.ProgressSummary, error) {
	if limit <= 0 {
		limit = 5
	}

	summary := &domain.ProgressSummary{}

	assessments, err := s.recentAssessments(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	summary.Assessments = assessments

	interviews, err := s.recentInterviews(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	summary.Interviews = interviews

	plans, err := s.activePlans(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary.Plans = plans

	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM code_reviews WHERE user_id = ?`, userID)
	if err := row.Scan(&summary.Reviews); err != nil {
		return nil, fmt.Errorf("count reviews: %w", err)
	}

	return summary, nil
}

func (s *SQLiteStore) recentAssessments(ctx context.Context, userID int64, limit int) ([]domain.AssessmentRecord, error) {
	query := `
		SELECT id, user_id, skill, score, feedback, created_at
		FROM assessments WHERE user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query assessments: %w", err)
	}
	defer rows.Close()

	var out []domain.AssessmentRecord
	for rows.Next() {
		var rec domain.AssessmentRecord
		var feedback sql.NullString
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Skill, &rec.Score, &feedback, &createdAt); err != nil {
			return nil, fmt.Errorf("scan assessment row: %w", err)
		}
		rec.Feedback = feedback.String
		rec.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) recentInterviews(ctx context.Context, userID int64, limit int) ([]domain.InterviewRecord, error) {
	query := `
		SELECT id, user_id, topic, level, total_questions, average_score, performance, details_json, created_at
		FROM interview_results WHERE user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query interview results: %w", err)
	}
	defer rows.Close()

	var out []domain.InterviewRecord
	for rows.Next() {
		var rec domain.InterviewRecord
		var level, performance, details sql.NullString
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Topic, &level, &rec.TotalQuestions,
			&rec.AverageScore, &performance, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("scan interview row: %w", err)
		}
		rec.Level = level.String
		rec.Performance = performance.String
		rec.DetailsJSON = details.String
		rec.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) activePlans(ctx context.Context, userID int64) ([]domain.PlanRecord, error) {
	query := `
		SELECT id, user_id, title, description, track, level, duration_weeks, plan_json, progress, is_active, created_at, updated_at
		FROM learning_plans WHERE user_id = ? AND is_active = 1
		ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query learning plans: %w", err)
	}
	defer rows.Close()

	var out []domain.PlanRecord
	for rows.Next() {
		var rec domain.PlanRecord
		var description, track, level sql.NullString
		var active int
		var createdAt, updatedAt int64
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Title, &description, &track, &level,
			&rec.DurationWeeks, &rec.PlanJSON, &rec.Progress, &active, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan plan row: %w", err)
		}
		rec.Description = description.String
		rec.Track = track.String
		rec.Level = level.String
		rec.Active = active == 1
		rec.CreatedAt = time.Unix(createdAt, 0)
		rec.UpdatedAt = time.Unix(updatedAt, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}
