// Package conversation owns the dialogue: it is the single entry
// point for every transport, the only writer of session state and the
// place where agent results become persisted records and replies.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/interprep/internal/agent"
	"github.com/ashureev/interprep/internal/domain"
	"github.com/ashureev/interprep/internal/router"
	"github.com/ashureev/interprep/internal/shared"
	"github.com/ashureev/interprep/internal/store"
)

// maxReplyRunes is the Telegram message length cap.
const maxReplyRunes = 4096

// progressLimit bounds each record list in the /progress view.
const progressLimit = 5

// Identity describes the sender of an incoming message.
type Identity struct {
	UserID    int64
	Username  string
	FirstName string
}

// MessageRouter classifies idle free text.
type MessageRouter interface {
	Route(ctx context.Context, message string, sctx router.SessionContext) router.Decision
}

// AssessorAgent scores the user's self-description.
type AssessorAgent interface {
	Assess(ctx context.Context, answer string, sctx agent.SessionContext) *domain.AssessResult
}

// InterviewerAgent generates questions and grades answers.
type InterviewerAgent interface {
	StartInterview(ctx context.Context, topic string, sctx agent.SessionContext) (*domain.InterviewSession, error)
	EvaluateAnswer(ctx context.Context, question domain.Question, answer string, sctx agent.SessionContext) *domain.Score
}

// PlannerAgent builds learning plans.
type PlannerAgent interface {
	MakePlan(ctx context.Context, topic, level string, hoursPerWeek int, sctx agent.SessionContext) (*domain.Plan, error)
}

// ReviewerAgent analyzes code fragments.
type ReviewerAgent interface {
	Review(ctx context.Context, message string, sctx agent.SessionContext) *domain.ReviewResult
}

// Agents bundles the four specialists the orchestrator dispatches to.
type Agents struct {
	Assessor    AssessorAgent
	Interviewer InterviewerAgent
	Planner     PlannerAgent
	Reviewer    ReviewerAgent
}

// Orchestrator turns incoming messages into replies. It serializes
// handling per user, owns all session mutation and persists both
// transcript sides plus every agent result.
type Orchestrator struct {
	repo    store.Repository
	router  MessageRouter
	agents  Agents
	limiter *RateLimiter
	logger  *slog.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// New creates an orchestrator. The limiter may be nil to disable rate
// limiting (tests, console).
func New(repo store.Repository, r MessageRouter, agents Agents, limiter *RateLimiter, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		repo:    repo,
		router:  r,
		agents:  agents,
		limiter: limiter,
		logger:  logger.With("component", "orchestrator"),
		locks:   make(map[int64]*sync.Mutex),
	}
}

// userLock returns the mutex serializing one user's messages.
func (o *Orchestrator) userLock(userID int64) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[userID] = lock
	}
	return lock
}

// HandleIncoming processes one message and returns the reply text.
// It never returns an empty string and never panics: any internal
// failure resets the session and produces an apology.
func (o *Orchestrator) HandleIncoming(ctx context.Context, id Identity, text string) (reply string) {
	if o.limiter != nil && !o.limiter.Allow(id.UserID) {
		return replyRateLimited
	}

	lock := o.userLock(id.UserID)
	lock.Lock()
	defer lock.Unlock()

	sess, notice, err := o.loadSession(ctx, id.UserID)
	if err != nil {
		o.logger.Error("session load failed", "user_id", id.UserID, "error", err)
		return replyInternalError
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("panic while handling message", "user_id", id.UserID, "panic", r)
			sess.Reset()
			o.persist(ctx, sess, id, text, "")
			reply = replyInternalError
		}
	}()

	user := o.loadUser(ctx, id)

	reply = o.dispatch(ctx, sess, user, strings.TrimSpace(text))
	reply = shared.TruncateRunes(notice+reply, maxReplyRunes)

	o.persist(ctx, sess, id, text, reply)
	return reply
}

// loadSession fetches or creates the user's session. A corrupt stored
// state is replaced with a fresh idle session and reported via the
// notice prefix.
func (o *Orchestrator) loadSession(ctx context.Context, userID int64) (*domain.Session, string, error) {
	sess, err := o.repo.GetSession(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrSessionCorrupt) {
			o.logger.Warn("stored session corrupt, recreating", "user_id", userID)
			return newSession(userID), replySessionRestored, nil
		}
		return nil, "", fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return newSession(userID), "", nil
	}
	return sess, "", nil
}

func newSession(userID int64) *domain.Session {
	now := time.Now()
	return &domain.Session{
		SessionID: uuid.NewString(),
		UserID:    userID,
		State:     domain.ConversationState{Kind: domain.StateIdle},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// loadUser upserts contact info and returns the stored profile. A
// store failure degrades to an empty profile rather than blocking the
// conversation.
func (o *Orchestrator) loadUser(ctx context.Context, id Identity) *domain.User {
	u := &domain.User{
		UserID:    id.UserID,
		Username:  id.Username,
		FirstName: id.FirstName,
	}
	if err := o.repo.UpsertUser(ctx, u); err != nil {
		o.logger.Error("user upsert failed", "user_id", id.UserID, "error", err)
		return u
	}
	stored, err := o.repo.GetUser(ctx, id.UserID)
	if err != nil || stored == nil {
		if err != nil {
			o.logger.Error("user load failed", "user_id", id.UserID, "error", err)
		}
		return u
	}
	return stored
}

// persist writes the transcript and the session. Failures are logged:
// the reply is already composed and losing a history row must not
// break the dialogue.
func (o *Orchestrator) persist(ctx context.Context, sess *domain.Session, id Identity, text, reply string) {
	sess.RecordTurn("user", text)
	if reply != "" {
		sess.RecordTurn("assistant", reply)
	}
	sess.UpdatedAt = time.Now()

	if err := o.repo.SaveSession(ctx, sess); err != nil {
		o.logger.Error("session save failed", "user_id", id.UserID, "error", err)
	}
	if err := o.repo.AddMessage(ctx, &domain.StoredMessage{
		UserID:    id.UserID,
		SessionID: sess.SessionID,
		Role:      "user",
		Content:   text,
	}); err != nil {
		o.logger.Error("transcript write failed", "user_id", id.UserID, "error", err)
	}
	if reply != "" {
		if err := o.repo.AddMessage(ctx, &domain.StoredMessage{
			UserID:    id.UserID,
			SessionID: sess.SessionID,
			Role:      "assistant",
			Content:   reply,
		}); err != nil {
			o.logger.Error("transcript write failed", "user_id", id.UserID, "error", err)
		}
	}
}

// dispatch picks the handling path: commands first, then the active
// flow, then routing. An active flow consumes the message directly;
// the router is only consulted when the session is idle.
func (o *Orchestrator) dispatch(ctx context.Context, sess *domain.Session, user *domain.User, text string) string {
	if strings.HasPrefix(text, "/") {
		return o.handleCommand(ctx, sess, user, text)
	}
	if !sess.State.Idle() {
		return o.continueFlow(ctx, sess, user, text)
	}
	return o.routeIdleText(ctx, sess, user, text)
}

// handleCommand executes a slash command. Commands always reset the
// active flow first so the user is never trapped in a state.
func (o *Orchestrator) handleCommand(ctx context.Context, sess *domain.Session, user *domain.User, text string) string {
	fields := strings.Fields(text)
	cmd := strings.ToLower(fields[0])
	// Group chats address commands as /cmd@botname.
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}

	sess.Reset()

	switch cmd {
	case "/start", "/help":
		return replyWelcome

	case "/begin":
		return o.handleBegin(ctx, sess, fields[1:])

	case "/assess":
		sess.CurrentAgent = domain.AgentAssessor
		sess.State.Kind = domain.StateAwaitingAssessmentAnswer
		return replyAssessPrompt

	case "/interview":
		return o.startInterview(ctx, sess, user)

	case "/plan":
		sess.CurrentAgent = domain.AgentPlanner
		sess.State.Kind = domain.StateAwaitingPlanTopic
		return replyPlanAskTopic

	case "/review":
		sess.CurrentAgent = domain.AgentReviewer
		sess.State.Kind = domain.StateAwaitingReviewCode
		return replyReviewPrompt

	case "/progress":
		return o.showProgress(ctx, sess.UserID)

	default:
		return "🤔 Не знаю такую команду.\n\n" + commandList
	}
}

// handleBegin sets the user's level and track from `/begin <level> <track>`.
func (o *Orchestrator) handleBegin(ctx context.Context, sess *domain.Session, args []string) string {
	if len(args) < 2 {
		return replyBeginUsage
	}
	level, okLevel := domain.ParseLevel(args[0])
	track, okTrack := domain.ParseTrack(args[1])
	if !okLevel || !okTrack {
		return replyBeginUsage
	}
	if err := o.repo.UpdateProfile(ctx, sess.UserID, level, track); err != nil {
		o.logger.Error("profile update failed", "user_id", sess.UserID, "error", err)
		return replyInternalError
	}
	return renderProfileSaved(level, track)
}

// startInterview generates the question set and sends the first
// question. Generation failure resets to idle: there is nothing to
// interview with.
func (o *Orchestrator) startInterview(ctx context.Context, sess *domain.Session, user *domain.User) string {
	topic := interviewTopicFor(user.Track)

	is, err := o.agents.Interviewer.StartInterview(ctx, topic, o.agentContext(user, sess))
	if err != nil {
		o.logger.Error("interview start failed", "user_id", sess.UserID, "error", err)
		sess.Reset()
		return replyInterviewFailed
	}

	sess.CurrentAgent = domain.AgentInterviewer
	sess.State = domain.ConversationState{
		Kind:      domain.StateAwaitingInterviewAnswer,
		Interview: is,
	}

	intro := fmt.Sprintf("🎙 Начинаем собеседование по теме «%s». Отвечай развёрнуто!\n\n", topic)
	return intro + renderQuestion(0, len(is.Questions), is.CurrentQuestion())
}

// showProgress renders the stored results overview.
func (o *Orchestrator) showProgress(ctx context.Context, userID int64) string {
	progress, err := o.repo.GetProgress(ctx, userID, progressLimit)
	if err != nil {
		o.logger.Error("progress load failed", "user_id", userID, "error", err)
		return replyInternalError
	}
	return renderProgress(progress)
}

// agentContext builds the prompt context passed to agents.
func (o *Orchestrator) agentContext(user *domain.User, sess *domain.Session) agent.SessionContext {
	return agent.SessionContext{
		Level:   user.Level,
		Track:   user.Track,
		History: sess.RecentTurns(3),
	}
}

// routerContext builds the classification context.
func (o *Orchestrator) routerContext(user *domain.User, sess *domain.Session) router.SessionContext {
	return router.SessionContext{
		Level:   user.Level,
		Track:   user.Track,
		Agent:   sess.CurrentAgent,
		History: sess.RecentTurns(3),
	}
}

// interviewTopicFor maps the user's track to an interview topic.
func interviewTopicFor(track domain.Track) string {
	switch track {
	case domain.TrackFrontend:
		return "JavaScript и фронтенд"
	case domain.TrackData:
		return "SQL и анализ данных"
	case domain.TrackDevOps:
		return "инфраструктура и DevOps"
	default:
		return "Python и бэкенд"
	}
}
