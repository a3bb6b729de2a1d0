package conversation

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/interprep/internal/agent"
	"github.com/ashureev/interprep/internal/domain"
	"github.com/ashureev/interprep/internal/router"
	"github.com/ashureev/interprep/internal/store"
)

// fakeRepo is an in-memory Repository for orchestrator tests.
type fakeRepo struct {
	mu          sync.Mutex
	users       map[int64]*domain.User
	sessions    map[int64]*domain.Session
	messages    []domain.StoredMessage
	assessments []domain.AssessmentRecord
	interviews  []domain.InterviewRecord
	plans       []domain.PlanRecord
	reviews     []domain.ReviewRecord

	// sessionErr is returned by the next GetSession call, then cleared.
	sessionErr error
	planErr    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:    make(map[int64]*domain.User),
		sessions: make(map[int64]*domain.Session),
	}
}

func (f *fakeRepo) GetUser(_ context.Context, userID int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) UpsertUser(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.users[user.UserID]; ok {
		existing.Username = user.Username
		existing.FirstName = user.FirstName
		return nil
	}
	cp := *user
	f.users[user.UserID] = &cp
	return nil
}

func (f *fakeRepo) UpdateProfile(_ context.Context, userID int64, level domain.Level, track domain.Track) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return errors.New("user not found")
	}
	u.Level = level
	u.Track = track
	return nil
}

func (f *fakeRepo) GetSession(_ context.Context, userID int64) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessionErr != nil {
		err := f.sessionErr
		f.sessionErr = nil
		return nil, err
	}
	s, ok := f.sessions[userID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeRepo) SaveSession(_ context.Context, session *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *session
	f.sessions[session.UserID] = &cp
	return nil
}

func (f *fakeRepo) ResetStaleSessions(_ context.Context, _ time.Duration) (int64, error) {
	return 0, nil
}

func (f *fakeRepo) AddMessage(_ context.Context, msg *domain.StoredMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeRepo) SaveAssessment(_ context.Context, rec *domain.AssessmentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assessments = append(f.assessments, *rec)
	return nil
}

func (f *fakeRepo) SaveInterviewResult(_ context.Context, rec *domain.InterviewRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interviews = append(f.interviews, *rec)
	return nil
}

func (f *fakeRepo) SaveLearningPlan(_ context.Context, rec *domain.PlanRecord) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.planErr != nil {
		return 0, f.planErr
	}
	f.plans = append(f.plans, *rec)
	return int64(len(f.plans)), nil
}

func (f *fakeRepo) SaveCodeReview(_ context.Context, rec *domain.ReviewRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviews = append(f.reviews, *rec)
	return nil
}

func (f *fakeRepo) GetProgress(_ context.Context, _ int64, _ int) (*domain.ProgressSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &domain.ProgressSummary{Reviews: len(f.reviews)}
	p.Assessments = append(p.Assessments, f.assessments...)
	p.Interviews = append(p.Interviews, f.interviews...)
	p.Plans = append(p.Plans, f.plans...)
	return p, nil
}

func (f *fakeRepo) Ping(_ context.Context) error { return nil }
func (f *fakeRepo) Close() error                 { return nil }

func (f *fakeRepo) session(userID int64) *domain.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[userID]
}

// stubRouter returns a canned decision and counts calls.
type stubRouter struct {
	calls    int
	decision router.Decision
}

func (s *stubRouter) Route(_ context.Context, _ string, _ router.SessionContext) router.Decision {
	s.calls++
	return s.decision
}

type stubAssessor struct {
	calls  int
	result *domain.AssessResult
}

func (s *stubAssessor) Assess(_ context.Context, _ string, _ agent.SessionContext) *domain.AssessResult {
	s.calls++
	return s.result
}

type panicAssessor struct{}

func (panicAssessor) Assess(_ context.Context, _ string, _ agent.SessionContext) *domain.AssessResult {
	panic("assessor exploded")
}

type stubInterviewer struct {
	startCalls int
	evalCalls  int
	questions  []domain.Question
	startErr   error
	score      domain.Score
}

func (s *stubInterviewer) StartInterview(_ context.Context, topic string, _ agent.SessionContext) (*domain.InterviewSession, error) {
	s.startCalls++
	if s.startErr != nil {
		return nil, s.startErr
	}
	return &domain.InterviewSession{
		Topic:     topic,
		Questions: s.questions,
		StartedAt: time.Now(),
	}, nil
}

func (s *stubInterviewer) EvaluateAnswer(_ context.Context, _ domain.Question, _ string, _ agent.SessionContext) *domain.Score {
	s.evalCalls++
	sc := s.score
	return &sc
}

type stubPlanner struct {
	calls int
	topic string
	level string
	hours int
	err   error
}

func (s *stubPlanner) MakePlan(_ context.Context, topic, level string, hoursPerWeek int, _ agent.SessionContext) (*domain.Plan, error) {
	s.calls++
	s.topic, s.level, s.hours = topic, level, hoursPerWeek
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Plan{
		Topic:        topic,
		Level:        level,
		HoursPerWeek: hoursPerWeek,
		Weeks: []domain.PlanWeek{
			{Week: 1, Title: "Основы", Topics: []string{"база"}, EstimatedHours: hoursPerWeek},
			{Week: 2, Title: "Практика", Tasks: []string{"решить 20 задач"}, EstimatedHours: hoursPerWeek},
		},
		Summary: "Короткий интенсив.",
	}, nil
}

type stubReviewer struct {
	calls  int
	result *domain.ReviewResult
}

func (s *stubReviewer) Review(_ context.Context, _ string, _ agent.SessionContext) *domain.ReviewResult {
	s.calls++
	return s.result
}

// testEnv wires an orchestrator with counting fakes.
type testEnv struct {
	repo        *fakeRepo
	router      *stubRouter
	assessor    *stubAssessor
	interviewer *stubInterviewer
	planner     *stubPlanner
	reviewer    *stubReviewer
	orch        *Orchestrator
}

const testUserID = 42

func newTestEnv() *testEnv {
	return newTestEnvWith(nil)
}

func newTestEnvWith(limiter *RateLimiter) *testEnv {
	env := &testEnv{
		repo:   newFakeRepo(),
		router: &stubRouter{},
		assessor: &stubAssessor{result: &domain.AssessResult{
			Scores:     map[string]int{"Python": 70, "Алгоритмы": 55},
			WeakTopics: []string{"динамическое программирование"},
			FollowUp:   "Какие проекты писал?",
		}},
		interviewer: &stubInterviewer{
			questions: []domain.Question{
				{Topic: "Python", Text: "Чем список отличается от кортежа?"},
				{Topic: "Python", Text: "Как устроен словарь?"},
			},
			score: domain.Score{Value: 80, Comment: "Хороший ответ."},
		},
		planner: &stubPlanner{},
		reviewer: &stubReviewer{result: &domain.ReviewResult{
			Summary:  "Код читается легко.",
			Score:    74,
			Language: "python",
			Issues: []domain.Issue{
				{Type: domain.IssueStyle, Description: "Нет докстрингов", Severity: domain.SeverityLow},
			},
		}},
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	env.orch = New(env.repo, env.router, Agents{
		Assessor:    env.assessor,
		Interviewer: env.interviewer,
		Planner:     env.planner,
		Reviewer:    env.reviewer,
	}, limiter, logger)
	return env
}

func (e *testEnv) send(t *testing.T, text string) string {
	t.Helper()
	return e.orch.HandleIncoming(context.Background(), Identity{UserID: testUserID, Username: "gopher"}, text)
}

func (e *testEnv) stateKind(t *testing.T) domain.StateKind {
	t.Helper()
	sess := e.repo.session(testUserID)
	if sess == nil {
		t.Fatal("no session saved")
	}
	return sess.State.Kind
}

func TestStartCommandShowsWelcome(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	got := env.send(t, "/start")
	if got != replyWelcome {
		t.Errorf("reply = %q, want welcome", got)
	}

	sess := env.repo.session(testUserID)
	if sess == nil {
		t.Fatal("session not saved")
	}
	if !sess.State.Idle() {
		t.Errorf("state = %q, want idle", sess.State.Kind)
	}
	if len(env.repo.messages) != 2 {
		t.Errorf("transcript rows = %d, want 2", len(env.repo.messages))
	}
	if env.repo.messages[0].Role != "user" || env.repo.messages[1].Role != "assistant" {
		t.Errorf("transcript roles = %q, %q", env.repo.messages[0].Role, env.repo.messages[1].Role)
	}
}

func TestRateLimitRefusal(t *testing.T) {
	t.Parallel()
	env := newTestEnvWith(NewRateLimiter(1, time.Minute))

	if got := env.send(t, "/help"); got != replyWelcome {
		t.Fatalf("first reply = %q, want welcome", got)
	}
	if got := env.send(t, "/help"); got != replyRateLimited {
		t.Errorf("second reply = %q, want rate limit refusal", got)
	}
	// The refused message leaves no transcript rows.
	if len(env.repo.messages) != 2 {
		t.Errorf("transcript rows = %d, want 2", len(env.repo.messages))
	}
}

func TestCommandResetsActiveFlow(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	env.send(t, "/plan")
	if kind := env.stateKind(t); kind != domain.StateAwaitingPlanTopic {
		t.Fatalf("state after /plan = %q", kind)
	}

	if got := env.send(t, "/help"); got != replyWelcome {
		t.Errorf("reply = %q, want welcome", got)
	}
	if kind := env.stateKind(t); kind != domain.StateIdle {
		t.Errorf("state after /help = %q, want idle", kind)
	}
}

func TestBeginCommandSavesProfile(t *testing.T) {
	t.Parallel()

	cases := []struct {
		msg   string
		level domain.Level
		track domain.Track
	}{
		{"/begin junior backend", domain.LevelJunior, domain.TrackBackend},
		{"/begin сеньор данные", domain.LevelSenior, domain.TrackData},
		{"/begin мидл фронтенд", domain.LevelMiddle, domain.TrackFrontend},
	}
	for _, tc := range cases {
		env := newTestEnv()
		got := env.send(t, tc.msg)
		if want := renderProfileSaved(tc.level, tc.track); got != want {
			t.Errorf("%q reply = %q, want %q", tc.msg, got, want)
		}
		u := env.repo.users[testUserID]
		if u.Level != tc.level || u.Track != tc.track {
			t.Errorf("%q profile = %s/%s, want %s/%s", tc.msg, u.Level, u.Track, tc.level, tc.track)
		}
	}
}

func TestBeginCommandUsage(t *testing.T) {
	t.Parallel()

	for _, msg := range []string{"/begin", "/begin junior", "/begin wizard magic", "/begin junior magic"} {
		env := newTestEnv()
		if got := env.send(t, msg); got != replyBeginUsage {
			t.Errorf("%q reply = %q, want usage", msg, got)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	got := env.send(t, "/abracadabra")
	if !strings.Contains(got, "Не знаю такую команду") {
		t.Errorf("reply = %q, want unknown command notice", got)
	}
	if !strings.Contains(got, "/help") {
		t.Errorf("reply should list commands, got %q", got)
	}
}

func TestCommandWithBotMention(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	if got := env.send(t, "/plan@interprep_bot"); got != replyPlanAskTopic {
		t.Errorf("reply = %q, want plan topic prompt", got)
	}
	if kind := env.stateKind(t); kind != domain.StateAwaitingPlanTopic {
		t.Errorf("state = %q, want awaiting plan topic", kind)
	}
}

func TestCorruptSessionRecovered(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	env.repo.sessionErr = store.ErrSessionCorrupt

	got := env.send(t, "/help")
	if !strings.HasPrefix(got, replySessionRestored) {
		t.Errorf("reply = %q, want session restored prefix", got)
	}
	if !strings.Contains(got, "Привет") {
		t.Errorf("reply = %q, want welcome after the notice", got)
	}
	if kind := env.stateKind(t); kind != domain.StateIdle {
		t.Errorf("state = %q, want idle", kind)
	}
}

func TestPanicRecoveryResetsSession(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	env.orch.agents.Assessor = panicAssessor{}

	env.send(t, "/assess")
	got := env.send(t, "Я пишу на Python уже три года")
	if got != replyInternalError {
		t.Errorf("reply = %q, want internal error apology", got)
	}
	if kind := env.stateKind(t); kind != domain.StateIdle {
		t.Errorf("state = %q, want idle after recovery", kind)
	}
}

func TestActiveFlowBypassesRouter(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	env.send(t, "/plan")
	got := env.send(t, "хочу пройти собеседование по Python")

	if env.router.calls != 0 {
		t.Errorf("router calls = %d, want 0 during active flow", env.router.calls)
	}
	if got != replyPlanAskLevel {
		t.Errorf("reply = %q, want plan level prompt", got)
	}
	sess := env.repo.session(testUserID)
	if sess.State.PlanTopic != "хочу пройти собеседование по Python" {
		t.Errorf("plan topic = %q, want the raw message", sess.State.PlanTopic)
	}
}

func TestUsersHaveIndependentFlows(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	env.router.decision = router.Decision{Agent: domain.AgentInterviewer, Confidence: 0.8}

	env.send(t, "/plan")
	env.send(t, "алгоритмы")

	// A second user arrives mid-flow; their message goes through the
	// router, not into the first user's plan dialogue.
	const otherID = int64(43)
	got := env.orch.HandleIncoming(context.Background(), Identity{UserID: otherID, Username: "ferris"}, "потренируй собеседование")
	if env.router.calls != 1 {
		t.Errorf("router calls = %d, want 1 for the idle user", env.router.calls)
	}
	if !strings.Contains(got, "Вопрос 1 из 2") {
		t.Errorf("second user reply = %q, want first question", got)
	}

	other := env.repo.session(otherID)
	if other == nil {
		t.Fatal("no session saved for second user")
	}
	if other.State.Kind != domain.StateAwaitingInterviewAnswer {
		t.Errorf("second user state = %q, want awaiting interview answer", other.State.Kind)
	}

	sess := env.repo.session(testUserID)
	if sess.State.Kind != domain.StateAwaitingPlanLevel {
		t.Errorf("first user state = %q, want awaiting plan level", sess.State.Kind)
	}
	if sess.State.PlanTopic != "алгоритмы" {
		t.Errorf("first user plan topic = %q, must survive", sess.State.PlanTopic)
	}
	if other.SessionID == sess.SessionID {
		t.Error("users share a session id")
	}

	// The first user's flow continues where it stopped.
	if got := env.send(t, "средний"); got != replyPlanAskHours {
		t.Errorf("first user reply = %q, want hours prompt", got)
	}
	if env.router.calls != 1 {
		t.Errorf("router calls = %d, want still 1", env.router.calls)
	}
}

func TestProgressCommand(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	got := env.send(t, "/progress")
	if !strings.Contains(got, "Пока пусто") {
		t.Errorf("empty progress reply = %q", got)
	}

	env.repo.assessments = append(env.repo.assessments, domain.AssessmentRecord{
		UserID: testUserID, Skill: "Python", Score: 70,
	})
	env.repo.reviews = append(env.repo.reviews, domain.ReviewRecord{UserID: testUserID})

	got = env.send(t, "/progress")
	if !strings.Contains(got, "Python: 70/100") {
		t.Errorf("progress reply = %q, want assessment row", got)
	}
	if !strings.Contains(got, "Ревью кода: 1") {
		t.Errorf("progress reply = %q, want review count", got)
	}
}

func TestHistoryKeepsBothSides(t *testing.T) {
	t.Parallel()
	env := newTestEnv()

	env.send(t, "/start")
	sess := env.repo.session(testUserID)
	if len(sess.History) != 2 {
		t.Fatalf("history turns = %d, want 2", len(sess.History))
	}
	if sess.History[0].Role != "user" || sess.History[1].Role != "assistant" {
		t.Errorf("history roles = %q, %q", sess.History[0].Role, sess.History[1].Role)
	}
}
