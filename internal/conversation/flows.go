package conversation

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ashureev/interprep/internal/agent"
	"github.com/ashureev/interprep/internal/domain"
	"github.com/ashureev/interprep/internal/shared"
)

const (
	// assessSubstantiveMin separates a real self-description from a
	// short "оцени меня" that still needs the dedicated prompt.
	assessSubstantiveMin = 20

	// defaultPlanHours is assumed when the user's hours reply has no
	// parseable number.
	defaultPlanHours = 5

	// reviewSnippetMax caps how much of the reviewed code is stored.
	reviewSnippetMax = 500
)

// continueFlow feeds the message into the active flow. The router is
// never consulted here: whatever the user typed is the flow's input.
func (o *Orchestrator) continueFlow(ctx context.Context, sess *domain.Session, user *domain.User, text string) string {
	switch sess.State.Kind {
	case domain.StateAwaitingAssessmentAnswer:
		return o.finishAssessment(ctx, sess, user, text)

	case domain.StateAwaitingInterviewAnswer:
		return o.continueInterview(ctx, sess, user, text)

	case domain.StateAwaitingPlanTopic:
		sess.State.PlanTopic = text
		sess.State.Kind = domain.StateAwaitingPlanLevel
		return replyPlanAskLevel

	case domain.StateAwaitingPlanLevel:
		sess.State.PlanLevel = parsePlanLevel(text)
		sess.State.Kind = domain.StateAwaitingPlanHours
		return replyPlanAskHours

	case domain.StateAwaitingPlanHours:
		return o.makePlan(ctx, sess, user, text)

	case domain.StateAwaitingPlanSave:
		return o.confirmPlan(ctx, sess, user, text)

	case domain.StateAwaitingReviewCode:
		return o.runReview(ctx, sess, user, text)

	default:
		o.logger.Warn("unknown flow state, resetting", "user_id", sess.UserID, "state", sess.State.Kind)
		sess.Reset()
		return replyClarify
	}
}

// routeIdleText classifies free text and enters the matching flow.
func (o *Orchestrator) routeIdleText(ctx context.Context, sess *domain.Session, user *domain.User, text string) string {
	dec := o.router.Route(ctx, text, o.routerContext(user, sess))
	if dec.NeedsClarification() {
		return replyClarify
	}

	switch dec.Agent {
	case domain.AgentPlanner:
		sess.CurrentAgent = domain.AgentPlanner
		sess.State.Kind = domain.StateAwaitingPlanTopic
		return replyPlanAskTopic

	case domain.AgentInterviewer:
		return o.startInterview(ctx, sess, user)

	case domain.AgentAssessor:
		// A substantive message is the self-description already; a
		// short one gets the proper prompt first.
		if utf8.RuneCountInString(text) >= assessSubstantiveMin {
			return o.finishAssessment(ctx, sess, user, text)
		}
		sess.CurrentAgent = domain.AgentAssessor
		sess.State.Kind = domain.StateAwaitingAssessmentAnswer
		return replyAssessPrompt

	case domain.AgentReviewer:
		return o.runReview(ctx, sess, user, text)

	default:
		return replyClarify
	}
}

// finishAssessment runs the assessor on the user's self-description,
// stores one row per scored skill and resets to idle.
func (o *Orchestrator) finishAssessment(ctx context.Context, sess *domain.Session, user *domain.User, text string) string {
	res := o.agents.Assessor.Assess(ctx, text, o.agentContext(user, sess))

	feedback := strings.Join(res.WeakTopics, ", ")
	for skill, score := range res.Scores {
		if err := o.repo.SaveAssessment(ctx, &domain.AssessmentRecord{
			UserID:   sess.UserID,
			Skill:    skill,
			Score:    score,
			Feedback: feedback,
		}); err != nil {
			o.logger.Error("assessment save failed", "user_id", sess.UserID, "skill", skill, "error", err)
		}
	}

	sess.Reset()
	return renderAssessment(res)
}

// continueInterview grades the answer to the current question and
// either asks the next one or wraps up with a summary.
func (o *Orchestrator) continueInterview(ctx context.Context, sess *domain.Session, user *domain.User, text string) string {
	is := sess.State.Interview
	if is == nil || is.CurrentQuestion() == nil {
		o.logger.Warn("interview state without pending question, resetting", "user_id", sess.UserID)
		sess.Reset()
		return replyClarify
	}

	question := *is.CurrentQuestion()
	score := o.agents.Interviewer.EvaluateAnswer(ctx, question, text, o.agentContext(user, sess))
	is.RecordScore(*score)

	if !is.Complete() {
		return renderScore(score) + "\n\n" + renderQuestion(is.QuestionIndex, len(is.Questions), is.CurrentQuestion())
	}

	sum := agent.Summarize(is)
	details, err := json.Marshal(is.Scores)
	if err != nil {
		o.logger.Error("interview details marshal failed", "user_id", sess.UserID, "error", err)
	}
	if err := o.repo.SaveInterviewResult(ctx, &domain.InterviewRecord{
		UserID:         sess.UserID,
		Topic:          is.Topic,
		Level:          string(is.Level),
		TotalQuestions: sum.TotalQuestions,
		AverageScore:   sum.AverageScore,
		Performance:    sum.Performance,
		DetailsJSON:    string(details),
	}); err != nil {
		o.logger.Error("interview result save failed", "user_id", sess.UserID, "error", err)
	}

	sess.Reset()
	return renderScore(score) + "\n\n" + renderInterviewSummary(sum)
}

// makePlan is the single planner call of the flow: topic and level
// were collected on the previous steps, the hours reply arrives here.
func (o *Orchestrator) makePlan(ctx context.Context, sess *domain.Session, user *domain.User, text string) string {
	hours := parseHours(text)

	plan, err := o.agents.Planner.MakePlan(ctx, sess.State.PlanTopic, sess.State.PlanLevel, hours, o.agentContext(user, sess))
	if err != nil {
		o.logger.Error("plan generation failed", "user_id", sess.UserID, "topic", sess.State.PlanTopic, "error", err)
		sess.Reset()
		return replyPlanFailed
	}

	sess.State.Plan = plan
	sess.State.Kind = domain.StateAwaitingPlanSave
	return renderPlan(plan) + replyPlanSavePrompt
}

// confirmPlan handles the save-or-discard reply. Anything that is
// neither keeps the state and re-asks.
func (o *Orchestrator) confirmPlan(ctx context.Context, sess *domain.Session, user *domain.User, text string) string {
	plan := sess.State.Plan
	if plan == nil {
		o.logger.Warn("plan confirmation without plan, resetting", "user_id", sess.UserID)
		sess.Reset()
		return replyClarify
	}

	switch parseConfirm(text) {
	case confirmSave:
		planJSON, err := json.Marshal(plan)
		if err != nil {
			o.logger.Error("plan marshal failed", "user_id", sess.UserID, "error", err)
		}
		if _, err := o.repo.SaveLearningPlan(ctx, &domain.PlanRecord{
			UserID:        sess.UserID,
			Title:         plan.Title(),
			Description:   plan.Summary,
			Track:         string(user.Track),
			Level:         plan.Level,
			DurationWeeks: plan.TotalWeeks(),
			PlanJSON:      string(planJSON),
			Progress:      0,
			Active:        true,
		}); err != nil {
			o.logger.Error("plan save failed", "user_id", sess.UserID, "error", err)
			return replyPlanSaveFailed
		}
		sess.Reset()
		return replyPlanSaved

	case confirmDiscard:
		sess.Reset()
		return replyPlanDiscarded

	default:
		return replyPlanSaveAgain
	}
}

// runReview analyzes the message's code. Without usable code the flow
// stays armed and the reviewer's follow-up asks for a snippet.
func (o *Orchestrator) runReview(ctx context.Context, sess *domain.Session, user *domain.User, text string) string {
	res := o.agents.Reviewer.Review(ctx, text, o.agentContext(user, sess))

	if !res.Analyzed() {
		sess.CurrentAgent = domain.AgentReviewer
		sess.State.Kind = domain.StateAwaitingReviewCode
		if res.FollowUp != "" {
			return res.FollowUp
		}
		return replyReviewPrompt
	}

	code, _, _ := agent.ExtractCode(text)
	details, err := json.Marshal(res)
	if err != nil {
		o.logger.Error("review details marshal failed", "user_id", sess.UserID, "error", err)
	}
	if err := o.repo.SaveCodeReview(ctx, &domain.ReviewRecord{
		UserID:      sess.UserID,
		Language:    res.Language,
		Code:        shared.TruncateRunes(code, reviewSnippetMax),
		Score:       res.Score,
		IssuesFound: len(res.Issues),
		DetailsJSON: string(details),
	}); err != nil {
		o.logger.Error("review save failed", "user_id", sess.UserID, "error", err)
	}

	sess.Reset()
	return renderReview(res)
}

var hoursRe = regexp.MustCompile(`\d+`)

// parseHours pulls the first integer out of the hours reply.
func parseHours(s string) int {
	m := hoursRe.FindString(s)
	n, err := strconv.Atoi(m)
	if err != nil || n <= 0 {
		return defaultPlanHours
	}
	return n
}

// parsePlanLevel maps a free-form difficulty reply onto the plan
// difficulty vocabulary.
func parsePlanLevel(s string) string {
	lowered := strings.ToLower(s)
	switch {
	case strings.Contains(lowered, "начальн"),
		strings.Contains(lowered, "базов"),
		strings.Contains(lowered, "junior"):
		return "easy"
	case strings.Contains(lowered, "продвинут"),
		strings.Contains(lowered, "senior"),
		strings.Contains(lowered, "сложн"):
		return "hard"
	case strings.Contains(lowered, "средн"),
		strings.Contains(lowered, "medium"),
		strings.Contains(lowered, "middle"):
		return "medium"
	default:
		return "medium"
	}
}

type confirmDecision int

const (
	confirmUnknown confirmDecision = iota
	confirmSave
	confirmDiscard
)

// parseConfirm reads the save-or-discard reply.
func parseConfirm(s string) confirmDecision {
	lowered := strings.ToLower(strings.TrimSpace(s))
	switch {
	case lowered == "да", lowered == "yes", strings.Contains(lowered, "сохрани"):
		return confirmSave
	case lowered == "нет", lowered == "no":
		return confirmDiscard
	default:
		return confirmUnknown
	}
}
