package agent

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/samber/lo"

	"github.com/ashureev/interprep/internal/domain"
	"github.com/ashureev/interprep/internal/jsonx"
	"github.com/ashureev/interprep/internal/llm"
	"github.com/ashureev/interprep/internal/rag"
)

// DefaultQuestionCount is used when the interviewer is constructed
// with a non-positive question count.
const DefaultQuestionCount = 3

// summaryPoints caps how many strong and weak points the summary keeps.
const summaryPoints = 5

// Interviewer runs mock technical interviews: generates questions,
// grades answers, produces the final summary.
type Interviewer struct {
	completer Completer
	retriever rag.Retriever
	questions int
	logger    *slog.Logger
}

// NewInterviewer creates an interviewer asking `questions` questions
// per interview. The retriever may be nil.
func NewInterviewer(completer Completer, retriever rag.Retriever, questions int, logger *slog.Logger) *Interviewer {
	if questions <= 0 {
		questions = DefaultQuestionCount
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Interviewer{
		completer: completer,
		retriever: retriever,
		questions: questions,
		logger:    logger.With("agent", "interviewer"),
	}
}

type questionsReply struct {
	Questions []domain.Question `json:"questions"`
}

// StartInterview generates the question set in a single model call.
// The interview cannot start without questions, so a model failure is
// an error. A short or unparseable reply is topped up from the
// built-in question bank instead.
func (i *Interviewer) StartInterview(ctx context.Context, topic string, sctx SessionContext) (*domain.InterviewSession, error) {
	snippets, _ := lookupSnippets(ctx, i.retriever, i.logger, topic, domain.AgentInterviewer)

	resp, err := i.completer.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: interviewSystemPrompt},
			{Role: "user", Content: interviewUserPrompt(topic, i.questions, sctx, snippets)},
		},
		Temperature: ptr(0.5),
		MaxTokens:   1200,
	})
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	var reply questionsReply
	jsonx.Decode(resp.Content, &reply)

	questions := make([]domain.Question, 0, i.questions)
	for _, q := range reply.Questions {
		if q.Text == "" {
			continue
		}
		if q.Topic == "" {
			q.Topic = topic
		}
		q.Difficulty = normalizeDifficulty(q.Difficulty)
		questions = append(questions, q)
		if len(questions) == i.questions {
			break
		}
	}

	if len(questions) < i.questions {
		i.logger.Warn("question generation came up short, topping up from bank",
			"generated", len(questions), "want", i.questions)
		questions = topUpQuestions(questions, topic, sctx.Track, i.questions)
	}

	return &domain.InterviewSession{
		Topic:     topic,
		Level:     sctx.Level,
		Questions: questions,
		StartedAt: time.Now(),
	}, nil
}

type scoreReply struct {
	Score        int      `json:"score"`
	Comment      string   `json:"comment"`
	StrongPoints []string `json:"strong_points"`
	WeakPoints   []string `json:"weak_points"`
}

// EvaluateAnswer grades one answer. The interview must advance no
// matter what, so both model and parse failures produce a neutral
// score with an apologetic comment.
func (i *Interviewer) EvaluateAnswer(ctx context.Context, question domain.Question, answer string, sctx SessionContext) *domain.Score {
	resp, err := i.completer.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: evaluateSystemPrompt},
			{Role: "user", Content: evaluateUserPrompt(question, answer, sctx)},
		},
		Temperature: ptr(0.3),
		MaxTokens:   600,
	})
	if err != nil {
		i.logger.Warn("answer evaluation failed, using neutral score", "error", err)
		return fallbackScore()
	}

	reply := scoreReply{Score: -1}
	if !jsonx.Decode(resp.Content, &reply) || reply.Score < 0 {
		// Salvage at least the number before settling for the neutral score.
		if value, ok := jsonx.NumberField(resp.Content, "score"); ok {
			comment, _ := jsonx.StringField(resp.Content, "comment")
			return &domain.Score{Value: clampScore(int(value)), Comment: comment}
		}
		i.logger.Warn("evaluation reply unusable, using neutral score",
			"content_len", len(resp.Content))
		return fallbackScore()
	}

	return &domain.Score{
		Value:        clampScore(reply.Score),
		Comment:      reply.Comment,
		StrongPoints: reply.StrongPoints,
		WeakPoints:   reply.WeakPoints,
	}
}

func fallbackScore() *domain.Score {
	return &domain.Score{
		Value:   50,
		Comment: "Не удалось полностью оценить ответ, засчитываю средний балл. Продолжаем!",
	}
}

// Summarize builds the final interview report. Pure function over the
// recorded scores.
func Summarize(is *domain.InterviewSession) *domain.InterviewSummary {
	summary := &domain.InterviewSummary{
		Topic:          is.Topic,
		TotalQuestions: len(is.Questions),
	}

	if len(is.Scores) > 0 {
		total := 0
		for _, s := range is.Scores {
			total += s.Value
		}
		avg := float64(total) / float64(len(is.Scores))
		summary.AverageScore = math.Round(avg*10) / 10
	}

	summary.Performance = performanceTier(summary.AverageScore)

	var strong, weak []string
	for _, s := range is.Scores {
		strong = append(strong, s.StrongPoints...)
		weak = append(weak, s.WeakPoints...)
	}
	summary.StrongPoints = topPoints(strong)
	summary.WeakPoints = topPoints(weak)

	return summary
}

// performanceTier maps an average score to its verdict.
func performanceTier(avg float64) string {
	switch {
	case avg >= 80:
		return "отлично"
	case avg >= 60:
		return "хорошо"
	case avg >= 40:
		return "удовлетворительно"
	default:
		return "нужно подтянуть"
	}
}

// topPoints deduplicates in first-seen order and keeps the top few.
func topPoints(points []string) []string {
	unique := lo.Uniq(points)
	if len(unique) > summaryPoints {
		unique = unique[:summaryPoints]
	}
	return unique
}

func normalizeDifficulty(d domain.Difficulty) domain.Difficulty {
	switch d {
	case domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard:
		return d
	default:
		return domain.DifficultyMedium
	}
}
