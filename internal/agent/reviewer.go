package agent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ashureev/interprep/internal/domain"
	"github.com/ashureev/interprep/internal/jsonx"
	"github.com/ashureev/interprep/internal/llm"
	"github.com/ashureev/interprep/internal/rag"
)

// minCodeLength is the shortest snippet worth sending to the model.
const minCodeLength = 10

// Reviewer analyzes code fragments sent in chat.
type Reviewer struct {
	completer Completer
	retriever rag.Retriever
	logger    *slog.Logger
}

// NewReviewer creates a reviewer. The retriever may be nil.
func NewReviewer(completer Completer, retriever rag.Retriever, logger *slog.Logger) *Reviewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reviewer{
		completer: completer,
		retriever: retriever,
		logger:    logger.With("agent", "reviewer"),
	}
}

type reviewReply struct {
	Summary      string         `json:"summary"`
	Issues       []domain.Issue `json:"issues"`
	Score        int            `json:"score"`
	FollowUp     string         `json:"follow_up"`
	Strengths    []string       `json:"strengths"`
	Improvements []string       `json:"improvements"`
}

// Review extracts code from the message and runs the analysis. It
// always returns a result: too little code produces a request for a
// real snippet without touching the model, and model or parse failures
// produce the basic fallback analysis.
func (r *Reviewer) Review(ctx context.Context, message string, sctx SessionContext) *domain.ReviewResult {
	code, surrounding, language := ExtractCode(message)
	if len(strings.TrimSpace(code)) < minCodeLength {
		return &domain.ReviewResult{
			FollowUp: "Пришли фрагмент кода в тройных кавычках ``` или просто текстом, и я его разберу.",
		}
	}

	snippets, used := lookupSnippets(ctx, r.retriever, r.logger, language+" best practices", domain.AgentReviewer)

	resp, err := r.completer.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: reviewSystemPrompt},
			{Role: "user", Content: reviewUserPrompt(code, surrounding, language, sctx, snippets)},
		},
		Temperature: ptr(0.2),
		MaxTokens:   2000,
	})
	if err != nil {
		r.logger.Warn("review call failed, using fallback", "error", err)
		return fallbackReview(language)
	}

	reply := reviewReply{Score: -1}
	if !jsonx.Decode(resp.Content, &reply) || reply.Score < 0 {
		r.logger.Warn("review reply unusable, using fallback",
			"content_len", len(resp.Content))
		return fallbackReview(language)
	}

	issues := make([]domain.Issue, 0, len(reply.Issues))
	for _, issue := range reply.Issues {
		if issue.Description == "" {
			continue
		}
		issue.Type = normalizeIssueType(issue.Type)
		issue.Severity = normalizeSeverity(issue.Severity)
		issues = append(issues, issue)
	}

	return &domain.ReviewResult{
		Summary:      reply.Summary,
		Issues:       issues,
		Score:        clampScore(reply.Score),
		FollowUp:     reply.FollowUp,
		Strengths:    reply.Strengths,
		Improvements: reply.Improvements,
		Language:     language,
		ContextUsed:  used,
	}
}

// fallbackReview is the neutral analysis used when no real review
// could be produced.
func fallbackReview(language string) *domain.ReviewResult {
	return &domain.ReviewResult{
		Summary:      "Basic code analysis completed",
		Score:        50,
		FollowUp:     "Можешь рассказать подробнее, что должен делать этот код?",
		Strengths:    []string{"Code structure is readable"},
		Improvements: []string{"Add more comments", "Consider error handling"},
		Language:     language,
	}
}

// codeIndicators pair a line marker with the language it suggests.
// Order matters: the first indicator found on a line decides.
var codeIndicators = []struct {
	marker   string
	language string
}{
	{"def ", "python"},
	{"import ", "python"},
	{"function ", "javascript"},
	{"const ", "javascript"},
	{"let ", "javascript"},
	{"public class", "java"},
	{"private ", "java"},
	{"#include", "cpp"},
	{"<?php", "php"},
	{"echo ", "php"},
	{"SELECT ", "sql"},
	{"INSERT ", "sql"},
	{"UPDATE ", "sql"},
}

// ExtractCode splits a chat message into code, surrounding prose and a
// language guess. A fenced block wins and its tag names the language;
// otherwise lines matching code indicators are collected and the
// first indicator decides the language. The guess defaults to python.
func ExtractCode(message string) (code, surrounding, language string) {
	language = "python"

	var codeLines, proseLines []string
	inFence := false
	sawFence := false

	for _, line := range strings.Split(message, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if !inFence {
				if tag := strings.TrimSpace(strings.TrimPrefix(trimmed, "```")); tag != "" {
					language = strings.Fields(tag)[0]
				}
				sawFence = true
			}
			inFence = !inFence
			continue
		}
		if inFence {
			codeLines = append(codeLines, line)
		} else {
			proseLines = append(proseLines, line)
		}
	}

	if sawFence && len(codeLines) > 0 {
		return strings.TrimSpace(strings.Join(codeLines, "\n")),
			strings.TrimSpace(strings.Join(proseLines, "\n")),
			strings.ToLower(language)
	}

	// No usable fenced block: collect lines that look like code.
	codeLines = codeLines[:0]
	proseLines = proseLines[:0]
	languageSet := false

	for _, line := range strings.Split(message, "\n") {
		matched := false
		for _, ind := range codeIndicators {
			if strings.Contains(line, ind.marker) {
				matched = true
				if !languageSet {
					language = ind.language
					languageSet = true
				}
				break
			}
		}
		if matched {
			codeLines = append(codeLines, line)
		} else {
			proseLines = append(proseLines, line)
		}
	}

	return strings.TrimSpace(strings.Join(codeLines, "\n")),
		strings.TrimSpace(strings.Join(proseLines, "\n")),
		language
}

func normalizeIssueType(t domain.IssueType) domain.IssueType {
	switch t {
	case domain.IssueBug, domain.IssueStyle, domain.IssuePerformance,
		domain.IssueSecurity, domain.IssueArchitecture, domain.IssueBestPractice:
		return t
	default:
		return domain.IssueBestPractice
	}
}

func normalizeSeverity(s domain.Severity) domain.Severity {
	switch s {
	case domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh, domain.SeverityCritical:
		return s
	default:
		return domain.SeverityMedium
	}
}
