package domain

// IssueType classifies a code review finding.
type IssueType string

const (
	IssueBug          IssueType = "bug"
	IssueStyle        IssueType = "style"
	IssuePerformance  IssueType = "performance"
	IssueSecurity     IssueType = "security"
	IssueArchitecture IssueType = "architecture"
	IssueBestPractice IssueType = "best_practice"
)

// Severity ranks how urgent a finding is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Issue is a single finding in a code review.
type Issue struct {
	Type           IssueType `json:"type"`
	Line           *int      `json:"line,omitempty"`
	Description    string    `json:"description"`
	Recommendation string    `json:"recommendation,omitempty"`
	Severity       Severity  `json:"severity"`
	Snippet        string    `json:"code_snippet,omitempty"`
}

// ReviewResult is the reviewer's structured verdict on a code
// fragment.
type ReviewResult struct {
	Summary      string   `json:"summary"`
	Issues       []Issue  `json:"issues"`
	Score        int      `json:"score"`
	FollowUp     string   `json:"follow_up,omitempty"`
	Strengths    []string `json:"strengths,omitempty"`
	Improvements []string `json:"improvements,omitempty"`
	Language     string   `json:"language,omitempty"`
	ContextUsed  bool     `json:"context_used,omitempty"`
}

// Analyzed reports whether the result carries an actual analysis. A
// result with only FollowUp set means the message had no usable code
// and the user should be asked for a snippet.
func (r *ReviewResult) Analyzed() bool {
	return r.Summary != "" || len(r.Issues) > 0
}
