package domain

// AssessResult is the assessor's structured evaluation of the user's
// self-described experience.
type AssessResult struct {
	Scores      map[string]int `json:"scores"`
	WeakTopics  []string       `json:"weak_topics,omitempty"`
	FollowUp    string         `json:"follow_up"`
	ContextUsed bool           `json:"context_used,omitempty"`
}
