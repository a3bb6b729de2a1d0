// Package rag retrieves knowledge base context for agent prompts.
//
// Retrieval is strictly optional: every caller must work identically
// when the retriever is disabled or the lookup fails. Retrieved
// snippets flavor one prompt and are never persisted.
package rag

import (
	"context"

	"github.com/ashureev/interprep/internal/domain"
)

// Snippet is one retrieved knowledge fragment.
type Snippet struct {
	Text    string  `json:"text"`
	Topic   string  `json:"topic,omitempty"`
	Score   float32 `json:"score"`
	DocType string  `json:"type,omitempty"`
}

// Status describes the knowledge base for the ops API.
type Status struct {
	Enabled     bool              `json:"enabled"`
	Index       string            `json:"index,omitempty"`
	VectorCount uint32            `json:"vector_count,omitempty"`
	AgentTypes  map[string]string `json:"agent_types,omitempty"`
}

// Retriever looks up knowledge snippets for a query.
type Retriever interface {
	// Search returns up to k snippets relevant to the query, filtered
	// to the document type the agent consumes. Non-positive k means
	// the retriever's configured depth.
	Search(ctx context.Context, query string, agent domain.AgentKind, k int) ([]Snippet, error)

	// Status reports the knowledge base state.
	Status(ctx context.Context) (*Status, error)

	// Enabled reports whether real retrieval is configured.
	Enabled() bool
}

// agentDocTypes maps each agent to the knowledge document type it
// consumes.
var agentDocTypes = map[domain.AgentKind]string{
	domain.AgentInterviewer: "interview_question",
	domain.AgentAssessor:    "interview_question",
	domain.AgentReviewer:    "code_example",
	domain.AgentPlanner:     "learning_plan",
}

// DocTypeFor returns the document type retrieved for an agent, or ""
// when the agent takes unfiltered results.
func DocTypeFor(agent domain.AgentKind) string {
	return agentDocTypes[agent]
}

// AgentDocTypes returns a copy of the agent to document type mapping.
func AgentDocTypes() map[string]string {
	out := make(map[string]string, len(agentDocTypes))
	for agent, docType := range agentDocTypes {
		out[string(agent)] = docType
	}
	return out
}

// Disabled is the no-op retriever used when no knowledge base is
// configured.
type Disabled struct{}

// Search always returns nothing.
func (Disabled) Search(context.Context, string, domain.AgentKind, int) ([]Snippet, error) {
	return nil, nil
}

// Status reports the knowledge base as disabled.
func (Disabled) Status(context.Context) (*Status, error) {
	return &Status{Enabled: false}, nil
}

// Enabled reports false.
func (Disabled) Enabled() bool { return false }
