package rag

import (
	"context"
	"testing"

	"github.com/ashureev/interprep/internal/domain"
)

func TestDocTypeMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		agent domain.AgentKind
		want  string
	}{
		{domain.AgentInterviewer, "interview_question"},
		{domain.AgentAssessor, "interview_question"},
		{domain.AgentReviewer, "code_example"},
		{domain.AgentPlanner, "learning_plan"},
		{domain.AgentUnknown, ""},
	}
	for _, tt := range tests {
		if got := DocTypeFor(tt.agent); got != tt.want {
			t.Errorf("DocTypeFor(%q) = %q, want %q", tt.agent, got, tt.want)
		}
	}

	// Every routable agent must have a document type.
	for _, agent := range domain.AgentCatalog() {
		if DocTypeFor(agent) == "" {
			t.Errorf("DocTypeFor(%q) = empty", agent)
		}
	}
}

func TestDisabledRetriever(t *testing.T) {
	t.Parallel()

	var r Retriever = Disabled{}
	if r.Enabled() {
		t.Error("Enabled() = true")
	}

	snippets, err := r.Search(context.Background(), "python", domain.AgentInterviewer, 3)
	if err != nil || snippets != nil {
		t.Errorf("Search() = %v, %v", snippets, err)
	}

	status, err := r.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Enabled {
		t.Error("Status().Enabled = true")
	}
}
