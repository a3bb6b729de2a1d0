package domain

import "strings"

// AgentKind identifies one of the routable specialist agents.
type AgentKind string

const (
	AgentUnknown     AgentKind = ""
	AgentInterviewer AgentKind = "INTERVIEWER"
	AgentAssessor    AgentKind = "ASSESSOR"
	AgentPlanner     AgentKind = "PLANNER"
	AgentReviewer    AgentKind = "REVIEWER"
)

// AgentCatalog lists the routable agents in priority order. Name
// normalization and keyword fallback iterate it, so the order is part
// of the routing contract.
func AgentCatalog() []AgentKind {
	return []AgentKind{AgentInterviewer, AgentAssessor, AgentPlanner, AgentReviewer}
}

// agentRoots are the stems used for containment matching, so
// derived forms like "ASSESSMENT" or "interviewing" still resolve.
var agentRoots = map[AgentKind]string{
	AgentInterviewer: "INTERVIEW",
	AgentAssessor:    "ASSESS",
	AgentPlanner:     "PLAN",
	AgentReviewer:    "REVIEW",
}

// ParseAgentKind normalizes a model-reported agent name to the closed
// catalog. Matching is case-insensitive; after an exact match fails,
// containment over word stems is tried in catalog order. Returns
// AgentUnknown when nothing matches.
func ParseAgentKind(s string) AgentKind {
	needle := strings.ToUpper(strings.TrimSpace(s))
	if needle == "" {
		return AgentUnknown
	}
	for _, kind := range AgentCatalog() {
		if needle == string(kind) {
			return kind
		}
	}
	for _, kind := range AgentCatalog() {
		if strings.Contains(needle, agentRoots[kind]) || strings.Contains(string(kind), needle) {
			return kind
		}
	}
	return AgentUnknown
}
