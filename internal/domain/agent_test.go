package domain

import "testing"

func TestParseAgentKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want AgentKind
	}{
		{"INTERVIEWER", AgentInterviewer},
		{"interviewer", AgentInterviewer},
		{" Interviewer ", AgentInterviewer},
		{"ASSESSOR", AgentAssessor},
		{"ASSESSMENT", AgentAssessor},
		{"assessor agent", AgentAssessor},
		{"PLANNER", AgentPlanner},
		{"the planner", AgentPlanner},
		{"REVIEWER", AgentReviewer},
		{"code review", AgentReviewer},
		{"ASSES", AgentAssessor},
		{"", AgentUnknown},
		{"банан", AgentUnknown},
	}
	for _, tt := range tests {
		if got := ParseAgentKind(tt.in); got != tt.want {
			t.Errorf("ParseAgentKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseLevelAndTrack(t *testing.T) {
	t.Parallel()

	if l, ok := ParseLevel("Средний"); !ok || l != LevelMiddle {
		t.Errorf("ParseLevel(Средний) = %q, %v", l, ok)
	}
	if l, ok := ParseLevel("senior"); !ok || l != LevelSenior {
		t.Errorf("ParseLevel(senior) = %q, %v", l, ok)
	}
	if _, ok := ParseLevel("guru"); ok {
		t.Error("ParseLevel(guru) = ok")
	}

	if tr, ok := ParseTrack("Бэкенд"); !ok || tr != TrackBackend {
		t.Errorf("ParseTrack(Бэкенд) = %q, %v", tr, ok)
	}
	if _, ok := ParseTrack("гейм-дизайн"); ok {
		t.Error("ParseTrack(гейм-дизайн) = ok")
	}
}
