package domain

import "fmt"

// PlanWeek is one week of a learning plan.
type PlanWeek struct {
	Week           int      `json:"week"`
	Title          string   `json:"title"`
	Topics         []string `json:"topics,omitempty"`
	Tasks          []string `json:"tasks,omitempty"`
	EstimatedHours int      `json:"estimated_hours"`
}

// Plan is a generated learning plan. It sits in the conversation
// state until the user confirms or discards it.
type Plan struct {
	Topic        string     `json:"topic"`
	Level        string     `json:"level"`
	HoursPerWeek int        `json:"hours_per_week"`
	Weeks        []PlanWeek `json:"weeks"`
	FocusAreas   []string   `json:"focus_areas,omitempty"`
	Summary      string     `json:"summary"`
	ContextUsed  bool       `json:"context_used,omitempty"`
}

// Title derives the display name used when the plan is saved.
func (p *Plan) Title() string {
	if len(p.FocusAreas) > 0 {
		return fmt.Sprintf("План: %s", p.FocusAreas[0])
	}
	return fmt.Sprintf("План: %s", p.Topic)
}

// TotalWeeks returns the plan duration.
func (p *Plan) TotalWeeks() int {
	return len(p.Weeks)
}

// TotalHours sums per-week estimates, falling back to the weekly
// budget the user gave when a week has no estimate.
func (p *Plan) TotalHours() int {
	total := 0
	for _, w := range p.Weeks {
		if w.EstimatedHours > 0 {
			total += w.EstimatedHours
		} else {
			total += p.HoursPerWeek
		}
	}
	return total
}
