package router

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ashureev/interprep/internal/domain"
)

// Rules is the deterministic layer of routing: trigger phrases that send a
// message straight to the planner, and per-agent keyword lists consulted when
// the model cannot be reached or its answer cannot be parsed.
type Rules struct {
	// PlanTriggers short-circuit classification entirely. A message
	// containing any of these goes to the planner without a model call.
	PlanTriggers []string `yaml:"plan_triggers"`

	// Keywords back the parse-failure fallback. Lists are checked in
	// catalog order, first match wins.
	Keywords map[domain.AgentKind][]string `yaml:"keywords"`
}

// DefaultRules returns the built-in routing vocabulary.
func DefaultRules() Rules {
	return Rules{
		PlanTriggers: []string{
			"план",
			"составь план",
			"подготовка к",
			"расписание",
			"roadmap",
		},
		Keywords: map[domain.AgentKind][]string{
			domain.AgentInterviewer: {"собеседование", "интервью", "вопрос"},
			domain.AgentAssessor:    {"оцени", "умею", "уровень", "знания"},
			domain.AgentPlanner:     {"план", "учить", "изучить"},
			domain.AgentReviewer:    {"код", "ревью", "review"},
		},
	}
}

// rulesFile is the YAML shape of a rules override. Agent names are plain
// strings so operators can write any spelling ParseAgentKind accepts.
type rulesFile struct {
	PlanTriggers []string            `yaml:"plan_triggers"`
	Keywords     map[string][]string `yaml:"keywords"`
}

// LoadRules reads a rules override from path. Sections absent from the file
// keep their built-in defaults. Agent names that do not resolve to a known
// agent are an error rather than a silent drop.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}

	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Rules{}, fmt.Errorf("parse rules file: %w", err)
	}

	rules := DefaultRules()
	if len(file.PlanTriggers) > 0 {
		rules.PlanTriggers = file.PlanTriggers
	}
	if len(file.Keywords) > 0 {
		keywords := make(map[domain.AgentKind][]string, len(file.Keywords))
		for name, words := range file.Keywords {
			kind := domain.ParseAgentKind(name)
			if kind == domain.AgentUnknown {
				return Rules{}, fmt.Errorf("rules file: unknown agent %q", name)
			}
			keywords[kind] = words
		}
		rules.Keywords = keywords
	}
	return rules, nil
}

// MatchPlanTrigger reports whether the message contains a planning trigger.
func (r Rules) MatchPlanTrigger(message string) bool {
	lower := strings.ToLower(message)
	for _, trigger := range r.PlanTriggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return false
}

// MatchKeyword returns the first agent whose keyword list matches the
// message. Agents are checked in catalog order so the result does not depend
// on map iteration. Returns AgentUnknown when nothing matches.
func (r Rules) MatchKeyword(message string) domain.AgentKind {
	lower := strings.ToLower(message)
	for _, kind := range domain.AgentCatalog() {
		for _, word := range r.Keywords[kind] {
			if strings.Contains(lower, word) {
				return kind
			}
		}
	}
	return domain.AgentUnknown
}
