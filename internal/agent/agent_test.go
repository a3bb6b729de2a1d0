package agent

import (
	"context"
	"errors"

	"github.com/ashureev/interprep/internal/llm"
)

// scriptedCompleter returns canned responses in order and counts calls.
type scriptedCompleter struct {
	calls     int
	responses []string
	err       error
}

func (s *scriptedCompleter) Complete(_ context.Context, _ llm.Request) (*llm.Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		return &llm.Response{Content: "{}"}, nil
	}
	content := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return &llm.Response{Content: content}, nil
}

func failingCompleter() *scriptedCompleter {
	return &scriptedCompleter{err: errors.New("model down")}
}
