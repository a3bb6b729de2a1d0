package agent

import (
	"context"
	"testing"

	"github.com/ashureev/interprep/internal/domain"
)

func TestStartInterviewParsesQuestions(t *testing.T) {
	t.Parallel()

	stub := &scriptedCompleter{responses: []string{`{"questions": [
		{"question": "Что такое GIL?", "topic": "Python", "expected_concepts": ["потоки"], "difficulty": "medium"},
		{"question": "Как работает сборщик мусора?", "topic": "Python", "difficulty": "hard"},
		{"question": "Что такое декоратор?", "topic": "Python", "difficulty": "easy", "hints": ["обёртка"]}
	]}`}}
	i := NewInterviewer(stub, nil, 3, nil)

	is, err := i.StartInterview(context.Background(), "Python", SessionContext{Level: domain.LevelMiddle})
	if err != nil {
		t.Fatalf("StartInterview: %v", err)
	}

	if len(is.Questions) != 3 {
		t.Fatalf("got %d questions, want 3", len(is.Questions))
	}
	if is.Topic != "Python" || is.Level != domain.LevelMiddle {
		t.Errorf("session = %q/%q", is.Topic, is.Level)
	}
	if is.Questions[0].Text != "Что такое GIL?" {
		t.Errorf("first question = %q", is.Questions[0].Text)
	}
	if is.QuestionIndex != 0 || is.Complete() {
		t.Error("new session should start at question 0")
	}
	if stub.calls != 1 {
		t.Errorf("model called %d times, want 1", stub.calls)
	}
}

func TestStartInterviewTopsUpFromBank(t *testing.T) {
	t.Parallel()

	stub := &scriptedCompleter{responses: []string{
		`{"questions": [{"question": "Что такое GIL?", "topic": "Python", "difficulty": "medium"}]}`,
	}}
	i := NewInterviewer(stub, nil, 3, nil)

	is, err := i.StartInterview(context.Background(), "Python", SessionContext{Track: domain.TrackBackend})
	if err != nil {
		t.Fatalf("StartInterview: %v", err)
	}

	if len(is.Questions) != 3 {
		t.Fatalf("got %d questions, want 3 after top-up", len(is.Questions))
	}
	if is.Questions[0].Text != "Что такое GIL?" {
		t.Errorf("generated question should stay first, got %q", is.Questions[0].Text)
	}
	seen := map[string]bool{}
	for _, q := range is.Questions {
		if q.Text == "" {
			t.Error("empty question text after top-up")
		}
		if seen[q.Text] {
			t.Errorf("duplicate question %q", q.Text)
		}
		seen[q.Text] = true
	}
}

func TestStartInterviewGarbageReplyStillFillsFromBank(t *testing.T) {
	t.Parallel()

	stub := &scriptedCompleter{responses: []string{"тут нет никакого JSON"}}
	i := NewInterviewer(stub, nil, 3, nil)

	is, err := i.StartInterview(context.Background(), "Go", SessionContext{})
	if err != nil {
		t.Fatalf("StartInterview: %v", err)
	}
	if len(is.Questions) != 3 {
		t.Fatalf("got %d questions, want 3 from the bank", len(is.Questions))
	}
}

func TestStartInterviewModelFailureIsError(t *testing.T) {
	t.Parallel()

	i := NewInterviewer(failingCompleter(), nil, 3, nil)

	if _, err := i.StartInterview(context.Background(), "Python", SessionContext{}); err == nil {
		t.Fatal("expected error when the model is down")
	}
}

func TestEvaluateAnswerParsesScore(t *testing.T) {
	t.Parallel()

	stub := &scriptedCompleter{responses: []string{
		`{"score": 85, "comment": "Хороший ответ", "strong_points": ["точность"], "weak_points": ["примеры"]}`,
	}}
	i := NewInterviewer(stub, nil, 3, nil)

	s := i.EvaluateAnswer(context.Background(), domain.Question{Text: "Что такое GIL?"}, "глобальная блокировка интерпретатора", SessionContext{})

	if s.Value != 85 {
		t.Errorf("Value = %d, want 85", s.Value)
	}
	if s.Comment != "Хороший ответ" {
		t.Errorf("Comment = %q", s.Comment)
	}
}

func TestEvaluateAnswerClampsScore(t *testing.T) {
	t.Parallel()

	stub := &scriptedCompleter{responses: []string{`{"score": 140, "comment": "ок"}`}}
	i := NewInterviewer(stub, nil, 3, nil)

	s := i.EvaluateAnswer(context.Background(), domain.Question{Text: "в"}, "о", SessionContext{})

	if s.Value != 100 {
		t.Errorf("Value = %d, want 100", s.Value)
	}
}

func TestEvaluateAnswerSalvagesDamagedReply(t *testing.T) {
	t.Parallel()

	// Unbalanced JSON: the decoder fails but the score survives.
	stub := &scriptedCompleter{responses: []string{`{"score": 72, "comment": "неплохо, но`}}
	i := NewInterviewer(stub, nil, 3, nil)

	s := i.EvaluateAnswer(context.Background(), domain.Question{Text: "в"}, "о", SessionContext{})

	if s.Value != 72 {
		t.Errorf("Value = %d, want salvaged 72", s.Value)
	}
}

func TestEvaluateAnswerFallbackOnModelFailure(t *testing.T) {
	t.Parallel()

	i := NewInterviewer(failingCompleter(), nil, 3, nil)

	s := i.EvaluateAnswer(context.Background(), domain.Question{Text: "в"}, "о", SessionContext{})

	if s.Value != 50 {
		t.Errorf("Value = %d, want neutral 50", s.Value)
	}
	if s.Comment == "" {
		t.Error("fallback score should carry a comment")
	}
}

func TestSummarizeAverageAndTiers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		values      []int
		wantAvg     float64
		wantVerdict string
	}{
		{"excellent", []int{90, 80}, 85, "отлично"},
		{"good", []int{60, 70}, 65, "хорошо"},
		{"satisfactory", []int{40, 45}, 42.5, "удовлетворительно"},
		{"weak", []int{10, 20}, 15, "нужно подтянуть"},
		{"rounded", []int{70, 70, 71}, 70.3, "хорошо"},
		{"no answers", nil, 0, "нужно подтянуть"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			is := &domain.InterviewSession{Topic: "Python"}
			for _, v := range tc.values {
				is.Questions = append(is.Questions, domain.Question{Text: "в"})
				is.Scores = append(is.Scores, domain.Score{Value: v})
			}
			sum := Summarize(is)
			if sum.AverageScore != tc.wantAvg {
				t.Errorf("AverageScore = %v, want %v", sum.AverageScore, tc.wantAvg)
			}
			if sum.Performance != tc.wantVerdict {
				t.Errorf("Performance = %q, want %q", sum.Performance, tc.wantVerdict)
			}
		})
	}
}

func TestSummarizeDeduplicatesPoints(t *testing.T) {
	t.Parallel()

	is := &domain.InterviewSession{
		Topic: "Python",
		Scores: []domain.Score{
			{Value: 80, StrongPoints: []string{"ООП", "чистый код"}},
			{Value: 70, StrongPoints: []string{"ООП", "SQL", "тесты", "архитектура", "сети"}},
			{Value: 60, WeakPoints: []string{"рекурсия", "рекурсия"}},
		},
	}

	sum := Summarize(is)

	want := []string{"ООП", "чистый код", "SQL", "тесты", "архитектура"}
	if len(sum.StrongPoints) != len(want) {
		t.Fatalf("StrongPoints = %v, want %v", sum.StrongPoints, want)
	}
	for n, p := range want {
		if sum.StrongPoints[n] != p {
			t.Errorf("StrongPoints[%d] = %q, want %q", n, sum.StrongPoints[n], p)
		}
	}
	if len(sum.WeakPoints) != 1 {
		t.Errorf("WeakPoints = %v, want single entry", sum.WeakPoints)
	}
}
