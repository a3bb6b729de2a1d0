package agent

import (
	"fmt"
	"strings"

	"github.com/ashureev/interprep/internal/domain"
	"github.com/ashureev/interprep/internal/rag"
)

// Prompt texts live here so the agent files stay about control flow.
// Each user prompt has a with-context and a without-context variant:
// when knowledge snippets are available they are prepended as a
// reference block, otherwise the block is omitted entirely.

const assessSystemPrompt = `Ты опытный технический интервьюер. Пользователь описывает свой опыт,
а ты оцениваешь его уровень по темам.

Ответь строго одним JSON-объектом без пояснений:
{"scores": {"Тема": 0}, "weak_topics": ["тема"], "follow_up": "уточняющий вопрос"}
Оценки от 0 до 100.`

const interviewSystemPrompt = `Ты опытный технический интервьюер. Сгенерируй вопросы для
собеседования по заданной теме с учётом уровня кандидата.

Ответь строго одним JSON-объектом без пояснений:
{"questions": [{"question": "текст вопроса", "topic": "тема",
"expected_concepts": ["концепция"], "difficulty": "easy|medium|hard",
"hints": ["подсказка"]}]}`

const evaluateSystemPrompt = `Ты опытный технический интервьюер. Оцени ответ кандидата на вопрос.

Ответь строго одним JSON-объектом без пояснений:
{"score": 0, "comment": "развёрнутый комментарий", "strong_points": ["что хорошо"],
"weak_points": ["что слабо"]}
Оценка от 0 до 100.`

const planSystemPrompt = `Ты методист, составляющий планы подготовки к IT-собеседованиям.
Составь понедельный план по теме с учётом уровня и доступных часов.

Ответь строго одним JSON-объектом без пояснений:
{"summary": "краткое описание плана", "focus_areas": ["область"],
"weeks": [{"week": 1, "title": "название недели", "topics": ["тема"],
"tasks": ["задание"], "estimated_hours": 0}]}`

const reviewSystemPrompt = `Ты опытный код-ревьюер. Проанализируй код и найди проблемы.

Ответь строго одним JSON-объектом без пояснений:
{"summary": "общий вывод", "score": 0,
"issues": [{"type": "bug|style|performance|security|architecture|best_practice",
"line": 1, "description": "что не так", "recommendation": "как исправить",
"severity": "low|medium|high|critical", "code_snippet": "фрагмент"}],
"strengths": ["что хорошо"], "improvements": ["что улучшить"],
"follow_up": "вопрос пользователю"}
Оценка от 0 до 100.`

// profileBlock renders the user profile lines shared by every prompt.
func profileBlock(sctx SessionContext) string {
	var b strings.Builder
	if sctx.Level != "" {
		fmt.Fprintf(&b, "Уровень кандидата: %s.\n", sctx.Level)
	}
	if sctx.Track != "" {
		fmt.Fprintf(&b, "Направление: %s.\n", sctx.Track)
	}
	return b.String()
}

// knowledgeBlock renders retrieved snippets as a reference section, or
// nothing when the lookup produced no context.
func knowledgeBlock(snippets []rag.Snippet) string {
	if len(snippets) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Справочные материалы из базы знаний:\n")
	for _, s := range snippets {
		if s.Topic != "" {
			fmt.Fprintf(&b, "- [%s] %s\n", s.Topic, s.Text)
		} else {
			fmt.Fprintf(&b, "- %s\n", s.Text)
		}
	}
	b.WriteString("\n")
	return b.String()
}

func assessUserPrompt(answer string, topics []string, sctx SessionContext, snippets []rag.Snippet) string {
	var b strings.Builder
	b.WriteString(knowledgeBlock(snippets))
	b.WriteString(profileBlock(sctx))
	fmt.Fprintf(&b, "Оцени кандидата по темам: %s.\n", strings.Join(topics, ", "))
	fmt.Fprintf(&b, "Рассказ кандидата о своём опыте:\n%s", answer)
	return b.String()
}

func interviewUserPrompt(topic string, n int, sctx SessionContext, snippets []rag.Snippet) string {
	var b strings.Builder
	b.WriteString(knowledgeBlock(snippets))
	b.WriteString(profileBlock(sctx))
	fmt.Fprintf(&b, "Сгенерируй %d вопросов по теме «%s».", n, topic)
	return b.String()
}

func evaluateUserPrompt(q domain.Question, answer string, sctx SessionContext) string {
	var b strings.Builder
	b.WriteString(profileBlock(sctx))
	fmt.Fprintf(&b, "Вопрос: %s\n", q.Text)
	if len(q.ExpectedConcepts) > 0 {
		fmt.Fprintf(&b, "Ожидаемые концепции: %s.\n", strings.Join(q.ExpectedConcepts, ", "))
	}
	fmt.Fprintf(&b, "\nОтвет кандидата:\n%s", answer)
	return b.String()
}

func planUserPrompt(topic, level string, weeks, hoursPerWeek int, sctx SessionContext, snippets []rag.Snippet) string {
	var b strings.Builder
	b.WriteString(knowledgeBlock(snippets))
	b.WriteString(profileBlock(sctx))
	fmt.Fprintf(&b, "Тема подготовки: «%s».\n", topic)
	if level != "" {
		fmt.Fprintf(&b, "Сложность: %s.\n", level)
	}
	fmt.Fprintf(&b, "Длительность: %d недель, примерно %d часов в неделю.", weeks, hoursPerWeek)
	return b.String()
}

func reviewUserPrompt(code, surrounding, language string, sctx SessionContext, snippets []rag.Snippet) string {
	var b strings.Builder
	b.WriteString(knowledgeBlock(snippets))
	b.WriteString(profileBlock(sctx))
	fmt.Fprintf(&b, "Язык: %s.\n", language)
	if surrounding != "" {
		fmt.Fprintf(&b, "Контекст задачи: %s\n", surrounding)
	}
	fmt.Fprintf(&b, "Код:\n```%s\n%s\n```", language, code)
	return b.String()
}
