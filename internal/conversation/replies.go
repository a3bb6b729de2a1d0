package conversation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ashureev/interprep/internal/domain"
)

// Every user-facing string lives in this file. Telegram renders them
// as Markdown; replies longer than the Telegram cap are truncated by
// the orchestrator before sending.

const commandList = `*Команды:*
/begin — указать уровень и направление
/assess — оценка текущих знаний
/interview — пробное собеседование
/plan — план подготовки
/review — ревью кода
/progress — мой прогресс
/help — эта справка`

const replyWelcome = `👋 Привет! Я помогаю готовиться к IT-собеседованиям.

Могу оценить твой уровень, провести пробное собеседование, составить план подготовки и сделать ревью кода.

` + commandList

const replyRateLimited = "⏳ Слишком много сообщений подряд. Подожди минутку и продолжим."

const replyInternalError = "😔 Что-то пошло не так. Попробуй ещё раз.\n\n" + commandList

const replySessionRestored = "⚠️ Прошлая сессия была повреждена, начинаем заново.\n\n"

const replyClarify = "🤔 Не понял, чем помочь. Сформулируй иначе или выбери команду.\n\n" + commandList

const replyBeginUsage = `Укажи уровень и направление, например:
` + "`/begin junior backend`" + `

*Уровни:* junior, middle, senior
*Направления:* backend, frontend, data, devops`

const replyAssessPrompt = "📋 Расскажи о своём опыте: языки, проекты, что умеешь.\n\nОцениваю по темам: Python, Алгоритмы, Структуры данных."

const replyPlanAskTopic = "🗺 О чём составить план подготовки? Например: «алгоритмы и структуры данных»."

const replyPlanAskLevel = "Какой уровень сложности? (начальный / средний / продвинутый)"

const replyPlanAskHours = "Сколько часов в неделю готов заниматься? Например: «5 часов в неделю»."

const replyPlanSavePrompt = "\n\n💾 Сохранить план? (да/нет)"

const replyPlanSaved = "✅ План сохранён! Посмотреть его можно через /progress."

const replyPlanDiscarded = "Хорошо, план не сохраняю. Возвращайся, когда понадобится: /plan."

const replyPlanSaveAgain = "Ответь «да», чтобы сохранить план, или «нет», чтобы отменить."

const replyPlanSaveFailed = "😔 Не получилось сохранить план. Ответь «да», чтобы попробовать ещё раз, или «нет», чтобы отменить."

const replyPlanFailed = "😔 Не получилось составить план. Попробуй ещё раз чуть позже: /plan."

const replyInterviewFailed = "😔 Не получилось подготовить вопросы. Попробуй ещё раз чуть позже: /interview."

const replyReviewPrompt = "🔍 Пришли код для ревью. Лучше всего в тройных кавычках:\n```python\ndef your_function():\n    ...\n```\nМожно добавить описание задачи обычным текстом."

// renderProfileSaved confirms the /begin result.
func renderProfileSaved(level domain.Level, track domain.Track) string {
	return fmt.Sprintf("✅ Запомнил: уровень *%s*, направление *%s*.\n\nТеперь можно начать: /assess, /interview или /plan.", level, track)
}

// renderAssessment formats per-skill scores, weak topics and the
// follow-up question.
func renderAssessment(res *domain.AssessResult) string {
	var b strings.Builder
	b.WriteString("📊 *Оценка твоего уровня*\n\n")

	skills := make([]string, 0, len(res.Scores))
	for skill := range res.Scores {
		skills = append(skills, skill)
	}
	sort.Strings(skills)
	for _, skill := range skills {
		fmt.Fprintf(&b, "• %s: *%d/100*\n", skill, res.Scores[skill])
	}

	if len(res.WeakTopics) > 0 {
		fmt.Fprintf(&b, "\n📌 *Стоит подтянуть:* %s\n", strings.Join(res.WeakTopics, ", "))
	}
	if res.FollowUp != "" {
		fmt.Fprintf(&b, "\n💭 %s", res.FollowUp)
	}
	return b.String()
}

// renderQuestion shows one interview question with its position and a
// few expected concepts as hints.
func renderQuestion(index, total int, q *domain.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📝 *Вопрос %d из %d*\n\n❓ %s", index+1, total, q.Text)

	if len(q.ExpectedConcepts) > 0 {
		concepts := q.ExpectedConcepts
		if len(concepts) > 3 {
			concepts = concepts[:3]
		}
		b.WriteString("\n\n💡 *Ключевые концепции:*")
		for _, c := range concepts {
			fmt.Fprintf(&b, "\n• %s", c)
		}
	}
	return b.String()
}

// renderScore formats the grade for one answer.
func renderScore(s *domain.Score) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ *Оценка:* %d/100", s.Value)
	if s.Comment != "" {
		fmt.Fprintf(&b, "\n\n📝 %s", s.Comment)
	}
	return b.String()
}

// renderInterviewSummary formats the final interview report.
func renderInterviewSummary(sum *domain.InterviewSummary) string {
	var b strings.Builder
	b.WriteString("🎉 *Собеседование завершено!*\n\n")
	fmt.Fprintf(&b, "📊 *Итоги по теме «%s»:*\n", sum.Topic)
	fmt.Fprintf(&b, "• Вопросов: %d\n", sum.TotalQuestions)
	fmt.Fprintf(&b, "• Средний балл: %.1f/100\n", sum.AverageScore)
	fmt.Fprintf(&b, "• Вердикт: *%s*\n", sum.Performance)

	if len(sum.StrongPoints) > 0 {
		b.WriteString("\n💪 *Сильные стороны:*\n")
		for _, p := range sum.StrongPoints {
			fmt.Fprintf(&b, "• %s\n", p)
		}
	}
	if len(sum.WeakPoints) > 0 {
		b.WriteString("\n📌 *Стоит подтянуть:*\n")
		for _, p := range sum.WeakPoints {
			fmt.Fprintf(&b, "• %s\n", p)
		}
	}

	b.WriteString("\nДальше: /plan составит план подготовки по слабым местам.")
	return b.String()
}

// renderPlan formats a generated learning plan week by week.
func renderPlan(plan *domain.Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🗺 *%s*\n", plan.Title())
	if plan.Summary != "" {
		fmt.Fprintf(&b, "\n%s\n", plan.Summary)
	}
	fmt.Fprintf(&b, "\n⏱ %d недель, ~%d часов всего\n", plan.TotalWeeks(), plan.TotalHours())

	for _, w := range plan.Weeks {
		fmt.Fprintf(&b, "\n*Неделя %d: %s*\n", w.Week, w.Title)
		for _, topic := range w.Topics {
			fmt.Fprintf(&b, "• %s\n", topic)
		}
		for _, task := range w.Tasks {
			fmt.Fprintf(&b, "▫️ %s\n", task)
		}
		if w.EstimatedHours > 0 {
			fmt.Fprintf(&b, "⏱ ~%d ч\n", w.EstimatedHours)
		}
	}
	return b.String()
}

// renderReview formats the code review verdict, issues grouped by type.
func renderReview(res *domain.ReviewResult) string {
	var b strings.Builder
	b.WriteString("🔍 *Результат Code Review*\n\n")
	fmt.Fprintf(&b, "📊 *Общая оценка:* %d/100\n", res.Score)
	if res.Summary != "" {
		fmt.Fprintf(&b, "📝 %s\n", res.Summary)
	}

	if len(res.Strengths) > 0 {
		b.WriteString("\n✅ *Сильные стороны:*\n")
		for _, s := range res.Strengths {
			fmt.Fprintf(&b, "• %s\n", s)
		}
	}

	if len(res.Issues) > 0 {
		b.WriteString("\n❌ *Найденные проблемы:*\n")
		for _, issue := range res.Issues {
			fmt.Fprintf(&b, "\n*%s* (%s)\n", strings.ToUpper(string(issue.Type)), issue.Severity)
			fmt.Fprintf(&b, "%s\n", issue.Description)
			if issue.Line != nil {
				fmt.Fprintf(&b, "📍 Строка %d\n", *issue.Line)
			}
			if issue.Recommendation != "" {
				fmt.Fprintf(&b, "💡 %s\n", issue.Recommendation)
			}
		}
	} else {
		b.WriteString("\n✅ Явных проблем не нашёл, хорошая работа!\n")
	}

	if len(res.Improvements) > 0 {
		b.WriteString("\n🚀 *Рекомендации:*\n")
		for _, imp := range res.Improvements {
			fmt.Fprintf(&b, "• %s\n", imp)
		}
	}

	if res.FollowUp != "" {
		fmt.Fprintf(&b, "\n💭 %s", res.FollowUp)
	}
	return b.String()
}

// renderProgress formats the stored results overview.
func renderProgress(p *domain.ProgressSummary) string {
	if len(p.Assessments) == 0 && len(p.Interviews) == 0 && len(p.Plans) == 0 && p.Reviews == 0 {
		return "📈 Пока пусто. Начни с /assess или /interview, и здесь появится твой прогресс."
	}

	var b strings.Builder
	b.WriteString("📈 *Твой прогресс*\n")

	if len(p.Assessments) > 0 {
		b.WriteString("\n📋 *Последние оценки:*\n")
		for _, a := range p.Assessments {
			fmt.Fprintf(&b, "• %s: %d/100\n", a.Skill, a.Score)
		}
	}

	if len(p.Interviews) > 0 {
		b.WriteString("\n🎙 *Собеседования:*\n")
		for _, iv := range p.Interviews {
			fmt.Fprintf(&b, "• %s: %.1f/100 (%s)\n", iv.Topic, iv.AverageScore, iv.Performance)
		}
	}

	if len(p.Plans) > 0 {
		b.WriteString("\n🗺 *Активные планы:*\n")
		for _, plan := range p.Plans {
			fmt.Fprintf(&b, "• %s — %d нед., прогресс %.0f%%\n", plan.Title, plan.DurationWeeks, plan.Progress*100)
		}
	}

	if p.Reviews > 0 {
		fmt.Fprintf(&b, "\n🔍 Ревью кода: %d\n", p.Reviews)
	}
	return b.String()
}
