package agent

import (
	"github.com/samber/lo"

	"github.com/ashureev/interprep/internal/domain"
)

// questionBank holds hand-written fallback questions per track. They
// cover the ground a first screening usually does and are used only
// when generation comes up short.
var questionBank = map[domain.Track][]domain.Question{
	domain.TrackBackend: {
		{
			Topic:            "Python",
			Text:             "Чем список отличается от кортежа в Python и когда что использовать?",
			ExpectedConcepts: []string{"изменяемость", "хешируемость", "память"},
			Difficulty:       domain.DifficultyEasy,
		},
		{
			Topic:            "Базы данных",
			Text:             "Что такое индекс в реляционной базе данных и какова цена его использования?",
			ExpectedConcepts: []string{"B-дерево", "скорость чтения", "стоимость записи"},
			Difficulty:       domain.DifficultyMedium,
		},
		{
			Topic:            "Сети",
			Text:             "Опиши, что происходит после ввода URL в браузере до отображения страницы.",
			ExpectedConcepts: []string{"DNS", "TCP", "TLS", "HTTP"},
			Difficulty:       domain.DifficultyMedium,
		},
	},
	domain.TrackFrontend: {
		{
			Topic:            "JavaScript",
			Text:             "Что такое замыкание в JavaScript и где оно применяется?",
			ExpectedConcepts: []string{"область видимости", "лексическое окружение"},
			Difficulty:       domain.DifficultyEasy,
		},
		{
			Topic:            "Браузер",
			Text:             "Как работает event loop в браузере?",
			ExpectedConcepts: []string{"очередь задач", "микрозадачи", "рендеринг"},
			Difficulty:       domain.DifficultyMedium,
		},
		{
			Topic:            "Производительность",
			Text:             "Какими способами можно ускорить первую отрисовку страницы?",
			ExpectedConcepts: []string{"критический путь", "ленивая загрузка", "кеширование"},
			Difficulty:       domain.DifficultyHard,
		},
	},
	domain.TrackData: {
		{
			Topic:            "SQL",
			Text:             "Чем JOIN отличается от подзапроса и что обычно быстрее?",
			ExpectedConcepts: []string{"план запроса", "коррелированный подзапрос"},
			Difficulty:       domain.DifficultyMedium,
		},
		{
			Topic:            "Статистика",
			Text:             "Что такое переобучение модели и как с ним бороться?",
			ExpectedConcepts: []string{"валидация", "регуляризация"},
			Difficulty:       domain.DifficultyMedium,
		},
	},
	domain.TrackDevOps: {
		{
			Topic:            "Контейнеры",
			Text:             "Чем контейнер отличается от виртуальной машины?",
			ExpectedConcepts: []string{"namespaces", "cgroups", "общее ядро"},
			Difficulty:       domain.DifficultyEasy,
		},
		{
			Topic:            "CI/CD",
			Text:             "Из каких шагов состоит типичный CI/CD-пайплайн и зачем нужен каждый?",
			ExpectedConcepts: []string{"сборка", "тесты", "деплой", "откат"},
			Difficulty:       domain.DifficultyMedium,
		},
	},
}

// genericBank backs tracks without a dedicated list and tops up when a
// track list is exhausted.
var genericBank = []domain.Question{
	{
		Topic:            "Алгоритмы",
		Text:             "Объясни, что такое сложность алгоритма O(n log n), и приведи пример такого алгоритма.",
		ExpectedConcepts: []string{"асимптотика", "сортировка"},
		Difficulty:       domain.DifficultyMedium,
	},
	{
		Topic:            "Структуры данных",
		Text:             "Как устроена хеш-таблица и что происходит при коллизиях?",
		ExpectedConcepts: []string{"хеш-функция", "цепочки", "открытая адресация"},
		Difficulty:       domain.DifficultyMedium,
	},
	{
		Topic:            "Общее",
		Text:             "Расскажи о самой сложной технической задаче, которую ты решал, и почему она была сложной.",
		ExpectedConcepts: []string{"декомпозиция", "компромиссы"},
		Difficulty:       domain.DifficultyEasy,
	},
	{
		Topic:            "Общее",
		Text:             "Как бы ты искал причину того, что сервис стал отвечать в десять раз медленнее?",
		ExpectedConcepts: []string{"метрики", "профилирование", "гипотезы"},
		Difficulty:       domain.DifficultyHard,
	},
}

// topUpQuestions extends the generated set from the bank until want
// questions are collected. Track questions go first, then the generic
// list. Duplicates by question text are skipped.
func topUpQuestions(generated []domain.Question, topic string, track domain.Track, want int) []domain.Question {
	seen := lo.SliceToMap(generated, func(q domain.Question) (string, struct{}) {
		return q.Text, struct{}{}
	})

	pool := append(append([]domain.Question{}, questionBank[track]...), genericBank...)
	for _, q := range pool {
		if len(generated) >= want {
			break
		}
		if _, dup := seen[q.Text]; dup {
			continue
		}
		if topic != "" && q.Topic == "" {
			q.Topic = topic
		}
		seen[q.Text] = struct{}{}
		generated = append(generated, q)
	}
	return generated
}
