// Package domain contains core domain types for the interview
// preparation assistant.
package domain

import (
	"strings"
	"time"
)

// Level is the user's self-reported seniority.
type Level string

const (
	LevelJunior Level = "junior"
	LevelMiddle Level = "middle"
	LevelSenior Level = "senior"
)

// Track is the user's preparation direction.
type Track string

const (
	TrackBackend  Track = "backend"
	TrackFrontend Track = "frontend"
	TrackData     Track = "data"
	TrackDevOps   Track = "devops"
)

// User represents a Telegram user and their preparation profile.
type User struct {
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"`
	FirstName  string    `json:"first_name"`
	Level      Level     `json:"level"`
	Track      Track     `json:"track"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

var levelSynonyms = map[string]Level{
	"junior":     LevelJunior,
	"джуниор":    LevelJunior,
	"джун":       LevelJunior,
	"начинающий": LevelJunior,
	"middle":     LevelMiddle,
	"мидл":       LevelMiddle,
	"средний":    LevelMiddle,
	"senior":     LevelSenior,
	"сеньор":     LevelSenior,
	"синьор":     LevelSenior,
	"старший":    LevelSenior,
}

// ParseLevel resolves a user-typed seniority, Russian synonyms
// included.
func ParseLevel(s string) (Level, bool) {
	l, ok := levelSynonyms[strings.ToLower(strings.TrimSpace(s))]
	return l, ok
}

var trackSynonyms = map[string]Track{
	"backend":   TrackBackend,
	"бэкенд":    TrackBackend,
	"бекенд":    TrackBackend,
	"frontend":  TrackFrontend,
	"фронтенд":  TrackFrontend,
	"фронт":     TrackFrontend,
	"data":      TrackData,
	"данные":    TrackData,
	"аналитика": TrackData,
	"devops":    TrackDevOps,
	"девопс":    TrackDevOps,
}

// ParseTrack resolves a user-typed track name.
func ParseTrack(s string) (Track, bool) {
	t, ok := trackSynonyms[strings.ToLower(strings.TrimSpace(s))]
	return t, ok
}
