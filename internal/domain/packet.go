package domain

import "time"

// Виды сущностей в контекстном пакете
const (
	EntityKindPR    = "pr"
	EntityKindIssue = "issue"
)

// Флаги, выводимые из локальных записей
const (
	FlagStalePR     = "stale_pr"
	FlagMegaPR      = "mega_pr"
	FlagNeedsReview = "needs_review"
	FlagBlocked     = "blocked"
)

// Signal - именованная числовая метрика в контекстном пакете
type Signal struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// EntityRef - санитизированная ссылка на change request или issue.
// Содержит только состояние, возраст, размер и выведенные флаги -
// никаких названий, имён и свободного текста.
type EntityRef struct {
	Kind    string   `json:"kind"`
	ID      string   `json:"id"`
	State   string   `json:"state"`
	AgeDays *float64 `json:"age_days"`
	Size    *float64 `json:"size"`
	Flags   []string `json:"flags"`
}

// ContextPacket - санитизированный payload для reasoning-сервиса.
// Гарантия: структура не содержит ни одной сырой строки из внешних систем.
type ContextPacket struct {
	Org      string                 `json:"org"`
	Team     string                 `json:"team"`
	AsOf     time.Time              `json:"as_of"`
	Goals    []string               `json:"goals"`
	Signals  []Signal               `json:"signals"`
	Entities []EntityRef            `json:"entities"`
	History  map[string]interface{} `json:"history"`
}
