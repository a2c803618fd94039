package domain

import (
	"fmt"
	"time"
)

// PlanAction - одно действие недельного плана
type PlanAction struct {
	Title          string   `json:"title"`
	Rationale      string   `json:"rationale"`
	Evidence       []string `json:"evidence"`
	Steps          []string `json:"steps"`
	ExpectedImpact string   `json:"expected_impact"`
	Risk           string   `json:"risk"`
	Confidence     float64  `json:"confidence"`
}

// PlanRisk - один риск недельного плана
type PlanRisk struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    string   `json:"severity"`
	Likelihood  float64  `json:"likelihood"`
	Signals     []string `json:"signals"`
	Mitigations []string `json:"mitigations"`
}

// WeeklyPlan - структурированный план, возвращаемый reasoning-сервисом.
// Гарантируется только форма (схема), не семантика текста.
type WeeklyPlan struct {
	WeekStart   string       `json:"week_start"`
	GeneratedAt string       `json:"generated_at"`
	TopActions  []PlanAction `json:"top_actions"`
	TopRisks    []PlanRisk   `json:"top_risks"`
	Summary     string       `json:"summary"`
}

// Validate проверяет форму плана после десериализации ответа LLM
func (p *WeeklyPlan) Validate() error {
	if len(p.TopActions) == 0 {
		return fmt.Errorf("plan has no actions")
	}
	if len(p.TopRisks) == 0 {
		return fmt.Errorf("plan has no risks")
	}
	for i, a := range p.TopActions {
		if a.Title == "" {
			return fmt.Errorf("action %d has empty title", i)
		}
		if a.Confidence < 0 || a.Confidence > 1 {
			return fmt.Errorf("action %d confidence %f out of range", i, a.Confidence)
		}
	}
	for i, r := range p.TopRisks {
		if r.Title == "" {
			return fmt.Errorf("risk %d has empty title", i)
		}
		switch r.Severity {
		case "low", "medium", "high":
		default:
			return fmt.Errorf("risk %d has invalid severity %q", i, r.Severity)
		}
		if r.Likelihood < 0 || r.Likelihood > 1 {
			return fmt.Errorf("risk %d likelihood %f out of range", i, r.Likelihood)
		}
	}
	return nil
}

// ParsedWeekStart разбирает week_start плана. Если поле отсутствует или
// невалидно, возвращает понедельник текущей недели (UTC) - это никогда
// не должно ронять всю операцию построения плана.
func (p *WeeklyPlan) ParsedWeekStart(now time.Time) time.Time {
	if p.WeekStart != "" {
		if d, err := time.Parse("2006-01-02", p.WeekStart); err == nil {
			return d
		}
	}
	return WeekStart(now)
}

// WeekStart возвращает понедельник недели, содержащей t (UTC)
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	// В Go воскресенье = 0, понедельник = 1
	if weekday == 0 {
		weekday = 7
	}
	d := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
