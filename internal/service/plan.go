package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"emaide/internal/domain"
	"emaide/internal/logger"
	"emaide/internal/metrics"
	"emaide/internal/storage"
)

// planSystemPrompt фиксирует роль и жёсткие ограничения reasoning-сервиса
const planSystemPrompt = `You are EM-Aide, a decision-support copilot for Engineering Managers.

You receive ONLY sanitized delivery signals and anonymized entity references.
You do NOT have access to code, diffs, ticket text, or team discussions.

Your job:
- Identify the MOST IMPORTANT actions an EM should take THIS WEEK.
- Be concise, concrete, and operational.

Rules:
- Prefer clarity over completeness.
- Avoid generic advice.
- Do not restate raw metrics unless they directly support a decision.
- Each action must be something an EM can realistically do within a week.
- Write for a busy EM reading this in under 2 minutes.

Hard limits:
- Exactly 3 actions.
- Exactly 5 risks.
- Action rationale: max 2 sentences.
- Steps: max 3 bullets.
- Risk description: max 1 sentence.
- Summary: max 3 sentences.

Output MUST be valid JSON matching the provided schema.
Do not include markdown, commentary, or extra text.`

// planSchemaHint показывает модели ожидаемую форму ответа
const planSchemaHint = `{
  "week_start": "YYYY-MM-DD",
  "generated_at": "ISO-8601 datetime",
  "top_actions": [{
    "title": "string",
    "rationale": "string",
    "evidence": ["string"],
    "steps": ["string"],
    "expected_impact": "string",
    "risk": "string",
    "confidence": 0.0
  }],
  "top_risks": [{
    "title": "string",
    "description": "string",
    "severity": "low|medium|high",
    "likelihood": 0.0,
    "signals": ["string"],
    "mitigations": ["string"]
  }],
  "summary": "string"
}`

// planUserPrompt собирает user prompt из сериализованного пакета
func planUserPrompt(packetJSON []byte) string {
	return fmt.Sprintf(`ContextPacket (sanitized JSON):
%s

Task:
Produce a focused weekly plan.

Requirements:
- Choose only the highest-leverage actions.
- If an action does not materially reduce risk or improve flow this week, exclude it.
- Cite evidence using signal names and entity IDs only (e.g. "pr_stale_count", "PR-1423").

Formatting rules:
- Keep text short and direct.
- No hedging language.
- No repeated explanations.

Schema hint:
%s`, packetJSON, planSchemaHint)
}

// Run строит недельный план команды. Пакет собирается в памяти, reasoning-сервис
// вызывается до какой-либо записи; при успехе пакет, agent run и план сохраняются
// одной транзакцией, так что читатель никогда не видит план без его agent run
// и пакета. При сбое сохраняются пакет и ошибочный agent run для аудита.
func (s *Service) Run(outerCtx context.Context, teamID uint, owner string) (*domain.Plan, error) {
	const op = "service.RunPlan"
	requestID := logger.GetRequestID(outerCtx)

	if owner == "" {
		owner = uuid.NewString()
	}
	if err := s.Acquire(outerCtx, teamID, domain.ActionWeeklyPlan, owner, s.cfg.Sync.PlanLockTTL); err != nil {
		return nil, err
	}
	defer func() {
		if err := s.Release(context.WithoutCancel(outerCtx), teamID, domain.ActionWeeklyPlan); err != nil {
			log.Error().Err(err).
				Str("request_id", requestID).
				Str("layer", "service").
				Uint("team_id", teamID).
				Msg("failed to release plan lock")
		}
	}()

	packet, err := s.Build(outerCtx, teamID)
	if err != nil {
		metrics.PlanRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	packetJSON, err := json.Marshal(packet)
	if err != nil {
		metrics.PlanRunsTotal.WithLabelValues("error").Inc()
		return nil, s.formatError(outerCtx, op, err)
	}

	log.Info().
		Str("request_id", requestID).
		Str("layer", "service").
		Uint("team_id", teamID).
		Str("llm_mode", s.generator.Mode()).
		Str("model", s.generator.Model()).
		Int("packet_entities", len(packet.Entities)).
		Msg("requesting weekly plan")

	var weekly domain.WeeklyPlan
	llmStart := time.Now()
	genErr := s.generator.GenerateStructured(outerCtx, planSystemPrompt, planUserPrompt(packetJSON), &weekly)
	if genErr == nil {
		genErr = weekly.Validate()
	}
	llmStatus := "success"
	if genErr != nil {
		llmStatus = "error"
	}
	metrics.LLMRequestDuration.WithLabelValues(s.generator.Mode(), llmStatus).Observe(time.Since(llmStart).Seconds())

	if genErr != nil {
		s.recordFailedRun(outerCtx, teamID, string(packetJSON), genErr)
		metrics.PlanRunsTotal.WithLabelValues("error").Inc()
		return nil, s.formatError(outerCtx, op,
			domain.WrapError(genErr, http.StatusBadGateway, domain.ErrorCodeAgentError, "weekly plan generation failed"))
	}

	now := time.Now().UTC()
	weekStart := weekly.ParsedWeekStart(now)
	weekly.WeekStart = weekStart.Format("2006-01-02")
	planJSON, err := json.Marshal(&weekly)
	if err != nil {
		metrics.PlanRunsTotal.WithLabelValues("error").Inc()
		return nil, s.formatError(outerCtx, op, err)
	}

	var plan *domain.Plan
	err = s.txmgr.Do(outerCtx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.PacketRepo().Create(ctx, &domain.ContextPacketRecord{
			TeamID:  teamID,
			Content: string(packetJSON),
		}); err != nil {
			return err
		}
		run := &domain.AgentRun{
			TeamID:  teamID,
			LLMMode: s.generator.Mode(),
			Model:   s.generator.Model(),
			Status:  domain.AgentRunStatusOK,
		}
		if err := tx.AgentRunRepo().Create(ctx, run); err != nil {
			return err
		}
		plan = &domain.Plan{
			TeamID:     teamID,
			AgentRunID: run.ID,
			WeekStart:  weekStart,
			Content:    string(planJSON),
		}
		return tx.PlanRepo().Create(ctx, plan)
	})
	if err != nil {
		metrics.PlanRunsTotal.WithLabelValues("error").Inc()
		return nil, s.formatError(outerCtx, op, err)
	}

	metrics.PlanRunsTotal.WithLabelValues("success").Inc()
	log.Info().
		Str("request_id", requestID).
		Str("layer", "service").
		Uint("team_id", teamID).
		Uint("plan_id", plan.ID).
		Time("week_start", weekStart).
		Msg("weekly plan persisted")
	return plan, nil
}

// recordFailedRun сохраняет пакет и ошибочный agent run для аудита.
// Сбой самой записи логируется и не маскирует исходную ошибку.
func (s *Service) recordFailedRun(outerCtx context.Context, teamID uint, packetJSON string, genErr error) {
	// Запись аудита должна пережить отмену исходного контекста (таймаут LLM)
	err := s.txmgr.Do(context.WithoutCancel(outerCtx), func(ctx context.Context, tx storage.Tx) error {
		if err := tx.PacketRepo().Create(ctx, &domain.ContextPacketRecord{
			TeamID:  teamID,
			Content: packetJSON,
		}); err != nil {
			return err
		}
		return tx.AgentRunRepo().Create(ctx, &domain.AgentRun{
			TeamID:  teamID,
			LLMMode: s.generator.Mode(),
			Model:   s.generator.Model(),
			Status:  domain.AgentRunStatusError,
			Error:   genErr.Error(),
		})
	})
	if err != nil {
		log.Error().Err(err).
			Str("layer", "service").
			Uint("team_id", teamID).
			Msg("failed to record failed agent run")
	}
}

// GetLatest возвращает последний сохранённый план команды
func (s *Service) GetLatest(outerCtx context.Context, teamID uint) (*domain.Plan, error) {
	const op = "service.GetLatestPlan"

	var plan *domain.Plan
	err := s.txmgr.Do(outerCtx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		plan, err = tx.PlanRepo().Latest(ctx, teamID)
		return err
	})
	if err != nil {
		return nil, s.formatError(outerCtx, op, err)
	}
	return plan, nil
}

// GetContextPreview возвращает последний сохранённый контекстный пакет команды
func (s *Service) GetContextPreview(outerCtx context.Context, teamID uint) (*domain.ContextPacketRecord, error) {
	const op = "service.GetContextPreview"

	var record *domain.ContextPacketRecord
	err := s.txmgr.Do(outerCtx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		record, err = tx.PacketRepo().Latest(ctx, teamID)
		return err
	})
	if err != nil {
		return nil, s.formatError(outerCtx, op, err)
	}
	return record, nil
}
