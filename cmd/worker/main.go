package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"emaide/internal/config"
	"emaide/internal/domain"
	"emaide/internal/llm"
	"emaide/internal/logger"
	"emaide/internal/service"
	storageGorm "emaide/internal/storage/gorm"
	"emaide/internal/tracker"
	"emaide/internal/tracker/github"
	"emaide/internal/tracker/jira"
)

const trackerTimeout = 30 * time.Second

func main() {
	if err := godotenv.Load(".env"); err != nil {
		fmt.Println("No .env file found")
	}
	envConfig := config.NewEnvConfig()
	envConfig.PrintConfigWithHiddenSecrets()

	logger.Setup(envConfig)

	txManager, err := storageGorm.NewTxManager(envConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}

	codeHost := github.NewClient(envConfig.GitHub.APIBaseURL, envConfig.GitHub.Token, trackerTimeout)
	var issueTracker tracker.IssueTrackerClient
	if envConfig.JiraConfigured() {
		issueTracker = jira.NewClient(envConfig.Jira.BaseURL, envConfig.Jira.Email, envConfig.Jira.APIToken, trackerTimeout)
	}
	generator := llm.NewGenerator(envConfig.LLM)

	appService := service.New(txManager, envConfig, codeHost, issueTracker, generator)

	team, err := appService.EnsureDefaults(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to ensure default org and team")
	}

	jobSync := func() {
		ctx, cancel := context.WithTimeout(context.Background(), envConfig.Sync.LockTTL)
		defer cancel()
		result, err := appService.SyncTeam(ctx, team.ID, envConfig.Sync.SinceDays)
		if err != nil {
			// Контенция ожидаема: кто-то уже синхронизирует эту команду
			if errors.Is(err, domain.ErrLockHeld) {
				log.Info().Uint("team_id", team.ID).Msg("sync skipped, lock held elsewhere")
				return
			}
			log.Error().Err(err).Uint("team_id", team.ID).Msg("scheduled sync failed")
			return
		}
		log.Info().
			Uint("team_id", team.ID).
			Int("change_requests", result.ChangeRequests).
			Int("reviews", result.Reviews).
			Int("issues", result.Issues).
			Msg("scheduled sync finished")
	}

	jobMetrics := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		upserts, err := appService.Snapshot(ctx, team.ID, time.Now().UTC())
		if err != nil {
			log.Error().Err(err).Uint("team_id", team.ID).Msg("scheduled metric snapshot failed")
			return
		}
		log.Info().Uint("team_id", team.ID).Int("upserts", upserts).Msg("scheduled metric snapshot finished")
	}

	scheduler := cron.New(cron.WithLocation(time.UTC))
	syncSpec := fmt.Sprintf("@every %dm", envConfig.Sync.IntervalMinutes)
	if _, err := scheduler.AddFunc(syncSpec, jobSync); err != nil {
		log.Fatal().Err(err).Str("spec", syncSpec).Msg("failed to schedule sync job")
	}
	metricsSpec := fmt.Sprintf("%d %d * * *", envConfig.Sync.MetricsDailyMinute, envConfig.Sync.MetricsDailyHour)
	if _, err := scheduler.AddFunc(metricsSpec, jobMetrics); err != nil {
		log.Fatal().Err(err).Str("spec", metricsSpec).Msg("failed to schedule metrics job")
	}

	// Первый снапшот и синк сразу после старта, не дожидаясь расписания
	go func() {
		jobSync()
		time.Sleep(10 * time.Second)
		jobMetrics()
	}()

	scheduler.Start()
	log.Info().
		Str("sync_spec", syncSpec).
		Str("metrics_spec", metricsSpec).
		Msg("worker started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Info().Msg(fmt.Sprintf("signal received: %s — stopping worker", s))

	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		log.Warn().Msg("timed out waiting for running jobs")
	}
	log.Info().Msg("worker shutdown gracefully")
}
