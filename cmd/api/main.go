package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"emaide/internal/api/handlers"
	"emaide/internal/api/server"
	"emaide/internal/config"
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

	if _, err := appService.EnsureDefaults(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure default org and team")
	}

	appHandler := handlers.NewHandler(envConfig, appService, appService, appService, appService)
	apiServer := server.NewServer(envConfig, appHandler)

	go apiServer.Run()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Info().Msg(fmt.Sprintf("signal received: %s — starting graceful shutdown", s))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	apiServer.Shutdown(ctx)

	log.Info().Msg("service shutdown gracefully")
}
