package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port           string
	ProductionType string
	LogPath        string

	DefaultOrgName  string
	DefaultTeamName string

	Database Database
	GitHub   GitHub
	Jira     Jira
	LLM      LLM
	Sync     Sync
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type GitHub struct {
	APIBaseURL string
	Token      string
	Owner      string
	Repo       string
}

type Jira struct {
	BaseURL    string
	Email      string
	APIToken   string
	ProjectKey string
	BoardID    string
}

// LLM - настройки клиента reasoning-сервиса.
// Mode "remote" использует OpenAI-совместимый endpoint, "local" - Ollama.
type LLM struct {
	Mode        string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration

	OllamaBaseURL string
	OllamaModel   string
}

// Sync - настройки планировщика и блокировок
type Sync struct {
	IntervalMinutes    int
	SinceDays          int
	MetricsDailyHour   int
	MetricsDailyMinute int
	LockTTL            time.Duration
	PlanLockTTL        time.Duration
}

// NewEnvConfig читает конфигурацию из переменных окружения.
// Вызывается один раз в main, дальше конфиг передаётся явно в конструкторы.
func NewEnvConfig() *Config {
	return &Config{
		Port:           getEnv("APP_PORT", "8080"),
		ProductionType: getEnv("APP_PRODUCTION_TYPE", "debug"),
		LogPath:        os.Getenv("APP_LOG_PATH"),

		DefaultOrgName:  getEnv("DEFAULT_ORG_NAME", "demo-org"),
		DefaultTeamName: getEnv("DEFAULT_TEAM_NAME", "demo-team"),

		Database: Database{
			Host:     os.Getenv("DB_HOST"),
			Port:     os.Getenv("DB_PORT"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		GitHub: GitHub{
			APIBaseURL: getEnv("GITHUB_API_BASE_URL", "https://api.github.com"),
			Token:      os.Getenv("GITHUB_TOKEN"),
			Owner:      getEnv("GITHUB_OWNER", "kubernetes"),
			Repo:       getEnv("GITHUB_REPO", "kubernetes"),
		},

		Jira: Jira{
			BaseURL:    os.Getenv("JIRA_BASE_URL"),
			Email:      os.Getenv("JIRA_EMAIL"),
			APIToken:   os.Getenv("JIRA_API_TOKEN"),
			ProjectKey: os.Getenv("JIRA_PROJECT_KEY"),
			BoardID:    os.Getenv("JIRA_BOARD_ID"),
		},

		LLM: LLM{
			Mode:        getEnv("LLM_MODE", "remote"),
			BaseURL:     getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			APIKey:      os.Getenv("LLM_API_KEY"),
			Model:       getEnv("LLM_MODEL", "gpt-4.1-mini"),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.2),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 1200),
			Timeout:     time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 60)) * time.Second,

			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://host.docker.internal:11434"),
			OllamaModel:   getEnv("OLLAMA_MODEL", "llama3.1"),
		},

		Sync: Sync{
			IntervalMinutes:    getEnvInt("SYNC_INTERVAL_MINUTES", 60),
			SinceDays:          getEnvInt("SYNC_SINCE_DAYS", 30),
			MetricsDailyHour:   getEnvInt("METRICS_DAILY_HOUR", 2),
			MetricsDailyMinute: getEnvInt("METRICS_DAILY_MINUTE", 0),
			LockTTL:            time.Duration(getEnvInt("SYNC_LOCK_TTL_MINUTES", 30)) * time.Minute,
			PlanLockTTL:        time.Duration(getEnvInt("PLAN_LOCK_TTL_MINUTES", 10)) * time.Minute,
		},
	}
}

// JiraConfigured сообщает, настроен ли issue tracker полностью
func (config *Config) JiraConfigured() bool {
	j := config.Jira
	return j.BaseURL != "" && j.Email != "" && j.APIToken != "" && j.ProjectKey != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func (config *Config) PrintConfigWithHiddenSecrets() {
	// Функция для маскировки секретов
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return strings.Repeat("*", len(s))
	}

	fmt.Println("========== Configuration ==========")

	fmt.Println("App Configuration:")
	fmt.Printf("\tPort: %s\n", config.Port)
	fmt.Printf("\tProductionType: %s\n", config.ProductionType)
	fmt.Printf("\tLogPath: %s\n", config.LogPath)
	fmt.Printf("\tDefaultOrg: %s\n", config.DefaultOrgName)
	fmt.Printf("\tDefaultTeam: %s\n", config.DefaultTeamName)

	fmt.Println("\nDatabase Configuration:")
	fmt.Printf("\tHost: %s\n", config.Database.Host)
	fmt.Printf("\tPort: %s\n", config.Database.Port)
	fmt.Printf("\tUser: %s\n", config.Database.User)
	fmt.Printf("\tPassword: %s\n", mask(config.Database.Password))
	fmt.Printf("\tName: %s\n", config.Database.Name)
	fmt.Printf("\tSSLMode: %s\n", config.Database.SSLMode)

	fmt.Println("\nGitHub Configuration:")
	fmt.Printf("\tAPIBaseURL: %s\n", config.GitHub.APIBaseURL)
	fmt.Printf("\tToken: %s\n", mask(config.GitHub.Token))
	fmt.Printf("\tOwner: %s\n", config.GitHub.Owner)
	fmt.Printf("\tRepo: %s\n", config.GitHub.Repo)

	fmt.Println("\nJira Configuration:")
	fmt.Printf("\tBaseURL: %s\n", config.Jira.BaseURL)
	fmt.Printf("\tEmail: %s\n", config.Jira.Email)
	fmt.Printf("\tAPIToken: %s\n", mask(config.Jira.APIToken))
	fmt.Printf("\tProjectKey: %s\n", config.Jira.ProjectKey)
	fmt.Printf("\tBoardID: %s\n", config.Jira.BoardID)

	fmt.Println("\nLLM Configuration:")
	fmt.Printf("\tMode: %s\n", config.LLM.Mode)
	fmt.Printf("\tBaseURL: %s\n", config.LLM.BaseURL)
	fmt.Printf("\tAPIKey: %s\n", mask(config.LLM.APIKey))
	fmt.Printf("\tModel: %s\n", config.LLM.Model)
	fmt.Printf("\tTimeout: %s\n", config.LLM.Timeout)

	fmt.Println("\nSync Configuration:")
	fmt.Printf("\tIntervalMinutes: %d\n", config.Sync.IntervalMinutes)
	fmt.Printf("\tSinceDays: %d\n", config.Sync.SinceDays)
	fmt.Printf("\tMetricsDaily: %02d:%02d\n", config.Sync.MetricsDailyHour, config.Sync.MetricsDailyMinute)
	fmt.Printf("\tLockTTL: %s\n", config.Sync.LockTTL)
	fmt.Printf("\tPlanLockTTL: %s\n", config.Sync.PlanLockTTL)

	fmt.Println("\n===================================")
}
