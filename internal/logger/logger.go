package logger

import (
	"context"
	"emaide/internal/api/middleware"
	"emaide/internal/config"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup инициализирует и настраивает логгер zerolog в зависимости от окружения.
// В режиме debug логи выводятся в stdout, в production - в файл.
// Возвращает настроенный экземпляр логгера.
func Setup(envConf *config.Config) *zerolog.Logger {
	// Установка уровня логирования в зависимости от окружения
	if envConf.ProductionType == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	zerolog.TimeFieldFormat = "15:04:05 02.01.2006"

	// Показываем только последние 2 части пути к файлу для краткости
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		parts := strings.Split(file, "/")
		if len(parts) > 2 {
			file = strings.Join(parts[len(parts)-2:], "/")
		}
		return fmt.Sprintf("%s:%d", file, line)
	}

	var writer io.Writer

	if envConf.ProductionType == "prod" {
		// В production логи пишутся в файл
		logPath := envConf.LogPath

		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			log.Fatal().Err(err).Msg("failed to create logger directory")
		}

		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0666)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open logger file")
		}
		writer = logFile
	} else {
		// В debug режиме логи выводятся в консоль
		writer = os.Stdout
	}

	loggerContext := zerolog.New(writer).
		With().
		Caller().
		Timestamp().
		Logger()

	// Глобальный логгер, чтобы все вызовы log.Info() использовали его
	log.Logger = loggerContext

	log.Info().Msg("logger setup complete")
	return &loggerContext
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(middleware.RequestIDKey).(string); ok {
		return requestID
	}
	return "unknown"
}
