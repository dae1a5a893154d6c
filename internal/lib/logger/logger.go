package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/linemk/plugmarket-bot/internal/lib/logger/handlers/slogpretty"
)

// switching logger
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// SetupLogger инициализирует логгер в зависимости от переданного окружения:
// для локальной разработки цветной вывод (pretty), для dev/prod JSON.
// level ("debug", "info", "warn", "error") перекрывает уровень окружения, пустой - по умолчанию.
func SetupLogger(env, level string) *slog.Logger {
	return newLogger(os.Stdout, env, level)
}

func newLogger(out io.Writer, env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: Level(env, level)}

	if env == EnvLocal {
		color.NoColor = false
		pretty := slogpretty.PrettyHandlerOptions{SlogOpts: opts}
		return slog.New(pretty.NewPrettyHandler(out))
	}
	return slog.New(slog.NewJSONHandler(out, opts))
}

// Level уровень логирования: явно заданный или по окружению
func Level(env, level string) slog.Level {
	if level != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(level)); err == nil {
			return l
		}
	}
	switch env {
	case EnvLocal, EnvDev:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
