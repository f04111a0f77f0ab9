package logger

import (
	"io"
	"os"
	"strings"

	"refill-pricing/internal/config"

	"github.com/sirupsen/logrus"
)

// Logger оборачивает logrus и используется всеми слоями сервиса.
type Logger struct {
	*logrus.Logger
}

// New создаёт логгер по конфигурации. Неизвестный уровень трактуется как info.
func New(cfg *config.LoggerConfig) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(cfg.Format, "text") {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	l.SetOutput(os.Stdout)
	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			l.WithError(err).Warn("Failed to open log file, using stdout")
		} else {
			l.SetOutput(io.MultiWriter(os.Stdout, file))
		}
	}

	return &Logger{Logger: l}
}

// NewNop возвращает логгер, который ничего не пишет.
func NewNop() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Logger{Logger: l}
}
