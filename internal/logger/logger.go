// Package logger настраивает logrus для сервиса магазина.
package logger

import (
	"io"
	"os"
	"strings"

	"eshop/internal/config"

	"github.com/sirupsen/logrus"
)

// ServiceName добавляется полем service в каждую запись
const ServiceName = "eshop"

// Logger оборачивает logrus и настраивается из LoggerConfig
type Logger struct {
	*logrus.Logger
}

// New создает логгер с уровнем, форматом и (опционально) файлом вывода.
// Неизвестный уровень заменяется на info, неизвестный формат на json.
func New(cfg *config.LoggerConfig) *Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(formatter(cfg.Format))
	log.AddHook(serviceHook{})

	log.SetOutput(os.Stdout)
	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.WithError(err).WithField("file", cfg.File).Warn("Failed to open log file, using stdout only")
		} else {
			log.SetOutput(io.MultiWriter(os.Stdout, file))
		}
	}

	return &Logger{Logger: log}
}

// Component возвращает запись с полем component для подсистемы
func (l *Logger) Component(name string) *logrus.Entry {
	return l.WithField("component", name)
}

func formatter(format string) logrus.Formatter {
	if strings.EqualFold(format, "text") {
		return &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		}
	}
	return &logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	}
}

// serviceHook проставляет имя сервиса, не перетирая явно заданное поле
type serviceHook struct{}

func (serviceHook) Levels() []logrus.Level { return logrus.AllLevels }

func (serviceHook) Fire(entry *logrus.Entry) error {
	if _, ok := entry.Data["service"]; !ok {
		entry.Data["service"] = ServiceName
	}
	return nil
}
