// Package logging настраивает logrus и подключает к нему логгер gorm.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/UkralStul/yatube-api/internal/config"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm/logger"
)

// SlowQueryThreshold - запросы дольше этого логируются как медленные.
const SlowQueryThreshold = 200 * time.Millisecond

// New создает логгер по настройкам. Пишет в stderr.
func New(cfg *config.Log) (*logrus.Logger, error) {
	return newWithOutput(cfg, os.Stderr)
}

func newWithOutput(cfg *config.Log, out io.Writer) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetOutput(out)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log.level: %w", err)
	}
	l.SetLevel(level)

	switch cfg.Format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid log.format %q", cfg.Format)
	}
	return l, nil
}

// Gorm возвращает логгер gorm, пишущий через l. Без sql пишутся только ошибки.
func Gorm(l *logrus.Logger, sql bool) logger.Interface {
	level := logger.Error
	if sql {
		level = logger.Info
	}
	return logger.New(l, logger.Config{
		SlowThreshold:             SlowQueryThreshold,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
