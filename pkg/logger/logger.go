package logger

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and how the application logs.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or text
	File       string // log file path, empty means stdout only
	MaxSizeMB  int    // rotate after this many megabytes
	MaxBackups int    // rotated files to keep
	MaxAgeDays int    // days to keep rotated files
	Compress   bool   // gzip rotated files
}

// DefaultConfig returns stdout-only JSON logging at info level.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "json",
		MaxSizeMB:  100,
		MaxBackups: 3,
		MaxAgeDays: 28,
	}
}

// New builds a logrus logger from the config. When a file is set the
// logger writes to both stdout and a size-rotated file.
func New(cfg Config) *logrus.Logger {
	log := logrus.New()
	log.SetLevel(parseLevel(cfg.Level))

	if cfg.Format == "text" {
		log.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	}

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	} else {
		log.SetOutput(os.Stdout)
	}

	return log
}

func parseLevel(level string) logrus.Level {
	switch level {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
