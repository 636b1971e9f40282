package main

import (
	"github.com/septivank/ecobee-sync/internal/config"
	"github.com/septivank/ecobee-sync/internal/logging"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(logging.Options{
		ServiceName:   cfg.ServiceName,
		Level:         cfg.Logging.Level,
		File:          cfg.Logging.File,
		RetentionDays: cfg.Logging.RetentionDays,
	})
}
