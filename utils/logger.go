package utils

import (
	"go.uber.org/zap"
)

// Logger is the process-wide structured logger. It is a no-op until InitLogger runs.
var Logger = zap.NewNop()

// InitLogger builds the logger for env ("development", "test" or anything else for production).
func InitLogger(env string) error {
	var (
		logger *zap.Logger
		err    error
	)
	switch env {
	case "test":
		logger = zap.NewNop()
	case "development":
		logger, err = zap.NewDevelopment()
	default:
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	Logger = logger
	return nil
}

// SyncLogger flushes buffered log entries; errors from stderr syncing are ignored.
func SyncLogger() {
	_ = Logger.Sync()
}
