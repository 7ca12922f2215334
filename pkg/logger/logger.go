package logger

import (
	"go.uber.org/zap"
)

// Init builds the process logger and installs it as the zap global so
// packages without an injected logger can still reach it via zap.L().
func Init() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true

	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)
	return log, nil
}
