package logger

import (
	"go.uber.org/zap"

	"quiz-engine/internal/config"
)

// New builds the process-wide zap logger. Production output is JSON,
// anything else gets the development console encoder.
func New(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
