package logger

import (
	"go.uber.org/zap"
)

// New builds a zap logger: JSON output in production, console output otherwise.
func New(production bool) (*zap.Logger, error) {
	if production {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
