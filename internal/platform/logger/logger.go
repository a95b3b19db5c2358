package logger

import "go.uber.org/zap"

// New builds the process logger. Production gets JSON output, everything else
// the human-readable development encoder.
func New(production bool) (*zap.Logger, error) {
	if production {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
