package kit

import (
	"go.uber.org/zap"
)

// NewLogger builds the production JSON logger. level is one of
// debug|info|warn|error; empty means info.
func NewLogger(service, level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.InitialFields = map[string]any{"service": service}

	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = lvl
	}
	return cfg.Build()
}
