// Package logging builds the zap logger shared by the CLI and the stores.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New returns a development logger at debug level when debug is set, and a
// production JSON logger that only reports warnings and errors otherwise.
// Both write to stderr so command output on stdout stays parseable.
func New(debug bool) (*zap.Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
