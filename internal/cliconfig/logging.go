package cliconfig

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/s3studio/baseline-manager/pkg/log"
)

// Logger builds the CLI logger for cfg, writing to out.
func Logger(cfg Config, out io.Writer) zerolog.Logger {
	return log.NewZerolog(log.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: out,
	})
}
