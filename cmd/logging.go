package cmd

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the CLI logger: console encoding on stderr, level from
// config unless --verbose forces debug.
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	lvl := zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if strings.TrimSpace(level) != "" {
		var parsed zapcore.Level
		if err := parsed.Set(level); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl.SetLevel(parsed)
	}
	if verbose {
		lvl.SetLevel(zapcore.DebugLevel)
	}

	zc := zap.NewDevelopmentConfig()
	zc.Level = lvl
	zc.Encoding = "console"
	zc.DisableStacktrace = true
	zc.DisableCaller = !verbose
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	zc.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return l, nil
}
