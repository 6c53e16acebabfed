package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const timeLayout = "2006/01/02 15:04:05"

// New builds the process logger. When file is set, output goes there
// instead of stderr so the terminal UI keeps the screen.
func New(development bool, file string) (*zap.Logger, error) {
	var config zap.Config
	if development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	if file != "" {
		config.OutputPaths = []string{file}
		config.ErrorOutputPaths = []string{file}
		// Color escapes are noise in a file.
		if development {
			config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		}
	}

	l, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

// Must is New for main packages.
func Must(development bool, file string) *zap.Logger {
	l, err := New(development, file)
	if err != nil {
		panic(err)
	}
	return l
}

// Sync flushes l, ignoring the EINVAL some terminals report for stderr.
func Sync(l *zap.Logger) {
	if l != nil {
		_ = l.Sync()
	}
}
