package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// GooseLogger routes goose migration output through zap. It satisfies
// goose.Logger.
type GooseLogger struct {
	logger *zap.Logger
}

// NewGooseLogger wraps logger; nil means the global logger at call time.
func NewGooseLogger(logger *zap.Logger) *GooseLogger {
	if logger == nil {
		logger = zap.L()
	}
	return &GooseLogger{logger: logger}
}

// Printf logs at info level.
func (l *GooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Fatalf logs at fatal level, which exits like goose's default logger.
func (l *GooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatal(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
