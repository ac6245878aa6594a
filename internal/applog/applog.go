// Package applog provides the structured logger injected into every
// component constructor in the pane runtime: a small facade around a
// logging library with a file-or-discard sink, instance-based rather than
// a package-level singleton, since spec §9 calls for "no implicit
// process-wide state".
package applog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the facade passed to component constructors.
type Logger struct {
	z *zap.Logger
}

// New builds a Logger writing JSON lines to path. An empty path discards
// all output.
func New(path string) (*Logger, error) {
	if path == "" {
		return Noop(), nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec
	if err != nil {
		return nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(f), zap.DebugLevel)
	return &Logger{z: zap.New(core)}, nil
}

// Noop returns a Logger that discards everything, for bring-up and tests.
func Noop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// With returns a child Logger scoped with additional fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	if l == nil {
		return Noop()
	}
	return &Logger{z: l.z.With(fields...)}
}

func (l *Logger) Debugf(format string, args ...any) { l.sugar().Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.sugar().Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.sugar().Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.sugar().Errorf(format, args...) }

func (l *Logger) sugar() *zap.SugaredLogger {
	if l == nil || l.z == nil {
		return zap.NewNop().Sugar()
	}
	return l.z.Sugar()
}

// Sync flushes any buffered log entries; call on shutdown.
func (l *Logger) Sync() error {
	if l == nil || l.z == nil {
		return nil
	}
	return l.z.Sync()
}
