// Package logger is the process-wide leveled logger.
//
// The package-level functions take printf-style arguments. Output goes
// through a zap SugaredLogger that Configure rebuilds; until then messages are
// written to stdout in console format at INFO level.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel converts a level name (case-insensitive) to a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", level)
}

var (
	mu     sync.RWMutex
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar  = newSugar(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.Lock(os.Stdout))
	closer func() error
)

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func newSugar(enc zapcore.Encoder, out zapcore.WriteSyncer) *zap.SugaredLogger {
	return zap.New(zapcore.NewCore(enc, out, level)).Sugar()
}

// SetLevel changes the minimum level. Unknown names are ignored.
func SetLevel(name string) {
	l, err := ParseLevel(name)
	if err != nil {
		return
	}
	level.SetLevel(l.zapLevel())
}

// Configure rebuilds the logger.
//
// Parameters:
//   - levelName: DEBUG, INFO, WARN or ERROR
//   - format: "text" (console) or "json"
//   - output: "stdout", "stderr" or a file path (appended to)
func Configure(levelName, format, output string) error {
	l, err := ParseLevel(levelName)
	if err != nil {
		return err
	}

	var enc zapcore.Encoder
	switch strings.ToLower(format) {
	case "", "text":
		enc = zapcore.NewConsoleEncoder(encoderConfig())
	case "json":
		enc = zapcore.NewJSONEncoder(encoderConfig())
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	var (
		out     zapcore.WriteSyncer
		closeFn func() error
	)
	switch strings.ToLower(output) {
	case "", "stdout":
		out = zapcore.Lock(os.Stdout)
	case "stderr":
		out = zapcore.Lock(os.Stderr)
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		out = zapcore.Lock(f)
		closeFn = f.Close
	}

	mu.Lock()
	defer mu.Unlock()

	_ = sugar.Sync()
	if closer != nil {
		_ = closer()
	}
	level.SetLevel(l.zapLevel())
	sugar = newSugar(enc, out)
	closer = closeFn
	return nil
}

// Sync flushes buffered entries.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return sugar.Sync()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Debug(format string, v ...any) {
	current().Debugf(format, v...)
}

func Info(format string, v ...any) {
	current().Infof(format, v...)
}

func Warn(format string, v ...any) {
	current().Warnf(format, v...)
}

func Error(format string, v ...any) {
	current().Errorf(format, v...)
}
