package logger

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the zap level used throughout the service.
type Level = zapcore.Level

const (
	LevelTrace   = zapcore.Level(-2)
	LevelDebug   = zapcore.DebugLevel
	LevelInfo    = zapcore.InfoLevel
	LevelWarning = zapcore.WarnLevel
	LevelError   = zapcore.ErrorLevel
	LevelFatal   = zapcore.FatalLevel
)

var (
	Logger          *zap.SugaredLogger
	errorSampleRate int32 = 1
	programLevel          = zap.NewAtomicLevelAt(LevelInfo)
)

// Counters for the health endpoint (incremented regardless of sampling)
var (
	TotalErrors    atomic.Int64
	TotalWarnings  atomic.Int64
	Total5xxErrors atomic.Int64
	Total4xxErrors atomic.Int64
	Total409Errors atomic.Int64
	Total422Errors atomic.Int64
)

func init() {
	level, err := ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = LevelInfo
	}
	programLevel.SetLevel(level)

	if sampleStr := os.Getenv("ERROR_SAMPLE_RATE"); sampleStr != "" {
		if rate, err := strconv.Atoi(sampleStr); err == nil && rate > 0 {
			atomic.StoreInt32(&errorSampleRate, int32(rate))
		}
	}

	if err := Init(os.Getenv("LOG_FORMAT")); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger, falling back to no-op: %v\n", err)
		Logger = zap.NewNop().Sugar()
	}
}

// Init (re)builds the package logger. format is "json" (default) or "console".
func Init(format string) error {
	var cfg zap.Config
	if strings.EqualFold(format, "console") {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = programLevel
	// sampling is done by shouldSample so counters stay exact
	cfg.Sampling = nil

	built, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("failed to build zap logger: %w", err)
	}

	Logger = built.Sugar()
	return nil
}

// UseLogger swaps the package logger, mostly for tests.
func UseLogger(l *zap.Logger) {
	Logger = l.WithOptions(zap.AddCallerSkip(1)).Sugar()
}

// Sync flushes buffered entries. Call during shutdown.
func Sync() error {
	return Logger.Sync()
}

// SetLevel sets the minimum log level for the logger
func SetLevel(level Level) {
	programLevel.SetLevel(level)
}

// GetLevel returns the current minimum log level
func GetLevel() Level {
	return programLevel.Level()
}

// SetSampleRate sets the 1/N sampling rate for warnings and errors.
func SetSampleRate(rate int) {
	if rate < 1 {
		rate = 1
	}
	atomic.StoreInt32(&errorSampleRate, int32(rate))
}

// ParseLevel converts a string level name to a zap level. Empty means INFO.
func ParseLevel(levelStr string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "", "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarning, nil
	case "ERROR":
		return LevelError, nil
	case "FATAL":
		return LevelFatal, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s (defaulting to INFO)", levelStr)
	}
}

func shouldSample() bool {
	rate := atomic.LoadInt32(&errorSampleRate)
	if rate <= 1 {
		return true
	}
	return rand.Intn(int(rate)) == 0
}

// Trace logs below debug; only visible with LOG_LEVEL=TRACE.
func Trace(msg string, keysAndValues ...any) {
	if GetLevel() <= LevelTrace {
		Logger.Debugw(msg, append(keysAndValues, "trace", true)...)
	}
}

func Debug(msg string, keysAndValues ...any) {
	Logger.Debugw(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...any) {
	Logger.Infow(msg, keysAndValues...)
}

// Warn increments the warning counter and logs with sampling.
func Warn(msg string, keysAndValues ...any) {
	TotalWarnings.Add(1)
	if shouldSample() {
		Logger.Warnw(msg, keysAndValues...)
	}
}

// Error increments the error counter and logs with sampling.
func Error(msg string, keysAndValues ...any) {
	TotalErrors.Add(1)
	if shouldSample() {
		Logger.Errorw(msg, keysAndValues...)
	}
}

// Fatal logs and exits.
func Fatal(msg string, keysAndValues ...any) {
	_ = Logger.Sync()
	Logger.Fatalw(msg, keysAndValues...)
}

// ErrorHttp5xx counts an HTTP 5xx response.
func ErrorHttp5xx() {
	Total5xxErrors.Add(1)
	TotalErrors.Add(1)
}

// WarnHttp4xx counts an HTTP 4xx response.
func WarnHttp4xx(status int) {
	Total4xxErrors.Add(1)
	TotalWarnings.Add(1)

	switch status {
	case 409:
		Total409Errors.Add(1)
	case 422:
		Total422Errors.Add(1)
	}
}
