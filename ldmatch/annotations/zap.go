package annotations

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap logger. format is "json" or "text"; level is one of
// debug, info, warn, error or none.
func NewLogger(format, level string) (*zap.Logger, error) {
	if level == "none" {
		return zap.NewNop(), nil
	}

	var lvl zapcore.Level
	switch level {
	case "debug":
		lvl = zap.DebugLevel
	case "info":
		lvl = zap.InfoLevel
	case "warn":
		lvl = zap.WarnLevel
	case "error":
		lvl = zap.ErrorLevel
	default:
		return nil, fmt.Errorf("unknown log level: %s", level)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.CallerKey = "" // remove the "caller" field
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch format {
	case "json":
	case "text":
		cfg.Encoding = "console"
		cfg.DisableCaller = true
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format: %s", format)
	}

	return cfg.Build()
}

// ZapHandler returns a handler logging every event to logger.
// Error events and faults are logged at warn level, everything else at debug.
func ZapHandler(logger *zap.Logger) Handler {
	if logger == nil {
		return nil
	}
	return func(event Event) {
		fields := make([]zap.Field, 0, len(event.Data)+1)
		fields = append(fields, zap.Duration("latency", event.Latency))
		for _, key := range slices.Sorted(maps.Keys(event.Data)) {
			value := event.Data[key]
			if err, ok := value.(error); ok {
				fields = append(fields, zap.NamedError(key, err))
				continue
			}
			fields = append(fields, zap.Any(key, value))
		}

		if isFailure(event) {
			logger.Warn(event.Name, fields...)
			return
		}
		logger.Debug(event.Name, fields...)
	}
}

func isFailure(event Event) bool {
	if strings.HasPrefix(event.Name, "error/") || event.Name == PatternFault {
		return true
	}
	if event.Name == MatchComplete {
		success, _ := event.Data["success"].(bool)
		return !success
	}
	return false
}
