package log

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

type contextKey string

const requestIDKey contextKey = "requestID"

var logger = newLogger("themind")

func newLogger(appName string) *log.Logger {
	l := log.New(os.Stdout)
	l.SetPrefix(appName)
	l.SetReportTimestamp(true)
	l.SetTimeFormat(time.DateTime)
	return l
}

// InitLog replaces the package logger. Unknown levels fall back to info.
func InitLog(appName string, logLevel string) {
	logger = newLogger(appName)
	logger.SetReportCaller(true)
	logger.SetCallerOffset(1)

	switch strings.ToLower(logLevel) {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
}

func Fatal(format string, args ...any) {
	logger.Fatalf(format, args...)
}

func Info(format string, args ...any) {
	logger.Infof(format, args...)
}

func Warn(format string, args ...any) {
	logger.Warnf(format, args...)
}

func Error(format string, args ...any) {
	logger.Errorf(format, args...)
}

func Debug(format string, args ...any) {
	logger.Debugf(format, args...)
}

// WithRequestID tags ctx so that Ctx-prefixed helpers can correlate lines.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ErrorCtx logs with the request id attached when one is present.
func ErrorCtx(ctx context.Context, format string, args ...any) {
	if id := RequestID(ctx); id != "" {
		logger.With("request_id", id).Errorf(format, args...)
		return
	}
	logger.Errorf(format, args...)
}

func InfoCtx(ctx context.Context, format string, args ...any) {
	if id := RequestID(ctx); id != "" {
		logger.With("request_id", id).Infof(format, args...)
		return
	}
	logger.Infof(format, args...)
}
