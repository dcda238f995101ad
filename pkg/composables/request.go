package composables

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ipsco/fleet/pkg/constants"
	"github.com/ipsco/fleet/pkg/logging"
)

var (
	ErrNoLogger = errors.New("logger not found")
)

// WithLogger returns a new context carrying the request-scoped logger.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// UseLogger returns the logger from the context, or a discarding entry when
// none was attached.
func UseLogger(ctx context.Context) *logrus.Entry {
	if logger, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry); ok && logger != nil {
		return logger
	}
	return logging.NopEntry()
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, constants.RequestIDKey, requestID)
}

func UseRequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(constants.RequestIDKey).(string)
	return v, ok && v != ""
}

func WithRequestStart(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, constants.RequestStart, t)
}

func UseRequestStart(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(constants.RequestStart).(time.Time)
	return t, ok
}
