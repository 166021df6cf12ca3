package composables

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/kanban/pkg/constants"
)

var (
	ErrNoActor = errors.New("actor not found")
)

// UseLogger returns the request-scoped logger. Outside a request it falls back to the standard logger.
func UseLogger(ctx context.Context) *logrus.Entry {
	if logger, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry); ok && logger != nil {
		return logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// WithActor stores the id of the authenticated caller, as asserted by the upstream identity provider.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, constants.ActorKey, strings.TrimSpace(actorID))
}

func UseActor(ctx context.Context) (string, error) {
	actor, ok := ctx.Value(constants.ActorKey).(string)
	if !ok || actor == "" {
		return "", ErrNoActor
	}
	return actor, nil
}
