package outbox

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

// Message is one row of a kanban outbox table. BoardID scopes the event for
// consumers that fan out per board.
type Message struct {
	BoardID int64
	Topic   string
	EventID uuid.UUID
	Payload json.RawMessage
}

// Meta describes a claimed row handed to a Dispatcher.
type Meta struct {
	Table    pgx.Identifier
	BoardID  int64
	Topic    string
	EventID  uuid.UUID
	Sequence int64
	Attempts int
}

type DispatchedMessage struct {
	Meta    Meta
	Payload json.RawMessage
}

type Dispatcher interface {
	Dispatch(ctx context.Context, msg DispatchedMessage) error
}

// DispatcherFunc adapts a plain function to Dispatcher.
type DispatcherFunc func(ctx context.Context, msg DispatchedMessage) error

func (f DispatcherFunc) Dispatch(ctx context.Context, msg DispatchedMessage) error {
	return f(ctx, msg)
}

func TableLabel(table pgx.Identifier) string {
	return strings.Join(table, ".")
}

func logrusNop() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}
