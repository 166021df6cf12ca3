package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("kanban-services")

// BoardTxRunner runs fn in one transaction that holds the board's exclusive ordering lock
// from its first statement until commit or rollback. A rollback happens whenever fn fails.
type BoardTxRunner interface {
	InBoardTx(ctx context.Context, boardID int64, fn func(ctx context.Context) error) error
}

func inBoardTx[T any](ctx context.Context, runner BoardTxRunner, boardID int64, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, span := tracer.Start(ctx, "kanban.board_tx", trace.WithAttributes(attribute.Int64("kanban.board_id", boardID)))
	defer span.End()

	var out T
	start := time.Now()
	err := runner.InBoardTx(ctx, boardID, func(txCtx context.Context) error {
		wait := time.Since(start)
		recordLockWait(wait)
		span.AddEvent("board lock acquired", trace.WithAttributes(attribute.Int64("kanban.lock_wait_ms", wait.Milliseconds())))
		var innerErr error
		out, innerErr = fn(txCtx)
		return innerErr
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}
