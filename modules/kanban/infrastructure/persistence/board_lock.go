package persistence

import (
	"context"
	"fmt"

	gerrors "github.com/go-faster/errors"

	"github.com/iota-uz/kanban/pkg/composables"
)

const boardLockSQL = `SELECT pg_advisory_xact_lock(hashtext($1))`

// BoardLockKey is the advisory lock key of a board. Every ordering transaction on the board
// takes it as its first statement.
func BoardLockKey(boardID int64) string {
	return fmt.Sprintf("kanban:board:%d", boardID)
}

// BoardTxRunner opens (or joins) a transaction from the context pool and takes the board's
// transaction-scoped advisory lock before running fn. Waiting is bounded by ctx only.
type BoardTxRunner struct{}

func NewBoardTxRunner() *BoardTxRunner {
	return &BoardTxRunner{}
}

func (r *BoardTxRunner) InBoardTx(ctx context.Context, boardID int64, fn func(ctx context.Context) error) error {
	return composables.InTx(ctx, func(txCtx context.Context) error {
		tx, err := composables.UseCurrentTx(txCtx)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(txCtx, boardLockSQL, BoardLockKey(boardID)); err != nil {
			return gerrors.Wrapf(err, "lock board %d", boardID)
		}
		return fn(txCtx)
	})
}
