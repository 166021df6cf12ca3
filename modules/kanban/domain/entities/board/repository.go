package board

import (
	"context"

	"github.com/iota-uz/kanban/pkg/serrors"
)

var ErrNotFound = serrors.NewError("KANBAN_BOARD_NOT_FOUND", "board not found", "")

type Repository interface {
	// GetByID returns soft-deleted boards too; callers decide how to treat them.
	GetByID(ctx context.Context, id int64) (Board, error)
	Create(ctx context.Context, b Board) (Board, error)
	IsMember(ctx context.Context, boardID int64, userID string) (bool, error)
}
