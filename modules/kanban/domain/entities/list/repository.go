package list

import (
	"context"

	"github.com/iota-uz/kanban/pkg/serrors"
)

var ErrNotFound = serrors.NewError("KANBAN_LIST_NOT_FOUND", "list not found", "")

// Repository reads and writes lists. Position reads used for ordering decisions must run inside
// the board's ordering transaction. excludeID of 0 excludes nothing.
type Repository interface {
	// GetInBoard returns ErrNotFound when the list does not exist or belongs to another board.
	GetInBoard(ctx context.Context, boardID, id int64) (List, error)
	GetByBoard(ctx context.Context, boardID int64) ([]List, error)
	LastPosition(ctx context.Context, boardID, excludeID int64) (*float64, error)
	FirstPosition(ctx context.Context, boardID, excludeID int64) (*float64, error)
	Create(ctx context.Context, l List) (List, error)
	UpdatePosition(ctx context.Context, id int64, position float64) (List, error)
	// Renumber rewrites the board's list positions to gap, 2*gap, ... keeping their order.
	Renumber(ctx context.Context, boardID int64, gap float64) (int64, error)
}
