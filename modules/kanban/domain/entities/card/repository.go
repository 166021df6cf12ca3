package card

import (
	"context"

	"github.com/iota-uz/kanban/pkg/serrors"
)

var ErrNotFound = serrors.NewError("KANBAN_CARD_NOT_FOUND", "card not found", "")

// Repository reads and writes cards. Every ordering query takes excludeID so the moving card
// never counts as its own neighbour; 0 excludes nothing.
type Repository interface {
	// GetInBoard returns ErrNotFound when the card does not exist or its list belongs to another board.
	GetInBoard(ctx context.Context, boardID, id int64) (Card, error)
	GetByList(ctx context.Context, listID int64) ([]Card, error)
	LastPosition(ctx context.Context, listID, excludeID int64) (*float64, error)
	FirstPosition(ctx context.Context, listID, excludeID int64) (*float64, error)
	Count(ctx context.Context, listID, excludeID int64) (int64, error)
	// CountBetween counts cards with lo < position < hi.
	CountBetween(ctx context.Context, listID, excludeID int64, lo, hi float64) (int64, error)
	Create(ctx context.Context, c Card) (Card, error)
	// Move sets list and position in a single write.
	Move(ctx context.Context, id, listID int64, position float64) (Card, error)
	// RenumberBoard rewrites positions of every list's cards in the board to gap, 2*gap, ...
	RenumberBoard(ctx context.Context, boardID int64, gap float64) (int64, error)
}
