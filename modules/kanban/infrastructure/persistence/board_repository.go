package persistence

import (
	"context"
	"errors"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/kanban/modules/kanban/domain/entities/board"
	"github.com/iota-uz/kanban/pkg/composables"
)

const (
	boardSelectSQL = `SELECT id, name, owner_id, created_at, updated_at, deleted_at FROM kanban_boards WHERE id = $1`
	boardInsertSQL = `INSERT INTO kanban_boards (name, owner_id) VALUES ($1, $2)
		RETURNING id, name, owner_id, created_at, updated_at, deleted_at`
	boardMemberSQL = `SELECT EXISTS (SELECT 1 FROM kanban_board_members WHERE board_id = $1 AND user_id = $2)`
)

type BoardRepository struct{}

func NewBoardRepository() board.Repository {
	return &BoardRepository{}
}

func scanBoard(row pgx.Row) (board.Board, error) {
	var (
		id                   int64
		name, ownerID        string
		createdAt, updatedAt time.Time
		deletedAt            *time.Time
	)
	if err := row.Scan(&id, &name, &ownerID, &createdAt, &updatedAt, &deletedAt); err != nil {
		return board.Board{}, err
	}
	return board.Hydrate(id, name, ownerID, createdAt, updatedAt, deletedAt), nil
}

func (r *BoardRepository) GetByID(ctx context.Context, id int64) (board.Board, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return board.Board{}, err
	}
	b, err := scanBoard(tx.QueryRow(ctx, boardSelectSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return board.Board{}, board.ErrNotFound
	}
	if err != nil {
		return board.Board{}, gerrors.Wrap(err, "failed to get board")
	}
	return b, nil
}

func (r *BoardRepository) Create(ctx context.Context, b board.Board) (board.Board, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return board.Board{}, err
	}
	created, err := scanBoard(tx.QueryRow(ctx, boardInsertSQL, b.Name(), b.OwnerID()))
	if err != nil {
		return board.Board{}, gerrors.Wrap(err, "failed to create board")
	}
	return created, nil
}

func (r *BoardRepository) IsMember(ctx context.Context, boardID int64, userID string) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := tx.QueryRow(ctx, boardMemberSQL, boardID, userID).Scan(&ok); err != nil {
		return false, gerrors.Wrap(err, "failed to check board membership")
	}
	return ok, nil
}
