package persistence

import (
	"context"
	"errors"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/kanban/modules/kanban/domain/entities/list"
	"github.com/iota-uz/kanban/pkg/composables"
)

const (
	listColumns     = `id, board_id, title, position, created_at, updated_at`
	listGetSQL      = `SELECT ` + listColumns + ` FROM kanban_lists WHERE id = $1 AND board_id = $2`
	listByBoardSQL  = `SELECT ` + listColumns + ` FROM kanban_lists WHERE board_id = $1 ORDER BY position`
	listLastSQL     = `SELECT max(position) FROM kanban_lists WHERE board_id = $1 AND id <> $2`
	listFirstSQL    = `SELECT min(position) FROM kanban_lists WHERE board_id = $1 AND id <> $2`
	listInsertSQL   = `INSERT INTO kanban_lists (board_id, title, position) VALUES ($1, $2, $3) RETURNING ` + listColumns
	listPositionSQL = `UPDATE kanban_lists SET position = $2, updated_at = now() WHERE id = $1 RETURNING ` + listColumns
	listRenumberSQL = `UPDATE kanban_lists l
		SET position = r.rn * $2, updated_at = now()
		FROM (SELECT id, row_number() OVER (ORDER BY position) AS rn FROM kanban_lists WHERE board_id = $1) r
		WHERE l.id = r.id`
)

type ListRepository struct{}

func NewListRepository() list.Repository {
	return &ListRepository{}
}

func scanList(row pgx.Row) (list.List, error) {
	var (
		id, boardID          int64
		title                string
		pos                  float64
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &boardID, &title, &pos, &createdAt, &updatedAt); err != nil {
		return list.List{}, err
	}
	return list.Hydrate(id, boardID, title, pos, createdAt, updatedAt), nil
}

func (r *ListRepository) GetInBoard(ctx context.Context, boardID, id int64) (list.List, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return list.List{}, err
	}
	l, err := scanList(tx.QueryRow(ctx, listGetSQL, id, boardID))
	if errors.Is(err, pgx.ErrNoRows) {
		return list.List{}, list.ErrNotFound
	}
	if err != nil {
		return list.List{}, gerrors.Wrap(err, "failed to get list")
	}
	return l, nil
}

func (r *ListRepository) GetByBoard(ctx context.Context, boardID int64) ([]list.List, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, listByBoardSQL, boardID)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to query lists")
	}
	defer rows.Close()

	out := make([]list.List, 0)
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, gerrors.Wrap(err, "failed to scan list")
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *ListRepository) LastPosition(ctx context.Context, boardID, excludeID int64) (*float64, error) {
	return boundary(ctx, listLastSQL, boardID, excludeID)
}

func (r *ListRepository) FirstPosition(ctx context.Context, boardID, excludeID int64) (*float64, error) {
	return boundary(ctx, listFirstSQL, boardID, excludeID)
}

func (r *ListRepository) Create(ctx context.Context, l list.List) (list.List, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return list.List{}, err
	}
	created, err := scanList(tx.QueryRow(ctx, listInsertSQL, l.BoardID(), l.Title(), l.Position()))
	if err != nil {
		return list.List{}, gerrors.Wrap(err, "failed to create list")
	}
	return created, nil
}

func (r *ListRepository) UpdatePosition(ctx context.Context, id int64, pos float64) (list.List, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return list.List{}, err
	}
	updated, err := scanList(tx.QueryRow(ctx, listPositionSQL, id, pos))
	if errors.Is(err, pgx.ErrNoRows) {
		return list.List{}, list.ErrNotFound
	}
	if err != nil {
		return list.List{}, gerrors.Wrap(err, "failed to update list position")
	}
	return updated, nil
}

func (r *ListRepository) Renumber(ctx context.Context, boardID int64, gap float64) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, listRenumberSQL, boardID, gap)
	if err != nil {
		return 0, gerrors.Wrap(err, "failed to renumber lists")
	}
	return tag.RowsAffected(), nil
}

// boundary runs a min/max query; NULL means the container is empty.
func boundary(ctx context.Context, query string, containerID, excludeID int64) (*float64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var pos *float64
	if err := tx.QueryRow(ctx, query, containerID, excludeID).Scan(&pos); err != nil {
		return nil, gerrors.Wrap(err, "failed to read boundary position")
	}
	return pos, nil
}
