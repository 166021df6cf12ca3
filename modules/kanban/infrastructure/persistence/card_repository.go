package persistence

import (
	"context"
	"errors"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/kanban/modules/kanban/domain/entities/card"
	"github.com/iota-uz/kanban/pkg/composables"
)

const (
	cardColumns     = `c.id, c.list_id, c.title, c.description, c.position, c.created_at, c.updated_at`
	cardGetSQL      = `SELECT ` + cardColumns + ` FROM kanban_cards c JOIN kanban_lists l ON l.id = c.list_id WHERE c.id = $1 AND l.board_id = $2`
	cardByListSQL   = `SELECT ` + cardColumns + ` FROM kanban_cards c WHERE c.list_id = $1 ORDER BY c.position`
	cardLastSQL     = `SELECT max(position) FROM kanban_cards WHERE list_id = $1 AND id <> $2`
	cardFirstSQL    = `SELECT min(position) FROM kanban_cards WHERE list_id = $1 AND id <> $2`
	cardCountSQL    = `SELECT count(*) FROM kanban_cards WHERE list_id = $1 AND id <> $2`
	cardBetweenSQL  = `SELECT count(*) FROM kanban_cards WHERE list_id = $1 AND id <> $2 AND position > $3 AND position < $4`
	cardInsertSQL   = `INSERT INTO kanban_cards AS c (list_id, title, description, position) VALUES ($1, $2, $3, $4) RETURNING ` + cardColumns
	cardMoveSQL     = `UPDATE kanban_cards AS c SET list_id = $2, position = $3, updated_at = now() WHERE c.id = $1 RETURNING ` + cardColumns
	cardRenumberSQL = `UPDATE kanban_cards c
		SET position = r.rn * $2, updated_at = now()
		FROM (
			SELECT k.id, row_number() OVER (PARTITION BY k.list_id ORDER BY k.position) AS rn
			FROM kanban_cards k
			JOIN kanban_lists l ON l.id = k.list_id
			WHERE l.board_id = $1
		) r
		WHERE c.id = r.id`
)

type CardRepository struct{}

func NewCardRepository() card.Repository {
	return &CardRepository{}
}

func scanCard(row pgx.Row) (card.Card, error) {
	var (
		id, listID           int64
		title                string
		description          *string
		pos                  float64
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &listID, &title, &description, &pos, &createdAt, &updatedAt); err != nil {
		return card.Card{}, err
	}
	return card.Hydrate(id, listID, title, description, pos, createdAt, updatedAt), nil
}

func (r *CardRepository) GetInBoard(ctx context.Context, boardID, id int64) (card.Card, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return card.Card{}, err
	}
	c, err := scanCard(tx.QueryRow(ctx, cardGetSQL, id, boardID))
	if errors.Is(err, pgx.ErrNoRows) {
		return card.Card{}, card.ErrNotFound
	}
	if err != nil {
		return card.Card{}, gerrors.Wrap(err, "failed to get card")
	}
	return c, nil
}

func (r *CardRepository) GetByList(ctx context.Context, listID int64) ([]card.Card, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, cardByListSQL, listID)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to query cards")
	}
	defer rows.Close()

	out := make([]card.Card, 0)
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, gerrors.Wrap(err, "failed to scan card")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CardRepository) LastPosition(ctx context.Context, listID, excludeID int64) (*float64, error) {
	return boundary(ctx, cardLastSQL, listID, excludeID)
}

func (r *CardRepository) FirstPosition(ctx context.Context, listID, excludeID int64) (*float64, error) {
	return boundary(ctx, cardFirstSQL, listID, excludeID)
}

func (r *CardRepository) Count(ctx context.Context, listID, excludeID int64) (int64, error) {
	return r.count(ctx, cardCountSQL, listID, excludeID)
}

func (r *CardRepository) CountBetween(ctx context.Context, listID, excludeID int64, lo, hi float64) (int64, error) {
	return r.count(ctx, cardBetweenSQL, listID, excludeID, lo, hi)
}

func (r *CardRepository) count(ctx context.Context, query string, args ...any) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := tx.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, gerrors.Wrap(err, "failed to count cards")
	}
	return n, nil
}

func (r *CardRepository) Create(ctx context.Context, c card.Card) (card.Card, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return card.Card{}, err
	}
	created, err := scanCard(tx.QueryRow(ctx, cardInsertSQL, c.ListID(), c.Title(), c.Description(), c.Position()))
	if err != nil {
		return card.Card{}, gerrors.Wrap(err, "failed to create card")
	}
	return created, nil
}

func (r *CardRepository) Move(ctx context.Context, id, listID int64, pos float64) (card.Card, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return card.Card{}, err
	}
	moved, err := scanCard(tx.QueryRow(ctx, cardMoveSQL, id, listID, pos))
	if errors.Is(err, pgx.ErrNoRows) {
		return card.Card{}, card.ErrNotFound
	}
	if err != nil {
		return card.Card{}, gerrors.Wrap(err, "failed to move card")
	}
	return moved, nil
}

func (r *CardRepository) RenumberBoard(ctx context.Context, boardID int64, gap float64) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, cardRenumberSQL, boardID, gap)
	if err != nil {
		return 0, gerrors.Wrap(err, "failed to renumber cards")
	}
	return tag.RowsAffected(), nil
}
