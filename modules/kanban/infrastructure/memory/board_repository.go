package memory

import (
	"context"

	"github.com/iota-uz/kanban/modules/kanban/domain/entities/board"
)

type boardRepository struct {
	s *Store
}

func (r *boardRepository) GetByID(_ context.Context, id int64) (board.Board, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.boards[id]
	if !ok {
		return board.Board{}, board.ErrNotFound
	}
	return b, nil
}

func (r *boardRepository) Create(_ context.Context, b board.Board) (board.Board, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.seq.board++
	now := r.s.now()
	created := board.Hydrate(r.s.seq.board, b.Name(), b.OwnerID(), now, now, nil)
	r.s.boards[created.ID()] = created
	return created, nil
}

func (r *boardRepository) IsMember(_ context.Context, boardID int64, userID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.members[boardID][userID]
	return ok, nil
}
