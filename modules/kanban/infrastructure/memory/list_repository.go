package memory

import (
	"context"

	"github.com/iota-uz/kanban/modules/kanban/domain/entities/list"
	"github.com/iota-uz/kanban/modules/kanban/domain/position"
)

type listRepository struct {
	s *Store
}

func (r *listRepository) GetInBoard(_ context.Context, boardID, id int64) (list.List, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	l, ok := r.s.lists[id]
	if !ok || l.BoardID() != boardID {
		return list.List{}, list.ErrNotFound
	}
	return l, nil
}

func (r *listRepository) GetByBoard(_ context.Context, boardID int64) ([]list.List, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.boardLists(boardID, 0), nil
}

func (r *listRepository) LastPosition(_ context.Context, boardID, excludeID int64) (*float64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	lists := r.s.boardLists(boardID, excludeID)
	if len(lists) == 0 {
		return nil, nil
	}
	p := lists[len(lists)-1].Position()
	return &p, nil
}

func (r *listRepository) FirstPosition(_ context.Context, boardID, excludeID int64) (*float64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	lists := r.s.boardLists(boardID, excludeID)
	if len(lists) == 0 {
		return nil, nil
	}
	p := lists[0].Position()
	return &p, nil
}

func (r *listRepository) taken(boardID, excludeID int64, pos float64) bool {
	for _, l := range r.s.lists {
		if l.BoardID() == boardID && l.ID() != excludeID && l.Position() == pos {
			return true
		}
	}
	return false
}

func (r *listRepository) Create(_ context.Context, l list.List) (list.List, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.taken(l.BoardID(), 0, l.Position()) {
		return list.List{}, position.ErrTaken
	}
	r.s.seq.list++
	now := r.s.now()
	created := list.Hydrate(r.s.seq.list, l.BoardID(), l.Title(), l.Position(), now, now)
	r.s.lists[created.ID()] = created
	return created, nil
}

func (r *listRepository) UpdatePosition(_ context.Context, id int64, pos float64) (list.List, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.lists[id]
	if !ok {
		return list.List{}, list.ErrNotFound
	}
	if r.taken(l.BoardID(), id, pos) {
		return list.List{}, position.ErrTaken
	}
	updated := list.Hydrate(l.ID(), l.BoardID(), l.Title(), pos, l.CreatedAt(), r.s.now())
	r.s.lists[id] = updated
	return updated, nil
}

func (r *listRepository) Renumber(_ context.Context, boardID int64, gap float64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	lists := r.s.boardLists(boardID, 0)
	for i, l := range lists {
		r.s.lists[l.ID()] = list.Hydrate(l.ID(), l.BoardID(), l.Title(), gap*float64(i+1), l.CreatedAt(), now)
	}
	return int64(len(lists)), nil
}
