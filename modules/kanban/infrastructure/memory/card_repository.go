package memory

import (
	"context"

	"github.com/iota-uz/kanban/modules/kanban/domain/entities/card"
	"github.com/iota-uz/kanban/modules/kanban/domain/position"
)

type cardRepository struct {
	s *Store
}

func (r *cardRepository) GetInBoard(_ context.Context, boardID, id int64) (card.Card, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.cards[id]
	if !ok {
		return card.Card{}, card.ErrNotFound
	}
	if l, ok := r.s.lists[c.ListID()]; !ok || l.BoardID() != boardID {
		return card.Card{}, card.ErrNotFound
	}
	return c, nil
}

func (r *cardRepository) GetByList(_ context.Context, listID int64) ([]card.Card, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.listCards(listID, 0), nil
}

func (r *cardRepository) LastPosition(_ context.Context, listID, excludeID int64) (*float64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	cards := r.s.listCards(listID, excludeID)
	if len(cards) == 0 {
		return nil, nil
	}
	p := cards[len(cards)-1].Position()
	return &p, nil
}

func (r *cardRepository) FirstPosition(_ context.Context, listID, excludeID int64) (*float64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	cards := r.s.listCards(listID, excludeID)
	if len(cards) == 0 {
		return nil, nil
	}
	p := cards[0].Position()
	return &p, nil
}

func (r *cardRepository) Count(_ context.Context, listID, excludeID int64) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.listCards(listID, excludeID))), nil
}

func (r *cardRepository) CountBetween(_ context.Context, listID, excludeID int64, lo, hi float64) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, c := range r.s.listCards(listID, excludeID) {
		if c.Position() > lo && c.Position() < hi {
			n++
		}
	}
	return n, nil
}

func (r *cardRepository) taken(listID, excludeID int64, pos float64) bool {
	for _, c := range r.s.cards {
		if c.ListID() == listID && c.ID() != excludeID && c.Position() == pos {
			return true
		}
	}
	return false
}

func (r *cardRepository) Create(_ context.Context, c card.Card) (card.Card, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.taken(c.ListID(), 0, c.Position()) {
		return card.Card{}, position.ErrTaken
	}
	r.s.seq.card++
	now := r.s.now()
	created := card.Hydrate(r.s.seq.card, c.ListID(), c.Title(), c.Description(), c.Position(), now, now)
	r.s.cards[created.ID()] = created
	return created, nil
}

func (r *cardRepository) Move(_ context.Context, id, listID int64, pos float64) (card.Card, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.cards[id]
	if !ok {
		return card.Card{}, card.ErrNotFound
	}
	if r.taken(listID, id, pos) {
		return card.Card{}, position.ErrTaken
	}
	updated := card.Hydrate(c.ID(), listID, c.Title(), c.Description(), pos, c.CreatedAt(), r.s.now())
	r.s.cards[id] = updated
	return updated, nil
}

func (r *cardRepository) RenumberBoard(_ context.Context, boardID int64, gap float64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	var n int64
	for _, l := range r.s.boardLists(boardID, 0) {
		for i, c := range r.s.listCards(l.ID(), 0) {
			r.s.cards[c.ID()] = card.Hydrate(c.ID(), c.ListID(), c.Title(), c.Description(), gap*float64(i+1), c.CreatedAt(), now)
			n++
		}
	}
	return n, nil
}
