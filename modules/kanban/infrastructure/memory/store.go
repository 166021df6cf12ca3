// Package memory is a process-local store for the ordering engine. It serialises each board with
// its own lock and undoes a failed transaction by restoring the board's snapshot, which gives the
// services the same lock and rollback guarantees as the Postgres store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iota-uz/kanban/modules/kanban/domain/entities/board"
	"github.com/iota-uz/kanban/modules/kanban/domain/entities/card"
	"github.com/iota-uz/kanban/modules/kanban/domain/entities/list"
)

type Store struct {
	mu      sync.RWMutex
	boards  map[int64]board.Board
	members map[int64]map[string]struct{}
	lists   map[int64]list.List
	cards   map[int64]card.Card
	seq     struct{ board, list, card int64 }

	locksMu sync.Mutex
	locks   map[int64]chan struct{}

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		boards:  map[int64]board.Board{},
		members: map[int64]map[string]struct{}{},
		lists:   map[int64]list.List{},
		cards:   map[int64]card.Card{},
		locks:   map[int64]chan struct{}{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Boards() board.Repository { return &boardRepository{s: s} }
func (s *Store) Lists() list.Repository   { return &listRepository{s: s} }
func (s *Store) Cards() card.Repository   { return &cardRepository{s: s} }

func (s *Store) boardLock(boardID int64) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[boardID]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[boardID] = l
	}
	return l
}

type heldBoardKey struct{ s *Store }

func (s *Store) holds(ctx context.Context, boardID int64) bool {
	held, _ := ctx.Value(heldBoardKey{s}).(map[int64]struct{})
	_, ok := held[boardID]
	return ok
}

func (s *Store) withHeld(ctx context.Context, boardID int64) context.Context {
	prev, _ := ctx.Value(heldBoardKey{s}).(map[int64]struct{})
	held := make(map[int64]struct{}, len(prev)+1)
	for id := range prev {
		held[id] = struct{}{}
	}
	held[boardID] = struct{}{}
	return context.WithValue(ctx, heldBoardKey{s}, held)
}

// InBoardTx holds the board lock while fn runs. Waiting is bounded only by ctx. A nested call for
// a board the context already holds joins the outer transaction, whose snapshot covers rollback.
func (s *Store) InBoardTx(ctx context.Context, boardID int64, fn func(ctx context.Context) error) error {
	if s.holds(ctx, boardID) {
		return fn(ctx)
	}

	lock := s.boardLock(boardID)
	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("acquire board %d lock: %w", boardID, ctx.Err())
	}
	defer func() { <-lock }()

	snap := s.snapshot(boardID)
	if err := fn(s.withHeld(ctx, boardID)); err != nil {
		s.restore(boardID, snap)
		return err
	}
	return nil
}

type boardSnapshot struct {
	lists []list.List
	cards []card.Card
}

func (s *Store) snapshot(boardID int64) boardSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snap boardSnapshot
	for _, l := range s.lists {
		if l.BoardID() == boardID {
			snap.lists = append(snap.lists, l)
		}
	}
	for _, c := range s.cards {
		if l, ok := s.lists[c.ListID()]; ok && l.BoardID() == boardID {
			snap.cards = append(snap.cards, c)
		}
	}
	return snap
}

func (s *Store) restore(boardID int64, snap boardSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.cards {
		if l, ok := s.lists[c.ListID()]; ok && l.BoardID() == boardID {
			delete(s.cards, id)
		}
	}
	for id, l := range s.lists {
		if l.BoardID() == boardID {
			delete(s.lists, id)
		}
	}
	for _, l := range snap.lists {
		s.lists[l.ID()] = l
	}
	for _, c := range snap.cards {
		s.cards[c.ID()] = c
	}
}

// AddMember grants userID access to the board under the membership authorizer.
func (s *Store) AddMember(boardID int64, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.members[boardID] == nil {
		s.members[boardID] = map[string]struct{}{}
	}
	s.members[boardID][userID] = struct{}{}
}

// SoftDelete marks the board deleted; its lists and cards stay in place.
func (s *Store) SoftDelete(boardID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[boardID]
	if !ok {
		return board.ErrNotFound
	}
	now := s.now()
	s.boards[boardID] = board.Hydrate(b.ID(), b.Name(), b.OwnerID(), b.CreatedAt(), now, &now)
	return nil
}

func (s *Store) boardLists(boardID, excludeID int64) []list.List {
	var out []list.List
	for _, l := range s.lists {
		if l.BoardID() == boardID && l.ID() != excludeID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position() < out[j].Position() })
	return out
}

func (s *Store) listCards(listID, excludeID int64) []card.Card {
	var out []card.Card
	for _, c := range s.cards {
		if c.ListID() == listID && c.ID() != excludeID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position() < out[j].Position() })
	return out
}
