package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/iota-uz/kanban/modules/kanban/domain/entities/list"
	"github.com/iota-uz/kanban/modules/kanban/domain/events"
	"github.com/iota-uz/kanban/modules/kanban/domain/position"
)

type ListOrderingService struct {
	lists   list.Repository
	tx      BoardTxRunner
	emitter Emitter
}

func NewListOrderingService(lists list.Repository, tx BoardTxRunner, emitter Emitter) *ListOrderingService {
	return &ListOrderingService{
		lists:   lists,
		tx:      tx,
		emitter: emitter,
	}
}

// GetByBoard returns the board's lists in display order. Reads do not take the board lock.
func (s *ListOrderingService) GetByBoard(ctx context.Context, scope BoardScope) ([]list.List, error) {
	if err := requireScope(scope); err != nil {
		return nil, err
	}
	lists, err := s.lists.GetByBoard(ctx, scope.BoardID())
	if err != nil {
		return nil, finish(ctx, "list", "read", err)
	}
	return lists, nil
}

// Append creates a list after the board's last list.
func (s *ListOrderingService) Append(ctx context.Context, scope BoardScope, dto list.CreateDTO) (list.List, error) {
	if err := requireScope(scope); err != nil {
		return list.List{}, err
	}
	if errs, ok := dto.Ok(); !ok {
		return list.List{}, finish(ctx, "list", "create", validationError(errs))
	}

	boardID := scope.BoardID()
	var ev *events.ListCreated
	created, err := inBoardTx(ctx, s.tx, boardID, func(txCtx context.Context) (list.List, error) {
		last, err := s.lists.LastPosition(txCtx, boardID, 0)
		if err != nil {
			return list.List{}, err
		}
		pos, err := position.Append(last)
		if err != nil {
			return list.List{}, err
		}
		created, err := s.lists.Create(txCtx, list.New(boardID, dto.Title, pos))
		if err != nil {
			return list.List{}, err
		}
		ev = events.NewListCreated(boardID, created.ID(), created.Title(), created.Position())
		if err := s.emitter.Stage(txCtx, ev); err != nil {
			return list.List{}, err
		}
		return created, nil
	})
	if err != nil {
		return list.List{}, finish(ctx, "list", "create", err)
	}
	recordOperation("list", "create", nil)
	s.emitter.Emit(ctx, ev)
	return created, nil
}

// Move places a list immediately after prev and/or before next.
func (s *ListOrderingService) Move(ctx context.Context, scope BoardScope, listID int64, dto list.MoveDTO) (list.List, error) {
	if err := requireScope(scope); err != nil {
		return list.List{}, err
	}
	if errs, ok := dto.Ok(); !ok {
		return list.List{}, finish(ctx, "list", "move", validationError(errs))
	}
	if err := position.CheckIdentity(position.KindList, listID, dto.PrevListID, dto.NextListID); err != nil {
		return list.List{}, finish(ctx, "list", "move", err)
	}

	boardID := scope.BoardID()
	var ev *events.ListMoved
	moved, err := inBoardTx(ctx, s.tx, boardID, func(txCtx context.Context) (list.List, error) {
		if _, err := s.lists.GetInBoard(txCtx, boardID, listID); err != nil {
			return list.List{}, err
		}

		req := position.Request{
			Kind:     position.KindList,
			MovingID: listID,
			PrevID:   dto.PrevListID,
			NextID:   dto.NextListID,
		}
		if dto.PrevListID != nil {
			anchor, err := s.anchor(txCtx, boardID, *dto.PrevListID)
			if err != nil {
				return list.List{}, err
			}
			last, err := s.lists.LastPosition(txCtx, boardID, listID)
			if err != nil {
				return list.List{}, err
			}
			anchor.Boundary = last != nil && *last == anchor.Position
			req.Prev = &anchor
		}
		if dto.NextListID != nil {
			anchor, err := s.anchor(txCtx, boardID, *dto.NextListID)
			if err != nil {
				return list.List{}, err
			}
			first, err := s.lists.FirstPosition(txCtx, boardID, listID)
			if err != nil {
				return list.List{}, err
			}
			anchor.Boundary = first != nil && *first == anchor.Position
			req.Next = &anchor
		}

		pos, err := position.Move(req)
		if err != nil {
			return list.List{}, err
		}
		updated, err := s.lists.UpdatePosition(txCtx, listID, pos)
		if err != nil {
			return list.List{}, err
		}
		ev = events.NewListMoved(boardID, listID, updated.Position(), dto.PrevListID, dto.NextListID)
		if err := s.emitter.Stage(txCtx, ev); err != nil {
			return list.List{}, err
		}
		return updated, nil
	})
	if err != nil {
		return list.List{}, finish(ctx, "list", "move", err)
	}
	recordOperation("list", "move", nil)
	s.emitter.Emit(ctx, ev)
	return moved, nil
}

func (s *ListOrderingService) anchor(ctx context.Context, boardID, id int64) (position.Anchor, error) {
	l, err := s.lists.GetInBoard(ctx, boardID, id)
	if errors.Is(err, list.ErrNotFound) {
		return position.Anchor{}, notFound(CodeAnchorNotFound, fmt.Sprintf("anchor list %d not found in board", id), err)
	}
	if err != nil {
		return position.Anchor{}, err
	}
	return position.Anchor{ID: l.ID(), Position: l.Position()}, nil
}
