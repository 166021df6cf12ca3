package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/iota-uz/kanban/modules/kanban/domain/entities/card"
	"github.com/iota-uz/kanban/modules/kanban/domain/entities/list"
	"github.com/iota-uz/kanban/modules/kanban/domain/events"
	"github.com/iota-uz/kanban/modules/kanban/domain/position"
)

type CardOrderingService struct {
	lists   list.Repository
	cards   card.Repository
	tx      BoardTxRunner
	emitter Emitter
}

func NewCardOrderingService(lists list.Repository, cards card.Repository, tx BoardTxRunner, emitter Emitter) *CardOrderingService {
	return &CardOrderingService{
		lists:   lists,
		cards:   cards,
		tx:      tx,
		emitter: emitter,
	}
}

func (s *CardOrderingService) GetByID(ctx context.Context, scope BoardScope, cardID int64) (card.Card, error) {
	if err := requireScope(scope); err != nil {
		return card.Card{}, err
	}
	c, err := s.cards.GetInBoard(ctx, scope.BoardID(), cardID)
	if err != nil {
		return card.Card{}, finish(ctx, "card", "read", err)
	}
	return c, nil
}

// GetByList returns the list's cards in display order.
func (s *CardOrderingService) GetByList(ctx context.Context, scope BoardScope, listID int64) ([]card.Card, error) {
	if err := requireScope(scope); err != nil {
		return nil, err
	}
	if _, err := s.lists.GetInBoard(ctx, scope.BoardID(), listID); err != nil {
		return nil, finish(ctx, "card", "read", err)
	}
	cards, err := s.cards.GetByList(ctx, listID)
	if err != nil {
		return nil, finish(ctx, "card", "read", err)
	}
	return cards, nil
}

// Append creates a card at the bottom of listID.
func (s *CardOrderingService) Append(ctx context.Context, scope BoardScope, listID int64, dto card.CreateDTO) (card.Card, error) {
	if err := requireScope(scope); err != nil {
		return card.Card{}, err
	}
	if errs, ok := dto.Ok(); !ok {
		return card.Card{}, finish(ctx, "card", "create", validationError(errs))
	}

	boardID := scope.BoardID()
	var ev *events.CardCreated
	created, err := inBoardTx(ctx, s.tx, boardID, func(txCtx context.Context) (card.Card, error) {
		if _, err := s.lists.GetInBoard(txCtx, boardID, listID); err != nil {
			return card.Card{}, err
		}
		last, err := s.cards.LastPosition(txCtx, listID, 0)
		if err != nil {
			return card.Card{}, err
		}
		pos, err := position.Append(last)
		if err != nil {
			return card.Card{}, err
		}
		created, err := s.cards.Create(txCtx, card.New(listID, dto.Title, dto.Description, pos))
		if err != nil {
			return card.Card{}, err
		}
		ev = events.NewCardCreated(boardID, listID, created.ID(), created.Title(), created.Position())
		if err := s.emitter.Stage(txCtx, ev); err != nil {
			return card.Card{}, err
		}
		return created, nil
	})
	if err != nil {
		return card.Card{}, finish(ctx, "card", "create", err)
	}
	recordOperation("card", "create", nil)
	s.emitter.Emit(ctx, ev)
	return created, nil
}

// Move places a card between adjacent anchors, after the last card, before the first card or
// into an empty list. TargetListID defaults to the card's current list and must be on the same board.
func (s *CardOrderingService) Move(ctx context.Context, scope BoardScope, cardID int64, dto card.MoveDTO) (card.Card, error) {
	if err := requireScope(scope); err != nil {
		return card.Card{}, err
	}
	if errs, ok := dto.Ok(); !ok {
		return card.Card{}, finish(ctx, "card", "move", validationError(errs))
	}

	boardID := scope.BoardID()
	var ev *events.CardMoved
	moved, err := inBoardTx(ctx, s.tx, boardID, func(txCtx context.Context) (card.Card, error) {
		current, err := s.cards.GetInBoard(txCtx, boardID, cardID)
		if err != nil {
			return card.Card{}, err
		}
		targetListID := current.ListID()
		if dto.TargetListID != nil && *dto.TargetListID != targetListID {
			if _, err := s.lists.GetInBoard(txCtx, boardID, *dto.TargetListID); err != nil {
				return card.Card{}, err
			}
			targetListID = *dto.TargetListID
		}
		if err := position.CheckIdentity(position.KindCard, cardID, dto.PrevCardID, dto.NextCardID); err != nil {
			return card.Card{}, err
		}

		req, err := s.request(txCtx, boardID, cardID, targetListID, dto)
		if err != nil {
			return card.Card{}, err
		}
		pos, err := position.Move(req)
		if err != nil {
			return card.Card{}, err
		}
		updated, err := s.cards.Move(txCtx, cardID, targetListID, pos)
		if err != nil {
			return card.Card{}, err
		}
		ev = events.NewCardMoved(boardID, cardID, current.ListID(), targetListID, updated.Position(), dto.PrevCardID, dto.NextCardID)
		if err := s.emitter.Stage(txCtx, ev); err != nil {
			return card.Card{}, err
		}
		return updated, nil
	})
	if err != nil {
		return card.Card{}, finish(ctx, "card", "move", err)
	}
	recordOperation("card", "move", nil)
	s.emitter.Emit(ctx, ev)
	return moved, nil
}

// request gathers the destination facts the allocator needs, excluding the moving card.
func (s *CardOrderingService) request(ctx context.Context, boardID, cardID, listID int64, dto card.MoveDTO) (position.Request, error) {
	req := position.Request{
		Kind:     position.KindCard,
		MovingID: cardID,
		PrevID:   dto.PrevCardID,
		NextID:   dto.NextCardID,
	}

	if dto.PrevCardID == nil && dto.NextCardID == nil {
		n, err := s.cards.Count(ctx, listID, cardID)
		if err != nil {
			return req, err
		}
		req.Empty = n == 0
		return req, nil
	}

	if dto.PrevCardID != nil {
		anchor, err := s.anchor(ctx, boardID, listID, *dto.PrevCardID)
		if err != nil {
			return req, err
		}
		last, err := s.cards.LastPosition(ctx, listID, cardID)
		if err != nil {
			return req, err
		}
		anchor.Boundary = last != nil && *last == anchor.Position
		req.Prev = &anchor
	}
	if dto.NextCardID != nil {
		anchor, err := s.anchor(ctx, boardID, listID, *dto.NextCardID)
		if err != nil {
			return req, err
		}
		first, err := s.cards.FirstPosition(ctx, listID, cardID)
		if err != nil {
			return req, err
		}
		anchor.Boundary = first != nil && *first == anchor.Position
		req.Next = &anchor
	}
	if req.Prev != nil && req.Next != nil && req.Prev.Position < req.Next.Position {
		n, err := s.cards.CountBetween(ctx, listID, cardID, req.Prev.Position, req.Next.Position)
		if err != nil {
			return req, err
		}
		req.Between = n > 0
	}
	return req, nil
}

// anchor resolves a neighbour card; it must sit in the destination list.
func (s *CardOrderingService) anchor(ctx context.Context, boardID, listID, id int64) (position.Anchor, error) {
	c, err := s.cards.GetInBoard(ctx, boardID, id)
	if errors.Is(err, card.ErrNotFound) || (err == nil && c.ListID() != listID) {
		return position.Anchor{}, notFound(CodeAnchorNotFound, fmt.Sprintf("anchor card %d not found in target list", id), err)
	}
	if err != nil {
		return position.Anchor{}, err
	}
	return position.Anchor{ID: c.ID(), Position: c.Position()}, nil
}
