package services

import (
	"context"

	"github.com/iota-uz/kanban/modules/kanban/domain/entities/card"
	"github.com/iota-uz/kanban/modules/kanban/domain/entities/list"
	"github.com/iota-uz/kanban/modules/kanban/domain/events"
	"github.com/iota-uz/kanban/modules/kanban/domain/position"
)

type RebalanceResult struct {
	Lists int64
	Cards int64
}

// RebalanceService rewrites every position on a board to GAP, 2*GAP, ... in display order.
// It is the operator's remedy for KANBAN_POSITION_EXHAUSTED and never runs on its own.
type RebalanceService struct {
	lists   list.Repository
	cards   card.Repository
	tx      BoardTxRunner
	emitter Emitter
}

func NewRebalanceService(lists list.Repository, cards card.Repository, tx BoardTxRunner, emitter Emitter) *RebalanceService {
	return &RebalanceService{
		lists:   lists,
		cards:   cards,
		tx:      tx,
		emitter: emitter,
	}
}

func (s *RebalanceService) Rebalance(ctx context.Context, scope BoardScope) (RebalanceResult, error) {
	if err := requireScope(scope); err != nil {
		return RebalanceResult{}, err
	}

	boardID := scope.BoardID()
	var ev *events.BoardRebalanced
	res, err := inBoardTx(ctx, s.tx, boardID, func(txCtx context.Context) (RebalanceResult, error) {
		lists, err := s.lists.Renumber(txCtx, boardID, position.GAP)
		if err != nil {
			return RebalanceResult{}, err
		}
		cards, err := s.cards.RenumberBoard(txCtx, boardID, position.GAP)
		if err != nil {
			return RebalanceResult{}, err
		}
		ev = events.NewBoardRebalanced(boardID, lists, cards)
		if err := s.emitter.Stage(txCtx, ev); err != nil {
			return RebalanceResult{}, err
		}
		return RebalanceResult{Lists: lists, Cards: cards}, nil
	})
	if err != nil {
		return RebalanceResult{}, finish(ctx, "board", "rebalance", err)
	}
	recordOperation("board", "rebalance", nil)
	s.emitter.Emit(ctx, ev)
	return res, nil
}
