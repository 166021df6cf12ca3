package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/iota-uz/kanban/modules/kanban/domain/entities/board"
)

type BoardService struct {
	boards board.Repository
}

func NewBoardService(boards board.Repository) *BoardService {
	return &BoardService{boards: boards}
}

// Create stores a new board owned by actorID.
func (s *BoardService) Create(ctx context.Context, actorID string, dto board.CreateDTO) (board.Board, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return board.Board{}, newServiceError(KindUnauthenticated, http.StatusUnauthorized, CodeUnauthenticated, "actor is required", nil)
	}
	if errs, ok := dto.Ok(); !ok {
		return board.Board{}, finish(ctx, "board", "create", validationError(errs))
	}
	created, err := s.boards.Create(ctx, board.New(dto.Name, actorID))
	if err != nil {
		return board.Board{}, finish(ctx, "board", "create", err)
	}
	recordOperation("board", "create", nil)
	return created, nil
}

func (s *BoardService) GetByID(ctx context.Context, scope BoardScope) (board.Board, error) {
	if err := requireScope(scope); err != nil {
		return board.Board{}, err
	}
	b, err := s.boards.GetByID(ctx, scope.BoardID())
	if err != nil {
		return board.Board{}, finish(ctx, "board", "read", err)
	}
	return b, nil
}
