package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/iota-uz/kanban/modules/kanban/domain/entities/board"
)

// BoardScope proves that an actor was authorized for a board. Only ScopeService.Authorize
// produces a non-zero value; the ordering services refuse the zero value.
type BoardScope struct {
	boardID int64
	actorID string
}

func (s BoardScope) BoardID() int64  { return s.boardID }
func (s BoardScope) ActorID() string { return s.actorID }
func (s BoardScope) valid() bool     { return s.boardID > 0 }

var errUnscoped = errors.New("operation requires an authorized board scope")

func requireScope(scope BoardScope) error {
	if !scope.valid() {
		return Internal(errUnscoped)
	}
	return nil
}

// BoardAuthorizer decides whether an actor may reorder a board's content.
type BoardAuthorizer interface {
	CanAccess(ctx context.Context, b board.Board, actorID string) (bool, error)
}

type BoardAuthorizerFunc func(ctx context.Context, b board.Board, actorID string) (bool, error)

func (f BoardAuthorizerFunc) CanAccess(ctx context.Context, b board.Board, actorID string) (bool, error) {
	return f(ctx, b, actorID)
}

// MembershipAuthorizer admits the board owner and members.
type MembershipAuthorizer struct {
	boards board.Repository
}

func NewMembershipAuthorizer(boards board.Repository) *MembershipAuthorizer {
	return &MembershipAuthorizer{boards: boards}
}

func (a *MembershipAuthorizer) CanAccess(ctx context.Context, b board.Board, actorID string) (bool, error) {
	if b.OwnerID() == actorID {
		return true, nil
	}
	return a.boards.IsMember(ctx, b.ID(), actorID)
}

type ScopeService struct {
	boards     board.Repository
	authorizer BoardAuthorizer
}

func NewScopeService(boards board.Repository, authorizer BoardAuthorizer) *ScopeService {
	return &ScopeService{boards: boards, authorizer: authorizer}
}

// Authorize checks that the board exists, is not soft-deleted and that the actor passes the
// authorizer, then mints the scope every ordering operation requires.
func (s *ScopeService) Authorize(ctx context.Context, boardID int64, actorID string) (BoardScope, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return BoardScope{}, newServiceError(KindUnauthenticated, http.StatusUnauthorized, CodeUnauthenticated, "actor is required", nil)
	}
	if boardID <= 0 {
		return BoardScope{}, notFound(CodeBoardNotFound, board.ErrNotFound.Message, nil)
	}

	b, err := s.boards.GetByID(ctx, boardID)
	if err != nil {
		return BoardScope{}, toServiceError(err)
	}
	if b.IsDeleted() {
		return BoardScope{}, notFound(CodeBoardNotFound, board.ErrNotFound.Message, nil)
	}

	ok, err := s.authorizer.CanAccess(ctx, b, actorID)
	if err != nil {
		return BoardScope{}, Internal(err)
	}
	if !ok {
		return BoardScope{}, newServiceError(KindForbidden, http.StatusForbidden, CodeForbidden, "access to board denied", nil)
	}
	return BoardScope{boardID: b.ID(), actorID: actorID}, nil
}
