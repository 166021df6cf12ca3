package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/iota-uz/kanban/modules/kanban/domain/entities/board"
	"github.com/iota-uz/kanban/modules/kanban/domain/entities/card"
	"github.com/iota-uz/kanban/modules/kanban/domain/entities/list"
	"github.com/iota-uz/kanban/modules/kanban/domain/position"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidRequest
	KindConflict
	KindForbidden
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidRequest:
		return "invalid_request"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "internal"
	}
}

const (
	CodeBoardNotFound      = "KANBAN_BOARD_NOT_FOUND"
	CodeListNotFound       = "KANBAN_LIST_NOT_FOUND"
	CodeCardNotFound       = "KANBAN_CARD_NOT_FOUND"
	CodeAnchorNotFound     = "KANBAN_ANCHOR_NOT_FOUND"
	CodeInvalidAnchors     = "KANBAN_INVALID_ANCHORS"
	CodeInvalidRequest     = "KANBAN_INVALID_REQUEST"
	CodePositionConflict   = "KANBAN_POSITION_CONFLICT"
	CodeLockTimeout        = "KANBAN_LOCK_TIMEOUT"
	CodePositionExhausted  = "KANBAN_POSITION_EXHAUSTED"
	CodeForbidden          = "KANBAN_FORBIDDEN"
	CodeUnauthenticated    = "KANBAN_UNAUTHENTICATED"
	CodeInternal           = "KANBAN_INTERNAL"
	internalErrorMessage   = "internal error"
	positionConflictAdvice = "position conflict, please retry"
)

type ServiceError struct {
	Kind      Kind
	Status    int
	Code      string
	Message   string
	Retryable bool
	Cause     error
}

func (e *ServiceError) Error() string {
	if e.Cause == nil || e.Cause.Error() == e.Message {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ServiceError) Unwrap() error { return e.Cause }

func newServiceError(kind Kind, status int, code, message string, cause error) *ServiceError {
	return &ServiceError{Kind: kind, Status: status, Code: code, Message: message, Cause: cause}
}

func notFound(code, message string, cause error) *ServiceError {
	return newServiceError(KindNotFound, http.StatusNotFound, code, message, cause)
}

func invalidAnchors(cause error) *ServiceError {
	return newServiceError(KindInvalidRequest, http.StatusBadRequest, CodeInvalidAnchors, cause.Error(), cause)
}

// InvalidRequest builds the error reported for malformed input that never reached the engine.
func InvalidRequest(message string, cause error) *ServiceError {
	return newServiceError(KindInvalidRequest, http.StatusBadRequest, CodeInvalidRequest, message, cause)
}

func positionConflict(cause error) *ServiceError {
	e := newServiceError(KindConflict, http.StatusConflict, CodePositionConflict, positionConflictAdvice, cause)
	e.Retryable = true
	return e
}

func lockTimeout(cause error) *ServiceError {
	e := newServiceError(KindConflict, http.StatusServiceUnavailable, CodeLockTimeout, "board is busy, please retry", cause)
	e.Retryable = true
	return e
}

// Internal hides cause from clients; it is kept for logging only.
func Internal(cause error) *ServiceError {
	return newServiceError(KindInternal, http.StatusInternalServerError, CodeInternal, internalErrorMessage, cause)
}

func AsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

// IsRetryable reports whether err is a conflict the caller may retry once.
func IsRetryable(err error) bool {
	svcErr, ok := AsServiceError(err)
	return ok && svcErr.Kind == KindConflict && svcErr.Retryable
}

// toServiceError classifies err into the engine's error kinds. ServiceErrors pass through.
func toServiceError(err error) error {
	if err == nil {
		return nil
	}
	if svcErr, ok := AsServiceError(err); ok {
		return svcErr
	}

	switch {
	case errors.Is(err, board.ErrNotFound):
		return notFound(CodeBoardNotFound, board.ErrNotFound.Message, err)
	case errors.Is(err, list.ErrNotFound):
		return notFound(CodeListNotFound, list.ErrNotFound.Message, err)
	case errors.Is(err, card.ErrNotFound):
		return notFound(CodeCardNotFound, card.ErrNotFound.Message, err)
	case errors.Is(err, position.ErrInvalidAnchors):
		return invalidAnchors(err)
	case errors.Is(err, position.ErrExhausted):
		recordWriteConflict("exhausted")
		return newServiceError(
			KindConflict, http.StatusConflict, CodePositionExhausted,
			"no room left between the anchors; rebalance the board", err,
		)
	case errors.Is(err, position.ErrTaken):
		recordWriteConflict("unique")
		return positionConflict(err)
	}
	return mapPgError(err)
}
