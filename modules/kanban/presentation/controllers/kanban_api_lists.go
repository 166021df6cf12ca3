package controllers

import (
	"context"
	"net/http"

	"github.com/iota-uz/kanban/modules/kanban/domain/entities/list"
	"github.com/iota-uz/kanban/modules/kanban/presentation/mappers"
	"github.com/iota-uz/kanban/modules/kanban/presentation/viewmodels"
	"github.com/iota-uz/kanban/modules/kanban/services"
	"github.com/iota-uz/kanban/pkg/httpapi"
)

func (c *KanbanAPIController) GetLists(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r, "")
	scope, ok := c.authorize(w, r, requestID)
	if !ok {
		return
	}
	lists, err := c.lists.GetByBoard(r.Context(), scope)
	if err != nil {
		writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, viewmodels.ListCollection{
		BoardID: scope.BoardID(),
		Lists:   mappers.ListsToViewModels(lists),
	})
}

func (c *KanbanAPIController) CreateList(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r, "")
	scope, ok := c.authorize(w, r, requestID)
	if !ok {
		return
	}

	var dto list.CreateDTO
	if err := decodeJSON(w, r, &dto); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, services.CodeInvalidRequest, "invalid json body")
		return
	}
	created, err := retryOnce(r.Context(), func(ctx context.Context) (list.List, error) {
		return c.lists.Append(ctx, scope, dto)
	})
	if err != nil {
		writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusCreated, mappers.ListToViewModel(created))
}

func (c *KanbanAPIController) MoveList(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r, "")
	scope, ok := c.authorize(w, r, requestID)
	if !ok {
		return
	}
	listID, err := pathID(r, "listId")
	if err != nil {
		writeServiceError(w, requestID, err)
		return
	}

	var dto list.MoveDTO
	if err := decodeJSON(w, r, &dto); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, services.CodeInvalidRequest, "invalid json body")
		return
	}
	moved, err := retryOnce(r.Context(), func(ctx context.Context) (list.List, error) {
		return c.lists.Move(ctx, scope, listID, dto)
	})
	if err != nil {
		writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, mappers.ListToViewModel(moved))
}
