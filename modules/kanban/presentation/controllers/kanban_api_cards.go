package controllers

import (
	"context"
	"net/http"

	"github.com/iota-uz/kanban/modules/kanban/domain/entities/card"
	"github.com/iota-uz/kanban/modules/kanban/presentation/mappers"
	"github.com/iota-uz/kanban/modules/kanban/presentation/viewmodels"
	"github.com/iota-uz/kanban/modules/kanban/services"
	"github.com/iota-uz/kanban/pkg/httpapi"
)

func (c *KanbanAPIController) GetCards(w http.ResponseWriter, r *http.Request) {
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
	cards, err := c.cards.GetByList(r.Context(), scope, listID)
	if err != nil {
		writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, viewmodels.CardCollection{
		ListID: listID,
		Cards:  mappers.CardsToViewModels(cards),
	})
}

func (c *KanbanAPIController) GetCard(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r, "")
	scope, ok := c.authorize(w, r, requestID)
	if !ok {
		return
	}
	cardID, err := pathID(r, "cardId")
	if err != nil {
		writeServiceError(w, requestID, err)
		return
	}
	found, err := c.cards.GetByID(r.Context(), scope, cardID)
	if err != nil {
		writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, mappers.CardToViewModel(found))
}

func (c *KanbanAPIController) CreateCard(w http.ResponseWriter, r *http.Request) {
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

	var dto card.CreateDTO
	if err := decodeJSON(w, r, &dto); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, services.CodeInvalidRequest, "invalid json body")
		return
	}
	created, err := retryOnce(r.Context(), func(ctx context.Context) (card.Card, error) {
		return c.cards.Append(ctx, scope, listID, dto)
	})
	if err != nil {
		writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusCreated, mappers.CardToViewModel(created))
}

func (c *KanbanAPIController) MoveCard(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r, "")
	scope, ok := c.authorize(w, r, requestID)
	if !ok {
		return
	}
	cardID, err := pathID(r, "cardId")
	if err != nil {
		writeServiceError(w, requestID, err)
		return
	}

	var dto card.MoveDTO
	if err := decodeJSON(w, r, &dto); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, services.CodeInvalidRequest, "invalid json body")
		return
	}
	moved, err := retryOnce(r.Context(), func(ctx context.Context) (card.Card, error) {
		return c.cards.Move(ctx, scope, cardID, dto)
	})
	if err != nil {
		writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, mappers.CardToViewModel(moved))
}
