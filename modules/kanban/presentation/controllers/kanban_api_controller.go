package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/kanban/modules/kanban/domain/entities/board"
	"github.com/iota-uz/kanban/modules/kanban/presentation/mappers"
	"github.com/iota-uz/kanban/modules/kanban/services"
	"github.com/iota-uz/kanban/pkg/application"
	"github.com/iota-uz/kanban/pkg/httpapi"
)

type KanbanAPIController struct {
	app       application.Application
	scopes    *services.ScopeService
	boards    *services.BoardService
	lists     *services.ListOrderingService
	cards     *services.CardOrderingService
	apiPrefix string
}

func NewKanbanAPIController(app application.Application) application.Controller {
	return &KanbanAPIController{
		app:       app,
		scopes:    app.Service(services.ScopeService{}).(*services.ScopeService),
		boards:    app.Service(services.BoardService{}).(*services.BoardService),
		lists:     app.Service(services.ListOrderingService{}).(*services.ListOrderingService),
		cards:     app.Service(services.CardOrderingService{}).(*services.CardOrderingService),
		apiPrefix: "/api/v1",
	}
}

func (c *KanbanAPIController) Key() string {
	return c.apiPrefix
}

func (c *KanbanAPIController) Register(r *mux.Router) {
	api := r.PathPrefix(c.apiPrefix).Subrouter()

	api.HandleFunc("/boards", c.CreateBoard).Methods(http.MethodPost)
	api.HandleFunc("/boards/{boardId}", c.GetBoard).Methods(http.MethodGet)

	api.HandleFunc("/boards/{boardId}/lists", c.GetLists).Methods(http.MethodGet)
	api.HandleFunc("/boards/{boardId}/lists", c.CreateList).Methods(http.MethodPost)
	api.HandleFunc("/boards/{boardId}/lists/{listId}/position", c.MoveList).Methods(http.MethodPatch)

	api.HandleFunc("/boards/{boardId}/lists/{listId}/cards", c.GetCards).Methods(http.MethodGet)
	api.HandleFunc("/boards/{boardId}/lists/{listId}/cards", c.CreateCard).Methods(http.MethodPost)
	api.HandleFunc("/boards/{boardId}/cards/{cardId}", c.GetCard).Methods(http.MethodGet)
	api.HandleFunc("/boards/{boardId}/cards/{cardId}/position", c.MoveCard).Methods(http.MethodPatch)
}

// authorize resolves the board path variable into a scope, writing the error response on failure.
func (c *KanbanAPIController) authorize(w http.ResponseWriter, r *http.Request, requestID string) (services.BoardScope, bool) {
	boardID, err := pathID(r, "boardId")
	if err != nil {
		writeServiceError(w, requestID, err)
		return services.BoardScope{}, false
	}
	scope, err := c.scopes.Authorize(r.Context(), boardID, actor(r))
	if err != nil {
		writeServiceError(w, requestID, err)
		return services.BoardScope{}, false
	}
	return scope, true
}

func (c *KanbanAPIController) CreateBoard(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r, "")

	var dto board.CreateDTO
	if err := decodeJSON(w, r, &dto); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, services.CodeInvalidRequest, "invalid json body")
		return
	}
	created, err := c.boards.Create(r.Context(), actor(r), dto)
	if err != nil {
		writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusCreated, mappers.BoardToViewModel(created))
}

func (c *KanbanAPIController) GetBoard(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r, "")
	scope, ok := c.authorize(w, r, requestID)
	if !ok {
		return
	}
	b, err := c.boards.GetByID(r.Context(), scope)
	if err != nil {
		writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, mappers.BoardToViewModel(b))
}
