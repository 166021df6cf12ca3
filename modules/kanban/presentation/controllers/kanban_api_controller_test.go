package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/kanban/modules/kanban/domain/events"
	"github.com/iota-uz/kanban/modules/kanban/infrastructure/memory"
	"github.com/iota-uz/kanban/modules/kanban/presentation/viewmodels"
	"github.com/iota-uz/kanban/modules/kanban/services"
	"github.com/iota-uz/kanban/pkg/application"
	"github.com/iota-uz/kanban/pkg/eventbus"
	"github.com/iota-uz/kanban/pkg/httpapi"
	"github.com/iota-uz/kanban/pkg/middleware"
)

type apiHarness struct {
	t      *testing.T
	router *mux.Router
	store  *memory.Store
	mu     sync.Mutex
	topics []string
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	h := &apiHarness{t: t, store: memory.NewStore()}

	bus := eventbus.NewEventPublisher(nil)
	bus.Subscribe(func(_ context.Context, ev events.Event) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.topics = append(h.topics, ev.Topic())
		return nil
	})

	app := application.New(&application.ApplicationOptions{EventBus: bus})
	emitter := services.NewDirectEmitter(bus)
	app.RegisterServices(
		services.NewScopeService(h.store.Boards(), services.NewMembershipAuthorizer(h.store.Boards())),
		services.NewBoardService(h.store.Boards()),
		services.NewListOrderingService(h.store.Lists(), h.store, emitter),
		services.NewCardOrderingService(h.store.Lists(), h.store.Cards(), h.store, emitter),
	)

	h.router = mux.NewRouter()
	h.router.Use(middleware.ProvideActor("X-User-ID"))
	NewKanbanAPIController(app).Register(h.router)
	return h
}

func (h *apiHarness) do(method, path, actor, body string) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-test")
	if actor != "" {
		req.Header.Set("X-User-ID", actor)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&out), rec.Body.String())
	return out
}

func requireAPIError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) httpapi.ErrorEnvelope {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	env := decode[httpapi.ErrorEnvelope](t, rec)
	require.Equal(t, code, env.Code)
	require.Equal(t, "req-test", env.Meta["request_id"])
	return env
}

func (h *apiHarness) board(name string) viewmodels.Board {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/v1/boards", "owner", `{"name":"`+name+`"}`)
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[viewmodels.Board](h.t, rec)
}

func (h *apiHarness) list(boardID int64, title string) viewmodels.List {
	h.t.Helper()
	rec := h.do(http.MethodPost, path("/api/v1/boards/%d/lists", boardID), "owner", `{"title":"`+title+`"}`)
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[viewmodels.List](h.t, rec)
}

func (h *apiHarness) card(boardID, listID int64, title string) viewmodels.Card {
	h.t.Helper()
	rec := h.do(http.MethodPost, path("/api/v1/boards/%d/lists/%d/cards", boardID, listID), "owner", `{"title":"`+title+`"}`)
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[viewmodels.Card](h.t, rec)
}

func TestKanbanAPI_CreateAndReadBoard(t *testing.T) {
	h := newAPIHarness(t)
	b := h.board("Roadmap")
	require.Equal(t, "owner", b.OwnerID)

	rec := h.do(http.MethodGet, path("/api/v1/boards/%d", b.ID), "owner", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Roadmap", decode[viewmodels.Board](t, rec).Name)

	requireAPIError(t, h.do(http.MethodGet, path("/api/v1/boards/%d", b.ID), "", ""), http.StatusUnauthorized, services.CodeUnauthenticated)
	requireAPIError(t, h.do(http.MethodGet, path("/api/v1/boards/%d", b.ID), "stranger", ""), http.StatusForbidden, services.CodeForbidden)
	requireAPIError(t, h.do(http.MethodGet, "/api/v1/boards/999", "owner", ""), http.StatusNotFound, services.CodeBoardNotFound)
	requireAPIError(t, h.do(http.MethodGet, "/api/v1/boards/abc", "owner", ""), http.StatusBadRequest, services.CodeInvalidRequest)
	requireAPIError(t, h.do(http.MethodGet, "/api/v1/boards/0", "owner", ""), http.StatusBadRequest, services.CodeInvalidRequest)
	requireAPIError(t, h.do(http.MethodPost, "/api/v1/boards", "owner", `{"name":""}`), http.StatusBadRequest, services.CodeInvalidRequest)
	requireAPIError(t, h.do(http.MethodPost, "/api/v1/boards", "owner", `{"name":"x","extra":1}`), http.StatusBadRequest, services.CodeInvalidRequest)
}

func TestKanbanAPI_ListOrdering(t *testing.T) {
	h := newAPIHarness(t)
	b := h.board("Roadmap")
	todo := h.list(b.ID, "Todo")
	doing := h.list(b.ID, "Doing")
	done := h.list(b.ID, "Done")
	require.Equal(t, []float64{1000, 2000, 3000}, []float64{todo.Position, doing.Position, done.Position})

	rec := h.do(http.MethodPatch, path("/api/v1/boards/%d/lists/%d/position", b.ID, done.ID), "owner",
		path(`{"prevListId":%d,"nextListId":%d}`, todo.ID, doing.ID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, 1500.0, decode[viewmodels.List](t, rec).Position)

	rec = h.do(http.MethodGet, path("/api/v1/boards/%d/lists", b.ID), "owner", "")
	require.Equal(t, http.StatusOK, rec.Code)
	lists := decode[viewmodels.ListCollection](t, rec)
	require.Equal(t, b.ID, lists.BoardID)
	require.Len(t, lists.Lists, 3)
	require.Equal(t, []int64{todo.ID, done.ID, doing.ID}, []int64{lists.Lists[0].ID, lists.Lists[1].ID, lists.Lists[2].ID})

	env := requireAPIError(t,
		h.do(http.MethodPatch, path("/api/v1/boards/%d/lists/%d/position", b.ID, todo.ID), "owner", `{}`),
		http.StatusBadRequest, services.CodeInvalidAnchors)
	require.Contains(t, env.Message, "at least one anchor")

	requireAPIError(t,
		h.do(http.MethodPatch, path("/api/v1/boards/%d/lists/%d/position", b.ID, todo.ID), "owner", `{"prevListId":-4}`),
		http.StatusBadRequest, services.CodeInvalidRequest)

	h.mu.Lock()
	defer h.mu.Unlock()
	require.Equal(t, []string{events.TopicListCreated, events.TopicListCreated, events.TopicListCreated, events.TopicListMoved}, h.topics)
}

func TestKanbanAPI_CardOrdering(t *testing.T) {
	h := newAPIHarness(t)
	b := h.board("Roadmap")
	todo := h.list(b.ID, "Todo")
	doing := h.list(b.ID, "Doing")
	a := h.card(b.ID, todo.ID, "A")
	c := h.card(b.ID, todo.ID, "C")

	rec := h.do(http.MethodPatch, path("/api/v1/boards/%d/cards/%d/position", b.ID, a.ID), "owner",
		path(`{"targetListId":%d}`, doing.ID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	moved := decode[viewmodels.Card](t, rec)
	require.Equal(t, doing.ID, moved.ListID)
	require.Equal(t, 1000.0, moved.Position)

	requireAPIError(t,
		h.do(http.MethodPatch, path("/api/v1/boards/%d/cards/%d/position", b.ID, c.ID), "owner", path(`{"targetListId":%d}`, doing.ID)),
		http.StatusBadRequest, services.CodeInvalidAnchors)

	rec = h.do(http.MethodGet, path("/api/v1/boards/%d/lists/%d/cards", b.ID, doing.ID), "owner", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cards := decode[viewmodels.CardCollection](t, rec)
	require.Len(t, cards.Cards, 1)
	require.Equal(t, a.ID, cards.Cards[0].ID)

	rec = h.do(http.MethodGet, path("/api/v1/boards/%d/cards/%d", b.ID, c.ID), "owner", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "C", decode[viewmodels.Card](t, rec).Title)

	other := h.board("Other")
	requireAPIError(t, h.do(http.MethodGet, path("/api/v1/boards/%d/cards/%d", other.ID, c.ID), "owner", ""),
		http.StatusNotFound, services.CodeCardNotFound)
	requireAPIError(t, h.do(http.MethodPost, path("/api/v1/boards/%d/lists/%d/cards", other.ID, todo.ID), "owner", `{"title":"X"}`),
		http.StatusNotFound, services.CodeListNotFound)
}

func TestRetryOnce(t *testing.T) {
	conflict := &services.ServiceError{
		Kind: services.KindConflict, Status: http.StatusConflict,
		Code: services.CodePositionConflict, Message: "position conflict, please retry", Retryable: true,
	}

	t.Run("second attempt succeeds", func(t *testing.T) {
		calls := 0
		got, err := retryOnce(context.Background(), func(context.Context) (int, error) {
			calls++
			if calls == 1 {
				return 0, conflict
			}
			return 42, nil
		})
		require.NoError(t, err)
		require.Equal(t, 42, got)
		require.Equal(t, 2, calls)
	})

	t.Run("second conflict becomes internal", func(t *testing.T) {
		calls := 0
		_, err := retryOnce(context.Background(), func(context.Context) (int, error) {
			calls++
			return 0, conflict
		})
		require.Equal(t, 2, calls)
		svcErr, ok := services.AsServiceError(err)
		require.True(t, ok)
		require.Equal(t, services.KindInternal, svcErr.Kind)
		require.Equal(t, services.CodeInternal, svcErr.Code)
	})

	t.Run("no retry once the request is done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		_, err := retryOnce(ctx, func(context.Context) (int, error) {
			calls++
			return 0, conflict
		})
		require.Equal(t, 1, calls)
		require.ErrorIs(t, err, conflict)
	})

	t.Run("other errors pass through", func(t *testing.T) {
		boom := errors.New("boom")
		calls := 0
		_, err := retryOnce(context.Background(), func(context.Context) (int, error) {
			calls++
			return 0, boom
		})
		require.Equal(t, 1, calls)
		require.ErrorIs(t, err, boom)
	})
}

func path(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
