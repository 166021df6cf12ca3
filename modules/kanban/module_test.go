package kanban

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/kanban/modules/kanban/domain/entities/board"
	"github.com/iota-uz/kanban/modules/kanban/services"
	"github.com/iota-uz/kanban/pkg/application"
	"github.com/iota-uz/kanban/pkg/configuration"
	"github.com/iota-uz/kanban/pkg/eventbus"
)

func newApp() application.Application {
	return application.New(&application.ApplicationOptions{EventBus: eventbus.NewEventPublisher(nil)})
}

func TestModule_RegistersMemoryStack(t *testing.T) {
	app := newApp()
	m := NewModule(&ModuleOptions{Store: configuration.StoreMemory, NotifyMode: configuration.NotifyDirect})
	require.Equal(t, "kanban", m.Name())
	require.NoError(t, m.Register(app))

	require.NotNil(t, app.Service(services.ScopeService{}))
	require.NotNil(t, app.Service(services.RebalanceService{}))
	require.Len(t, app.Controllers(), 2)
	require.Equal(t, 1, app.EventPublisher().SubscribersCount())

	r := mux.NewRouter()
	for _, c := range app.Controllers() {
		c.Register(r)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/boards", strings.NewReader(`{"name":"Roadmap"}`))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	// No actor middleware in front of the router.
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	boards := app.Service(services.BoardService{}).(*services.BoardService)
	_, err := boards.Create(context.Background(), "owner", boardDTO("Roadmap"))
	require.NoError(t, err)
}

func TestModule_RejectsOutboxOnMemory(t *testing.T) {
	err := NewModule(&ModuleOptions{Store: configuration.StoreMemory, NotifyMode: configuration.NotifyOutbox}).Register(newApp())
	require.Error(t, err)

	err = NewModule(&ModuleOptions{Store: "sqlite"}).Register(newApp())
	require.ErrorContains(t, err, "unknown store")
}

func boardDTO(name string) board.CreateDTO {
	return board.CreateDTO{Name: name}
}
