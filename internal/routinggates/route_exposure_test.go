package routinggates

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	internalserver "github.com/iota-uz/kanban/internal/server"
	"github.com/iota-uz/kanban/modules"
	"github.com/iota-uz/kanban/modules/kanban"
	"github.com/iota-uz/kanban/pkg/application"
	"github.com/iota-uz/kanban/pkg/configuration"
	"github.com/iota-uz/kanban/pkg/eventbus"
	"github.com/iota-uz/kanban/pkg/metrics"
	"github.com/iota-uz/kanban/pkg/routing"
	pkgserver "github.com/iota-uz/kanban/pkg/server"
)

func TestServerRoutes_AllAllowlisted(t *testing.T) {
	router := buildMainServerHTTPServer(t, testConfiguration()).Router()

	rules, err := routing.LoadAllowlist("", "server")
	require.NoError(t, err)
	classifier := routing.NewClassifier(rules)

	var unclassified []string
	for _, p := range collectRoutePaths(t, router) {
		if _, ok := classifier.MatchAllowlist(p); !ok {
			unclassified = append(unclassified, p)
		}
	}
	if len(unclassified) > 0 {
		t.Fatalf("routes missing from config/routing/allowlist.yaml:\n%s", strings.Join(unclassified, "\n"))
	}
}

func TestServerRoutes_APIIsVersioned(t *testing.T) {
	router := buildMainServerHTTPServer(t, testConfiguration()).Router()
	classifier := routing.NewClassifier(routing.DefaultRules())

	var offending []string
	for _, p := range collectRoutePaths(t, router) {
		if classifier.ClassifyPath(p) == routing.RouteClassPublicAPI && !routing.HasPathPrefixOnBoundary(p, "/api/v1") {
			offending = append(offending, p)
		}
	}
	require.Empty(t, offending)
}

func TestServerRoutes_OpsBypassRateLimit(t *testing.T) {
	conf := testConfiguration()
	conf.RateLimit.GlobalRPS = 1
	router := buildMainServerHTTPServer(t, conf).Router()

	serve := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "10.1.1.1:5000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}
	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, serve("/health"))
	}
	require.NotEqual(t, http.StatusTooManyRequests, serve("/api/v1/boards/1"))
	require.Equal(t, http.StatusTooManyRequests, serve("/api/v1/boards/1"))
}

func collectRoutePaths(t *testing.T, router *mux.Router) []string {
	t.Helper()

	var paths []string
	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		if route.GetHandler() == nil {
			return nil
		}
		p := routePath(route)
		if strings.TrimSpace(p) != "" {
			paths = append(paths, p)
		}
		return nil
	})
	require.NoError(t, err)

	sort.Strings(paths)
	return paths
}

func routePath(route *mux.Route) string {
	if route == nil {
		return ""
	}
	if tmpl, err := route.GetPathTemplate(); err == nil {
		return tmpl
	}
	regexp, err := route.GetPathRegexp()
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(regexp, "^")
}

func testConfiguration() *configuration.Configuration {
	return &configuration.Configuration{
		GoAppEnvironment: configuration.Production,
		RequestIDHeader:  "X-Request-ID",
		RealIPHeader:     "X-Real-IP",
		RateLimit:        configuration.RateLimitOptions{Enabled: true, GlobalRPS: 1000, Storage: "memory"},
		Prometheus:       configuration.PrometheusOptions{Enabled: true, Path: "/debug/prometheus"},
		Kanban: configuration.KanbanOptions{
			Store:          configuration.StoreMemory,
			NotifyMode:     configuration.NotifyDirect,
			RequestTimeout: 5 * time.Second,
			ActorHeader:    "X-User-ID",
		},
	}
}

func buildMainServerHTTPServer(t *testing.T, conf *configuration.Configuration) *pkgserver.HTTPServer {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	app := application.New(&application.ApplicationOptions{
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	require.NoError(t, modules.Load(app, modules.BuiltInModules(&kanban.ModuleOptions{
		Store:      conf.Kanban.Store,
		NotifyMode: conf.Kanban.NotifyMode,
		Logger:     logger,
	})...))
	app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))

	srv, err := internalserver.Default(&internalserver.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Entrypoint:    "server",
	})
	require.NoError(t, err)
	return srv
}
