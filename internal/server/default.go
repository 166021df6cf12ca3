package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	"github.com/iota-uz/kanban/pkg/application"
	"github.com/iota-uz/kanban/pkg/configuration"
	"github.com/iota-uz/kanban/pkg/constants"
	"github.com/iota-uz/kanban/pkg/httpapi"
	"github.com/iota-uz/kanban/pkg/middleware"
	"github.com/iota-uz/kanban/pkg/routing"
	"github.com/iota-uz/kanban/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Pool          *pgxpool.Pool
	// Entrypoint selects the routing allowlist section; defaults to "server".
	Entrypoint string
}

func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application
	conf := options.Configuration

	rules, err := routing.LoadAllowlistOrDefault("", options.Entrypoint)
	if err != nil {
		return nil, err
	}
	classifier := routing.NewClassifier(rules)

	loggerOpts := middleware.DefaultLoggerOptions()
	loggerOpts.RequestIDHeader = conf.RequestIDHeader
	loggerOpts.RealIPHeader = conf.RealIPHeader

	// Core middleware stack with tracing capabilities
	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger, loggerOpts), // This creates the root span for each request

		middleware.TracedMiddleware("database"),
		middleware.Provide(constants.AppKey, app),
		middleware.ProvidePool(options.Pool),

		middleware.TracedMiddleware("cors"),
		middleware.Cors(conf.Kanban.AllowedOrigins()...),
	}

	if conf.RateLimit.Enabled {
		var store limiter.Store

		switch conf.RateLimit.Storage {
		case "redis":
			store, err = middleware.NewRedisStore(conf.RateLimit.RedisURL)
			if err != nil {
				options.Logger.WithError(err).Warn("Failed to create Redis store for rate limiting, falling back to memory")
				store = middleware.NewMemoryStore()
			}
		default:
			store = middleware.NewMemoryStore()
		}

		middlewares = append(middlewares,
			middleware.TracedMiddleware("rateLimit"),
			middleware.RateLimit(middleware.RateLimitConfig{
				RequestsPerPeriod: conf.RateLimit.GlobalRPS,
				Store:             store,
				Skip:              classifier.IsOps,
			}),
		)
	}

	middlewares = append(middlewares,
		middleware.TracedMiddleware("actor"),
		middleware.ProvideActor(conf.Kanban.ActorHeader),
		middleware.RequestTimeout(conf.Kanban.RequestTimeout),
	)

	app.RegisterMiddleware(middlewares...)

	serverInstance := server.NewHTTPServer(
		app,
		NotFound(conf.RequestIDHeader),
		MethodNotAllowed(conf.RequestIDHeader),
	)
	return serverInstance, nil
}

func NotFound(requestIDHeader string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteRequestError(w, httpapi.RequestID(r, requestIDHeader), http.StatusNotFound, "KANBAN_ROUTE_NOT_FOUND", "route not found")
	})
}

func MethodNotAllowed(requestIDHeader string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteRequestError(w, httpapi.RequestID(r, requestIDHeader), http.StatusMethodNotAllowed, "KANBAN_METHOD_NOT_ALLOWED", "method not allowed")
	})
}
