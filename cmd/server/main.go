package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iota-uz/kanban/internal/server"
	"github.com/iota-uz/kanban/modules"
	"github.com/iota-uz/kanban/modules/kanban"
	"github.com/iota-uz/kanban/modules/kanban/domain/events"
	"github.com/iota-uz/kanban/pkg/application"
	"github.com/iota-uz/kanban/pkg/configuration"
	"github.com/iota-uz/kanban/pkg/eventbus"
	"github.com/iota-uz/kanban/pkg/logging"
	"github.com/iota-uz/kanban/pkg/metrics"
	"github.com/iota-uz/kanban/pkg/outbox"
	eventbusdispatcher "github.com/iota-uz/kanban/pkg/outbox/dispatchers/eventbus"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if conf.OpenTelemetry.Enabled {
		tracingCleanup := logging.SetupTracing(ctx, conf.OpenTelemetry.ServiceName, conf.OpenTelemetry.TempoURL)
		defer tracingCleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}

	var pool *pgxpool.Pool
	if conf.Kanban.Store == configuration.StorePostgres {
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		p, err := pgxpool.New(connectCtx, conf.Database.Opts)
		cancel()
		if err != nil {
			panic(err)
		}
		defer p.Close()
		pool = p
	}

	var redisClient *redis.Client
	if conf.Redis.URL != "" {
		opts, err := redis.ParseURL(conf.Redis.URL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		defer func() { _ = redisClient.Close() }()
	}

	outboxTable, err := outbox.ParseIdentifier(conf.Outbox.Table)
	if err != nil {
		log.Fatalf("invalid OUTBOX_TABLE: %v", err)
	}

	bus := eventbus.NewEventPublisher(logger)
	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: bus,
		Logger:   logger,
	})
	moduleOpts := &kanban.ModuleOptions{
		Store:         conf.Kanban.Store,
		NotifyMode:    conf.Kanban.NotifyMode,
		OutboxTable:   outboxTable,
		Redis:         redisClient,
		ChannelPrefix: conf.Redis.ChannelPrefix,
		Logger:        logger,
	}
	if err := modules.Load(app, modules.BuiltInModules(moduleOpts)...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}

	if pool != nil && conf.MigrateOnStart {
		if err := app.Migrations().Run(ctx); err != nil {
			log.Fatalf("failed to apply migrations: %v", err)
		}
	}

	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}
	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Pool:          pool,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Listening on: %s", conf.SocketAddress)
		return serverInstance.Serve(gctx, conf.SocketAddress)
	})
	if pool != nil && conf.Kanban.NotifyMode == configuration.NotifyOutbox {
		startOutboxBackground(gctx, g, conf, pool, logger, bus)
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Fatalf("server stopped: %v", err)
	}
	logger.Info("server stopped")
}

func startOutboxBackground(
	ctx context.Context,
	g *errgroup.Group,
	conf *configuration.Configuration,
	pool *pgxpool.Pool,
	logger *logrus.Logger,
	bus eventbus.EventBusWithError,
) {
	table, err := outbox.ParseIdentifier(conf.Outbox.Table)
	if err != nil {
		logger.WithError(err).Warn("outbox: invalid OUTBOX_TABLE; relay disabled")
		return
	}
	outboxLog := logger.WithField("component", "outbox").WithField("table", outbox.TableLabel(table))

	if conf.Outbox.RelayEnabled {
		relay, err := outbox.NewRelay(pool, table, eventbusdispatcher.New(bus, events.Decode), outbox.RelayOptions{
			PollInterval:    conf.Outbox.RelayPollInterval,
			BatchSize:       conf.Outbox.RelayBatchSize,
			LockTTL:         conf.Outbox.RelayLockTTL,
			MaxAttempts:     conf.Outbox.RelayMaxAttempts,
			SingleActive:    conf.Outbox.RelaySingleActive,
			LastErrorMaxLen: conf.Outbox.LastErrorMaxBytes,
			DispatchTimeout: conf.Outbox.RelayDispatchTimeout,
			Logger:          outboxLog,
		})
		if err != nil {
			outboxLog.WithError(err).Warn("outbox: failed to create relay")
		} else {
			g.Go(func() error {
				if err := relay.Run(ctx); err != nil && ctx.Err() == nil {
					outboxLog.WithError(err).Error("outbox: relay stopped")
					return err
				}
				return nil
			})
		}
	}

	if conf.Outbox.CleanerEnabled {
		cleaner, err := outbox.NewCleaner(pool, table, outbox.CleanerOptions{
			Enabled:   true,
			Interval:  conf.Outbox.CleanerInterval,
			Retention: conf.Outbox.CleanerRetention,
			Logger:    outboxLog,
		})
		if err != nil {
			outboxLog.WithError(err).Warn("outbox: failed to create cleaner")
			return
		}
		g.Go(func() error {
			if err := cleaner.Run(ctx); err != nil && ctx.Err() == nil {
				outboxLog.WithError(err).Error("outbox: cleaner stopped")
				return err
			}
			return nil
		})
	}
}
