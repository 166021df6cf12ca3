package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/kanban/modules"
	"github.com/iota-uz/kanban/modules/kanban"
	"github.com/iota-uz/kanban/modules/kanban/domain/entities/board"
	"github.com/iota-uz/kanban/modules/kanban/services"
	"github.com/iota-uz/kanban/pkg/application"
	"github.com/iota-uz/kanban/pkg/configuration"
	"github.com/iota-uz/kanban/pkg/eventbus"
	"github.com/iota-uz/kanban/pkg/outbox"
)

const operatorActor = "kanbanctl"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "kanbanctl",
		Short:         "Operator tools for the kanban service: schema migrations and board rebalancing",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newMigrateCmd(), newRebalanceCmd())
	return cmd
}

func connectDB(ctx context.Context, conf *configuration.Configuration) (*pgxpool.Pool, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(connectCtx, conf.Database.Opts)
	if err != nil {
		return nil, withCode(exitDB, fmt.Errorf("connect database: %w", err))
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, withCode(exitDB, fmt.Errorf("ping database: %w", err))
	}
	return pool, nil
}

// operatorAuthorizer admits the CLI for any live board.
var operatorAuthorizer = services.BoardAuthorizerFunc(func(context.Context, board.Board, string) (bool, error) {
	return true, nil
})

// newApp loads the kanban module against pool with the operator authorizer.
func newApp(conf *configuration.Configuration, pool *pgxpool.Pool, logger *logrus.Logger) (application.Application, error) {
	table, err := outbox.ParseIdentifier(conf.Outbox.Table)
	if err != nil {
		return nil, withCode(exitUsage, fmt.Errorf("invalid OUTBOX_TABLE: %w", err))
	}
	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	opts := &kanban.ModuleOptions{
		Store:         configuration.StorePostgres,
		NotifyMode:    conf.Kanban.NotifyMode,
		OutboxTable:   table,
		ChannelPrefix: conf.Redis.ChannelPrefix,
		Authorizer:    operatorAuthorizer,
		Logger:        logger,
	}
	if err := modules.Load(app, modules.BuiltInModules(opts)...); err != nil {
		return nil, err
	}
	return app, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
