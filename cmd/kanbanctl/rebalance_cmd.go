package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iota-uz/kanban/modules/kanban/services"
	"github.com/iota-uz/kanban/pkg/composables"
	"github.com/iota-uz/kanban/pkg/configuration"
)

type rebalanceOutput struct {
	Command    string `json:"command"`
	BoardID    int64  `json:"board_id"`
	Lists      int64  `json:"lists"`
	Cards      int64  `json:"cards"`
	DurationMS int64  `json:"duration_ms"`
}

func newRebalanceCmd() *cobra.Command {
	var (
		boardID int64
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "rebalance",
		Short: "Renumber a board's lists and cards to evenly spaced positions, keeping their order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if boardID <= 0 {
				return withCode(exitUsage, fmt.Errorf("--board must be a positive integer"))
			}
			conf := configuration.Use()
			pool, err := connectDB(cmd.Context(), conf)
			if err != nil {
				return err
			}
			defer pool.Close()

			app, err := newApp(conf, pool, conf.Logger())
			if err != nil {
				return err
			}
			scopes := app.Service(services.ScopeService{}).(*services.ScopeService)
			rebalance := app.Service(services.RebalanceService{}).(*services.RebalanceService)

			ctx, cancel := context.WithTimeout(composables.WithPool(cmd.Context(), pool), timeout)
			defer cancel()

			scope, err := scopes.Authorize(ctx, boardID, operatorActor)
			if err != nil {
				return withCode(exitUsage, err)
			}
			start := time.Now()
			res, err := rebalance.Rebalance(ctx, scope)
			if err != nil {
				if services.IsRetryable(err) {
					return withCode(exitBusy, err)
				}
				return withCode(exitDB, err)
			}
			return writeJSON(cmd.OutOrStdout(), rebalanceOutput{
				Command:    "rebalance",
				BoardID:    boardID,
				Lists:      res.Lists,
				Cards:      res.Cards,
				DurationMS: time.Since(start).Milliseconds(),
			})
		},
	}

	cmd.Flags().Int64Var(&boardID, "board", 0, "Board id (required)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Upper bound on the wait for the board lock plus the rewrite")
	_ = cmd.MarkFlagRequired("board")
	return cmd
}
