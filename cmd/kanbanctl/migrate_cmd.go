package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/iota-uz/kanban/pkg/application"
	"github.com/iota-uz/kanban/pkg/configuration"
)

type migrationRow struct {
	Version   int64  `json:"version"`
	Path      string `json:"path"`
	State     string `json:"state"`
	AppliedAt string `json:"applied_at,omitempty"`
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, inspect or roll back the embedded schema migrations",
	}
	cmd.AddCommand(
		migrateSubcommand("up", "Apply all pending migrations", func(c *cobra.Command, app application.Application) error {
			return app.Migrations().Run(c.Context())
		}),
		migrateSubcommand("down", "Roll back the most recent migration", func(c *cobra.Command, app application.Application) error {
			return app.Migrations().Rollback(c.Context())
		}),
		migrateSubcommand("status", "Print the state of every migration", func(c *cobra.Command, app application.Application) error {
			statuses, err := app.Migrations().Status(c.Context())
			if err != nil {
				return err
			}
			rows := make([]migrationRow, 0, len(statuses))
			for _, st := range statuses {
				row := migrationRow{
					Version: st.Source.Version,
					Path:    st.Source.Path,
					State:   string(st.State),
				}
				if !st.AppliedAt.IsZero() {
					row.AppliedAt = st.AppliedAt.UTC().Format(time.RFC3339)
				}
				rows = append(rows, row)
			}
			return writeJSON(c.OutOrStdout(), rows)
		}),
	)
	return cmd
}

func migrateSubcommand(use, short string, fn func(*cobra.Command, application.Application) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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
			if err := fn(cmd, app); err != nil {
				return withCode(exitDB, err)
			}
			return nil
		},
	}
}
