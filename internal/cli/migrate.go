package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"zafo-tickets/internal/config"
	"zafo-tickets/internal/database"
	"zafo-tickets/internal/database/migrations"
	"zafo-tickets/internal/tickets/db"
)

func (c *CLI) migrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the generation audit schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.migrate(cmd, true)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations (postgres only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.migrate(cmd, false)
		},
	})
	return cmd
}

func (c *CLI) migrate(cmd *cobra.Command, up bool) error {
	cfg := config.Load()
	ctx := cmd.Context()

	bunDB, err := database.Open(ctx, cfg.Database, c.Logger)
	if err != nil {
		return err
	}
	defer bunDB.Close()

	if cfg.Database.Driver == database.DriverSQLite {
		if !up {
			return fmt.Errorf("migrate down is not supported for sqlite")
		}
		if err := (&db.DB{Bun: bunDB}).EnsureSchema(ctx); err != nil {
			return err
		}
		fmt.Fprintln(c.Out, "sqlite schema ready")
		return nil
	}

	runner := migrations.NewRunner(bunDB, c.Logger)
	defer runner.Close()
	if up {
		err = runner.Up()
	} else {
		err = runner.Down()
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(c.Out, "migrations applied")
	return nil
}
