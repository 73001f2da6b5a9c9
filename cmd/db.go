package cmd

import (
	"strconv"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/ledgerline/transfer-engine-backend/db"
)

type DatabaseCommand struct{}

func (c *DatabaseCommand) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database related commands",
		Run: func(cmd *cobra.Command, _ []string) {
			err := cmd.Help()
			if err != nil {
				log.Fatalf("Error calling help command: %s", err.Error())
			}
		},
	}

	cmd.AddCommand(c.migrateCommand())

	return cmd
}

func (c *DatabaseCommand) migrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Schema migration helpers",
		Run: func(cmd *cobra.Command, _ []string) {
			err := cmd.Help()
			if err != nil {
				log.Fatalf("Error calling help command: %s", err.Error())
			}
		},
	}

	migrateUpCmd := &cobra.Command{
		Use:   "up [count]",
		Short: "Migrates database up [count] migrations. Defaults to all migrations when no count is provided.",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			c.runMigration(cmd, args, migrate.Up)
		},
	}
	migrateDownCmd := &cobra.Command{
		Use:   "down [count]",
		Short: "Migrates database down [count] migrations.",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			c.runMigration(cmd, args, migrate.Down)
		},
	}

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	return migrateCmd
}

func (c *DatabaseCommand) runMigration(cmd *cobra.Command, args []string, dir migrate.MigrationDirection) {
	ctx := cmd.Context()

	count := 0
	if len(args) > 0 {
		var err error
		count, err = strconv.Atoi(args[0])
		if err != nil {
			log.Ctx(ctx).Fatalf("Invalid [count] argument: %s", args[0])
		}
	}

	applied, err := db.Migrate(globalOptions.DatabaseURL, dir, count)
	if err != nil {
		log.Ctx(ctx).Fatalf("Error migrating database: %s", err.Error())
	}
	if applied == 0 {
		log.Ctx(ctx).Info("No migrations applied.")
	} else {
		log.Ctx(ctx).Infof("Successfully applied %d migrations.", applied)
	}
}
