package main

import (
	"fmt"

	"github.com/Veraticus/spice-ops/internal/cli"
	"github.com/Veraticus/spice-ops/internal/common"
	"github.com/Veraticus/spice-ops/internal/config"
	"github.com/Veraticus/spice-ops/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every other command migrates on startup; this one exists to do it explicitly
or to check where a database stands.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	status, _ := cmd.Flags().GetBool("status")

	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if status {
		state := cli.SuccessStyle.Render("up to date")
		if current < storage.ExpectedSchemaVersion {
			state = cli.WarningStyle.Render(fmt.Sprintf("%d pending", storage.ExpectedSchemaVersion-current))
		}
		_, err := fmt.Fprintf(out, "%s\nDatabase:        %s\nCurrent version: %d\nLatest version:  %d\nStatus:          %s\n",
			cli.FormatTitle("📊 Database Migration Status"), dbPath, current, storage.ExpectedSchemaVersion, state)
		return err
	}

	common.LogInfo("Running database migrations", common.Fields{"database": dbPath, "from_version": current})

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	_, err = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Database at schema version %d", storage.ExpectedSchemaVersion)))
	return err
}
