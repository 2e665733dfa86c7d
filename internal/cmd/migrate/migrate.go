// Package migrate implements the migrate sub-command.
package migrate

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/kagangtuya-star/cclog-plus/internal/config"
	registrymigrate "github.com/kagangtuya-star/cclog-plus/internal/registry/migrate"

	// Import plugins to trigger init() registration of their migrators.
	_ "github.com/kagangtuya-star/cclog-plus/internal/plugin/store/sqlite"
)

// Command returns the migrate sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Run database migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db-path",
				Sources: cli.EnvVars("CCLOG_DB_PATH"),
				Usage:   "SQLite database file path",
				Value:   config.DefaultConfig().DBPath,
			},
			&cli.StringFlag{
				Name:    "datastore",
				Sources: cli.EnvVars("CCLOG_DATASTORE"),
				Usage:   "Datastore backend kind (sqlite)",
				Value:   "sqlite",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.DefaultConfig()
			cfg.DBPath = cmd.String("db-path")
			cfg.DatastoreType = cmd.String("datastore")
			cfg.DatastoreMigrateAtStart = true
			ctx = config.WithContext(ctx, &cfg)

			log.Info("Running migrations...")
			if err := registrymigrate.RunAll(ctx); err != nil {
				return err
			}
			log.Info("All migrations completed successfully")
			return nil
		},
	}
}
