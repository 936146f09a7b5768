// Package cli implements lexctl, the operator command line for migrations,
// attachment cleanup and ledger imports.
package cli

import (
	"database/sql"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/lexledger/internal/config"
	"github.com/MrJamesThe3rd/lexledger/internal/database"
)

type state struct {
	envFile     string
	databaseURL string
	cfg         *config.Config
}

// open connects with --url when given, otherwise with the configured DB_* settings.
func (s *state) open() (*sql.DB, error) {
	dsn := s.databaseURL
	if dsn == "" {
		dsn = s.cfg.ConnectionString()
	}

	db, err := database.New(dsn, s.cfg.DB.MaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return db, nil
}

func NewRootCommand() *cobra.Command {
	s := &state{}

	rootCmd := &cobra.Command{
		Use:           "lexctl",
		Short:         "Operate the lexledger expense store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is fine; the environment may already be set.
			_ = godotenv.Load(s.envFile)

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			s.cfg = cfg

			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&s.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&s.databaseURL, "url", "", "database connection URL, overrides DB_* settings")

	rootCmd.AddCommand(newMigrateCmd(s))
	rootCmd.AddCommand(newCleanupCmd(s))
	rootCmd.AddCommand(newImportCmd(s))

	return rootCmd
}
