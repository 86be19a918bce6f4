package main

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	"github.com/straye-as/offers-api/internal/config"
	"github.com/straye-as/offers-api/migrations"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Migration error: %v\n", err)
		os.Exit(1)
	}
}

// rootOptions holds the flags shared by every subcommand
type rootOptions struct {
	dir string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the PostgreSQL schema of the offers API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.dir, "dir", "./migrations", "migrations directory used by create")

	cmd.AddCommand(
		withDB("up", "Apply all pending migrations", cobra.NoArgs, func(db *sql.DB, _ []string) error {
			if err := goose.Up(db, "."); err != nil {
				return fmt.Errorf("failed to run up migrations: %w", err)
			}
			fmt.Println("Migrations applied successfully")
			return nil
		}),
		withDB("up-to VERSION", "Apply migrations up to VERSION", cobra.ExactArgs(1), func(db *sql.DB, args []string) error {
			version, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			return goose.UpTo(db, ".", version)
		}),
		withDB("down", "Roll back the latest migration", cobra.NoArgs, func(db *sql.DB, _ []string) error {
			if err := goose.Down(db, "."); err != nil {
				return fmt.Errorf("failed to run down migration: %w", err)
			}
			fmt.Println("Migration rolled back successfully")
			return nil
		}),
		withDB("status", "Show migration status", cobra.NoArgs, func(db *sql.DB, _ []string) error {
			return goose.Status(db, ".")
		}),
		withDB("version", "Print the current schema version", cobra.NoArgs, func(db *sql.DB, _ []string) error {
			return goose.Version(db, ".")
		}),
		&cobra.Command{
			Use:   "create NAME",
			Short: "Create a new SQL migration file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				goose.SetBaseFS(nil)
				if err := goose.Create(nil, opts.dir, args[0], "sql"); err != nil {
					return fmt.Errorf("failed to create migration: %w", err)
				}
				fmt.Printf("Migration created: %s\n", args[0])
				return nil
			},
		},
	)

	return cmd
}

// withDB builds a subcommand that runs fn against the configured database
// using the embedded migrations
func withDB(use, short string, args cobra.PositionalArgs, fn func(db *sql.DB, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Database.Driver == "sqlite" {
				return fmt.Errorf("sqlite databases are migrated by the API on startup")
			}

			db, err := sql.Open("postgres", cfg.Database.ConnectionString())
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			if err := db.PingContext(cmd.Context()); err != nil {
				return fmt.Errorf("failed to ping database: %w", err)
			}

			goose.SetBaseFS(migrations.FS)
			if err := goose.SetDialect("postgres"); err != nil {
				return fmt.Errorf("failed to set dialect: %w", err)
			}

			return fn(db, cmdArgs)
		},
	}
}
