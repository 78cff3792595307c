package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erp/credit-ledger/internal/infrastructure/config"
	"github.com/erp/credit-ledger/internal/infrastructure/logger"
	"github.com/erp/credit-ledger/internal/infrastructure/migration"
	"github.com/erp/credit-ledger/migrations"
)

type options struct {
	path     string
	logLevel string
	log      *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the credit ledger schema migrations",
		Long: `Applies the versioned SQL migrations of the credit ledger to the
Postgres database configured in config.toml or LEDGER_DATABASE_* variables.

The migrations compiled into the binary are used unless --path points at a
directory of NNNNNN_name.up.sql / .down.sql files.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to load .env: %w", err)
			}
			log, err := logger.New(&logger.Config{
				Level:      opts.logLevel,
				Format:     "console",
				Output:     "stdout",
				TimeFormat: "2006-01-02 15:04:05",
			})
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			opts.log = log
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.log != nil {
				_ = opts.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&opts.path, "path", "", "Migrations directory (default: embedded migrations)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE:  opts.withMigrator(func(m *migration.Migrator, _ []string) error { return m.Up() }),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			Args:  cobra.NoArgs,
			RunE:  opts.withMigrator(func(m *migration.Migrator, _ []string) error { return m.Down() }),
		},
		&cobra.Command{
			Use:   "steps N",
			Short: "Apply N migrations (negative N rolls back)",
			Args:  cobra.ExactArgs(1),
			RunE: opts.withMigrator(func(m *migration.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q: %w", args[0], err)
				}
				return m.Steps(n)
			}),
		},
		&cobra.Command{
			Use:   "goto V",
			Short: "Migrate up or down to version V",
			Args:  cobra.ExactArgs(1),
			RunE: opts.withMigrator(func(m *migration.Migrator, args []string) error {
				v, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return m.GoTo(uint(v))
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: opts.withMigrator(func(m *migration.Migrator, _ []string) error {
				status, err := m.Version()
				if err != nil {
					return err
				}
				if !status.Applied {
					fmt.Println("no migrations applied")
					return nil
				}
				fmt.Printf("version %d (dirty: %t)\n", status.Version, status.Dirty)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "force V",
			Short: "Set the schema version without running migrations",
			Long:  "Marks version V as applied and clears the dirty flag. Use after fixing a failed migration by hand.",
			Args:  cobra.ExactArgs(1),
			RunE: opts.withMigrator(func(m *migration.Migrator, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return m.Force(v)
			}),
		},
		opts.createCmd(),
		opts.listCmd(),
	)
	return root
}

func (o *options) source() fs.FS {
	if o.path == "" {
		return migrations.FS
	}
	return os.DirFS(o.path)
}

// withMigrator opens the configured database and hands a Migrator to fn
func (o *options) withMigrator(fn func(*migration.Migrator, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if cfg.Database.Driver == "sqlite" {
			return errors.New("SQL migrations target postgres; sqlite databases are created with AutoMigrate")
		}

		db, err := sql.Open("postgres", cfg.Database.URL())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(cmd.Context()); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to connect to database: %w", err)
		}

		m, err := migration.New(db, o.source(), o.log)
		if err != nil {
			_ = db.Close()
			return err
		}
		defer func() {
			if err := m.Close(); err != nil {
				o.log.Warn("Failed to close migrator", zap.Error(err))
			}
		}()

		o.log.Info("Migration CLI started",
			zap.String("command", cmd.Name()),
			zap.String("database", cfg.Database.DBName),
			zap.String("source", o.sourceName()),
		)
		return fn(m, args)
	}
}

func (o *options) sourceName() string {
	if o.path == "" {
		return "embedded"
	}
	return o.path
}

func (o *options) createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME [DESCRIPTION]",
		Short: "Create an empty up/down migration pair in --path",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			if o.path == "" {
				return errors.New("create needs --path pointing at the migrations directory")
			}
			description := ""
			if len(args) > 1 {
				description = args[1]
			}
			mf, err := migration.CreateMigration(o.path, args[0], description)
			if err != nil {
				return err
			}
			o.log.Info("Migration created",
				zap.Uint("version", mf.Version),
				zap.String("up_file", mf.UpPath),
				zap.String("down_file", mf.DownPath),
			)
			return nil
		},
	}
}

func (o *options) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available migrations",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			entries, err := migration.ListMigrations(o.source())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("no migrations found")
				return nil
			}
			for _, e := range entries {
				down := ""
				if !e.HasDown {
					down = " (no down)"
				}
				fmt.Printf("%06d  %s%s\n", e.Version, e.Name, down)
			}
			return nil
		},
	}
}
