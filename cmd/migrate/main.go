package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/angelmondragon/kitchenstock-backend/pkg/config"
	"github.com/angelmondragon/kitchenstock-backend/pkg/db"
	"github.com/angelmondragon/kitchenstock-backend/pkg/logger"
	"github.com/angelmondragon/kitchenstock-backend/pkg/migrate"
	"github.com/joho/godotenv"
)

// invocation carries everything a command may touch. client and sqlDB are nil
// for commands that run without a database.
type invocation struct {
	cfg     *config.Config
	dir     string
	name    string
	version string
	out     io.Writer
	client  *db.Client
	sqlDB   *sql.DB
}

// command runs against postgres through goose. sqlite, when set, is the
// model-driven equivalent; a nil sqlite means the command is postgres only.
type command struct {
	usage    string
	needsDB  bool
	postgres func(ctx context.Context, inv invocation) error
	sqlite   func(ctx context.Context, inv invocation) error
}

var errUsage = errors.New("usage")

var commands = map[string]command{
	"up": {
		usage:   "apply pending migrations (sqlite: auto-migrate models)",
		needsDB: true,
		postgres: func(ctx context.Context, inv invocation) error {
			return migrate.Run(ctx, inv.sqlDB, migrate.Dialect(inv.cfg.DB.Driver), inv.dir, "up")
		},
		sqlite: func(ctx context.Context, inv invocation) error {
			return migrate.AutoMigrateModels(ctx, inv.client)
		},
	},
	"down": {
		usage:   "roll back the last migration (sqlite: drop every model table)",
		needsDB: true,
		postgres: func(ctx context.Context, inv invocation) error {
			return migrate.Run(ctx, inv.sqlDB, migrate.Dialect(inv.cfg.DB.Driver), inv.dir, "down")
		},
		sqlite: func(ctx context.Context, inv invocation) error {
			return migrate.DropModels(ctx, inv.client)
		},
	},
	"status": {
		usage:   "print applied migrations (sqlite: print model tables)",
		needsDB: true,
		postgres: func(ctx context.Context, inv invocation) error {
			return migrate.Run(ctx, inv.sqlDB, migrate.Dialect(inv.cfg.DB.Driver), inv.dir, "status")
		},
		sqlite: func(ctx context.Context, inv invocation) error {
			tables, err := migrate.ModelStatus(ctx, inv.client)
			if err != nil {
				return err
			}
			for _, table := range tables {
				state := "missing"
				if table.Present {
					state = "present"
				}
				fmt.Fprintf(inv.out, "%-22s %s\n", table.Table, state)
			}
			return nil
		},
	},
	"version": {
		usage:   "migrate up or down to -version (postgres only)",
		needsDB: true,
		postgres: func(ctx context.Context, inv invocation) error {
			if inv.version == "" {
				return fmt.Errorf("%w: missing -version", errUsage)
			}
			return migrate.MigrateToVersion(ctx, inv.sqlDB, migrate.Dialect(inv.cfg.DB.Driver), inv.dir, inv.version)
		},
	},
	"create": {
		usage: "write a new SQL migration named -name",
		postgres: func(ctx context.Context, inv invocation) error {
			if inv.name == "" {
				return fmt.Errorf("%w: missing -name", errUsage)
			}
			path, err := migrate.CreateSQLMigration(inv.dir, inv.name)
			if err != nil {
				return err
			}
			fmt.Fprintln(inv.out, "created migration:", path)
			return nil
		},
	},
	"validate": {
		usage: "check migration file names and goose sections",
		postgres: func(ctx context.Context, inv invocation) error {
			if err := migrate.ValidateDir(inv.dir); err != nil {
				return err
			}
			fmt.Fprintln(inv.out, "migration validation passed")
			return nil
		},
	},
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmdName := flag.String("cmd", "up", "migration command: "+commandNames())
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: migrate -cmd <command> [flags]\n\n")
		for _, key := range sortedCommands() {
			fmt.Fprintf(flag.CommandLine.Output(), "  %-9s %s\n", key, commands[key].usage)
		}
		fmt.Fprintln(flag.CommandLine.Output())
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":    cfg.App.Env,
		"cmd":    *cmdName,
		"dir":    *dir,
		"driver": cfg.DB.Driver,
	})

	cmd, ok := commands[*cmdName]
	if !ok {
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmdName)
		flag.Usage()
		os.Exit(2)
	}

	inv := invocation{cfg: cfg, dir: *dir, name: *name, version: *version, out: os.Stdout}
	if cmd.needsDB {
		client, err := db.New(ctx, cfg.DB, logg)
		requireResource(ctx, logg, "database", err)
		defer client.Close()
		sqlDB, err := client.DB().DB()
		requireResource(ctx, logg, "sql database", err)
		inv.client, inv.sqlDB = client, sqlDB
	}

	logg.Info(ctx, "migrate ready")
	if err := dispatch(ctx, cmd, *cmdName, inv); err != nil {
		logg.Error(ctx, "migrate command failed", err)
		if errors.Is(err, errUsage) {
			flag.Usage()
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// dispatch picks the driver-specific runner. Commands that never touch the
// database run the same way for both drivers.
func dispatch(ctx context.Context, cmd command, name string, inv invocation) error {
	if !cmd.needsDB || inv.cfg.DB.Driver != config.DriverSQLite {
		return cmd.postgres(ctx, inv)
	}
	if cmd.sqlite == nil {
		return fmt.Errorf("%w: -cmd=%s is not supported for the sqlite driver", errUsage, name)
	}
	return cmd.sqlite(ctx, inv)
}

func sortedCommands() []string {
	keys := make([]string, 0, len(commands))
	for key := range commands {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func commandNames() string {
	return strings.Join(sortedCommands(), "|")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
