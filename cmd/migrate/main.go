package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/angelmondragon/pricelist-backend/pkg/config"
	"github.com/angelmondragon/pricelist-backend/pkg/db"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
	"github.com/angelmondragon/pricelist-backend/pkg/migrate"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "migrate",
		Usage: "Manage the price list schema",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: migrate.DefaultDir, Usage: "goose migrations directory", EnvVars: []string{"PRICELIST_MIGRATIONS_DIR"}},
		},
		Before: func(*cli.Context) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			return nil
		},
		Commands: []*cli.Command{
			gooseCommand("up", "Apply all pending migrations"),
			gooseCommand("down", "Roll back the latest migration"),
			gooseCommand("status", "Print applied and pending migrations"),
			{
				Name:      "to",
				Usage:     "Migrate up or down to a version",
				ArgsUsage: "<YYYYMMDDHHMMSS>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("exactly one version is required", 2)
					}
					return withDB(c, func(ctx context.Context, sqlDB *sql.DB, dialect string) error {
						results, err := migrate.MigrateToVersion(ctx, sqlDB, dialect, c.String("dir"), c.Args().First())
						printResults(c, results)
						return err
					})
				},
			},
			{
				Name:      "create",
				Usage:     "Write an empty SQL migration",
				ArgsUsage: "<name>",
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return cli.Exit("a migration name is required", 2)
					}
					path, err := migrate.CreateSQLMigration(c.String("dir"), c.Args().First())
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, path)
					return nil
				},
			},
			{
				Name:  "validate",
				Usage: "Check migration names and goose annotations",
				Action: func(c *cli.Context) error {
					dir := c.String("dir")
					if err := migrate.ValidateDir(dir); err != nil {
						return err
					}
					files, err := migrate.ListFiles(dir)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "%d migrations ok\n", len(files))
					return nil
				},
			},
		},
	}
}

func gooseCommand(name, usage string) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Action: func(c *cli.Context) error {
			return withDB(c, func(ctx context.Context, sqlDB *sql.DB, dialect string) error {
				results, err := migrate.Run(ctx, sqlDB, dialect, c.String("dir"), name)
				printResults(c, results)
				return err
			})
		},
	}
}

func printResults(c *cli.Context, results []migrate.Result) {
	if len(results) == 0 {
		fmt.Fprintln(c.App.Writer, "nothing to do")
		return
	}
	for _, r := range results {
		fmt.Fprintln(c.App.Writer, r.String())
	}
}

func withDB(c *cli.Context, fn func(ctx context.Context, sqlDB *sql.DB, dialect string) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Output:      c.App.ErrWriter,
	})
	ctx := logg.WithFields(c.Context, map[string]any{"env": cfg.App.Env, "cmd": c.Command.Name, "dir": c.String("dir")})

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	logg.Info(ctx, "running migrations")
	return fn(ctx, sqlDB, client.Dialect())
}
