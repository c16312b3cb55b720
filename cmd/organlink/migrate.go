package main

import (
	"context"
	"fmt"

	"organlink/internal/db"

	"github.com/urfave/cli/v2"
)

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "Manage the database schema",
	Subcommands: []*cli.Command{
		{
			Name:  "up",
			Usage: "Apply pending migrations",
			Action: func(c *cli.Context) error {
				return withMigrator(c.Context, func(ctx context.Context, m *db.Migrator) error {
					return m.Up(ctx)
				})
			},
		},
		{
			Name:  "down",
			Usage: "Roll back the most recent migration",
			Action: func(c *cli.Context) error {
				return withMigrator(c.Context, func(ctx context.Context, m *db.Migrator) error {
					return m.Down(ctx)
				})
			},
		},
		{
			Name:  "status",
			Usage: "List applied migrations",
			Action: func(c *cli.Context) error {
				return withMigrator(c.Context, func(ctx context.Context, m *db.Migrator) error {
					applied, err := m.Applied(ctx)
					if err != nil {
						return err
					}
					for _, name := range applied {
						fmt.Println(name)
					}
					return nil
				})
			},
		},
	},
}

func withMigrator(ctx context.Context, fn func(ctx context.Context, m *db.Migrator) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, db.NewMigrator(pool, newLogger()))
}
