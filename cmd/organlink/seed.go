package main

import (
	"fmt"

	"organlink/internal/db"
	"organlink/internal/seed"
	"organlink/internal/store"

	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with the default accounts",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "demo-shipment",
			Usage: "Also create an in transit organ request with a tracked transport",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := c.Context
		logger := newLogger()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logger.Info("Connected to database")

		users, err := seed.SeedUsers(ctx, store.NewUserRepository(pool), logger)
		if err != nil {
			return fmt.Errorf("failed to seed users: %w", err)
		}

		if !c.Bool("demo-shipment") {
			return nil
		}

		err = seed.SeedDemoShipment(ctx, store.NewOrganRequestRepository(pool), store.NewTransportRepository(pool), users, logger)
		if err != nil {
			return fmt.Errorf("failed to seed demo shipment: %w", err)
		}

		return nil
	},
}
