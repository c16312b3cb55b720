package main

import (
	"fmt"

	"organlink/internal/db"
	"organlink/internal/store"
	"organlink/pkg/types"

	"github.com/k0kubun/pp/v3"
	"github.com/urfave/cli/v2"
)

var usersCommand = &cli.Command{
	Name:  "users",
	Usage: "Inspect user accounts",
	Subcommands: []*cli.Command{
		{
			Name:  "list",
			Usage: "Print every account, optionally filtered by role",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "role",
					Aliases: []string{"r"},
					Usage:   "donor, recipient, doctor or admin",
				},
			},
			Action: listUsers,
		},
	},
}

func listUsers(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := c.Context
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	repo := store.NewUserRepository(pool)

	var users []*types.User
	if raw := c.String("role"); raw != "" {
		role, err := types.ParseRole(raw)
		if err != nil {
			return err
		}
		users, err = repo.UsersByRole(ctx, role)
		if err != nil {
			return err
		}
	} else {
		users, err = repo.Users(ctx)
		if err != nil {
			return err
		}
	}

	views := make([]*types.UserView, 0, len(users))
	for _, u := range users {
		views = append(views, u.View())
	}

	_, err = pp.Println(views)
	return err
}
