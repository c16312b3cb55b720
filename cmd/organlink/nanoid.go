package main

import (
	"fmt"

	"organlink/internal/utils"

	"github.com/urfave/cli/v2"
)

var nanoidCommand = &cli.Command{
	Name:  "nanoid",
	Usage: "Print random ids, or temporary passwords with --hex",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"c"},
			Value:   1,
		},
		&cli.IntFlag{
			Name:  "size",
			Usage: "id length, defaults to the length used for stored rows",
		},
		&cli.BoolFlag{
			Name:  "hex",
			Usage: "print temporary passwords in the format handed to approved applicants",
		},
	},
	Action: func(c *cli.Context) error {
		for range c.Int("count") {
			if c.Bool("hex") {
				password, err := utils.TempPassword()
				if err != nil {
					return err
				}
				fmt.Println(password)
				continue
			}
			fmt.Println(utils.NanoIDSize(c.Int("size")))
		}
		return nil
	},
}
