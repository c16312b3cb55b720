package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "organlink",
		Usage: "Organ donation coordination API",
		Commands: []*cli.Command{
			serveCommand,
			migrateCommand,
			seedCommand,
			usersCommand,
			archiveAuditCommand,
			nanoidCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("application failed")
	}
}
