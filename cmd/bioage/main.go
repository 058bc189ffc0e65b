// Command bioage scores assessments, inspects local history and manages the
// server's database and MCP client registration.
package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "bioage",
		Usage: "Biological age scoring engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data-dir",
				Sources: cli.EnvVars("BIOAGE_DATA_DIR"),
				Usage:   "directory holding the local history database",
			},
			&cli.StringFlag{
				Name:    "owner",
				Sources: cli.EnvVars("BIOAGE_OWNER_ID"),
				Usage:   "owner recorded on local assessments",
			},
		},
		Commands: []*cli.Command{
			scoreCommand(),
			catalogCommand(),
			historyCommand(),
			trendCommand(),
			migrateCommand(),
			setupCommand(),
		},
	}
}
