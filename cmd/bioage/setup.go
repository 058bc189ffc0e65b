package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/bioage-mcp-server/internal/setup"
)

func setupCommand() *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Register the lite MCP server with Claude Desktop",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config-path",
				Usage: "client config file (defaults to the platform location)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "claude-desktop",
				Usage: "Add or update the server entry",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "binary",
						Aliases: []string{"b"},
						Usage:   "path to mcp-server-lite (searched when empty)",
					},
					&cli.StringFlag{
						Name:  "engine",
						Usage: "scoring engine the server should use",
					},
				},
				Action: setupClaudeDesktop,
			},
			{
				Name:   "remove",
				Usage:  "Remove the server entry",
				Action: setupRemove,
			},
			{
				Name:   "status",
				Usage:  "Show the current registration",
				Action: setupStatus,
			},
		},
	}
}

func setupClaudeDesktop(_ context.Context, cmd *cli.Command) error {
	path, err := setup.ConfigureClaudeDesktop(setup.Options{
		ConfigPath: cmd.String("config-path"),
		BinaryPath: cmd.String("binary"),
		DataDir:    cmd.String("data-dir"),
		OwnerID:    cmd.String("owner"),
		Engine:     cmd.String("engine"),
	})
	if err != nil {
		return fmt.Errorf("failed to configure Claude Desktop: %w", err)
	}

	w := cmd.Root().Writer
	fmt.Fprintf(w, "Registered %q in %s\n", setup.ServerName, path)
	fmt.Fprintln(w, "Restart Claude Desktop to load the new configuration.")
	return nil
}

func setupRemove(_ context.Context, cmd *cli.Command) error {
	removed, err := setup.RemoveClaudeDesktop(cmd.String("config-path"))
	if err != nil {
		return err
	}
	if removed {
		fmt.Fprintf(cmd.Root().Writer, "Removed %q\n", setup.ServerName)
	} else {
		fmt.Fprintf(cmd.Root().Writer, "%q was not registered\n", setup.ServerName)
	}
	return nil
}

func setupStatus(_ context.Context, cmd *cli.Command) error {
	status, err := setup.GetStatus(cmd.String("config-path"))
	if err != nil {
		return err
	}
	return writeJSON(cmd, status)
}
