package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/chrono/internal"
	pkgconfig "github.com/starford/chrono/pkg/config"
)

const defaultConfigPath = "config/config.yaml"

// loadConfig reads the config file and applies the command line overrides.
// The default file is optional; an explicitly given one must exist.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	configPath := cmd.String("config")
	if cmd.IsSet("config") {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cmd.IsSet("log-level") {
		if err := cfg.App.LogLevel.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
			return nil, fmt.Errorf("invalid --log-level: %w", err)
		}
	}
	if cmd.IsSet("log-format") {
		cfg.App.LogFormat = cmd.String("log-format")
	}
	if path := cmd.Args().First(); path != "" {
		cfg.Content.Root = path
	}
	if cmd.IsSet("unattended") {
		cfg.Run.Unattended = cmd.Bool("unattended")
	}
	if cmd.IsSet("check") {
		cfg.Run.CheckOnly = cmd.Bool("check")
	}
	if cmd.IsSet("allow-dirty") {
		cfg.VCS.AllowDirty = cmd.Bool("allow-dirty")
	}
	if cmd.IsSet("allow-no-vcs") {
		cfg.VCS.AllowNoVCS = cmd.Bool("allow-no-vcs")
	}
	if cmd.IsSet("workers") {
		cfg.Run.Workers = int(cmd.Int("workers"))
	}
	if cmd.IsSet("ledger") {
		cfg.Ledger.Path = cmd.String("ledger")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// withConfig adapts an internal entry point to a cli action.
func withConfig(entry func(context.Context, ...internal.Option) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return entry(ctx, internal.WithConfig(cfg))
	}
}

func history(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.History(ctx, int(cmd.Int("limit")), internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:      "chrono",
		Usage:     "Keep the date and updated front matter of Markdown documents in line with git history",
		ArgsUsage: "[PATH]",
		Action:    withConfig(internal.Run),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: defaultConfigPath,
				Value:       defaultConfigPath,
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log format (json, text)",
			},
			&cli.BoolFlag{
				Name:    "unattended",
				Aliases: []string{"u"},
				Usage:   "Do not ask for confirmation before writing",
			},
			&cli.BoolFlag{
				Name:  "check",
				Usage: "Report files that would change without writing them (exit code 2 when any would)",
			},
			&cli.BoolFlag{
				Name:  "allow-dirty",
				Usage: "Run even when the work tree has uncommitted changes",
			},
			&cli.BoolFlag{
				Name:  "allow-no-vcs",
				Usage: "Run even when the content root is not in a git work tree",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of files processed concurrently",
			},
			&cli.StringFlag{
				Name:  "ledger",
				Usage: "Path of the SQLite run ledger (empty disables it)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Reconcile the dates of every document under PATH (default)",
				ArgsUsage: "[PATH]",
				Action:    withConfig(internal.Run),
			},
			{
				Name:   "history",
				Usage:  "Show recent runs from the ledger",
				Action: history,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of runs to show",
						Value: 20,
					},
				},
			},
			{
				Name:      "serve",
				Usage:     "Serve the run ledger and dry-run checks over HTTP",
				ArgsUsage: "[PATH]",
				Action:    withConfig(internal.Serve),
			},
			{
				Name:      "watch",
				Usage:     "Log what a run would change as documents are edited",
				ArgsUsage: "[PATH]",
				Action:    withConfig(internal.Watch),
			},
			{
				Name:      "mcp",
				Usage:     "Serve date checks and run history as MCP tools on stdio",
				ArgsUsage: "[PATH]",
				Action:    withConfig(internal.ServeMCP),
			},
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	switch {
	case err == nil:
	case errors.Is(err, internal.ErrPendingChanges):
		slog.Info("check finished", slog.String("result", err.Error()))
		os.Exit(2)
	default:
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
