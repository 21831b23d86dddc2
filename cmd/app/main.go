package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/mediabridge/internal"
	pkgconfig "github.com/starford/mediabridge/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := applyOverrides(cfg, cmd.String("root"), cmd.String("storage")); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

// applyOverrides applies non-empty flag values on top of cfg and validates
// the result whenever anything was overridden.
func applyOverrides(cfg *internal.Config, root, storage string) error {
	if root == "" && storage == "" {
		return nil
	}
	if root != "" {
		cfg.Catalog.Root = root
	}
	if storage != "" {
		cfg.Catalog.Storage = storage
	}
	return cfg.Validate()
}

// runWith adapts an internal entry point to a cli action.
func runWith(entry func(context.Context, ...internal.Option) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := entry(ctx, internal.WithConfig(cfg)); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "mediabridge",
		Usage:  "Save images from a host app into a shared media catalog",
		Action: runWith(internal.Run),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "root",
				Usage:   "Media root directory (overrides catalog.root)",
				Sources: cli.EnvVars("MEDIA_ROOT"),
			},
			&cli.StringFlag{
				Name:  "storage",
				Usage: "Storage mode: auto, scoped or legacy (overrides catalog.storage)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API, SSE feed and catalog watcher",
				Action: runWith(internal.Run),
			},
			{
				Name:   "channel",
				Usage:  "Answer length-prefixed msgpack method calls on stdin/stdout",
				Action: runWith(internal.RunChannel),
			},
			{
				Name:   "mcp",
				Usage:  "Serve the bridge as MCP tools on stdin/stdout",
				Action: runWith(internal.RunMCP),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
