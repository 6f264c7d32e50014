package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/checkmark/internal"
	pkgconfig "github.com/starford/checkmark/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func list(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithOutput(os.Stdout),
	}
	if path := cmd.String("block"); path != "" {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read block: %w", err)
		}
		opts = append(opts, internal.WithBlock(string(src)))
	}

	if err := internal.RunList(ctx, opts...); err != nil {
		return fmt.Errorf("list error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("mcp error: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "checkmark",
		Usage:   "Collect Markdown checkbox tasks from a vault into filtered, sorted views",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the task view over HTTP with live rescans",
				Action: serve,
			},
			{
				Name:   "list",
				Usage:  "Scan once and print the task view",
				Action: list,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "block",
						Aliases: []string{"b"},
						Usage:   "Path to a file holding a view block",
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve task tools to an MCP client over stdio",
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
