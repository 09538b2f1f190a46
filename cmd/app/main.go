package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/notegraph/internal"
	"github.com/starford/notegraph/internal/linkgraph"
	"github.com/starford/notegraph/internal/notes"
	pkgconfig "github.com/starford/notegraph/pkg/config"
)

var version = "dev"

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, opts...); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

func graph(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	scope, err := linkgraph.ParseScope(cmd.String("scope"))
	if err != nil {
		return err
	}
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("collection name is required")
	}

	return internal.Inspect(ctx, func(ctx context.Context, svc *notes.Service) error {
		cs, err := svc.Collections(ctx)
		if err != nil {
			return err
		}
		var id string
		for _, c := range cs {
			if c.Name == name {
				id = c.ID
			}
		}
		if id == "" {
			return fmt.Errorf("collection %q not found", name)
		}
		view, err := svc.Graph(ctx, id, scope)
		if err != nil {
			return err
		}

		if cmd.Bool("json") {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tROLE\tCOLOR\tDEGREE\tX\tY")
		for _, n := range view.Nodes {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n", n.Label, n.Role, n.Color, n.Degree, n.X, n.Y)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Printf("%d nodes, %d edges, %dx%d\n", len(view.Nodes), len(view.Edges), view.Width, view.Height)
		return nil
	}, opts...)
}

func stats(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.Inspect(ctx, func(ctx context.Context, svc *notes.Service) error {
		st, err := svc.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("collections:  %s\n", humanize.Comma(int64(st.Collections)))
		fmt.Printf("documents:    %s\n", humanize.Comma(int64(st.Documents)))
		fmt.Printf("links:        %s\n", humanize.Comma(int64(st.Links)))
		fmt.Printf("broken links: %s\n", humanize.Comma(int64(st.BrokenLinks)))
		fmt.Printf("content:      %s\n", humanize.Bytes(uint64(st.Bytes)))
		for _, name := range st.Ambiguous {
			fmt.Printf("ambiguous:    %s\n", name)
		}
		return nil
	}, opts...)
}

func main() {
	cmd := &cli.Command{
		Name:    "notegraph",
		Usage:   "Link graph engine for Markdown notes with [[wikilinks]]",
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
				Usage:  "Run the HTTP API and vault watcher",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: mcp,
			},
			{
				Name:      "graph",
				Usage:     "Print the laid-out graph of a collection",
				ArgsUsage: "<collection>",
				Action:    graph,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "scope",
						Usage: "local or global",
						Value: string(linkgraph.ScopeLocal),
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the view as JSON",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Print vault statistics",
				Action: stats,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
