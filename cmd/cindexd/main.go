// Command cindexd is the CLI front end for the persistent code-index
// daemon: start it against a source tree, feed it compile commands,
// and ask it follow-location/references-for-name/list-symbols/
// validate-db questions over its Unix-socket control API. Grounded on
// cmd/lci/main.go's flag layout (global --root/--config/
// --include/--exclude, one cli.App with subcommands), restyled around
// this tree's much smaller compile/query/status/stop surface instead
// of a search/mcp/git-analyze command set.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/cindexd/cindexd/internal/config"
	"github.com/cindexd/cindexd/internal/debug"
	"github.com/cindexd/cindexd/internal/messages"
	"github.com/cindexd/cindexd/internal/project"
)

func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	configPath := c.String("config")
	root := c.String("root")
	if root != "" && configPath == ".cindexd.kdl" {
		configPath = filepath.Join(root, ".cindexd.kdl")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
	}

	if includes := c.StringSlice("include"); len(includes) > 0 {
		cfg.Include = includes
	}
	if excludes := c.StringSlice("exclude"); len(excludes) > 0 {
		cfg.Exclude = append(cfg.Exclude, excludes...)
	}
	if root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolving root %q: %w", root, err)
		}
		cfg.Project.Root = abs
	}

	return cfg, nil
}

func socketForConfig(cfg *config.Config) string {
	return project.SocketPathForRoot(cfg.Project.Root)
}

func main() {
	app := &cli.App{
		Name:                   "cindexd",
		Usage:                  "persistent code-intelligence index for C/C++",
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file path",
				Value:   ".cindexd.kdl",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "project root directory (overrides config)",
			},
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "include files matching glob patterns",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "exclude files matching glob patterns",
			},
		},
		Commands: []*cli.Command{
			indexCommand(),
			compileCommand(),
			queryCommand(),
			statusCommand(),
			stopCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "cindexd:", err)
		os.Exit(1)
	}
}

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "start the index daemon for a project root",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}

			p, err := project.Open(cfg)
			if err != nil {
				return fmt.Errorf("opening project: %w", err)
			}

			if err := p.StartWatch(); err != nil {
				return fmt.Errorf("starting watcher: %w", err)
			}

			srv := project.NewServer(p, socketForConfig(cfg))
			if err := srv.Start(); err != nil {
				return fmt.Errorf("starting control server: %w", err)
			}

			debug.LogIndex("cindexd ready for %s on %s", cfg.Project.Root, srv.SocketPath())

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig

			debug.LogIndex("shutting down")
			return p.Close()
		},
	}
}

func compileCommand() *cli.Command {
	return &cli.Command{
		Name:      "compile",
		Usage:     "send one compile command to a running daemon",
		ArgsUsage: "<path> -- <compiler args...>",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			args := c.Args().Slice()
			if len(args) == 0 {
				return fmt.Errorf("compile requires a path")
			}
			path := args[0]
			compilerArgs := args[1:]

			client := project.NewClient(socketForConfig(cfg))
			return client.Compile(path, compilerArgs)
		},
	}
}

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "run one read-only query against a running daemon",
		Subcommands: []*cli.Command{
			queryKindCommand("follow-location", messages.QueryFollowLocation),
			queryKindCommand("references-for-name", messages.QueryReferencesForName),
			queryKindCommand("list-symbols", messages.QueryListSymbols),
			queryKindCommand("validate-db", messages.QueryValidateDB),
		},
	}
}

func queryKindCommand(name string, kind messages.QueryKind) *cli.Command {
	return &cli.Command{
		Name:      name,
		ArgsUsage: "<query>",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}

			client := project.NewClient(socketForConfig(cfg))
			answer, err := client.Query(messages.QueryMessage{Kind: kind, Query: c.Args().First()})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(answer)
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "report a running daemon's current state",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}

			client := project.NewClient(socketForConfig(cfg))
			status, err := client.Status()
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(status)
		},
	}
}

func stopCommand() *cli.Command {
	return &cli.Command{
		Name:  "stop",
		Usage: "ask a running daemon to shut down",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			client := project.NewClient(socketForConfig(cfg))
			return client.Shutdown()
		},
	}
}
