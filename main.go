package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"elmo_middleware/internal/admin"
	"elmo_middleware/internal/config"
	"elmo_middleware/internal/node"
	"elmo_middleware/pkg"
	"elmo_middleware/src"
	"elmo_middleware/src/logger"
	"elmo_middleware/src/storage"

	"github.com/bytedance/sonic"
	"github.com/docopt/docopt-go"
)

const MiddlewareVersion = "0.1.0"

const usage = `Middleware administration.

Usage:
    middleware list [--redis=<url>]
    middleware killall [--redis=<url>]
    middleware status [--redis=<url>]
    middleware shutdown <name> [--redis=<url>]
    middleware force_shutdown <name> [--redis=<url>]
    middleware prune [--redis=<url>]
    middleware state [--redis=<url>]
    middleware monitor [<prefix>...] [--redis=<url>]
    middleware load <file>... [--redis=<url>]
    middleware reset [--redis=<url>]
    middleware -h | --help
    middleware --version

Options:
    -h --help       Show this screen.
    --version       Show version.
    --redis=<url>   Store url, overrides REDIS_URL.`

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stdout, stderr)
	if err != nil {
		return 1
	}
	if opts == nil {
		return 0
	}

	cfg, err := src.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if err := logger.InitLogger(cfg.LogConfig); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	redisURL := cfg.RedisConfig.URL
	if url, ok := opts["--redis"].(string); ok && url != "" {
		redisURL = url
	}
	store, err := storage.NewRedisStore(ctx, redisURL)
	if err != nil {
		logger.Error().Err(err).Str("url", redisURL).Msg("Failed to connect to store")
		return 1
	}
	defer store.Close()

	if err := dispatch(ctx, opts, cfg, store, stdout); err != nil {
		logger.Error().Err(err).Msg("Command failed")
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// parseArgs parses the command line. Usage and help text is written by the
// parser; nil options without error mean help or version was printed.
func parseArgs(args []string, stdout, stderr io.Writer) (docopt.Opts, error) {
	helped := false
	parser := &docopt.Parser{
		HelpHandler: func(err error, output string) {
			helped = true
			if err != nil {
				fmt.Fprintln(stderr, output)
				return
			}
			fmt.Fprintln(stdout, output)
		},
	}
	opts, err := parser.ParseArgs(usage, args, MiddlewareVersion)
	if err != nil {
		if !helped {
			fmt.Fprintln(stderr, err)
		}
		return nil, fmt.Errorf("%w: %w", pkg.ErrUsage, err)
	}
	if helped {
		return nil, nil
	}
	return opts, nil
}

func dispatch(ctx context.Context, opts docopt.Opts, cfg *src.Config, store storage.Store, stdout io.Writer) error {
	manager := node.NewManager(store, node.WithKillGrace(cfg.NodeConfig.KillGrace))

	if list, _ := opts.Bool("list"); list {
		names, err := manager.ListNodes(ctx)
		if err != nil {
			return err
		}
		return printJSON(stdout, names)
	} else if killall, _ := opts.Bool("killall"); killall {
		return manager.KillAll(ctx)
	} else if status, _ := opts.Bool("status"); status {
		statuses, err := manager.Statuses(ctx)
		if err != nil {
			return err
		}
		return printJSON(stdout, statuses)
	} else if shutdown, _ := opts.Bool("shutdown"); shutdown {
		name, _ := opts.String("<name>")
		return manager.RequestShutdown(ctx, name)
	} else if force, _ := opts.Bool("force_shutdown"); force {
		name, _ := opts.String("<name>")
		return manager.ForceShutdown(ctx, name)
	} else if prune, _ := opts.Bool("prune"); prune {
		pruned, err := manager.PruneStale(ctx)
		if err != nil {
			return err
		}
		if pruned == nil {
			pruned = []string{}
		}
		return printJSON(stdout, pruned)
	} else if state, _ := opts.Bool("state"); state {
		return admin.Dump(ctx, store, stdout)
	} else if monitor, _ := opts.Bool("monitor"); monitor {
		prefixes, _ := opts["<prefix>"].([]string)
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		return admin.Monitor(ctx, store, stdout, cfg.NodeConfig.MonitorInterval, prefixes...)
	} else if load, _ := opts.Bool("load"); load {
		files, _ := opts["<file>"].([]string)
		for _, file := range files {
			seed, err := config.LoadSeed(file)
			if err != nil {
				return err
			}
			if err := admin.Seed(ctx, store, seed); err != nil {
				return err
			}
			logger.Info().Str("file", file).Int("keys", len(seed)).Msg("Seed loaded")
		}
		return nil
	} else if reset, _ := opts.Bool("reset"); reset {
		return admin.Reset(ctx, store)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
