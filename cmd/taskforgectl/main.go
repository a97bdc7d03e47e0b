// Command taskforgectl is the short-lived CLI front-end for the engine:
// every subcommand except worker start opens the configured store,
// performs one operation, and exits. worker start is the one long-running
// exception, blocking in the foreground until a stop signal arrives.
package main

import (
	"context"
	"fmt"
	"os"

	configs "github.com/taskforge/taskforge/configs"
	"github.com/taskforge/taskforge/pkg/logger"
	"github.com/taskforge/taskforge/pkg/storage"
	"github.com/taskforge/taskforge/pkg/storage/sqlite"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 1
	}

	cfg, err := configs.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		return 1
	}

	if _, err := logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		Encoding:   cfg.LogEncoding,
		OutputPath: "stdout",
		Service:    "taskforgectl",
	}); err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		return 1
	}

	cmd, rest := args[0], args[1:]
	ctx := context.Background()

	switch cmd {
	case "enqueue":
		return withStore(cfg, func(store storage.JobStore) int { return cmdEnqueue(ctx, store, cfg, rest) })
	case "worker":
		return cmdWorker(ctx, cfg, rest)
	case "status":
		return withStore(cfg, func(store storage.JobStore) int { return cmdStatus(ctx, store, rest) })
	case "list":
		return withStore(cfg, func(store storage.JobStore) int { return cmdList(ctx, store, rest) })
	case "dlq":
		return withStore(cfg, func(store storage.JobStore) int { return cmdDLQ(ctx, store, rest) })
	case "config":
		return cmdConfig(cfg, rest)
	case "help", "-h", "--help":
		usage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		usage()
		return 1
	}
}

func withStore(cfg *configs.Config, fn func(storage.JobStore) int) int {
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open store:", err)
		return 1
	}
	defer store.Close()
	return fn(store)
}

func usage() {
	fmt.Fprintln(os.Stderr, `taskforgectl <command> [flags]

Commands:
  enqueue <json>                 insert a new job
  worker start [--count N]       run the worker pool in the foreground
  worker stop                    signal a foreground worker pool to stop
  status                         print store and pool status
  list [--state S] [--limit L]   list jobs
  dlq list [--limit L]           list dead-lettered jobs
  dlq retry <id>                 reset a dead job back to pending
  config show                    print effective configuration
  config set <key> <value>       persist a configuration override`)
}
