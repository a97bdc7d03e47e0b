package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	configs "github.com/taskforge/taskforge/configs"
	"github.com/taskforge/taskforge/pkg/executor"
	"github.com/taskforge/taskforge/pkg/logger"
	"github.com/taskforge/taskforge/pkg/metrics"
	"github.com/taskforge/taskforge/pkg/scheduler"
	"github.com/taskforge/taskforge/pkg/storage/sqlite"
	"github.com/taskforge/taskforge/pkg/workerpool"
)

const pidFileName = "taskforgectl.pid"

func cmdWorker(ctx context.Context, cfg *configs.Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: taskforgectl worker <start|stop>")
		return 1
	}

	switch args[0] {
	case "start":
		return cmdWorkerStart(ctx, cfg, args[1:])
	case "stop":
		return cmdWorkerStop(cfg)
	default:
		fmt.Fprintf(os.Stderr, "unknown worker subcommand %q\n", args[0])
		return 1
	}
}

// cmdWorkerStart blocks in the foreground running the pool until a stop
// signal arrives, either from the OS or from a sibling `worker stop`
// invocation via the recorded PID file: a fresh CLI process has no way to
// reach another process's in-memory worker goroutines directly.
func cmdWorkerStart(ctx context.Context, cfg *configs.Config, args []string) int {
	fs := flag.NewFlagSet("worker start", flag.ContinueOnError)
	count := fs.Int("count", 0, "number of workers (omit to auto-size from host CPU count)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	countSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "count" {
			countSet = true
		}
	})
	if countSet && *count < 1 {
		fmt.Fprintln(os.Stderr, "count must be >= 1")
		return 1
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open store:", err)
		return 1
	}
	defer store.Close()

	if err := writePIDFile(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "write pid file:", err)
		return 1
	}
	defer removePIDFile(cfg)

	sched := scheduler.New(store, scheduler.Config{BackoffBase: cfg.BackoffBase})
	exec := executor.New(logger.Get())
	collector := metrics.NewCollector()
	pool := workerpool.New(
		store, store, sched, exec, collector,
		time.Duration(cfg.WorkerPollInterval)*time.Second,
		cfg.StaleProcessingAfter,
		logger.Get(),
	)

	if err := pool.RunWithSignalHandling(ctx, *count, 10*time.Second); err != nil {
		fmt.Fprintln(os.Stderr, "worker pool:", err)
		return 1
	}
	return 0
}

// cmdWorkerStop signals the process recorded in the PID file to stop.
// SIGTERM is handled by RunWithSignalHandling's own signal.Notify, so this
// reuses the same graceful shutdown path a direct Ctrl-C would trigger.
func cmdWorkerStop(cfg *configs.Config) int {
	pid, err := readPIDFile(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "no running worker pool found:", err)
		return 1
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		fmt.Fprintln(os.Stderr, "signal worker pool:", err)
		return 1
	}
	fmt.Printf("sent stop signal to pid %d\n", pid)
	return 0
}

func pidFilePath(cfg *configs.Config) string {
	return cfg.LogDir + string(os.PathSeparator) + pidFileName
}

func writePIDFile(cfg *configs.Config) error {
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(pidFilePath(cfg), []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func removePIDFile(cfg *configs.Config) {
	_ = os.Remove(pidFilePath(cfg))
}

func readPIDFile(cfg *configs.Config) (int, error) {
	data, err := os.ReadFile(pidFilePath(cfg))
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}
