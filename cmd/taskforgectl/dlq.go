package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/taskforge/taskforge/pkg/models"
	"github.com/taskforge/taskforge/pkg/storage"
)

func cmdDLQ(ctx context.Context, store storage.JobStore, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: taskforgectl dlq <list|retry> [args]")
		return 1
	}

	switch args[0] {
	case "list":
		return cmdDLQList(ctx, store, args[1:])
	case "retry":
		return cmdDLQRetry(ctx, store, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown dlq subcommand %q\n", args[0])
		return 1
	}
}

func cmdDLQList(ctx context.Context, store storage.JobStore, args []string) int {
	fs := flag.NewFlagSet("dlq list", flag.ContinueOnError)
	limit := fs.Int("limit", 0, "max rows (0 = unbounded)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	dead := models.StateDead
	jobs, err := store.List(ctx, &dead, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list dlq:", err)
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jobs); err != nil {
		fmt.Fprintln(os.Stderr, "encode jobs:", err)
		return 1
	}
	return 0
}

// cmdDLQRetry resets a dead job back to pending with a clean retry budget.
// Exits 1 if the id is absent or not currently dead, matching ResetFromDLQ's
// (nil, nil) "no-op" return.
func cmdDLQRetry(ctx context.Context, store storage.JobStore, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: taskforgectl dlq retry <id>")
		return 1
	}

	job, err := store.ResetFromDLQ(ctx, args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "retry:", err)
		return 1
	}
	if job == nil {
		fmt.Fprintf(os.Stderr, "job %q not found or not dead\n", args[0])
		return 1
	}

	fmt.Println(job.ID)
	return 0
}
