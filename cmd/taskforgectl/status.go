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

// cmdStatus prints store-level counts. A short-lived CLI process opens its
// own store handle per invocation and never sees a running pool's
// in-memory state, so this reflects persisted job counts only, not live
// worker activity.
func cmdStatus(ctx context.Context, store storage.JobStore, args []string) int {
	stats, err := store.Stats(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "stats:", err)
		return 1
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(stats); err != nil {
		fmt.Fprintln(os.Stderr, "encode stats:", err)
		return 1
	}
	return 0
}

func cmdList(ctx context.Context, store storage.JobStore, args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	stateFlag := fs.String("state", "", "filter by state (pending|processing|failed|completed|dead)")
	limit := fs.Int("limit", 0, "max rows (0 = unbounded)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	var state *models.State
	if *stateFlag != "" {
		s := models.State(*stateFlag)
		state = &s
	}

	jobs, err := store.List(ctx, state, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
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
