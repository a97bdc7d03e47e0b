package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	configs "github.com/taskforge/taskforge/configs"
	"github.com/taskforge/taskforge/pkg/models"
	"github.com/taskforge/taskforge/pkg/storage"
)

// enqueueRequest is the strict schema for `enqueue <json>`: unknown fields
// are rejected outright rather than silently ignored. MaxRetries is a
// pointer so an absent field can be told apart from an explicit 0, letting
// cmdEnqueue fall back to the configured default instead of always zeroing
// it out.
type enqueueRequest struct {
	ID         string     `json:"id"`
	Command    string     `json:"command"`
	MaxRetries *int       `json:"max_retries"`
	Priority   int        `json:"priority"`
	RunAt      *time.Time `json:"run_at"`
	Timeout    int        `json:"timeout"`
}

func cmdEnqueue(ctx context.Context, store storage.JobStore, cfg *configs.Config, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: taskforgectl enqueue <json>")
		return 1
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(args[0])))
	dec.DisallowUnknownFields()

	var req enqueueRequest
	if err := dec.Decode(&req); err != nil {
		fmt.Fprintln(os.Stderr, "invalid job payload:", err)
		return 1
	}
	if req.ID == "" || req.Command == "" {
		fmt.Fprintln(os.Stderr, "id and command are required")
		return 1
	}

	maxRetries := cfg.MaxRetries
	if req.MaxRetries != nil {
		maxRetries = *req.MaxRetries
	}

	job := &models.Job{
		ID:         req.ID,
		Command:    req.Command,
		State:      models.StatePending,
		MaxRetries: maxRetries,
		Priority:   req.Priority,
		RunAt:      req.RunAt,
		Timeout:    req.Timeout,
	}

	if err := store.Insert(ctx, job); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			fmt.Fprintf(os.Stderr, "job %q already exists\n", req.ID)
		} else {
			fmt.Fprintln(os.Stderr, "enqueue failed:", err)
		}
		return 1
	}

	fmt.Println(job.ID)
	return 0
}
