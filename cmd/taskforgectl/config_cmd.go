package main

import (
	"encoding/json"
	"fmt"
	"os"

	configs "github.com/taskforge/taskforge/configs"
)

func cmdConfig(cfg *configs.Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: taskforgectl config <show|set> [args]")
		return 1
	}

	switch args[0] {
	case "show":
		return cmdConfigShow(cfg)
	case "set":
		return cmdConfigSet(cfg, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown config subcommand %q\n", args[0])
		return 1
	}
}

func cmdConfigShow(cfg *configs.Config) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "encode config:", err)
		return 1
	}
	return 0
}

func cmdConfigSet(cfg *configs.Config, args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: taskforgectl config set <key> <value>")
		return 1
	}
	if err := cfg.Set(args[0], args[1]); err != nil {
		fmt.Fprintln(os.Stderr, "set:", err)
		return 1
	}
	return 0
}
