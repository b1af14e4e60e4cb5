// Command gdsctl runs graph catalog operations against a graph data science
// server from the shell.
//
// Usage:
//
//	gdsctl [flags] <command> [args]
//
// Commands:
//
//	version   - client and server versions
//	graph     - list, inspect, drop, project and construct graphs
//	model     - list and inspect models
//	system    - progress, monitoring and debug information
//	call      - invoke any procedure by its dotted path
//
// Configuration is read from GDS_* environment variables and an optional
// .env file; see internal/config.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, newApp(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
