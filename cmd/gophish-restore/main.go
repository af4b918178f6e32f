// Package main provides the entry point for the gophish-restore CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/randalmurphal/gophish-backup/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.ExecuteRestore(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
