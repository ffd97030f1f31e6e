package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alanyang/projects-sync/internal/cli"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cli.NewRootCommand(version).ExecuteContext(ctx); err != nil {
		slog.Error("projects-sync failed", "error", err)
		cancel()
		os.Exit(1)
	}
}
