// Command migrate-projects moves documents of the legacy projects collection
// into the tickets collection, keeping their IDs.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/Lllllllleong/fieldservice/internal/logging"
	"github.com/Lllllllleong/fieldservice/internal/services"
)

func main() {
	logging.Setup(os.Getenv("LOG_FORMAT"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("Migration failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	runtime, err := services.NewRuntime(ctx)
	if err != nil {
		return err
	}
	defer runtime.Close()

	moved, err := runtime.Tickets.MigrateLegacyProjects(ctx)
	slog.Info("Migration finished", "moved", moved)
	return err
}
