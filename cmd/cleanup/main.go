// Command cleanup runs the expired and unused sweeps once and exits.
// Intended for cron-style scheduling next to, or instead of, the
// in-process scheduler.
package main

import (
	"context"
	"log"
	"time"

	"github.com/sundayezeilo/linkhub/internal/app"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx := context.Background()

	application, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer application.Shutdown()

	now := time.Now()
	threshold := time.Duration(application.Config.Cleanup.UnusedThresholdDays) * 24 * time.Hour

	expired, err := application.Service.SweepExpired(ctx, now)
	if err != nil {
		return err
	}
	application.Logger.Info("expired sweep finished",
		"succeeded", expired.Succeeded,
		"failed", expired.Failed,
	)

	unused, err := application.Service.SweepUnused(ctx, now.Add(-threshold))
	if err != nil {
		return err
	}
	application.Logger.Info("unused sweep finished",
		"succeeded", unused.Succeeded,
		"failed", unused.Failed,
	)

	return nil
}
