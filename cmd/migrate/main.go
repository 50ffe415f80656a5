// Command migrate prepares a store without starting the API: it applies the
// SQL migrations for sqlite or postgres and, with -seed, creates the demo
// accounts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/geocoder89/taskhub/internal/app"
	"github.com/geocoder89/taskhub/internal/config"
	"github.com/geocoder89/taskhub/internal/observability"
)

func main() {
	seed := flag.Bool("seed", false, "create the demo accounts after migrating")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	// OpenStore migrates sqlite and postgres on the way in.
	store, err := app.OpenStore(ctx, cfg, nil)
	if err != nil {
		log.Error("migrate failed", "err", err, "mode", cfg.StoreMode)
		os.Exit(1)
	}
	defer store.Close()

	if *seed {
		if err := app.Seed(ctx, cfg, store); err != nil {
			log.Error("seed failed", "err", err)
			os.Exit(1)
		}
		log.Info("demo accounts seeded")
	}

	log.Info("store ready", "mode", cfg.StoreMode)
}
