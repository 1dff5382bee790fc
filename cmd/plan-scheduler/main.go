package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wattwise/internal/config"
	"wattwise/internal/market"
	"wattwise/internal/metrics"
	"wattwise/internal/notify"
	"wattwise/internal/pipeline"
	"wattwise/internal/scheduler"
	"wattwise/internal/source"
	"wattwise/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)
	cfg.ConfigureLogging()

	db, err := storage.OpenWith(storage.Options{Driver: cfg.DBDriver, Path: cfg.DBPath, PostgresDSN: cfg.PostgresDSN})
	must(err)
	defer db.Close()

	m := metrics.NewRegistry()
	processor, err := pipeline.NewProcessingServiceFromConfig(db, cfg, m)
	must(err)

	var refresher scheduler.MarketRefresher
	if cfg.SchedulerMarket {
		refresher = market.NewService(db, source.NewClient(cfg, m), cfg)
	}
	var reporter scheduler.Reporter
	if n := notify.NewNotifierFromConfig(cfg); n != nil {
		reporter = n
	}

	svc := scheduler.NewService(source.NewSyncService(db, cfg, m), processor, refresher, reporter, scheduler.OptionsFromConfig(cfg))
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
