package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"wattwise/internal"
	"wattwise/internal/api"
	"wattwise/internal/config"
	"wattwise/internal/market"
	"wattwise/internal/metrics"
	"wattwise/internal/pipeline"
	"wattwise/internal/source"
	"wattwise/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)
	cfg.ConfigureLogging()

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := os.Args[1]
	args := os.Args[2:]
	switch cmd {
	case "plans:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "output csv path")
		_ = fs.Parse(args)
		if strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--out is required"))
		}
		blob, err := source.NewClient(cfg, nil).FetchExport(ctx)
		must(err)
		must(os.MkdirAll(filepath.Dir(*out), 0o755))
		must(os.WriteFile(*out, blob, 0o644))
		fmt.Printf("fetched %d bytes to %s\n", len(blob), *out)
	case "plans:sync":
		db := openDB(cfg)
		defer db.Close()
		res, err := source.NewSyncService(db, cfg, nil).Sync(ctx)
		must(err)
		fmt.Printf("sync done hash=%s bytes=%d fresh=%t path=%s\n", res.Snapshot.Hash, res.Snapshot.SizeBytes, res.Fresh, res.Snapshot.RawRef)
	case "plans:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "input file path (default: latest synced snapshot)")
		inType := fs.String("type", "", "csv|xlsx|html (default: by extension)")
		_ = fs.Parse(args)
		db := openDB(cfg)
		defer db.Close()
		path := *input
		if strings.TrimSpace(path) == "" {
			snap, err := db.LatestSnapshot(ctx, internal.SourcePowerToChoose)
			if errors.Is(err, storage.ErrNotFound) {
				must(fmt.Errorf("no synced snapshot; run plans:sync or pass --input"))
			}
			must(err)
			path = snap.RawRef
		}
		svc, err := pipeline.NewProcessingServiceFromConfig(db, cfg, nil)
		must(err)
		res, err := svc.ProcessFile(ctx, *inType, path)
		printRun(res)
		must(err)
	case "plans:export":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "output xlsx path")
		tdu := fs.String("tdu", "", "delivery utility code")
		minScore := fs.Int("min-score", 0, "minimum transparency score")
		noGotcha := fs.Bool("exclude-gotcha", false, "drop plans whose price varies by usage")
		limit := fs.Int("limit", 0, "max plans (0 = all)")
		_ = fs.Parse(args)
		if strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--out is required"))
		}
		db := openDB(cfg)
		defer db.Close()
		svc, err := pipeline.NewProcessingServiceFromConfig(db, cfg, nil)
		must(err)
		n, err := svc.ExportSnapshot(ctx, *out, storage.PlanQuery{
			Source:        internal.SourcePowerToChoose,
			TDU:           strings.ToUpper(*tdu),
			MinScore:      *minScore,
			ExcludeGotcha: *noGotcha,
			Limit:         *limit,
		})
		must(err)
		fmt.Printf("exported %d plans to %s\n", n, *out)
	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "input file path")
		inType := fs.String("type", "", "csv|xlsx|html (default: by extension)")
		output := fs.String("output", "", "output xlsx path")
		_ = fs.Parse(args)
		if *input == "" || *output == "" {
			must(fmt.Errorf("--input --output are required"))
		}
		records, err := pipeline.ExtractRecordsFromInput(*inType, *input)
		must(err)
		engine, err := pipeline.NewEngineFromConfig(cfg)
		must(err)
		filter, err := pipeline.NewPublishFilter(cfg.PublishFilter)
		must(err)
		res, err := engine.Run(records)
		printStats(res.Stats)
		must(err)
		published, err := filter.Apply(res.Plans)
		must(err)
		ranked := pipeline.RankPlans(published)
		must(pipeline.ExportPlansToXLSX(ranked, *output))
		fmt.Printf("run done plans=%d output=%s\n", len(ranked), *output)
	case "efl:scan":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "EFL pdf path")
		_ = fs.Parse(args)
		if *input == "" {
			must(fmt.Errorf("--input is required"))
		}
		report, err := pipeline.ScanEFLFile(*input)
		must(err)
		printEFL(report)
	case "market:refresh":
		db := openDB(cfg)
		defer db.Close()
		snap, err := market.NewService(db, source.NewClient(cfg, nil), cfg).Refresh(ctx)
		must(err)
		fmt.Printf("market refreshed status=%s signal=%q\n", snap.Summary.WholesaleStatus, snap.Summary.MarketSignal)
	case "runs:latest":
		db := openDB(cfg)
		defer db.Close()
		run, err := db.LatestRun(ctx)
		must(err)
		fmt.Printf("run id=%s status=%s seen=%d accepted=%d published=%d at=%s\n",
			run.ID, run.Status, run.Stats.Seen, run.Stats.Accepted, run.Published, run.CreatedAt)
		if run.Error != "" {
			fmt.Printf("error: %s\n", run.Error)
		}
	case "serve":
		db := openDB(cfg)
		defer db.Close()
		srv := api.NewServer(cfg.APIAddr(), db, metrics.NewRegistry())
		go func() {
			<-ctx.Done()
			shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			defer stop()
			_ = srv.Shutdown(shutdownCtx)
		}()
		log.Info().Str("addr", cfg.APIAddr()).Msg("api listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			must(err)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func openDB(cfg config.Config) *storage.DB {
	db, err := storage.OpenWith(storage.Options{Driver: cfg.DBDriver, Path: cfg.DBPath, PostgresDSN: cfg.PostgresDSN})
	must(err)
	return db
}

func printRun(res pipeline.ProcessResult) {
	fmt.Printf("run id=%s status=%s\n", res.RunID, res.Status)
	printStats(res.Stats)
	if res.Status == storage.RunStatusOK {
		fmt.Printf("published=%d deleted=%d inserted=%d\n", res.Published, res.Replace.Deleted, res.Replace.Inserted)
	}
}

func printStats(stats internal.RunStats) {
	fmt.Printf("seen=%d accepted=%d rejected=%d\n", stats.Seen, stats.Accepted, stats.TotalRejected())
	for _, reason := range stats.Reasons() {
		fmt.Printf("  %s=%d\n", reason, stats.Rejected[reason])
	}
}

func printEFL(r pipeline.EFLReport) {
	fp := r.FinePrint
	fmt.Printf("efl %s pages=%d flags=%s\n", r.Path, r.Pages, strings.Join(fp.Flags, ","))
	if fp.RebateAmount != nil {
		fmt.Printf("  rebate=$%s\n", fp.RebateAmount.StringFixed(2))
	}
	if fp.BaseChargeAmount != nil {
		fmt.Printf("  base_charge=$%s\n", fp.BaseChargeAmount.StringFixed(2))
	}
	if fp.MinUsageKWh != nil {
		fmt.Printf("  min_usage_kwh=%d\n", *fp.MinUsageKWh)
	}
	if fp.HasPassThrough {
		fmt.Println("  pass_through=true")
	}
}

func usage() {
	fmt.Println("usage: wattwise <command>")
	fmt.Println("commands:")
	fmt.Println("  plans:fetch --out=./data/export.csv")
	fmt.Println("  plans:sync")
	fmt.Println("  plans:process [--input=...] [--type=csv|xlsx|html]")
	fmt.Println("  plans:export --out=./out/plans.xlsx [--tdu=ONCOR] [--min-score=70] [--exclude-gotcha] [--limit=100]")
	fmt.Println("  run --input=... [--type=csv|xlsx|html] --output=...xlsx")
	fmt.Println("  efl:scan --input=efl.pdf")
	fmt.Println("  market:refresh")
	fmt.Println("  runs:latest")
	fmt.Println("  serve")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
