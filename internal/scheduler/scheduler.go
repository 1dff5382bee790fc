package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"wattwise/internal"
	"wattwise/internal/config"
	"wattwise/internal/market"
	"wattwise/internal/notify"
	"wattwise/internal/pipeline"
	"wattwise/internal/source"
	"wattwise/internal/storage"
)

type Syncer interface {
	Sync(ctx context.Context) (source.SyncResult, error)
}

type Processor interface {
	ProcessFile(ctx context.Context, inputType, path string) (pipeline.ProcessResult, error)
	ExportSnapshot(ctx context.Context, outputPath string, q storage.PlanQuery) (int, error)
}

type MarketRefresher interface {
	Refresh(ctx context.Context) (market.Snapshot, error)
}

type Reporter interface {
	Send(r notify.Report) error
}

type Options struct {
	Interval   time.Duration
	AutoExport bool
	OutputDir  string
}

func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Interval:   time.Duration(cfg.SchedulerIntervalMin) * time.Minute,
		AutoExport: cfg.SchedulerAutoExport,
		OutputDir:  cfg.OutputDir,
	}
}

// Service runs sync, process, export, market refresh and report on a fixed
// interval until its context ends.
type Service struct {
	syncer    Syncer
	processor Processor
	market    MarketRefresher
	reporter  Reporter
	opts      Options
	now       func() time.Time

	lastHash string
}

// NewService wires the cycle. market and reporter may be nil.
func NewService(syncer Syncer, processor Processor, market MarketRefresher, reporter Reporter, opts Options) *Service {
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	return &Service{
		syncer:    syncer,
		processor: processor,
		market:    market,
		reporter:  reporter,
		opts:      opts,
		now:       time.Now,
	}
}

func (s *Service) Run(ctx context.Context) error {
	log.Info().Dur("interval", s.opts.Interval).Msg("scheduler started")
	for {
		if _, err := s.RunCycle(ctx); err != nil {
			log.Error().Err(err).Msg("scheduler cycle error")
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler stopped")
			return nil
		case <-time.After(s.opts.Interval):
		}
	}
}

// CycleResult describes what one cycle did.
type CycleResult struct {
	Sync       source.SyncResult
	Skipped    bool
	Process    pipeline.ProcessResult
	ExportPath string
	Exported   int
}

// RunCycle performs one pass. An export identical to the last successfully
// processed one is not processed again.
func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	var out CycleResult

	if s.market != nil {
		if _, err := s.market.Refresh(ctx); err != nil {
			log.Warn().Err(err).Msg("market refresh failed")
		}
	}

	synced, err := s.syncer.Sync(ctx)
	if err != nil {
		s.report(pipeline.ProcessResult{Status: storage.RunStatusFailed}, err)
		return out, err
	}
	out.Sync = synced

	if synced.Snapshot.Hash == s.lastHash {
		out.Skipped = true
		log.Info().Str("hash", synced.Snapshot.Hash).Msg("export unchanged, skipping processing")
		return out, nil
	}

	res, err := s.processor.ProcessFile(ctx, pipeline.InputCSV, synced.Snapshot.RawRef)
	out.Process = res
	s.report(res, err)
	if err != nil {
		return out, fmt.Errorf("process snapshot %s: %w", synced.Snapshot.Hash, err)
	}
	s.lastHash = synced.Snapshot.Hash

	if s.opts.AutoExport {
		name := fmt.Sprintf("plans_%s.xlsx", s.now().UTC().Format("20060102T150405Z"))
		out.ExportPath = filepath.Join(s.opts.OutputDir, "scheduler", name)
		n, err := s.processor.ExportSnapshot(ctx, out.ExportPath, storage.PlanQuery{Source: internal.SourcePowerToChoose})
		if err != nil {
			return out, fmt.Errorf("export snapshot: %w", err)
		}
		out.Exported = n
	}

	log.Info().
		Str("run_id", res.RunID).
		Bool("fresh", synced.Fresh).
		Int("accepted", res.Stats.Accepted).
		Int("published", res.Published).
		Int("exported", out.Exported).
		Msg("scheduler cycle done")
	return out, nil
}

func (s *Service) report(res pipeline.ProcessResult, err error) {
	if s.reporter == nil {
		return
	}
	if sendErr := s.reporter.Send(notify.ReportFromResult(res, err, s.now())); sendErr != nil {
		log.Warn().Err(sendErr).Msg("run report not sent")
	}
}
