package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"wattwise/internal"
	"wattwise/internal/config"
	"wattwise/internal/directory"
	"wattwise/internal/metrics"
	"wattwise/internal/storage"
)

var tracer = otel.Tracer("wattwise-pipeline")

const MetaLastRun = "plans.last_run"

// ProcessingService runs the engine over a batch, applies the publish filter
// and swaps the stored snapshot. A failed run leaves the previous snapshot
// in place.
type ProcessingService struct {
	db      *storage.DB
	engine  *Engine
	filter  *PublishFilter
	metrics *metrics.Registry
}

func NewProcessingService(db *storage.DB, engine *Engine, filter *PublishFilter, m *metrics.Registry) *ProcessingService {
	return &ProcessingService{db: db, engine: engine, filter: filter, metrics: m}
}

// NewProcessingServiceFromConfig wires settings, the provider directory and
// the publish filter from cfg.
func NewProcessingServiceFromConfig(db *storage.DB, cfg config.Config, m *metrics.Registry) (*ProcessingService, error) {
	engine, err := NewEngineFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	filter, err := NewPublishFilter(cfg.PublishFilter)
	if err != nil {
		return nil, err
	}
	return NewProcessingService(db, engine, filter, m), nil
}

func NewEngineFromConfig(cfg config.Config) (*Engine, error) {
	settings, err := LoadSettings(cfg.EngineSettingsPath)
	if err != nil {
		return nil, err
	}
	dir, err := directory.Load(cfg.DirectoryPath)
	if err != nil {
		return nil, err
	}
	return NewEngine(settings, WithDirectory(dir)), nil
}

type ProcessResult struct {
	RunID     string
	Status    string
	Stats     internal.RunStats
	Plans     []internal.CanonicalPlan
	Published int
	Replace   storage.ReplaceResult
}

func (s *ProcessingService) ProcessFile(ctx context.Context, inputType, path string) (ProcessResult, error) {
	records, err := ExtractRecordsFromInput(inputType, path)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("extract %s: %w", path, err)
	}
	return s.ProcessRecords(ctx, records)
}

func (s *ProcessingService) ProcessRecords(ctx context.Context, records []internal.RawRecord) (ProcessResult, error) {
	ctx, span := tracer.Start(ctx, "pipeline.process",
		trace.WithAttributes(attribute.Int("records", len(records))),
	)
	defer span.End()

	result := ProcessResult{RunID: uuid.NewString()}
	timings := map[string]float64{}
	start := time.Now()

	stepStart := time.Now()
	run, runErr := s.engine.Run(records)
	s.observeStep(timings, "engine", stepStart)
	result.Stats = run.Stats

	if runErr != nil {
		result.Status = storage.RunStatusRejected
		span.RecordError(runErr)
		s.finish(ctx, result, runErr, timings, start)
		return result, runErr
	}

	stepStart = time.Now()
	published, err := s.filter.Apply(run.Plans)
	s.observeStep(timings, "filter", stepStart)
	if err != nil {
		result.Status = storage.RunStatusFailed
		span.RecordError(err)
		s.finish(ctx, result, err, timings, start)
		return result, err
	}
	if len(published) == 0 {
		err := fmt.Errorf("publish filter %q kept nothing: %w", s.filter.Expression(), ErrNoneAccepted)
		result.Status = storage.RunStatusRejected
		s.finish(ctx, result, err, timings, start)
		return result, err
	}
	result.Plans = published
	result.Published = len(published)

	stepStart = time.Now()
	result.Replace = s.db.ReplacePlans(ctx, internal.SourcePowerToChoose, published)
	s.observeStep(timings, "store", stepStart)

	if err := result.Replace.Err(); err != nil {
		result.Status = storage.RunStatusFailed
		span.RecordError(err)
		s.finish(ctx, result, err, timings, start)
		return result, fmt.Errorf("replace snapshot: %w", err)
	}

	result.Status = storage.RunStatusOK
	s.finish(ctx, result, nil, timings, start)
	span.SetAttributes(
		attribute.Int("accepted", result.Stats.Accepted),
		attribute.Int("published", result.Published),
	)
	return result, nil
}

func (s *ProcessingService) observeStep(timings map[string]float64, step string, start time.Time) {
	elapsed := time.Since(start)
	timings[step+"_ms"] = float64(elapsed.Microseconds()) / 1000
	s.metrics.ObserveStep(step, elapsed.Seconds())
}

// finish persists the run row, updates metrics and logs the summary. Storage
// errors here are logged, not returned, so they never mask the run outcome.
func (s *ProcessingService) finish(ctx context.Context, result ProcessResult, runErr error, timings map[string]float64, start time.Time) {
	timings["total_ms"] = float64(time.Since(start).Microseconds()) / 1000

	row := internal.RunRow{
		ID:        result.RunID,
		Source:    internal.SourcePowerToChoose,
		Status:    result.Status,
		Stats:     result.Stats,
		Timings:   timings,
		Published: result.Published,
	}
	if runErr != nil {
		row.Error = runErr.Error()
	}
	if err := s.db.InsertRun(ctx, row); err != nil {
		log.Error().Err(err).Str("run_id", result.RunID).Msg("record run")
	}
	if result.Status == storage.RunStatusOK {
		if err := s.db.SetMetadata(ctx, MetaLastRun, result.RunID); err != nil {
			log.Error().Err(err).Msg("update last run metadata")
		}
	}
	s.metrics.ObserveRun(result.Stats, result.Status)

	ev := log.Info()
	if runErr != nil {
		ev = log.Warn().Err(runErr)
	}
	rejected := map[string]int{}
	for reason, n := range result.Stats.Rejected {
		rejected[string(reason)] = n
	}
	ev.Str("run_id", result.RunID).
		Str("status", result.Status).
		Int("seen", result.Stats.Seen).
		Int("accepted", result.Stats.Accepted).
		Interface("rejected", rejected).
		Int("published", result.Published).
		Int64("deleted", result.Replace.Deleted).
		Float64("total_ms", timings["total_ms"]).
		Msg("plan run finished")
}

// ExportSnapshot writes the stored plans matching q to an xlsx file.
func (s *ProcessingService) ExportSnapshot(ctx context.Context, outputPath string, q storage.PlanQuery) (int, error) {
	plans, err := s.db.ListPlans(ctx, q)
	if err != nil {
		return 0, err
	}
	if len(plans) == 0 {
		return 0, errors.New("no stored plans to export")
	}
	if err := ExportPlansToXLSX(plans, outputPath); err != nil {
		return 0, err
	}
	return len(plans), nil
}
