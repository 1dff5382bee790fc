package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"wattwise/internal"
	"wattwise/internal/directory"
)

var (
	ErrNoRecords    = errors.New("no input records")
	ErrNoneAccepted = errors.New("no records passed validation")
)

// Engine turns raw export rows into scored canonical plans. It keeps no
// per-run state, so one Engine may serve any number of runs.
type Engine struct {
	settings  Settings
	directory *directory.Directory
	now       func() time.Time
}

type Option func(*Engine)

// WithClock replaces time.Now as the source of processed_at.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithDirectory sets the provider table used to fill missing enroll URLs.
func WithDirectory(d *directory.Directory) Option {
	return func(e *Engine) { e.directory = d }
}

func NewEngine(settings Settings, opts ...Option) *Engine {
	e := &Engine{settings: settings, directory: directory.Default(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Settings() Settings { return e.settings }

type RunResult struct {
	Plans []internal.CanonicalPlan
	Stats internal.RunStats
}

// Run processes records in input order. Rejections are counted, not
// returned; a record that panics is skipped and counted as an exception.
// ErrNoRecords and ErrNoneAccepted come back together with the stats so the
// caller can keep its previous snapshot and still report what happened.
func (e *Engine) Run(records []internal.RawRecord) (RunResult, error) {
	rc := NewRunContext()
	if len(records) == 0 {
		return RunResult{Plans: []internal.CanonicalPlan{}, Stats: rc.Stats()}, ErrNoRecords
	}

	plans := make([]internal.CanonicalPlan, 0, len(records))
	for i, raw := range records {
		rc.markSeen()
		plan, ok, err := e.processRecord(rc, raw)
		if err != nil {
			rc.reject(internal.RejectException)
			log.Warn().Err(err).Int("row", i).Msg("record skipped")
			continue
		}
		if !ok {
			continue
		}
		rc.markAccepted()
		plans = append(plans, plan)
	}

	result := RunResult{Plans: plans, Stats: rc.Stats()}
	if len(plans) == 0 {
		return result, ErrNoneAccepted
	}
	return result, nil
}

func (e *Engine) processRecord(rc *RunContext, raw internal.RawRecord) (plan internal.CanonicalPlan, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing record: %v", r)
			ok = false
		}
	}()

	rec := NormalizeRecord(raw)
	if _, accepted := Validate(rec, e.settings, rc); !accepted {
		return internal.CanonicalPlan{}, false, nil
	}
	plan = e.buildPlan(rec)
	rc.remember(rec)
	return plan, true, nil
}

func (e *Engine) buildPlan(rec NormalizedRecord) internal.CanonicalPlan {
	pricing := PriceTiers(rec.Rate500, rec.Rate1000, rec.Rate2000, e.settings)
	fp := ScanFinePrint(rec.FeesDetails, rec.SpecialTerms, rec.PromoDesc)
	warnings, score := ScorePlan(ScoreInput{
		IsGotcha:         pricing.IsGotcha,
		FinePrint:        fp,
		UsageFeesCredits: usageFeesCredits(rec, fp),
		IsNewCustomer:    rec.IsNewCustomer,
		IsPromotion:      rec.IsPromotion,
		IsPrepaid:        rec.IsPrepaid,
		IsTOU:            rec.IsTOU,
		RateType:         rec.RateType,
		CancelFee:        rec.CancelFee,
	}, e.settings)

	return AssemblePlan(Assembly{
		Record:    rec,
		Pricing:   pricing,
		FinePrint: fp,
		Warnings:  warnings,
		Score:     score,
	}, e.settings, e.directory, e.now())
}
