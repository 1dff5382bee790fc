package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"wattwise/internal/config"
	"wattwise/internal/source"
	"wattwise/internal/storage"
)

// Getter downloads a page or API response.
type Getter interface {
	Get(ctx context.Context, url, accept string) ([]byte, error)
}

// Snapshot is the single market_data payload.
type Snapshot struct {
	UpdatedAt   time.Time     `json:"updated_at"`
	ERCOTPrices *Prices       `json:"ercot_prices,omitempty"`
	FuelMix     *FuelMix      `json:"fuel_mix,omitempty"`
	EIAAnnual   *AnnualRates  `json:"eia_annual,omitempty"`
	EIAMonthly  []MonthlyRate `json:"eia_monthly"`
	Summary     Summary       `json:"market_summary"`
}

type Service struct {
	db     *storage.DB
	getter Getter
	cfg    config.Config
	now    func() time.Time
}

func NewService(db *storage.DB, getter Getter, cfg config.Config) *Service {
	return &Service{db: db, getter: getter, cfg: cfg, now: time.Now}
}

// Collect gathers every market source. A failing source leaves its section
// empty instead of failing the whole snapshot.
func (s *Service) Collect(ctx context.Context) Snapshot {
	snap := Snapshot{UpdatedAt: s.now().UTC(), EIAMonthly: []MonthlyRate{}}

	if prices, err := s.fetchPrices(ctx); err != nil {
		log.Warn().Err(err).Msg("ercot prices unavailable")
	} else {
		snap.ERCOTPrices = &prices
	}

	mix := s.fetchFuelMix(ctx)
	snap.FuelMix = &mix

	if annual, err := s.fetchAnnual(ctx); err != nil {
		log.Warn().Err(err).Msg("eia annual rates unavailable")
	} else {
		snap.EIAAnnual = &annual
	}

	if monthly, err := s.fetchMonthly(ctx); err != nil {
		log.Warn().Err(err).Msg("eia monthly rates unavailable")
	} else if monthly != nil {
		snap.EIAMonthly = monthly
	}

	snap.Summary = Summarize(snap.ERCOTPrices, snap.FuelMix, snap.EIAAnnual)
	return snap
}

// Refresh collects and persists the current snapshot.
func (s *Service) Refresh(ctx context.Context) (Snapshot, error) {
	snap := s.Collect(ctx)
	payload, err := json.Marshal(snap)
	if err != nil {
		return Snapshot{}, err
	}
	if err := s.db.SaveMarketData(ctx, payload); err != nil {
		return Snapshot{}, fmt.Errorf("save market data: %w", err)
	}

	ev := log.Info().Str("fuel_source", snap.FuelMix.Source)
	if snap.ERCOTPrices != nil {
		ev = ev.Float64("wholesale_mwh", snap.ERCOTPrices.CurrentWholesale).Str("status", snap.Summary.WholesaleStatus)
	}
	if snap.EIAAnnual != nil {
		ev = ev.Float64("tx_avg_cents", snap.EIAAnnual.CurrentAvgRate)
	}
	ev.Msg("market data refreshed")
	return snap, nil
}

// Latest returns the stored snapshot, storage.ErrNotFound when none exists.
func (s *Service) Latest(ctx context.Context) (Snapshot, error) {
	return LoadSnapshot(ctx, s.db)
}

func LoadSnapshot(ctx context.Context, db *storage.DB) (Snapshot, error) {
	payload, _, err := db.LatestMarketData(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode market data: %w", err)
	}
	return snap, nil
}

func (s *Service) fetchPrices(ctx context.Context) (Prices, error) {
	if s.cfg.ERCOTPricesURL == "" {
		return Prices{}, errors.New("ERCOT_PRICES_URL not set")
	}
	body, err := s.getter.Get(ctx, s.cfg.ERCOTPricesURL, source.AcceptHTML)
	if err != nil {
		return Prices{}, err
	}
	return ParseERCOTPrices(body)
}

func (s *Service) fetchFuelMix(ctx context.Context) FuelMix {
	if s.cfg.ERCOTFuelURL == "" {
		return EstimatedFuelMix()
	}
	body, err := s.getter.Get(ctx, s.cfg.ERCOTFuelURL, source.AcceptHTML)
	if err != nil {
		log.Warn().Err(err).Msg("ercot fuel mix unavailable, using estimates")
		return EstimatedFuelMix()
	}
	return ParseFuelMix(body)
}

func (s *Service) fetchAnnual(ctx context.Context) (AnnualRates, error) {
	if s.cfg.EIAAPIKey == "" {
		return FallbackAnnualRates(), nil
	}
	body, err := s.getter.Get(ctx, EIARetailURL(s.cfg.EIAAPIBaseURL, s.cfg.EIAAPIKey, "annual", 10), source.AcceptJSON)
	if err != nil {
		return AnnualRates{}, err
	}
	return ParseEIAAnnual(body)
}

func (s *Service) fetchMonthly(ctx context.Context) ([]MonthlyRate, error) {
	if s.cfg.EIAAPIKey == "" {
		return nil, nil
	}
	body, err := s.getter.Get(ctx, EIARetailURL(s.cfg.EIAAPIBaseURL, s.cfg.EIAAPIKey, "monthly", 24), source.AcceptJSON)
	if err != nil {
		return nil, err
	}
	return ParseEIAMonthly(body)
}
