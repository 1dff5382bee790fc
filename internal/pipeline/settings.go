package pipeline

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	MinRate                 = 3.0
	MaxRate                 = 50.0
	MinTerm                 = 3
	GotchaVarianceThreshold = 3.0
	HighCancelFee           = 200

	MaxFeesDetailsLen  = 500
	MaxSpecialTermsLen = 500
	MaxPromoDescLen    = 300
	MaxTDULabelLen     = 20
)

// TierWeights approximate the residential usage distribution across the
// 500/1000/2000 kWh tiers.
type TierWeights struct {
	W500  float64 `yaml:"w500"`
	W1000 float64 `yaml:"w1000"`
	W2000 float64 `yaml:"w2000"`
}

// Penalties are subtracted from 100 independently for each triggered condition.
type Penalties struct {
	Gotcha      int `yaml:"gotcha"`
	Rebate      int `yaml:"rebate"`
	BaseCharge  int `yaml:"base_charge"`
	MinUsageFee int `yaml:"min_usage_fee"`
	Promotional int `yaml:"promotional"`
	TimeOfUse   int `yaml:"time_of_use"`
	NonFixed    int `yaml:"non_fixed"`
	Prepaid     int `yaml:"prepaid"`
}

type TextLimits struct {
	FeesDetails  int `yaml:"fees_details"`
	SpecialTerms int `yaml:"special_terms"`
	PromoDesc    int `yaml:"promo_desc"`
}

type Settings struct {
	MinRate         float64     `yaml:"min_rate"`
	MaxRate         float64     `yaml:"max_rate"`
	MinTerm         int         `yaml:"min_term"`
	Weights         TierWeights `yaml:"weights"`
	GotchaThreshold float64     `yaml:"gotcha_variance_threshold"`
	HighCancelFee   float64     `yaml:"high_cancel_fee"`
	TextLimits      TextLimits  `yaml:"text_limits"`
	Penalties       Penalties   `yaml:"penalties"`
}

func DefaultSettings() Settings {
	return Settings{
		MinRate:         MinRate,
		MaxRate:         MaxRate,
		MinTerm:         MinTerm,
		Weights:         TierWeights{W500: 0.2, W1000: 0.5, W2000: 0.3},
		GotchaThreshold: GotchaVarianceThreshold,
		HighCancelFee:   HighCancelFee,
		TextLimits: TextLimits{
			FeesDetails:  MaxFeesDetailsLen,
			SpecialTerms: MaxSpecialTermsLen,
			PromoDesc:    MaxPromoDescLen,
		},
		Penalties: Penalties{
			Gotcha:      25,
			Rebate:      20,
			BaseCharge:  10,
			MinUsageFee: 15,
			Promotional: 10,
			TimeOfUse:   10,
			NonFixed:    15,
			Prepaid:     10,
		},
	}
}

// LoadSettings overlays a YAML tuning file on DefaultSettings. An empty path
// returns the defaults.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	if path == "" {
		return settings, nil
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read engine settings: %w", err)
	}
	if err := yaml.Unmarshal(blob, &settings); err != nil {
		return Settings{}, fmt.Errorf("parse engine settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func (s Settings) Validate() error {
	var errs []error
	if s.MinRate <= 0 || s.MinRate >= s.MaxRate {
		errs = append(errs, fmt.Errorf("min_rate %.2f must be positive and below max_rate %.2f", s.MinRate, s.MaxRate))
	}
	if s.MinTerm < 1 {
		errs = append(errs, fmt.Errorf("min_term %d must be at least 1", s.MinTerm))
	}
	sum := s.Weights.W500 + s.Weights.W1000 + s.Weights.W2000
	if math.Abs(sum-1) > 1e-6 {
		errs = append(errs, fmt.Errorf("tier weights sum to %.4f, want 1.0", sum))
	}
	if s.Weights.W500 < 0 || s.Weights.W1000 < 0 || s.Weights.W2000 < 0 {
		errs = append(errs, errors.New("tier weights must be non-negative"))
	}
	if s.GotchaThreshold < 0 {
		errs = append(errs, errors.New("gotcha_variance_threshold must be non-negative"))
	}
	if s.TextLimits.FeesDetails <= 0 || s.TextLimits.SpecialTerms <= 0 || s.TextLimits.PromoDesc <= 0 {
		errs = append(errs, errors.New("text limits must be positive"))
	}
	return errors.Join(errs...)
}
