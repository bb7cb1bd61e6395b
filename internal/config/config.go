// Package config resolves runtime settings from environment variables, with
// an optional YAML overlay file for static tuning constants (newcomer boost,
// which no env var sets, plus the pricing and fairness lambdas).
package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings is the fully resolved runtime configuration.
type Settings struct {
	DistanceScaleMins       float64
	PricingLambda           float64
	PricingLiquidityK       float64
	DemandDecayTauHours     float64
	FairnessLambda          float64
	RSVPModelPath           string
	RSVPImpressionsLogPath  string
	RSVPEventsLogPath       string
	CORSOrigins             []string
	NewcomerBoost           float64
	DefaultTopKAlternatives int
	FeedCacheAddr           string
	TrainlogPostgresDSN     string
}

// Defaults returns the built-in settings used when no environment variables
// are set. FeedCacheAddr and TrainlogPostgresDSN default to empty, which
// disables the Redis feed cache and the Postgres training-log sink.
func Defaults() Settings {
	return Settings{
		DistanceScaleMins:       10.0,
		PricingLambda:           1.0,
		PricingLiquidityK:       5.0,
		DemandDecayTauHours:     12.0,
		FairnessLambda:          0.5,
		RSVPModelPath:           "data/rsvp_model.json",
		RSVPImpressionsLogPath:  "data/impressions.jsonl",
		RSVPEventsLogPath:       "data/rsvps.jsonl",
		CORSOrigins:             []string{"*"},
		NewcomerBoost:           0.25,
		DefaultTopKAlternatives: 3,
	}
}

func getFloat(name string, def float64) float64 {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func getInt(name string, def int) int {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func getString(name string, def string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return def
}

func getCSV(name string, def []string) []string {
	raw, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// Load resolves Settings from the process environment.
func Load() Settings {
	d := Defaults()
	return Settings{
		DistanceScaleMins:       getFloat("DISTANCE_SCALE_MINS", d.DistanceScaleMins),
		PricingLambda:           getFloat("PRICING_LAMBDA", d.PricingLambda),
		PricingLiquidityK:       getFloat("PRICING_LIQUIDITY_K", d.PricingLiquidityK),
		DemandDecayTauHours:     getFloat("DEMAND_DECAY_TAU_HOURS", d.DemandDecayTauHours),
		FairnessLambda:          getFloat("FAIRNESS_LAMBDA", d.FairnessLambda),
		RSVPModelPath:           getString("RSVP_MODEL_PATH", d.RSVPModelPath),
		RSVPImpressionsLogPath:  getString("RSVP_IMPRESSIONS_LOG_PATH", d.RSVPImpressionsLogPath),
		RSVPEventsLogPath:       getString("RSVP_EVENTS_LOG_PATH", d.RSVPEventsLogPath),
		CORSOrigins:             getCSV("CORS_ORIGINS", d.CORSOrigins),
		NewcomerBoost:           d.NewcomerBoost,
		DefaultTopKAlternatives: getInt("DEFAULT_TOP_K_ALTERNATIVES", d.DefaultTopKAlternatives),
		FeedCacheAddr:           getString("FEED_CACHE_REDIS_ADDR", d.FeedCacheAddr),
		TrainlogPostgresDSN:     getString("TRAINLOG_POSTGRES_DSN", d.TrainlogPostgresDSN),
	}
}

// Overlay is an optional static tuning bundle layered on top of env-resolved
// Settings: a small YAML document that need not exist.
type Overlay struct {
	NewcomerBoost  *float64 `yaml:"newcomer_boost"`
	PricingLambda  *float64 `yaml:"pricing_lambda"`
	FairnessLambda *float64 `yaml:"fairness_lambda"`
}

// LoadOverlay reads a YAML overlay file. A missing file is not an error —
// it simply yields a zero-value Overlay that applies no overrides.
func LoadOverlay(path string) (Overlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Overlay{}, nil
		}
		return Overlay{}, err
	}
	var o Overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return Overlay{}, err
	}
	return o, nil
}

// Apply merges a non-nil overlay field onto Settings.
func (s Settings) Apply(o Overlay) Settings {
	if o.NewcomerBoost != nil {
		s.NewcomerBoost = *o.NewcomerBoost
	}
	if o.PricingLambda != nil {
		s.PricingLambda = *o.PricingLambda
	}
	if o.FairnessLambda != nil {
		s.FairnessLambda = *o.FairnessLambda
	}
	return s
}
