// Package scorer combines the feature extractor, the calibrated predictor,
// and the current pulses into the final (user, opp) fit score, emitting a
// full per-pair numeric breakdown for the explain surface.
package scorer

import (
	"fmt"
	"math"

	"github.com/opendoor-marketplace/matchengine/internal/domain"
	"github.com/opendoor-marketplace/matchengine/internal/features"
	"github.com/opendoor-marketplace/matchengine/internal/predictor"
)

// Config carries the pricing/fairness/newcomer knobs.
type Config struct {
	Features       features.Config
	PricingLambda  float64
	FairnessLambda float64
	NewcomerBoost  float64
}

// DefaultConfig matches the PRICING_LAMBDA and FAIRNESS_LAMBDA env defaults
// plus a newcomer boost of 0.25.
func DefaultConfig() Config {
	return Config{
		Features:       features.DefaultConfig(),
		PricingLambda:  1.0,
		FairnessLambda: 0.5,
		NewcomerBoost:  0.25,
	}
}

// Matrix is score_matrix[user_id][opp_id].
type Matrix map[string]map[string]float64

// Explanations is keyed "user_id|opp_id".
type Explanations map[string]domain.ScoreExplanation

// Snapshot is the read-only store state the scorer needs, copied out under
// the store's lock so scoring runs with no lock held.
type Snapshot struct {
	Interactions   []domain.Interaction
	Pulses         map[string]float64 // opp_id -> current pulse
	LastAssignment []domain.Assignment
}

// Options mirror the per-solve overrides a SolveRequest can carry. Weight
// overrides are accepted-but-deprecated request metadata and are
// intentionally not threaded through here.
type Options struct {
	ApplyFairness      bool
	FairnessLambdaOver *float64
}

// Scorer evaluates the calibrated predictor over feature vectors.
type Scorer struct {
	model *predictor.Model
	cfg   Config
}

// New constructs a Scorer over a loaded (or default) predictor model.
func New(model *predictor.Model, cfg Config) *Scorer {
	return &Scorer{model: model, cfg: cfg}
}

// CohortRates computes rates[cohort] = assigned / cohort_population over an
// assignment. Users without a cohort tag are excluded from both counts.
func CohortRates(users []domain.User, lastAssignment []domain.Assignment) map[string]float64 {
	population := make(map[string]int)
	for _, u := range users {
		if u.Cohort == "" {
			continue
		}
		population[u.Cohort]++
	}
	if len(population) == 0 {
		return nil
	}

	userByID := make(map[string]domain.User, len(users))
	for _, u := range users {
		userByID[u.ID] = u
	}
	assigned := make(map[string]int)
	for _, a := range lastAssignment {
		u, ok := userByID[a.UserID]
		if !ok || u.Cohort == "" {
			continue
		}
		assigned[u.Cohort]++
	}

	rates := make(map[string]float64, len(population))
	for cohort, total := range population {
		rates[cohort] = float64(assigned[cohort]) / float64(total)
	}
	return rates
}

func maxRate(rates map[string]float64) float64 {
	max := 0.0
	first := true
	for _, r := range rates {
		if first || r > max {
			max = r
			first = false
		}
	}
	return max
}

// RateGap is max(rates) - min(rates), the spread the fairness boost works
// to close; 0 when fewer than two cohorts are present.
func RateGap(rates map[string]float64) float64 {
	if len(rates) < 2 {
		return 0.0
	}
	first := true
	min, max := 0.0, 0.0
	for _, r := range rates {
		if first {
			min, max = r, r
			first = false
			continue
		}
		if r < min {
			min = r
		}
		if r > max {
			max = r
		}
	}
	return max - min
}

// fairnessBoost is max(0, max(rates) - rates[cohort]); 0 when the user has
// no cohort.
func fairnessBoost(cohort string, rates map[string]float64) float64 {
	if cohort == "" || len(rates) == 0 {
		return 0.0
	}
	return math.Max(0.0, maxRate(rates)-rates[cohort])
}

// BuildScoreMatrix scores every (user, opp) pair, skipping pairs with
// availability_ok < 0.5 entirely (hard gate): no score, no explanation.
func (s *Scorer) BuildScoreMatrix(users []domain.User, opps []domain.Opportunity, snap Snapshot, opts Options) (Matrix, Explanations) {
	lambdaFair := s.cfg.FairnessLambda
	if opts.FairnessLambdaOver != nil {
		lambdaFair = *opts.FairnessLambdaOver
	}

	var rates map[string]float64
	if opts.ApplyFairness {
		rates = CohortRates(users, snap.LastAssignment)
	}

	matrix := make(Matrix, len(users))
	explanations := make(Explanations)

	for _, user := range users {
		userScores := make(map[string]float64)
		for _, opp := range opps {
			vec, chips := features.Extract(user, opp, snap.Interactions, s.cfg.Features)
			if vec.AvailabilityOK < 0.5 {
				continue
			}

			goalMatch := predictor.GoalMatch(string(user.Goal), opp.Category, opp.Tags)

			pulse := snap.Pulses[opp.ID]
			pulseCentered := pulse - 50.0

			mlInput := map[string]float64{
				"interest":           vec.Interest,
				"goal_match":         goalMatch,
				"group_match":        vec.GroupMatch,
				"travel_penalty":     vec.TravelPenalty,
				"intensity_mismatch": vec.IntensityMismatch,
				"novelty_bonus":      vec.NoveltyBonus,
				"pulse_centered":     pulseCentered,
				"availability_ok":    vec.AvailabilityOK,
			}
			sMLRaw := s.model.Predict(mlInput)

			sML := sMLRaw
			newcomerBoostApplied := 0.0
			if user.IsNewcomer() && opp.BeginnerFriendly && s.cfg.NewcomerBoost > 0 {
				newcomerBoostApplied = s.cfg.NewcomerBoost
				sML = math.Min(1.0, sMLRaw*(1+s.cfg.NewcomerBoost))
				chips = append(chips, "Beginner-friendly for newcomers")
			}

			priceAdjustment := -s.cfg.PricingLambda * pulseCentered

			boost := 0.0
			fairnessTerm := 0.0
			if opts.ApplyFairness {
				boost = fairnessBoost(user.Cohort, rates)
				fairnessTerm = lambdaFair * boost
			}

			final := sML + priceAdjustment + fairnessTerm

			userScores[opp.ID] = final
			explanations[fmt.Sprintf("%s|%s", user.ID, opp.ID)] = domain.ScoreExplanation{
				Score: final,
				Breakdown: map[string]float64{
					"interest":           vec.Interest,
					"goal_match":         goalMatch,
					"group_match":        vec.GroupMatch,
					"travel_minutes":     vec.TravelMinutes,
					"travel_penalty":     vec.TravelPenalty,
					"intensity_mismatch": vec.IntensityMismatch,
					"novelty_bonus":      vec.NoveltyBonus,
					"s_ml_raw":           sMLRaw,
					"newcomer_boost":     newcomerBoostApplied,
					"s_ml":               sML,
					"pulse":              pulse,
					"pulse_centered":     pulseCentered,
					"price_adjustment":   priceAdjustment,
					"fairness_boost":     boost,
					"final_score":        final,
				},
				ReasonChips: chips,
			}
		}
		matrix[user.ID] = userScores
	}

	return matrix, explanations
}
