// Package features computes the pure (user, opportunity) feature vector
// and its human-readable reason chips: a handful of independently testable
// calculators feeding one Extract entry point.
package features

import (
	"math"
	"strings"

	"github.com/opendoor-marketplace/matchengine/internal/domain"
)

// Config carries the one knob the extractor needs from the environment.
type Config struct {
	DistanceScaleMins float64
}

// DefaultConfig matches the DISTANCE_SCALE_MINS env default.
func DefaultConfig() Config {
	return Config{DistanceScaleMins: 10.0}
}

// Vector is the named feature set produced for one (user, opp) pair.
type Vector struct {
	Interest          float64
	TravelMinutes     float64
	TravelPenalty     float64
	AvailabilityOK    float64
	GroupMatch        float64
	IntensityMismatch float64
	NoveltyBonus      float64
}

// AsMap renders the vector under the field names used in explanations and
// fed to the predictor.
func (v Vector) AsMap() map[string]float64 {
	return map[string]float64{
		"interest":           v.Interest,
		"travel_minutes":     v.TravelMinutes,
		"travel_penalty":     v.TravelPenalty,
		"availability_ok":    v.AvailabilityOK,
		"group_match":        v.GroupMatch,
		"intensity_mismatch": v.IntensityMismatch,
		"novelty_bonus":      v.NoveltyBonus,
	}
}

// InterestJaccard is the Jaccard similarity of case-insensitive tag sets.
// interest(A,B) = interest(B,A); interest(A,A) = 1 for non-empty A; 0 when
// both sets are empty.
func InterestJaccard(a, b []string) float64 {
	setA := lowerSet(a)
	setB := lowerSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0.0
	}
	intersection := 0
	for tag := range setA {
		if setB[tag] {
			intersection++
		}
	}
	union := len(setA)
	for tag := range setB {
		if !setA[tag] {
			union++
		}
	}
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

func lowerSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		set[strings.ToLower(t)] = true
	}
	return set
}

// TravelMinutes is the Euclidean distance in lat/lng units scaled to minutes.
func TravelMinutes(user domain.User, opp domain.Opportunity, cfg Config) float64 {
	dLat := user.Lat - opp.Lat
	dLng := user.Lng - opp.Lng
	dist := math.Sqrt(dLat*dLat + dLng*dLng)
	return dist * cfg.DistanceScaleMins
}

// TravelPenalty is min(1, travel_minutes/max_travel_mins); 1 when the user's
// budget is non-positive.
func TravelPenalty(mins float64, maxTravelMins int) float64 {
	if maxTravelMins <= 0 {
		return 1.0
	}
	return math.Min(1.0, mins/float64(maxTravelMins))
}

// AvailabilityOK is true when the user's availability set is empty or
// contains the opportunity's time bucket.
func AvailabilityOK(user domain.User, opp domain.Opportunity) bool {
	if len(user.Availability) == 0 {
		return true
	}
	for _, bucket := range user.Availability {
		if bucket == opp.TimeBucket {
			return true
		}
	}
	return false
}

// GroupMatch is 1 - |group_num(user) - group_num(opp)|.
func GroupMatch(user domain.User, opp domain.Opportunity) float64 {
	return 1.0 - math.Abs(user.GroupPref.Num()-opp.GroupSize.Num())
}

// IntensityMismatch is |intensity_num(user) - intensity_num(opp)|.
func IntensityMismatch(user domain.User, opp domain.Opportunity) float64 {
	return math.Abs(user.IntensityPref.Num() - opp.Intensity.Num())
}

// NoveltyBonus is 1 when no prior interaction exists between the pair, 0
// when one does, and 0.5 when the interaction log itself is empty.
func NoveltyBonus(user domain.User, opp domain.Opportunity, interactions []domain.Interaction) float64 {
	if len(interactions) == 0 {
		return 0.5
	}
	for _, in := range interactions {
		if in.UserID == user.ID && in.OppID == opp.ID {
			return 0.0
		}
	}
	return 1.0
}

const (
	interestChipThreshold  = 0.5
	travelChipThreshold    = 0.3
	groupChipThreshold     = 0.7
	intensityChipThreshold = 0.2
	noveltyChipThreshold   = 0.7
)

// Extract computes the full feature vector and reason chips for one pair.
// Pure: no state access, no side effects.
func Extract(user domain.User, opp domain.Opportunity, interactions []domain.Interaction, cfg Config) (Vector, []string) {
	interest := InterestJaccard(user.InterestTags, opp.Tags)
	mins := TravelMinutes(user, opp, cfg)
	penalty := TravelPenalty(mins, user.MaxTravelMins)
	availOK := AvailabilityOK(user, opp)
	groupMatch := GroupMatch(user, opp)
	intensityGap := IntensityMismatch(user, opp)
	novelty := NoveltyBonus(user, opp, interactions)

	var chips []string
	if interest >= interestChipThreshold {
		chips = append(chips, "Matches interests")
	}
	if penalty <= travelChipThreshold {
		chips = append(chips, "Close by")
	}
	if availOK {
		chips = append(chips, "Fits availability")
	}
	if groupMatch >= groupChipThreshold {
		chips = append(chips, "Good group size")
	}
	if intensityGap <= intensityChipThreshold {
		chips = append(chips, "Comfortable intensity")
	}
	if novelty >= noveltyChipThreshold {
		chips = append(chips, "Fresh option")
	}

	availNum := 0.0
	if availOK {
		availNum = 1.0
	}

	return Vector{
		Interest:          interest,
		TravelMinutes:     mins,
		TravelPenalty:     penalty,
		AvailabilityOK:    availNum,
		GroupMatch:        groupMatch,
		IntensityMismatch: intensityGap,
		NoveltyBonus:      novelty,
	}, chips
}
