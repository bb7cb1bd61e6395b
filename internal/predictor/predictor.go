// Package predictor evaluates the calibrated logistic regressor behind
// s_ml: a fixed, named feature order feeding one affine combination through
// a sigmoid, with weights loaded from a JSON artifact at startup.
package predictor

import (
	"encoding/json"
	"math"
	"os"
	"reflect"
	"strings"

	"github.com/rs/zerolog/log"
)

// FeatureOrder is the fixed ordering the affine combination is evaluated
// over. A model artifact whose feature_order differs from this is rejected
// and the default model is used instead.
var FeatureOrder = []string{
	"interest",
	"goal_match",
	"group_match",
	"travel_penalty",
	"intensity_mismatch",
	"novelty_bonus",
	"pulse_centered",
	"availability_ok",
}

// Model is a calibrated logistic regressor: predict(x) = sigmoid(bias + w.x).
type Model struct {
	FeatureOrder []string  `json:"feature_order"`
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
}

// DefaultModel is the zero-weight, zero-bias fallback (sigmoid -> 0.5) used
// when the artifact is missing or malformed.
func DefaultModel() *Model {
	weights := make([]float64, len(FeatureOrder))
	order := make([]string, len(FeatureOrder))
	copy(order, FeatureOrder)
	return &Model{FeatureOrder: order, Weights: weights, Bias: 0.0}
}

// LoadModel reads the JSON artifact at path. A missing file or a
// feature_order that doesn't match FeatureOrder degrades to DefaultModel
// rather than returning an error — the model is read-only at serving time
// and serving must not stop because training hasn't shipped a weights file
// yet.
func LoadModel(path string) *Model {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("rsvp model artifact unreadable, using zero-weight default")
		return DefaultModel()
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("rsvp model artifact malformed, using zero-weight default")
		return DefaultModel()
	}

	if len(m.FeatureOrder) == 0 || !reflect.DeepEqual(m.FeatureOrder, FeatureOrder) {
		log.Warn().Str("path", path).Msg("rsvp model feature_order mismatch, using zero-weight default")
		return DefaultModel()
	}
	if len(m.Weights) != len(m.FeatureOrder) {
		log.Warn().Str("path", path).Msg("rsvp model weight count mismatch, using zero-weight default")
		return DefaultModel()
	}

	return &m
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Predict evaluates sigmoid(bias + sum(weight_i * features[name_i])) over
// the model's feature order. Missing keys in features are treated as 0.
func (m *Model) Predict(featureValues map[string]float64) float64 {
	z := m.Bias
	for i, name := range m.FeatureOrder {
		z += m.Weights[i] * featureValues[name]
	}
	return sigmoid(z)
}

// goalHints maps each user goal to the keywords that count as a match.
var goalHints = map[string][]string{
	"friends":   {"social", "community", "hangout", "meetup"},
	"active":    {"fitness", "sports", "outdoor", "active"},
	"volunteer": {"volunteer", "service", "community"},
	"learn":     {"learn", "education", "workshop", "class", "training"},
}

// GoalMatch is 1.0 when any hint keyword for the user's goal appears as a
// substring of the opp's lowercased category+tags, else 0.0.
func GoalMatch(goal string, category string, tags []string) float64 {
	hints, ok := goalHints[goal]
	if !ok {
		return 0.0
	}
	haystack := strings.ToLower(strings.Join(append([]string{category}, tags...), " "))
	for _, h := range hints {
		if strings.Contains(haystack, h) {
			return 1.0
		}
	}
	return 0.0
}
