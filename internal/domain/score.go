package domain

import "math"

// Engine defaults. all of these are configuration, not hidden behavior;
// the config layer can override every one of them.
const (
	DefaultDecayFactor      = 0.98
	DefaultSmoothingRate    = 0.1
	DefaultMaxHistoryLength = 20
	DefaultScorePrecision   = 4
	DefaultMinScore         = 0.0
	DefaultMaxScore         = 10.0
)

// EngineParams bundles the tunables of the score pipeline.
// all data is provided upfront - the pipeline functions below are pure.
type EngineParams struct {
	// DecayFactor is the per-step multiplicative weight reduction applied
	// to older history entries in the moving average.
	DecayFactor float64

	// SmoothingRate bounds how far one submission can move the overall
	// score: at most SmoothingRate of the instantaneous gap.
	SmoothingRate float64

	// MaxHistoryLength caps each dimension's history; oldest entries are
	// dropped first.
	MaxHistoryLength int

	// ScorePrecision is the number of decimal digits every stored value
	// is rounded to.
	ScorePrecision int

	// MinScore and MaxScore bound every raw submission and every stored
	// value.
	MinScore float64
	MaxScore float64

	// Weights is the per-dimension combination weight table.
	Weights map[Dimension]float64
}

// DefaultEngineParams returns the production parameter set.
func DefaultEngineParams() EngineParams {
	return EngineParams{
		DecayFactor:      DefaultDecayFactor,
		SmoothingRate:    DefaultSmoothingRate,
		MaxHistoryLength: DefaultMaxHistoryLength,
		ScorePrecision:   DefaultScorePrecision,
		MinScore:         DefaultMinScore,
		MaxScore:         DefaultMaxScore,
		Weights:          DefaultWeights(),
	}
}

// Recognized reports whether the dimension carries a combination weight.
func (p EngineParams) Recognized(d Dimension) bool {
	_, ok := p.Weights[d]
	return ok
}

// Round rounds a value to the configured precision.
func (p EngineParams) Round(v float64) float64 {
	factor := math.Pow(10, float64(p.ScorePrecision))
	return math.Round(v*factor) / factor
}

// ValidateScore checks one raw submission value against the engine bounds.
// anything non-finite or out of range fails with an InvalidScoreError
// naming the dimension; on success the value is rounded to the configured
// precision.
func ValidateScore(value float64, dim Dimension, p EngineParams) (float64, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < p.MinScore || value > p.MaxScore {
		return 0, &InvalidScoreError{Dimension: dim, Value: value}
	}
	return p.Round(value), nil
}

// PushHistory prepends a validated value to a most-recent-first history
// and truncates to the configured capacity. the input slice is never
// mutated so a failed update cannot leave partial state behind.
func PushHistory(history []float64, value float64, p EngineParams) []float64 {
	next := make([]float64, 0, len(history)+1)
	next = append(next, value)
	next = append(next, history...)
	if len(next) > p.MaxHistoryLength {
		next = next[:p.MaxHistoryLength]
	}
	return next
}

// WeightedMovingAverage collapses a most-recent-first history into one
// value. the newest entry carries weight 1 and each older entry decays
// geometrically, so recent behavior dominates without history ever being
// fully discarded. an empty history yields 0.
func WeightedMovingAverage(history []float64, p EngineParams) float64 {
	if len(history) == 0 {
		return 0
	}

	var weightedSum float64
	var totalWeight float64
	for age, score := range history {
		weight := math.Pow(p.DecayFactor, float64(age))
		weightedSum += score * weight
		totalWeight += weight
	}

	return p.Round(weightedSum / totalWeight)
}

// DiminishingReturns reshapes a raw per-dimension average through a
// concave bounded curve: atan(s/2) / (pi/2) * MaxScore. high scores see
// their marginal contribution suppressed so one maxed-out dimension
// cannot dominate the combined score; low scores pass through nearly
// linearly. applied only at combination time, never persisted.
func DiminishingReturns(score float64, p EngineParams) float64 {
	return math.Atan(score/2) / (math.Pi / 2) * p.MaxScore
}

// CombineOverall computes the weighted mean of the normalized
// per-dimension averages. only dimensions with data contribute; their
// fixed weights come from the parameter table. dimensions absent from
// the latest submission still contribute via their stored average.
// no data at all yields 0.
func CombineOverall(scores map[Dimension]float64, p EngineParams) float64 {
	var weightedSum float64
	var totalWeight float64

	for _, dim := range Dimensions() {
		weight, ok := p.Weights[dim]
		if !ok {
			continue
		}
		score, ok := scores[dim]
		if !ok {
			continue
		}
		weightedSum += DiminishingReturns(score, p) * weight
		totalWeight += weight
	}

	if totalWeight == 0 {
		return 0
	}
	return p.Round(weightedSum / totalWeight)
}

// Blend moves the persisted overall score partway toward the freshly
// combined one. a single submission changes the overall score by at most
// SmoothingRate of the instantaneous gap, which keeps the trajectory
// smooth under volatile or adversarial submissions.
func Blend(previous, fresh float64, p EngineParams) float64 {
	return p.Round(previous + (fresh-previous)*p.SmoothingRate)
}
