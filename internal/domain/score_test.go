package domain

import (
	"errors"
	"math"
	"testing"
)

func TestValidateScore_AcceptsInRangeAndRounds(t *testing.T) {
	p := DefaultEngineParams()

	got, err := ValidateScore(7.12345678, DimensionCultural, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 7.1235 {
		t.Errorf("expected 7.1235, got %v", got)
	}

	got, err = ValidateScore(0, DimensionSocial, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Errorf("expected 0, got %v", got)
	}

	got, err = ValidateScore(10, DimensionEnvironmental, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 10 {
		t.Errorf("expected 10, got %v", got)
	}
}

func TestValidateScore_RejectsOutOfRange(t *testing.T) {
	p := DefaultEngineParams()

	for _, value := range []float64{-1, 10.5, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := ValidateScore(value, DimensionCultural, p)
		if err == nil {
			t.Errorf("expected error for value %v", value)
			continue
		}
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for value %v, got %v", value, err)
		}

		var invalid *InvalidScoreError
		if !errors.As(err, &invalid) {
			t.Errorf("expected InvalidScoreError for value %v, got %T", value, err)
			continue
		}
		if invalid.Dimension != DimensionCultural {
			t.Errorf("expected dimension cultural in error, got %s", invalid.Dimension)
		}
	}
}

func TestPushHistory_PrependsNewest(t *testing.T) {
	p := DefaultEngineParams()

	history := PushHistory(nil, 5, p)
	history = PushHistory(history, 7, p)

	if len(history) != 2 {
		t.Fatalf("expected length 2, got %d", len(history))
	}
	if history[0] != 7 || history[1] != 5 {
		t.Errorf("expected [7 5], got %v", history)
	}
}

func TestPushHistory_EvictsOldestAtCapacity(t *testing.T) {
	p := DefaultEngineParams()

	var history []float64
	for i := 0; i <= p.MaxHistoryLength; i++ {
		history = PushHistory(history, float64(i)/2.1, p)
	}

	if len(history) != p.MaxHistoryLength {
		t.Fatalf("expected length %d after %d pushes, got %d",
			p.MaxHistoryLength, p.MaxHistoryLength+1, len(history))
	}
	// newest first, the very first push (0) evicted
	if history[0] != float64(p.MaxHistoryLength)/2.1 {
		t.Errorf("expected newest value at index 0, got %v", history[0])
	}
	if history[len(history)-1] != 1/2.1 {
		t.Errorf("expected second push as oldest survivor, got %v", history[len(history)-1])
	}
}

func TestPushHistory_DoesNotMutateInput(t *testing.T) {
	p := DefaultEngineParams()

	original := []float64{3, 2, 1}
	_ = PushHistory(original, 4, p)

	if original[0] != 3 || original[1] != 2 || original[2] != 1 {
		t.Errorf("input slice mutated: %v", original)
	}
}

func TestWeightedMovingAverage_Empty(t *testing.T) {
	if got := WeightedMovingAverage(nil, DefaultEngineParams()); got != 0 {
		t.Errorf("expected 0 for empty history, got %v", got)
	}
}

func TestWeightedMovingAverage_SingleEntry(t *testing.T) {
	if got := WeightedMovingAverage([]float64{8}, DefaultEngineParams()); got != 8 {
		t.Errorf("expected 8, got %v", got)
	}
}

func TestWeightedMovingAverage_RecencyDominates(t *testing.T) {
	p := DefaultEngineParams()

	// newest 10, oldest 0: (10*1 + 0*0.98) / 1.98
	got := WeightedMovingAverage([]float64{10, 0}, p)
	if got != 5.0505 {
		t.Errorf("expected 5.0505, got %v", got)
	}

	// reversed order must weigh the other way
	reversed := WeightedMovingAverage([]float64{0, 10}, p)
	if reversed >= 5 {
		t.Errorf("expected older high score to weigh less, got %v", reversed)
	}
	if got <= 5 {
		t.Errorf("expected newer high score to weigh more, got %v", got)
	}
}

func TestWeightedMovingAverage_StaysInRange(t *testing.T) {
	p := DefaultEngineParams()

	history := []float64{10, 0, 10, 0, 10, 3.3333, 9.9999, 0.0001}
	got := WeightedMovingAverage(history, p)
	if got < p.MinScore || got > p.MaxScore {
		t.Errorf("average %v outside [%v, %v]", got, p.MinScore, p.MaxScore)
	}
}

func TestDiminishingReturns_ConcaveBoundedCurve(t *testing.T) {
	p := DefaultEngineParams()

	if got := DiminishingReturns(0, p); got != 0 {
		t.Errorf("expected 0 at origin, got %v", got)
	}

	// monotonically increasing
	prev := 0.0
	for s := 0.5; s <= 10; s += 0.5 {
		got := DiminishingReturns(s, p)
		if got <= prev {
			t.Errorf("expected strictly increasing curve at %v: %v <= %v", s, got, prev)
		}
		prev = got
	}

	// bounded below MaxScore even at the top of the range
	top := DiminishingReturns(10, p)
	if top >= p.MaxScore {
		t.Errorf("expected normalized top below %v, got %v", p.MaxScore, top)
	}
	if math.Abs(top-8.7433) > 0.001 {
		t.Errorf("expected atan(5)/(pi/2)*10 ~= 8.7433, got %v", top)
	}

	// low scores pass through nearly linearly
	low := DiminishingReturns(0.5, p)
	if math.Abs(low-0.5) > 0.02 {
		t.Errorf("expected near-linear pass-through for low scores, got %v", low)
	}
}

func TestCombineOverall_NoData(t *testing.T) {
	if got := CombineOverall(nil, DefaultEngineParams()); got != 0 {
		t.Errorf("expected 0 with no data, got %v", got)
	}
}

func TestCombineOverall_WeightingSanity(t *testing.T) {
	p := DefaultEngineParams()

	// cultural=10, social=10, environmental=0 with weights 1,1,2:
	// each 10 normalizes to ~8.7433, so combined = 2*8.7433/4 ~= 4.3717
	got := CombineOverall(map[Dimension]float64{
		DimensionCultural:      10,
		DimensionSocial:        10,
		DimensionEnvironmental: 0,
	}, p)

	if math.Abs(got-4.3717) > 0.001 {
		t.Errorf("expected combined ~= 4.3717, got %v", got)
	}
}

func TestCombineOverall_OnlyDimensionsWithData(t *testing.T) {
	p := DefaultEngineParams()

	// single dimension: weighted mean collapses to its normalized value
	got := CombineOverall(map[Dimension]float64{DimensionCultural: 8}, p)
	if math.Abs(got-8.4404) > 1e-9 {
		t.Errorf("expected atan(4)/(pi/2)*10 rounded = 8.4404, got %v", got)
	}
}

func TestBlend_MovesTenPercentOfGap(t *testing.T) {
	p := DefaultEngineParams()

	if got := Blend(0, 8.4404, p); got != 0.844 {
		t.Errorf("expected 0.844, got %v", got)
	}
	if got := Blend(5, 5, p); got != 5 {
		t.Errorf("expected unchanged score, got %v", got)
	}
	if got := Blend(8, 3, p); got != 7.5 {
		t.Errorf("expected 7.5, got %v", got)
	}
}

func TestBlend_SmoothingBound(t *testing.T) {
	p := DefaultEngineParams()

	previous := 1.2345
	for _, fresh := range []float64{0, 2.5, 5, 9.8765, 10} {
		next := Blend(previous, fresh, p)
		step := math.Abs(next - previous)
		bound := p.SmoothingRate*math.Abs(fresh-previous) + 0.00005 // rounding slack
		if step > bound {
			t.Errorf("step %v exceeds smoothing bound %v (fresh=%v)", step, bound, fresh)
		}
		previous = next
	}
}
