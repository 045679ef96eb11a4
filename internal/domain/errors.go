package domain

import (
	"errors"
	"fmt"
)

// common domain errors that cross entity boundaries.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidInput  = errors.New("invalid input")

	// ErrConflict signals a lost optimistic-concurrency race.
	// callers retry the whole transaction body against fresh state.
	ErrConflict = errors.New("concurrent update conflict")
)

// InvalidScoreError reports a submitted score that failed validation.
// carries the dimension and offending value so the caller can see
// exactly which part of the submission was rejected.
type InvalidScoreError struct {
	Dimension Dimension
	Value     float64
}

func (e *InvalidScoreError) Error() string {
	return fmt.Sprintf("invalid %s score %v: must be a finite number between %v and %v",
		e.Dimension, e.Value, DefaultMinScore, DefaultMaxScore)
}

// Is makes InvalidScoreError match ErrInvalidInput in errors.Is chains.
func (e *InvalidScoreError) Is(target error) bool {
	return target == ErrInvalidInput
}

// UnknownDimensionError reports a submission key outside the recognized
// dimension set.
type UnknownDimensionError struct {
	Name string
}

func (e *UnknownDimensionError) Error() string {
	return fmt.Sprintf("unknown score dimension %q", e.Name)
}

func (e *UnknownDimensionError) Is(target error) bool {
	return target == ErrInvalidInput
}
