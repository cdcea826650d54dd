package interview

import (
	"errors"
	"strings"
)

var (
	// ErrValidation matches every [*ValidationError].
	ErrValidation = errors.New("interview: missing required fields")

	// ErrGeneration wraps text generator failures.
	ErrGeneration = errors.New("interview: question generation failed")

	// ErrPersistence wraps document store failures.
	ErrPersistence = errors.New("interview: saving interview failed")

	// ErrNotFound is returned by [Pipeline.Get] for unknown ids.
	ErrNotFound = errors.New("interview: not found")
)

// ValidationError lists the request fields that were empty or unusable.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "interview: missing required fields: " + strings.Join(e.Missing, ", ")
}

// Is makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
