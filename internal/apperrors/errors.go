package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrAggregation indicates that a storage read or write failed while totals were being computed.
var ErrAggregation = errors.New("aggregation failed")

// ErrSyncFailed marks a cache write-back that did not land. After a cost event it is only logged.
var ErrSyncFailed = errors.New("financial sync failed")

// Validation builds an error that matches ErrValidation.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Aggregation wraps a storage failure so that it matches both ErrAggregation and the cause.
func Aggregation(source string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrAggregation, source, err)
}
