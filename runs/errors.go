package runs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRun matches any *InvalidRunError via errors.Is.
	ErrInvalidRun = errors.New("invalid run")
	// ErrUnknownFilterKey matches any *UnknownFilterKeyError via errors.Is.
	ErrUnknownFilterKey = errors.New("unknown filter key")
	// ErrInvalidFilterValue matches any *InvalidFilterValueError via errors.Is.
	ErrInvalidFilterValue = errors.New("invalid filter value")
)

// InvalidRunError is returned when a run lacks a usable identifier.
type InvalidRunError struct {
	Reason string
}

func (e *InvalidRunError) Error() string {
	return fmt.Sprintf("invalid run: %s", e.Reason)
}

func (e *InvalidRunError) Is(target error) bool {
	return target == ErrInvalidRun
}

// UnknownFilterKeyError is returned when a filter key is outside the
// recognized set.
type UnknownFilterKeyError struct {
	Key string
}

func (e *UnknownFilterKeyError) Error() string {
	return fmt.Sprintf("unknown filter key %q", e.Key)
}

func (e *UnknownFilterKeyError) Is(target error) bool {
	return target == ErrUnknownFilterKey
}

// InvalidFilterValueError is returned when a filter value is not a scalar.
type InvalidFilterValueError struct {
	Key   FilterKey
	Value any
}

func (e *InvalidFilterValueError) Error() string {
	return fmt.Sprintf("filter %q: value of type %T is not a scalar", e.Key, e.Value)
}

func (e *InvalidFilterValueError) Is(target error) bool {
	return target == ErrInvalidFilterValue
}
