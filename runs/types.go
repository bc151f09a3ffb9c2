package runs

import (
	"encoding/json"
	"maps"
	"slices"
)

// IDField is the Run field that carries the run identifier.
const IDField = "guid"

// Run is a single submission record. Only the identifier is interpreted by the
// store; every other field (status, verdict, language, timestamps, ...) is
// supplied by the fetch collaborator and passed through untouched.
type Run map[string]any

// ID returns the run identifier, or "" when it is missing or not a string.
func (r Run) ID() string {
	id, _ := r[IDField].(string)
	return id
}

// Clone returns a shallow copy of the run.
func (r Run) Clone() Run {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

// FilterKey names one of the recognized filter dimensions.
type FilterKey string

// Recognized filter dimensions.
const (
	FilterVerdict   FilterKey = "verdict"
	FilterLanguage  FilterKey = "language"
	FilterUsername  FilterKey = "username"
	FilterProblem   FilterKey = "problem"
	FilterStatus    FilterKey = "status"
	FilterExecution FilterKey = "execution"
	FilterOutput    FilterKey = "output"
	FilterOffset    FilterKey = "offset"
	FilterRowcount  FilterKey = "rowcount"
)

var filterKeys = []FilterKey{
	FilterVerdict,
	FilterLanguage,
	FilterUsername,
	FilterProblem,
	FilterStatus,
	FilterExecution,
	FilterOutput,
	FilterOffset,
	FilterRowcount,
}

// FilterKeys returns every recognized filter dimension.
func FilterKeys() []FilterKey {
	return slices.Clone(filterKeys)
}

// Valid reports whether k is a recognized filter dimension.
func (k FilterKey) Valid() bool {
	return slices.Contains(filterKeys, k)
}

// ParseFilterKey converts untrusted input into a FilterKey.
// Returns *UnknownFilterKeyError if s is not a recognized dimension.
func ParseFilterKey(s string) (FilterKey, error) {
	k := FilterKey(s)
	if !k.Valid() {
		return "", &UnknownFilterKeyError{Key: s}
	}
	return k, nil
}

// Filters maps filter dimensions to scalar values. A missing key means no
// constraint for that dimension.
type Filters map[FilterKey]any

// Clone returns a copy of the filter set. A nil set stays nil.
func (f Filters) Clone() Filters {
	if f == nil {
		return nil
	}
	return maps.Clone(f)
}

// validate checks every key and value without modifying anything.
func (f Filters) validate() error {
	for k, v := range f {
		if !k.Valid() {
			return &UnknownFilterKeyError{Key: string(k)}
		}
		if !isScalar(v) {
			return &InvalidFilterValueError{Key: k, Value: v}
		}
	}
	return nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// Pagination tracks how far the collection has been loaded from upstream.
type Pagination struct {
	// TotalRuns is the number of runs known to exist upstream, independent of
	// how many are loaded locally.
	TotalRuns int `json:"total_runs"`
	// Offset is the upstream offset of the next page to request.
	Offset int `json:"offset"`
	// Loading is set while a fetch is in flight. Advisory only.
	Loading bool `json:"loading"`
	// EndOfResults is set once upstream has no more pages.
	EndOfResults bool `json:"end_of_results"`
}

// Snapshot is a point-in-time copy of a store's state.
type Snapshot struct {
	Name  string         `json:"name"`
	Runs  []Run          `json:"runs"`
	Index map[string]int `json:"index"`
	// Filters encodes as null when absent and {} when present but empty.
	Filters    Filters    `json:"filters"`
	Pagination Pagination `json:"pagination"`
}
