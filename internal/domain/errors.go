package domain

import (
	"fmt"
	"strconv"
)

// Comparison bounds for side-by-side tables.
const (
	MinCompareProperties = 2
	MaxCompareProperties = 4
)

// InvalidPropertyError reports a property field that makes metrics undefined
// or the record unacceptable to the catalog.
type InvalidPropertyError struct {
	PropertyID string
	Field      string
	Value      float64
	Reason     string
}

func (e *InvalidPropertyError) Error() string {
	prefix := "invalid property"
	if e.PropertyID != "" {
		prefix += " " + e.PropertyID
	}
	if e.Reason == "" {
		return fmt.Sprintf("%s: %s is invalid (%s)", prefix, e.Field, strconv.FormatFloat(e.Value, 'f', -1, 64))
	}
	return fmt.Sprintf("%s: %s %s", prefix, e.Field, e.Reason)
}

// InvalidComparisonError is returned when a comparison is requested for too few
// or too many properties.
type InvalidComparisonError struct {
	Count int
}

func (e *InvalidComparisonError) Error() string {
	return fmt.Sprintf("invalid comparison: need %d to %d properties, got %d",
		MinCompareProperties, MaxCompareProperties, e.Count)
}

// ValidationError names the malformed field of an investor profile or request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
