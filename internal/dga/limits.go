package dga

import (
	"errors"
	"fmt"
)

// GasLimit is the conventional upper bound of one gas field in ppm.
type GasLimit struct {
	Field string
	Max   float64
}

// GasLimits lists the sanity bounds applied by callers before diagnosis.
var GasLimits = []GasLimit{
	{FieldH2, 10000},
	{FieldCH4, 10000},
	{FieldC2H6, 1000},
	{FieldC2H4, 1000},
	{FieldC2H2, 1000},
	{FieldCO, 5000},
	{FieldCO2, 20000},
}

// LimitError describes one out-of-range gas value.
type LimitError struct {
	Field string
	Value float64
	Max   float64
}

func (e *LimitError) Error() string {
	if e.Value < 0 {
		return fmt.Sprintf("%s: %g must not be negative", e.Field, e.Value)
	}
	return fmt.Sprintf("%s: %g exceeds limit %g", e.Field, e.Value, e.Max)
}

// CheckLimits returns every violated bound joined into one error, or nil.
func CheckLimits(p Params) error {
	var errs []error
	for _, l := range GasLimits {
		v, _ := p.Lookup(l.Field)
		if v < 0 || v > l.Max || v != v {
			errs = append(errs, &LimitError{Field: l.Field, Value: v, Max: l.Max})
		}
	}
	return errors.Join(errs...)
}
