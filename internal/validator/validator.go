package validator

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationResult holds validation outcome
type ValidationResult struct {
	IsValid       bool
	AnomalyReason string
}

func valid() ValidationResult {
	return ValidationResult{IsValid: true}
}

func invalid(format string, args ...interface{}) ValidationResult {
	return ValidationResult{IsValid: false, AnomalyReason: fmt.Sprintf(format, args...)}
}

// TenthsDivisor converts the vendor's integer tenths of a degree into degrees
const TenthsDivisor = 10.0

var boolLiterals = map[string]bool{
	"true":  true,
	"t":     true,
	"1":     true,
	"false": false,
	"f":     false,
	"0":     false,
}

// ParseTenths converts an integer-encoded tenths value into degrees.
// Non-integer strings (the vendor sends "unknown" for offline sensors) yield 0.
func ParseTenths(raw string) (float64, ValidationResult) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, invalid("non-numeric temperature %q", raw)
	}
	return Tenths(n), valid()
}

// Tenths scales an integer tenths value into degrees
func Tenths(n int) float64 {
	return float64(n) / TenthsDivisor
}

// ParseBool accepts true/t/1 and false/f/0, case-insensitive.
// Anything else yields false.
func ParseBool(raw string) (bool, ValidationResult) {
	v, ok := boolLiterals[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return false, invalid("invalid literal for boolean: %q", raw)
	}
	return v, valid()
}

// ParseNumber parses a plain numeric string, passed through unscaled.
// Non-numeric strings yield 0.
func ParseNumber(raw string) (float64, ValidationResult) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, invalid("non-numeric value %q", raw)
	}
	return v, valid()
}

// ParseRuntimeSeconds parses a runtime report cell. present is false for an
// empty cell, which means the slot has no data yet; "0" is present and valid.
func ParseRuntimeSeconds(raw string) (value float64, present bool, result ValidationResult) {
	if raw == "" {
		return 0, false, valid()
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, true, invalid("invalid runtime value %q: %v", raw, err)
	}
	if v < 0 {
		return v, true, invalid("negative runtime value %q", raw)
	}
	return v, true, valid()
}
