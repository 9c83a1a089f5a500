// Package core holds the caffeine tracker's domain types and input parsing.
package core

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
)

var ErrInvalidAmount = errors.New("invalid amount")

// maxAmountMg bounds user input well below int64 overflow.
const maxAmountMg int64 = 1_000_000

// ParseAmountMg converts a form value into whole milligrams.
//
// It accepts an optional fractional part using either dot (95.5) or comma
// (95,5) and rounds half-up on the first fractional digit. Signs are rejected,
// zero is allowed.
//
// Examples:
//
//	ParseAmountMg("95")   -> 95, nil
//	ParseAmountMg("95,4") -> 95, nil
//	ParseAmountMg("95.5") -> 96, nil
func ParseAmountMg(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	if strings.Contains(fracPart, ".") {
		return 0, ErrInvalidAmount
	}
	if intPart == "" {
		if fracPart == "" {
			return 0, ErrInvalidAmount
		}
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	mg, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil || mg > maxAmountMg {
		return 0, ErrInvalidAmount
	}
	if fracPart != "" && fracPart[0] >= '5' {
		mg++
	}
	return mg, nil
}

// ParseLimitMg parses a daily limit. An empty value is rejected.
func ParseLimitMg(s string) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, ErrInvalidAmount
	}
	return ParseAmountMg(s)
}
