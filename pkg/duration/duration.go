// Package duration converts SWAPI consumables phrases such as "2 months"
// into a number of standard hours.
package duration

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Unknown is the literal SWAPI uses when a value is not known.
const Unknown = "unknown"

// Hour factors per unit.
const (
	HoursPerHour  = 1
	HoursPerDay   = 24
	HoursPerWeek  = 168
	HoursPerMonth = 720
	HoursPerYear  = 8760
)

// ErrInvalidDuration is matched by every ParseError.
var ErrInvalidDuration = errors.New("invalid duration")

// ParseError describes a consumables phrase that could not be converted.
type ParseError struct {
	Input  string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse duration %q: %s: %v", e.Input, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse duration %q: %s", e.Input, e.Reason)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is reports ErrInvalidDuration for every ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidDuration
}

type unit struct {
	keyword string
	factor  int64
}

// units are checked in this order; the first keyword contained in the
// input wins.
var units = []unit{
	{"hour", HoursPerHour},
	{"day", HoursPerDay},
	{"week", HoursPerWeek},
	{"month", HoursPerMonth},
	{"year", HoursPerYear},
}

// ParseHours converts a phrase like "5 days" or "1 year" into hours.
//
// "unknown" yields 0 without error. Callers that need to tell an unknown
// endurance apart from a zero one must inspect the raw field themselves.
func ParseHours(text string) (int64, error) {
	if text == Unknown {
		return 0, nil
	}

	lower := strings.ToLower(text)
	for _, u := range units {
		if !strings.Contains(lower, u.keyword) {
			continue
		}

		amount := strings.TrimSpace(lower)
		amount = strings.TrimSuffix(amount, u.keyword+"s")
		amount = strings.TrimSuffix(amount, u.keyword)
		amount = strings.TrimSpace(amount)
		if amount == "" {
			return 0, &ParseError{Input: text, Reason: "missing amount"}
		}

		n, err := strconv.ParseInt(amount, 10, 64)
		if err != nil {
			return 0, &ParseError{Input: text, Reason: "amount is not an integer", Err: err}
		}
		if n < 0 {
			return 0, &ParseError{Input: text, Reason: "amount is negative"}
		}
		if n > math.MaxInt64/u.factor {
			return 0, &ParseError{Input: text, Reason: "amount out of range"}
		}

		return n * u.factor, nil
	}

	return 0, &ParseError{Input: text, Reason: "no recognised unit"}
}
