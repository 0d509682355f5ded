// Package since parses the history "since" expression into a unix timestamp.
//
// Accepted forms (surrounding whitespace ignored):
//
//	1700000000   absolute unix seconds
//	24h, 90m     relative to now
//	now-24h      same as 24h
package since

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Error describes an expression that could not be parsed.
type Error struct {
	Input string
}

func (e *Error) Error() string { return "invalid since expression: " + strconv.Quote(e.Input) }

// IsInvalid reports whether err came from Parse rejecting its input.
func IsInvalid(err error) bool {
	_, ok := err.(*Error)
	return ok
}

// Parse converts s to unix seconds relative to now.
func Parse(s string, now time.Time) (int64, error) {
	expr := strings.TrimSpace(s)
	if expr == "" {
		return 0, &Error{Input: s}
	}
	if isDigits(expr) {
		v, err := strconv.ParseInt(expr, 10, 64)
		if err != nil {
			return 0, &Error{Input: s}
		}
		return v, nil
	}
	rel := strings.TrimPrefix(expr, "now-")
	if len(rel) < 2 {
		return 0, &Error{Input: s}
	}
	num, unit := rel[:len(rel)-1], rel[len(rel)-1]
	if !isDigits(num) {
		return 0, &Error{Input: s}
	}
	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return 0, &Error{Input: s}
	}
	var per int64
	switch unit {
	case 'h':
		per = 3600
	case 'm':
		per = 60
	default:
		return 0, &Error{Input: s}
	}
	if n > math.MaxInt64/per {
		return 0, &Error{Input: s}
	}
	ts := now.Unix() - n*per
	// wrapped past math.MinInt64
	if ts > now.Unix() {
		return 0, &Error{Input: s}
	}
	return ts, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
