// Package types defines the shared error taxonomy and numeric helpers used
// across the calculator pipeline and its surfaces.
package types

import (
	"errors"
	"math"
	"strconv"
)

// ParseNumber converts an operand literal into a float64.
//
// Only an optional leading '-' followed by digits with at most one '.' is
// accepted, and at least one digit must be present. Literals that overflow
// float64 return the signed infinity together with an Overflow error so
// callers can decide whether to keep the value.
func ParseNumber(text string) (float64, error) {
	if !isNumberLiteral(text) {
		return 0, NewInvalidOperandError(text)
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return f, NewOverflowError("operand " + strconv.Quote(text) + " is out of range")
		}
		return 0, NewInvalidOperandError(text)
	}
	return f, nil
}

func isNumberLiteral(text string) bool {
	i := 0
	if i < len(text) && text[i] == '-' {
		i++
	}
	digits, dots := 0, 0
	for ; i < len(text); i++ {
		switch ch := text[i]; {
		case ch >= '0' && ch <= '9':
			digits++
		case ch == '.':
			dots++
			if dots > 1 {
				return false
			}
		default:
			return false
		}
	}
	return digits > 0
}

// FormatNumber renders a result the way the display shows it: the shortest
// decimal form that round-trips, never in exponent notation, so the text can
// be fed back into the input field.
func FormatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		// -0 displays as 0
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
