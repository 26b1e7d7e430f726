package expr

import (
	"strings"

	"github.com/lemonberrylabs/calcfield/pkg/types"
)

// CharKind is the class of a single input character.
type CharKind int

const (
	CharInvalid CharKind = iota
	CharDigit
	CharDecimal
	CharOperator
)

// Char is the classification of a single input character.
type Char struct {
	Kind CharKind
	Op   Operator // set when Kind is CharOperator
}

// Classify places a character in the input alphabet: digits, '.', and the
// five operator characters. Everything else is invalid.
func Classify(ch byte) Char {
	switch {
	case ch >= '0' && ch <= '9':
		return Char{Kind: CharDigit}
	case ch == '.':
		return Char{Kind: CharDecimal}
	}
	if op, ok := OperatorFromChar(ch); ok {
		return Char{Kind: CharOperator, Op: op}
	}
	return Char{Kind: CharInvalid}
}

// IsValidChar reports whether ch belongs to the input alphabet.
func IsValidChar(ch byte) bool {
	return Classify(ch).Kind != CharInvalid
}

func isOperatorChar(ch byte) bool {
	return Classify(ch).Kind == CharOperator
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// isBinaryOnly reports whether ch is an operator that cannot act as a sign.
func isBinaryOnly(ch byte) bool {
	return ch == '+' || ch == '*' || ch == '/' || ch == '%'
}

// Validator decides, character by character, whether a candidate extends an
// already accepted prefix into a still-valid input.
type Validator struct {
	// HasResult is set when a previous result exists that a leading
	// operator can chain from.
	HasResult bool
}

// Accepts reports whether ch may be appended to prefix.
func (v Validator) Accepts(prefix string, ch byte) bool {
	return v.Check(prefix, ch) == nil
}

// Check returns nil if ch may be appended to prefix, an InvalidCharacter
// error if ch is outside the alphabet, or a GrammarViolation error otherwise.
func (v Validator) Check(prefix string, ch byte) error {
	c := Classify(ch)
	if c.Kind == CharInvalid {
		return types.NewInvalidCharacterError(ch, len(prefix))
	}

	var last byte
	if prefix != "" {
		last = prefix[len(prefix)-1]
	}
	reject := func() error { return types.NewGrammarViolationError(ch, len(prefix)) }

	switch {
	case c.Kind == CharOperator && c.Op != OpSub:
		if prefix == "" && !v.HasResult {
			return reject()
		}
		if isOperatorChar(last) || last == '.' {
			return reject()
		}

	case c.Kind == CharOperator:
		// A minus is binary after a digit and a sign at the start or after a
		// binary-only operator. It never follows another minus or a '.'.
		if prefix == "" || isBinaryOnly(last) || isDigit(last) {
			return nil
		}
		return reject()

	case c.Kind == CharDecimal:
		if prefix == "" || isOperatorChar(last) {
			return reject()
		}
		segment := prefix[strings.LastIndexAny(prefix, OperatorChars)+1:]
		if strings.IndexByte(segment, '.') >= 0 {
			return reject()
		}
	}
	return nil
}

// Sanitize rebuilds raw as if it had been typed from scratch: characters
// outside the alphabet are dropped and every remaining character is kept
// only if the validator accepts it after the characters kept so far.
// Sanitize is idempotent.
func (v Validator) Sanitize(raw string) string {
	var sb strings.Builder
	sb.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		if !IsValidChar(ch) {
			continue
		}
		if v.Accepts(sb.String(), ch) {
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}

// Accepts is Validator.Accepts without a previous result.
func Accepts(prefix string, ch byte) bool {
	return Validator{}.Accepts(prefix, ch)
}

// Sanitize is Validator.Sanitize without a previous result.
func Sanitize(raw string) string {
	return Validator{}.Sanitize(raw)
}
