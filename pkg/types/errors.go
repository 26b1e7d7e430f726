package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a calculator error.
type ErrorKind string

// Error kinds surfaced by the calculator pipeline.
const (
	KindInvalidCharacter     ErrorKind = "InvalidCharacter"
	KindGrammarViolation     ErrorKind = "GrammarViolation"
	KindIncompleteExpression ErrorKind = "IncompleteExpression"
	KindDivisionByZero       ErrorKind = "DivisionByZero"
	KindInvalidOperand       ErrorKind = "InvalidOperand"
	KindMalformedExpression  ErrorKind = "MalformedExpression"
	KindOverflow             ErrorKind = "Overflow"
)

// CalcError is an error raised while validating or evaluating input.
type CalcError struct {
	Kind    ErrorKind
	Message string
	Pos     int // offset into the input, -1 when not applicable
}

// Error implements the error interface.
func (e *CalcError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("%s: %s (at %d)", e.Kind, e.Message, e.Pos)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// IsKind reports whether err is, or wraps, a CalcError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *CalcError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// KindOf returns the kind of a CalcError, or "" if err is not one.
func KindOf(err error) ErrorKind {
	var ce *CalcError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// NewInvalidCharacterError creates an InvalidCharacter error.
func NewInvalidCharacterError(ch byte, pos int) *CalcError {
	return &CalcError{Kind: KindInvalidCharacter, Message: fmt.Sprintf("character %q is not allowed", ch), Pos: pos}
}

// NewGrammarViolationError creates a GrammarViolation error.
func NewGrammarViolationError(ch byte, pos int) *CalcError {
	return &CalcError{Kind: KindGrammarViolation, Message: fmt.Sprintf("character %q is not allowed here", ch), Pos: pos}
}

// NewIncompleteExpressionError creates an IncompleteExpression error.
func NewIncompleteExpressionError() *CalcError {
	return &CalcError{Kind: KindIncompleteExpression, Message: "expression needs at least one binary operation", Pos: -1}
}

// NewDivisionByZeroError creates a DivisionByZero error.
func NewDivisionByZeroError() *CalcError {
	return &CalcError{Kind: KindDivisionByZero, Message: "division by zero", Pos: -1}
}

// NewInvalidOperandError creates an InvalidOperand error.
func NewInvalidOperandError(text string) *CalcError {
	return &CalcError{Kind: KindInvalidOperand, Message: fmt.Sprintf("operand %q is not a number", text), Pos: -1}
}

// NewMalformedExpressionError creates a MalformedExpression error.
func NewMalformedExpressionError(msg string) *CalcError {
	return &CalcError{Kind: KindMalformedExpression, Message: msg, Pos: -1}
}

// NewOverflowError creates an Overflow error.
func NewOverflowError(msg string) *CalcError {
	return &CalcError{Kind: KindOverflow, Message: msg, Pos: -1}
}
