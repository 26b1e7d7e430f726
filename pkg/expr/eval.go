package expr

import (
	"fmt"
	"math"
	"strings"

	"github.com/lemonberrylabs/calcfield/pkg/types"
)

// Policy selects how arithmetic faults are reported.
type Policy int

const (
	// PolicyStrict reports division or modulo by zero, unparsable operands
	// and non-finite results as errors.
	PolicyStrict Policy = iota
	// PolicyLenient follows IEEE-754: faults become ±Inf or NaN and are
	// carried through to the result.
	PolicyLenient
)

// String returns the policy name used in configuration.
func (p Policy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	case PolicyLenient:
		return "lenient"
	default:
		return "unknown"
	}
}

// ParsePolicy parses a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return PolicyStrict, nil
	case "lenient":
		return PolicyLenient, nil
	default:
		return PolicyStrict, fmt.Errorf("unknown arithmetic policy %q (want strict or lenient)", s)
	}
}

// Evaluator evaluates token sequences produced by Tokenize.
type Evaluator struct {
	Policy Policy
}

// term is an element of the pass-one output: a resolved operand value or a
// pending low-precedence operator.
type term struct {
	isOp bool
	op   Operator
	val  float64
}

// Evaluate evaluates tokens with the strict policy.
func Evaluate(tokens []Token) (float64, error) {
	return Evaluator{}.Evaluate(tokens)
}

// Resolve evaluates tokens with the strict policy, accepting a lone operand.
func Resolve(tokens []Token) (float64, error) {
	return Evaluator{}.Resolve(tokens)
}

// Calculate sanitizes, tokenizes and resolves raw input with the strict
// policy. It returns the sanitized text alongside the result.
func Calculate(raw string) (string, float64, error) {
	return Evaluator{}.Calculate(raw)
}

// Calculate sanitizes, tokenizes and resolves raw input.
func (e Evaluator) Calculate(raw string) (string, float64, error) {
	clean := Sanitize(raw)
	v, err := e.Resolve(Tokenize(clean))
	return clean, v, err
}

// Evaluate computes the value of a token sequence holding at least one binary
// operation. Sequences shorter than three tokens yield an
// IncompleteExpression error.
//
// The first pass resolves *, / and % left to right; the second folds + and -
// left to right over what remains.
func (e Evaluator) Evaluate(tokens []Token) (float64, error) {
	if len(tokens) < 3 {
		return 0, types.NewIncompleteExpressionError()
	}
	terms, err := e.reduceHigh(tokens)
	if err != nil {
		return 0, err
	}
	return e.foldLow(terms)
}

// Resolve is Evaluate, except that a single operand resolves to its own value
// instead of being reported as incomplete. An empty sequence is still
// incomplete.
func (e Evaluator) Resolve(tokens []Token) (float64, error) {
	if len(tokens) == 1 {
		if !tokens[0].IsOperand() {
			return 0, types.NewMalformedExpressionError("expression must start with an operand")
		}
		return e.operand(tokens[0])
	}
	return e.Evaluate(tokens)
}

func (e Evaluator) reduceHigh(tokens []Token) ([]term, error) {
	acc := make([]term, 0, len(tokens))
	for _, tok := range tokens {
		if n := len(acc); n > 0 && acc[n-1].isOp && acc[n-1].op.HighPrecedence() {
			op := acc[n-1].op
			if n < 2 || acc[n-2].isOp {
				return nil, types.NewMalformedExpressionError(fmt.Sprintf("operator %s has no left operand", op))
			}
			if !tok.IsOperand() {
				return nil, types.NewMalformedExpressionError(fmt.Sprintf("operator %s has no right operand", op))
			}
			right, err := e.operand(tok)
			if err != nil {
				return nil, err
			}
			v, err := e.apply(op, acc[n-2].val, right)
			if err != nil {
				return nil, err
			}
			acc = append(acc[:n-2], term{val: v})
			continue
		}

		if tok.IsOperator() {
			acc = append(acc, term{isOp: true, op: tok.Op})
			continue
		}
		v, err := e.operand(tok)
		if err != nil {
			return nil, err
		}
		acc = append(acc, term{val: v})
	}
	return acc, nil
}

func (e Evaluator) foldLow(terms []term) (float64, error) {
	if len(terms) == 0 || terms[0].isOp {
		return 0, types.NewMalformedExpressionError("expression must start with an operand")
	}
	if len(terms)%2 == 0 {
		return 0, types.NewMalformedExpressionError("expression must end with an operand")
	}

	result := terms[0].val
	for i := 1; i+1 < len(terms); i += 2 {
		opTerm, right := terms[i], terms[i+1]
		if !opTerm.isOp || right.isOp {
			return 0, types.NewMalformedExpressionError("operands and operators must alternate")
		}
		switch opTerm.op {
		case OpAdd:
			result += right.val
		case OpSub:
			result -= right.val
		default:
			return 0, types.NewMalformedExpressionError(fmt.Sprintf("unexpected operator %s in additive pass", opTerm.op))
		}
	}

	if e.Policy == PolicyStrict && !types.IsFinite(result) {
		return 0, types.NewOverflowError("result is out of range")
	}
	return result, nil
}

func (e Evaluator) operand(tok Token) (float64, error) {
	if !tok.IsOperand() {
		return 0, types.NewMalformedExpressionError(fmt.Sprintf("expected operand, got operator %s", tok.Op))
	}
	v, err := types.ParseNumber(tok.Text)
	if err == nil {
		return v, nil
	}
	if e.Policy == PolicyLenient {
		if types.IsKind(err, types.KindOverflow) {
			return v, nil
		}
		return math.NaN(), nil
	}
	return 0, err
}

func (e Evaluator) apply(op Operator, a, b float64) (float64, error) {
	strict := e.Policy == PolicyStrict
	if strict && b == 0 && (op == OpDiv || op == OpMod) {
		return 0, types.NewDivisionByZeroError()
	}

	var v float64
	switch op {
	case OpMul:
		v = a * b
	case OpDiv:
		v = a / b
	case OpMod:
		v = math.Mod(a, b)
	default:
		return 0, types.NewMalformedExpressionError(fmt.Sprintf("operator %s is not multiplicative", op))
	}

	if strict && !types.IsFinite(v) {
		return 0, types.NewOverflowError(fmt.Sprintf("%s %s %s is out of range", types.FormatNumber(a), op, types.FormatNumber(b)))
	}
	return v, nil
}
