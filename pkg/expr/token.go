// Package expr implements the calculator input language: character
// classification, incremental validation of a live input field,
// sanitisation, tokenisation and two-pass precedence evaluation.
package expr

// Operator is one of the five binary operators of the input language.
type Operator int

const (
	OpAdd Operator = iota // +
	OpSub                 // -
	OpMul                 // *
	OpDiv                 // /
	OpMod                 // %
)

// OperatorChars lists every operator character in the alphabet.
const OperatorChars = "+-*/%"

// OperatorFromChar maps an operator character to its Operator.
func OperatorFromChar(ch byte) (Operator, bool) {
	switch ch {
	case '+':
		return OpAdd, true
	case '-':
		return OpSub, true
	case '*':
		return OpMul, true
	case '/':
		return OpDiv, true
	case '%':
		return OpMod, true
	default:
		return 0, false
	}
}

// HighPrecedence reports whether the operator is resolved in the first
// evaluation pass (*, / and %).
func (o Operator) HighPrecedence() bool {
	return o == OpMul || o == OpDiv || o == OpMod
}

// Char returns the operator's character.
func (o Operator) Char() byte {
	return OperatorChars[o]
}

// String returns the operator's symbol.
func (o Operator) String() string {
	if o < OpAdd || o > OpMod {
		return "?"
	}
	return string(o.Char())
}

// TokenKind distinguishes operands from operators.
type TokenKind int

const (
	TokenOperand TokenKind = iota
	TokenOperator
)

// String returns a debug-friendly representation of the token kind.
func (k TokenKind) String() string {
	switch k {
	case TokenOperand:
		return "OPERAND"
	case TokenOperator:
		return "OPERATOR"
	default:
		return "UNKNOWN"
	}
}

// Token is a single element of a tokenized input: either an operand literal
// (possibly sign-prefixed) or an operator.
type Token struct {
	Kind TokenKind
	Text string   // operand literal (TokenOperand only)
	Op   Operator // operator kind (TokenOperator only)
	Pos  int      // offset of the first character in the source
}

// Operand creates an operand token from a numeric literal.
func Operand(text string) Token {
	return Token{Kind: TokenOperand, Text: text}
}

// OperatorToken creates an operator token.
func OperatorToken(op Operator) Token {
	return Token{Kind: TokenOperator, Op: op}
}

// IsOperand reports whether the token is an operand.
func (t Token) IsOperand() bool { return t.Kind == TokenOperand }

// IsOperator reports whether the token is an operator.
func (t Token) IsOperator() bool { return t.Kind == TokenOperator }

// String returns the token's source text.
func (t Token) String() string {
	if t.Kind == TokenOperator {
		return t.Op.String()
	}
	return t.Text
}

// Texts returns the source text of each token, mainly for display and tests.
func Texts(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.String()
	}
	return out
}
