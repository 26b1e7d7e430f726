package expr

// Tokenize converts a validated input string into alternating operand and
// operator tokens.
//
// Tokenize never fails. A '-' in operand position (at the start or after an
// operator) is fused into the following operand as its sign; a sign with no
// digits after it is dropped, as is a trailing operator. The result is empty,
// a single operand, or an odd-length sequence starting and ending with an
// operand.
func Tokenize(s string) []Token {
	var tokens []Token
	expectNumber := true

	for i := 0; i < len(s); {
		ch := s[i]

		if expectNumber {
			start := i
			sign := ""
			if ch == '-' && (i == 0 || isOperatorChar(s[i-1])) {
				sign = "-"
				i++
				if i >= len(s) {
					break
				}
				if !isDigit(s[i]) && s[i] != '.' {
					// dangling sign: retry from here, still expecting a number
					continue
				}
			}

			end := scanNumber(s, i)
			if end == i {
				if sign == "" {
					i++
				}
				continue
			}
			tokens = append(tokens, Token{Kind: TokenOperand, Text: sign + s[i:end], Pos: start})
			i = end
			expectNumber = false
			continue
		}

		op, ok := OperatorFromChar(ch)
		if !ok {
			i++
			continue
		}
		// A non-minus operator right after a sign that was fused into the
		// previous operand is a leftover of an invalid edit.
		if ch != '-' && i >= 1 && s[i-1] == '-' && (i == 1 || isOperatorChar(s[i-2])) {
			i++
			continue
		}
		tokens = append(tokens, Token{Kind: TokenOperator, Op: op, Pos: i})
		i++
		expectNumber = true
	}

	if n := len(tokens); n > 0 && tokens[n-1].IsOperator() {
		tokens = tokens[:n-1]
	}
	return tokens
}

// scanNumber returns the end of the digit run starting at i, allowing at most
// one '.'. A run without any digit is not a number and yields i.
func scanNumber(s string, i int) int {
	end := i
	dot, digits := false, 0
	for end < len(s) {
		ch := s[end]
		if isDigit(ch) {
			digits++
		} else if ch == '.' && !dot {
			dot = true
		} else {
			break
		}
		end++
	}
	if digits == 0 {
		return i
	}
	return end
}
