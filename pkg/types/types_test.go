package types

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"0", 0},
		{"42", 42},
		{"-5", -5},
		{"3.14", 3.14},
		{"5.", 5},
		{".5", 0.5},
		{"-.25", -0.25},
		{"007", 7},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseNumber(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseNumberRejects(t *testing.T) {
	for _, input := range []string{"", "-", ".", "-.", "1.2.3", "1e5", "+5", "Inf", "NaN", "0x10", "1_000", "--1"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseNumber(input)
			require.Error(t, err)
			assert.True(t, IsKind(err, KindInvalidOperand), "got %v", err)
		})
	}
}

func TestParseNumberOverflow(t *testing.T) {
	huge := "1"
	for i := 0; i < 400; i++ {
		huge += "0"
	}

	got, err := ParseNumber(huge)
	require.Error(t, err)
	assert.Equal(t, KindOverflow, KindOf(err))
	assert.True(t, math.IsInf(got, 1))

	got, err = ParseNumber("-" + huge)
	require.Error(t, err)
	assert.True(t, math.IsInf(got, -1))
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{14, "14"},
		{-2, "-2"},
		{0.1 + 0.2, "0.30000000000000004"},
		{2.5, "2.5"},
		{math.Copysign(0, -1), "0"},
		{1e21, "1000000000000000000000"},
		{0.0000001, "0.0000001"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
		{math.NaN(), "NaN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatNumber(tt.in))
		})
	}
}

func TestFormatNumberRoundTrips(t *testing.T) {
	for _, v := range []float64{1.0 / 3.0, -7.25, 123456789.125, 1e-7} {
		got, err := ParseNumber(FormatNumber(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestCalcErrorKinds(t *testing.T) {
	err := fmt.Errorf("evaluate: %w", NewDivisionByZeroError())

	assert.True(t, IsKind(err, KindDivisionByZero))
	assert.False(t, IsKind(err, KindMalformedExpression))
	assert.Equal(t, KindDivisionByZero, KindOf(err))
	assert.Equal(t, ErrorKind(""), KindOf(fmt.Errorf("plain")))
	assert.Equal(t, "DivisionByZero: division by zero", NewDivisionByZeroError().Error())
	assert.Equal(t, `GrammarViolation: character '+' is not allowed here (at 3)`, NewGrammarViolationError('+', 3).Error())
}
