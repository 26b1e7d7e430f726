package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemonberrylabs/calcfield/pkg/expr"
	"github.com/lemonberrylabs/calcfield/pkg/types"
)

// typeKeys sends each character of keys through ProcessKey, feeding back the
// input the session reports the way a UI field would.
func typeKeys(t *testing.T, s *Session, keys string) KeyResult {
	t.Helper()
	var r KeyResult
	for i := 0; i < len(keys); i++ {
		r = s.ProcessKey(keys[i:i+1], s.Input())
		require.Equal(t, KeyConsume, r.Action, "key %q", keys[i:i+1])
	}
	return r
}

func TestProcessEditEvaluates(t *testing.T) {
	s := New(Options{})

	r := s.ProcessEdit("2+3*4")
	assert.False(t, r.Corrected)
	assert.Equal(t, "2+3*4", r.Input)
	assert.Equal(t, "14", r.Display)
	assert.False(t, r.ErrorSignaled)
	assert.Equal(t, []string{"2", "+", "3", "*", "4"}, s.Snapshot().Tokens)
}

func TestProcessEditIncompleteBlanksDisplay(t *testing.T) {
	s := New(Options{})
	s.ProcessEdit("2+3")
	require.Equal(t, "5", s.Display())

	r := s.ProcessEdit("2+")
	assert.Equal(t, "", r.Display)
	assert.False(t, r.ErrorSignaled)
	assert.Equal(t, []string{"2"}, s.Snapshot().Tokens)
}

func TestProcessEditCorrectionIsTerminal(t *testing.T) {
	s := New(Options{})
	s.ProcessEdit("2+3")

	r := s.ProcessEdit("2+3++4x")
	assert.True(t, r.Corrected)
	assert.Equal(t, "2+3+4", r.Input)
	assert.Equal(t, "2+3+4", s.Input())
	// no evaluation happened for the corrected edit
	assert.Equal(t, "5", r.Display)
	assert.Equal(t, []string{"2", "+", "3"}, s.Snapshot().Tokens)

	// the caller's write-back is a clean edit
	r = s.ProcessEdit(r.Input)
	assert.False(t, r.Corrected)
	assert.Equal(t, "9", r.Display)
}

func TestCorrectedInputIsEvaluatedOnEnter(t *testing.T) {
	s := New(Options{})
	s.ProcessEdit("9*9")

	r := s.ProcessEdit("9*9 1")
	require.True(t, r.Corrected)
	require.Equal(t, "9*91", r.Input)

	// the field now shows the corrected text without a further edit
	k := s.ProcessKey(KeyEnter, "9*91")
	assert.Equal(t, "819", k.Display)
	assert.Equal(t, "819", s.Input())
}

func TestCorrectedInputIsEvaluatedOnEquals(t *testing.T) {
	s := New(Options{})
	s.ProcessEdit("6-1")
	s.ProcessEdit("6-1 0")

	r := s.Equals()
	assert.Equal(t, "-4", r.Display)
	assert.Equal(t, "-4", s.Input())
}

func TestCorrectedInputIsExtendedByKey(t *testing.T) {
	s := New(Options{})
	s.ProcessEdit("2+2")
	s.ProcessEdit("2+2 0")

	r := s.ProcessKey("0", "2+20")
	assert.Equal(t, "2+200", r.Input)
	assert.Equal(t, "202", r.Display)
	assert.Equal(t, []string{"2", "+", "200"}, s.Snapshot().Tokens)
}

func TestProcessEditDivisionByZero(t *testing.T) {
	s := New(Options{})

	r := s.ProcessEdit("10/0")
	assert.True(t, r.ErrorSignaled)
	assert.Equal(t, DefaultErrorIndicator, r.Display)
	assert.True(t, types.IsKind(r.Err, types.KindDivisionByZero))

	// the session stays usable
	r = s.ProcessEdit("10/5")
	assert.False(t, r.ErrorSignaled)
	assert.Equal(t, "2", r.Display)
}

func TestCustomErrorIndicator(t *testing.T) {
	s := New(Options{ErrorIndicator: "E"})
	r := s.ProcessEdit("1%0")
	assert.Equal(t, "E", r.Display)
	assert.Equal(t, "E", s.Options().ErrorIndicator)
}

func TestLenientPolicyShowsInfinity(t *testing.T) {
	s := New(Options{Policy: expr.PolicyLenient})

	r := s.ProcessEdit("1/0")
	assert.False(t, r.ErrorSignaled)
	assert.Equal(t, "Infinity", r.Display)

	eq := s.Equals()
	assert.Equal(t, "Infinity", eq.Display)
	assert.Equal(t, "", eq.Input)
	_, ok := s.LastResult()
	assert.False(t, ok, "non-finite results are not kept for chaining")
}

func TestChainingFromLastResult(t *testing.T) {
	s := New(Options{})

	typeKeys(t, s, "5")
	eq := s.Equals()
	assert.Equal(t, "5", eq.Display)
	assert.Equal(t, "5", eq.Input)

	typeKeys(t, s, "+3")
	eq = s.Equals()
	assert.Equal(t, "8", eq.Display)
	assert.Equal(t, "8", eq.Input)

	v, ok := s.LastResult()
	require.True(t, ok)
	assert.Equal(t, 8.0, v)
	assert.Equal(t, []string{"8"}, s.Snapshot().Tokens)
}

func TestOperatorOnEmptyInputChainsFromResult(t *testing.T) {
	s := New(Options{})
	s.ProcessEdit("6*7")
	s.Equals()
	s.Backspace()
	s.Backspace()
	require.Equal(t, "", s.Input())

	r := s.ProcessKey("-", "")
	assert.Equal(t, "42-", r.Input)
	assert.True(t, r.Changed)
	_, ok := s.LastResult()
	assert.False(t, ok, "last result is consumed by the new expression")

	r = typeKeys(t, s, "2")
	assert.Equal(t, "42-2", r.Input)
	assert.Equal(t, "40", r.Display)
}

func TestDigitOnEmptyInputStartsFresh(t *testing.T) {
	s := New(Options{})
	s.ProcessEdit("6*7")
	s.Equals()
	s.ProcessEdit("")

	r := s.ProcessKey("9", "")
	assert.Equal(t, "9", r.Input)
	_, ok := s.LastResult()
	assert.False(t, ok)
}

func TestEqualsWithoutTokensRedisplaysResult(t *testing.T) {
	s := New(Options{})
	s.ProcessEdit("2*4")
	s.Equals()
	s.ProcessEdit("")
	assert.Equal(t, "", s.Display())

	eq := s.Equals()
	assert.Equal(t, "8", eq.Display)
	assert.Equal(t, "", eq.Input)
}

func TestEqualsOnEmptySessionIsNoop(t *testing.T) {
	s := New(Options{})
	eq := s.Equals()
	assert.Equal(t, EqualsResult{}, eq)
	_, ok := s.LastResult()
	assert.False(t, ok)
}

func TestEqualsErrorKeepsState(t *testing.T) {
	s := New(Options{})
	s.ProcessEdit("7/0")

	eq := s.Equals()
	assert.True(t, eq.ErrorSignaled)
	assert.Equal(t, "Err", eq.Display)
	assert.Equal(t, "7/0", eq.Input)
	assert.True(t, types.IsKind(eq.Err, types.KindDivisionByZero))
	_, ok := s.LastResult()
	assert.False(t, ok)
}

func TestProcessKeyRejectsGrammarViolation(t *testing.T) {
	s := New(Options{})
	typeKeys(t, s, "5+")

	r := s.ProcessKey("*", "5+")
	assert.Equal(t, KeyConsume, r.Action)
	assert.True(t, r.ErrorSignaled)
	assert.False(t, r.Changed)
	assert.Equal(t, "5+", r.Input)
	assert.True(t, types.IsKind(r.Err, types.KindGrammarViolation))
}

func TestProcessKeyNamedKeys(t *testing.T) {
	s := New(Options{})
	typeKeys(t, s, "12*3")
	assert.Equal(t, "36", s.Display())

	r := s.ProcessKey(KeyBackspace, s.Input())
	assert.Equal(t, KeyConsume, r.Action)
	assert.Equal(t, "12*", r.Input)
	assert.Equal(t, "", r.Display)

	typeKeys(t, s, "2")
	r = s.ProcessKey(KeyEnter, s.Input())
	assert.Equal(t, KeyConsume, r.Action)
	assert.Equal(t, "24", r.Input)
	assert.Equal(t, "24", r.Display)

	r = s.ProcessKey(KeyEscape, s.Input())
	assert.Equal(t, KeyConsume, r.Action)
	assert.True(t, r.Changed)
	assert.Equal(t, Snapshot{Tokens: []string{}}, s.Snapshot())
}

func TestProcessKeyIgnoresOtherKeys(t *testing.T) {
	s := New(Options{})

	for _, key := range []string{"Tab", "ArrowLeft", "F5", " ", "(", "="} {
		r := s.ProcessKey(key, "1")
		assert.Equal(t, KeyIgnore, r.Action, "key %q", key)
		assert.False(t, r.ErrorSignaled, "key %q", key)
	}

	r := s.ProcessKey("x", "1")
	assert.Equal(t, KeyIgnore, r.Action)
	assert.True(t, r.ErrorSignaled)
	assert.True(t, types.IsKind(r.Err, types.KindInvalidCharacter))
}

func TestProcessKeySyncsExternalField(t *testing.T) {
	s := New(Options{})
	typeKeys(t, s, "1+1")

	// the field changed behind the session's back
	r := s.ProcessKey("0", "3*3")
	assert.Equal(t, "3*30", r.Input)
	assert.Equal(t, "90", r.Display)
}

func TestPress(t *testing.T) {
	s := New(Options{})
	for _, label := range []string{"9", "-", "4"} {
		r := s.Press(label)
		require.Equal(t, KeyConsume, r.Action)
	}
	assert.Equal(t, "5", s.Display())

	r := s.Press(ButtonBackspace)
	assert.Equal(t, "9-", r.Input)

	s.Press("1")
	r = s.Press(ButtonEquals)
	assert.Equal(t, "8", r.Display)

	r = s.Press("x")
	assert.True(t, r.ErrorSignaled)

	r = s.Press("sin")
	assert.Equal(t, KeyIgnore, r.Action)

	r = s.Press(ButtonClearAll)
	assert.True(t, r.Changed)
	assert.Equal(t, "", s.Input())
	_, ok := s.LastResult()
	assert.False(t, ok)
}

func TestPaste(t *testing.T) {
	s := New(Options{})
	assert.Equal(t, PasteResult{Blocked: true, ErrorSignaled: true}, s.Paste("12+abc"))
	assert.Equal(t, PasteResult{}, s.Paste("12 + 3"))
	assert.Equal(t, PasteResult{}, s.Paste("12++3"))
}

func TestClearAllThenBackspaceIsNoop(t *testing.T) {
	s := New(Options{})
	s.ProcessEdit("4*4")
	s.Equals()

	cleared := s.ClearAll()
	assert.Equal(t, "", cleared.Input)
	assert.Equal(t, "", cleared.Display)

	before := s.Snapshot()
	r := s.Backspace()
	assert.Equal(t, "", r.Input)
	assert.Equal(t, before, s.Snapshot())
}

func TestBackspaceReprocesses(t *testing.T) {
	s := New(Options{})
	s.ProcessEdit("8/2-1")
	require.Equal(t, "3", s.Display())

	// the trailing operator is dropped, leaving 8/2
	r := s.Backspace()
	assert.Equal(t, "8/2-", r.Input)
	assert.Equal(t, "4", r.Display)

	s.Backspace()
	r = s.Backspace()
	assert.Equal(t, "8/", r.Input)
	assert.Equal(t, "", r.Display)
}

func TestNestedCallsAreIgnored(t *testing.T) {
	s := New(Options{})

	var nested []EditResult
	var seen []Snapshot
	s.OnChange(func(snap Snapshot) {
		seen = append(seen, snap)
		// a programmatic write back into the field during processing
		nested = append(nested, s.ProcessEdit(snap.Input+"1"))
		s.Equals()
		s.Backspace()
	})

	r := s.ProcessEdit("2+2")
	assert.Equal(t, "4", r.Display)
	require.Len(t, nested, 1)
	assert.True(t, nested[0].Ignored)
	assert.Equal(t, "2+2", s.Input())
	require.Len(t, seen, 1)
	assert.Equal(t, "4", seen[0].Display)

	// the guard is released afterwards
	r = s.ProcessEdit("2+3")
	assert.False(t, r.Ignored)
	assert.Equal(t, "5", r.Display)
}

func TestKeyActionText(t *testing.T) {
	b, err := KeyConsume.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "consume", string(b))
	assert.Equal(t, "ignore", KeyIgnore.String())
}
