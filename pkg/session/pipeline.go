package session

import (
	"strings"

	"github.com/lemonberrylabs/calcfield/pkg/expr"
	"github.com/lemonberrylabs/calcfield/pkg/types"
)

// KeyAction tells the caller whether it should suppress the key's default
// handling.
type KeyAction int

const (
	KeyIgnore KeyAction = iota
	KeyConsume
)

// String returns "ignore" or "consume".
func (a KeyAction) String() string {
	if a == KeyConsume {
		return "consume"
	}
	return "ignore"
}

// MarshalText implements encoding.TextMarshaler.
func (a KeyAction) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Named keys understood by ProcessKey.
const (
	KeyEnter     = "Enter"
	KeyBackspace = "Backspace"
	KeyEscape    = "Escape"
)

// Button labels understood by Press in addition to the input alphabet.
const (
	ButtonEquals    = "="
	ButtonClearAll  = "AC"
	ButtonBackspace = "DEL"
)

// EditResult is the outcome of a raw change to the input field.
type EditResult struct {
	// Corrected is set when the raw text was not valid. Input then holds the
	// sanitized text the caller must write back; no evaluation happened.
	Corrected     bool   `json:"corrected"`
	Input         string `json:"input"`
	Display       string `json:"display"`
	ErrorSignaled bool   `json:"errorSignaled"`
	// Ignored is set when the call arrived while the session was busy.
	Ignored bool  `json:"ignored,omitempty"`
	Err     error `json:"-"`
}

// KeyResult is the outcome of a key press or button press.
type KeyResult struct {
	Action        KeyAction `json:"action"`
	Input         string    `json:"input"`
	Changed       bool      `json:"changed"`
	Display       string    `json:"display"`
	ErrorSignaled bool      `json:"errorSignaled"`
	Ignored       bool      `json:"ignored,omitempty"`
	Err           error     `json:"-"`
}

// PasteResult is the outcome of a paste check.
type PasteResult struct {
	Blocked       bool `json:"blocked"`
	ErrorSignaled bool `json:"errorSignaled"`
}

// EqualsResult is the outcome of an equals request.
type EqualsResult struct {
	Input         string `json:"input"`
	Display       string `json:"display"`
	ErrorSignaled bool   `json:"errorSignaled"`
	Ignored       bool   `json:"ignored,omitempty"`
	Err           error  `json:"-"`
}

// ProcessEdit runs the pipeline for a raw change of the input field.
//
// The raw text is sanitized first. If sanitizing changed it, the corrected
// text is returned and the edit ends there; the caller overwrites the field
// and that write is not processed again. The corrected text is tokenized
// before the next key, button or equals request is applied. Otherwise the text is tokenized and,
// once it holds a complete binary operation, evaluated onto the display.
//
// ProcessEdit is not reentrant: a nested call made while it runs is ignored.
func (s *Session) ProcessEdit(raw string) EditResult {
	if !s.enter() {
		return EditResult{Ignored: true, Input: raw, Display: s.display}
	}
	defer s.leave()
	return s.edit(raw)
}

func (s *Session) edit(raw string) EditResult {
	clean := s.validator().Sanitize(raw)
	if clean != raw {
		s.input = clean
		s.stale = true
		return EditResult{Corrected: true, Input: clean, Display: s.display}
	}

	s.input = raw
	s.stale = false
	s.tokens = expr.Tokenize(raw)
	if len(s.tokens) < 3 {
		s.display = ""
		return EditResult{Input: raw}
	}

	v, err := s.evaluator().Evaluate(s.tokens)
	if err != nil {
		s.display = s.opts.ErrorIndicator
		return EditResult{Input: raw, Display: s.display, ErrorSignaled: true, Err: err}
	}
	s.display = types.FormatNumber(v)
	return EditResult{Input: raw, Display: s.display}
}

// sync brings the session in line with the caller's field before a key is
// applied, in case the field changed without an edit being reported.
func (s *Session) sync(current string) {
	if current != s.input {
		s.edit(current)
		return
	}
	s.settle()
}

// settle tokenizes a pending sanitizer correction.
func (s *Session) settle() {
	if s.stale {
		s.edit(s.input)
	}
}

// ProcessKey handles a key press on the input field whose current contents
// are current.
//
// Digits, '.', and the operators are consumed and either start a new
// expression after a result or are appended when the grammar allows them.
// Enter evaluates, Backspace deletes one character and Escape clears
// everything. Any other key is ignored; single letters additionally raise the
// error signal.
func (s *Session) ProcessKey(key, current string) KeyResult {
	if !s.enter() {
		return KeyResult{Ignored: true, Input: current, Display: s.display}
	}
	defer s.leave()

	switch {
	case key == KeyEnter:
		s.sync(current)
		r := s.equals()
		return KeyResult{Action: KeyConsume, Input: r.Input, Changed: r.Input != current,
			Display: r.Display, ErrorSignaled: r.ErrorSignaled, Err: r.Err}
	case key == KeyBackspace:
		s.sync(current)
		r := s.backspace()
		return KeyResult{Action: KeyConsume, Input: r.Input, Changed: r.Input != current,
			Display: r.Display, ErrorSignaled: r.ErrorSignaled, Err: r.Err}
	case key == KeyEscape:
		s.clearAll()
		return KeyResult{Action: KeyConsume, Input: "", Changed: current != ""}
	case isLetter(key):
		return KeyResult{Action: KeyIgnore, Input: current, Display: s.display, ErrorSignaled: true,
			Err: types.NewInvalidCharacterError(key[0], len(current))}
	case len(key) == 1 && expr.IsValidChar(key[0]):
		s.sync(current)
		r := s.typeChar(key[0])
		r.Changed = r.Input != current
		return r
	default:
		return KeyResult{Action: KeyIgnore, Input: current, Display: s.display}
	}
}

// Press handles an on-screen button. "=" evaluates, "AC" clears everything
// and "DEL" deletes one character; any other label is typed as a single
// character.
func (s *Session) Press(label string) KeyResult {
	if !s.enter() {
		return KeyResult{Ignored: true, Input: s.input, Display: s.display}
	}
	defer s.leave()

	before := s.input
	switch label {
	case ButtonEquals:
		r := s.equals()
		return KeyResult{Action: KeyConsume, Input: r.Input, Changed: r.Input != before,
			Display: r.Display, ErrorSignaled: r.ErrorSignaled, Err: r.Err}
	case ButtonClearAll:
		s.clearAll()
		return KeyResult{Action: KeyConsume, Changed: before != ""}
	case ButtonBackspace:
		r := s.backspace()
		return KeyResult{Action: KeyConsume, Input: r.Input, Changed: r.Input != before,
			Display: r.Display, ErrorSignaled: r.ErrorSignaled, Err: r.Err}
	}
	if len(label) != 1 {
		return KeyResult{Action: KeyIgnore, Input: before, Display: s.display}
	}
	r := s.typeChar(label[0])
	r.Changed = r.Input != before
	return r
}

// typeChar applies one typed character to the input.
func (s *Session) typeChar(ch byte) KeyResult {
	s.settle()
	if s.hasResult && s.input == "" {
		// start a new expression: operators chain from the result
		if expr.Classify(ch).Kind == expr.CharOperator {
			s.input = s.lastResultText() + string(ch)
		} else {
			s.input = string(ch)
		}
		s.clearResult()
	} else {
		if err := s.validator().Check(s.input, ch); err != nil {
			return KeyResult{Action: KeyConsume, Input: s.input, Display: s.display, ErrorSignaled: true, Err: err}
		}
		s.input += string(ch)
	}

	r := s.edit(s.input)
	return KeyResult{Action: KeyConsume, Input: r.Input, Display: r.Display, ErrorSignaled: r.ErrorSignaled, Err: r.Err}
}

// Paste checks a paste payload. Payloads containing letters are blocked; any
// other payload is let through and reaches the session as a regular edit.
func (s *Session) Paste(text string) PasteResult {
	if strings.IndexFunc(text, isASCIILetter) >= 0 {
		return PasteResult{Blocked: true, ErrorSignaled: true}
	}
	return PasteResult{}
}

// Equals evaluates the pending expression.
//
// Without pending tokens the previous result, if any, is shown again. On
// success the result becomes the last result, the only pending token and the
// contents of both the input and the display, so the next operator chains
// from it. On failure the display shows the error indicator and the rest of
// the state is kept.
func (s *Session) Equals() EqualsResult {
	if !s.enter() {
		return EqualsResult{Ignored: true, Input: s.input, Display: s.display}
	}
	defer s.leave()
	return s.equals()
}

func (s *Session) equals() EqualsResult {
	s.settle()
	if len(s.tokens) == 0 {
		if s.hasResult {
			s.display = s.lastResultText()
		}
		return EqualsResult{Input: s.input, Display: s.display}
	}

	v, err := s.evaluator().Resolve(s.tokens)
	if err != nil {
		s.display = s.opts.ErrorIndicator
		return EqualsResult{Input: s.input, Display: s.display, ErrorSignaled: true, Err: err}
	}

	text := types.FormatNumber(v)
	if !types.IsFinite(v) {
		// Infinity and NaN cannot be typed back into the field.
		s.input = ""
		s.tokens = nil
		s.stale = false
		s.display = text
		s.clearResult()
		return EqualsResult{Display: text}
	}

	s.setResult(v)
	s.tokens = []expr.Token{expr.Operand(text)}
	s.input = text
	s.display = text
	return EqualsResult{Input: text, Display: text}
}

// ClearAll resets the input, display, pending tokens and last result.
func (s *Session) ClearAll() Snapshot {
	if !s.enter() {
		return s.Snapshot()
	}
	defer s.leave()
	s.clearAll()
	return s.Snapshot()
}

func (s *Session) clearAll() {
	s.input = ""
	s.stale = false
	s.display = ""
	s.tokens = nil
	s.clearResult()
}

// Backspace removes the last character of the input and reprocesses the
// rest. On an empty input it does nothing.
func (s *Session) Backspace() EditResult {
	if !s.enter() {
		return EditResult{Ignored: true, Input: s.input, Display: s.display}
	}
	defer s.leave()
	return s.backspace()
}

func (s *Session) backspace() EditResult {
	if s.input == "" {
		return EditResult{Input: "", Display: s.display}
	}
	return s.edit(s.input[:len(s.input)-1])
}

func isLetter(key string) bool {
	return len(key) == 1 && isASCIILetter(rune(key[0]))
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
