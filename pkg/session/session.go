// Package session holds the state of one calculator input field and the
// pipeline that every edit, key press, paste and equals request runs
// through.
//
// A Session is driven by exactly one logical actor. It is not safe for
// concurrent use and it is not reentrant: a call made while another call on
// the same Session is still running (for example from a change listener) is
// ignored rather than recursed into.
package session

import (
	"github.com/lemonberrylabs/calcfield/pkg/expr"
	"github.com/lemonberrylabs/calcfield/pkg/types"
)

// DefaultErrorIndicator is shown on the display when evaluation fails.
const DefaultErrorIndicator = "Err"

// Options configures a Session.
type Options struct {
	// ErrorIndicator is the display text used for evaluation errors.
	ErrorIndicator string
	// Policy selects strict or lenient arithmetic.
	Policy expr.Policy
}

// Session is the mutable state of one calculator input field.
type Session struct {
	opts Options

	input      string
	display    string
	tokens     []expr.Token
	// stale is set while input holds a sanitizer correction that has not
	// been tokenized yet.
	stale      bool
	lastResult float64
	hasResult  bool

	processing bool
	listeners  []func(Snapshot)
}

// Snapshot is a read-only view of a Session.
type Snapshot struct {
	Input      string   `json:"input"`
	Display    string   `json:"display"`
	LastResult *float64 `json:"lastResult,omitempty"`
	Tokens     []string `json:"tokens"`
}

// New creates an empty session.
func New(opts Options) *Session {
	if opts.ErrorIndicator == "" {
		opts.ErrorIndicator = DefaultErrorIndicator
	}
	return &Session{opts: opts}
}

// Options returns the options the session was created with.
func (s *Session) Options() Options {
	return s.opts
}

// Input returns the current contents of the input field.
func (s *Session) Input() string { return s.input }

// Display returns the current contents of the display.
func (s *Session) Display() string { return s.display }

// Tokens returns a copy of the tokens of the last processed input.
func (s *Session) Tokens() []expr.Token {
	return append([]expr.Token(nil), s.tokens...)
}

// LastResult returns the last computed result, if any.
func (s *Session) LastResult() (float64, bool) {
	return s.lastResult, s.hasResult
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Input:   s.input,
		Display: s.display,
		Tokens:  expr.Texts(s.tokens),
	}
	if s.hasResult {
		v := s.lastResult
		snap.LastResult = &v
	}
	return snap
}

// OnChange registers fn to be called with the new state after every
// operation that was not ignored. Calls that fn makes back into the session
// are ignored.
func (s *Session) OnChange(fn func(Snapshot)) {
	s.listeners = append(s.listeners, fn)
}

// enter marks the session busy. It returns false if the session is already
// processing a call.
func (s *Session) enter() bool {
	if s.processing {
		return false
	}
	s.processing = true
	return true
}

// leave notifies listeners and clears the busy mark. Listeners run while the
// session is still marked busy.
func (s *Session) leave() {
	if len(s.listeners) > 0 {
		snap := s.Snapshot()
		for _, fn := range s.listeners {
			fn(snap)
		}
	}
	s.processing = false
}

func (s *Session) validator() expr.Validator {
	return expr.Validator{HasResult: s.hasResult}
}

func (s *Session) evaluator() expr.Evaluator {
	return expr.Evaluator{Policy: s.opts.Policy}
}

func (s *Session) setResult(v float64) {
	s.lastResult = v
	s.hasResult = true
}

func (s *Session) clearResult() {
	s.lastResult = 0
	s.hasResult = false
}

func (s *Session) lastResultText() string {
	return types.FormatNumber(s.lastResult)
}
