package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemonberrylabs/calcfield/pkg/session"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

func TestTypingEvaluates(t *testing.T) {
	m := New(session.New(session.Options{}), time.Millisecond)

	m, _ = send(t, m, runes("1"), runes("2"), runes("+"), runes("3"))
	assert.Equal(t, "12+3", m.Session().Input())
	assert.Equal(t, "15", m.Session().Display())
	assert.False(t, m.Flashing())

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "15", m.Session().Input())
	assert.Contains(t, m.View(), "15")
}

func TestEqualsRune(t *testing.T) {
	m := New(session.New(session.Options{}), time.Millisecond)
	m, _ = send(t, m, runes("6*7="))
	assert.Equal(t, "42", m.Session().Display())
	assert.Equal(t, "42", m.Session().Input())
}

func TestErrorFlash(t *testing.T) {
	m := New(session.New(session.Options{}), time.Millisecond)

	m, cmd := send(t, m, runes("x"))
	require.NotNil(t, cmd)
	assert.True(t, m.Flashing())
	assert.Contains(t, m.View(), "InvalidCharacter")

	// a stale tick from an older flash does not end the current one
	m, _ = send(t, m, runes("y"))
	m, _ = send(t, m, flashDoneMsg{id: 1})
	assert.True(t, m.Flashing())

	m, _ = send(t, m, flashDoneMsg{id: 2})
	assert.False(t, m.Flashing())
}

func TestFlashTickFires(t *testing.T) {
	m := New(session.New(session.Options{}), time.Millisecond)

	m, cmd := send(t, m, runes("5"), runes("/"), runes("0"))
	require.NotNil(t, cmd)
	assert.Equal(t, "Err", m.Session().Display())

	msg := cmd()
	done, ok := msg.(flashDoneMsg)
	require.True(t, ok, "expected flashDoneMsg, got %T", msg)

	m, _ = send(t, m, done)
	assert.False(t, m.Flashing())
}

func TestNamedKeys(t *testing.T) {
	m := New(session.New(session.Options{}), time.Millisecond)

	m, _ = send(t, m, runes("9"), runes("-"), runes("1"), tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, "9-", m.Session().Input())

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, "", m.Session().Input())
	assert.Equal(t, "", m.Session().Display())
}

func TestPaste(t *testing.T) {
	m := New(session.New(session.Options{}), time.Millisecond)

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2+abc"), Paste: true})
	assert.True(t, m.Flashing())
	assert.Equal(t, "", m.Session().Input())

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2 * 8"), Paste: true})
	assert.Equal(t, "2*8", m.Session().Input())
}

func TestPastedCorrectionEvaluatesOnEnter(t *testing.T) {
	m := New(session.New(session.Options{}), time.Millisecond)

	m, _ = send(t, m, runes("9*9"), tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(" 1"), Paste: true})
	require.Equal(t, "9*91", m.Session().Input())

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "819", m.Session().Display())
	assert.Equal(t, "819", m.Session().Input())
}

func TestQuit(t *testing.T) {
	m := New(session.New(session.Options{}), time.Millisecond)

	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.True(t, m.Quitting())
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, strings.TrimSpace(m.View()) == "")
}
