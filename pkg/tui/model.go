// Package tui is a terminal front end for a calculator session.
package tui

import (
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lemonberrylabs/calcfield/pkg/session"
)

var (
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1).
			Width(32)

	displayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Align(lipgloss.Right).
			Width(30)

	inputStyle = lipgloss.NewStyle().
			Bold(true).
			Align(lipgloss.Right).
			Width(30)

	flashStyle = inputStyle.
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("160"))

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var errPasteBlocked = errors.New("paste blocked: letters are not allowed")

// flashDoneMsg ends the error flash started with the same id.
type flashDoneMsg struct{ id int }

// Model is the bubbletea model wrapping one calculator session.
type Model struct {
	sess     *session.Session
	flashFor time.Duration

	flashing bool
	flashID  int
	lastErr  string
	quitting bool
}

// New creates a model driving sess. flash is how long the input stays
// highlighted after an error signal.
func New(sess *session.Session, flash time.Duration) Model {
	return Model{sess: sess, flashFor: flash}
}

// Session returns the wrapped session.
func (m Model) Session() *session.Session {
	return m.sess
}

// Flashing reports whether the error highlight is showing.
func (m Model) Flashing() bool {
	return m.flashing
}

// Quitting reports whether the model asked the program to exit.
func (m Model) Quitting() bool {
	return m.quitting
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case flashDoneMsg:
		if msg.id == m.flashID {
			m.flashing = false
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyCtrlD:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyEnter:
		return m.key(session.KeyEnter)
	case tea.KeyBackspace:
		return m.key(session.KeyBackspace)
	case tea.KeyEsc:
		return m.key(session.KeyEscape)
	case tea.KeyRunes:
		if msg.Paste {
			return m.paste(string(msg.Runes))
		}
		var cmds []tea.Cmd
		for _, r := range msg.Runes {
			var next tea.Model
			var cmd tea.Cmd
			if r == '=' {
				next, cmd = m.press(session.ButtonEquals)
			} else {
				next, cmd = m.key(string(r))
			}
			m = next.(Model)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m Model) key(key string) (tea.Model, tea.Cmd) {
	r := m.sess.ProcessKey(key, m.sess.Input())
	return m.signal(r.ErrorSignaled, r.Err)
}

func (m Model) press(label string) (tea.Model, tea.Cmd) {
	r := m.sess.Press(label)
	return m.signal(r.ErrorSignaled, r.Err)
}

func (m Model) paste(text string) (tea.Model, tea.Cmd) {
	p := m.sess.Paste(text)
	if p.Blocked {
		return m.signal(true, errPasteBlocked)
	}
	r := m.sess.ProcessEdit(m.sess.Input() + text)
	return m.signal(r.ErrorSignaled, r.Err)
}

// signal starts an error flash when errorSignaled is set.
func (m Model) signal(errorSignaled bool, err error) (tea.Model, tea.Cmd) {
	if !errorSignaled {
		m.lastErr = ""
		return m, nil
	}
	if err != nil {
		m.lastErr = err.Error()
	}
	m.flashing = true
	m.flashID++
	id := m.flashID
	return m, tea.Tick(m.flashFor, func(time.Time) tea.Msg {
		return flashDoneMsg{id: id}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	input := inputStyle
	if m.flashing {
		input = flashStyle
	}

	var sb strings.Builder
	sb.WriteString(displayStyle.Render(m.sess.Display()))
	sb.WriteString("\n")
	sb.WriteString(input.Render(m.sess.Input()))

	out := frameStyle.Render(sb.String()) + "\n"
	if m.lastErr != "" {
		out += errorStyle.Render(m.lastErr) + "\n"
	}
	out += helpStyle.Render("0-9 . + - * / %  enter/= equals  esc clear  ctrl+c quit") + "\n"
	return out
}

// Run starts an interactive program on the terminal.
func Run(sess *session.Session, flash time.Duration) error {
	_, err := tea.NewProgram(New(sess, flash)).Run()
	return err
}
