// Package web provides the embedded web UI: a calculator page per session
// and overview pages for sessions and scripts.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/calcfield/pkg/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// Buttons is the on-screen keypad layout, row by row.
var Buttons = [][]string{
	{"AC", "DEL", "%", "/"},
	{"7", "8", "9", "*"},
	{"4", "5", "6", "-"},
	{"1", "2", "3", "+"},
	{"0", ".", "="},
}

// Handler serves the web UI pages.
type Handler struct {
	store      *store.Store
	errorFlash time.Duration
	funcMap    template.FuncMap
}

// pageData wraps all page-specific data with common fields.
type pageData struct {
	NavActive string
	Policy    string
	Data      interface{}
}

// New creates a new web UI handler. errorFlash is how long the input field
// stays marked after an error signal.
func New(s *store.Store, errorFlash time.Duration) *Handler {
	return &Handler{
		store:      s,
		errorFlash: errorFlash,
		funcMap: template.FuncMap{
			"timeAgo":     timeAgo,
			"formatTime":  formatTime,
			"truncate":    truncate,
			"countLines":  countLines,
			"buttonClass": buttonClass,
		},
	}
}

func (h *Handler) render(c *fiber.Ctx, status int, page string, navActive string, data interface{}) error {
	// Each page is parsed with the layout on its own so that the "content"
	// blocks of different pages do not collide.
	tmpl := template.Must(
		template.New("").Funcs(h.funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+page),
	)

	pd := pageData{
		NavActive: navActive,
		Policy:    h.store.Options().Policy.String(),
		Data:      data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, page, pd); err != nil {
		return c.Status(500).SendString(fmt.Sprintf("template error: %v", err))
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Status(status).Send(buf.Bytes())
}

// Register adds web UI routes to the Fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/ui", h.dashboard)
	app.Get("/ui/calculator", h.newCalculator)
	app.Get("/ui/calculator/:id", h.calculator)
	app.Get("/ui/scripts", h.scriptList)

	// Redirect root to UI
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/ui")
	})
}

// --- Page Data Types ---

type sessionView struct {
	*store.Session
	Input      string
	Display    string
	UpdateTime time.Time
	Operations int64
}

type dashboardContent struct {
	Sessions    []*sessionView
	ScriptCount int
}

type calculatorContent struct {
	ID             string
	Name           string
	Input          string
	Display        string
	ErrorIndicator string
	ErrorFlashMS   int64
	Buttons        [][]string
}

type scriptListContent struct {
	Scripts []*store.Script
}

type notFoundContent struct {
	What string
	ID   string
}

// --- Handlers ---

func (h *Handler) dashboard(c *fiber.Ctx) error {
	sessions := h.store.ListSessions()
	views := make([]*sessionView, 0, len(sessions))
	for i := len(sessions) - 1; i >= 0; i-- {
		views = append(views, newSessionView(sessions[i]))
	}

	return h.render(c, 200, "dashboard.html", "dashboard", dashboardContent{
		Sessions:    views,
		ScriptCount: len(h.store.ListScripts()),
	})
}

func (h *Handler) newCalculator(c *fiber.Ctx) error {
	rec := h.store.CreateSession()
	return c.Redirect("/ui/calculator/" + rec.ID)
}

func (h *Handler) calculator(c *fiber.Ctx) error {
	id := c.Params("id")
	rec, err := h.store.GetSession(id)
	if err != nil {
		return h.render(c, 404, "not_found.html", "", notFoundContent{What: "Session", ID: id})
	}

	snap := rec.Snapshot()
	return h.render(c, 200, "calculator.html", "calculator", calculatorContent{
		ID:             rec.ID,
		Name:           rec.Name,
		Input:          snap.Input,
		Display:        snap.Display,
		ErrorIndicator: h.store.Options().ErrorIndicator,
		ErrorFlashMS:   h.errorFlash.Milliseconds(),
		Buttons:        Buttons,
	})
}

func (h *Handler) scriptList(c *fiber.Ctx) error {
	return h.render(c, 200, "scripts.html", "scripts", scriptListContent{
		Scripts: h.store.ListScripts(),
	})
}

func newSessionView(rec *store.Session) *sessionView {
	snap := rec.Snapshot()
	return &sessionView{
		Session:    rec,
		Input:      snap.Input,
		Display:    snap.Display,
		UpdateTime: rec.UpdateTime(),
		Operations: rec.Operations(),
	}
}

// --- Template Helpers ---

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", m)
	case d < 24*time.Hour:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

func buttonClass(label string) string {
	switch label {
	case "AC", "DEL":
		return "btn-control"
	case "=":
		return "btn-equals"
	case "+", "-", "*", "/", "%":
		return "btn-operator"
	default:
		return "btn-digit"
	}
}
