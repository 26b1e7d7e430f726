package web

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/calcfield/pkg/session"
	"github.com/lemonberrylabs/calcfield/pkg/store"
)

func setupTestApp(t *testing.T) (*fiber.App, *store.Store) {
	t.Helper()
	s := store.New(session.Options{})
	h := New(s, 750*time.Millisecond)
	app := fiber.New()
	h.Register(app)
	return app, s
}

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestDashboardEmpty(t *testing.T) {
	app, _ := setupTestApp(t)

	status, html := get(t, app, "/ui")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, html)
	}
	if !strings.Contains(html, "calcfield") {
		t.Error("expected brand in response")
	}
	if !strings.Contains(html, "No sessions yet") {
		t.Error("expected empty state message")
	}
	if !strings.Contains(html, "policy: strict") {
		t.Error("expected policy in header")
	}
}

func TestDashboardWithSessions(t *testing.T) {
	app, s := setupTestApp(t)

	rec := s.CreateSession()
	rec.Do(func(sess *session.Session) {
		sess.ProcessEdit("12*12")
	})

	status, html := get(t, app, "/ui")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(html, "/ui/calculator/"+rec.ID) {
		t.Error("expected link to the session")
	}
	if !strings.Contains(html, "144") {
		t.Error("expected session display in table")
	}
}

func TestNewCalculatorRedirects(t *testing.T) {
	app, s := setupTestApp(t)

	req := httptest.NewRequest("GET", "/ui/calculator", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 302 {
		t.Fatalf("expected 302 redirect, got %d", resp.StatusCode)
	}

	sessions := s.ListSessions()
	if len(sessions) != 1 {
		t.Fatalf("expected a new session, got %d", len(sessions))
	}
	if loc := resp.Header.Get("Location"); loc != "/ui/calculator/"+sessions[0].ID {
		t.Errorf("unexpected redirect target %s", loc)
	}
}

func TestCalculatorPage(t *testing.T) {
	app, s := setupTestApp(t)
	rec := s.CreateSession()
	rec.Do(func(sess *session.Session) {
		sess.ProcessEdit("7-2")
	})

	status, html := get(t, app, "/ui/calculator/"+rec.ID)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, html)
	}
	if !strings.Contains(html, `value="7-2"`) {
		t.Error("expected current input in the field")
	}
	if !strings.Contains(html, `data-label="AC"`) || !strings.Contains(html, `data-label="="`) {
		t.Error("expected keypad buttons")
	}
	if !strings.Contains(html, "750") {
		t.Error("expected error flash duration in page script")
	}
	if !strings.Contains(html, rec.ID) {
		t.Error("expected session id in page")
	}
}

func TestCalculatorNotFound(t *testing.T) {
	app, _ := setupTestApp(t)

	status, html := get(t, app, "/ui/calculator/nonexistent")
	if status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
	if !strings.Contains(html, "Session not found") {
		t.Error("expected not found message")
	}
}

func TestScriptList(t *testing.T) {
	app, s := setupTestApp(t)

	status, html := get(t, app, "/ui/scripts")
	if status != 200 || !strings.Contains(html, "No scripts loaded") {
		t.Fatalf("expected empty script list, got %d", status)
	}

	if _, err := s.CreateScript("smoke", "steps:\n  - type: \"1\"\n", "smoke test"); err != nil {
		t.Fatalf("failed to create script: %v", err)
	}
	_, html = get(t, app, "/ui/scripts")
	if !strings.Contains(html, "smoke test") {
		t.Error("expected script description")
	}
}

func TestRootRedirect(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest("GET", "/", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 302 {
		t.Fatalf("expected 302 redirect, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/ui" {
		t.Fatalf("expected redirect to /ui, got %s", loc)
	}
}

func TestButtonClass(t *testing.T) {
	tests := map[string]string{
		"AC": "btn-control", "DEL": "btn-control", "=": "btn-equals",
		"%": "btn-operator", "7": "btn-digit", ".": "btn-digit",
	}
	for label, want := range tests {
		if got := buttonClass(label); got != want {
			t.Errorf("buttonClass(%q) = %q, want %q", label, got, want)
		}
	}
}
