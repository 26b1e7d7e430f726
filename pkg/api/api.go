// Package api implements the calcfield REST API: calculator sessions, one-shot
// evaluation and keystroke script replay.
package api

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/lemonberrylabs/calcfield/pkg/expr"
	"github.com/lemonberrylabs/calcfield/pkg/script"
	"github.com/lemonberrylabs/calcfield/pkg/session"
	"github.com/lemonberrylabs/calcfield/pkg/store"
	"github.com/lemonberrylabs/calcfield/pkg/types"
)

// Server is the REST API server.
type Server struct {
	app   *fiber.App
	store *store.Store

	mu     sync.RWMutex
	parsed map[string]*script.Script // parsed scripts by name
}

// Option configures a Server.
type Option func(*fiber.App)

// WithAccessLog enables per-request access logging.
func WithAccessLog() Option {
	return func(app *fiber.App) {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${method} ${path} ${latency}\n",
		}))
	}
}

// New creates a new API server backed by s.
func New(s *store.Store, opts ...Option) *Server {
	srv := &Server{
		store:  s,
		parsed: make(map[string]*script.Script),
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	app.Use(recover.New())
	for _, opt := range opts {
		opt(app)
	}

	// Sessions
	app.Post("/v1/sessions", srv.createSession)
	app.Get("/v1/sessions", srv.listSessions)
	app.Get("/v1/sessions/:session", srv.getSession)
	app.Delete("/v1/sessions/:session", srv.deleteSession)
	app.Post("/v1/sessions/:session\\:edit", srv.editSession)
	app.Post("/v1/sessions/:session\\:key", srv.keySession)
	app.Post("/v1/sessions/:session\\:paste", srv.pasteSession)
	app.Post("/v1/sessions/:session\\:press", srv.pressSession)
	app.Post("/v1/sessions/:session\\:equals", srv.equalsSession)
	app.Post("/v1/sessions/:session\\:clear", srv.clearSession)
	app.Post("/v1/sessions/:session\\:backspace", srv.backspaceSession)

	// One-shot evaluation
	app.Post("/v1/evaluate", srv.evaluate)

	// Scripts
	app.Post("/v1/scripts\\:run", srv.runInlineScript)
	app.Post("/v1/scripts", srv.createScript)
	app.Get("/v1/scripts", srv.listScripts)
	app.Get("/v1/scripts/:script", srv.getScript)
	app.Delete("/v1/scripts/:script", srv.deleteScript)
	app.Post("/v1/scripts/:script\\:run", srv.runScript)

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// Store returns the backing store.
func (s *Server) Store() *store.Store {
	return s.store
}

// apiError writes the standard error envelope.
func apiError(c *fiber.Ctx, code int, status, message string) error {
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
			"status":  status,
		},
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return apiError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", message)
}

// storeError maps store errors to HTTP errors.
func storeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apiError(c, fiber.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, store.ErrAlreadyExists):
		return apiError(c, fiber.StatusConflict, "ALREADY_EXISTS", err.Error())
	default:
		return apiError(c, fiber.StatusInternalServerError, "INTERNAL", err.Error())
	}
}

// scriptError maps errors from getParsed: store errors as usual, stored
// sources that fail to parse as invalid arguments.
func scriptError(c *fiber.Ctx, err error) error {
	var pe *script.ParseError
	if errors.As(err, &pe) {
		return badRequest(c, err.Error())
	}
	return storeError(c, err)
}

// errorDetail describes a calculator error in a response body.
type errorDetail struct {
	Kind     types.ErrorKind `json:"kind"`
	Message  string          `json:"message"`
	Position *int            `json:"position,omitempty"`
}

func detailOf(err error) *errorDetail {
	if err == nil {
		return nil
	}
	var ce *types.CalcError
	if !errors.As(err, &ce) {
		return &errorDetail{Message: err.Error()}
	}
	d := &errorDetail{Kind: ce.Kind, Message: ce.Message}
	if ce.Pos >= 0 {
		pos := ce.Pos
		d.Position = &pos
	}
	return d
}

func sessionToJSON(rec *store.Session) fiber.Map {
	snap := rec.Snapshot()
	result := fiber.Map{
		"name":       rec.Name,
		"id":         rec.ID,
		"createTime": rec.CreateTime.Format(time.RFC3339Nano),
		"updateTime": rec.UpdateTime().Format(time.RFC3339Nano),
		"operations": rec.Operations(),
		"input":      snap.Input,
		"display":    snap.Display,
		"tokens":     snap.Tokens,
	}
	if snap.LastResult != nil {
		result["lastResult"] = *snap.LastResult
	}
	return result
}

// LoadScripts deploys every script found in dir. Files that cannot be parsed
// are skipped with a warning.
func (s *Server) LoadScripts(dir string) (int, error) {
	sources, err := script.LoadDir(dir)
	if err != nil {
		return 0, err
	}

	loaded := 0
	for _, src := range sources {
		if _, err := s.store.CreateScript(src.Name, string(src.Data), src.Script.Description); err != nil {
			log.Printf("Warning: could not load script %q: %v", src.Path, err)
			continue
		}
		s.setParsed(src.Name, src.Script)
		loaded++
	}
	log.Printf("Loaded %d script(s) from %s", loaded, dir)
	return loaded, nil
}

func (s *Server) setParsed(name string, sc *script.Script) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc == nil {
		delete(s.parsed, name)
		return
	}
	s.parsed[name] = sc
}

func (s *Server) getParsed(name string) (*script.Script, error) {
	s.mu.RLock()
	sc, ok := s.parsed[name]
	s.mu.RUnlock()
	if ok {
		return sc, nil
	}

	stored, err := s.store.GetScript(name)
	if err != nil {
		return nil, err
	}
	sc, err = script.Parse([]byte(stored.Source))
	if err != nil {
		return nil, fmt.Errorf("script '%s': %w", name, err)
	}
	s.setParsed(name, sc)
	return sc, nil
}

// newSession builds a detached session using the store's options.
func (s *Server) newSession() *session.Session {
	return session.New(s.store.Options())
}

func (s *Server) evaluator() expr.Evaluator {
	return expr.Evaluator{Policy: s.store.Options().Policy}
}
