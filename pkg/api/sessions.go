package api

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/calcfield/pkg/expr"
	"github.com/lemonberrylabs/calcfield/pkg/session"
	"github.com/lemonberrylabs/calcfield/pkg/types"
)

// --- Session Handlers ---

func (s *Server) createSession(c *fiber.Ctx) error {
	rec := s.store.CreateSession()
	return c.Status(fiber.StatusOK).JSON(sessionToJSON(rec))
}

func (s *Server) getSession(c *fiber.Ctx) error {
	rec, err := s.store.GetSession(c.Params("session"))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(sessionToJSON(rec))
}

func (s *Server) listSessions(c *fiber.Ctx) error {
	sessions := s.store.ListSessions()
	items := make([]fiber.Map, len(sessions))
	for i, rec := range sessions {
		items[i] = sessionToJSON(rec)
	}
	return c.JSON(fiber.Map{
		"sessions": items,
	})
}

func (s *Server) deleteSession(c *fiber.Ctx) error {
	if err := s.store.DeleteSession(c.Params("session")); err != nil {
		return storeError(c, err)
	}
	return c.JSON(fiber.Map{})
}

type editRequest struct {
	Input *string `json:"input"`
}

type editResponse struct {
	session.EditResult
	ErrorDetail *errorDetail `json:"errorDetail,omitempty"`
}

func (s *Server) editSession(c *fiber.Ctx) error {
	var req editRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Input == nil {
		return badRequest(c, "input is required")
	}

	rec, err := s.store.GetSession(c.Params("session"))
	if err != nil {
		return storeError(c, err)
	}

	var r session.EditResult
	rec.Do(func(sess *session.Session) {
		r = sess.ProcessEdit(*req.Input)
	})
	return c.JSON(editResponse{EditResult: r, ErrorDetail: detailOf(r.Err)})
}

type keyRequest struct {
	Key   string  `json:"key"`
	Input *string `json:"input"`
}

type keyResponse struct {
	session.KeyResult
	ErrorDetail *errorDetail `json:"errorDetail,omitempty"`
}

func (s *Server) keySession(c *fiber.Ctx) error {
	var req keyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Key == "" {
		return badRequest(c, "key is required")
	}

	rec, err := s.store.GetSession(c.Params("session"))
	if err != nil {
		return storeError(c, err)
	}

	var r session.KeyResult
	rec.Do(func(sess *session.Session) {
		current := sess.Input()
		if req.Input != nil {
			current = *req.Input
		}
		r = sess.ProcessKey(req.Key, current)
	})
	return c.JSON(keyResponse{KeyResult: r, ErrorDetail: detailOf(r.Err)})
}

type pasteRequest struct {
	Text string `json:"text"`
}

func (s *Server) pasteSession(c *fiber.Ctx) error {
	var req pasteRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, fmt.Sprintf("invalid request body: %v", err))
	}

	rec, err := s.store.GetSession(c.Params("session"))
	if err != nil {
		return storeError(c, err)
	}

	var r session.PasteResult
	rec.Do(func(sess *session.Session) {
		r = sess.Paste(req.Text)
	})
	return c.JSON(r)
}

type pressRequest struct {
	Label string `json:"label"`
}

func (s *Server) pressSession(c *fiber.Ctx) error {
	var req pressRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Label == "" {
		return badRequest(c, "label is required")
	}

	rec, err := s.store.GetSession(c.Params("session"))
	if err != nil {
		return storeError(c, err)
	}

	var r session.KeyResult
	rec.Do(func(sess *session.Session) {
		r = sess.Press(req.Label)
	})
	return c.JSON(keyResponse{KeyResult: r, ErrorDetail: detailOf(r.Err)})
}

type equalsResponse struct {
	session.EqualsResult
	ErrorDetail *errorDetail `json:"errorDetail,omitempty"`
}

func (s *Server) equalsSession(c *fiber.Ctx) error {
	rec, err := s.store.GetSession(c.Params("session"))
	if err != nil {
		return storeError(c, err)
	}

	var r session.EqualsResult
	rec.Do(func(sess *session.Session) {
		r = sess.Equals()
	})
	return c.JSON(equalsResponse{EqualsResult: r, ErrorDetail: detailOf(r.Err)})
}

func (s *Server) clearSession(c *fiber.Ctx) error {
	rec, err := s.store.GetSession(c.Params("session"))
	if err != nil {
		return storeError(c, err)
	}

	var snap session.Snapshot
	rec.Do(func(sess *session.Session) {
		snap = sess.ClearAll()
	})
	return c.JSON(snap)
}

func (s *Server) backspaceSession(c *fiber.Ctx) error {
	rec, err := s.store.GetSession(c.Params("session"))
	if err != nil {
		return storeError(c, err)
	}

	var r session.EditResult
	rec.Do(func(sess *session.Session) {
		r = sess.Backspace()
	})
	return c.JSON(editResponse{EditResult: r, ErrorDetail: detailOf(r.Err)})
}

// --- Evaluation Handler ---

type evaluateRequest struct {
	Expression string `json:"expression"`
}

func (s *Server) evaluate(c *fiber.Ctx) error {
	var req evaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, fmt.Sprintf("invalid request body: %v", err))
	}

	clean, v, err := s.evaluator().Calculate(req.Expression)
	result := fiber.Map{
		"expression": req.Expression,
		"sanitized":  clean,
		"tokens":     expr.Texts(expr.Tokenize(clean)),
	}
	if err != nil {
		result["display"] = s.store.Options().ErrorIndicator
		result["errorSignaled"] = true
		result["errorDetail"] = detailOf(err)
		return c.JSON(result)
	}

	result["display"] = types.FormatNumber(v)
	result["errorSignaled"] = false
	if types.IsFinite(v) {
		result["result"] = v
	}
	return c.JSON(result)
}
