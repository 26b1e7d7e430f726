package api

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/calcfield/pkg/script"
	"github.com/lemonberrylabs/calcfield/pkg/session"
	"github.com/lemonberrylabs/calcfield/pkg/store"
)

// --- Script Handlers ---

type createScriptRequest struct {
	Name        string `json:"name"`
	Source      string `json:"source"`
	Description string `json:"description"`
}

func (s *Server) createScript(c *fiber.Ctx) error {
	var req createScriptRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Name == "" {
		return badRequest(c, "name is required")
	}
	if req.Source == "" {
		return badRequest(c, "source is required")
	}

	sc, err := script.Parse([]byte(req.Source))
	if err != nil {
		return badRequest(c, fmt.Sprintf("invalid script: %v", err))
	}
	if sc.Name == "" {
		sc.Name = req.Name
	}
	description := req.Description
	if description == "" {
		description = sc.Description
	}

	stored, err := s.store.CreateScript(req.Name, req.Source, description)
	if err != nil {
		return storeError(c, err)
	}
	s.setParsed(req.Name, sc)
	return c.JSON(scriptToJSON(stored, sc))
}

func (s *Server) getScript(c *fiber.Ctx) error {
	name := c.Params("script")
	stored, err := s.store.GetScript(name)
	if err != nil {
		return storeError(c, err)
	}
	sc, err := s.getParsed(name)
	if err != nil {
		return scriptError(c, err)
	}
	return c.JSON(scriptToJSON(stored, sc))
}

func (s *Server) listScripts(c *fiber.Ctx) error {
	scripts := s.store.ListScripts()
	items := make([]fiber.Map, 0, len(scripts))
	for _, stored := range scripts {
		sc, err := s.getParsed(stored.Name)
		if err != nil {
			continue
		}
		items = append(items, scriptToJSON(stored, sc))
	}
	return c.JSON(fiber.Map{
		"scripts": items,
	})
}

func (s *Server) deleteScript(c *fiber.Ctx) error {
	name := c.Params("script")
	if err := s.store.DeleteScript(name); err != nil {
		return storeError(c, err)
	}
	s.setParsed(name, nil)
	return c.JSON(fiber.Map{})
}

// runScript replays a stored script. With ?session=<id> it runs against that
// session; otherwise against a fresh one that is not kept.
func (s *Server) runScript(c *fiber.Ctx) error {
	sc, err := s.getParsed(c.Params("script"))
	if err != nil {
		return scriptError(c, err)
	}
	return s.run(c, sc)
}

// runInlineScript replays a script sent as the raw YAML request body.
func (s *Server) runInlineScript(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return badRequest(c, "script body is required")
	}
	sc, err := script.Parse(body)
	if err != nil {
		return badRequest(c, fmt.Sprintf("invalid script: %v", err))
	}
	return s.run(c, sc)
}

func (s *Server) run(c *fiber.Ctx, sc *script.Script) error {
	id := c.Query("session")
	if id == "" {
		return c.JSON(script.Run(sc, s.newSession()))
	}

	rec, err := s.store.GetSession(id)
	if err != nil {
		return storeError(c, err)
	}
	var report *script.Report
	rec.Do(func(sess *session.Session) {
		report = script.Run(sc, sess)
	})
	return c.JSON(report)
}

func scriptToJSON(stored *store.Script, sc *script.Script) fiber.Map {
	return fiber.Map{
		"name":        stored.Name,
		"description": stored.Description,
		"createTime":  stored.CreateTime.Format(time.RFC3339Nano),
		"steps":       len(sc.Steps),
		"source":      stored.Source,
	}
}
