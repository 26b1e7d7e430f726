// Package script parses YAML keystroke scripts and replays them against a
// calculator session.
package script

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// MaxSourceSize is the maximum script source size in bytes (64 KB).
const MaxSourceSize = 64 * 1024

// MaxSteps is the maximum number of steps per script.
const MaxSteps = 1000

// Action identifies what a step does to the session.
type Action string

const (
	ActionType      Action = "type"
	ActionKey       Action = "key"
	ActionPress     Action = "press"
	ActionEdit      Action = "edit"
	ActionPaste     Action = "paste"
	ActionEquals    Action = "equals"
	ActionBackspace Action = "backspace"
	ActionClear     Action = "clear"
)

// Expect holds the state checked after a step. Nil fields are not checked.
type Expect struct {
	Input   *string `json:"input,omitempty"`
	Display *string `json:"display,omitempty"`
	Error   *bool   `json:"error,omitempty"`
	Blocked *bool   `json:"blocked,omitempty"`
}

// Step is one action of a script.
type Step struct {
	Action Action  `json:"action"`
	Text   string  `json:"text,omitempty"`
	Count  int     `json:"count,omitempty"`
	Expect *Expect `json:"expect,omitempty"`
	Line   int     `json:"line"`
}

// Script is a parsed keystroke script.
type Script struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Steps       []*Step `json:"steps"`
}

// ParseError represents an error encountered while parsing a script.
type ParseError struct {
	Message  string
	Location string
}

func (e *ParseError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("parse error at %s: %s", e.Location, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// Parse parses a YAML keystroke script.
func Parse(source []byte) (*Script, error) {
	if len(source) > MaxSourceSize {
		return nil, &ParseError{Message: fmt.Sprintf("script source size %d exceeds maximum %d bytes", len(source), MaxSourceSize)}
	}

	var raw yaml.Node
	if err := yaml.Unmarshal(source, &raw); err != nil {
		return nil, &ParseError{Message: fmt.Sprintf("invalid YAML: %v", err)}
	}
	if raw.Kind != yaml.DocumentNode || len(raw.Content) == 0 {
		return nil, &ParseError{Message: "empty script"}
	}

	root := raw.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &ParseError{Message: "script must be a mapping"}
	}

	sc := &Script{}
	seenSteps := false
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		val := root.Content[i+1]

		switch key {
		case "name":
			sc.Name = val.Value
		case "description":
			sc.Description = val.Value
		case "steps":
			steps, err := parseSteps(val)
			if err != nil {
				return nil, err
			}
			sc.Steps = steps
			seenSteps = true
		default:
			return nil, &ParseError{
				Message:  fmt.Sprintf("unknown key '%s'", key),
				Location: fmt.Sprintf("line %d", root.Content[i].Line),
			}
		}
	}

	if !seenSteps {
		return nil, &ParseError{Message: "script must have 'steps'"}
	}
	return sc, nil
}

func parseSteps(node *yaml.Node) ([]*Step, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, &ParseError{Message: "steps must be a sequence", Location: fmt.Sprintf("line %d", node.Line)}
	}
	if len(node.Content) > MaxSteps {
		return nil, &ParseError{Message: fmt.Sprintf("%d steps exceeds maximum %d", len(node.Content), MaxSteps)}
	}

	steps := make([]*Step, 0, len(node.Content))
	for i, item := range node.Content {
		step, err := parseStep(item, i)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func parseStep(node *yaml.Node, index int) (*Step, error) {
	loc := fmt.Sprintf("step %d (line %d)", index+1, node.Line)
	if node.Kind != yaml.MappingNode {
		return nil, &ParseError{Message: "step must be a mapping", Location: loc}
	}

	step := &Step{Line: node.Line}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]

		if key == "expect" {
			exp, err := parseExpect(val, loc)
			if err != nil {
				return nil, err
			}
			step.Expect = exp
			continue
		}

		if step.Action != "" {
			return nil, &ParseError{
				Message:  fmt.Sprintf("step has both '%s' and '%s'", step.Action, key),
				Location: loc,
			}
		}

		switch Action(key) {
		case ActionType, ActionKey, ActionPress, ActionEdit, ActionPaste:
			if val.Kind != yaml.ScalarNode {
				return nil, &ParseError{Message: fmt.Sprintf("'%s' must be a string", key), Location: loc}
			}
			step.Action = Action(key)
			step.Text = val.Value
		case ActionEquals, ActionClear:
			on, err := boolValue(val)
			if err != nil {
				return nil, &ParseError{Message: fmt.Sprintf("'%s' must be a boolean", key), Location: loc}
			}
			if !on {
				return nil, &ParseError{Message: fmt.Sprintf("'%s: false' is not an action", key), Location: loc}
			}
			step.Action = Action(key)
		case ActionBackspace:
			n, err := strconv.Atoi(val.Value)
			if err != nil || n < 1 {
				return nil, &ParseError{Message: "'backspace' must be a positive count", Location: loc}
			}
			step.Action = ActionBackspace
			step.Count = n
		default:
			return nil, &ParseError{Message: fmt.Sprintf("unknown step key '%s'", key), Location: loc}
		}
	}

	if step.Action == "" {
		return nil, &ParseError{Message: "step has no action", Location: loc}
	}
	if (step.Action == ActionType || step.Action == ActionKey || step.Action == ActionPress) && step.Text == "" {
		return nil, &ParseError{Message: fmt.Sprintf("'%s' must not be empty", step.Action), Location: loc}
	}
	return step, nil
}

func parseExpect(node *yaml.Node, loc string) (*Expect, error) {
	if node.Kind != yaml.MappingNode {
		return nil, &ParseError{Message: "expect must be a mapping", Location: loc}
	}

	exp := &Expect{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]

		switch key {
		case "input":
			v := val.Value
			exp.Input = &v
		case "display":
			v := val.Value
			exp.Display = &v
		case "error", "blocked":
			b, err := boolValue(val)
			if err != nil {
				return nil, &ParseError{Message: fmt.Sprintf("expect.%s must be a boolean", key), Location: loc}
			}
			if key == "error" {
				exp.Error = &b
			} else {
				exp.Blocked = &b
			}
		default:
			return nil, &ParseError{Message: fmt.Sprintf("unknown expect key '%s'", key), Location: loc}
		}
	}
	return exp, nil
}

func boolValue(node *yaml.Node) (bool, error) {
	var b bool
	if err := node.Decode(&b); err != nil {
		return false, err
	}
	return b, nil
}
