package script

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lemonberrylabs/calcfield/pkg/session"
)

// Failure is one expectation that did not hold.
type Failure struct {
	Step  int    `json:"step"`
	Line  int    `json:"line"`
	Field string `json:"field"`
	Want  string `json:"want"`
	Got   string `json:"got"`
}

func (f Failure) String() string {
	return fmt.Sprintf("step %d (line %d): %s = %q, want %q", f.Step, f.Line, f.Field, f.Got, f.Want)
}

// Report is the outcome of running a script.
type Report struct {
	Name     string           `json:"name"`
	Steps    int              `json:"steps"`
	Failures []Failure        `json:"failures"`
	Final    session.Snapshot `json:"final"`
}

// Passed reports whether every expectation held.
func (r *Report) Passed() bool {
	return len(r.Failures) == 0
}

// outcome is the observable result of one step.
type outcome struct {
	errorSignaled bool
	blocked       bool
}

// Run replays the script against sess and checks every expectation.
func Run(sc *Script, sess *session.Session) *Report {
	report := &Report{Name: sc.Name, Failures: []Failure{}}
	for i, step := range sc.Steps {
		out := apply(step, sess)
		report.Steps++
		if step.Expect != nil {
			report.Failures = append(report.Failures, check(i+1, step, out, sess)...)
		}
	}
	report.Final = sess.Snapshot()
	return report
}

func apply(step *Step, sess *session.Session) outcome {
	var out outcome
	switch step.Action {
	case ActionType:
		for i := 0; i < len(step.Text); i++ {
			r := sess.ProcessKey(step.Text[i:i+1], sess.Input())
			out.errorSignaled = out.errorSignaled || r.ErrorSignaled
		}
	case ActionKey:
		r := sess.ProcessKey(step.Text, sess.Input())
		out.errorSignaled = r.ErrorSignaled
	case ActionPress:
		r := sess.Press(step.Text)
		out.errorSignaled = r.ErrorSignaled
	case ActionEdit:
		r := sess.ProcessEdit(step.Text)
		out.errorSignaled = r.ErrorSignaled
	case ActionPaste:
		p := sess.Paste(step.Text)
		out.blocked = p.Blocked
		out.errorSignaled = p.ErrorSignaled
		if !p.Blocked {
			r := sess.ProcessEdit(sess.Input() + step.Text)
			out.errorSignaled = r.ErrorSignaled
		}
	case ActionEquals:
		r := sess.Equals()
		out.errorSignaled = r.ErrorSignaled
	case ActionBackspace:
		for i := 0; i < step.Count; i++ {
			r := sess.Backspace()
			out.errorSignaled = out.errorSignaled || r.ErrorSignaled
		}
	case ActionClear:
		sess.ClearAll()
	}
	return out
}

func check(index int, step *Step, out outcome, sess *session.Session) []Failure {
	var failures []Failure
	fail := func(field, want, got string) {
		failures = append(failures, Failure{Step: index, Line: step.Line, Field: field, Want: want, Got: got})
	}

	exp := step.Expect
	if exp.Input != nil && *exp.Input != sess.Input() {
		fail("input", *exp.Input, sess.Input())
	}
	if exp.Display != nil && *exp.Display != sess.Display() {
		fail("display", *exp.Display, sess.Display())
	}
	if exp.Error != nil && *exp.Error != out.errorSignaled {
		fail("error", fmt.Sprint(*exp.Error), fmt.Sprint(out.errorSignaled))
	}
	if exp.Blocked != nil && *exp.Blocked != out.blocked {
		fail("blocked", fmt.Sprint(*exp.Blocked), fmt.Sprint(out.blocked))
	}
	return failures
}

// ParseFile reads and parses a script file. Scripts without a name are named
// after the file.
func ParseFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = nameFromPath(path)
	}
	return sc, nil
}

// Source is a script file found on disk.
type Source struct {
	Name   string
	Path   string
	Data   []byte
	Script *Script
}

// LoadDir loads every .yaml/.yml script in dir, sorted by name. Files that
// fail to parse are logged and skipped.
func LoadDir(dir string) ([]*Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading scripts directory: %w", err)
	}

	var sources []*Source
	for _, entry := range entries {
		if entry.IsDir() || !isScriptFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("Warning: skipping %s: %v", path, err)
			continue
		}
		sc, err := Parse(data)
		if err != nil {
			log.Printf("Warning: skipping %s: %v", path, err)
			continue
		}
		name := nameFromPath(path)
		if sc.Name == "" {
			sc.Name = name
		}
		sources = append(sources, &Source{Name: name, Path: path, Data: data, Script: sc})
	}

	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Name < sources[j].Name
	})
	return sources, nil
}

func isScriptFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func nameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
