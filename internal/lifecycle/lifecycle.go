// Package lifecycle holds the project stage table and checks stage transitions.
package lifecycle

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed stages.yaml
var defaultTable []byte

// Table is the YAML form of the stage table.
type Table struct {
	AllowUnknown bool    `yaml:"allow_unknown"`
	Stages       []Stage `yaml:"stages"`
}

// Stage is one named phase and the stages reachable from it.
type Stage struct {
	Name string   `yaml:"name"`
	Next []string `yaml:"next"`
}

// Verdict is the outcome of checking one transition.
type Verdict struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Allowed bool   `json:"allowed"`
	Flagged bool   `json:"flagged"`
	Reason  string `json:"reason,omitempty"`
}

// Machine answers transition questions against a loaded Table.
type Machine struct {
	allowUnknown bool
	order        []string                   // table spelling, declaration order
	canonical    map[string]string          // lower-case -> table spelling
	next         map[string]map[string]bool // canonical -> canonical set
}

// Default returns the machine built from the embedded table.
func Default() *Machine {
	m, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("lifecycle: embedded stage table: %v", err))
	}
	return m
}

// Load reads a table from path, or returns Default when path is empty.
func Load(path string) (*Machine, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a machine from YAML. Every stage named in a next list must be declared.
func Parse(data []byte) (*Machine, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("lifecycle: parse stage table: %w", err)
	}
	if len(t.Stages) == 0 {
		return nil, fmt.Errorf("lifecycle: stage table is empty")
	}

	m := &Machine{
		allowUnknown: t.AllowUnknown,
		canonical:    make(map[string]string, len(t.Stages)),
		next:         make(map[string]map[string]bool, len(t.Stages)),
	}
	for _, s := range t.Stages {
		key := fold(s.Name)
		if key == "" {
			return nil, fmt.Errorf("lifecycle: stage with empty name")
		}
		if _, dup := m.canonical[key]; dup {
			return nil, fmt.Errorf("lifecycle: duplicate stage %q", s.Name)
		}
		m.canonical[key] = s.Name
		m.order = append(m.order, s.Name)
	}
	for _, s := range t.Stages {
		set := make(map[string]bool, len(s.Next))
		for _, n := range s.Next {
			c, ok := m.canonical[fold(n)]
			if !ok {
				return nil, fmt.Errorf("lifecycle: stage %q lists undeclared next stage %q", s.Name, n)
			}
			set[c] = true
		}
		m.next[s.Name] = set
	}
	return m, nil
}

// Canonical returns the table spelling of stage and whether it is in the table.
func (m *Machine) Canonical(stage string) (string, bool) {
	c, ok := m.canonical[fold(stage)]
	if !ok {
		return strings.TrimSpace(stage), false
	}
	return c, true
}

// Stages returns the declared stage names in table order.
func (m *Machine) Stages() []string {
	return append([]string(nil), m.order...)
}

// Check evaluates moving a project from one stage to another.
func (m *Machine) Check(from, to string) Verdict {
	toC, toKnown := m.Canonical(to)
	fromC, fromKnown := m.Canonical(from)
	v := Verdict{From: fromC, To: toC}

	switch {
	case toC == "":
		v.Reason = "empty stage"
	case strings.EqualFold(fromC, toC):
		v.Allowed = true
	case !toKnown:
		v.Reason = fmt.Sprintf("stage %q is not in the stage table", toC)
		v.Allowed = m.allowUnknown
		v.Flagged = true
	case !fromKnown:
		v.Allowed = true
		v.Flagged = true
		v.Reason = fmt.Sprintf("current stage %q is not in the stage table", fromC)
	case m.next[fromC][toC]:
		v.Allowed = true
	default:
		v.Flagged = true
		v.Reason = fmt.Sprintf("transition %s -> %s is not in the stage table", fromC, toC)
	}
	return v
}

func fold(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
