// Package yamlchart loads state charts from YAML documents.
//
//	name: player
//	initial: stopped
//	states:
//	  - name: stopped
//	    transitions:
//	      - event: play
//	        target: playing
//	  - name: playing
//	    onEntry:
//	      - send: tick
//	        delay: 1s
//	    transitions:
//	      - event: stop
//	        target: stopped
package yamlchart

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// State types accepted in documents
const (
	TypeCompound    = "compound"
	TypeParallel    = "parallel"
	TypeFinal       = "final"
	TypeHistory     = "history"
	TypeDeepHistory = "deep-history"
)

// Document is the root of a chart document
type Document struct {
	Name              string      `yaml:"name"`
	Initial           string      `yaml:"initial"`
	Parallel          bool        `yaml:"parallel"`
	ErrorState        string      `yaml:"errorState"`
	RestoreProperties bool        `yaml:"restoreProperties"`
	States            []StateSpec `yaml:"states"`
}

// StateSpec describes one state and its subtree
type StateSpec struct {
	Name        string           `yaml:"name"`
	Type        string           `yaml:"type"`
	Initial     string           `yaml:"initial"`
	ErrorState  string           `yaml:"errorState"`
	SubMachine  bool             `yaml:"subMachine"`
	Default     []string         `yaml:"default"`
	Assign      []AssignSpec     `yaml:"assign"`
	OnEntry     []ActionSpec     `yaml:"onEntry"`
	OnExit      []ActionSpec     `yaml:"onExit"`
	States      []StateSpec      `yaml:"states"`
	Transitions []TransitionSpec `yaml:"transitions"`
}

// TransitionSpec describes an outgoing transition. Target and Targets are
// merged; a transition without either is targetless.
type TransitionSpec struct {
	Event    string       `yaml:"event"`
	Target   string       `yaml:"target"`
	Targets  []string     `yaml:"targets"`
	Internal bool         `yaml:"internal"`
	In       string       `yaml:"in"`
	NotIn    string       `yaml:"notIn"`
	Actions  []ActionSpec `yaml:"actions"`
}

// AssignSpec writes Value into Property of the object named Target
type AssignSpec struct {
	Target   string `yaml:"target"`
	Property string `yaml:"property"`
	Value    any    `yaml:"value"`
}

// ActionSpec posts an event. Raise goes to the internal queue, Send to the
// external one, optionally after Delay.
type ActionSpec struct {
	Raise string `yaml:"raise"`
	Send  string `yaml:"send"`
	Delay string `yaml:"delay"`
}

// AllTargets returns Target followed by Targets
func (t TransitionSpec) AllTargets() []string {
	var targets []string
	if t.Target != "" {
		targets = append(targets, t.Target)
	}
	return append(targets, t.Targets...)
}

// Parse decodes a chart document and validates its shape
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Load reads and parses a chart document
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chart file %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid chart file %s: %w", path, err)
	}
	return doc, nil
}

// Validate checks what the document alone can tell: names, types and
// action syntax. References between states are resolved when compiling.
func (d *Document) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	var walk func(path string, states []StateSpec)
	walk = func(path string, states []StateSpec) {
		for i, s := range states {
			where := fmt.Sprintf("%s[%d]", path, i)
			if s.Name == "" {
				errs = append(errs, fmt.Errorf("%s: state name is required", where))
			} else if seen[s.Name] {
				errs = append(errs, fmt.Errorf("%s: duplicate state name '%s'", where, s.Name))
			}
			seen[s.Name] = true

			switch s.Type {
			case "", TypeCompound, TypeParallel:
			case TypeFinal, TypeHistory, TypeDeepHistory:
				if len(s.States) > 0 {
					errs = append(errs, fmt.Errorf("%s: %s state '%s' cannot have children", where, s.Type, s.Name))
				}
				if len(s.Transitions) > 0 {
					errs = append(errs, fmt.Errorf("%s: %s state '%s' cannot have transitions", where, s.Type, s.Name))
				}
			default:
				errs = append(errs, fmt.Errorf("%s: unknown state type '%s'", where, s.Type))
			}

			for _, a := range append(append([]ActionSpec(nil), s.OnEntry...), s.OnExit...) {
				if err := a.validate(); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", where, err))
				}
			}
			for j, t := range s.Transitions {
				for _, a := range t.Actions {
					if err := a.validate(); err != nil {
						errs = append(errs, fmt.Errorf("%s.transitions[%d]: %w", where, j, err))
					}
				}
			}
			for _, a := range s.Assign {
				if a.Target == "" || a.Property == "" {
					errs = append(errs, fmt.Errorf("%s: assignment needs a target and a property", where))
				}
			}
			walk(where+".states", s.States)
		}
	}
	walk("states", d.States)
	return errors.Join(errs...)
}

func (a ActionSpec) validate() error {
	if (a.Raise == "") == (a.Send == "") {
		return errors.New("action needs exactly one of raise or send")
	}
	if a.Delay != "" {
		if a.Raise != "" {
			return errors.New("delay is only allowed on send")
		}
		delay, err := time.ParseDuration(a.Delay)
		if err != nil {
			return fmt.Errorf("invalid delay '%s': %w", a.Delay, err)
		}
		if delay < 0 {
			return fmt.Errorf("negative delay '%s'", a.Delay)
		}
	}
	return nil
}
