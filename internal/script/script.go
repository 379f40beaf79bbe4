// Package script parses and replays YAML scripts of stack operations.
//
// A script names a default stack and a list of steps:
//
//	stack: main
//	steps:
//	  - op: insert
//	    type: toast
//	    anchor: top
//	    as: hello
//	    payload: Saved
//	    dismiss_after: 2s
//	  - op: remove
//	    ref: hello
//
// Inserted popups can be bound to a name with "as" and referred to by later
// steps with "ref".
package script

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/popstack/internal/config"
	"github.com/jmylchreest/popstack/internal/model"
)

// DefaultStack is used when neither the script nor a step names a stack.
const DefaultStack = "main"

// Op names a step operation.
type Op string

const (
	OpInsert     Op = "insert"
	OpRemove     Op = "remove"
	OpRemoveUpTo Op = "remove-up-to"
	OpRemoveLast Op = "remove-last"
	OpClear      Op = "clear"
	OpHeight     Op = "height"
	OpPause      Op = "pause"
	OpResume     Op = "resume"
	OpWait       Op = "wait"
)

// ValidOps returns all supported operations.
func ValidOps() []Op {
	return []Op{OpInsert, OpRemove, OpRemoveUpTo, OpRemoveLast, OpClear, OpHeight, OpPause, OpResume, OpWait}
}

// Script errors.
var (
	ErrUnknownOp    = errors.New("unknown op")
	ErrUnknownRef   = errors.New("unknown ref")
	ErrMissingField = errors.New("missing field")
	ErrEmptyScript  = errors.New("script has no steps")
)

// Script is a parsed replay script.
type Script struct {
	Stack string `yaml:"stack"`
	Steps []Step `yaml:"steps"`
}

// Step is one stack operation.
type Step struct {
	Op           Op       `yaml:"op"`
	Stack        string   `yaml:"stack,omitempty"`
	Type         string   `yaml:"type,omitempty"`
	Anchor       string   `yaml:"anchor,omitempty"`
	As           string   `yaml:"as,omitempty"`
	Ref          string   `yaml:"ref,omitempty"`
	Payload      any      `yaml:"payload,omitempty"`
	Height       *float64 `yaml:"height,omitempty"`
	DismissAfter string   `yaml:"dismiss_after,omitempty"`
	Duration     string   `yaml:"duration,omitempty"`
}

// StepError reports the step a script failed at.
type StepError struct {
	Index int // 1-based
	Op    Op
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Op, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Parse decodes and validates a script. Unknown fields are rejected.
func Parse(data []byte) (*Script, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyScript
		}
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads and parses a script from r.
func Load(r io.Reader) (*Script, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return Parse(data)
}

// Validate checks every step, including that each ref is bound by an
// earlier insert.
func (s *Script) Validate() error {
	if len(s.Steps) == 0 {
		return ErrEmptyScript
	}

	bound := make(map[string]bool)
	for i, step := range s.Steps {
		if err := step.validate(bound); err != nil {
			return &StepError{Index: i + 1, Op: step.Op, Err: err}
		}
		if step.Op == OpInsert && step.As != "" {
			bound[step.As] = true
		}
	}
	return nil
}

func (s Step) validate(bound map[string]bool) error {
	needRef := func() error {
		if s.Ref == "" {
			return fmt.Errorf("%w: ref", ErrMissingField)
		}
		if !bound[s.Ref] {
			return fmt.Errorf("%w %q", ErrUnknownRef, s.Ref)
		}
		return nil
	}

	switch s.Op {
	case OpInsert:
		if s.Type == "" {
			return fmt.Errorf("%w: type", ErrMissingField)
		}
		if _, err := s.anchor(); err != nil {
			return err
		}
		if _, err := parseDuration(s.DismissAfter); err != nil {
			return fmt.Errorf("dismiss_after: %w", err)
		}
	case OpRemove, OpPause, OpResume:
		return needRef()
	case OpRemoveUpTo:
		if s.Type != "" && s.Ref == "" {
			return nil
		}
		return needRef()
	case OpHeight:
		if s.Height == nil {
			return fmt.Errorf("%w: height", ErrMissingField)
		}
		return needRef()
	case OpRemoveLast, OpClear:
	case OpWait:
		if s.Duration == "" {
			return fmt.Errorf("%w: duration", ErrMissingField)
		}
		if _, err := parseDuration(s.Duration); err != nil {
			return fmt.Errorf("duration: %w", err)
		}
	default:
		return fmt.Errorf("%w %q, must be one of: %v", ErrUnknownOp, s.Op, ValidOps())
	}
	return nil
}

// anchor parses the step anchor; empty means top.
func (s Step) anchor() (model.Anchor, error) {
	if s.Anchor == "" {
		return model.AnchorTop, nil
	}
	return model.ParseAnchor(s.Anchor)
}

// parseDuration accepts the same forms as configuration durations.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	var d config.Duration
	if err := d.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative, got %s", s)
	}
	return d.Duration(), nil
}
