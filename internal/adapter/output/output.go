// Package output provides output formatters for stack snapshots.
package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/popstack/internal/model"
	"github.com/jmylchreest/popstack/internal/stack"
)

// Formatter formats stack snapshots for output.
type Formatter interface {
	// Format writes formatted snapshots to the writer.
	Format(w io.Writer, snapshots []Snapshot) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatDmenu FormatType = "dmenu"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
	FormatPlain FormatType = "plain"
	FormatIDs   FormatType = "ids"
)

// ValidFormats returns all supported format names.
func ValidFormats() []FormatType {
	return []FormatType{FormatPlain, FormatJSON, FormatYAML, FormatIDs, FormatDmenu}
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) (Formatter, error) {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts), nil
	case FormatYAML:
		return NewYAMLFormatter(opts), nil
	case FormatIDs:
		return NewIDsFormatter(), nil
	case FormatDmenu:
		return NewDmenuFormatter(opts), nil
	case FormatPlain, "":
		return NewPlainFormatter(opts), nil
	default:
		return nil, fmt.Errorf("unknown output format %q, must be one of: %v", format, ValidFormats())
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template      string           // Custom template for dmenu/plain format
	ShowIndex     bool             // Show 1-based index prefix
	ShowAge       bool             // Show popup age
	PayloadMaxLen int              // Maximum payload length (0 = unlimited)
	Separator     string           // Field separator for dmenu format
	Now           func() time.Time // Clock for ages; nil means time.Now
}

// DefaultFormatterOptions returns sensible defaults.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowIndex:     true,
		ShowAge:       true,
		PayloadMaxLen: 80,
		Separator:     " | ",
	}
}

func (o FormatterOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Snapshot is a point-in-time copy of one stack.
type Snapshot struct {
	Stack         string         `json:"stack" yaml:"stack"`
	Priority      stack.Priority `json:"priority" yaml:"priority"`
	InitialHeight float64        `json:"initial_height" yaml:"initial_height"`
	Popups        []Popup        `json:"popups" yaml:"popups"`
}

// Popup is the serialisable view of a descriptor.
type Popup struct {
	ID           string    `json:"id" yaml:"id"`
	Type         string    `json:"type" yaml:"type"`
	Anchor       string    `json:"anchor" yaml:"anchor"`
	Height       *float64  `json:"height,omitempty" yaml:"height,omitempty"`
	DismissAfter string    `json:"dismiss_after,omitempty" yaml:"dismiss_after,omitempty"`
	Payload      any       `json:"payload,omitempty" yaml:"payload,omitempty"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// NewSnapshot captures the current state of s.
func NewSnapshot(s *stack.Stack) Snapshot {
	items := s.Items()
	popups := make([]Popup, len(items))
	for i, d := range items {
		popups[i] = NewPopup(d)
	}

	return Snapshot{
		Stack:         string(s.ID()),
		Priority:      s.Priority(),
		InitialHeight: s.InitialHeight(),
		Popups:        popups,
	}
}

// SnapshotRegistry captures every stack in r, ordered by stack id.
func SnapshotRegistry(r *stack.Registry) []Snapshot {
	var snapshots []Snapshot
	for _, id := range r.IDs() {
		if s, ok := r.Lookup(id); ok {
			snapshots = append(snapshots, NewSnapshot(s))
		}
	}
	return snapshots
}

// NewPopup converts a descriptor into its serialisable view.
func NewPopup(d model.Descriptor) Popup {
	p := Popup{
		ID:        d.ID().String(),
		Type:      d.TypeTag(),
		Anchor:    d.Anchor().String(),
		Payload:   d.Payload(),
		CreatedAt: d.CreatedAt(),
	}
	if h, ok := d.Height(); ok {
		p.Height = &h
	}
	if after := d.Config().AutoDismiss(); after > 0 {
		p.DismissAfter = after.String()
	}
	return p
}

// templateData provides data for custom templates.
type templateData struct {
	Index int
	Stack string
	Popup Popup
	Age   string
}

// templateFuncs returns template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"truncate": truncate,
		"payload": func(v any) string {
			return sanitizePayload(v, 0)
		},
	}
}

// age returns a human-readable age such as "3 minutes ago".
func age(created, now time.Time) string {
	if created.IsZero() {
		return "unknown"
	}
	return humanize.RelTime(created, now, "ago", "from now")
}

// truncate shortens s to at most maxLen runes, marking the cut with "...".
func truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// sanitizePayload renders a payload for single-line display.
func sanitizePayload(v any, maxLen int) string {
	if v == nil {
		return ""
	}

	s := fmt.Sprint(v)
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")

	// Collapse multiple spaces
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}

	return truncate(strings.TrimSpace(s), maxLen)
}
