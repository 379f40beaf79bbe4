package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
)

// DmenuFormatter formats popups one per line for dmenu/rofi/fuzzel pickers,
// newest first so the top of the stack is the first choice.
type DmenuFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewDmenuFormatter creates a new dmenu formatter.
func NewDmenuFormatter(opts FormatterOptions) *DmenuFormatter {
	f := &DmenuFormatter{opts: opts}

	// Parse custom template if provided
	if opts.Template != "" {
		tmpl, err := template.New("dmenu").Funcs(templateFuncs()).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// Format writes popups in dmenu format (one per line).
func (f *DmenuFormatter) Format(w io.Writer, snapshots []Snapshot) error {
	index := 1
	for _, snap := range snapshots {
		for i := len(snap.Popups) - 1; i >= 0; i-- {
			line := f.formatLine(snap.Stack, index, snap.Popups[i])
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
			index++
		}
	}
	return nil
}

// formatLine formats a single popup line.
func (f *DmenuFormatter) formatLine(stackID string, index int, p Popup) string {
	// Use custom template if available
	if f.template != nil {
		var buf strings.Builder
		data := templateData{
			Index: index,
			Stack: stackID,
			Popup: p,
			Age:   age(p.CreatedAt, f.opts.now()),
		}
		if err := f.template.Execute(&buf, data); err == nil {
			return buf.String()
		}
	}

	// Default format: index | stack | anchor | type | age | payload
	var parts []string
	sep := f.opts.Separator
	if sep == "" {
		sep = " | "
	}

	if f.opts.ShowIndex {
		parts = append(parts, fmt.Sprintf("%d", index))
	}

	parts = append(parts, stackID, p.Anchor, p.Type)

	if f.opts.ShowAge {
		parts = append(parts, age(p.CreatedAt, f.opts.now()))
	}

	if payload := sanitizePayload(p.Payload, f.opts.PayloadMaxLen); payload != "" {
		parts = append(parts, payload)
	}

	return strings.Join(parts, sep)
}
