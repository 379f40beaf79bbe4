package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
)

// PlainFormatter formats snapshots as plain text.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	f := &PlainFormatter{opts: opts}

	// Parse custom template if provided
	if opts.Template != "" {
		tmpl, err := template.New("plain").Funcs(templateFuncs()).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// Format writes each snapshot as a header followed by its popups, oldest first.
func (f *PlainFormatter) Format(w io.Writer, snapshots []Snapshot) error {
	for _, snap := range snapshots {
		if err := f.formatHeader(w, snap); err != nil {
			return err
		}
		for i, p := range snap.Popups {
			if err := f.formatPopup(w, snap.Stack, i+1, p); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *PlainFormatter) formatHeader(w io.Writer, snap Snapshot) error {
	if f.template != nil {
		return nil
	}
	_, err := fmt.Fprintf(w, "== %s: %d popup(s), initial height %g, priority top=%g centre=%g bottom=%g\n",
		snap.Stack, len(snap.Popups), snap.InitialHeight,
		snap.Priority.Top, snap.Priority.Centre, snap.Priority.Bottom)
	return err
}

// formatPopup formats a single popup.
func (f *PlainFormatter) formatPopup(w io.Writer, stackID string, index int, p Popup) error {
	// Use custom template if available
	if f.template != nil {
		data := templateData{
			Index: index,
			Stack: stackID,
			Popup: p,
			Age:   age(p.CreatedAt, f.opts.now()),
		}
		return f.template.Execute(w, data)
	}

	// Default format
	var sb strings.Builder

	if f.opts.ShowIndex {
		sb.WriteString(fmt.Sprintf("[%d] ", index))
	}

	sb.WriteString(fmt.Sprintf("<%s> %s", p.Anchor, p.ID))

	if p.Height != nil {
		sb.WriteString(fmt.Sprintf(" h=%g", *p.Height))
	}
	if p.DismissAfter != "" {
		sb.WriteString(" dismiss=" + p.DismissAfter)
	}
	if f.opts.ShowAge {
		sb.WriteString(fmt.Sprintf(" (%s)", age(p.CreatedAt, f.opts.now())))
	}

	sb.WriteString("\n")

	if payload := sanitizePayload(p.Payload, f.opts.PayloadMaxLen); payload != "" {
		sb.WriteString("    " + payload + "\n")
	}

	_, err := w.Write([]byte(sb.String()))
	return err
}
