package output

import (
	"encoding/json"
	"io"
)

// JSONFormatter formats snapshots as JSON.
type JSONFormatter struct {
	opts FormatterOptions
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Format writes snapshots as a JSON array.
func (f *JSONFormatter) Format(w io.Writer, snapshots []Snapshot) error {
	if snapshots == nil {
		snapshots = []Snapshot{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(snapshots)
}

// FormatSingle writes a single snapshot as JSON.
func (f *JSONFormatter) FormatSingle(w io.Writer, snap Snapshot) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(snap)
}
