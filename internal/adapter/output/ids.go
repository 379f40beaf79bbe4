package output

import (
	"fmt"
	"io"
)

// IDsFormatter outputs just the popup identifiers, one per line, oldest first.
// Useful for piping into scripts that remove popups by id.
type IDsFormatter struct{}

// NewIDsFormatter creates a new IDs formatter.
func NewIDsFormatter() *IDsFormatter {
	return &IDsFormatter{}
}

// Format writes popup identifiers to the writer, one per line.
func (f *IDsFormatter) Format(w io.Writer, snapshots []Snapshot) error {
	for _, snap := range snapshots {
		for _, p := range snap.Popups {
			if _, err := fmt.Fprintln(w, p.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
