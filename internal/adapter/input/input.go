// Package input provides input adapters for replay script sources.
package input

import (
	"context"

	"github.com/jmylchreest/popstack/internal/script"
)

// InputAdapter fetches a replay script from a source.
type InputAdapter interface {
	// Name returns the adapter identifier (e.g., "file", "stdin").
	Name() string

	// Import reads and parses the script from the source.
	Import(ctx context.Context) (*script.Script, error)
}

// NewAdapter creates an InputAdapter for the specified source.
// "-" and "stdin" read standard input; anything else is a file path.
func NewAdapter(source string) (InputAdapter, error) {
	switch source {
	case "":
		return nil, &AdapterError{
			Source:  source,
			Message: "no script source given",
		}
	case "-", "stdin":
		return NewStdinAdapter(), nil
	default:
		return NewFileAdapter(source), nil
	}
}

// AdapterError represents an adapter-related error.
type AdapterError struct {
	Source  string
	Message string
	Err     error
}

func (e *AdapterError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}
