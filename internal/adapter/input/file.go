package input

import (
	"context"
	"os"

	"github.com/jmylchreest/popstack/internal/script"
)

// FileAdapter reads a script from a file.
type FileAdapter struct {
	path string
}

// NewFileAdapter creates a new FileAdapter for path.
func NewFileAdapter(path string) *FileAdapter {
	return &FileAdapter{path: path}
}

// Name returns the adapter identifier.
func (a *FileAdapter) Name() string {
	return "file"
}

// Import reads and parses the script file.
func (a *FileAdapter) Import(ctx context.Context) (*script.Script, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(a.path)
	if err != nil {
		return nil, &AdapterError{
			Source:  a.path,
			Message: "failed to read script file",
			Err:     err,
		}
	}

	s, err := script.Parse(data)
	if err != nil {
		return nil, &AdapterError{
			Source:  a.path,
			Message: "invalid script",
			Err:     err,
		}
	}
	return s, nil
}
