package resolve

import (
	"encoding/json"
	"fmt"
)

// FileAccessError reports a file that could not be read. It aborts the resolve.
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("cannot access %s: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error {
	return e.Err
}

// CircularDependencyError lists every file left when ordering stalled. The
// minimal cycle is not isolated.
type CircularDependencyError struct {
	Paths []string
}

func (e *CircularDependencyError) Error() string {
	data, _ := json.Marshal(e.Paths)
	return "circular dependency among " + string(data)
}
