package dataset

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrDataLoad matches every failure to read or parse the crime dataset.
var ErrDataLoad = eris.New("dataset: load failed")

// LoadError describes a dataset failure, optionally pinned to a CSV line.
type LoadError struct {
	Path string
	Line int // 1-based CSV line, 0 when not line specific
	Err  error
}

func (e *LoadError) Error() string {
	src := e.Path
	if src == "" {
		src = "<reader>"
	}
	if e.Line > 0 {
		return fmt.Sprintf("dataset: %s line %d: %v", src, e.Line, e.Err)
	}
	return fmt.Sprintf("dataset: %s: %v", src, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrDataLoad) true for every LoadError.
func (e *LoadError) Is(target error) bool {
	return target == ErrDataLoad
}
