package scanner

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax marks a file the grammar could not parse cleanly.
	ErrSyntax = errors.New("syntax error")
	// ErrScanConsumed is yielded when a scan sequence is iterated twice.
	ErrScanConsumed = errors.New("scan sequence already consumed")
)

// ScanError reports a source unit that could not be read or parsed.
type ScanError struct {
	Path string
	Line int
	Err  error
}

func (e *ScanError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("scan %s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }
