package render

import (
	"errors"
	"fmt"
)

// ErrEngineUnavailable is wrapped when the layout engine binary cannot be found.
var ErrEngineUnavailable = errors.New("layout engine unavailable")

// RenderError reports a failed render. Msg carries what the engine printed.
type RenderError struct {
	Output string
	Format Format
	Engine string
	Msg    string
	Err    error
}

func (e *RenderError) Error() string {
	s := fmt.Sprintf("render %s (%s)", e.Output, e.Format)
	if e.Engine != "" {
		s += " with " + e.Engine
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}

func (e *RenderError) Unwrap() error { return e.Err }
