package render

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// Engine lays out a DOT description and writes the result to output.
type Engine interface {
	Name() string
	Render(ctx context.Context, dot []byte, format Format, output string) error
}

// DefaultEngine is the Graphviz binary looked up on PATH.
const DefaultEngine = "dot"

// ExecEngine runs a Graphviz-compatible binary as a subprocess with the
// description on stdin.
type ExecEngine struct {
	Path string
}

func (e *ExecEngine) Name() string {
	if e.Path == "" {
		return DefaultEngine
	}
	return e.Path
}

// Available reports whether the engine binary can be found.
func (e *ExecEngine) Available() bool {
	_, err := exec.LookPath(e.Name())
	return err == nil
}

func (e *ExecEngine) Render(ctx context.Context, dot []byte, format Format, output string) error {
	bin, err := exec.LookPath(e.Name())
	if err != nil {
		return &RenderError{Output: output, Format: format, Engine: e.Name(), Msg: err.Error(), Err: ErrEngineUnavailable}
	}

	cmd := exec.CommandContext(ctx, bin, "-T"+string(format), "-o", output)
	cmd.Stdin = bytes.NewReader(dot)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(ctxErr, err)
		}
		return &RenderError{Output: output, Format: format, Engine: e.Name(), Msg: strings.TrimSpace(string(out)), Err: err}
	}
	return nil
}
