package pipeline

import (
	"strings"

	"github.com/samber/lo"

	"github.com/begriff-lang/begriff/internal/diagnostics"
	"github.com/begriff-lang/begriff/internal/infer"
	"github.com/begriff-lang/begriff/internal/typesystem"
	"github.com/begriff-lang/begriff/internal/workspace"
)

// Context carries state between processing stages: the manifest path
// going in, the loaded workspace and per-query results coming out, and
// every diagnostic collected along the way.
type Context struct {
	// Path is the manifest file or directory to load. Empty means
	// search upward from the working directory.
	Path string

	Workspace *workspace.Workspace
	Results   []*Result

	Errors []*diagnostics.DiagnosticError
}

func NewContext(path string) *Context {
	return &Context{Path: path}
}

// Report collects a diagnostic.
func (c *Context) Report(err *diagnostics.DiagnosticError) {
	if err != nil {
		c.Errors = append(c.Errors, err)
	}
}

// Failed reports whether any stage produced diagnostics.
func (c *Context) Failed() bool {
	return len(c.Errors) > 0
}

// Result is the outcome of one resolution query.
type Result struct {
	Query *workspace.Query

	// Witness is set for witness queries that resolved.
	Witness *infer.Resolved

	// Types is the completed argument list of an apply query.
	Types []typesystem.Type

	// Err is the resolution failure, nil on success.
	Err error
}

// Outcome returns "ok" for a resolved query, "fail" otherwise.
func (r *Result) Outcome() string {
	if r.Err != nil {
		return "fail"
	}
	return "ok"
}

// Detail renders the resolved witness, the completed argument list, or
// the failure text.
func (r *Result) Detail() string {
	switch {
	case r.Err != nil:
		return r.Err.Error()
	case r.Witness != nil:
		return r.Witness.Materialize()
	default:
		rendered := lo.Map(r.Types, func(t typesystem.Type, _ int) string {
			if t == nil {
				return "_"
			}
			return t.String()
		})
		return "[" + strings.Join(rendered, ", ") + "]"
	}
}
