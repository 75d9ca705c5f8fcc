// Package check wires workspace loading and witness inference into
// pipeline stages and turns failures and unmet query expectations
// into diagnostics.
package check

import (
	"errors"
	"io/fs"
	"sort"
	"strings"

	"github.com/begriff-lang/begriff/internal/diagnostics"
	"github.com/begriff-lang/begriff/internal/infer"
	"github.com/begriff-lang/begriff/internal/pipeline"
	"github.com/begriff-lang/begriff/internal/symbols"
	"github.com/begriff-lang/begriff/internal/token"
	"github.com/begriff-lang/begriff/internal/typeexpr"
	"github.com/begriff-lang/begriff/internal/typesystem"
	"github.com/begriff-lang/begriff/internal/workspace"
	"github.com/samber/lo"
)

// Run loads the workspace at path and resolves every query it
// declares. An empty path searches upward from the current directory.
func Run(path string) *pipeline.Context {
	p := pipeline.New(
		&LoadProcessor{},
		&ResolveProcessor{},
	)
	return p.Run(pipeline.NewContext(path))
}

// LoadProcessor locates the root manifest and loads the include tree.
// Binding diagnostics land on the context; a missing or unreadable
// manifest leaves the workspace unset.
type LoadProcessor struct{}

func (lp *LoadProcessor) Process(ctx *pipeline.Context) *pipeline.Context {
	path := ctx.Path
	if path == "" {
		found, err := workspace.FindManifest(".")
		if err != nil {
			ctx.Report(loadDiagnostic("", err))
			return ctx
		}
		if found == "" {
			ctx.Report(diagnostics.NewError(diagnostics.ErrW001, token.Token{},
				"no begriff.yaml found here or in any parent directory"))
			return ctx
		}
		path = found
	}

	sink := diagnostics.NewSink()
	ws, err := workspace.Load(path, sink)
	for _, diag := range sink.Errors() {
		ctx.Report(diag)
	}
	if err != nil {
		ctx.Report(loadDiagnostic(path, err))
		return ctx
	}
	ctx.Workspace = ws
	return ctx
}

// loadDiagnostic classifies a hard load failure: a missing manifest is
// W001, everything else counts as invalid content.
func loadDiagnostic(path string, err error) *diagnostics.DiagnosticError {
	code := diagnostics.ErrW002
	if errors.Is(err, fs.ErrNotExist) {
		code = diagnostics.ErrW001
	}
	diag := diagnostics.NewError(code, token.Token{}, err.Error())
	diag.File = path
	return diag
}

// ResolveProcessor runs every bound query against its scope.
type ResolveProcessor struct{}

func (rp *ResolveProcessor) Process(ctx *pipeline.Context) *pipeline.Context {
	if ctx.Workspace == nil {
		return ctx
	}
	for _, q := range ctx.Workspace.AllQueries() {
		res := Resolve(q)
		ctx.Results = append(ctx.Results, res)
		for _, diag := range verdicts(res) {
			ctx.Report(diag)
		}
	}
	return ctx
}

// Resolve runs a single bound query and captures its outcome.
func Resolve(q *workspace.Query) *pipeline.Result {
	scope := infer.CollectScope(q.Table)
	if q.Kind == workspace.QueryApply {
		types, err := infer.TryPartInfer(q.Supplied, q.Op.Params, scope, q.AssocPassthrough)
		return &pipeline.Result{Query: q, Types: types, Err: err}
	}
	goal := symbols.TypeParam{Name: "goal", Role: symbols.RoleWitness, Constraints: q.Constraints}
	res, err := infer.TryInferWitness(goal, typesystem.Subst{}, scope)
	return &pipeline.Result{Query: q, Witness: res, Err: err}
}

// ResolveGoal runs a one-off witness goal, a constraint list such as
// "Conv<int, str>, Eq<str>", against the workspace root scope. Goal
// expressions are ground: every identifier names a type, not a
// variable.
func ResolveGoal(ws *workspace.Workspace, goal string) (*pipeline.Result, error) {
	refs, err := typeexpr.ParseConceptRefs(goal, nil)
	if err != nil {
		return nil, err
	}
	q := &workspace.Query{
		Name:        "goal",
		Pkg:         ws.Root,
		Kind:        workspace.QueryWitness,
		Table:       ws.Root.Table,
		Constraints: refs,
	}
	for _, ref := range refs {
		if _, ok := q.Table.LookupConcept(ref.Name); !ok {
			return nil, diagnostics.NewErrorf(diagnostics.ErrW003, token.Token{},
				"unknown concept %s", ref.Name)
		}
	}
	return Resolve(q), nil
}

// verdicts turns one result into diagnostics. A failure that the query
// expected is no diagnostic at all; everything else unexpected is.
func verdicts(res *pipeline.Result) []*diagnostics.DiagnosticError {
	q := res.Query
	var out []*diagnostics.DiagnosticError
	report := func(code diagnostics.ErrorCode, format string, args ...interface{}) {
		diag := diagnostics.NewErrorf(code, token.Token{}, format, args...)
		diag.File = q.Pkg.Path
		out = append(out, diag)
	}

	if q.ExpectError != "" {
		switch {
		case res.Err == nil:
			report(diagnostics.ErrW005, "query %s (%s): expected a failure containing %q, resolved to %s",
				q.Name, q.Goal(), q.ExpectError, res.Detail())
		case !strings.Contains(res.Err.Error(), q.ExpectError):
			report(diagnostics.ErrW005, "query %s (%s): failure %q does not contain %q",
				q.Name, q.Goal(), res.Err.Error(), q.ExpectError)
		}
		return out
	}

	if res.Err != nil {
		report(failureCode(res.Err), "query %s (%s): %v", q.Name, q.Goal(), res.Err)
		return out
	}

	if q.Expect != "" && res.Witness != nil {
		if got := res.Witness.Materialize(); got != q.Expect {
			report(diagnostics.ErrW005, "query %s: witness %s, want %s", q.Name, got, q.Expect)
		}
	}
	if len(q.ExpectTypes) > 0 {
		if len(res.Types) != len(q.ExpectTypes) {
			report(diagnostics.ErrW005, "query %s: inferred %d type arguments, want %d",
				q.Name, len(res.Types), len(q.ExpectTypes))
		} else {
			for i, want := range q.ExpectTypes {
				got := "_"
				if res.Types[i] != nil {
					got = res.Types[i].String()
				}
				if got != want {
					report(diagnostics.ErrW005, "query %s: type argument %d is %s, want %s",
						q.Name, i, got, want)
				}
			}
		}
	}
	if len(q.ExpectSubst) > 0 && res.Witness != nil {
		vars := lo.Keys(q.ExpectSubst)
		sort.Strings(vars)
		for _, v := range vars {
			got := typesystem.TVar{Name: v}.Apply(res.Witness.Subst).String()
			if got != q.ExpectSubst[v] {
				report(diagnostics.ErrW005, "query %s: %s bound to %s, want %s",
					q.Name, v, got, q.ExpectSubst[v])
			}
		}
	}
	return out
}

// failureCode maps an inference failure to its diagnostic code.
// Non-failure errors come from malformed goals, such as surplus
// explicit type arguments, and count as invalid content.
func failureCode(err error) diagnostics.ErrorCode {
	var f *infer.Failure
	if !errors.As(err, &f) {
		return diagnostics.ErrW002
	}
	switch f.Kind {
	case infer.NoMatchingInstance:
		return diagnostics.ErrR001
	case infer.UnsatisfiableDependency:
		return diagnostics.ErrR002
	case infer.AmbiguousInstance:
		return diagnostics.ErrR003
	case infer.UnsupportedParameter:
		return diagnostics.ErrR004
	case infer.InconsistentUnification:
		return diagnostics.ErrR005
	default:
		return diagnostics.ErrR001
	}
}
