package infer

import (
	"fmt"
	"strings"

	"github.com/begriff-lang/begriff/internal/symbols"
)

// FailureKind classifies why an inference call could not produce a
// witness.
type FailureKind int

const (
	// NoMatchingInstance: no visible instance satisfies the required
	// concepts.
	NoMatchingInstance FailureKind = iota
	// UnsatisfiableDependency: candidates matched but none could
	// resolve its own nested witnesses, including the cyclic case.
	UnsatisfiableDependency
	// AmbiguousInstance: more than one candidate survives every
	// filter.
	AmbiguousInstance
	// UnsupportedParameter: an unresolved parameter is neither a
	// witness nor an associated type.
	UnsupportedParameter
	// InconsistentUnification: two resolutions bind the same type
	// variable to conflicting types.
	InconsistentUnification
)

func (k FailureKind) String() string {
	switch k {
	case NoMatchingInstance:
		return "no matching instance"
	case UnsatisfiableDependency:
		return "unsatisfiable dependency"
	case AmbiguousInstance:
		return "ambiguous instance"
	case UnsupportedParameter:
		return "unsupported parameter"
	case InconsistentUnification:
		return "inconsistent unification"
	default:
		return "unknown failure"
	}
}

// Failure is the error every inference entry point returns. It is
// recoverable: the caller turns it into a diagnostic at the
// originating position and moves on.
type Failure struct {
	Kind       FailureKind
	Param      string
	Required   []symbols.ConceptRef
	Candidates []string
	Detail     string
}

func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString(f.Kind.String())
	if f.Param != "" {
		if f.Kind == UnsupportedParameter {
			fmt.Fprintf(&b, " %s", f.Param)
		} else {
			fmt.Fprintf(&b, " for parameter %s", f.Param)
		}
	}
	if len(f.Required) > 0 {
		fmt.Fprintf(&b, " (requires %s)", joinRefs(f.Required))
	}
	if len(f.Candidates) > 0 {
		fmt.Fprintf(&b, ": candidates %s", strings.Join(f.Candidates, ", "))
	}
	if f.Detail != "" {
		fmt.Fprintf(&b, ": %s", f.Detail)
	}
	return b.String()
}

func joinRefs(refs []symbols.ConceptRef) string {
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}

func failNoMatch(param string, required []symbols.ConceptRef) *Failure {
	return &Failure{Kind: NoMatchingInstance, Param: param, Required: required}
}

func failUnsatisfiable(param string, required []symbols.ConceptRef, detail string) *Failure {
	return &Failure{Kind: UnsatisfiableDependency, Param: param, Required: required, Detail: detail}
}

func failAmbiguous(param string, required []symbols.ConceptRef, candidates []string) *Failure {
	return &Failure{Kind: AmbiguousInstance, Param: param, Required: required, Candidates: candidates}
}

func failUnsupported(param string) *Failure {
	return &Failure{Kind: UnsupportedParameter, Param: param}
}

func failInconsistent(detail string) *Failure {
	return &Failure{Kind: InconsistentUnification, Detail: detail}
}
