package infer

import (
	"github.com/samber/lo"

	"github.com/begriff-lang/begriff/internal/symbols"
	"github.com/begriff-lang/begriff/internal/typesystem"
)

// Env is what the engine consumes from the host symbol table.
// Visibility, accessibility and inheritance flattening stay on the
// host side; the engine only aggregates what Env exposes.
type Env interface {
	VisibleInstances() []symbols.WitnessSource
	RigidTypeVars() typesystem.VarSet
	ProvidedConcepts(src symbols.WitnessSource) []symbols.ConceptRef
	DeclaredConstraints(param string) []symbols.ConceptRef
	FlattenedRefs(ref symbols.ConceptRef) []symbols.ConceptRef
}

// Scope is the read-only snapshot of everything candidate search may
// consult: the ordered candidate pool and the ambient rigid variable
// set. Collected once per inference call and passed by value; never
// mutated afterwards.
type Scope struct {
	Pool  []symbols.WitnessSource
	Rigid typesystem.VarSet

	env Env
}

// CollectScope snapshots the candidate pool and rigid set visible
// through env. Pool order is the host's: parameter witnesses of
// enclosing declarations first, then named instances from outer to
// inner scope.
func CollectScope(env Env) Scope {
	return Scope{Pool: lo.Uniq(env.VisibleInstances()), Rigid: env.RigidTypeVars(), env: env}
}

// Provided returns the full concept set a pool entry certifies,
// inherited supers included.
func (sc Scope) Provided(src symbols.WitnessSource) []symbols.ConceptRef {
	return sc.env.ProvidedConcepts(src)
}

// Constraints returns the declared concept constraints of a
// witness-carrying type parameter.
func (sc Scope) Constraints(param string) []symbols.ConceptRef {
	return sc.env.DeclaredConstraints(param)
}

// Flatten expands a concept ref to itself plus its instantiated
// super-concepts.
func (sc Scope) Flatten(ref symbols.ConceptRef) []symbols.ConceptRef {
	return sc.env.FlattenedRefs(ref)
}

// impliedBy reports whether ref is a proper inherited super-concept
// of other, so that resolving other certifies ref as well.
func (sc Scope) impliedBy(ref, other symbols.ConceptRef) bool {
	key := ref.String()
	if key == other.String() {
		return false
	}
	for _, flat := range sc.Flatten(other) {
		if flat.String() == key {
			return true
		}
	}
	return false
}
