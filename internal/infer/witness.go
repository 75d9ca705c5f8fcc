package infer

import (
	"strings"

	"github.com/begriff-lang/begriff/internal/config"
	"github.com/begriff-lang/begriff/internal/symbols"
	"github.com/begriff-lang/begriff/internal/typesystem"
)

// Resolved is the final answer of a witness search: the chosen source,
// its instantiated type arguments, the substitution discovered while
// unifying, and the recursively resolved witnesses for a generic
// instance's own witness parameters, in declaration order.
type Resolved struct {
	Source symbols.WitnessSource
	Args   []typesystem.Type
	Subst  typesystem.Subst
	Nested []*Resolved
}

// Type renders the witness as the type argument that stands for it: a
// parameter witness is its own type variable, a named instance is a
// nominal application of its instantiated parameters.
func (r *Resolved) Type() typesystem.Type {
	switch src := r.Source.(type) {
	case *symbols.ParamWitness:
		return typesystem.TVar{Name: src.Name}
	case *symbols.InstanceDef:
		if len(r.Args) == 0 {
			return typesystem.TNamed{Name: src.Name}
		}
		return typesystem.TNamed{Name: src.Name, Args: r.Args}
	default:
		return nil
	}
}

// Materialize renders the dictionary value the backend should build
// for this witness: the instance constructor applied to the nested
// witnesses, e.g. EqArray(EqInt).
func (r *Resolved) Materialize() string {
	switch src := r.Source.(type) {
	case *symbols.ParamWitness:
		return src.Name
	case *symbols.InstanceDef:
		name := src.ConstructorName
		if name == "" {
			name = src.Name
		}
		if len(r.Nested) == 0 {
			return name
		}
		parts := make([]string, len(r.Nested))
		for i, n := range r.Nested {
			parts[i] = n.Materialize()
		}
		return name + "(" + strings.Join(parts, ", ") + ")"
	default:
		return ""
	}
}

// MethodBinding says where one concept method of a resolved witness
// comes from: an instance override, the concept's default, or dispatch
// through a parameter witness.
type MethodBinding struct {
	Method      string
	Impl        string
	FromDefault bool
}

// MethodBindings decides, per method of the given concept, whether the
// witness supplies its own implementation or forwards to the concept
// default. For a parameter witness every method dispatches through the
// parameter itself.
func (r *Resolved) MethodBindings(def *symbols.ConceptDef) []MethodBinding {
	bindings := make([]MethodBinding, 0, len(def.Methods))
	switch src := r.Source.(type) {
	case *symbols.ParamWitness:
		for _, m := range def.Methods {
			bindings = append(bindings, MethodBinding{Method: m.Name, Impl: src.Name + config.MethodSeparator + m.Name})
		}
	case *symbols.InstanceDef:
		for _, m := range def.Methods {
			if impl, ok := src.Methods[m.Name]; ok {
				bindings = append(bindings, MethodBinding{Method: m.Name, Impl: impl})
				continue
			}
			bindings = append(bindings, MethodBinding{Method: m.Name, Impl: def.Name + config.MethodSeparator + m.Name, FromDefault: true})
		}
	}
	return bindings
}
