package symbols

import (
	"fmt"
	"strings"

	"github.com/begriff-lang/begriff/internal/typesystem"
)

// ConceptRef is a concept instantiated at particular type arguments,
// e.g. Eq<int> or Ord<a>. Two refs denote the same requirement exactly
// when name and arguments coincide.
type ConceptRef struct {
	Name string
	Args []typesystem.Type
}

func (r ConceptRef) String() string {
	if len(r.Args) == 0 {
		return r.Name
	}
	args := make([]string, len(r.Args))
	for i, arg := range r.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("%s<%s>", r.Name, strings.Join(args, ", "))
}

// Apply substitutes through the ref's type arguments.
func (r ConceptRef) Apply(s typesystem.Subst) ConceptRef {
	args := make([]typesystem.Type, len(r.Args))
	for i, arg := range r.Args {
		args[i] = arg.Apply(s)
	}
	return ConceptRef{Name: r.Name, Args: args}
}

// Rename renames every type variable in the ref's arguments by suffix.
func (r ConceptRef) Rename(suffix string) ConceptRef {
	args := make([]typesystem.Type, len(r.Args))
	for i, arg := range r.Args {
		args[i] = typesystem.RenameTypeVars(arg, suffix)
	}
	return ConceptRef{Name: r.Name, Args: args}
}

func (r ConceptRef) FreeTypeVariables() []typesystem.TVar {
	vars := []typesystem.TVar{}
	for _, arg := range r.Args {
		vars = append(vars, arg.FreeTypeVariables()...)
	}
	return vars
}

// MethodSig describes one operation a concept requires. A method with
// HasDefault needs no per-instance implementation.
type MethodSig struct {
	Name       string
	Params     []typesystem.Type
	Result     typesystem.Type
	HasDefault bool
}

// ConceptDef is a declared concept: a named, possibly generic
// requirement with operations and super-concepts it extends.
// Immutable once registered.
type ConceptDef struct {
	Name       string
	TypeParams []string
	Supers     []ConceptRef // stated in terms of TypeParams
	Methods    []MethodSig
}

// RequiredMethods returns the methods without defaults, which every
// instance must implement.
func (d *ConceptDef) RequiredMethods() []string {
	var names []string
	for _, m := range d.Methods {
		if !m.HasDefault {
			names = append(names, m.Name)
		}
	}
	return names
}

// Method looks up a method signature by name.
func (d *ConceptDef) Method(name string) (MethodSig, bool) {
	for _, m := range d.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return MethodSig{}, false
}
