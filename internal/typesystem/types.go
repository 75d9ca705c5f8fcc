package typesystem

import (
	"fmt"
	"strings"
)

// Type is the interface for all types in our system.
type Type interface {
	String() string
	Apply(Subst) Type
	FreeTypeVariables() []TVar
}

// TVar represents a type variable (e.g. 'a', 'b', 't1').
type TVar struct {
	Name string
}

func (t TVar) String() string {
	return t.Name
}

func (t TVar) Apply(s Subst) Type {
	return applyWithCycleCheck(t, s, make(map[string]bool))
}

func (t TVar) FreeTypeVariables() []TVar {
	return []TVar{t}
}

// TNamed represents a nominal type, plain or as a generic application
// (e.g. int, Point, Pair<a, b>). Zero Args means a plain named type.
type TNamed struct {
	Name string
	Args []Type
}

func (t TNamed) String() string {
	if len(t.Args) == 0 {
		return t.Name
	}
	args := make([]string, len(t.Args))
	for i, arg := range t.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("%s<%s>", t.Name, strings.Join(args, ", "))
}

func (t TNamed) Apply(s Subst) Type {
	return applyWithCycleCheck(t, s, make(map[string]bool))
}

func (t TNamed) FreeTypeVariables() []TVar {
	vars := []TVar{}
	for _, arg := range t.Args {
		vars = append(vars, arg.FreeTypeVariables()...)
	}
	return uniqueTVars(vars)
}

// TArray represents an array type (e.g. int[]).
type TArray struct {
	Elem Type
}

func (t TArray) String() string {
	return t.Elem.String() + "[]"
}

func (t TArray) Apply(s Subst) Type {
	return applyWithCycleCheck(t, s, make(map[string]bool))
}

func (t TArray) FreeTypeVariables() []TVar {
	return t.Elem.FreeTypeVariables()
}

// TTuple represents a tuple type (e.g. (int, bool)).
type TTuple struct {
	Elems []Type
}

func (t TTuple) String() string {
	args := make([]string, len(t.Elems))
	for i, el := range t.Elems {
		args[i] = el.String()
	}
	return fmt.Sprintf("(%s)", strings.Join(args, ", "))
}

func (t TTuple) Apply(s Subst) Type {
	return applyWithCycleCheck(t, s, make(map[string]bool))
}

func (t TTuple) FreeTypeVariables() []TVar {
	vars := []TVar{}
	for _, el := range t.Elems {
		vars = append(vars, el.FreeTypeVariables()...)
	}
	return uniqueTVars(vars)
}

// applyWithCycleCheck applies a substitution with cycle detection, so a
// chain like a -> b, b -> a cannot loop forever. Chains are followed to
// their end: a -> b with b -> int yields int for a.
func applyWithCycleCheck(t Type, s Subst, visited map[string]bool) Type {
	if t == nil {
		return nil
	}

	switch typ := t.(type) {
	case TVar:
		if visited[typ.Name] {
			return typ
		}
		if replacement, ok := s[typ.Name]; ok {
			if tv, ok := replacement.(TVar); ok && tv.Name == typ.Name {
				return typ
			}
			newVisited := copyVisited(visited)
			newVisited[typ.Name] = true
			return applyWithCycleCheck(replacement, s, newVisited)
		}
		return typ

	case TNamed:
		newArgs := make([]Type, len(typ.Args))
		for i, arg := range typ.Args {
			newArgs[i] = applyWithCycleCheck(arg, s, visited)
		}
		return TNamed{Name: typ.Name, Args: newArgs}

	case TArray:
		return TArray{Elem: applyWithCycleCheck(typ.Elem, s, visited)}

	case TTuple:
		newElems := make([]Type, len(typ.Elems))
		for i, e := range typ.Elems {
			newElems[i] = applyWithCycleCheck(e, s, visited)
		}
		return TTuple{Elems: newElems}

	default:
		return t.Apply(s)
	}
}

func copyVisited(m map[string]bool) map[string]bool {
	newMap := make(map[string]bool, len(m))
	for k, v := range m {
		newMap[k] = v
	}
	return newMap
}

func uniqueTVars(vars []TVar) []TVar {
	unique := []TVar{}
	seen := map[string]bool{}
	for _, v := range vars {
		if !seen[v.Name] {
			seen[v.Name] = true
			unique = append(unique, v)
		}
	}
	return unique
}

// VarSet is a set of type variable names, used for the rigid variables
// of an enclosing scope.
type VarSet map[string]bool

func NewVarSet(names ...string) VarSet {
	set := make(VarSet, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func (v VarSet) Has(name string) bool {
	return v[name]
}

func (v VarSet) Add(name string) {
	v[name] = true
}

// Union returns a new set containing the members of both sets.
func (v VarSet) Union(other VarSet) VarSet {
	result := make(VarSet, len(v)+len(other))
	for k := range v {
		result[k] = true
	}
	for k := range other {
		result[k] = true
	}
	return result
}
