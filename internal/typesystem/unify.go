package typesystem

import (
	"fmt"
	"reflect"
)

// Unify attempts to extend acc with the minimal substitution that makes
// provided and required syntactically equal. Variables in rigid belong
// to the ambient scope and are never bound; they unify only with
// themselves. Both inputs are rewritten through acc first, so earlier
// bindings constrain later calls and a chain of Unify calls can share
// one accumulator. Ordinary mismatches are error returns, never panics.
func Unify(provided, required Type, rigid VarSet, acc Subst) (Subst, error) {
	if acc == nil {
		acc = Subst{}
	}
	delta, err := unify(provided.Apply(acc), required.Apply(acc), rigid)
	if err != nil {
		return nil, err
	}
	return acc.Compose(delta), nil
}

func unify(t1, t2 Type, rigid VarSet) (Subst, error) {
	if reflect.DeepEqual(t1, t2) {
		return Subst{}, nil
	}

	switch t1 := t1.(type) {
	case TVar:
		return bind(t1, t2, rigid)
	case TNamed:
		switch t2 := t2.(type) {
		case TVar:
			return bind(t2, t1, rigid)
		case TNamed:
			if t1.Name != t2.Name {
				return nil, errUnifyMsg(t1, t2, "type name mismatch")
			}
			if len(t1.Args) != len(t2.Args) {
				return nil, errMismatch(fmt.Sprintf("type arguments length mismatch: %d vs %d", len(t1.Args), len(t2.Args)))
			}
			s1 := Subst{}
			for i := 0; i < len(t1.Args); i++ {
				arg1 := t1.Args[i].Apply(s1)
				arg2 := t2.Args[i].Apply(s1)
				s2, err := unify(arg1, arg2, rigid)
				if err != nil {
					return nil, err
				}
				s1 = s1.Compose(s2)
			}
			return s1, nil
		default:
			return nil, errUnify(t1, t2)
		}
	case TArray:
		switch t2 := t2.(type) {
		case TVar:
			return bind(t2, t1, rigid)
		case TArray:
			return unify(t1.Elem, t2.Elem, rigid)
		default:
			return nil, errUnifyMsg(t1, t2, "cannot unify array")
		}
	case TTuple:
		switch t2 := t2.(type) {
		case TVar:
			return bind(t2, t1, rigid)
		case TTuple:
			if len(t1.Elems) != len(t2.Elems) {
				return nil, errMismatch(fmt.Sprintf("tuple length mismatch: %d vs %d", len(t1.Elems), len(t2.Elems)))
			}
			s1 := Subst{}
			for i := 0; i < len(t1.Elems); i++ {
				el1 := t1.Elems[i].Apply(s1)
				el2 := t2.Elems[i].Apply(s1)
				s2, err := unify(el1, el2, rigid)
				if err != nil {
					return nil, err
				}
				s1 = s1.Compose(s2)
			}
			return s1, nil
		default:
			return nil, errUnifyMsg(t1, t2, "cannot unify tuple")
		}
	default:
		return nil, errMismatch(fmt.Sprintf("unknown type kind: %T", t1))
	}
}

// bind binds a type variable to a type, refusing rigid variables and
// performing the occurs check.
func bind(tv TVar, t Type, rigid VarSet) (Subst, error) {
	// Same variable on both sides needs no binding
	if tVal, ok := t.(TVar); ok && tVal.Name == tv.Name {
		return Subst{}, nil
	}

	if rigid.Has(tv.Name) {
		// A rigid variable may still unify if the other side is a
		// bindable variable; bind that one instead.
		if tVal, ok := t.(TVar); ok && !rigid.Has(tVal.Name) {
			return Subst{tVal.Name: tv}, nil
		}
		return nil, errMismatch(fmt.Sprintf("cannot bind ambient type parameter %s to %s", tv.Name, t))
	}

	// Occurs check: avoid infinite types like a = a[]
	if OccursCheck(tv, t) {
		return nil, errMismatch(fmt.Sprintf("infinite type detected: %s in %s", tv, t))
	}

	return Subst{tv.Name: t}, nil
}

// OccursCheck returns true if tv appears free in t.
func OccursCheck(tv TVar, t Type) bool {
	for _, v := range t.FreeTypeVariables() {
		if v.Name == tv.Name {
			return true
		}
	}
	return false
}

func errUnify(t1, t2 Type) error {
	return fmt.Errorf("cannot unify %s with %s", t1, t2)
}

func errUnifyMsg(t1, t2 Type, msg string) error {
	return fmt.Errorf("%s: %s vs %s", msg, t1, t2)
}

func errMismatch(msg string) error {
	return fmt.Errorf("type mismatch: %s", msg)
}
