package infer

import (
	"github.com/begriff-lang/begriff/internal/symbols"
	"github.com/begriff-lang/begriff/internal/typesystem"
)

// Partition is the result of classifying a generic symbol's parameter
// list against the arguments known so far: a base substitution for the
// resolved entries and index buckets for the rest.
type Partition struct {
	Fixed      typesystem.Subst
	WitnessIdx []int
	AssocIdx   []int
}

// PartitionParams classifies each parameter as resolved or pending.
// An entry is unresolved when its argument is nil or is the
// parameter's own type variable. In nested calls (recursing into a
// candidate's parameters) a self-referential argument whose variable
// is rigid counts as resolved instead: it belongs to an enclosing
// declaration and must not be solved again.
//
// Unresolved witness and associated parameters land in the index
// buckets; an unresolved ordinary parameter cannot be found by witness
// search and fails the whole partitioning.
func PartitionParams(params []symbols.TypeParam, args []typesystem.Type, rigid typesystem.VarSet, nested bool) (Partition, error) {
	part := Partition{Fixed: typesystem.Subst{}}
	for i, p := range params {
		arg := args[i]
		if isSelfArg(p, arg) {
			if nested && rigid.Has(p.Name) {
				continue
			}
			arg = nil
		}
		if arg != nil {
			part.Fixed[p.Name] = arg
			continue
		}
		switch p.Role {
		case symbols.RoleWitness:
			part.WitnessIdx = append(part.WitnessIdx, i)
		case symbols.RoleAssoc:
			part.AssocIdx = append(part.AssocIdx, i)
		default:
			return Partition{}, failUnsupported(p.Name)
		}
	}
	return part, nil
}

func isSelfArg(p symbols.TypeParam, arg typesystem.Type) bool {
	if arg == nil {
		return true
	}
	tv, ok := arg.(typesystem.TVar)
	return ok && tv.Name == p.Name
}
