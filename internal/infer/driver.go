package infer

import (
	"fmt"
	"sort"

	"github.com/begriff-lang/begriff/internal/symbols"
	"github.com/begriff-lang/begriff/internal/typesystem"
)

// TryInferWitness resolves a single witness parameter against the
// scope. fixed carries bindings for type variables the caller has
// already settled.
func TryInferWitness(param symbols.TypeParam, fixed typesystem.Subst, scope Scope) (*Resolved, error) {
	if param.Role != symbols.RoleWitness {
		return nil, failUnsupported(param.Name)
	}
	return searchWitness(param, fixed, scope, nil)
}

// TryInferMany resolves every parameter listed in unresolved, writing
// each result into dest and returning the accumulated substitution.
// params and dest are parallel to the symbol's full parameter list;
// entries of dest outside unresolved are left alone except for a final
// substitution pass.
func TryInferMany(unresolved []int, params []symbols.TypeParam, dest []typesystem.Type, fixed typesystem.Subst, scope Scope) (typesystem.Subst, error) {
	if dest != nil && len(dest) != len(params) {
		return nil, fmt.Errorf("destination length %d does not match %d parameters", len(dest), len(params))
	}
	part := Partition{Fixed: fixed.Clone()}
	for _, idx := range unresolved {
		if idx < 0 || idx >= len(params) {
			return nil, fmt.Errorf("parameter index %d out of range", idx)
		}
		switch params[idx].Role {
		case symbols.RoleWitness:
			part.WitnessIdx = append(part.WitnessIdx, idx)
		case symbols.RoleAssoc:
			part.AssocIdx = append(part.AssocIdx, idx)
		default:
			return nil, failUnsupported(params[idx].Name)
		}
	}
	subst, _, err := runInference(part, params, dest, scope, nil, false)
	return subst, err
}

// runInference is the driver fixpoint. Witness indices are retried
// pass by pass with the growing substitution until all resolve; a pass
// that makes no progress while work remains fails with the first
// stalled parameter's own error. Associated indices are settled
// strictly afterwards by substitution lookup: a variable the
// substitution leaves unchanged was never determined by any witness.
func runInference(part Partition, params []symbols.TypeParam, dest []typesystem.Type, scope Scope, ch *chain, assocPassthrough bool) (typesystem.Subst, map[int]*Resolved, error) {
	acc := part.Fixed.Clone()
	pending := append([]int(nil), part.WitnessIdx...)
	sort.Ints(pending)
	resolutions := make(map[int]*Resolved)

	for len(pending) > 0 {
		var stalled []int
		var firstErr error
		for _, idx := range pending {
			res, err := searchWitness(params[idx], acc, scope, ch)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				stalled = append(stalled, idx)
				continue
			}
			merged, mergeErr := acc.MergeStrict(res.Subst)
			if mergeErr == nil {
				merged, mergeErr = merged.MergeStrict(typesystem.Subst{params[idx].Name: res.Type()})
			}
			if mergeErr != nil {
				return nil, nil, failInconsistent(mergeErr.Error())
			}
			acc = merged
			if dest != nil {
				dest[idx] = res.Type()
			}
			resolutions[idx] = res
		}
		if len(stalled) == len(pending) {
			dump("substitution at stall", acc)
			return nil, nil, firstErr
		}
		pending = stalled
	}

	for _, idx := range part.AssocIdx {
		v := typesystem.TVar{Name: params[idx].Name}
		resolved := v.Apply(acc)
		if tv, ok := resolved.(typesystem.TVar); ok && tv.Name == v.Name {
			if assocPassthrough {
				if dest != nil {
					dest[idx] = v
				}
				continue
			}
			return nil, nil, failUnsatisfiable(params[idx].Name, nil, "associated type is not determined by any resolved witness")
		}
		if dest != nil {
			dest[idx] = resolved
		}
	}

	if dest != nil {
		for i, t := range dest {
			if t != nil {
				dest[i] = t.Apply(acc)
			}
		}
	}
	return acc, resolutions, nil
}
