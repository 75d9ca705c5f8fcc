package typesystem

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Subst is a mapping from type variables to types. Substitutions are
// treated as immutable values: operations return new maps.
type Subst map[string]Type

// Compose combines two substitutions. The result first applies s2
// through s1's range, then carries over s2's own bindings for
// variables s1 does not mention.
func (s1 Subst) Compose(s2 Subst) Subst {
	subst := Subst{}
	for k, v := range s2 {
		subst[k] = v
	}
	for k, v := range s1 {
		subst[k] = v.Apply(s2)
	}
	return subst
}

// Clone returns a shallow copy.
func (s Subst) Clone() Subst {
	result := make(Subst, len(s))
	for k, v := range s {
		result[k] = v
	}
	return result
}

// MergeStrict combines two substitutions, failing when they bind the
// same variable to types that still disagree after both are applied.
// Refinements are fine: a binding to a variable that the other side
// resolves further is not a conflict.
func (s1 Subst) MergeStrict(s2 Subst) (Subst, error) {
	merged := s1.Compose(s2)
	for k, v1 := range s1 {
		v2, ok := s2[k]
		if !ok {
			continue
		}
		r1 := v1.Apply(merged)
		r2 := v2.Apply(merged)
		if !reflect.DeepEqual(r1, r2) {
			return nil, fmt.Errorf("conflicting bindings for %s: %s vs %s", k, r1, r2)
		}
	}
	return merged, nil
}

func (s Subst) String() string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " -> " + s[k].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
