package infer

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/samber/lo"

	"github.com/begriff-lang/begriff/internal/symbols"
	"github.com/begriff-lang/begriff/internal/typesystem"
)

// chain is the ordered set of instance expansions currently running,
// used for cycle detection only. Extending allocates a new link, so
// sibling branches never observe each other's entries.
type chain struct {
	name string
	prev *chain
}

func (c *chain) contains(name string) bool {
	for n := c; n != nil; n = n.prev {
		if n.name == name {
			return true
		}
	}
	return false
}

func (c *chain) push(name string) *chain {
	return &chain{name: name, prev: c}
}

// candidateSeq feeds the rename suffixes for instance-side type
// variables. Every match attempt gets a fresh namespace, so bindings
// from unrelated searches can never collide when substitutions are
// merged at the driver level.
var candidateSeq uint64

func freshSuffix() string {
	return "w" + strconv.FormatUint(atomic.AddUint64(&candidateSeq, 1), 10)
}

// candidate pairs a pool entry with the substitution that made it
// match; not yet a final answer.
type candidate struct {
	src    symbols.WitnessSource
	subst  typesystem.Subst
	suffix string
	nested []*Resolved
}

// searchWitness resolves one witness parameter to at most one final
// candidate: project the required concepts, keep pool entries whose
// provided concepts unify with all of them, keep those whose own
// nested parameters resolve recursively, then tie-break on
// specificity.
func searchWitness(param symbols.TypeParam, fixed typesystem.Subst, scope Scope, ch *chain) (*Resolved, error) {
	required := projectRequired(param.Constraints, fixed, scope)
	if len(required) == 0 {
		return nil, &Failure{Kind: NoMatchingInstance, Param: param.Name, Detail: "no concept constraints declared"}
	}
	tracef("search %s: requires %s", param.Name, joinRefs(required))

	var pass1 []candidate
	for _, src := range scope.Pool {
		if cand, ok := matchProvided(src, required, scope); ok {
			pass1 = append(pass1, cand)
		}
	}
	if len(pass1) == 0 {
		return nil, failNoMatch(param.Name, required)
	}
	tracef("search %s: %d candidate(s) satisfy the concepts", param.Name, len(pass1))

	var satisfiable []candidate
	var firstDrop error
	for _, cand := range pass1 {
		expanded, err := expandCandidate(cand, scope, ch)
		if err != nil {
			tracef("search %s: dropped %s: %v", param.Name, cand.src.SourceName(), err)
			if firstDrop == nil {
				firstDrop = err
			}
			continue
		}
		satisfiable = append(satisfiable, expanded)
	}
	if len(satisfiable) == 0 {
		detail := ""
		if firstDrop != nil {
			detail = firstDrop.Error()
		}
		return nil, failUnsatisfiable(param.Name, required, detail)
	}

	final := satisfiable
	if len(final) > 1 {
		final = mostSpecificConcepts(final, scope)
		if len(final) == 0 {
			return nil, failAmbiguous(param.Name, required, candidateNames(satisfiable))
		}
		if len(final) > 1 {
			final = mostSpecificParams(final)
		}
	}
	if len(final) != 1 {
		return nil, failAmbiguous(param.Name, required, candidateNames(final))
	}
	tracef("search %s: resolved to %s", param.Name, final[0].src.SourceName())
	return finalize(final[0]), nil
}

// projectRequired substitutes the fixed bindings into the declared
// constraints and minimizes the list: a concept implied as a super of
// another requirement is certified for free once that requirement
// resolves, so it is dropped before search.
func projectRequired(constraints []symbols.ConceptRef, fixed typesystem.Subst, scope Scope) []symbols.ConceptRef {
	refs := make([]symbols.ConceptRef, 0, len(constraints))
	seen := make(map[string]bool, len(constraints))
	for _, c := range constraints {
		ref := c.Apply(fixed)
		key := ref.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		refs = append(refs, ref)
	}

	dropped := make([]bool, len(refs))
	for i := range refs {
		for j := range refs {
			if i == j || dropped[j] {
				continue
			}
			if scope.impliedBy(refs[i], refs[j]) {
				dropped[i] = true
				break
			}
		}
	}

	out := make([]symbols.ConceptRef, 0, len(refs))
	for i, ref := range refs {
		if !dropped[i] {
			out = append(out, ref)
		}
	}
	return out
}

// matchProvided checks one pool entry against every required concept:
// each must unify against some concept the entry provides, chaining
// the substitution so a variable bound by one requirement is seen by
// the next. Instance-side variables are renamed into a fresh namespace
// first.
func matchProvided(src symbols.WitnessSource, required []symbols.ConceptRef, scope Scope) (candidate, bool) {
	provided := scope.Provided(src)
	suffix := ""
	if inst, ok := src.(*symbols.InstanceDef); ok && len(inst.TypeParams) > 0 {
		suffix = freshSuffix()
		provided = lo.Map(provided, func(ref symbols.ConceptRef, _ int) symbols.ConceptRef {
			return ref.Rename(suffix)
		})
	}

	acc := typesystem.Subst{}
	for _, req := range required {
		next, ok := matchOne(req, provided, scope.Rigid, acc)
		if !ok {
			return candidate{}, false
		}
		acc = next
	}
	return candidate{src: src, subst: acc, suffix: suffix}, true
}

func matchOne(req symbols.ConceptRef, provided []symbols.ConceptRef, rigid typesystem.VarSet, acc typesystem.Subst) (typesystem.Subst, bool) {
	for _, prov := range provided {
		if prov.Name != req.Name || len(prov.Args) != len(req.Args) {
			continue
		}
		trial := acc
		ok := true
		for i := range req.Args {
			s, err := typesystem.Unify(prov.Args[i], req.Args[i], rigid, trial)
			if err != nil {
				ok = false
				break
			}
			trial = s
		}
		if ok {
			return trial, true
		}
	}
	return nil, false
}

// expandCandidate recursively resolves a generic instance's own
// unresolved parameters. A candidate whose expansion at the same
// instantiation is already running higher up the stack is dropped
// instead of recursing; re-expanding the same instance at a smaller
// instantiation (EqArray for int[] while EqArray for int[][] is open)
// stays legal. Parameter witnesses and instances without open
// parameters pass through unchanged.
func expandCandidate(cand candidate, scope Scope, ch *chain) (candidate, error) {
	inst, ok := cand.src.(*symbols.InstanceDef)
	if !ok {
		return cand, nil
	}
	if !inst.UnresolvedParams() {
		return cand, nil
	}
	key := expansionKey(inst, cand)
	if ch.contains(key) {
		return candidate{}, failUnsatisfiable(inst.Name, nil, "instance depends on itself")
	}

	params := make([]symbols.TypeParam, len(inst.TypeParams))
	args := make([]typesystem.Type, len(params))
	for i, p := range inst.TypeParams {
		rp := symbols.TypeParam{Name: p.Name + "_" + cand.suffix, Role: p.Role}
		if len(p.Constraints) > 0 {
			rp.Constraints = make([]symbols.ConceptRef, len(p.Constraints))
			for j, c := range p.Constraints {
				rp.Constraints[j] = c.Rename(cand.suffix)
			}
		}
		params[i] = rp
		args[i] = typesystem.TVar{Name: rp.Name}.Apply(cand.subst)
	}

	part, err := PartitionParams(params, args, scope.Rigid, true)
	if err != nil {
		return candidate{}, err
	}
	subst, resolutions, err := runInference(part, params, args, scope, ch.push(key), false)
	if err != nil {
		return candidate{}, err
	}
	merged, err := cand.subst.MergeStrict(subst)
	if err != nil {
		return candidate{}, failInconsistent(err.Error())
	}
	cand.subst = merged
	for _, idx := range part.WitnessIdx {
		cand.nested = append(cand.nested, resolutions[idx])
	}
	return cand, nil
}

// mostSpecificConcepts keeps candidates whose provided concept set,
// compared by concept definition, covers every other survivor's set.
func mostSpecificConcepts(cands []candidate, scope Scope) []candidate {
	sets := make([]map[string]bool, len(cands))
	for i, c := range cands {
		set := make(map[string]bool)
		for _, ref := range scope.Provided(c.src) {
			set[ref.Name] = true
		}
		sets[i] = set
	}

	var kept []candidate
	for i := range cands {
		covers := true
		for j := range cands {
			if i == j {
				continue
			}
			if !supersetOf(sets[i], sets[j]) {
				covers = false
				break
			}
		}
		if covers {
			kept = append(kept, cands[i])
		}
	}
	return kept
}

func supersetOf(a, b map[string]bool) bool {
	for name := range b {
		if !a[name] {
			return false
		}
	}
	return true
}

// mostSpecificParams drops candidates dominated on the parameter rule:
// zero ordinary type parameters beats some. Candidates are never
// ranked beyond that.
func mostSpecificParams(cands []candidate) []candidate {
	anyClosed := false
	for _, c := range cands {
		if ordinaryCount(c.src) == 0 {
			anyClosed = true
			break
		}
	}
	if !anyClosed {
		return cands
	}
	var kept []candidate
	for _, c := range cands {
		if ordinaryCount(c.src) == 0 {
			kept = append(kept, c)
		}
	}
	return kept
}

func ordinaryCount(src symbols.WitnessSource) int {
	if inst, ok := src.(*symbols.InstanceDef); ok {
		return inst.OrdinaryParamCount()
	}
	return 0
}

// expansionKey identifies one expansion of a generic instance: the
// declaration plus its heads as instantiated by the match.
func expansionKey(inst *symbols.InstanceDef, cand candidate) string {
	parts := make([]string, len(inst.Concepts))
	for i, ref := range inst.Concepts {
		parts[i] = ref.Rename(cand.suffix).Apply(cand.subst).String()
	}
	return inst.Name + "@" + strings.Join(parts, ";")
}

func finalize(cand candidate) *Resolved {
	res := &Resolved{Source: cand.src, Subst: cand.subst, Nested: cand.nested}
	if inst, ok := cand.src.(*symbols.InstanceDef); ok && len(inst.TypeParams) > 0 {
		args := make([]typesystem.Type, len(inst.TypeParams))
		for i, p := range inst.TypeParams {
			args[i] = typesystem.TVar{Name: p.Name + "_" + cand.suffix}.Apply(cand.subst)
		}
		res.Args = args
	}
	return res
}

func candidateNames(cands []candidate) []string {
	return lo.Map(cands, func(c candidate, _ int) string { return c.src.SourceName() })
}
