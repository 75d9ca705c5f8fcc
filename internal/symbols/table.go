package symbols

import (
	"fmt"
	"sort"

	"github.com/begriff-lang/begriff/internal/typesystem"
)

// SymbolTable holds the concepts, instances, and constrained type
// parameters visible at a lexical position. Tables nest through outer,
// one level per enclosing scope; imported package tables contribute
// their exported instances.
type SymbolTable struct {
	pkg   string
	outer *SymbolTable

	// Concept registry: ConceptName -> definition
	concepts map[string]*ConceptDef

	// Named instances declared in this scope, in declaration order
	instances []*InstanceDef

	// Witness-carrying parameters of the enclosing declaration,
	// in declaration order
	paramWitnesses []*ParamWitness

	// Type variables fixed by the enclosing declaration
	rigid typesystem.VarSet

	imports []*SymbolTable
}

func NewSymbolTable(pkg string) *SymbolTable {
	return &SymbolTable{
		pkg:      pkg,
		concepts: make(map[string]*ConceptDef),
		rigid:    typesystem.NewVarSet(),
	}
}

// NewEnclosedSymbolTable creates a nested scope sharing the outer
// table's package.
func NewEnclosedSymbolTable(outer *SymbolTable) *SymbolTable {
	st := NewSymbolTable(outer.pkg)
	st.outer = outer
	return st
}

func (s *SymbolTable) Pkg() string {
	return s.pkg
}

// Outer returns the enclosing scope table, or nil at the root.
func (s *SymbolTable) Outer() *SymbolTable {
	return s.outer
}

// AddImport makes another package's exported instances visible here.
func (s *SymbolTable) AddImport(tbl *SymbolTable) {
	s.imports = append(s.imports, tbl)
}

// RegisterConcept declares a concept in this scope. Redeclaring a name
// visible in the chain is an error. Super-concept references are not
// resolved here; MissingRefs reports dangling names after loading.
func (s *SymbolTable) RegisterConcept(def *ConceptDef) error {
	if _, exists := s.LookupConcept(def.Name); exists {
		return fmt.Errorf("concept %s already declared", def.Name)
	}
	for _, sup := range def.Supers {
		if sup.Name == def.Name {
			return fmt.Errorf("concept %s cannot extend itself", def.Name)
		}
	}
	s.concepts[def.Name] = def
	return nil
}

// LookupConcept finds a concept by name in this scope, the outer
// chain, or imported packages.
func (s *SymbolTable) LookupConcept(name string) (*ConceptDef, bool) {
	if def, ok := s.concepts[name]; ok {
		return def, true
	}
	if s.outer != nil {
		if def, ok := s.outer.LookupConcept(name); ok {
			return def, true
		}
	}
	for _, imp := range s.imports {
		if def, ok := imp.LookupConcept(name); ok {
			return def, true
		}
	}
	return nil, false
}

// RegisterInstance declares a named instance in this scope after
// validating its concept refs and checking for overlap: two instances
// in the same scope chain whose heads for the same concept unify would
// make every lookup of that concept ambiguous, so the conflict is
// rejected at declaration. Overlap that only arises by importing two
// independent packages is legal here; it is settled at search time by
// the specificity filters or reported as an ambiguity.
func (s *SymbolTable) RegisterInstance(inst *InstanceDef) error {
	if inst.Pkg == "" {
		inst.Pkg = s.pkg
	}
	for _, ref := range inst.Concepts {
		def, ok := s.LookupConcept(ref.Name)
		if !ok {
			return fmt.Errorf("instance %s implements unknown concept %s", inst.Name, ref.Name)
		}
		if len(ref.Args) != len(def.TypeParams) {
			return fmt.Errorf("instance %s: concept %s expects %d type arguments, got %d",
				inst.Name, ref.Name, len(def.TypeParams), len(ref.Args))
		}
	}

	for t := s; t != nil; t = t.outer {
		for _, existing := range t.instances {
			for _, ref := range inst.Concepts {
				for _, exRef := range existing.Concepts {
					if exRef.Name != ref.Name {
						continue
					}
					if headsOverlap(exRef, ref) {
						return fmt.Errorf("overlapping instances for concept %s: %s and %s",
							ref.Name, existing.Name, inst.Name)
					}
				}
			}
		}
	}

	s.instances = append(s.instances, inst)
	return nil
}

// headsOverlap reports whether two heads of the same concept unify
// once their variables are kept apart.
func headsOverlap(existing, candidate ConceptRef) bool {
	renamed := candidate.Rename("new")
	acc := typesystem.Subst{}
	for i := range existing.Args {
		next, err := typesystem.Unify(existing.Args[i], renamed.Args[i], nil, acc)
		if err != nil {
			return false
		}
		acc = next
	}
	return true
}

// DeclareRigid marks type variables as fixed by the enclosing
// declaration.
func (s *SymbolTable) DeclareRigid(names ...string) {
	for _, n := range names {
		s.rigid.Add(n)
	}
}

// DeclareParamWitness introduces a constrained type parameter. The
// parameter joins the candidate pool and its variable becomes rigid:
// it belongs to the enclosing declaration and must never be solved
// away by nested inference.
func (s *SymbolTable) DeclareParamWitness(p *ParamWitness) {
	s.paramWitnesses = append(s.paramWitnesses, p)
	s.rigid.Add(p.Name)
}

// RigidTypeVars returns the union of rigid variables along the scope
// chain.
func (s *SymbolTable) RigidTypeVars() typesystem.VarSet {
	result := typesystem.NewVarSet()
	for t := s; t != nil; t = t.outer {
		result = result.Union(t.rigid)
	}
	return result
}

// VisibleInstances returns the ordered candidate pool at this
// position: witness-carrying parameters innermost-first, then named
// instances outer scopes first, then accessible imported instances.
func (s *SymbolTable) VisibleInstances() []WitnessSource {
	var pool []WitnessSource
	seen := make(map[WitnessSource]bool)

	for t := s; t != nil; t = t.outer {
		for _, p := range t.paramWitnesses {
			if !seen[p] {
				seen[p] = true
				pool = append(pool, p)
			}
		}
	}

	for _, inst := range s.visibleInstanceDefs(nil) {
		src := WitnessSource(inst)
		if !seen[src] && s.IsAccessible(inst) {
			seen[src] = true
			pool = append(pool, src)
		}
	}

	return pool
}

// visibleInstanceDefs collects named instances outer-first, then this
// scope, then imports, deduplicated.
func (s *SymbolTable) visibleInstanceDefs(seen map[*InstanceDef]bool) []*InstanceDef {
	if seen == nil {
		seen = make(map[*InstanceDef]bool)
	}
	var result []*InstanceDef
	if s.outer != nil {
		result = append(result, s.outer.visibleInstanceDefs(seen)...)
	}
	for _, inst := range s.instances {
		if !seen[inst] {
			seen[inst] = true
			result = append(result, inst)
		}
	}
	for _, imp := range s.imports {
		for _, inst := range imp.visibleInstanceDefs(seen) {
			result = append(result, inst)
		}
	}
	return result
}

// AllInstances returns every named instance visible from this scope,
// including inaccessible ones. Used by tooling that inspects the
// whole workspace.
func (s *SymbolTable) AllInstances() []*InstanceDef {
	return s.visibleInstanceDefs(nil)
}

// IsAccessible reports whether an instance may be used from this
// scope: same package, or exported.
func (s *SymbolTable) IsAccessible(inst *InstanceDef) bool {
	return inst.Exported || inst.Pkg == s.pkg
}

// DeclaredConstraints returns the concept constraints of a
// witness-carrying parameter visible from this scope, or nil.
func (s *SymbolTable) DeclaredConstraints(param string) []ConceptRef {
	for t := s; t != nil; t = t.outer {
		for _, p := range t.paramWitnesses {
			if p.Name == param {
				return p.Constraints
			}
		}
	}
	return nil
}

// FlattenedRefs expands a concept ref to itself plus every inherited
// super-concept, instantiated through the ref's type arguments.
// Breadth-first, deduplicated, safe on cyclic inheritance graphs.
func (s *SymbolTable) FlattenedRefs(ref ConceptRef) []ConceptRef {
	var result []ConceptRef
	seen := make(map[string]bool)
	queue := []ConceptRef{ref}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		key := current.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, current)

		def, ok := s.LookupConcept(current.Name)
		if !ok || len(def.TypeParams) != len(current.Args) {
			continue
		}
		subst := make(typesystem.Subst, len(def.TypeParams))
		for i, param := range def.TypeParams {
			subst[param] = current.Args[i]
		}
		for _, sup := range def.Supers {
			queue = append(queue, sup.Apply(subst))
		}
	}

	return result
}

// ProvidedConcepts returns every concept a witness source certifies,
// with inheritance flattened: the declared heads of a named instance,
// or the constraints of a parameter witness, each closed over supers.
func (s *SymbolTable) ProvidedConcepts(src WitnessSource) []ConceptRef {
	var declared []ConceptRef
	switch src := src.(type) {
	case *InstanceDef:
		declared = src.Concepts
	case *ParamWitness:
		declared = src.Constraints
	}

	var result []ConceptRef
	seen := make(map[string]bool)
	for _, ref := range declared {
		for _, flat := range s.FlattenedRefs(ref) {
			key := flat.String()
			if !seen[key] {
				seen[key] = true
				result = append(result, flat)
			}
		}
	}
	return result
}

// MissingMethods lists required methods of the instance's declared
// concepts that the instance neither implements nor inherits as a
// concept default.
func (s *SymbolTable) MissingMethods(inst *InstanceDef) []string {
	var missing []string
	seen := make(map[string]bool)
	for _, ref := range inst.Concepts {
		def, ok := s.LookupConcept(ref.Name)
		if !ok {
			continue
		}
		for _, name := range def.RequiredMethods() {
			if seen[name] {
				continue
			}
			seen[name] = true
			if _, implemented := inst.Methods[name]; !implemented {
				missing = append(missing, name)
			}
		}
	}
	sort.Strings(missing)
	return missing
}

// MissingRefs reports names of concepts referenced by declarations in
// this scope chain that are nowhere defined: dangling supers, instance
// heads, and parameter constraints.
func (s *SymbolTable) MissingRefs() []string {
	seen := make(map[string]bool)
	var missing []string
	report := func(name string) {
		if !seen[name] {
			seen[name] = true
			if _, ok := s.LookupConcept(name); !ok {
				missing = append(missing, name)
			}
		}
	}

	for t := s; t != nil; t = t.outer {
		for _, def := range t.concepts {
			for _, sup := range def.Supers {
				report(sup.Name)
			}
		}
		for _, inst := range t.instances {
			for _, ref := range inst.Concepts {
				report(ref.Name)
			}
			for _, p := range inst.TypeParams {
				for _, c := range p.Constraints {
					report(c.Name)
				}
			}
		}
		for _, p := range t.paramWitnesses {
			for _, c := range p.Constraints {
				report(c.Name)
			}
		}
	}

	sort.Strings(missing)
	return missing
}
