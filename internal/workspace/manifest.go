// Package workspace loads begriff.yaml manifests and binds their
// declarations into symbol tables the resolution engine can search.
//
// A workspace is a tree of manifests: the root document plus everything
// it includes, each contributing one package of concepts, instances,
// and generic operations, and optionally a list of resolution queries
// to run against its own scope.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/begriff-lang/begriff/internal/config"
)

// Manifest represents a single begriff.yaml document.
type Manifest struct {
	// Package is the package name for every declaration in this
	// manifest. Defaults to "main". Instance accessibility is decided
	// per package: internal instances are invisible to includers.
	Package string `yaml:"package,omitempty"`

	// Include lists other manifests whose exported declarations become
	// visible here. Paths are resolved relative to this file; a
	// directory resolves to the begriff.yaml inside it.
	Include []string `yaml:"include,omitempty"`

	Concepts  []ConceptDecl  `yaml:"concepts,omitempty"`
	Instances []InstanceDecl `yaml:"instances,omitempty"`

	// Ops declares generic operations whose type arguments queries can
	// ask the engine to complete.
	Ops []OpDecl `yaml:"ops,omitempty"`

	// Queries are resolution goals checked by `begriff check`.
	Queries []QueryDecl `yaml:"queries,omitempty"`

	// Path of the loaded file. Set by LoadManifest, not read from YAML.
	Path string `yaml:"-"`
}

// ConceptDecl declares a concept: a named requirement over one or more
// type parameters.
type ConceptDecl struct {
	Name string `yaml:"name"`

	// Params are the concept's type parameters, e.g. [a] for Eq<a>.
	Params []string `yaml:"params"`

	// Extends lists super-concept references stated in terms of Params,
	// e.g. ["Eq<a>"] on Ord<a>. Every instance of this concept also
	// certifies the flattened supers.
	Extends []string `yaml:"extends,omitempty"`

	Methods []MethodDecl `yaml:"methods,omitempty"`
}

// MethodDecl declares one operation of a concept.
type MethodDecl struct {
	Name string `yaml:"name"`

	// Params and Result are type expressions over the concept's
	// parameters, e.g. params: ["a", "a"], result: "bool". Optional;
	// the resolver only needs names and default flags.
	Params []string `yaml:"params,omitempty"`
	Result string   `yaml:"result,omitempty"`

	// Default marks a method the concept implements itself; instances
	// may omit it.
	Default bool `yaml:"default,omitempty"`
}

// ParamDecl declares one type parameter of an instance or operation.
// A parameter with witness constraints is resolved by instance search;
// one marked assoc is fixed as a side effect of some witness; plain
// parameters are ordinary types supplied by the caller.
type ParamDecl struct {
	Name string `yaml:"name"`

	// Witness lists concept constraints, e.g. ["Eq<a>"]. Presence makes
	// this a witness parameter.
	Witness []string `yaml:"witness,omitempty"`

	// Assoc marks an associated type. Mutually exclusive with Witness.
	Assoc bool `yaml:"assoc,omitempty"`
}

// InstanceDecl declares a named instance: a witness for one or more
// concepts, concrete (EqInt) or generic (EqArray<a> where Eq<a>).
type InstanceDecl struct {
	Name string `yaml:"name"`

	// Params are the instance's type parameters. Constraints and the
	// For references below are stated in terms of these names.
	Params []ParamDecl `yaml:"params,omitempty"`

	// For lists the concept references this instance implements,
	// e.g. ["Eq<int>"] or ["Ord<a[]>"]. Required.
	For []string `yaml:"for"`

	// Constructor is the dictionary constructor symbol used when the
	// witness is materialized. Defaults to the instance name.
	Constructor string `yaml:"constructor,omitempty"`

	// Internal hides the instance from manifests that include this one.
	Internal bool `yaml:"internal,omitempty"`

	// Methods maps concept method names to implementing symbols.
	// Missing entries fall back to the concept default, when one exists.
	Methods map[string]string `yaml:"methods,omitempty"`
}

// OpDecl declares a generic operation. Queries apply it with explicit
// ordinary type arguments and let inference complete the rest.
type OpDecl struct {
	Name   string      `yaml:"name"`
	Params []ParamDecl `yaml:"params"`
}

// QueryDecl declares one resolution goal. Exactly one of Witness or
// Apply must be set.
type QueryDecl struct {
	// Name labels the query in reports. Defaults to q1, q2, ...
	Name string `yaml:"name,omitempty"`

	// Witness asks for a single instance satisfying every listed
	// concept reference, e.g. ["Eq<int[]>"].
	Witness []string `yaml:"witness,omitempty"`

	// Apply asks inference to complete an operation's type arguments.
	Apply *ApplyDecl `yaml:"apply,omitempty"`

	// Rigid declares ambient type variables that resolution must treat
	// as opaque: they belong to an enclosing declaration and are never
	// solved away. Variables used in goals must be listed here or in
	// Vars; unlisted identifiers parse as named types.
	Rigid []string `yaml:"rigid,omitempty"`

	// Vars declares flexible goal variables inference may bind,
	// e.g. vars: [b] with witness: ["Conv<int, b>", "Eq<b>"].
	Vars []string `yaml:"vars,omitempty"`

	// Given introduces witness-carrying parameters into the query
	// scope, as if resolution ran inside a declaration constraining
	// them. Each entry needs witness constraints.
	Given []ParamDecl `yaml:"given,omitempty"`

	// AssocPassthrough leaves undetermined associated types open
	// instead of failing (apply queries only).
	AssocPassthrough bool `yaml:"assoc_passthrough,omitempty"`

	// Expect asserts the materialized witness of a witness query,
	// e.g. "EqArray(EqInt)".
	Expect string `yaml:"expect,omitempty"`

	// ExpectTypes asserts the full argument list of an apply query.
	ExpectTypes []string `yaml:"expect_types,omitempty"`

	// ExpectSubst asserts bindings of flexible goal variables,
	// e.g. {b: str}.
	ExpectSubst map[string]string `yaml:"expect_subst,omitempty"`

	// ExpectError asserts resolution fails and the failure message
	// contains this substring. Mutually exclusive with the expectations
	// above.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// ApplyDecl names an operation and the explicit type arguments for its
// ordinary parameters, in declaration order.
type ApplyDecl struct {
	Op   string   `yaml:"op"`
	Args []string `yaml:"args,omitempty"`
}

// LoadManifest reads and parses a begriff.yaml file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	return ParseManifest(data, path)
}

// ParseManifest parses begriff.yaml content from bytes.
// The path argument is used for error messages and include resolution.
func ParseManifest(data []byte, path string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := m.validate(path); err != nil {
		return nil, err
	}
	m.setDefaults()
	m.Path = path
	return &m, nil
}

// FindManifest searches for begriff.yaml starting from dir and walking
// up to parent directories. Returns the path and nil error if found,
// or empty string and nil error if not found.
func FindManifest(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range config.ManifestFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return "", nil
		}
		dir = parent
	}
}

// validate checks the manifest for structural errors. References to
// concepts and the type expressions themselves are checked later,
// during binding, when the full include scope is known.
func (m *Manifest) validate(path string) error {
	seenConcepts := make(map[string]bool)
	for i, c := range m.Concepts {
		if c.Name == "" {
			return fmt.Errorf("%s: concepts[%d]: name is required", path, i)
		}
		if seenConcepts[c.Name] {
			return fmt.Errorf("%s: concepts[%d]: concept %s declared twice", path, i, c.Name)
		}
		seenConcepts[c.Name] = true
		if len(c.Params) == 0 {
			return fmt.Errorf("%s: concepts[%d] (%s): at least one type parameter is required", path, i, c.Name)
		}
		seenParams := make(map[string]bool)
		for _, p := range c.Params {
			if seenParams[p] {
				return fmt.Errorf("%s: concepts[%d] (%s): duplicate parameter %s", path, i, c.Name, p)
			}
			seenParams[p] = true
		}
		seenMethods := make(map[string]bool)
		for j, meth := range c.Methods {
			if meth.Name == "" {
				return fmt.Errorf("%s: concepts[%d].methods[%d] (%s): name is required", path, i, j, c.Name)
			}
			if seenMethods[meth.Name] {
				return fmt.Errorf("%s: concepts[%d] (%s): method %s declared twice", path, i, c.Name, meth.Name)
			}
			seenMethods[meth.Name] = true
		}
	}

	seenInstances := make(map[string]bool)
	for i, inst := range m.Instances {
		if inst.Name == "" {
			return fmt.Errorf("%s: instances[%d]: name is required", path, i)
		}
		if seenInstances[inst.Name] {
			return fmt.Errorf("%s: instances[%d]: instance %s declared twice", path, i, inst.Name)
		}
		seenInstances[inst.Name] = true
		if len(inst.For) == 0 {
			return fmt.Errorf("%s: instances[%d] (%s): for is required", path, i, inst.Name)
		}
		if err := validateParams(inst.Params, fmt.Sprintf("%s: instances[%d] (%s)", path, i, inst.Name)); err != nil {
			return err
		}
	}

	seenOps := make(map[string]bool)
	for i, op := range m.Ops {
		if op.Name == "" {
			return fmt.Errorf("%s: ops[%d]: name is required", path, i)
		}
		if seenOps[op.Name] {
			return fmt.Errorf("%s: ops[%d]: op %s declared twice", path, i, op.Name)
		}
		seenOps[op.Name] = true
		if len(op.Params) == 0 {
			return fmt.Errorf("%s: ops[%d] (%s): at least one parameter is required", path, i, op.Name)
		}
		if err := validateParams(op.Params, fmt.Sprintf("%s: ops[%d] (%s)", path, i, op.Name)); err != nil {
			return err
		}
	}

	for i, q := range m.Queries {
		label := q.Name
		if label == "" {
			label = fmt.Sprintf("q%d", i+1)
		}
		hasWitness := len(q.Witness) > 0
		hasApply := q.Apply != nil
		if hasWitness == hasApply {
			return fmt.Errorf("%s: queries[%d] (%s): exactly one of witness or apply is required", path, i, label)
		}
		if hasApply && q.Apply.Op == "" {
			return fmt.Errorf("%s: queries[%d] (%s): apply.op is required", path, i, label)
		}
		if q.Expect != "" && hasApply {
			return fmt.Errorf("%s: queries[%d] (%s): expect is only valid with witness, use expect_types", path, i, label)
		}
		if len(q.ExpectTypes) > 0 && hasWitness {
			return fmt.Errorf("%s: queries[%d] (%s): expect_types is only valid with apply", path, i, label)
		}
		if len(q.ExpectSubst) > 0 && hasApply {
			return fmt.Errorf("%s: queries[%d] (%s): expect_subst is only valid with witness", path, i, label)
		}
		if q.AssocPassthrough && hasWitness {
			return fmt.Errorf("%s: queries[%d] (%s): assoc_passthrough is only valid with apply", path, i, label)
		}
		if q.ExpectError != "" && (q.Expect != "" || len(q.ExpectTypes) > 0 || len(q.ExpectSubst) > 0) {
			return fmt.Errorf("%s: queries[%d] (%s): expect_error excludes other expectations", path, i, label)
		}
		for j, g := range q.Given {
			if g.Name == "" {
				return fmt.Errorf("%s: queries[%d].given[%d] (%s): name is required", path, i, j, label)
			}
			if len(g.Witness) == 0 {
				return fmt.Errorf("%s: queries[%d].given[%d] (%s): witness constraints are required", path, i, j, label)
			}
			if g.Assoc {
				return fmt.Errorf("%s: queries[%d].given[%d] (%s): assoc is not valid here", path, i, j, label)
			}
		}
	}

	for i, inc := range m.Include {
		if inc == "" {
			return fmt.Errorf("%s: include[%d]: path is empty", path, i)
		}
	}

	return nil
}

func validateParams(params []ParamDecl, prefix string) error {
	seen := make(map[string]bool)
	for j, p := range params {
		if p.Name == "" {
			return fmt.Errorf("%s: params[%d]: name is required", prefix, j)
		}
		if seen[p.Name] {
			return fmt.Errorf("%s: duplicate parameter %s", prefix, p.Name)
		}
		seen[p.Name] = true
		if p.Assoc && len(p.Witness) > 0 {
			return fmt.Errorf("%s: params[%d] (%s): witness and assoc are mutually exclusive", prefix, j, p.Name)
		}
	}
	return nil
}

// setDefaults fills in default values for omitted fields.
func (m *Manifest) setDefaults() {
	if m.Package == "" {
		m.Package = config.DefaultPackageName
	}
	for i := range m.Queries {
		if m.Queries[i].Name == "" {
			m.Queries[i].Name = fmt.Sprintf("q%d", i+1)
		}
	}
	for i := range m.Instances {
		if m.Instances[i].Constructor == "" {
			m.Instances[i].Constructor = m.Instances[i].Name
		}
	}
}

// Dir returns the directory containing the manifest file.
func (m *Manifest) Dir() string {
	return filepath.Dir(m.Path)
}
