package workspace

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/samber/lo"

	"github.com/begriff-lang/begriff/internal/diagnostics"
	"github.com/begriff-lang/begriff/internal/symbols"
	"github.com/begriff-lang/begriff/internal/token"
	"github.com/begriff-lang/begriff/internal/typeexpr"
	"github.com/begriff-lang/begriff/internal/typesystem"
	"github.com/begriff-lang/begriff/internal/utils"
)

// Package is one loaded manifest bound into a symbol table.
type Package struct {
	Name     string
	Path     string // absolute manifest path
	Manifest *Manifest
	Table    *symbols.SymbolTable
	Includes []*Package
	Ops      []*Op
	Queries  []*Query
}

// Op is a bound generic operation.
type Op struct {
	Name   string
	Pkg    string
	Params []symbols.TypeParam
}

// QueryKind distinguishes the two goal forms a manifest can declare.
type QueryKind int

const (
	// QueryWitness asks for one instance satisfying a constraint list.
	QueryWitness QueryKind = iota
	// QueryApply asks inference to complete an op's type arguments.
	QueryApply
)

// Query is a bound resolution goal, ready to run against Table.
type Query struct {
	Name  string
	Pkg   *Package
	Kind  QueryKind
	Table *symbols.SymbolTable

	// Witness goals
	Constraints []symbols.ConceptRef

	// Apply goals
	Op               *Op
	Supplied         []typesystem.Type
	AssocPassthrough bool

	Expect      string
	ExpectTypes []string
	ExpectSubst map[string]string
	ExpectError string
}

// Goal renders the query's goal for reports.
func (q *Query) Goal() string {
	if q.Kind == QueryApply {
		args := lo.Map(q.Supplied, func(t typesystem.Type, _ int) string { return t.String() })
		return fmt.Sprintf("apply %s<%s>", q.Op.Name, strings.Join(args, ", "))
	}
	refs := lo.Map(q.Constraints, func(r symbols.ConceptRef, _ int) string { return r.String() })
	return "witness " + strings.Join(refs, ", ")
}

// Workspace is everything reachable from a root manifest.
type Workspace struct {
	Root     *Package
	Packages []*Package // load order: includes before includers
}

// AllQueries returns every bound query across the workspace, included
// packages first, in declaration order.
func (w *Workspace) AllQueries() []*Query {
	return lo.FlatMap(w.Packages, func(p *Package, _ int) []*Query { return p.Queries })
}

// Instances returns every named instance in the workspace, included
// packages first, deduplicated.
func (w *Workspace) Instances() []*symbols.InstanceDef {
	all := lo.FlatMap(w.Packages, func(p *Package, _ int) []*symbols.InstanceDef {
		return p.Table.AllInstances()
	})
	return lo.Uniq(all)
}

// Loader resolves a manifest include tree into bound packages.
type Loader struct {
	loaded     map[string]*Package // cache by absolute manifest path
	processing map[string]bool     // cycle detection during loading
	byName     map[string]*Package
	order      []*Package
	rep        diagnostics.Reporter
}

// Load reads the manifest at path (a begriff.yaml file or a directory
// containing one), loads its include tree, and binds every
// declaration. Binding problems are reported to rep and the affected
// declaration is skipped; unreadable or cyclic manifests abort with an
// error.
func Load(path string, rep diagnostics.Reporter) (*Workspace, error) {
	if rep == nil {
		rep = diagnostics.NewSink()
	}
	manifestPath, err := utils.ManifestPath(path)
	if err != nil {
		return nil, fmt.Errorf("locating manifest: %w", err)
	}

	l := &Loader{
		loaded:     make(map[string]*Package),
		processing: make(map[string]bool),
		byName:     make(map[string]*Package),
		rep:        rep,
	}
	root, err := l.load(manifestPath)
	if err != nil {
		return nil, err
	}
	return &Workspace{Root: root, Packages: l.order}, nil
}

func (l *Loader) load(path string) (*Package, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	if pkg, ok := l.loaded[abs]; ok {
		return pkg, nil
	}
	if l.processing[abs] {
		return nil, fmt.Errorf("include cycle through %s", abs)
	}
	l.processing[abs] = true
	defer delete(l.processing, abs)

	m, err := LoadManifest(abs)
	if err != nil {
		return nil, err
	}

	pkg := &Package{
		Name:     m.Package,
		Path:     abs,
		Manifest: m,
		Table:    symbols.NewSymbolTable(m.Package),
	}

	for _, inc := range m.Include {
		incPath := utils.ResolveIncludePath(m.Dir(), inc)
		resolved, err := utils.ManifestPath(incPath)
		if err != nil {
			return nil, fmt.Errorf("%s: include %s: %w", abs, inc, err)
		}
		dep, err := l.load(resolved)
		if err != nil {
			return nil, err
		}
		pkg.Includes = append(pkg.Includes, dep)
		pkg.Table.AddImport(dep.Table)
	}

	if prev, ok := l.byName[m.Package]; ok {
		return nil, fmt.Errorf("%s: package name %s conflicts with %s", abs, m.Package, prev.Path)
	}

	l.bind(pkg)

	l.loaded[abs] = pkg
	l.byName[m.Package] = pkg
	l.order = append(l.order, pkg)
	return pkg, nil
}

// bind registers the package's declarations. Order matters: concepts
// first so instance heads and constraints can reference them, then
// instances and ops, queries last so apply goals see every op.
func (l *Loader) bind(pkg *Package) {
	l.bindConcepts(pkg)
	l.bindInstances(pkg)
	l.bindOps(pkg)
	l.bindQueries(pkg)
}

func (l *Loader) bindConcepts(pkg *Package) {
	for i, decl := range pkg.Manifest.Concepts {
		vars := typesystem.NewVarSet(decl.Params...)
		def := &symbols.ConceptDef{Name: decl.Name, TypeParams: decl.Params}

		for j, ext := range decl.Extends {
			ref, ok := l.parseRef(pkg, ext, vars, fmt.Sprintf("concepts[%d].extends[%d]", i, j))
			if !ok {
				continue
			}
			def.Supers = append(def.Supers, ref)
		}

		for _, meth := range decl.Methods {
			sig := symbols.MethodSig{Name: meth.Name, HasDefault: meth.Default}
			for k, p := range meth.Params {
				t, ok := l.parseType(pkg, p, vars, fmt.Sprintf("concepts[%d] (%s).%s.params[%d]", i, decl.Name, meth.Name, k))
				if !ok {
					continue
				}
				sig.Params = append(sig.Params, t)
			}
			if meth.Result != "" {
				if t, ok := l.parseType(pkg, meth.Result, vars, fmt.Sprintf("concepts[%d] (%s).%s.result", i, decl.Name, meth.Name)); ok {
					sig.Result = t
				}
			}
			def.Methods = append(def.Methods, sig)
		}

		if err := pkg.Table.RegisterConcept(def); err != nil {
			l.reportf(pkg, diagnostics.ErrW004, "concepts[%d]: %v", i, err)
		}
	}

	// Supers can reference concepts declared later in the file or in
	// includes, so they are checked after registration.
	for i, decl := range pkg.Manifest.Concepts {
		def, ok := pkg.Table.LookupConcept(decl.Name)
		if !ok {
			continue
		}
		for _, sup := range def.Supers {
			l.checkConceptRef(pkg, sup, fmt.Sprintf("concepts[%d] (%s): extends", i, decl.Name))
		}
	}
}

func (l *Loader) bindInstances(pkg *Package) {
	for i, decl := range pkg.Manifest.Instances {
		names := lo.Map(decl.Params, func(p ParamDecl, _ int) string { return p.Name })
		vars := typesystem.NewVarSet(names...)

		inst := &symbols.InstanceDef{
			Name:            decl.Name,
			Pkg:             pkg.Name,
			Exported:        !decl.Internal,
			ConstructorName: decl.Constructor,
			Methods:         decl.Methods,
		}

		ok := true
		for j, p := range decl.Params {
			tp := symbols.TypeParam{Name: p.Name, Role: paramRole(p)}
			for k, c := range p.Witness {
				where := fmt.Sprintf("instances[%d] (%s).params[%d].witness[%d]", i, decl.Name, j, k)
				ref, refOK := l.parseRef(pkg, c, vars, where)
				if !refOK || !l.checkConceptRef(pkg, ref, where) {
					ok = false
					continue
				}
				tp.Constraints = append(tp.Constraints, ref)
			}
			inst.TypeParams = append(inst.TypeParams, tp)
		}

		for j, f := range decl.For {
			where := fmt.Sprintf("instances[%d] (%s).for[%d]", i, decl.Name, j)
			ref, refOK := l.parseRef(pkg, f, vars, where)
			if !refOK || !l.checkConceptRef(pkg, ref, where) {
				ok = false
				continue
			}
			inst.Concepts = append(inst.Concepts, ref)
		}

		if !ok {
			continue
		}
		if err := pkg.Table.RegisterInstance(inst); err != nil {
			// Head existence and arity were checked above, so a
			// registration failure is an overlap conflict.
			l.reportf(pkg, diagnostics.ErrW004, "instances[%d]: %v", i, err)
			continue
		}
		if missing := pkg.Table.MissingMethods(inst); len(missing) > 0 {
			l.reportf(pkg, diagnostics.ErrW002, "instances[%d] (%s): missing method implementations: %s",
				i, decl.Name, strings.Join(missing, ", "))
		}
	}
}

func (l *Loader) bindOps(pkg *Package) {
	for i, decl := range pkg.Manifest.Ops {
		names := lo.Map(decl.Params, func(p ParamDecl, _ int) string { return p.Name })
		vars := typesystem.NewVarSet(names...)

		op := &Op{Name: decl.Name, Pkg: pkg.Name}
		ok := true
		for j, p := range decl.Params {
			tp := symbols.TypeParam{Name: p.Name, Role: paramRole(p)}
			for k, c := range p.Witness {
				where := fmt.Sprintf("ops[%d] (%s).params[%d].witness[%d]", i, decl.Name, j, k)
				ref, refOK := l.parseRef(pkg, c, vars, where)
				if !refOK || !l.checkConceptRef(pkg, ref, where) {
					ok = false
					continue
				}
				tp.Constraints = append(tp.Constraints, ref)
			}
			op.Params = append(op.Params, tp)
		}
		if ok {
			pkg.Ops = append(pkg.Ops, op)
		}
	}
}

func (l *Loader) bindQueries(pkg *Package) {
	for i, decl := range pkg.Manifest.Queries {
		where := fmt.Sprintf("queries[%d] (%s)", i, decl.Name)
		vars := typesystem.NewVarSet(decl.Rigid...)
		for _, v := range decl.Vars {
			vars.Add(v)
		}

		qt := symbols.NewEnclosedSymbolTable(pkg.Table)
		qt.DeclareRigid(decl.Rigid...)

		q := &Query{
			Name:             decl.Name,
			Pkg:              pkg,
			Table:            qt,
			AssocPassthrough: decl.AssocPassthrough,
			Expect:           decl.Expect,
			ExpectTypes:      decl.ExpectTypes,
			ExpectSubst:      decl.ExpectSubst,
			ExpectError:      decl.ExpectError,
		}

		ok := true
		for j, g := range decl.Given {
			pw := &symbols.ParamWitness{Name: g.Name}
			for k, c := range g.Witness {
				gwhere := fmt.Sprintf("queries[%d] (%s).given[%d].witness[%d]", i, decl.Name, j, k)
				ref, refOK := l.parseRef(pkg, c, vars, gwhere)
				if !refOK || !l.checkConceptRef(pkg, ref, gwhere) {
					ok = false
					continue
				}
				pw.Constraints = append(pw.Constraints, ref)
			}
			qt.DeclareParamWitness(pw)
		}

		if len(decl.Witness) > 0 {
			q.Kind = QueryWitness
			for j, c := range decl.Witness {
				wwhere := fmt.Sprintf("queries[%d] (%s).witness[%d]", i, decl.Name, j)
				ref, refOK := l.parseRef(pkg, c, vars, wwhere)
				if !refOK || !l.checkConceptRef(pkg, ref, wwhere) {
					ok = false
					continue
				}
				q.Constraints = append(q.Constraints, ref)
			}
		} else {
			q.Kind = QueryApply
			op, opOK := pkg.LookupOp(decl.Apply.Op)
			if !opOK {
				l.reportf(pkg, diagnostics.ErrW003, "%s: unknown op %s", where, decl.Apply.Op)
				continue
			}
			q.Op = op
			for j, a := range decl.Apply.Args {
				t, tOK := l.parseType(pkg, a, vars, fmt.Sprintf("queries[%d] (%s).apply.args[%d]", i, decl.Name, j))
				if !tOK {
					ok = false
					continue
				}
				q.Supplied = append(q.Supplied, t)
			}
		}

		if !ok {
			continue
		}
		pkg.Queries = append(pkg.Queries, q)
	}
}

// LookupOp finds an operation by name in this package or, failing
// that, in its includes.
func (pkg *Package) LookupOp(name string) (*Op, bool) {
	for _, op := range pkg.Ops {
		if op.Name == name {
			return op, true
		}
	}
	for _, inc := range pkg.Includes {
		if op, ok := inc.LookupOp(name); ok {
			return op, true
		}
	}
	return nil, false
}

func paramRole(p ParamDecl) symbols.Role {
	switch {
	case len(p.Witness) > 0:
		return symbols.RoleWitness
	case p.Assoc:
		return symbols.RoleAssoc
	default:
		return symbols.RoleOrdinary
	}
}

// checkConceptRef verifies a reference names a known concept with the
// right number of arguments.
func (l *Loader) checkConceptRef(pkg *Package, ref symbols.ConceptRef, where string) bool {
	def, ok := pkg.Table.LookupConcept(ref.Name)
	if !ok {
		l.reportf(pkg, diagnostics.ErrW003, "%s: unknown concept %s", where, ref.Name)
		return false
	}
	if len(ref.Args) != len(def.TypeParams) {
		l.reportf(pkg, diagnostics.ErrW002, "%s: %s expects %d type arguments, got %d",
			where, ref.Name, len(def.TypeParams), len(ref.Args))
		return false
	}
	return true
}

func (l *Loader) parseRef(pkg *Package, src string, vars typesystem.VarSet, where string) (symbols.ConceptRef, bool) {
	ref, err := typeexpr.ParseConceptRef(src, vars)
	if err != nil {
		l.reportf(pkg, diagnostics.ErrW002, "%s: %q: %v", where, src, err)
		return symbols.ConceptRef{}, false
	}
	return ref, true
}

func (l *Loader) parseType(pkg *Package, src string, vars typesystem.VarSet, where string) (typesystem.Type, bool) {
	t, err := typeexpr.ParseType(src, vars)
	if err != nil {
		l.reportf(pkg, diagnostics.ErrW002, "%s: %q: %v", where, src, err)
		return nil, false
	}
	return t, true
}

func (l *Loader) reportf(pkg *Package, code diagnostics.ErrorCode, format string, args ...interface{}) {
	err := diagnostics.NewErrorf(code, token.Token{}, format, args...)
	err.File = pkg.Path
	l.rep.Report(err)
}
