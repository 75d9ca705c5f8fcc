package symbols

import (
	"strings"
	"testing"

	"github.com/begriff-lang/begriff/internal/typesystem"
)

func tInt() typesystem.Type  { return typesystem.TNamed{Name: "int"} }
func tBool() typesystem.Type { return typesystem.TNamed{Name: "bool"} }
func tVar(name string) typesystem.Type {
	return typesystem.TVar{Name: name}
}

func newTestTable(t *testing.T) *SymbolTable {
	t.Helper()
	tbl := NewSymbolTable("core")
	concepts := []*ConceptDef{
		{Name: "Eq", TypeParams: []string{"a"}},
		{Name: "Ord", TypeParams: []string{"a"}, Supers: []ConceptRef{{Name: "Eq", Args: []typesystem.Type{tVar("a")}}}},
		{Name: "Hash", TypeParams: []string{"a"}, Supers: []ConceptRef{{Name: "Eq", Args: []typesystem.Type{tVar("a")}}}},
	}
	for _, def := range concepts {
		if err := tbl.RegisterConcept(def); err != nil {
			t.Fatalf("RegisterConcept(%s): %v", def.Name, err)
		}
	}
	return tbl
}

func TestRegisterConceptRejectsDuplicates(t *testing.T) {
	tbl := newTestTable(t)
	err := tbl.RegisterConcept(&ConceptDef{Name: "Eq", TypeParams: []string{"a"}})
	if err == nil {
		t.Fatal("expected duplicate concept registration to fail")
	}

	inner := NewEnclosedSymbolTable(tbl)
	err = inner.RegisterConcept(&ConceptDef{Name: "Ord", TypeParams: []string{"a"}})
	if err == nil {
		t.Fatal("expected shadowing registration in nested scope to fail")
	}
}

func TestRegisterInstanceValidatesRefs(t *testing.T) {
	tbl := newTestTable(t)

	err := tbl.RegisterInstance(&InstanceDef{
		Name:     "ShowInt",
		Concepts: []ConceptRef{{Name: "Show", Args: []typesystem.Type{tInt()}}},
	})
	if err == nil || !strings.Contains(err.Error(), "unknown concept") {
		t.Fatalf("expected unknown concept error, got %v", err)
	}

	err = tbl.RegisterInstance(&InstanceDef{
		Name:     "EqPair",
		Concepts: []ConceptRef{{Name: "Eq", Args: []typesystem.Type{tInt(), tBool()}}},
	})
	if err == nil || !strings.Contains(err.Error(), "type arguments") {
		t.Fatalf("expected arity error, got %v", err)
	}
}

func TestRegisterInstanceOverlap(t *testing.T) {
	tbl := newTestTable(t)

	if err := tbl.RegisterInstance(&InstanceDef{
		Name:     "EqInt",
		Concepts: []ConceptRef{{Name: "Eq", Args: []typesystem.Type{tInt()}}},
	}); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	// Identical head: rejected.
	err := tbl.RegisterInstance(&InstanceDef{
		Name:     "EqIntAgain",
		Concepts: []ConceptRef{{Name: "Eq", Args: []typesystem.Type{tInt()}}},
	})
	if err == nil || !strings.Contains(err.Error(), "overlapping instances") {
		t.Fatalf("expected overlap error, got %v", err)
	}

	// A generic head covering the existing concrete one: rejected.
	err = tbl.RegisterInstance(&InstanceDef{
		Name:       "EqAny",
		TypeParams: []TypeParam{{Name: "a", Role: RoleOrdinary}},
		Concepts:   []ConceptRef{{Name: "Eq", Args: []typesystem.Type{tVar("a")}}},
	})
	if err == nil || !strings.Contains(err.Error(), "overlapping instances") {
		t.Fatalf("expected generic overlap error, got %v", err)
	}

	// A disjoint head is fine.
	if err := tbl.RegisterInstance(&InstanceDef{
		Name:     "EqBool",
		Concepts: []ConceptRef{{Name: "Eq", Args: []typesystem.Type{tBool()}}},
	}); err != nil {
		t.Fatalf("disjoint registration failed: %v", err)
	}

	// Same head under a different concept is fine.
	if err := tbl.RegisterInstance(&InstanceDef{
		Name:     "OrdInt",
		Concepts: []ConceptRef{{Name: "Ord", Args: []typesystem.Type{tInt()}}},
	}); err != nil {
		t.Fatalf("different concept registration failed: %v", err)
	}
}

func TestRegisterInstanceOverlapAcrossImports(t *testing.T) {
	prelude := NewSymbolTable("prelude")
	if err := prelude.RegisterConcept(&ConceptDef{Name: "Eq", TypeParams: []string{"t"}}); err != nil {
		t.Fatalf("register concept: %v", err)
	}
	if err := prelude.RegisterInstance(&InstanceDef{
		Name:       "EqAny",
		Exported:   true,
		TypeParams: []TypeParam{{Name: "a", Role: RoleOrdinary}},
		Concepts:   []ConceptRef{{Name: "Eq", Args: []typesystem.Type{tVar("a")}}},
	}); err != nil {
		t.Fatalf("register EqAny: %v", err)
	}

	mainTbl := NewSymbolTable("main")
	mainTbl.AddImport(prelude)

	// The imported generic head covers Eq<int>, but overlap across
	// package boundaries is not a registration conflict; search-time
	// specificity decides between the two.
	if err := mainTbl.RegisterInstance(&InstanceDef{
		Name:     "EqInt",
		Concepts: []ConceptRef{{Name: "Eq", Args: []typesystem.Type{tInt()}}},
	}); err != nil {
		t.Fatalf("cross-import overlap rejected: %v", err)
	}

	names := make(map[string]bool)
	for _, src := range mainTbl.VisibleInstances() {
		names[src.SourceName()] = true
	}
	if !names["EqAny"] || !names["EqInt"] {
		t.Fatalf("expected both instances visible, got %v", names)
	}
}

func TestFlattenedRefs(t *testing.T) {
	tbl := newTestTable(t)

	flat := tbl.FlattenedRefs(ConceptRef{Name: "Ord", Args: []typesystem.Type{tInt()}})
	want := []string{"Ord<int>", "Eq<int>"}
	if len(flat) != len(want) {
		t.Fatalf("got %d refs %v, want %v", len(flat), flat, want)
	}
	for i, ref := range flat {
		if ref.String() != want[i] {
			t.Errorf("flat[%d] = %s, want %s", i, ref, want[i])
		}
	}
}

func TestFlattenedRefsDiamond(t *testing.T) {
	tbl := newTestTable(t)
	// Num extends both Ord and Hash; Eq must appear once.
	if err := tbl.RegisterConcept(&ConceptDef{
		Name:       "Num",
		TypeParams: []string{"a"},
		Supers: []ConceptRef{
			{Name: "Ord", Args: []typesystem.Type{tVar("a")}},
			{Name: "Hash", Args: []typesystem.Type{tVar("a")}},
		},
	}); err != nil {
		t.Fatal(err)
	}

	flat := tbl.FlattenedRefs(ConceptRef{Name: "Num", Args: []typesystem.Type{tInt()}})
	counts := make(map[string]int)
	for _, ref := range flat {
		counts[ref.String()]++
	}
	for _, name := range []string{"Num<int>", "Ord<int>", "Hash<int>", "Eq<int>"} {
		if counts[name] != 1 {
			t.Errorf("%s appears %d times, want 1", name, counts[name])
		}
	}
}

func TestFlattenedRefsCyclicInheritance(t *testing.T) {
	tbl := NewSymbolTable("core")
	// Pathological A extends B extends A must terminate.
	tbl.RegisterConcept(&ConceptDef{Name: "A", TypeParams: []string{"x"}, Supers: []ConceptRef{{Name: "B", Args: []typesystem.Type{tVar("x")}}}})
	tbl.RegisterConcept(&ConceptDef{Name: "B", TypeParams: []string{"x"}, Supers: []ConceptRef{{Name: "A", Args: []typesystem.Type{tVar("x")}}}})

	flat := tbl.FlattenedRefs(ConceptRef{Name: "A", Args: []typesystem.Type{tInt()}})
	if len(flat) != 2 {
		t.Fatalf("cyclic flattening returned %v", flat)
	}
}

func TestProvidedConcepts(t *testing.T) {
	tbl := newTestTable(t)
	inst := &InstanceDef{
		Name:     "OrdInt",
		Concepts: []ConceptRef{{Name: "Ord", Args: []typesystem.Type{tInt()}}},
	}
	if err := tbl.RegisterInstance(inst); err != nil {
		t.Fatal(err)
	}

	provided := tbl.ProvidedConcepts(inst)
	got := make([]string, len(provided))
	for i, ref := range provided {
		got[i] = ref.String()
	}
	if len(got) != 2 || got[0] != "Ord<int>" || got[1] != "Eq<int>" {
		t.Errorf("provided = %v, want [Ord<int> Eq<int>]", got)
	}

	pw := &ParamWitness{Name: "eqT", Constraints: []ConceptRef{{Name: "Eq", Args: []typesystem.Type{tVar("T")}}}}
	provided = tbl.ProvidedConcepts(pw)
	if len(provided) != 1 || provided[0].String() != "Eq<T>" {
		t.Errorf("param witness provided = %v, want [Eq<T>]", provided)
	}
}

func TestVisibleInstancesOrderAndScoping(t *testing.T) {
	root := newTestTable(t)
	rootInst := &InstanceDef{
		Name:     "EqInt",
		Concepts: []ConceptRef{{Name: "Eq", Args: []typesystem.Type{tInt()}}},
	}
	if err := root.RegisterInstance(rootInst); err != nil {
		t.Fatal(err)
	}

	inner := NewEnclosedSymbolTable(root)
	pw := &ParamWitness{Name: "eqT", Constraints: []ConceptRef{{Name: "Eq", Args: []typesystem.Type{tVar("T")}}}}
	inner.DeclareRigid("T")
	inner.DeclareParamWitness(pw)
	innerInst := &InstanceDef{
		Name:     "EqBool",
		Concepts: []ConceptRef{{Name: "Eq", Args: []typesystem.Type{tBool()}}},
	}
	if err := inner.RegisterInstance(innerInst); err != nil {
		t.Fatal(err)
	}

	pool := inner.VisibleInstances()
	if len(pool) != 3 {
		t.Fatalf("pool size = %d, want 3", len(pool))
	}
	if pool[0] != WitnessSource(pw) {
		t.Errorf("pool[0] = %v, want the parameter witness first", pool[0])
	}
	// Named instances follow, outer scope first.
	if pool[1].SourceName() != "EqInt" || pool[2].SourceName() != "EqBool" {
		t.Errorf("named order = [%s %s], want [EqInt EqBool]", pool[1].SourceName(), pool[2].SourceName())
	}

	rigid := inner.RigidTypeVars()
	if !rigid.Has("T") || !rigid.Has("eqT") {
		t.Errorf("rigid set %v missing declared parameter variables", rigid)
	}

	if got := inner.DeclaredConstraints("eqT"); len(got) != 1 || got[0].String() != "Eq<T>" {
		t.Errorf("DeclaredConstraints(eqT) = %v", got)
	}
	if got := inner.DeclaredConstraints("missing"); got != nil {
		t.Errorf("DeclaredConstraints(missing) = %v, want nil", got)
	}
}

func TestAccessibilityAcrossPackages(t *testing.T) {
	lib := NewSymbolTable("lib")
	if err := lib.RegisterConcept(&ConceptDef{Name: "Eq", TypeParams: []string{"a"}}); err != nil {
		t.Fatal(err)
	}
	exported := &InstanceDef{
		Name:     "EqInt",
		Exported: true,
		Concepts: []ConceptRef{{Name: "Eq", Args: []typesystem.Type{tInt()}}},
	}
	private := &InstanceDef{
		Name:     "EqBool",
		Concepts: []ConceptRef{{Name: "Eq", Args: []typesystem.Type{tBool()}}},
	}
	if err := lib.RegisterInstance(exported); err != nil {
		t.Fatal(err)
	}
	if err := lib.RegisterInstance(private); err != nil {
		t.Fatal(err)
	}

	app := NewSymbolTable("app")
	app.AddImport(lib)

	pool := app.VisibleInstances()
	if len(pool) != 1 || pool[0].SourceName() != "EqInt" {
		t.Fatalf("imported pool = %v, want only the exported EqInt", pool)
	}

	if app.IsAccessible(private) {
		t.Error("private instance from another package should not be accessible")
	}
	if !app.IsAccessible(exported) {
		t.Error("exported instance should be accessible")
	}
}

func TestMissingRefsAndMethods(t *testing.T) {
	tbl := NewSymbolTable("core")
	tbl.RegisterConcept(&ConceptDef{
		Name:       "Eq",
		TypeParams: []string{"a"},
		Methods: []MethodSig{
			{Name: "equal", Params: []typesystem.Type{tVar("a"), tVar("a")}, Result: tBool()},
			{Name: "notEqual", Params: []typesystem.Type{tVar("a"), tVar("a")}, Result: tBool(), HasDefault: true},
		},
	})
	tbl.RegisterConcept(&ConceptDef{
		Name:       "Ord",
		TypeParams: []string{"a"},
		Supers:     []ConceptRef{{Name: "Equal", Args: []typesystem.Type{tVar("a")}}}, // dangling
	})

	missing := tbl.MissingRefs()
	if len(missing) != 1 || missing[0] != "Equal" {
		t.Errorf("MissingRefs = %v, want [Equal]", missing)
	}

	inst := &InstanceDef{
		Name:     "EqInt",
		Concepts: []ConceptRef{{Name: "Eq", Args: []typesystem.Type{tInt()}}},
		Methods:  map[string]string{},
	}
	if got := tbl.MissingMethods(inst); len(got) != 1 || got[0] != "equal" {
		t.Errorf("MissingMethods = %v, want [equal] (notEqual has a default)", got)
	}

	inst.Methods["equal"] = "eqIntEqual"
	if got := tbl.MissingMethods(inst); len(got) != 0 {
		t.Errorf("MissingMethods after implementing = %v, want none", got)
	}
}
