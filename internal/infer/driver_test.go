package infer

import (
	"strings"
	"testing"

	"github.com/begriff-lang/begriff/internal/symbols"
	"github.com/begriff-lang/begriff/internal/typesystem"
)

// collTable sets up Eq with two instances plus a collection concept
// whose instance determines the element type.
func collTable(t *testing.T) *symbols.SymbolTable {
	t.Helper()
	tbl := symbols.NewSymbolTable("main")
	registerConcepts(t, tbl,
		&symbols.ConceptDef{Name: "Eq", TypeParams: []string{"t"}},
		&symbols.ConceptDef{Name: "Coll", TypeParams: []string{"c", "e"}},
	)
	registerInstances(t, tbl,
		&symbols.InstanceDef{Name: "EqInt", Concepts: []symbols.ConceptRef{ref("Eq", tInt())}},
		&symbols.InstanceDef{Name: "EqBool", Concepts: []symbols.ConceptRef{ref("Eq", tBool())}},
		&symbols.InstanceDef{
			Name:     "ListColl",
			Concepts: []symbols.ConceptRef{ref("Coll", typesystem.TNamed{Name: "List"}, tInt())},
		},
	)
	return tbl
}

func TestInferManyFixpoint(t *testing.T) {
	scope := CollectScope(collTable(t))

	// eqE alone is ambiguous until the collection witness pins E to
	// int; the driver needs a second pass over the stalled index.
	params := []symbols.TypeParam{
		witnessParam("eqE", ref("Eq", tVar("E"))),
		witnessParam("collW", ref("Coll", typesystem.TNamed{Name: "List"}, tVar("E"))),
		{Name: "E", Role: symbols.RoleAssoc},
	}
	dest := make([]typesystem.Type, len(params))

	subst, err := TryInferMany([]int{0, 1, 2}, params, dest, nil, scope)
	if err != nil {
		t.Fatalf("inference failed: %v", err)
	}
	if got := dest[0].String(); got != "EqInt" {
		t.Errorf("expected eqE resolved to EqInt, got %s", got)
	}
	if got := dest[1].String(); got != "ListColl" {
		t.Errorf("expected collW resolved to ListColl, got %s", got)
	}
	if got := dest[2].String(); got != "int" {
		t.Errorf("expected associated E resolved to int, got %s", got)
	}
	if got, ok := subst["E"]; !ok || got.String() != "int" {
		t.Errorf("expected substitution to bind E to int, got %v", subst)
	}
}

func TestInferManyZeroProgressFails(t *testing.T) {
	scope := CollectScope(collTable(t))

	// With nothing to pin E, Eq<E> stays ambiguous between EqInt and
	// EqBool and the driver must stop after one fruitless pass.
	params := []symbols.TypeParam{
		witnessParam("eqE", ref("Eq", tVar("E"))),
	}
	dest := make([]typesystem.Type, len(params))

	_, err := TryInferMany([]int{0}, params, dest, nil, scope)
	if err == nil {
		t.Fatal("expected zero-progress failure")
	}
	if kind := failureKind(t, err); kind != AmbiguousInstance {
		t.Errorf("expected AmbiguousInstance, got %s", kind)
	}
}

func TestInferManyConflictingFixed(t *testing.T) {
	scope := CollectScope(collTable(t))

	params := []symbols.TypeParam{
		witnessParam("eq", ref("Eq", tInt())),
	}
	dest := make([]typesystem.Type, len(params))
	fixed := typesystem.Subst{"eq": typesystem.TNamed{Name: "EqBool"}}

	_, err := TryInferMany([]int{0}, params, dest, fixed, scope)
	if err == nil {
		t.Fatal("expected conflicting binding to fail")
	}
	if kind := failureKind(t, err); kind != InconsistentUnification {
		t.Errorf("expected InconsistentUnification, got %s", kind)
	}
}

func TestInferManyAssocUndetermined(t *testing.T) {
	scope := CollectScope(collTable(t))

	// The witness resolves, but nothing it fixes ever mentions A.
	params := []symbols.TypeParam{
		witnessParam("eq", ref("Eq", tInt())),
		{Name: "A", Role: symbols.RoleAssoc},
	}
	dest := make([]typesystem.Type, len(params))

	_, err := TryInferMany([]int{0, 1}, params, dest, nil, scope)
	if err == nil {
		t.Fatal("expected undetermined associated type to fail")
	}
	if kind := failureKind(t, err); kind != UnsatisfiableDependency {
		t.Errorf("expected UnsatisfiableDependency, got %s", kind)
	}
	if !strings.Contains(err.Error(), "associated type") {
		t.Errorf("expected associated type detail, got %v", err)
	}
}

func TestInferManyAssocFromFixed(t *testing.T) {
	scope := CollectScope(collTable(t))

	params := []symbols.TypeParam{
		{Name: "A", Role: symbols.RoleAssoc},
	}
	dest := make([]typesystem.Type, len(params))
	fixed := typesystem.Subst{"A": tInt()}

	if _, err := TryInferMany([]int{0}, params, dest, fixed, scope); err != nil {
		t.Fatalf("inference failed: %v", err)
	}
	if got := dest[0].String(); got != "int" {
		t.Errorf("expected A resolved from fixed bindings, got %s", got)
	}
}

func TestInferRejectsOrdinaryParameter(t *testing.T) {
	scope := CollectScope(collTable(t))
	ordinary := symbols.TypeParam{Name: "T", Role: symbols.RoleOrdinary}

	if _, err := TryInferWitness(ordinary, nil, scope); err == nil {
		t.Fatal("expected ordinary parameter to be rejected")
	} else if kind := failureKind(t, err); kind != UnsupportedParameter {
		t.Errorf("expected UnsupportedParameter, got %s", kind)
	}

	dest := make([]typesystem.Type, 1)
	if _, err := TryInferMany([]int{0}, []symbols.TypeParam{ordinary}, dest, nil, scope); err == nil {
		t.Fatal("expected ordinary parameter to be rejected")
	} else if kind := failureKind(t, err); kind != UnsupportedParameter {
		t.Errorf("expected UnsupportedParameter, got %s", kind)
	}
}
