package infer

import (
	"testing"

	"github.com/begriff-lang/begriff/internal/symbols"
	"github.com/begriff-lang/begriff/internal/typesystem"
)

func TestPartitionBuckets(t *testing.T) {
	params := []symbols.TypeParam{
		{Name: "a", Role: symbols.RoleOrdinary},
		witnessParam("w", ref("Eq", tVar("a"))),
		{Name: "A", Role: symbols.RoleAssoc},
	}
	args := []typesystem.Type{tInt(), nil, tVar("A")}

	part, err := PartitionParams(params, args, nil, false)
	if err != nil {
		t.Fatalf("partitioning failed: %v", err)
	}
	if got, ok := part.Fixed["a"]; !ok || got.String() != "int" {
		t.Errorf("expected a fixed to int, got %v", part.Fixed)
	}
	if len(part.WitnessIdx) != 1 || part.WitnessIdx[0] != 1 {
		t.Errorf("expected witness bucket [1], got %v", part.WitnessIdx)
	}
	if len(part.AssocIdx) != 1 || part.AssocIdx[0] != 2 {
		t.Errorf("expected associated bucket [2], got %v", part.AssocIdx)
	}
}

func TestPartitionRejectsOpenOrdinary(t *testing.T) {
	params := []symbols.TypeParam{{Name: "a", Role: symbols.RoleOrdinary}}
	args := []typesystem.Type{nil}

	_, err := PartitionParams(params, args, nil, false)
	if err == nil {
		t.Fatal("expected open ordinary parameter to fail")
	}
	if kind := failureKind(t, err); kind != UnsupportedParameter {
		t.Errorf("expected UnsupportedParameter, got %s", kind)
	}
}

func TestPartitionNestedRigidPolicy(t *testing.T) {
	params := []symbols.TypeParam{{Name: "T", Role: symbols.RoleOrdinary}}
	args := []typesystem.Type{tVar("T")}
	rigid := typesystem.NewVarSet("T")

	// At the top level a self-referential argument counts as open.
	if _, err := PartitionParams(params, args, rigid, false); err == nil {
		t.Fatal("expected self-referential argument to count as open")
	}

	// Nested calls must not re-solve an enclosing declaration's own
	// variable.
	part, err := PartitionParams(params, args, rigid, true)
	if err != nil {
		t.Fatalf("partitioning failed: %v", err)
	}
	if len(part.WitnessIdx) != 0 || len(part.AssocIdx) != 0 {
		t.Errorf("expected no pending work, got %v / %v", part.WitnessIdx, part.AssocIdx)
	}
	if len(part.Fixed) != 0 {
		t.Errorf("expected identity binding to be dropped, got %v", part.Fixed)
	}

	// Without rigidity the nested policy changes nothing.
	if _, err := PartitionParams(params, args, nil, true); err == nil {
		t.Fatal("expected non-rigid self-referential argument to stay open")
	}
}
