package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/begriff-lang/begriff/internal/check"
	"github.com/begriff-lang/begriff/internal/workspace"
)

const fixtureManifest = `package: demo
concepts:
  - name: Eq
    params: [a]
  - name: Show
    params: [a]
instances:
  - name: EqInt
    for: ["Eq<int>"]
  - name: EqArray
    params:
      - name: a
      - name: elemEq
        witness: ["Eq<a>"]
    for: ["Eq<a[]>"]
  - name: ShowInt
    internal: true
    for: ["Show<int>"]
queries:
  - name: eq-int
    witness: ["Eq<int>"]
  - name: show-int
    witness: ["Show<int>"]
`

func loadFixture(t *testing.T) *workspace.Workspace {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "begriff.yaml"), []byte(fixtureManifest), 0o644); err != nil {
		t.Fatal(err)
	}
	ws, err := workspace.Load(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	return ws
}

func openMemory(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestIndex_RebuildAndInstances(t *testing.T) {
	ws := loadFixture(t)
	ix := openMemory(t)

	n, err := ix.Rebuild(ws)
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if n != 3 {
		t.Errorf("indexed %d instances, want 3", n)
	}

	rows, err := ix.Instances()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0].Name != "EqArray" || rows[1].Name != "EqInt" || rows[2].Name != "ShowInt" {
		t.Errorf("unexpected order: %s, %s, %s", rows[0].Name, rows[1].Name, rows[2].Name)
	}

	arr := rows[0]
	if len(arr.Concepts) != 1 || arr.Concepts[0] != "Eq<a[]>" {
		t.Errorf("EqArray concepts = %v", arr.Concepts)
	}
	if arr.OrdinaryParams != 1 {
		t.Errorf("EqArray ordinary params = %d, want 1", arr.OrdinaryParams)
	}
	if !arr.Exported {
		t.Error("EqArray should be exported")
	}
	if rows[2].Exported {
		t.Error("ShowInt is internal")
	}
}

func TestIndex_InstancesFor(t *testing.T) {
	ws := loadFixture(t)
	ix := openMemory(t)
	if _, err := ix.Rebuild(ws); err != nil {
		t.Fatal(err)
	}

	eq, err := ix.InstancesFor("Eq")
	if err != nil {
		t.Fatal(err)
	}
	if len(eq) != 2 {
		t.Errorf("Eq providers = %d, want 2", len(eq))
	}
	show, err := ix.InstancesFor("Show")
	if err != nil {
		t.Fatal(err)
	}
	if len(show) != 1 || show[0].Name != "ShowInt" {
		t.Errorf("Show providers = %v", show)
	}
	ord, err := ix.InstancesFor("Ord")
	if err != nil {
		t.Fatal(err)
	}
	if len(ord) != 0 {
		t.Errorf("Ord providers = %v", ord)
	}
}

func TestIndex_RebuildReplaces(t *testing.T) {
	ws := loadFixture(t)
	ix := openMemory(t)

	for i := 0; i < 2; i++ {
		if _, err := ix.Rebuild(ws); err != nil {
			t.Fatal(err)
		}
	}
	rows, err := ix.Instances()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Errorf("got %d rows after double rebuild, want 3", len(rows))
	}
}

func TestIndex_RecordRuns(t *testing.T) {
	ws := loadFixture(t)
	ix := openMemory(t)

	queries := ws.AllQueries()
	if len(queries) != 2 {
		t.Fatalf("got %d queries, want 2", len(queries))
	}
	ids := make(map[string]bool)
	for _, q := range queries {
		id, err := ix.RecordRun(check.Resolve(q))
		if err != nil {
			t.Fatalf("RecordRun failed: %v", err)
		}
		ids[id] = true
	}
	if len(ids) != 2 {
		t.Errorf("run ids are not unique: %v", ids)
	}

	runs, err := ix.Runs(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	seen := make(map[string]string)
	for _, run := range runs {
		seen[run.Query] = run.Outcome
		if !ids[run.ID] {
			t.Errorf("unknown run id %s", run.ID)
		}
		if run.CreatedAt.IsZero() {
			t.Error("run timestamp not set")
		}
	}
	if seen["eq-int"] != "ok" || seen["show-int"] != "ok" {
		t.Errorf("unexpected outcomes: %v", seen)
	}

	limited, err := ix.Runs(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limit ignored: got %d runs", len(limited))
	}
}
