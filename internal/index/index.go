// Package index persists a workspace's instance pool and query run
// history in a SQLite file, so tooling can answer "what satisfies
// Eq?" without reloading the manifest tree.
package index

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	_ "modernc.org/sqlite"

	"github.com/begriff-lang/begriff/internal/pipeline"
	"github.com/begriff-lang/begriff/internal/symbols"
	"github.com/begriff-lang/begriff/internal/workspace"
)

const schema = `
CREATE TABLE IF NOT EXISTS instances (
	pkg             TEXT NOT NULL,
	name            TEXT NOT NULL,
	concepts        TEXT NOT NULL,
	ordinary_params INTEGER NOT NULL,
	exported        INTEGER NOT NULL,
	PRIMARY KEY (pkg, name)
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	query      TEXT NOT NULL,
	goal       TEXT NOT NULL,
	outcome    TEXT NOT NULL,
	detail     TEXT NOT NULL,
	created_at TEXT NOT NULL
);
`

// Index is an open handle on a workspace index database.
type Index struct {
	db *sql.DB
}

// Open opens or creates the index database at path and ensures the
// schema exists. Use ":memory:" for a throwaway index.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening index %s: %w", path, err)
	}
	// A single connection serializes writers and keeps :memory:
	// databases coherent across statements.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating index schema: %w", err)
	}
	return &Index{db: db}, nil
}

func (ix *Index) Close() error {
	return ix.db.Close()
}

// InstanceRow is one indexed instance.
type InstanceRow struct {
	Pkg            string
	Name           string
	Concepts       []string
	OrdinaryParams int
	Exported       bool
}

// Rebuild replaces the instance table with the workspace's current
// pool and returns the number of rows written.
func (ix *Index) Rebuild(ws *workspace.Workspace) (int, error) {
	tx, err := ix.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM instances`); err != nil {
		return 0, err
	}
	stmt, err := tx.Prepare(`INSERT INTO instances (pkg, name, concepts, ordinary_params, exported) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	defs := ws.Instances()
	for _, def := range defs {
		concepts := strings.Join(lo.Map(def.Concepts, func(r symbols.ConceptRef, _ int) string {
			return r.String()
		}), "; ")
		if _, err := stmt.Exec(def.Pkg, def.Name, concepts, def.OrdinaryParamCount(), def.Exported); err != nil {
			return 0, fmt.Errorf("indexing %s: %w", def.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(defs), nil
}

// Instances returns every indexed instance ordered by package then
// name.
func (ix *Index) Instances() ([]InstanceRow, error) {
	rows, err := ix.db.Query(`SELECT pkg, name, concepts, ordinary_params, exported FROM instances ORDER BY pkg, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InstanceRow
	for rows.Next() {
		var row InstanceRow
		var concepts string
		if err := rows.Scan(&row.Pkg, &row.Name, &concepts, &row.OrdinaryParams, &row.Exported); err != nil {
			return nil, err
		}
		row.Concepts = splitConcepts(concepts)
		out = append(out, row)
	}
	return out, rows.Err()
}

// InstancesFor returns the indexed instances providing the named
// concept.
func (ix *Index) InstancesFor(concept string) ([]InstanceRow, error) {
	all, err := ix.Instances()
	if err != nil {
		return nil, err
	}
	return lo.Filter(all, func(row InstanceRow, _ int) bool {
		return lo.SomeBy(row.Concepts, func(ref string) bool {
			return ref == concept || strings.HasPrefix(ref, concept+"<")
		})
	}), nil
}

func splitConcepts(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "; ")
}

// RunRow is one recorded query run.
type RunRow struct {
	ID        string
	Query     string
	Goal      string
	Outcome   string
	Detail    string
	CreatedAt time.Time
}

// RecordRun appends one query result to the run history and returns
// the run id.
func (ix *Index) RecordRun(res *pipeline.Result) (string, error) {
	id := uuid.NewString()
	_, err := ix.db.Exec(
		`INSERT INTO runs (id, query, goal, outcome, detail, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, res.Query.Name, res.Query.Goal(), res.Outcome(), res.Detail(),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	return id, nil
}

// Runs returns the most recent runs, newest first.
func (ix *Index) Runs(limit int) ([]RunRow, error) {
	rows, err := ix.db.Query(`SELECT id, query, goal, outcome, detail, created_at FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var row RunRow
		var created string
		if err := rows.Scan(&row.ID, &row.Query, &row.Goal, &row.Outcome, &row.Detail, &created); err != nil {
			return nil, err
		}
		if row.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parsing run timestamp %q: %w", created, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
