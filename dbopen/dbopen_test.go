package dbopen

import (
	"testing"

	_ "modernc.org/sqlite"
)

func TestOpen_Pragmas(t *testing.T) {
	// WHAT: Open applies foreign_keys and busy_timeout pragmas.
	// WHY: Every store in the service relies on these being set.
	db := OpenMemory(t)

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys: got %d, want 1", fk)
	}

	var busy int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&busy); err != nil {
		t.Fatalf("query busy_timeout: %v", err)
	}
	if busy != 10_000 {
		t.Errorf("busy_timeout: got %d, want 10000", busy)
	}
}

func TestOpen_WithSchema(t *testing.T) {
	// WHAT: Inline schema queued with WithSchema is executed on open.
	db := OpenMemory(t, WithSchema(`CREATE TABLE things (id INTEGER PRIMARY KEY, name TEXT)`))

	if _, err := db.Exec(`INSERT INTO things (name) VALUES ('a')`); err != nil {
		t.Fatalf("insert into schema table: %v", err)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM things`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("count: got %d, want 1", n)
	}
}
