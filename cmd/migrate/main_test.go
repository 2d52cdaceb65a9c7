package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMigrationFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"002_indexes.sql", "001_barriers.sql", "001_barriers.down.sql",
		"002_indexes.down.sql", "README.md",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	up, down, err := migrationFiles(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantUp := []string{filepath.Join(dir, "001_barriers.sql"), filepath.Join(dir, "002_indexes.sql")}
	wantDown := []string{filepath.Join(dir, "002_indexes.down.sql"), filepath.Join(dir, "001_barriers.down.sql")}
	if diff := cmp.Diff(wantUp, up); diff != "" {
		t.Errorf("up mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantDown, down); diff != "" {
		t.Errorf("down mismatch (-want +got):\n%s", diff)
	}
}

func TestMigrationFiles_Empty(t *testing.T) {
	if _, _, err := migrationFiles(t.TempDir()); err == nil {
		t.Error("expected error for a directory without migrations")
	}
}

func TestMigrationFiles_Repo(t *testing.T) {
	up, down, err := migrationFiles(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(up) != len(down) {
		t.Errorf("every up migration needs a down: %v / %v", up, down)
	}
}
