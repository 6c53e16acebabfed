package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func TestMigrateRoundTripCompatibility(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migrate-roundtrip.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("first migrate up failed: %v", err)
	}

	if v, err := SchemaVersion(db); err != nil || v != 2 {
		t.Fatalf("expected schema version 2, got %d (%v)", v, err)
	}

	if err := MigrateDown(db); err != nil {
		t.Fatalf("migrate down failed: %v", err)
	}
	if v, err := SchemaVersion(db); err != nil || v != 0 {
		t.Fatalf("expected schema version 0 after down, got %d (%v)", v, err)
	}
	var tables int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('todos', 'categories')`).Scan(&tables); err != nil {
		t.Fatalf("count tables: %v", err)
	}
	if tables != 0 {
		t.Fatalf("expected todo tables dropped, %d remain", tables)
	}

	if err := MigrateUp(db); err != nil {
		t.Fatalf("second migrate up failed: %v", err)
	}

	// Up is idempotent.
	if err := MigrateUp(db); err != nil {
		t.Fatalf("repeated migrate up failed: %v", err)
	}

	repo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}

	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	if err := repo.CreateTodo(context.Background(), Todo{
		ID:          "todo-rt-1",
		Title:       "Roundtrip todo",
		Description: "migration compatibility",
		Priority:    "MEDIUM",
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		t.Fatalf("insert after roundtrip failed: %v", err)
	}

	got, err := repo.GetTodo(context.Background(), "todo-rt-1")
	if err != nil {
		t.Fatalf("get after roundtrip failed: %v", err)
	}
	if got.Title != "Roundtrip todo" {
		t.Fatalf("unexpected title after roundtrip: %q", got.Title)
	}
}

func TestMigrationOrder(t *testing.T) {
	ups, err := loadMigrations(".up.sql")
	if err != nil {
		t.Fatalf("load up migrations: %v", err)
	}
	downs, err := loadMigrations(".down.sql")
	if err != nil {
		t.Fatalf("load down migrations: %v", err)
	}
	if len(ups) != 2 || ups[0].Version != 1 || ups[1].Version != 2 {
		t.Fatalf("unexpected up migrations: %+v", ups)
	}
	if ups[1].Name != "categories" {
		t.Fatalf("expected name parsed from file, got %q", ups[1].Name)
	}
	if len(downs) != len(ups) {
		t.Fatalf("every up migration needs a down: %d vs %d", len(ups), len(downs))
	}
}

func TestMigrateUpSkipsAppliedVersions(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "skip.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Fatalf("second migrate up: %v", err)
	}
	var rows int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&rows); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if rows != 2 {
		t.Fatalf("expected one row per migration, got %d", rows)
	}
}

func TestSchemaRejectsInvalidPriority(t *testing.T) {
	repo := setupRepo(t)
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	err := repo.CreateTodo(context.Background(), Todo{ID: "bad", Title: "bad", Priority: "urgent", CreatedAt: now, UpdatedAt: now})
	if err == nil {
		t.Fatal("expected check constraint failure for unknown priority")
	}
}
