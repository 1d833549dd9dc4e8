package importer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"merchwatch/crawler/internal/database"
	"merchwatch/crawler/internal/importer"
	"merchwatch/crawler/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	db, err := database.NewDB(database.NewConfig(filepath.Join(t.TempDir(), "goods.db")))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return store.New(db)
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "targets.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write CSV: %v", err)
	}
	return path
}

func TestImportTargets(t *testing.T) {
	s := newTestStore(t)
	imp := importer.NewImporter(s)

	path := writeCSV(t, `name,name_en,genre,comments
鬼滅の刃,Demon Slayer,shonen,
SPY×FAMILY,,shonen,weekly check

ExampleSeries
`)
	if err := imp.ImportTargets(context.Background(), path); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	names, err := s.ListEnabledTargets(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(names) != 3 {
		t.Fatalf("got %d targets, want 3 (header and blank rows skipped)", len(names))
	}
}

func TestImportTargetsIdempotent(t *testing.T) {
	s := newTestStore(t)
	imp := importer.NewImporter(s)

	path := writeCSV(t, "name\nExampleSeries\n")
	for i := 0; i < 2; i++ {
		if err := imp.ImportTargets(context.Background(), path); err != nil {
			t.Fatalf("import pass %d failed: %v", i+1, err)
		}
	}

	names, err := s.ListEnabledTargets(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(names) != 1 {
		t.Errorf("got %d targets after re-import, want 1", len(names))
	}
}

func TestImportTargetsMissingFile(t *testing.T) {
	imp := importer.NewImporter(newTestStore(t))

	err := imp.ImportTargets(context.Background(), filepath.Join(t.TempDir(), "absent.csv"))
	if err == nil {
		t.Fatal("expected error for missing CSV")
	}
}
