package repair_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"merchwatch/crawler/internal/database"
	"merchwatch/crawler/internal/models"
	"merchwatch/crawler/internal/repair"
	"merchwatch/crawler/internal/resolver"
	"merchwatch/crawler/internal/rules"
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

func insertRecord(t *testing.T, s *store.Store, sourceURL, imageURL string) {
	t.Helper()
	rec := &models.GoodsRecord{
		Title:      "限定グッズ",
		Content:    "限定グッズ",
		SourceURL:  sourceURL,
		SourceKind: models.SourceFeed,
		ImageURL:   imageURL,
		CreatedAt:  time.Now(),
	}
	if _, err := s.InsertIfNew(context.Background(), rec); err != nil {
		t.Fatalf("insert record: %v", err)
	}
}

func TestRunBackfillsMissingImages(t *testing.T) {
	article := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/with-image" {
			fmt.Fprint(w, `<html><head><meta property="og:image" content="https://cdn.example.com/fixed.jpg"/></head></html>`)
			return
		}
		fmt.Fprint(w, `<html><body>no image here</body></html>`)
	}))
	defer article.Close()

	s := newTestStore(t)
	r := rules.Default()

	insertRecord(t, s, article.URL+"/with-image", "")
	insertRecord(t, s, article.URL+"/without-image", "https://encrypted-tbn0.gstatic.com/x.png")
	insertRecord(t, s, "https://example.com/fine", "https://cdn.example.com/already.jpg")

	rep := repair.New(s, resolver.New(r), r)
	updated, err := rep.Run(context.Background())
	if err != nil {
		t.Fatalf("repair run failed: %v", err)
	}
	if updated != 1 {
		t.Errorf("updated = %d, want 1", updated)
	}

	records, err := s.QueryRecords(context.Background(), store.RecordFilter{})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	for _, rec := range records {
		switch rec.SourceURL {
		case article.URL + "/with-image":
			if rec.ImageURL != "https://cdn.example.com/fixed.jpg" {
				t.Errorf("image not backfilled, got %q", rec.ImageURL)
			}
		case article.URL + "/without-image":
			// Pages with no usable image keep the placeholder for the
			// next pass.
			if rec.ImageURL == "https://cdn.example.com/fixed.jpg" {
				t.Errorf("unrelated record was updated: %q", rec.ImageURL)
			}
		case "https://example.com/fine":
			if rec.ImageURL != "https://cdn.example.com/already.jpg" {
				t.Errorf("healthy record was touched, got %q", rec.ImageURL)
			}
		}
	}
}

func TestRunEmptyStore(t *testing.T) {
	r := rules.Default()
	rep := repair.New(newTestStore(t), resolver.New(r), r)

	updated, err := rep.Run(context.Background())
	if err != nil {
		t.Fatalf("repair run failed: %v", err)
	}
	if updated != 0 {
		t.Errorf("updated = %d, want 0", updated)
	}
}
