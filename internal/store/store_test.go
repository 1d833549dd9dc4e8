package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"merchwatch/crawler/internal/database"
	"merchwatch/crawler/internal/models"
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

func record(sourceURL string) *models.GoodsRecord {
	return &models.GoodsRecord{
		Title:         "限定グッズ予約開始",
		Content:       "限定グッズ予約開始",
		Author:        "Comic Natalie",
		Date:          "2026-08-28 10:00:00",
		SourceURL:     sourceURL,
		SourceKind:    models.SourceFeed,
		Category:      "merchandise",
		TrustTier:     models.TrustTierTrusted,
		TotalScore:    70,
		PriorityLabel: models.PriorityHigh,
		CreatedAt:     time.Now(),
	}
}

func TestInsertIfNewDedup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inserted, err := s.InsertIfNew(ctx, record("https://example.com/a"))
	if err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if !inserted {
		t.Error("first insert should report inserted")
	}

	inserted, err = s.InsertIfNew(ctx, record("https://example.com/a"))
	if err != nil {
		t.Fatalf("duplicate insert errored: %v", err)
	}
	if inserted {
		t.Error("duplicate source URL should not insert")
	}

	inserted, err = s.InsertIfNew(ctx, record("https://example.com/b"))
	if err != nil || !inserted {
		t.Fatalf("distinct URL should insert, got (%v, %v)", inserted, err)
	}

	records, err := s.QueryRecords(ctx, store.RecordFilter{})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}
}

func TestQueueLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Enqueue(ctx, "SeriesA"); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if err := s.Enqueue(ctx, "SeriesB"); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	query, ok, err := s.DequeueNextPending(ctx)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if !ok || query != "SeriesA" {
		t.Fatalf("got (%q, %v), want oldest entry SeriesA", query, ok)
	}

	// SeriesA is now processing; it must not be delivered again.
	query, ok, err = s.DequeueNextPending(ctx)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if !ok || query != "SeriesB" {
		t.Fatalf("got (%q, %v), want SeriesB", query, ok)
	}

	if _, ok, _ := s.DequeueNextPending(ctx); ok {
		t.Error("empty queue should report not-found")
	}

	if err := s.MarkQueueDone(ctx, "SeriesA"); err != nil {
		t.Fatalf("mark done failed: %v", err)
	}
}

func TestEnqueueResetsExistingEntry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Enqueue(ctx, "SeriesA"); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if _, _, err := s.DequeueNextPending(ctx); err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if err := s.MarkQueueDone(ctx, "SeriesA"); err != nil {
		t.Fatalf("mark done failed: %v", err)
	}

	// Re-submitting a completed query makes it pending again.
	if err := s.Enqueue(ctx, "SeriesA"); err != nil {
		t.Fatalf("re-enqueue failed: %v", err)
	}
	query, ok, err := s.DequeueNextPending(ctx)
	if err != nil || !ok || query != "SeriesA" {
		t.Fatalf("got (%q, %v, %v), want SeriesA pending again", query, ok, err)
	}
}

func TestTargets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"SeriesB", "SeriesA"} {
		inserted, err := s.InsertTargetIfNew(ctx, models.NewTarget(name))
		if err != nil || !inserted {
			t.Fatalf("insert %q: got (%v, %v)", name, inserted, err)
		}
	}

	inserted, err := s.InsertTargetIfNew(ctx, models.NewTarget("SeriesA"))
	if err != nil {
		t.Fatalf("duplicate target insert errored: %v", err)
	}
	if inserted {
		t.Error("duplicate target name should not insert")
	}

	disabled := models.NewTarget("SeriesC")
	disabled.Enabled = false
	if _, err := s.InsertTargetIfNew(ctx, disabled); err != nil {
		t.Fatalf("insert disabled target: %v", err)
	}

	names, err := s.ListEnabledTargets(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(names) != 2 || names[0] != "SeriesA" || names[1] != "SeriesB" {
		t.Errorf("got %v, want enabled targets in name order", names)
	}

	name, ok, err := s.RandomEnabledTarget(ctx)
	if err != nil || !ok {
		t.Fatalf("random target: got (%q, %v, %v)", name, ok, err)
	}
	if name == "SeriesC" {
		t.Error("disabled target must never be sampled")
	}
}

func TestRandomEnabledTargetEmpty(t *testing.T) {
	s := newTestStore(t)

	if _, ok, err := s.RandomEnabledTarget(context.Background()); ok || err != nil {
		t.Fatalf("empty targets table: got (ok=%v, err=%v), want not-found", ok, err)
	}
}

func TestQueryRecordsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := record("https://example.com/a")
	a.Category = "lottery"
	b := record("https://example.com/b")
	b.Category = "merchandise"
	for _, r := range []*models.GoodsRecord{a, b} {
		if _, err := s.InsertIfNew(ctx, r); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	records, err := s.QueryRecords(ctx, store.RecordFilter{Category: "lottery"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 1 || records[0].SourceURL != "https://example.com/a" {
		t.Errorf("category filter returned %+v", records)
	}

	records, err = s.QueryRecords(ctx, store.RecordFilter{Source: models.SourceSocial})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("source filter should match nothing, got %d", len(records))
	}
}

func TestQueryRecordsOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := record("https://example.com/old")
	older.Date = "2026-08-01 09:00:00"
	newer := record("https://example.com/new")
	newer.Date = "2026-08-28 09:00:00"
	for _, r := range []*models.GoodsRecord{older, newer} {
		if _, err := s.InsertIfNew(ctx, r); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	records, err := s.QueryRecords(ctx, store.RecordFilter{})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 2 || records[0].SourceURL != "https://example.com/new" {
		t.Errorf("expected newest date first, got %+v", records)
	}
}

func TestRecordsNeedingImages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	missing := record("https://example.com/missing")
	missing.ImageURL = ""
	placeholder := record("https://example.com/placeholder")
	placeholder.ImageURL = "https://encrypted-tbn0.gstatic.com/images?q=x"
	good := record("https://example.com/good")
	good.ImageURL = "https://cdn.example.com/goods.jpg"
	for _, r := range []*models.GoodsRecord{missing, placeholder, good} {
		if _, err := s.InsertIfNew(ctx, r); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	records, err := s.RecordsNeedingImages(ctx, []string{"gstatic.com", "news.google.com"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want the missing and placeholder ones", len(records))
	}

	if err := s.UpdateImageURL(ctx, records[0].ID, "https://cdn.example.com/fixed.jpg"); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	records, err = s.RecordsNeedingImages(ctx, []string{"gstatic.com"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("after repair, got %d records, want 1", len(records))
	}
}
