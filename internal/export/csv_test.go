package export_test

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"merchwatch/crawler/internal/export"
	"merchwatch/crawler/internal/models"
)

func TestWrite(t *testing.T) {
	records := []models.GoodsRecord{
		{
			ID:            1,
			Title:         "限定グッズ, 予約開始", // comma forces quoting
			Date:          "2026-08-28 10:00:00",
			SourceURL:     "https://example.com/a",
			SourceKind:    models.SourceFeed,
			Category:      "merchandise",
			TrustTier:     2,
			TotalScore:    70,
			PriorityLabel: models.PriorityHigh,
			CreatedAt:     time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, records); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("exported CSV does not parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header plus one record", len(rows))
	}
	if rows[0][0] != "id" || rows[0][len(rows[0])-1] != "created_at" {
		t.Errorf("unexpected header: %v", rows[0])
	}

	row := rows[1]
	if row[1] != "限定グッズ, 予約開始" {
		t.Errorf("title = %q, want quoted original", row[1])
	}
	if row[12] != "70" || row[13] != "high" {
		t.Errorf("score columns wrong: total=%q priority=%q", row[12], row[13])
	}
	if row[15] != "2026-08-28T10:30:00Z" {
		t.Errorf("created_at = %q, want RFC3339", row[15])
	}
}
