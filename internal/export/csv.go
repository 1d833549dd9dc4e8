// Package export dumps stored goods records as CSV for offline
// analysis.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"merchwatch/crawler/internal/models"
	"merchwatch/crawler/internal/store"
)

// ToFile writes every stored record to a CSV file at path.
func ToFile(ctx context.Context, s *store.Store, path string) error {
	records, err := s.QueryRecords(ctx, store.RecordFilter{})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		log.Info().Msg("No records to export")
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	if err := Write(f, records); err != nil {
		return err
	}

	log.Info().Str("path", path).Int("records", len(records)).Msg("Exported records as CSV")
	return nil
}

// Write streams records as CSV rows with a header.
func Write(w io.Writer, records []models.GoodsRecord) error {
	csvWriter := csv.NewWriter(w)

	header := []string{
		"id", "title", "content", "author", "date", "source_url", "source_kind",
		"category", "trust_tier", "freshness_score", "rarity_score",
		"reliability_score", "total_score", "priority_label", "image_url", "created_at",
	}
	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, rec := range records {
		row := []string{
			strconv.FormatInt(rec.ID, 10),
			rec.Title,
			rec.Content,
			rec.Author,
			rec.Date,
			rec.SourceURL,
			rec.SourceKind,
			rec.Category,
			strconv.Itoa(rec.TrustTier),
			strconv.Itoa(rec.FreshnessScore),
			strconv.Itoa(rec.RarityScore),
			strconv.Itoa(rec.ReliabilityScore),
			strconv.Itoa(rec.TotalScore),
			rec.PriorityLabel,
			rec.ImageURL,
			rec.CreatedAt.Format(time.RFC3339),
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV data: %w", err)
	}
	return nil
}
