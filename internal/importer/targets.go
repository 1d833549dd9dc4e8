// Package importer bulk-loads tracked targets from a CSV file into the
// targets table. Import is idempotent: known names are skipped.
package importer

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"merchwatch/crawler/internal/models"
	"merchwatch/crawler/internal/store"
)

// Importer handles the target import process
type Importer struct {
	store *store.Store
}

// NewImporter creates a new target importer
func NewImporter(s *store.Store) *Importer {
	return &Importer{store: s}
}

// ImportTargets imports targets from a CSV file with columns
// name,name_en,genre,comments. A header row is detected and skipped.
func (i *Importer) ImportTargets(ctx context.Context, csvPath string) error {
	log.Info().Str("csv", csvPath).Msg("Starting target import")

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	imported, skipped, err := i.parseAndImport(ctx, f)
	if err != nil {
		return fmt.Errorf("failed to import targets: %w", err)
	}

	log.Info().
		Int("imported", imported).
		Int("skipped", skipped).
		Msg("Import completed successfully")
	return nil
}

func (i *Importer) parseAndImport(ctx context.Context, r io.Reader) (imported, skipped int, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // trailing columns are optional

	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to read CSV record: %w", err)
		}
		line++

		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			continue
		}
		name := strings.TrimSpace(record[0])
		if line == 1 && strings.EqualFold(name, "name") {
			continue // header row
		}

		target := models.NewTarget(name)
		if len(record) > 1 && record[1] != "" {
			target.NameEn = sql.NullString{String: strings.TrimSpace(record[1]), Valid: true}
		}
		if len(record) > 2 && record[2] != "" {
			target.Genre = sql.NullString{String: strings.TrimSpace(record[2]), Valid: true}
		}
		if len(record) > 3 && record[3] != "" {
			target.Comments = sql.NullString{String: strings.TrimSpace(record[3]), Valid: true}
		}

		inserted, err := i.store.InsertTargetIfNew(ctx, target)
		if err != nil {
			return imported, skipped, err
		}
		if inserted {
			imported++
		} else {
			skipped++
			log.Debug().Str("name", name).Msg("Target already registered, skipping")
		}
	}

	return imported, skipped, nil
}
