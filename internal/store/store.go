// Package store exposes the persistence operations the pipeline needs:
// insert-if-new, queue dequeue/complete, target listing, and filtered
// record reads. Everything else about the database is internal/database's
// business.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"merchwatch/crawler/internal/database"
	"merchwatch/crawler/internal/models"
)

// Store wraps the database with pipeline-level operations.
type Store struct {
	db *database.DB
}

// New creates a Store over an open database connection.
func New(db *database.DB) *Store {
	return &Store{db: db}
}

// InsertIfNew persists a scored record unless one with the same source
// URL already exists. The duplicate case returns (false, nil): it is an
// expected outcome, not an error.
func (s *Store) InsertIfNew(ctx context.Context, rec *models.GoodsRecord) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO goods_records (
			title, content, author, date, source_url, source_kind,
			category, trust_tier, freshness_score, rarity_score,
			reliability_score, total_score, priority_label, image_url, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_url) DO NOTHING`,
		rec.Title, rec.Content, rec.Author, rec.Date, rec.SourceURL, rec.SourceKind,
		rec.Category, rec.TrustTier, rec.FreshnessScore, rec.RarityScore,
		rec.ReliabilityScore, rec.TotalScore, rec.PriorityLabel, rec.ImageURL, rec.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert record %s: %w", rec.SourceURL, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

// Enqueue adds a priority search request. Re-submitting an existing
// query resets it to pending instead of erroring, so a user can always
// refresh a search.
func (s *Store) Enqueue(ctx context.Context, query string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO search_queue (query, status) VALUES (?, ?)
		ON CONFLICT(query) DO UPDATE SET status = ?, created_at = CURRENT_TIMESTAMP`,
		query, models.QueueStatusPending, models.QueueStatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue %q: %w", query, err)
	}
	return nil
}

// DequeueNextPending atomically claims the oldest pending queue entry,
// marking it processing. The second return is false when the queue has
// no pending entries.
func (s *Store) DequeueNextPending(ctx context.Context) (string, bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to begin dequeue transaction: %w", err)
	}
	defer tx.Rollback()

	var entry models.QueueEntry
	err = tx.GetContext(ctx, &entry, `
		SELECT id, query, status, created_at FROM search_queue
		WHERE status = ? ORDER BY created_at ASC, id ASC LIMIT 1`,
		models.QueueStatusPending,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read queue: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE search_queue SET status = ? WHERE id = ?",
		models.QueueStatusProcessing, entry.ID,
	); err != nil {
		return "", false, fmt.Errorf("failed to mark entry processing: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("failed to commit dequeue: %w", err)
	}
	return entry.Query, true, nil
}

// MarkQueueDone records that a queue-sourced cycle finished, however
// many items it found.
func (s *Store) MarkQueueDone(ctx context.Context, query string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE search_queue SET status = ? WHERE query = ?",
		models.QueueStatusCompleted, query,
	)
	if err != nil {
		return fmt.Errorf("failed to complete queue entry %q: %w", query, err)
	}
	return nil
}

// ListEnabledTargets returns the names of all enabled targets.
func (s *Store) ListEnabledTargets(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.SelectContext(ctx, &names,
		"SELECT name FROM targets WHERE enabled = 1 ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	return names, nil
}

// RandomEnabledTarget samples one enabled target uniformly for the
// round-robin-by-chance catalog cycle. The second return is false when
// no targets are enabled.
func (s *Store) RandomEnabledTarget(ctx context.Context) (string, bool, error) {
	var name string
	err := s.db.GetContext(ctx, &name,
		"SELECT name FROM targets WHERE enabled = 1 ORDER BY RANDOM() LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to pick target: %w", err)
	}
	return name, true, nil
}

// InsertTargetIfNew registers a target, ignoring duplicates by name.
func (s *Store) InsertTargetIfNew(ctx context.Context, t *models.Target) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO targets (name, name_en, genre, comments, enabled)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING`,
		t.Name, t.NameEn, t.Genre, t.Comments, t.Enabled,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert target %q: %w", t.Name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

// RecordFilter narrows QueryRecords output; zero-value fields are not
// applied.
type RecordFilter struct {
	Title    string
	Source   string
	Category string
}

// QueryRecords returns stored records matching the filter, newest feed
// date first, insertion time as tiebreaker.
func (s *Store) QueryRecords(ctx context.Context, filter RecordFilter) ([]models.GoodsRecord, error) {
	builder := sq.Select("*").
		From("goods_records").
		OrderBy("date DESC", "created_at DESC")

	if filter.Title != "" {
		builder = builder.Where(sq.Eq{"title": filter.Title})
	}
	if filter.Source != "" {
		builder = builder.Where(sq.Eq{"source_kind": filter.Source})
	}
	if filter.Category != "" {
		builder = builder.Where(sq.Eq{"category": filter.Category})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build records query: %w", err)
	}

	var records []models.GoodsRecord
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	return records, nil
}

// RecordsNeedingImages returns records whose image is missing or points
// at a known placeholder, for the repair-images pass.
func (s *Store) RecordsNeedingImages(ctx context.Context, placeholderTerms []string) ([]models.GoodsRecord, error) {
	builder := sq.Select("*").From("goods_records")

	or := sq.Or{sq.Eq{"image_url": ""}}
	for _, term := range placeholderTerms {
		or = append(or, sq.Like{"image_url": "%" + term + "%"})
	}
	builder = builder.Where(or).OrderBy("id ASC")

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build repair query: %w", err)
	}

	var records []models.GoodsRecord
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query records needing images: %w", err)
	}
	return records, nil
}

// UpdateImageURL backfills the image for one record. This is the only
// mutation allowed on a stored record.
func (s *Store) UpdateImageURL(ctx context.Context, id int64, imageURL string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE goods_records SET image_url = ? WHERE id = ?", imageURL, id)
	if err != nil {
		return fmt.Errorf("failed to update image for record %d: %w", id, err)
	}
	return nil
}
