package models

import (
	"database/sql"
	"time"
)

// Target is a tracked series/franchise the crawler searches for.
// Rows come from user searches or bulk CSV import; the pipeline only
// ever reads them.
type Target struct {
	ID        int64          `db:"id"`
	Name      string         `db:"name"`
	NameEn    sql.NullString `db:"name_en"`
	Genre     sql.NullString `db:"genre"`
	Comments  sql.NullString `db:"comments"`
	Enabled   bool           `db:"enabled"`
	CreatedAt time.Time      `db:"created_at"`
}

// NewTarget creates an enabled Target with default values
func NewTarget(name string) *Target {
	return &Target{
		Name:      name,
		Enabled:   true,
		CreatedAt: time.Now(),
	}
}
