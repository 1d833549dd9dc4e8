package models

import "time"

// Source kinds for a candidate item. The feed pipeline only produces
// SourceFeed; SourceSocial exists for a second collector that shares
// the same filter/scorer path.
const (
	SourceFeed   = "feed"
	SourceSocial = "social"
)

// Trust tiers assigned by the filter.
const (
	TrustTierTrusted   = 2
	TrustTierUntrusted = 1
)

// Priority labels derived from the total score.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

// CandidateItem is one normalized feed entry, produced by the fetcher
// before any filtering. Date is the best-effort parsed publication
// timestamp in "2006-01-02 15:04:05" form; empty means unknown.
type CandidateItem struct {
	Title      string
	Content    string
	Author     string
	Date       string
	SourceURL  string
	SourceKind string
	ImageURL   string
}

// FilteredItem is a CandidateItem that survived the filter, with the
// category and trust tier the filter assigned.
type FilteredItem struct {
	CandidateItem
	Category  string
	TrustTier int
}

// GoodsRecord is a fully scored item as persisted in the goods table.
// Records are immutable after insert except ImageURL, which the
// repair-images pass may backfill.
type GoodsRecord struct {
	ID               int64     `db:"id"`
	Title            string    `db:"title"`
	Content          string    `db:"content"`
	Author           string    `db:"author"`
	Date             string    `db:"date"`
	SourceURL        string    `db:"source_url"`
	SourceKind       string    `db:"source_kind"`
	Category         string    `db:"category"`
	TrustTier        int       `db:"trust_tier"`
	FreshnessScore   int       `db:"freshness_score"`
	RarityScore      int       `db:"rarity_score"`
	ReliabilityScore int       `db:"reliability_score"`
	TotalScore       int       `db:"total_score"`
	PriorityLabel    string    `db:"priority_label"`
	ImageURL         string    `db:"image_url"`
	CreatedAt        time.Time `db:"created_at"`
}
