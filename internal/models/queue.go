package models

import "time"

// Queue entry statuses. Entries are never deleted; completed rows stay
// around as search history.
const (
	QueueStatusPending    = "pending"
	QueueStatusProcessing = "processing"
	QueueStatusCompleted  = "completed"
)

// QueueEntry is a user-submitted priority search request. At most one
// entry exists per distinct query; re-submission resets it to pending.
type QueueEntry struct {
	ID        int64     `db:"id"`
	Query     string    `db:"query"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}
