// Package notify defines the hook invoked for every newly stored
// record. Actual delivery (web push, email) lives behind the Notifier
// interface in a collaborating service; the pipeline only promises to
// call it once per new record, after a successful insert.
package notify

import (
	"context"

	"github.com/rs/zerolog/log"

	"merchwatch/crawler/internal/models"
)

// Notifier receives each newly inserted record. Implementations must be
// safe to call from the worker loop; a returned error is logged and
// never blocks further processing.
type Notifier interface {
	NotifyNewRecord(ctx context.Context, targetQuery string, rec models.GoodsRecord) error
}

// LogNotifier announces new records on the structured log. It stands in
// for the push/email delivery service in deployments that do not run one.
type LogNotifier struct{}

// NotifyNewRecord implements Notifier.
func (LogNotifier) NotifyNewRecord(_ context.Context, targetQuery string, rec models.GoodsRecord) error {
	log.Info().
		Str("target", targetQuery).
		Str("title", rec.Title).
		Str("category", rec.Category).
		Str("priority", rec.PriorityLabel).
		Int("score", rec.TotalScore).
		Msg("New goods record")
	return nil
}
