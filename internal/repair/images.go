// Package repair implements the offline image backfill pass: records
// whose image is missing or a provider placeholder get their source URL
// re-resolved and their article page re-scraped. This runs as an
// operator-invoked maintenance job, never as part of steady-state
// ingestion.
package repair

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"merchwatch/crawler/internal/resolver"
	"merchwatch/crawler/internal/rules"
	"merchwatch/crawler/internal/store"
)

// pageFetchRate bounds outbound article requests to one every 500ms so
// the repair pass stays polite to article hosts.
var pageFetchRate = rate.Every(500 * time.Millisecond)

// Repairer re-resolves images for stored records.
type Repairer struct {
	store    *store.Store
	resolver *resolver.Resolver
	rules    *rules.Rules
	limiter  *rate.Limiter
}

// New creates a Repairer over the store and resolver.
func New(s *store.Store, res *resolver.Resolver, r *rules.Rules) *Repairer {
	return &Repairer{
		store:    s,
		resolver: res,
		rules:    r,
		limiter:  rate.NewLimiter(pageFetchRate, 1),
	}
}

// Run backfills images for every record that needs one. It returns the
// number of records updated; per-record failures are logged and
// skipped, and only store access or cancellation aborts the pass.
func (r *Repairer) Run(ctx context.Context) (int, error) {
	records, err := r.store.RecordsNeedingImages(ctx, r.rules.ProviderDomains)
	if err != nil {
		return 0, err
	}
	log.Info().Int("candidates", len(records)).Msg("Starting image repair pass")

	updated := 0
	failed := 0
	for _, rec := range records {
		if rec.SourceURL == "" {
			continue
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return updated, err
		}

		canonical := r.resolver.ResolveCanonicalURL(ctx, rec.SourceURL)
		img, err := r.resolver.ExtractPageImage(ctx, canonical)
		if err != nil {
			log.Debug().Err(err).Int64("id", rec.ID).Str("url", canonical).Msg("Image re-fetch failed")
			failed++
			continue
		}
		if img == "" || r.resolver.IsProviderURL(img) {
			failed++
			continue
		}

		if err := r.store.UpdateImageURL(ctx, rec.ID, img); err != nil {
			return updated, err
		}
		updated++
		log.Debug().Int64("id", rec.ID).Str("image", img).Msg("Image backfilled")
	}

	log.Info().Int("updated", updated).Int("failed", failed).Msg("Image repair pass finished")
	return updated, nil
}
