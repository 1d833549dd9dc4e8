// Package worker runs the resident crawl loop: pick a target, fetch
// candidates, filter, score, persist, notify, pause, repeat. The loop
// only stops on context cancellation; any single cycle's failure is
// logged and absorbed by a longer pause.
package worker

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"merchwatch/crawler/internal/feed"
	"merchwatch/crawler/internal/models"
	"merchwatch/crawler/internal/notify"
	"merchwatch/crawler/internal/pipeline"
	"merchwatch/crawler/internal/store"
)

// Pauses between cycles. Queue-sourced cycles recur faster so user
// searches feel responsive; failures back off hardest.
const (
	queuePause   = 8 * time.Second
	catalogPause = 15 * time.Second
	idlePause    = 10 * time.Second
	failurePause = 30 * time.Second
)

// Worker owns one sequential processing loop. There is deliberately no
// internal parallelism: one target is fully processed before the next,
// which keeps outbound request rates to the feed provider and article
// hosts naturally bounded.
type Worker struct {
	store    *store.Store
	fetcher  *feed.Fetcher
	filter   *pipeline.Filter
	scorer   *pipeline.Scorer
	notifier notify.Notifier
}

// New wires the pipeline stages into a Worker.
func New(s *store.Store, f *feed.Fetcher, flt *pipeline.Filter, sc *pipeline.Scorer, n notify.Notifier) *Worker {
	return &Worker{
		store:    s,
		fetcher:  f,
		filter:   flt,
		scorer:   sc,
		notifier: n,
	}
}

// Run executes the crawl loop until ctx is cancelled. It never returns
// an error for a cycle failure; only shutdown ends the loop.
func (w *Worker) Run(ctx context.Context) {
	log.Info().Msg("Crawler worker started")

	for {
		pause := w.runCycle(ctx)

		select {
		case <-ctx.Done():
			log.Info().Msg("Shutdown signal received, stopping worker")
			return
		case <-time.After(pause):
		}
	}
}

// runCycle executes one full cycle and returns how long to pause before
// the next. It is the loop's only catch-all boundary: errors and panics
// both collapse into the failure pause.
func (w *Worker) runCycle(ctx context.Context) (pause time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Cycle panicked")
			pause = failurePause
		}
	}()

	query, fromQueue, err := w.SelectNextTarget(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Target selection failed")
		return failurePause
	}
	if query == "" {
		log.Debug().Msg("No pending searches and no enabled targets, idling")
		return idlePause
	}

	if fromQueue {
		log.Info().Str("query", query).Msg("Serving user search from priority queue")
	}

	if err := w.ProcessTarget(ctx, query); err != nil {
		log.Error().Err(err).Str("query", query).Msg("Cycle failed")
		return failurePause
	}

	if fromQueue {
		if err := w.store.MarkQueueDone(ctx, query); err != nil {
			log.Error().Err(err).Str("query", query).Msg("Failed to complete queue entry")
		}
		return queuePause
	}
	return catalogPause
}

// SelectNextTarget picks the next phrase to search: the oldest pending
// queue entry wins (and is atomically marked processing); otherwise a
// uniformly random enabled target. Empty query means idle.
func (w *Worker) SelectNextTarget(ctx context.Context) (query string, fromQueue bool, err error) {
	query, ok, err := w.store.DequeueNextPending(ctx)
	if err != nil {
		return "", false, err
	}
	if ok {
		return query, true, nil
	}

	name, ok, err := w.store.RandomEnabledTarget(ctx)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return name, false, nil
}

// ProcessTarget runs the full pipeline for one target phrase: fetch,
// filter, score, persist, notify. Only store failures surface as
// errors; fetch problems already degraded to an empty candidate list.
func (w *Worker) ProcessTarget(ctx context.Context, query string) error {
	log.Info().Str("query", query).Msg("Processing target")

	candidates := w.fetcher.FetchCandidates(ctx, query)
	if len(candidates) == 0 {
		log.Info().Str("query", query).Msg("No feed results")
		return nil
	}

	filtered := w.filter.FilterItems(candidates)

	saved := 0
	duplicates := 0
	for _, item := range filtered {
		rec := w.scorer.ScoreItem(item)

		inserted, err := w.store.InsertIfNew(ctx, &rec)
		if err != nil {
			return err
		}
		if !inserted {
			duplicates++
			continue
		}
		saved++

		if err := w.notifier.NotifyNewRecord(ctx, query, rec); err != nil {
			log.Warn().Err(err).Str("url", rec.SourceURL).Msg("Notification failed")
		}
	}

	log.Info().
		Str("query", query).
		Int("fetched", len(candidates)).
		Int("filtered", len(filtered)).
		Int("saved", saved).
		Int("duplicates", duplicates).
		Msg("Cycle complete")
	return nil
}

// ScoreAll is a convenience for callers outside the loop that need the
// same scoring the worker applies, sorted by descending total score.
func ScoreAll(sc *pipeline.Scorer, items []models.FilteredItem) []models.GoodsRecord {
	records := make([]models.GoodsRecord, 0, len(items))
	for _, item := range items {
		records = append(records, sc.ScoreItem(item))
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].TotalScore > records[j].TotalScore
	})
	return records
}
