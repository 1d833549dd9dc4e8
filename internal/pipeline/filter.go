// Package pipeline contains the filtering and scoring stages that turn
// raw feed candidates into ranked goods records.
package pipeline

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"merchwatch/crawler/internal/models"
	"merchwatch/crawler/internal/rules"
)

const maxItemAgeDays = 365

// dateParseLayouts are the accepted prefixes of an item date string.
// Only the first ten characters are examined, matching the normalized
// form the fetcher emits.
var dateParseLayouts = []string{"2006-01-02", "2006/01/02"}

// Filter rejects low-value candidates and tags survivors with a
// category and trust tier.
type Filter struct {
	rules *rules.Rules
}

// NewFilter creates a Filter over the given rule set.
func NewFilter(r *rules.Rules) *Filter {
	return &Filter{rules: r}
}

// FilterItems reduces a candidate batch to the items worth scoring.
// Within the batch, the first occurrence of a source URL wins; global
// dedup is the store's unique-key insert. Survivors are sorted by trust
// tier, then date string, both descending.
func (f *Filter) FilterItems(items []models.CandidateItem) []models.FilteredItem {
	results := make([]models.FilteredItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for _, item := range items {
		if item.SourceURL == "" {
			continue
		}
		if _, dup := seen[item.SourceURL]; dup {
			continue
		}
		seen[item.SourceURL] = struct{}{}

		if f.hasExcludeKeyword(item.Content) {
			log.Debug().Str("content", clip(item.Content)).Msg("Filtered: noise keyword")
			continue
		}
		if f.isTooOld(item.Date) {
			log.Debug().Str("date", item.Date).Str("content", clip(item.Content)).Msg("Filtered: stale")
			continue
		}
		if !f.hasUsefulKeyword(item.Content) {
			log.Debug().Str("content", clip(item.Content)).Msg("Filtered: no merchandise signal")
			continue
		}

		results = append(results, models.FilteredItem{
			CandidateItem: item,
			Category:      f.detectCategory(item.Content),
			TrustTier:     f.trustTier(item),
		})
	}

	// Trust dominates recency; the date string is a lexicographic
	// tiebreaker. Dates the fetcher emits are zero-padded, so string
	// order is chronological for pipeline-produced items.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].TrustTier != results[j].TrustTier {
			return results[i].TrustTier > results[j].TrustTier
		}
		return results[i].Date > results[j].Date
	})

	log.Info().Int("in", len(items)).Int("out", len(results)).Msg("Filter pass complete")
	return results
}

func (f *Filter) hasExcludeKeyword(content string) bool {
	return containsAny(content, f.rules.ExcludeKeywords)
}

func (f *Filter) hasUsefulKeyword(content string) bool {
	return containsAny(content, f.rules.UsefulKeywords)
}

// isTooOld reports whether the date string is older than a year. An
// empty or unparseable date is treated as not-old so items are never
// dropped just because their timestamp was mangled.
func (f *Filter) isTooOld(dateStr string) bool {
	t, ok := parseItemDate(dateStr)
	if !ok {
		return false
	}
	return t.Before(time.Now().AddDate(0, 0, -maxItemAgeDays))
}

// detectCategory returns the label of the first keyword group that
// matches; group order in the rules is the priority order.
func (f *Filter) detectCategory(content string) string {
	lower := strings.ToLower(content)
	for _, cat := range f.rules.Categories {
		for _, kw := range cat.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return cat.Name
			}
		}
	}
	return "other"
}

// trustTier classifies the item's source. Feed items are trusted when
// the article's registrable domain is on the curated allowlist; social
// items when the account name carries an official-style term.
func (f *Filter) trustTier(item models.CandidateItem) int {
	switch item.SourceKind {
	case models.SourceFeed:
		if f.isTrustedDomain(item.SourceURL) {
			return models.TrustTierTrusted
		}
	case models.SourceSocial:
		if containsAny(strings.ToLower(item.Author), f.rules.OfficialAccountTerms) {
			return models.TrustTierTrusted
		}
	}
	return models.TrustTierUntrusted
}

func (f *Filter) isTrustedDomain(rawURL string) bool {
	parsed, err := url.Parse(strings.ToLower(rawURL))
	if err != nil {
		return false
	}
	domain := strings.TrimPrefix(parsed.Hostname(), "www.")
	for _, trusted := range f.rules.TrustedDomains {
		if strings.Contains(domain, trusted) {
			return true
		}
	}
	return false
}

// parseItemDate parses the leading date portion of an item date string.
func parseItemDate(dateStr string) (time.Time, bool) {
	if len(dateStr) < 10 {
		return time.Time{}, false
	}
	for _, layout := range dateParseLayouts {
		if t, err := time.Parse(layout, dateStr[:10]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func clip(s string) string {
	if r := []rune(s); len(r) > 60 {
		return string(r[:60])
	}
	return s
}
