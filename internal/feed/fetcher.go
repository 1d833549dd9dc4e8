// Package feed retrieves merchandise news candidates from the provider's
// search feed and normalizes entries into CandidateItems.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/rss"
	"github.com/rs/zerolog/log"

	"merchwatch/crawler/internal/models"
	"merchwatch/crawler/internal/resolver"
	"merchwatch/crawler/internal/rules"
)

const (
	searchEndpoint = "https://news.google.com/rss/search"
	fetchTimeout   = 10 * time.Second

	dateLayout = "2006-01-02 15:04:05"

	defaultSourceLabel = "Google News"
)

// pubDateLayouts are the calendar formats the provider emits for item
// timestamps, all with three-letter month abbreviations.
var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
}

// Fetcher queries the provider's search feed for one target phrase at a
// time. All failures degrade to an empty candidate list; the worker loop
// treats "feed down" the same as "nothing found".
type Fetcher struct {
	client   *http.Client
	parser   *rss.Parser
	resolver *resolver.Resolver
	rules    *rules.Rules
	lang     string
	region   string

	// overridable in tests
	endpoint string
}

// New creates a Fetcher bound to a language/region edition of the feed.
func New(res *resolver.Resolver, r *rules.Rules, lang, region string) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: fetchTimeout},
		parser:   &rss.Parser{},
		resolver: res,
		rules:    r,
		lang:     lang,
		region:   region,
		endpoint: searchEndpoint,
	}
}

// buildQuery combines the exact target phrase with an OR-group of
// merchandise terms so results skew toward goods/event announcements
// instead of general mentions.
func (f *Fetcher) buildQuery(phrase string) string {
	return fmt.Sprintf("%q (%s)", phrase, strings.Join(f.rules.SearchOrTerms, " OR "))
}

func (f *Fetcher) searchURL(phrase string) string {
	params := url.Values{}
	params.Set("q", f.buildQuery(phrase))
	params.Set("hl", f.lang)
	params.Set("gl", f.region)
	params.Set("ceid", f.region+":"+f.lang)
	return f.endpoint + "?" + params.Encode()
}

// FetchCandidates retrieves and normalizes feed entries for the query.
// Transport and parse failures are logged and yield an empty list.
func (f *Fetcher) FetchCandidates(ctx context.Context, query string) []models.CandidateItem {
	reqCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, f.searchURL(query), nil)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("Failed to build feed request")
		return nil
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("Feed fetch failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Str("query", query).Msg("Feed returned non-OK status")
		return nil
	}

	parsed, err := f.parser.Parse(resp.Body)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("Feed parse failed")
		return nil
	}

	items := make([]models.CandidateItem, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		items = append(items, f.normalize(ctx, entry))
	}

	log.Debug().Str("query", query).Int("items", len(items)).Msg("Feed fetched")
	return items
}

// normalize converts one raw feed entry into a CandidateItem, resolving
// the illustrative image on the way.
func (f *Fetcher) normalize(ctx context.Context, entry *rss.Item) models.CandidateItem {
	source := defaultSourceLabel
	if entry.Source != nil && entry.Source.Title != "" {
		source = entry.Source.Title
	}

	return models.CandidateItem{
		Title: entry.Title,
		// Feed bodies are a sentence at best; the title carries the
		// signal the filter and scorer need.
		Content:    entry.Title,
		Author:     source,
		Date:       f.parsePubDate(entry),
		SourceURL:  entry.Link,
		SourceKind: models.SourceFeed,
		ImageURL:   f.resolveImage(ctx, entry),
	}
}

// parsePubDate normalizes the entry timestamp to dateLayout. A missing
// or malformed timestamp falls back to now; the entry is never dropped
// for a bad date.
func (f *Fetcher) parsePubDate(entry *rss.Item) string {
	if entry.PubDateParsed != nil {
		return entry.PubDateParsed.Local().Format(dateLayout)
	}
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, entry.PubDate); err == nil {
			return t.Local().Format(dateLayout)
		}
	}
	return time.Now().Format(dateLayout)
}

// resolveImage picks an image for the entry. Feed-native attachments win
// in order media:content, media:thumbnail, enclosure; each is rejected
// when it points at the provider's own domain (placeholder icon). Only
// when the feed supplies nothing is the article page itself scraped, and
// only if the canonical URL actually left the provider.
func (f *Fetcher) resolveImage(ctx context.Context, entry *rss.Item) string {
	if img := f.feedNativeImage(entry); img != "" {
		return img
	}
	if entry.Link == "" {
		return ""
	}

	canonical := f.resolver.ResolveCanonicalURL(ctx, entry.Link)
	if f.resolver.IsProviderURL(canonical) {
		// Decoding failed; scraping the provider page would only
		// return the generic icon.
		return ""
	}

	img, err := f.resolver.ExtractPageImage(ctx, canonical)
	if err != nil {
		log.Debug().Err(err).Str("url", canonical).Msg("Page image extraction failed")
		return ""
	}
	return img
}

func (f *Fetcher) feedNativeImage(entry *rss.Item) string {
	if media, ok := entry.Extensions["media"]; ok {
		for _, elem := range []string{"content", "thumbnail"} {
			for _, ext := range media[elem] {
				if img := ext.Attrs["url"]; img != "" && !f.resolver.IsProviderURL(img) {
					return img
				}
			}
		}
	}
	if entry.Enclosure != nil {
		if img := entry.Enclosure.URL; img != "" && !f.resolver.IsProviderURL(img) {
			return img
		}
	}
	return ""
}
