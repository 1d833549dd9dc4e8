// Package resolver turns feed-provider indirection links into canonical
// article URLs and extracts a representative image from article pages.
// Every operation here is best effort: callers treat failures as "no
// result", never as pipeline errors.
package resolver

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"merchwatch/crawler/internal/rules"
)

const (
	providerHost = "news.google.com"

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	acceptLanguage   = "ja,en;q=0.9"

	requestTimeout  = 8 * time.Second
	maxResponseSize = 4 << 20 // article pages only; anything bigger is not worth scanning
)

// Resolver decodes provider indirection links and scrapes page images.
type Resolver struct {
	client *http.Client
	rules  *rules.Rules
}

// New creates a Resolver using the given rule set.
func New(r *rules.Rules) *Resolver {
	return &Resolver{
		client: &http.Client{Timeout: requestTimeout},
		rules:  r,
	}
}

// IsProviderURL reports whether the URL points at the feed provider
// itself (or its CDN) rather than a real article site.
func (r *Resolver) IsProviderURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, d := range r.rules.ProviderDomains {
		if strings.Contains(lower, d) {
			return true
		}
	}
	return false
}

// ResolveCanonicalURL decodes a provider indirection link into the real
// article URL. Non-indirection URLs pass through unchanged. If neither
// the payload decode nor the redirect fallback escapes the provider
// domain, the original URL is returned as the failure signal.
func (r *Resolver) ResolveCanonicalURL(ctx context.Context, indirectURL string) string {
	if !strings.Contains(indirectURL, providerHost) {
		return indirectURL
	}

	if decoded, err := decodeArticlePayload(indirectURL); err == nil {
		return decoded
	} else {
		log.Debug().Err(err).Str("url", indirectURL).Msg("Payload decode failed, following redirects")
	}

	final, err := r.followRedirects(ctx, indirectURL)
	if err != nil {
		log.Debug().Err(err).Str("url", indirectURL).Msg("Redirect resolution failed")
		return indirectURL
	}
	if strings.Contains(final, providerHost) {
		return indirectURL
	}
	return final
}

// decodeArticlePayload extracts the article URL embedded in the
// base64-encoded path segment of a provider indirection link. The
// payload is a length-prefixed binary blob; the URL is the first run of
// printable bytes starting with "http".
func decodeArticlePayload(indirectURL string) (string, error) {
	u, err := url.Parse(indirectURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse indirection URL: %w", err)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) == 0 {
		return "", fmt.Errorf("no path segments in %s", indirectURL)
	}
	payload := segments[len(segments)-1]
	if !strings.HasPrefix(payload, "CBMi") && !strings.HasPrefix(payload, "CAIi") {
		return "", fmt.Errorf("unrecognized payload prefix")
	}

	raw, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(strings.TrimRight(payload, "="))
	if err != nil {
		return "", fmt.Errorf("failed to decode payload: %w", err)
	}

	start := strings.Index(string(raw), "http")
	if start < 0 {
		return "", fmt.Errorf("no URL in decoded payload")
	}
	end := start
	for end < len(raw) && raw[end] > 0x20 && raw[end] < 0x7f {
		end++
	}

	decoded := string(raw[start:end])
	if _, err := url.ParseRequestURI(decoded); err != nil {
		return "", fmt.Errorf("decoded payload is not a URL: %w", err)
	}
	return decoded, nil
}

// followRedirects fetches the URL with a browser user-agent and returns
// the final landing URL after any redirect chain.
func (r *Resolver) followRedirects(ctx context.Context, rawURL string) (string, error) {
	resp, err := r.get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

	return resp.Request.URL.String(), nil
}

// ExtractPageImage fetches an article page and returns the URL of a
// representative image, searching og:image, then twitter:image, then the
// first acceptable <img> in document order. Returns empty without error
// when the page simply has no usable image; transport and parse errors
// are returned so the caller can decide how loudly to ignore them.
func (r *Resolver) ExtractPageImage(ctx context.Context, pageURL string) (string, error) {
	if pageURL == "" || r.IsProviderURL(pageURL) {
		// Provider pages only ever yield the placeholder icon.
		return "", nil
	}

	resp, err := r.get(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	base := resp.Request.URL

	for _, selector := range []string{
		`meta[property="og:image"]`,
		`meta[name="twitter:image"]`,
	} {
		content, ok := doc.Find(selector).First().Attr("content")
		if !ok {
			continue
		}
		img := normalizeImageURL(content, base)
		if img != "" && !r.IsProviderURL(img) {
			return img, nil
		}
	}

	return r.firstContentImage(doc, base), nil
}

// firstContentImage scans <img> tags in document order and returns the
// first source that survives the deny-list and looks like an actual
// content image.
func (r *Resolver) firstContentImage(doc *goquery.Document, base *url.URL) string {
	var found string
	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, ok := s.Attr("src")
		if !ok {
			return true
		}
		img := normalizeImageURL(src, base)
		if img == "" {
			return true
		}

		lower := strings.ToLower(img)
		for _, deny := range r.rules.ImageDenyTerms {
			if strings.Contains(lower, deny) {
				return true
			}
		}

		for _, ext := range r.rules.ImageExtensions {
			if strings.HasSuffix(lower, ext) {
				found = img
				return false
			}
		}
		// No extension, but image-hosting hosts are still acceptable
		for _, hint := range r.rules.ImageHostHints {
			if strings.Contains(lower, hint) {
				found = img
				return false
			}
		}
		return true
	})
	return found
}

// normalizeImageURL converts a scraped image reference to absolute form
// using the final landed page's origin. Anything that is not absolute,
// protocol-relative, or root-relative is treated as unresolvable.
func normalizeImageURL(raw string, base *url.URL) string {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, "http"):
		return raw
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(raw, "/") && base != nil:
		return base.Scheme + "://" + base.Host + raw
	}
	return ""
}

func (r *Resolver) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept-Language", acceptLanguage)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}
	return resp, nil
}
