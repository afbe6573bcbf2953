// Package thumbnail extracts a best-effort preview image for an article page
// from its Open Graph metadata.
package thumbnail

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"myfeed/internal/cache"
	"myfeed/internal/logging"
	"myfeed/internal/ratelimit"
)

const userAgent = "myfeed/1.0"

// imageSuffixes are the accepted thumbnail path endings. The match is a
// case-sensitive suffix check on the URL path, no content-type sniffing.
var imageSuffixes = []string{"jpg", "jpeg", "png", "webp"}

// Resolver fetches article pages and picks the first qualifying og:image
// candidate. Results are cached per link so a re-polled feed doesn't refetch
// every article page.
type Resolver struct {
	httpClient *http.Client
	cache      cache.Cache
	limiter    *ratelimit.Limiter
	logger     *logging.Logger
}

func NewResolver(httpClient *http.Client, c cache.Cache, limiter *ratelimit.Limiter, logger *logging.Logger) *Resolver {
	return &Resolver{
		httpClient: httpClient,
		cache:      c,
		limiter:    limiter,
		logger:     logger,
	}
}

// Resolve returns the thumbnail URL for the page at link, or "" when the page
// has no qualifying og:image. A fetch failure is an error; a page without a
// usable image is not.
func (r *Resolver) Resolve(ctx context.Context, link string) (string, error) {
	if r.cache != nil {
		if image, ok := r.cache.Get(link); ok {
			return image, nil
		}
	}

	if u, err := url.Parse(link); err == nil {
		r.limiter.Wait(u.Host)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("create page request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page %s: %w", link, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch page %s: status %d", link, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		// A page that doesn't parse as HTML simply has no thumbnail.
		r.logger.Debug("Page did not parse as HTML", logging.WithFields(map[string]interface{}{
			"link":  link,
			"error": err.Error(),
		}))
		return "", nil
	}

	image := firstCandidate(doc)
	if r.cache != nil {
		r.cache.Set(link, image)
	}
	return image, nil
}

// firstCandidate returns the first og:image inside <head> whose content is a
// valid URL with an accepted image suffix, in document order.
func firstCandidate(doc *goquery.Document) string {
	var image string
	doc.Find(`head > meta[property="og:image"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		content, ok := sel.Attr("content")
		if !ok {
			return true
		}
		u, err := url.Parse(content)
		if err != nil {
			return true
		}
		if !hasImageSuffix(u.Path) {
			return true
		}
		image = content
		return false
	})
	return image
}

func hasImageSuffix(path string) bool {
	for _, suffix := range imageSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}
