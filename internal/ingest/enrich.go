package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"myfeed/internal/logging"
	"myfeed/internal/models"
)

// ImageResolver finds a thumbnail for an article page. An empty result with a
// nil error means the page has no usable image.
type ImageResolver interface {
	Resolve(ctx context.Context, link string) (string, error)
}

// EnrichedItem is one feed entry that survived enrichment, paired with the
// tag names derived from its categories.
type EnrichedItem struct {
	Item models.Item
	Tags map[string]bool
}

// Batch is the settled outcome of enriching one source's channel: the
// surviving items and the union of every tag name they derived.
type Batch struct {
	Items    []EnrichedItem
	TagNames map[string]bool
}

var errNoLink = errors.New("item has no link")

type dropReason int

const (
	dropNone dropReason = iota
	dropStale
)

type enrichResult struct {
	item EnrichedItem
	drop dropReason
	link string
	err  error
}

// Enricher turns raw channel items into persistable items, resolving
// thumbnails concurrently.
type Enricher struct {
	resolver ImageResolver
	logger   *logging.Logger
}

func NewEnricher(resolver ImageResolver, logger *logging.Logger) *Enricher {
	return &Enricher{resolver: resolver, logger: logger}
}

// EnrichChannel processes every item of the channel concurrently, one
// goroutine per item. A failing item is dropped and logged; it never affects
// the rest of the batch. The batch is only returned once all items settled.
func (e *Enricher) EnrichChannel(ctx context.Context, source *models.Source, channel *models.Channel, now time.Time) Batch {
	var wg sync.WaitGroup
	results := make(chan enrichResult, len(channel.Items))

	for _, channelItem := range channel.Items {
		wg.Add(1)
		go func(channelItem models.ChannelItem) {
			defer wg.Done()
			results <- e.processItem(ctx, source, channelItem, now)
		}(channelItem)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	batch := Batch{
		Items:    make([]EnrichedItem, 0, len(channel.Items)),
		TagNames: make(map[string]bool),
	}

	for result := range results {
		if result.err != nil {
			e.logger.Error("Dropping feed item", logging.WithFields(map[string]interface{}{
				"source": source.Name,
				"link":   result.link,
				"error":  result.err.Error(),
			}))
			continue
		}
		if result.drop == dropStale {
			e.logger.Debug("Ignoring item older than source min_date", logging.WithFields(map[string]interface{}{
				"source": source.Name,
				"link":   result.link,
			}))
			continue
		}

		for name := range result.item.Tags {
			batch.TagNames[name] = true
		}
		batch.Items = append(batch.Items, result.item)
	}

	return batch
}

func (e *Enricher) processItem(ctx context.Context, source *models.Source, channelItem models.ChannelItem, now time.Time) enrichResult {
	if channelItem.Link == "" {
		return enrichResult{err: errNoLink}
	}

	published := parsePubDate(channelItem.PubDate)

	if source.MinDate != nil && published != nil {
		if published.Before(minDateInZone(*source.MinDate, published.Location())) {
			return enrichResult{drop: dropStale, link: channelItem.Link}
		}
	}

	image, err := e.resolver.Resolve(ctx, channelItem.Link)
	if err != nil {
		return enrichResult{link: channelItem.Link, err: err}
	}

	item := models.Item{
		Link:        channelItem.Link,
		Title:       channelItem.Title,
		Description: channelItem.Description,
		Author:      channelItem.Author,
		Published:   published,
		Image:       image,
		SourceID:    &source.ID,
		SourceLink:  source.URL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	return enrichResult{
		item: EnrichedItem{Item: item, Tags: deriveTags(channelItem.Categories)},
		link: channelItem.Link,
	}
}

// pubDateLayouts covers the RFC 2822 variants feeds actually emit. The "2"
// day accepts both padded and unpadded days; seconds may be omitted.
var pubDateLayouts = []string{
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04 -0700",
	"Mon, 2 Jan 2006 15:04 MST",
}

// parsePubDate parses an RFC 2822 publish date. Anything that doesn't parse
// is treated as absent.
func parsePubDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// minDateInZone reinterprets the min_date wall clock in the item's reported
// timezone so the cutoff compares against the publisher's local dates.
func minDateInZone(minDate time.Time, loc *time.Location) time.Time {
	md := minDate.UTC()
	return time.Date(md.Year(), md.Month(), md.Day(), md.Hour(), md.Minute(), md.Second(), md.Nanosecond(), loc)
}

// deriveTags lowercases the non-empty category names into a tag name set.
func deriveTags(categories []string) map[string]bool {
	lower := cases.Lower(language.Und)
	tags := make(map[string]bool, len(categories))
	for _, category := range categories {
		if category == "" {
			continue
		}
		tags[lower.String(category)] = true
	}
	return tags
}
