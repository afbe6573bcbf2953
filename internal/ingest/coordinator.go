package ingest

import (
	"context"
	"errors"
	"strconv"
	"time"

	"myfeed/internal/database"
	"myfeed/internal/logging"
	"myfeed/internal/models"
	"myfeed/internal/status"
)

// ChannelFetcher retrieves and parses a remote feed document.
type ChannelFetcher interface {
	FetchChannel(ctx context.Context, url string) (*models.Channel, error)
}

// SourceStore is the slice of the persistence layer the ingestion path needs
// for sources.
type SourceStore interface {
	List(ctx context.Context) ([]models.Source, error)
	Update(ctx context.Context, source *models.Source) error
	Tags(ctx context.Context, id int64) ([]models.Tag, error)
}

// ItemStore is the slice of the persistence layer the ingestion path needs
// for items. Insert must return database.ErrDuplicateLink (wrapped or not)
// when the link already exists.
type ItemStore interface {
	Insert(ctx context.Context, item *models.Item) error
	AddTags(ctx context.Context, id int64, names []string) error
}

// TagStore creates tags idempotently.
type TagStore interface {
	InsertMany(ctx context.Context, tags []models.Tag) error
}

// Coordinator runs the fetch, enrich, persist pipeline for one source at a
// time. Nothing here is transactional across the whole poll: partial progress
// is accepted and logged.
type Coordinator struct {
	feed     ChannelFetcher
	enricher *Enricher
	sources  SourceStore
	items    ItemStore
	tags     TagStore
	bus      *status.Bus
	logger   *logging.Logger
}

func NewCoordinator(feed ChannelFetcher, enricher *Enricher, sources SourceStore, items ItemStore, tags TagStore, bus *status.Bus, logger *logging.Logger) *Coordinator {
	return &Coordinator{
		feed:     feed,
		enricher: enricher,
		sources:  sources,
		items:    items,
		tags:     tags,
		bus:      bus,
		logger:   logger,
	}
}

// IngestSource polls one source: fetch and parse its feed, enrich all items
// concurrently, then persist the settled batch sequentially. Only a feed
// fetch/parse failure aborts the source; everything after that degrades
// per item.
func (c *Coordinator) IngestSource(ctx context.Context, source *models.Source, now time.Time) error {
	channel, err := c.feed.FetchChannel(ctx, source.URL)
	if err != nil {
		return err
	}

	batch := c.enricher.EnrichChannel(ctx, source, channel, now)

	// Create every tag the batch derived before any item insert, so the
	// per-item linking below can assume the tag rows exist.
	if err := c.tags.InsertMany(ctx, tagsFromNames(batch.TagNames, now)); err != nil {
		c.logger.Error("Failed to create tags from categories", logging.WithFields(map[string]interface{}{
			"source": source.Name,
			"error":  err.Error(),
		}))
	}

	c.updateBookkeeping(ctx, source, channel, now)
	c.bus.Publish(status.PollDone)

	sourceTags := c.sourceTagNames(ctx, source)

	for _, entry := range batch.Items {
		item := entry.Item
		if err := c.items.Insert(ctx, &item); err != nil {
			if errors.Is(err, database.ErrDuplicateLink) {
				c.logger.Debug("Item link already ingested", logging.WithField("link", item.Link))
			} else {
				c.logger.Error("Failed to insert item", logging.WithFields(map[string]interface{}{
					"link":  item.Link,
					"error": err.Error(),
				}))
			}
			continue
		}
		c.logger.Info("Inserted new item", logging.WithField("link", item.Link))

		names := make([]string, 0, len(entry.Tags)+len(sourceTags))
		for name := range entry.Tags {
			names = append(names, name)
		}
		for _, name := range sourceTags {
			if !entry.Tags[name] {
				names = append(names, name)
			}
		}

		if err := c.items.AddTags(ctx, item.ID, names); err != nil {
			c.logger.Error("Failed to add tags to item", logging.WithFields(map[string]interface{}{
				"link":  item.Link,
				"error": err.Error(),
			}))
		}
	}

	return nil
}

// updateBookkeeping advances the source's poll watermark. This commits even
// when zero items were inserted; a failure is logged but never aborts the
// cycle.
func (c *Coordinator) updateBookkeeping(ctx context.Context, source *models.Source, channel *models.Channel, now time.Time) {
	if published := parsePubDate(channel.PubDate); published != nil {
		source.LastPub = published.UTC()
	} else {
		source.LastPub = now
	}
	source.LastPoll = &now

	if ttl, err := strconv.ParseInt(channel.TTL, 10, 64); err == nil {
		source.TTL = &ttl
	} else {
		source.TTL = nil
	}

	if err := c.sources.Update(ctx, source); err != nil {
		c.logger.Error("Failed to update source bookkeeping", logging.WithFields(map[string]interface{}{
			"source": source.Name,
			"error":  err.Error(),
		}))
	}
}

// sourceTagNames loads the tags assigned to the source itself; these get
// unioned onto every newly inserted item. A load failure degrades to no
// source tags.
func (c *Coordinator) sourceTagNames(ctx context.Context, source *models.Source) []string {
	tags, err := c.sources.Tags(ctx, source.ID)
	if err != nil {
		c.logger.Error("Failed to load source tags", logging.WithFields(map[string]interface{}{
			"source": source.Name,
			"error":  err.Error(),
		}))
		return nil
	}

	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	return names
}

func tagsFromNames(names map[string]bool, now time.Time) []models.Tag {
	tags := make([]models.Tag, 0, len(names))
	for name := range names {
		tags = append(tags, models.Tag{
			Name:      name,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return tags
}
