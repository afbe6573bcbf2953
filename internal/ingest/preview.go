package ingest

import (
	"context"
	"sort"
	"time"

	"myfeed/internal/models"
)

// Preview runs the fetch and enrichment pipeline for a source that may not be
// saved yet and returns the items that would be ingested, with their tags.
// Nothing is persisted and no status events fire.
func (c *Coordinator) Preview(ctx context.Context, source *models.Source) ([]models.ItemWithTags, error) {
	now := time.Now().UTC()

	channel, err := c.feed.FetchChannel(ctx, source.URL)
	if err != nil {
		return nil, err
	}

	channelTags := deriveTags(channel.Categories)
	batch := c.enricher.EnrichChannel(ctx, source, channel, now)

	preview := make([]models.ItemWithTags, 0, len(batch.Items))
	for _, entry := range batch.Items {
		names := make([]string, 0, len(entry.Tags)+len(channelTags))
		for name := range entry.Tags {
			names = append(names, name)
		}
		for name := range channelTags {
			if !entry.Tags[name] {
				names = append(names, name)
			}
		}
		sort.Strings(names)

		preview = append(preview, models.ItemWithTags{Item: entry.Item, Tags: names})
	}

	return preview, nil
}
