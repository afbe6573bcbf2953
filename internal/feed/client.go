// Package feed fetches and parses remote RSS documents.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mmcdole/gofeed/rss"

	"myfeed/internal/models"
	"myfeed/internal/ratelimit"
)

const userAgent = "myfeed/1.0"

// Client fetches feed documents over a shared HTTP connection pool and parses
// them into the channel model. It never retries; failures surface to the
// caller.
type Client struct {
	httpClient *http.Client
	parser     *rss.Parser
	limiter    *ratelimit.Limiter
}

// NewClient creates a feed client. The HTTP client is shared with the
// thumbnail resolver so both draw from one connection pool.
func NewClient(httpClient *http.Client, limiter *ratelimit.Limiter) *Client {
	return &Client{
		httpClient: httpClient,
		parser:     &rss.Parser{},
		limiter:    limiter,
	}
}

// FetchChannel retrieves and parses the feed at feedURL. Dates and TTL stay
// raw strings; the ingestion layer decides how to interpret them.
func (c *Client) FetchChannel(ctx context.Context, feedURL string) (*models.Channel, error) {
	if u, err := url.Parse(feedURL); err == nil {
		c.limiter.Wait(u.Host)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", feedURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed %s: status %d", feedURL, resp.StatusCode)
	}

	parsed, err := c.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	return channelFromRSS(parsed), nil
}

func channelFromRSS(parsed *rss.Feed) *models.Channel {
	channel := &models.Channel{
		Title:   parsed.Title,
		PubDate: parsed.PubDate,
		TTL:     parsed.TTL,
		Items:   make([]models.ChannelItem, 0, len(parsed.Items)),
	}

	for _, cat := range parsed.Categories {
		if cat != nil {
			channel.Categories = append(channel.Categories, cat.Value)
		}
	}

	for _, item := range parsed.Items {
		if item == nil {
			continue
		}

		categories := make([]string, 0, len(item.Categories))
		for _, cat := range item.Categories {
			if cat != nil {
				categories = append(categories, cat.Value)
			}
		}

		channel.Items = append(channel.Items, models.ChannelItem{
			Link:        item.Link,
			Title:       item.Title,
			Author:      item.Author,
			Description: item.Description,
			PubDate:     item.PubDate,
			Categories:  categories,
		})
	}

	return channel
}
