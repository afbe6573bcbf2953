// Package models holds the shared domain types for sources, items and tags.
package models

import "time"

// Source is a configured remote feed the poller checks on a schedule.
type Source struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`

	// LastPub is the publish timestamp reported by the feed. Defaults to the
	// ingestion time when the feed doesn't report one.
	LastPub time.Time `json:"last_pub"`

	// LastPoll is nil until the source has been polled at least once.
	LastPoll *time.Time `json:"last_poll"`

	// TTL is the feed-reported minimum number of minutes between polls.
	// When nil the poller falls back to its default.
	TTL *int64 `json:"ttl"`

	// MinDate, when set, causes items published before it to be ignored.
	MinDate *time.Time `json:"min_date"`

	Favorite  bool      `json:"favorite"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Item is a single ingested feed entry, deduplicated by link.
type Item struct {
	ID          int64      `json:"id"`
	Link        string     `json:"link"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Author      string     `json:"author,omitempty"`
	Published   *time.Time `json:"published"`
	Image       string     `json:"image,omitempty"`
	Favorite    bool       `json:"favorite"`
	Done        bool       `json:"done"`
	SourceID    *int64     `json:"source_id"`
	SourceLink  string     `json:"source_link,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Tag is a named label attachable to both sources and items. The name is the
// identity; colors only affect presentation.
type Tag struct {
	Name            string    `json:"name"`
	BackgroundColor string    `json:"background_color,omitempty"`
	TextColor       string    `json:"text_color,omitempty"`
	BorderColor     string    `json:"border_color,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ItemWithTags pairs an item with the tag names linked to it. Used by the feed
// endpoint and the preview path.
type ItemWithTags struct {
	Item Item     `json:"item"`
	Tags []string `json:"tags"`
}

// Channel is the parsed in-memory form of one fetched feed document. Date and
// TTL values stay as raw strings; the ingestion layer decides how to parse
// them.
type Channel struct {
	Title      string
	PubDate    string
	TTL        string
	Categories []string
	Items      []ChannelItem
}

// ChannelItem is one entry of a fetched feed document.
type ChannelItem struct {
	Link        string
	Title       string
	Author      string
	Description string
	PubDate     string
	Categories  []string
}
