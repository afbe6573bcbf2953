package ingest

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"myfeed/internal/models"
	"myfeed/internal/testutil"
)

type fakeResolver struct {
	mu     sync.Mutex
	images map[string]string
	errs   map[string]error
	calls  []string
}

func (f *fakeResolver) Resolve(ctx context.Context, link string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, link)
	if err, ok := f.errs[link]; ok {
		return "", err
	}
	return f.images[link], nil
}

func testSource() *models.Source {
	return &models.Source{
		ID:   1,
		Name: "Example Blog",
		URL:  "https://example.com/feed.xml",
	}
}

func TestEnrichChannelResolvesThumbnails(t *testing.T) {
	resolver := &fakeResolver{images: map[string]string{
		"https://example.com/a": "https://example.com/a.png",
		"https://example.com/b": "",
	}}
	enricher := NewEnricher(resolver, testutil.NullLogger())

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	channel := &models.Channel{Items: []models.ChannelItem{
		{Link: "https://example.com/a", Title: "A", PubDate: "Wed, 01 May 2024 10:00:00 +0000"},
		{Link: "https://example.com/b", Title: "B"},
	}}

	batch := enricher.EnrichChannel(context.Background(), testSource(), channel, now)

	if len(batch.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(batch.Items))
	}
	for _, entry := range batch.Items {
		want := resolver.images[entry.Item.Link]
		if entry.Item.Image != want {
			t.Errorf("item %s image = %q, want %q", entry.Item.Link, entry.Item.Image, want)
		}
		if entry.Item.SourceID == nil || *entry.Item.SourceID != 1 {
			t.Errorf("item %s source_id = %v, want 1", entry.Item.Link, entry.Item.SourceID)
		}
		if entry.Item.SourceLink != "https://example.com/feed.xml" {
			t.Errorf("item %s source_link = %q", entry.Item.Link, entry.Item.SourceLink)
		}
	}
	if len(resolver.calls) != 2 {
		t.Errorf("resolver called %d times, want 2", len(resolver.calls))
	}
}

func TestEnrichChannelIsolatesFailures(t *testing.T) {
	resolver := &fakeResolver{
		images: map[string]string{
			"https://example.com/a": "https://example.com/a.jpg",
			"https://example.com/c": "https://example.com/c.jpg",
		},
		errs: map[string]error{
			"https://example.com/b": errors.New("connection refused"),
		},
	}
	enricher := NewEnricher(resolver, testutil.NullLogger())

	channel := &models.Channel{Items: []models.ChannelItem{
		{Link: "https://example.com/a", Title: "A"},
		{Link: "https://example.com/b", Title: "B"},
		{Link: "https://example.com/c", Title: "C"},
	}}

	batch := enricher.EnrichChannel(context.Background(), testSource(), channel, time.Now().UTC())

	if len(batch.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(batch.Items))
	}
	for _, entry := range batch.Items {
		if entry.Item.Link == "https://example.com/b" {
			t.Error("failed item should have been dropped from the batch")
		}
	}
}

func TestEnrichChannelDropsItemWithoutLink(t *testing.T) {
	resolver := &fakeResolver{}
	enricher := NewEnricher(resolver, testutil.NullLogger())

	channel := &models.Channel{Items: []models.ChannelItem{
		{Title: "no link here"},
	}}

	batch := enricher.EnrichChannel(context.Background(), testSource(), channel, time.Now().UTC())

	if len(batch.Items) != 0 {
		t.Errorf("got %d items, want 0", len(batch.Items))
	}
	if len(resolver.calls) != 0 {
		t.Errorf("resolver called %d times for a linkless item, want 0", len(resolver.calls))
	}
}

func TestEnrichChannelMinDateFilter(t *testing.T) {
	minDate := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		pubDate string
		want    bool // item survives
	}{
		{"after cutoff", "Tue, 02 Apr 2024 10:00:00 +0000", true},
		{"exactly at cutoff", "Mon, 01 Apr 2024 00:00:00 +0000", true},
		{"before cutoff", "Sun, 31 Mar 2024 23:00:00 +0000", false},
		// 23:30 -0700 is Apr 1 06:30 UTC, but the cutoff applies in the
		// item's own zone, where it is still March 31.
		{"before cutoff in local zone", "Sun, 31 Mar 2024 23:30:00 -0700", false},
		// Unpadded days and omitted seconds still parse; the cutoff must not
		// be bypassed by treating these dates as absent.
		{"before cutoff, single-digit day", "Tue, 2 Jan 2024 10:00:00 +0000", false},
		{"before cutoff, no seconds", "Sun, 31 Mar 2024 23:00 +0000", false},
		{"no publish date", "", true},
		{"unparseable publish date", "yesterday-ish", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := testSource()
			source.MinDate = &minDate

			enricher := NewEnricher(&fakeResolver{}, testutil.NullLogger())
			channel := &models.Channel{Items: []models.ChannelItem{
				{Link: "https://example.com/post", PubDate: tt.pubDate},
			}}

			batch := enricher.EnrichChannel(context.Background(), source, channel, time.Now().UTC())

			if got := len(batch.Items) == 1; got != tt.want {
				t.Errorf("item survived = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEnrichChannelCollectsTagNames(t *testing.T) {
	enricher := NewEnricher(&fakeResolver{}, testutil.NullLogger())

	channel := &models.Channel{Items: []models.ChannelItem{
		{Link: "https://example.com/a", Categories: []string{"Tech", "GO"}},
		{Link: "https://example.com/b", Categories: []string{"tech", "News", ""}},
	}}

	batch := enricher.EnrichChannel(context.Background(), testSource(), channel, time.Now().UTC())

	want := map[string]bool{"tech": true, "go": true, "news": true}
	if !reflect.DeepEqual(batch.TagNames, want) {
		t.Errorf("got tag names %v, want %v", batch.TagNames, want)
	}
}

func TestParsePubDate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *time.Time
	}{
		{
			name: "numeric zone",
			raw:  "Wed, 01 May 2024 10:30:00 +0200",
			want: timePtr(time.Date(2024, 5, 1, 10, 30, 0, 0, time.FixedZone("", 2*60*60))),
		},
		{
			name: "named zone",
			raw:  "Wed, 01 May 2024 10:30:00 UTC",
			want: timePtr(time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)),
		},
		{
			name: "single-digit day",
			raw:  "Wed, 1 May 2024 10:30:00 +0000",
			want: timePtr(time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)),
		},
		{
			name: "no seconds",
			raw:  "Wed, 01 May 2024 10:30 +0000",
			want: timePtr(time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)),
		},
		{
			name: "single-digit day, no seconds, named zone",
			raw:  "Wed, 1 May 2024 10:30 UTC",
			want: timePtr(time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)),
		},
		{name: "empty", raw: "", want: nil},
		{name: "garbage", raw: "not a date", want: nil},
		{name: "iso 8601 rejected", raw: "2024-05-01T10:30:00Z", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parsePubDate(tt.raw)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			if got != nil && !got.Equal(*tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeriveTags(t *testing.T) {
	tests := []struct {
		name       string
		categories []string
		want       map[string]bool
	}{
		{"lowercases", []string{"Tech", "NEWS"}, map[string]bool{"tech": true, "news": true}},
		{"dedupes", []string{"go", "Go", "GO"}, map[string]bool{"go": true}},
		{"skips empty", []string{"", "go"}, map[string]bool{"go": true}},
		{"unicode", []string{"ØKONOMI"}, map[string]bool{"økonomi": true}},
		{"none", nil, map[string]bool{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deriveTags(tt.categories); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("deriveTags(%v) = %v, want %v", tt.categories, got, tt.want)
			}
		})
	}
}

func timePtr(t time.Time) *time.Time { return &t }
