package database_test

import (
	"context"
	"testing"
	"time"

	"myfeed/internal/database"
	"myfeed/internal/models"
	"myfeed/internal/testutil"
)

func newSource(name, url string) *models.Source {
	return &models.Source{
		Name:    name,
		URL:     url,
		LastPub: time.Now().UTC().Truncate(time.Second),
	}
}

func TestSourceStoreCRUD(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.ResetTables(t, db)
	store := database.NewSourceStore(db)
	ctx := context.Background()

	source := newSource("Example Blog", "https://example.com/feed.xml")
	if err := store.Insert(ctx, source); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if source.ID == 0 {
		t.Fatal("Insert did not fill in the generated id")
	}
	if source.CreatedAt.IsZero() || source.UpdatedAt.IsZero() {
		t.Error("Insert did not fill in timestamps")
	}

	got, err := store.GetByID(ctx, source.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetByID returned nil for an existing source")
	}
	if got.Name != "Example Blog" || got.URL != "https://example.com/feed.xml" {
		t.Errorf("got %+v", got)
	}
	if got.LastPoll != nil || got.TTL != nil || got.MinDate != nil {
		t.Errorf("nullable fields should start unset, got %+v", got)
	}

	// Bookkeeping update round-trips the nullable fields.
	now := time.Now().UTC().Truncate(time.Second)
	ttl := int64(120)
	got.LastPoll = &now
	got.TTL = &ttl
	got.Favorite = true
	if err := store.Update(ctx, got); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	updated, err := store.GetByID(ctx, source.ID)
	if err != nil {
		t.Fatalf("GetByID after update failed: %v", err)
	}
	if updated.LastPoll == nil || !updated.LastPoll.Equal(now) {
		t.Errorf("last_poll = %v, want %v", updated.LastPoll, now)
	}
	if updated.TTL == nil || *updated.TTL != 120 {
		t.Errorf("ttl = %v, want 120", updated.TTL)
	}
	if !updated.Favorite {
		t.Error("favorite flag did not persist")
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d sources, want 1", len(list))
	}

	if err := store.Delete(ctx, source.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	gone, err := store.GetByID(ctx, source.ID)
	if err != nil {
		t.Fatalf("GetByID after delete failed: %v", err)
	}
	if gone != nil {
		t.Error("source still present after delete")
	}
}

func TestSourceStoreGetByIDMissing(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.ResetTables(t, db)
	store := database.NewSourceStore(db)

	got, err := store.GetByID(context.Background(), 123456)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil for a missing source", got)
	}
}

func TestSourceStoreTags(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.ResetTables(t, db)
	sources := database.NewSourceStore(db)
	tags := database.NewTagStore(db)
	ctx := context.Background()

	source := newSource("Example Blog", "https://example.com/feed.xml")
	if err := sources.Insert(ctx, source); err != nil {
		t.Fatalf("Insert source failed: %v", err)
	}

	now := time.Now().UTC()
	if err := tags.InsertMany(ctx, []models.Tag{
		{Name: "tech", CreatedAt: now, UpdatedAt: now},
		{Name: "go", CreatedAt: now, UpdatedAt: now},
	}); err != nil {
		t.Fatalf("InsertMany failed: %v", err)
	}

	// Linking an unknown tag name is silently skipped.
	if err := sources.AddTags(ctx, source.ID, []string{"tech", "go", "missing"}); err != nil {
		t.Fatalf("AddTags failed: %v", err)
	}
	// Re-adding is a no-op.
	if err := sources.AddTags(ctx, source.ID, []string{"tech"}); err != nil {
		t.Fatalf("AddTags repeat failed: %v", err)
	}

	linked, err := sources.Tags(ctx, source.ID)
	if err != nil {
		t.Fatalf("Tags failed: %v", err)
	}
	if len(linked) != 2 {
		t.Fatalf("got %d linked tags, want 2", len(linked))
	}

	if err := sources.RemoveTag(ctx, source.ID, "go"); err != nil {
		t.Fatalf("RemoveTag failed: %v", err)
	}
	linked, err = sources.Tags(ctx, source.ID)
	if err != nil {
		t.Fatalf("Tags after remove failed: %v", err)
	}
	if len(linked) != 1 || linked[0].Name != "tech" {
		t.Errorf("got %v, want only tech", linked)
	}

	// Deleting the source cascades its tag links.
	if err := sources.Delete(ctx, source.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	remaining, err := tags.List(ctx)
	if err != nil {
		t.Fatalf("List tags failed: %v", err)
	}
	if len(remaining) != 2 {
		t.Errorf("tags themselves must survive a source delete, got %d", len(remaining))
	}
}
