package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"myfeed/internal/models"
)

// ItemStore persists ingested feed items in Postgres.
type ItemStore struct {
	db *DB
}

func NewItemStore(db *DB) *ItemStore {
	return &ItemStore{db: db}
}

const itemColumns = `id, link, title, description, author, published, image, favorite, done, source_id, source_link, created_at, updated_at`

// Insert stores a new item and fills in its generated id. A uniqueness
// violation on link returns ErrDuplicateLink; the existing row is never
// updated.
func (s *ItemStore) Insert(ctx context.Context, item *models.Item) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO items (link, title, description, author, published, image, favorite, done, source_id, source_link)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`,
		item.Link,
		nullString(item.Title),
		nullString(item.Description),
		nullString(item.Author),
		item.Published,
		nullString(item.Image),
		item.Favorite,
		item.Done,
		item.SourceID,
		nullString(item.SourceLink),
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert item %s: %w", item.Link, ErrDuplicateLink)
		}
		return fmt.Errorf("insert item %s: %w", item.Link, err)
	}
	return nil
}

func (s *ItemStore) GetByID(ctx context.Context, id int64) (*models.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Feed returns items created within the given window, newest first, each with
// its linked tag names aggregated.
func (s *ItemStore) Feed(ctx context.Context, window time.Duration, includeDone bool) ([]models.ItemWithTags, error) {
	cutoff := time.Now().Add(-window)

	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.link, i.title, i.description, i.author, i.published, i.image,
		       i.favorite, i.done, i.source_id, i.source_link, i.created_at, i.updated_at,
		       COALESCE(ARRAY_AGG(t.name) FILTER (WHERE t.name IS NOT NULL), '{}') AS tags
		FROM items i
		LEFT JOIN items_to_tags it ON i.id = it.item_id
		LEFT JOIN tags t ON it.tag_id = t.name
		WHERE i.created_at >= $1 AND ($2 OR i.done = false)
		GROUP BY i.id
		ORDER BY i.created_at DESC
	`, cutoff, includeDone)
	if err != nil {
		return nil, fmt.Errorf("query feed: %w", err)
	}
	defer rows.Close()

	result := make([]models.ItemWithTags, 0)
	for rows.Next() {
		var item models.Item
		var title, description, author, image, sourceLink sql.NullString
		var published sql.NullTime
		var sourceID sql.NullInt64
		var tags pq.StringArray

		if err := rows.Scan(
			&item.ID,
			&item.Link,
			&title,
			&description,
			&author,
			&published,
			&image,
			&item.Favorite,
			&item.Done,
			&sourceID,
			&sourceLink,
			&item.CreatedAt,
			&item.UpdatedAt,
			&tags,
		); err != nil {
			return nil, fmt.Errorf("scan feed item: %w", err)
		}

		applyNullableItemFields(&item, title, description, author, image, sourceLink, published, sourceID)
		result = append(result, models.ItemWithTags{Item: item, Tags: []string(tags)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feed items: %w", err)
	}

	return result, nil
}

// SetDone flips the user-owned done flag; ingestion never touches it.
func (s *ItemStore) SetDone(ctx context.Context, id int64, done bool) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE items SET done = $1, updated_at = NOW() WHERE id = $2`, done, id); err != nil {
		return fmt.Errorf("set item done: %w", err)
	}
	return nil
}

// SetFavorite flips the user-owned favorite flag.
func (s *ItemStore) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE items SET favorite = $1, updated_at = NOW() WHERE id = $2`, favorite, id); err != nil {
		return fmt.Errorf("set item favorite: %w", err)
	}
	return nil
}

func (s *ItemStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete item %d: %w", id, err)
	}
	return nil
}

// AddTags links existing tags to an item. The tags are expected to exist
// already; linking is idempotent.
func (s *ItemStore) AddTags(ctx context.Context, id int64, names []string) error {
	if len(names) == 0 {
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items_to_tags (item_id, tag_id)
		SELECT $1, name FROM tags WHERE name = ANY($2)
		ON CONFLICT DO NOTHING
	`, id, pq.Array(names))
	if err != nil {
		return fmt.Errorf("add item tags: %w", err)
	}
	return nil
}

func (s *ItemStore) RemoveTag(ctx context.Context, id int64, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM items_to_tags WHERE item_id = $1 AND tag_id = $2`, id, name)
	if err != nil {
		return fmt.Errorf("remove item tag: %w", err)
	}
	return nil
}

func scanItem(row rowScanner) (models.Item, error) {
	var item models.Item
	var title, description, author, image, sourceLink sql.NullString
	var published sql.NullTime
	var sourceID sql.NullInt64

	if err := row.Scan(
		&item.ID,
		&item.Link,
		&title,
		&description,
		&author,
		&published,
		&image,
		&item.Favorite,
		&item.Done,
		&sourceID,
		&sourceLink,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return item, err
		}
		return item, fmt.Errorf("scan item: %w", err)
	}

	applyNullableItemFields(&item, title, description, author, image, sourceLink, published, sourceID)
	return item, nil
}

func applyNullableItemFields(item *models.Item, title, description, author, image, sourceLink sql.NullString, published sql.NullTime, sourceID sql.NullInt64) {
	if title.Valid {
		item.Title = title.String
	}
	if description.Valid {
		item.Description = description.String
	}
	if author.Valid {
		item.Author = author.String
	}
	if image.Valid {
		item.Image = image.String
	}
	if sourceLink.Valid {
		item.SourceLink = sourceLink.String
	}
	if published.Valid {
		t := published.Time
		item.Published = &t
	}
	if sourceID.Valid {
		v := sourceID.Int64
		item.SourceID = &v
	}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
