package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"myfeed/internal/models"
)

// SourceStore persists configured feed sources in Postgres.
type SourceStore struct {
	db *DB
}

func NewSourceStore(db *DB) *SourceStore {
	return &SourceStore{db: db}
}

const sourceColumns = `id, name, url, last_pub, last_poll, ttl, min_date, favorite, created_at, updated_at`

func (s *SourceStore) List(ctx context.Context) ([]models.Source, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	sources := make([]models.Source, 0)
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}

	return sources, nil
}

func (s *SourceStore) GetByID(ctx context.Context, id int64) (*models.Source, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE id = $1`, id)
	source, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &source, nil
}

// Insert stores a new source and fills in its generated id.
func (s *SourceStore) Insert(ctx context.Context, source *models.Source) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sources (name, url, last_pub, last_poll, ttl, min_date, favorite)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`,
		source.Name,
		source.URL,
		source.LastPub,
		source.LastPoll,
		source.TTL,
		source.MinDate,
		source.Favorite,
	).Scan(&source.ID, &source.CreatedAt, &source.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	return nil
}

// Update rewrites the mutable columns of a source, including the poll
// bookkeeping fields.
func (s *SourceStore) Update(ctx context.Context, source *models.Source) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sources
		SET name = $1, url = $2, last_pub = $3, last_poll = $4, ttl = $5,
		    min_date = $6, favorite = $7, updated_at = NOW()
		WHERE id = $8
	`,
		source.Name,
		source.URL,
		source.LastPub,
		source.LastPoll,
		source.TTL,
		source.MinDate,
		source.Favorite,
		source.ID,
	)
	if err != nil {
		return fmt.Errorf("update source %d: %w", source.ID, err)
	}
	return nil
}

func (s *SourceStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete source %d: %w", id, err)
	}
	return nil
}

// Tags returns the tags explicitly assigned to a source.
func (s *SourceStore) Tags(ctx context.Context, id int64) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name, t.background_color, t.text_color, t.border_color, t.created_at, t.updated_at
		FROM tags t
		JOIN sources_to_tags st ON t.name = st.tag_id
		WHERE st.source_id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list source tags: %w", err)
	}
	defer rows.Close()

	return collectTags(rows)
}

// AddTags links existing tags to a source. Re-adding a link is a no-op.
func (s *SourceStore) AddTags(ctx context.Context, id int64, names []string) error {
	if len(names) == 0 {
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sources_to_tags (source_id, tag_id)
		SELECT $1, name FROM tags WHERE name = ANY($2)
		ON CONFLICT DO NOTHING
	`, id, pq.Array(names))
	if err != nil {
		return fmt.Errorf("add source tags: %w", err)
	}
	return nil
}

func (s *SourceStore) RemoveTag(ctx context.Context, id int64, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sources_to_tags WHERE source_id = $1 AND tag_id = $2`, id, name)
	if err != nil {
		return fmt.Errorf("remove source tag: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSource(row rowScanner) (models.Source, error) {
	var source models.Source
	var lastPoll, minDate sql.NullTime
	var ttl sql.NullInt64

	if err := row.Scan(
		&source.ID,
		&source.Name,
		&source.URL,
		&source.LastPub,
		&lastPoll,
		&ttl,
		&minDate,
		&source.Favorite,
		&source.CreatedAt,
		&source.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return source, err
		}
		return source, fmt.Errorf("scan source: %w", err)
	}

	if lastPoll.Valid {
		t := lastPoll.Time
		source.LastPoll = &t
	}
	if minDate.Valid {
		t := minDate.Time
		source.MinDate = &t
	}
	if ttl.Valid {
		v := ttl.Int64
		source.TTL = &v
	}

	return source, nil
}
