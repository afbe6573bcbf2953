package database

import (
	"context"
	"database/sql"
	"fmt"

	"myfeed/internal/models"
)

// TagStore persists tags in Postgres. Tag names are globally unique.
type TagStore struct {
	db *DB
}

func NewTagStore(db *DB) *TagStore {
	return &TagStore{db: db}
}

const tagColumns = `name, background_color, text_color, border_color, created_at, updated_at`

func (s *TagStore) List(ctx context.Context) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+tagColumns+` FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	return collectTags(rows)
}

func (s *TagStore) GetByName(ctx context.Context, name string) (*models.Tag, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tagColumns+` FROM tags WHERE name = $1`, name)
	tag, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (s *TagStore) Insert(ctx context.Context, tag *models.Tag) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tags (name, background_color, text_color, border_color)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`,
		tag.Name,
		nullString(tag.BackgroundColor),
		nullString(tag.TextColor),
		nullString(tag.BorderColor),
	).Scan(&tag.CreatedAt, &tag.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert tag %s: %w", tag.Name, err)
	}
	return nil
}

// InsertMany creates any tags that don't exist yet. Name collisions are
// skipped, leaving the existing rows untouched.
func (s *TagStore) InsertMany(ctx context.Context, tags []models.Tag) error {
	if len(tags) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tags (name, background_color, text_color, border_color)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("prepare tag insert: %w", err)
	}
	defer stmt.Close()

	for _, tag := range tags {
		if _, err := stmt.ExecContext(ctx,
			tag.Name,
			nullString(tag.BackgroundColor),
			nullString(tag.TextColor),
			nullString(tag.BorderColor),
		); err != nil {
			return fmt.Errorf("insert tag %s: %w", tag.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func (s *TagStore) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE name = $1`, name); err != nil {
		return fmt.Errorf("delete tag %s: %w", name, err)
	}
	return nil
}

func scanTag(row rowScanner) (models.Tag, error) {
	var tag models.Tag
	var background, text, border sql.NullString

	if err := row.Scan(&tag.Name, &background, &text, &border, &tag.CreatedAt, &tag.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return tag, err
		}
		return tag, fmt.Errorf("scan tag: %w", err)
	}

	if background.Valid {
		tag.BackgroundColor = background.String
	}
	if text.Valid {
		tag.TextColor = text.String
	}
	if border.Valid {
		tag.BorderColor = border.String
	}

	return tag, nil
}

func collectTags(rows *sql.Rows) ([]models.Tag, error) {
	tags := make([]models.Tag, 0)
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return tags, nil
}
