package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"streamrec/models"
)

// ContentRepository provides access to catalog content rows.
type ContentRepository struct {
	db *sql.DB
}

// NewContentRepository creates a content repository.
func NewContentRepository(db *sql.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

const contentColumns = `id, stream_id, tmdb_id, name, content_type, poster, rating, genres, cast_members, director, category_id, description, last_updated`

// UpsertContent inserts a content row keyed on stream_id, replacing all
// metadata fields if the stream id already exists (update-or-create).
func (r *ContentRepository) UpsertContent(c *models.Content) error {
	genres, err := marshalStringList(c.Genres)
	if err != nil {
		return fmt.Errorf("marshal genres: %w", err)
	}
	cast, err := marshalStringList(c.Cast)
	if err != nil {
		return fmt.Errorf("marshal cast: %w", err)
	}

	now := time.Now().UTC()
	res, err := r.db.Exec(`
		INSERT INTO content (stream_id, tmdb_id, name, content_type, poster, rating, genres, cast_members, director, category_id, description, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (stream_id) DO UPDATE SET
			tmdb_id = excluded.tmdb_id,
			name = excluded.name,
			content_type = excluded.content_type,
			poster = excluded.poster,
			rating = excluded.rating,
			genres = excluded.genres,
			cast_members = excluded.cast_members,
			director = excluded.director,
			category_id = excluded.category_id,
			description = excluded.description,
			last_updated = excluded.last_updated`,
		c.StreamID, c.TMDBID, c.Name, string(c.ContentType), c.Poster, c.Rating,
		genres, cast, c.Director, c.CategoryID, c.Description, now)
	if err != nil {
		return fmt.Errorf("upsert content: %w", err)
	}

	c.LastUpdated = now

	if id, err := res.LastInsertId(); err == nil && id > 0 {
		c.ID = id
	}
	// On conflict-update LastInsertId may not reflect the existing row, so
	// always resolve the id through the unique key.
	row := r.db.QueryRow(`SELECT id FROM content WHERE stream_id = ?`, c.StreamID)
	if err := row.Scan(&c.ID); err != nil {
		return fmt.Errorf("resolve content id: %w", err)
	}
	return nil
}

// ListByType returns all content of the given type, ordered by id for
// deterministic iteration.
func (r *ContentRepository) ListByType(contentType models.ContentType) ([]models.Content, error) {
	rows, err := r.db.Query(`SELECT `+contentColumns+` FROM content WHERE content_type = ? ORDER BY id`, string(contentType))
	if err != nil {
		return nil, fmt.Errorf("list content by type: %w", err)
	}
	defer rows.Close()
	return scanContentRows(rows)
}

// StreamIDsByTypes returns the set of stream ids whose content type matches
// any of the given types.
func (r *ContentRepository) StreamIDsByTypes(types ...models.ContentType) (map[int]bool, error) {
	if len(types) == 0 {
		return map[int]bool{}, nil
	}

	placeholders := strings.Repeat("?,", len(types))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(types))
	for i, t := range types {
		args[i] = string(t)
	}

	rows, err := r.db.Query(`SELECT stream_id FROM content WHERE content_type IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("list stream ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stream id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// GetByStreamID returns the content row with the given stream id, or nil if
// no such row exists.
func (r *ContentRepository) GetByStreamID(streamID int) (*models.Content, error) {
	row := r.db.QueryRow(`SELECT `+contentColumns+` FROM content WHERE stream_id = ?`, streamID)
	c, err := scanContent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get content by stream id: %w", err)
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContent(row rowScanner) (*models.Content, error) {
	var c models.Content
	var contentType, genres, cast string
	if err := row.Scan(&c.ID, &c.StreamID, &c.TMDBID, &c.Name, &contentType,
		&c.Poster, &c.Rating, &genres, &cast, &c.Director, &c.CategoryID,
		&c.Description, &c.LastUpdated); err != nil {
		return nil, err
	}
	c.ContentType = models.ContentType(contentType)

	if err := json.Unmarshal([]byte(genres), &c.Genres); err != nil {
		c.Genres = nil
	}
	if err := json.Unmarshal([]byte(cast), &c.Cast); err != nil {
		c.Cast = nil
	}
	return &c, nil
}

func scanContentRows(rows *sql.Rows) ([]models.Content, error) {
	var items []models.Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content row: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

func marshalStringList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
