package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"streamrec/models"
)

// insertBatchSize bounds the number of rows per bulk INSERT while replacing
// a content type's similarity edges. Purely a chunking mechanism; batch
// boundaries carry no meaning.
const insertBatchSize = 1000

// SimilarityRepository stores the top-K similarity graph.
type SimilarityRepository struct {
	db *sql.DB
}

// NewSimilarityRepository creates a similarity repository.
func NewSimilarityRepository(db *sql.DB) *SimilarityRepository {
	return &SimilarityRepository{db: db}
}

// ReplaceForContentType atomically replaces every similarity edge whose
// source content has the given type with the provided edges. Delete and
// insert run in one transaction so readers never observe a half-rebuilt
// type.
func (r *SimilarityRepository) ReplaceForContentType(contentType models.ContentType, edges []models.SimilarityEdge) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		DELETE FROM content_similarity
		WHERE content_id IN (SELECT id FROM content WHERE content_type = ?)`,
		string(contentType))
	if err != nil {
		return fmt.Errorf("delete edges for type %s: %w", contentType, err)
	}

	for start := 0; start < len(edges); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(edges) {
			end = len(edges)
		}
		if err := insertEdgeBatch(tx, edges[start:end]); err != nil {
			return fmt.Errorf("insert edge batch: %w", err)
		}
	}

	return tx.Commit()
}

func insertEdgeBatch(tx *sql.Tx, batch []models.SimilarityEdge) error {
	if len(batch) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO content_similarity (content_id, similar_content_id, similarity_score) VALUES `)
	args := make([]any, 0, len(batch)*3)
	for i, e := range batch {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?)")
		args = append(args, e.ContentID, e.SimilarContentID, e.Score)
	}

	_, err := tx.Exec(sb.String(), args...)
	return err
}

// ListForSources returns every edge whose source content's TMDB id is in
// the given set and whose neighbor has the target content type. Each result
// carries the source TMDB id and the full neighbor row, ordered by edge id
// for deterministic iteration.
func (r *SimilarityRepository) ListForSources(tmdbIDs []string, targetType models.ContentType) ([]models.ScoredEdge, error) {
	if len(tmdbIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(tmdbIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(tmdbIDs)+1)
	for _, id := range tmdbIDs {
		args = append(args, id)
	}
	args = append(args, string(targetType))

	rows, err := r.db.Query(`
		SELECT src.tmdb_id, cs.similarity_score, `+prefixedContentColumns("dst")+`
		FROM content_similarity cs
		JOIN content src ON src.id = cs.content_id
		JOIN content dst ON dst.id = cs.similar_content_id
		WHERE src.tmdb_id IN (`+placeholders+`) AND dst.content_type = ?
		ORDER BY cs.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list edges for sources: %w", err)
	}
	defer rows.Close()

	var edges []models.ScoredEdge
	for rows.Next() {
		var e models.ScoredEdge
		var contentType, genres, cast string
		var nb = &e.Neighbor
		if err := rows.Scan(&e.SourceTMDBID, &e.Score,
			&nb.ID, &nb.StreamID, &nb.TMDBID, &nb.Name, &contentType,
			&nb.Poster, &nb.Rating, &genres, &cast, &nb.Director,
			&nb.CategoryID, &nb.Description, &nb.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan edge row: %w", err)
		}
		nb.ContentType = models.ContentType(contentType)
		unmarshalStringList(genres, &nb.Genres)
		unmarshalStringList(cast, &nb.Cast)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// CountForContentType returns the number of stored edges whose source
// content has the given type.
func (r *SimilarityRepository) CountForContentType(contentType models.ContentType) (int, error) {
	row := r.db.QueryRow(`
		SELECT COUNT(*) FROM content_similarity cs
		JOIN content src ON src.id = cs.content_id
		WHERE src.content_type = ?`, string(contentType))
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count edges: %w", err)
	}
	return n, nil
}

// ListBySource returns the stored outgoing edges for one source content id,
// score descending.
func (r *SimilarityRepository) ListBySource(contentID int64) ([]models.SimilarityEdge, error) {
	rows, err := r.db.Query(`
		SELECT content_id, similar_content_id, similarity_score
		FROM content_similarity
		WHERE content_id = ?
		ORDER BY similarity_score DESC, similar_content_id`, contentID)
	if err != nil {
		return nil, fmt.Errorf("list edges by source: %w", err)
	}
	defer rows.Close()

	var edges []models.SimilarityEdge
	for rows.Next() {
		var e models.SimilarityEdge
		if err := rows.Scan(&e.ContentID, &e.SimilarContentID, &e.Score); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func prefixedContentColumns(alias string) string {
	cols := strings.Split(contentColumns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

func unmarshalStringList(raw string, dst *[]string) {
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		*dst = nil
	}
}
