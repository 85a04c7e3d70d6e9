package models

import "time"

// ContentType partitions the catalog. Similarity is only ever computed
// within a single content type.
type ContentType string

const (
	ContentTypeMovie  ContentType = "movie"
	ContentTypeSeries ContentType = "series"
	// ContentTypeRejectedMovie marks a placeholder row for a stream id whose
	// provider metadata was unusable. Keeping the row prevents re-fetching
	// the same bad id on every catalog refresh.
	ContentTypeRejectedMovie ContentType = "rejected_movie"
)

// Content is one catalog entry (movie or series) as stored in the database.
type Content struct {
	ID          int64       `json:"id"`
	StreamID    int         `json:"streamId"`
	TMDBID      *string     `json:"tmdbId,omitempty"`
	Name        string      `json:"name"`
	ContentType ContentType `json:"contentType"`
	Poster      string      `json:"poster,omitempty"`
	Rating      float64     `json:"rating"`
	Genres      []string    `json:"genres"`
	Cast        []string    `json:"cast"`
	Director    string      `json:"director,omitempty"`
	CategoryID  string      `json:"categoryId,omitempty"`
	Description string      `json:"description,omitempty"`
	LastUpdated time.Time   `json:"lastUpdated"`
}

// SimilarityEdge is a directed, scored link from one content item to a
// ranked neighbor of the same content type.
type SimilarityEdge struct {
	ContentID        int64   `json:"contentId"`
	SimilarContentID int64   `json:"similarContentId"`
	Score            float64 `json:"score"`
}

// ScoredEdge is a similarity edge joined with the context the scorer needs:
// the source item's TMDB id and the full neighbor row.
type ScoredEdge struct {
	SourceTMDBID string
	Score        float64
	Neighbor     Content
}

// Recommendation is one entry of the ranked output returned to clients.
type Recommendation struct {
	ID          int64       `json:"id"`
	TMDBID      string      `json:"tmdbId"`
	Name        string      `json:"name"`
	Poster      string      `json:"poster"`
	Rating      float64     `json:"rating"`
	Genres      []string    `json:"genres"`
	Description string      `json:"description"`
	ContentType ContentType `json:"contentType"`
	StreamID    int         `json:"streamId"`
}
