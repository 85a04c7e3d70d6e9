package models

// WatchHistoryItem is one entry of a user's watch history as returned by
// the external watch-history store. Read-only from this backend's side.
type WatchHistoryItem struct {
	TMDBID        string  `json:"tmdb_id"`
	WatchProgress float64 `json:"watch_progress"`
	IsCompleted   bool    `json:"is_completed"`
}
