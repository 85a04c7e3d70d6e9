package recommend

import (
	"context"
	"fmt"
	"sort"

	"streamrec/models"
)

const (
	// maxRecommendations caps the ranked output. Protocol constant shared
	// with the similarity engine's per-item neighbor cap.
	maxRecommendations = 20
	// completionBoost rewards neighbors of content the user finished.
	completionBoost = 1.2
	// partialFloor keeps a half-weight signal even at zero progress; the
	// similarity link alone still carries information.
	partialFloor = 0.5
)

// HistorySource reads a user's watch history.
type HistorySource interface {
	WatchHistory(ctx context.Context, userID string) ([]models.WatchHistoryItem, error)
}

// EdgeSource reads stored similarity edges for a set of watched sources.
type EdgeSource interface {
	ListForSources(tmdbIDs []string, targetType models.ContentType) ([]models.ScoredEdge, error)
}

// Service turns a user's watch history and the stored similarity graph
// into a ranked recommendation list.
type Service struct {
	history HistorySource
	edges   EdgeSource
}

// NewService creates a recommendation scorer.
func NewService(history HistorySource, edges EdgeSource) *Service {
	return &Service{history: history, edges: edges}
}

// watchSignal is the per-watched-item state the scorer keys on.
type watchSignal struct {
	progress  float64
	completed bool
}

// Recommend returns up to 20 items of the target content type, ranked by
// similarity to the user's watch history. An empty history yields an empty
// list, not an error.
func (s *Service) Recommend(ctx context.Context, userID string, targetType models.ContentType) ([]models.Recommendation, error) {
	watchHistory, err := s.history.WatchHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch watch history: %w", err)
	}
	if len(watchHistory) == 0 {
		return []models.Recommendation{}, nil
	}

	watched := make(map[string]watchSignal, len(watchHistory))
	for _, item := range watchHistory {
		if item.TMDBID == "" {
			continue
		}
		watched[item.TMDBID] = watchSignal{
			progress:  item.WatchProgress,
			completed: item.IsCompleted,
		}
	}
	if len(watched) == 0 {
		return []models.Recommendation{}, nil
	}

	sourceIDs := make([]string, 0, len(watched))
	for id := range watched {
		sourceIDs = append(sourceIDs, id)
	}
	sort.Strings(sourceIDs)

	edges, err := s.edges.ListForSources(sourceIDs, targetType)
	if err != nil {
		return nil, fmt.Errorf("list similarity edges: %w", err)
	}

	// Aggregate by neighbor with max: one strong signal dominates many
	// weak ones.
	scores := make(map[int64]float64)
	neighbors := make(map[int64]models.Content)
	for _, edge := range edges {
		signal, ok := watched[edge.SourceTMDBID]
		if !ok {
			continue
		}

		score := adjustScore(edge.Score, signal, edge.Neighbor.Rating)

		id := edge.Neighbor.ID
		if prev, ok := scores[id]; !ok || score > prev {
			scores[id] = score
			neighbors[id] = edge.Neighbor
		}
	}

	// Never recommend what the user already watched.
	candidates := make([]models.Content, 0, len(neighbors))
	for id, nb := range neighbors {
		if nb.TMDBID != nil {
			if _, seen := watched[*nb.TMDBID]; seen {
				continue
			}
		}
		candidates = append(candidates, neighbors[id])
	}

	sort.Slice(candidates, func(a, b int) bool {
		sa, sb := scores[candidates[a].ID], scores[candidates[b].ID]
		if sa != sb {
			return sa > sb
		}
		return candidates[a].ID < candidates[b].ID
	})

	if len(candidates) > maxRecommendations {
		candidates = candidates[:maxRecommendations]
	}

	recs := make([]models.Recommendation, len(candidates))
	for i, c := range candidates {
		recs[i] = serializeContent(c)
	}
	return recs, nil
}

// adjustScore applies the watch-signal and rating adjustments to a stored
// similarity score. Completed sources get a fixed boost; partial watches
// scale with progress above a floor. The neighbor's rating acts as a
// multiplicative quality prior, so an unrated neighbor scores zero.
func adjustScore(base float64, signal watchSignal, neighborRating float64) float64 {
	score := base
	if signal.completed {
		score *= completionBoost
	} else {
		score *= partialFloor + signal.progress
	}
	return score * (neighborRating / 10.0)
}

func serializeContent(c models.Content) models.Recommendation {
	tmdbID := ""
	if c.TMDBID != nil {
		tmdbID = *c.TMDBID
	}
	genres := c.Genres
	if genres == nil {
		genres = []string{}
	}
	return models.Recommendation{
		ID:          c.ID,
		TMDBID:      tmdbID,
		Name:        c.Name,
		Poster:      c.Poster,
		Rating:      c.Rating,
		Genres:      genres,
		Description: c.Description,
		ContentType: c.ContentType,
		StreamID:    c.StreamID,
	}
}
