package similarity

import (
	"context"
	"fmt"
	"log"
	"sort"

	"streamrec/models"
)

const (
	// maxNeighbors is the number of neighbors retained per item. Shared
	// protocol constant with the recommendation scorer; not configurable.
	maxNeighbors = 20
	// minSimilarityScore is the floor below which an edge is not worth
	// storing. Bounds store growth.
	minSimilarityScore = 0.01
)

// ContentSource lists catalog content for vectorization.
type ContentSource interface {
	ListByType(contentType models.ContentType) ([]models.Content, error)
}

// EdgeStore persists the computed similarity graph.
type EdgeStore interface {
	ReplaceForContentType(contentType models.ContentType, edges []models.SimilarityEdge) error
}

// Service rebuilds the per-content-type top-K similarity graph from the
// full current catalog.
type Service struct {
	content ContentSource
	edges   EdgeStore
}

// NewService creates a similarity engine.
func NewService(content ContentSource, edges EdgeStore) *Service {
	return &Service{content: content, edges: edges}
}

// ComputeAll recomputes similarities for every recommendable content type.
func (s *Service) ComputeAll(ctx context.Context) error {
	for _, ct := range []models.ContentType{models.ContentTypeMovie, models.ContentTypeSeries} {
		if err := s.Compute(ctx, ct); err != nil {
			return fmt.Errorf("compute %s similarities: %w", ct, err)
		}
	}
	return nil
}

// Compute rebuilds the similarity graph for one content type. The previous
// edges for the type are only replaced once a non-empty feature corpus has
// been vectorized; an empty catalog is a no-op, never a wipe. Edges for
// other content types are never touched.
func (s *Service) Compute(ctx context.Context, contentType models.ContentType) error {
	items, err := s.content.ListByType(contentType)
	if err != nil {
		return fmt.Errorf("list %s content: %w", contentType, err)
	}
	if len(items) == 0 {
		log.Printf("[similarity] no %s content, skipping", contentType)
		return nil
	}

	features := buildFeatureCorpus(items)
	if len(features) == 0 {
		log.Printf("[similarity] empty %s feature corpus, skipping", contentType)
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// Fresh vectorizer per run: vocabulary must never leak across runs or
	// between content types.
	vectors := newVectorizer().fitTransform(features)
	matrix := cosineMatrix(vectors)

	if err := ctx.Err(); err != nil {
		return err
	}

	edges := collectTopEdges(items, matrix)

	if err := s.edges.ReplaceForContentType(contentType, edges); err != nil {
		return fmt.Errorf("replace %s edges: %w", contentType, err)
	}

	log.Printf("[similarity] stored %d edges for %d %s items", len(edges), len(items), contentType)
	return nil
}

// collectTopEdges extracts, for every item, its top neighbors by similarity
// score. Self-edges are excluded, scores must exceed minSimilarityScore,
// and at most maxNeighbors edges are kept per item. Ties are broken by
// content id ascending so the selection is deterministic.
func collectTopEdges(items []models.Content, matrix [][]float64) []models.SimilarityEdge {
	var edges []models.SimilarityEdge
	order := make([]int, len(items))

	for idx := range items {
		for i := range order {
			order[i] = i
		}
		row := matrix[idx]
		sort.SliceStable(order, func(a, b int) bool {
			if row[order[a]] != row[order[b]] {
				return row[order[a]] > row[order[b]]
			}
			return items[order[a]].ID < items[order[b]].ID
		})

		kept := 0
		for _, j := range order {
			if j == idx {
				continue
			}
			if kept >= maxNeighbors {
				break
			}
			if row[j] <= minSimilarityScore {
				break
			}
			edges = append(edges, models.SimilarityEdge{
				ContentID:        items[idx].ID,
				SimilarContentID: items[j].ID,
				Score:            row[j],
			})
			kept++
		}
	}
	return edges
}
