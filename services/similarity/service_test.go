package similarity

import (
	"context"
	"fmt"
	"testing"

	"streamrec/models"
)

type fakeContentSource struct {
	items map[models.ContentType][]models.Content
	err   error
}

func (f *fakeContentSource) ListByType(ct models.ContentType) ([]models.Content, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items[ct], nil
}

type fakeEdgeStore struct {
	replaced map[models.ContentType][]models.SimilarityEdge
	calls    int
}

func (f *fakeEdgeStore) ReplaceForContentType(ct models.ContentType, edges []models.SimilarityEdge) error {
	if f.replaced == nil {
		f.replaced = make(map[models.ContentType][]models.SimilarityEdge)
	}
	f.replaced[ct] = edges
	f.calls++
	return nil
}

func movieFixture(id int64, name, genre, description string) models.Content {
	return models.Content{
		ID:          id,
		StreamID:    int(id),
		Name:        name,
		ContentType: models.ContentTypeMovie,
		Genres:      []string{genre},
		Description: description,
	}
}

func TestCompute_StoresEdges(t *testing.T) {
	source := &fakeContentSource{items: map[models.ContentType][]models.Content{
		models.ContentTypeMovie: {
			movieFixture(1, "Star Quest", "scifi", "galaxy exploration starship crew"),
			movieFixture(2, "Star Quest Returns", "scifi", "galaxy exploration starship sequel"),
			movieFixture(3, "Pasta Masters", "cooking", "chefs compete preparing pasta dishes"),
		},
	}}
	store := &fakeEdgeStore{}

	svc := NewService(source, store)
	if err := svc.Compute(context.Background(), models.ContentTypeMovie); err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	edges := store.replaced[models.ContentTypeMovie]
	if len(edges) == 0 {
		t.Fatal("expected edges to be stored")
	}

	for _, e := range edges {
		if e.ContentID == e.SimilarContentID {
			t.Errorf("self-edge stored for content %d", e.ContentID)
		}
		if e.Score <= 0.01 {
			t.Errorf("edge %d->%d stored with score %v <= 0.01", e.ContentID, e.SimilarContentID, e.Score)
		}
		if e.Score > 1.0+1e-9 {
			t.Errorf("edge %d->%d score %v above 1.0", e.ContentID, e.SimilarContentID, e.Score)
		}
	}

	// The two related movies must point at each other ahead of the outlier.
	var topOf1 *models.SimilarityEdge
	for i, e := range edges {
		if e.ContentID == 1 {
			topOf1 = &edges[i]
			break
		}
	}
	if topOf1 == nil || topOf1.SimilarContentID != 2 {
		t.Errorf("expected movie 1's top neighbor to be movie 2, got %+v", topOf1)
	}
}

func TestCompute_EmptyCatalogIsNoOp(t *testing.T) {
	source := &fakeContentSource{items: map[models.ContentType][]models.Content{}}
	store := &fakeEdgeStore{}

	svc := NewService(source, store)
	if err := svc.Compute(context.Background(), models.ContentTypeMovie); err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if store.calls != 0 {
		t.Errorf("expected no store calls for an empty catalog, got %d", store.calls)
	}
}

func TestCompute_NeighborCap(t *testing.T) {
	// 30 near-identical movies: every item has 29 candidates above the
	// score floor but only 20 may be kept.
	var items []models.Content
	for i := int64(1); i <= 30; i++ {
		items = append(items, movieFixture(i, fmt.Sprintf("Heist Crew %d", i), "crime", "crew plans elaborate heist vault"))
	}
	source := &fakeContentSource{items: map[models.ContentType][]models.Content{
		models.ContentTypeMovie: items,
	}}
	store := &fakeEdgeStore{}

	svc := NewService(source, store)
	if err := svc.Compute(context.Background(), models.ContentTypeMovie); err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	perSource := make(map[int64]int)
	for _, e := range store.replaced[models.ContentTypeMovie] {
		perSource[e.ContentID]++
	}
	for id, n := range perSource {
		if n > maxNeighbors {
			t.Errorf("content %d has %d outgoing edges, cap is %d", id, n, maxNeighbors)
		}
	}
}

func TestCompute_DeterministicTieBreak(t *testing.T) {
	// Items 2 and 3 are identical, so item 1 sees a score tie; the lower
	// content id must come first.
	source := &fakeContentSource{items: map[models.ContentType][]models.Content{
		models.ContentTypeMovie: {
			movieFixture(1, "Deep Dive", "documentary", "ocean trench exploration submarine"),
			movieFixture(3, "Deep Dive Again", "documentary", "ocean trench exploration submarine"),
			movieFixture(2, "Deep Dive Again", "documentary", "ocean trench exploration submarine"),
		},
	}}

	var first, second []models.SimilarityEdge
	for run := 0; run < 2; run++ {
		store := &fakeEdgeStore{}
		svc := NewService(source, store)
		if err := svc.Compute(context.Background(), models.ContentTypeMovie); err != nil {
			t.Fatalf("Compute() error = %v", err)
		}
		if run == 0 {
			first = store.replaced[models.ContentTypeMovie]
		} else {
			second = store.replaced[models.ContentTypeMovie]
		}
	}

	if len(first) != len(second) {
		t.Fatalf("edge counts differ across runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("edge %d differs across runs: %+v vs %+v", i, first[i], second[i])
		}
	}

	for _, e := range first {
		if e.ContentID == 1 {
			if e.SimilarContentID != 2 {
				t.Errorf("tie not broken by content id: first neighbor of 1 is %d, want 2", e.SimilarContentID)
			}
			break
		}
	}
}

func TestComputeAll_CoversMoviesAndSeries(t *testing.T) {
	source := &fakeContentSource{items: map[models.ContentType][]models.Content{
		models.ContentTypeMovie: {
			movieFixture(1, "Twin Peaks Film", "mystery", "strange town murder investigation"),
			movieFixture(2, "Twin Peaks Film Two", "mystery", "strange town murder investigation continues"),
		},
		models.ContentTypeSeries: {
			{ID: 10, StreamID: 10, Name: "Lost Signal", ContentType: models.ContentTypeSeries, Genres: []string{"mystery"}, Description: "island survivors strange signal"},
			{ID: 11, StreamID: 11, Name: "Lost Signal Rebooted", ContentType: models.ContentTypeSeries, Genres: []string{"mystery"}, Description: "island survivors strange signal again"},
		},
	}}
	store := &fakeEdgeStore{}

	svc := NewService(source, store)
	if err := svc.ComputeAll(context.Background()); err != nil {
		t.Fatalf("ComputeAll() error = %v", err)
	}

	if len(store.replaced[models.ContentTypeMovie]) == 0 {
		t.Error("expected movie edges")
	}
	if len(store.replaced[models.ContentTypeSeries]) == 0 {
		t.Error("expected series edges")
	}
}

func TestCompute_CancelledContext(t *testing.T) {
	source := &fakeContentSource{items: map[models.ContentType][]models.Content{
		models.ContentTypeMovie: {
			movieFixture(1, "Any", "any", "any text here"),
			movieFixture(2, "Other", "any", "other text here"),
		},
	}}
	store := &fakeEdgeStore{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewService(source, store)
	if err := svc.Compute(ctx, models.ContentTypeMovie); err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if store.calls != 0 {
		t.Error("cancelled run must not touch the store")
	}
}
