package recommend

import (
	"context"
	"math"
	"testing"

	"streamrec/models"
)

type mockHistorySource struct {
	items []models.WatchHistoryItem
	err   error
}

func (m *mockHistorySource) WatchHistory(ctx context.Context, userID string) ([]models.WatchHistoryItem, error) {
	return m.items, m.err
}

type mockEdgeSource struct {
	edges []models.ScoredEdge
	err   error
}

func (m *mockEdgeSource) ListForSources(tmdbIDs []string, targetType models.ContentType) ([]models.ScoredEdge, error) {
	return m.edges, m.err
}

func neighbor(id int64, tmdbID string, rating float64) models.Content {
	return models.Content{
		ID:          id,
		StreamID:    int(id),
		TMDBID:      &tmdbID,
		Name:        "Neighbor",
		ContentType: models.ContentTypeMovie,
		Rating:      rating,
	}
}

const scoreTolerance = 1e-9

func TestRecommend_EmptyHistory(t *testing.T) {
	svc := NewService(&mockHistorySource{}, &mockEdgeSource{})

	recs, err := svc.Recommend(context.Background(), "user1", models.ContentTypeMovie)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if recs == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(recs) != 0 {
		t.Errorf("expected no recommendations, got %d", len(recs))
	}
}

func TestRecommend_PartialWatchScoring(t *testing.T) {
	// M1 watched at progress 0.8, not completed. M2 similar at 0.5 with
	// rating 8.0: adjusted = 0.5 * (0.5 + 0.8) * 0.8 = 0.52. M3 similar at
	// 0.3 with rating 0: fully suppressed, ranked last.
	history := &mockHistorySource{items: []models.WatchHistoryItem{
		{TMDBID: "m1", WatchProgress: 0.8, IsCompleted: false},
	}}
	edges := &mockEdgeSource{edges: []models.ScoredEdge{
		{SourceTMDBID: "m1", Score: 0.5, Neighbor: neighbor(2, "m2", 8.0)},
		{SourceTMDBID: "m1", Score: 0.3, Neighbor: neighbor(3, "m3", 0)},
	}}

	svc := NewService(history, edges)
	recs, err := svc.Recommend(context.Background(), "user1", models.ContentTypeMovie)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(recs))
	}
	if recs[0].TMDBID != "m2" {
		t.Errorf("expected m2 ranked first, got %q", recs[0].TMDBID)
	}
	if recs[1].TMDBID != "m3" {
		t.Errorf("expected suppressed m3 ranked last, got %q", recs[1].TMDBID)
	}

	got := adjustScore(0.5, watchSignal{progress: 0.8}, 8.0)
	if math.Abs(got-0.52) > scoreTolerance {
		t.Errorf("adjusted score = %v, want 0.52", got)
	}
}

func TestRecommend_CompletionBoost(t *testing.T) {
	got := adjustScore(0.5, watchSignal{progress: 0.8, completed: true}, 8.0)
	// 0.5 * 1.2 * 0.8 = 0.48
	if math.Abs(got-0.48) > scoreTolerance {
		t.Errorf("adjusted score = %v, want 0.48", got)
	}
}

func TestAdjustScore_ZeroProgressKeepsHalfWeight(t *testing.T) {
	got := adjustScore(0.6, watchSignal{progress: 0}, 10)
	if math.Abs(got-0.3) > scoreTolerance {
		t.Errorf("adjusted score = %v, want 0.3", got)
	}
}

func TestRecommend_MaxAggregationAcrossSources(t *testing.T) {
	history := &mockHistorySource{items: []models.WatchHistoryItem{
		{TMDBID: "a", WatchProgress: 1, IsCompleted: true},
		{TMDBID: "b", WatchProgress: 0.1, IsCompleted: false},
	}}
	// Both watched items point at the same neighbor; the strong signal
	// must win, not the sum.
	edges := &mockEdgeSource{edges: []models.ScoredEdge{
		{SourceTMDBID: "a", Score: 0.5, Neighbor: neighbor(9, "n", 10)},
		{SourceTMDBID: "b", Score: 0.5, Neighbor: neighbor(9, "n", 10)},
	}}

	svc := NewService(history, edges)
	recs, err := svc.Recommend(context.Background(), "user1", models.ContentTypeMovie)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}

	// max(0.5*1.2*1.0, 0.5*0.6*1.0) = 0.6; a sum would give 0.9.
	fromA := adjustScore(0.5, watchSignal{progress: 1, completed: true}, 10)
	if math.Abs(fromA-0.6) > scoreTolerance {
		t.Errorf("expected winning contribution 0.6, got %v", fromA)
	}
}

func TestRecommend_ExcludesWatched(t *testing.T) {
	history := &mockHistorySource{items: []models.WatchHistoryItem{
		{TMDBID: "m1", WatchProgress: 1, IsCompleted: true},
		{TMDBID: "m2", WatchProgress: 0.3, IsCompleted: false},
	}}
	edges := &mockEdgeSource{edges: []models.ScoredEdge{
		// m1's best neighbor is m2, which the user already watched.
		{SourceTMDBID: "m1", Score: 0.9, Neighbor: neighbor(2, "m2", 9)},
		{SourceTMDBID: "m1", Score: 0.4, Neighbor: neighbor(3, "m3", 7)},
	}}

	svc := NewService(history, edges)
	recs, err := svc.Recommend(context.Background(), "user1", models.ContentTypeMovie)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	for _, r := range recs {
		if r.TMDBID == "m1" || r.TMDBID == "m2" {
			t.Errorf("recommended already-watched item %q", r.TMDBID)
		}
	}
	if len(recs) != 1 || recs[0].TMDBID != "m3" {
		t.Errorf("expected only m3, got %+v", recs)
	}
}

func TestRecommend_UnknownWatchedIDIsIgnored(t *testing.T) {
	history := &mockHistorySource{items: []models.WatchHistoryItem{
		{TMDBID: "known", WatchProgress: 0.5},
		{TMDBID: "ghost", WatchProgress: 0.9},
	}}
	// The store has no edges for "ghost"; and an edge may come back whose
	// source is not in the watched set at all (stale read) - both are
	// silently skipped.
	edges := &mockEdgeSource{edges: []models.ScoredEdge{
		{SourceTMDBID: "known", Score: 0.5, Neighbor: neighbor(5, "n5", 6)},
		{SourceTMDBID: "someone-else", Score: 0.9, Neighbor: neighbor(6, "n6", 9)},
	}}

	svc := NewService(history, edges)
	recs, err := svc.Recommend(context.Background(), "user1", models.ContentTypeMovie)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(recs) != 1 || recs[0].TMDBID != "n5" {
		t.Errorf("expected only the known source's neighbor, got %+v", recs)
	}
}

func TestRecommend_CapAndOrdering(t *testing.T) {
	history := &mockHistorySource{items: []models.WatchHistoryItem{
		{TMDBID: "src", WatchProgress: 1, IsCompleted: true},
	}}

	var scored []models.ScoredEdge
	for i := 1; i <= 30; i++ {
		scored = append(scored, models.ScoredEdge{
			SourceTMDBID: "src",
			Score:        float64(i) / 40.0,
			Neighbor:     neighbor(int64(100+i), "", 8),
		})
	}
	edges := &mockEdgeSource{edges: scored}

	svc := NewService(history, edges)
	recs, err := svc.Recommend(context.Background(), "user1", models.ContentTypeMovie)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	if len(recs) != maxRecommendations {
		t.Fatalf("expected %d recommendations, got %d", maxRecommendations, len(recs))
	}

	// Scores ascend with neighbor id in this fixture, so score-descending
	// output means id-descending output.
	for i := 1; i < len(recs); i++ {
		if recs[i-1].ID <= recs[i].ID {
			t.Errorf("output not score-descending at index %d: id %d before id %d", i, recs[i-1].ID, recs[i].ID)
		}
	}
	if recs[0].ID != 130 {
		t.Errorf("expected highest-scored neighbor first, got id %d", recs[0].ID)
	}
}

func TestRecommend_DeterministicTieBreak(t *testing.T) {
	history := &mockHistorySource{items: []models.WatchHistoryItem{
		{TMDBID: "src", WatchProgress: 1, IsCompleted: true},
	}}
	edges := &mockEdgeSource{edges: []models.ScoredEdge{
		{SourceTMDBID: "src", Score: 0.5, Neighbor: neighbor(7, "n7", 8)},
		{SourceTMDBID: "src", Score: 0.5, Neighbor: neighbor(4, "n4", 8)},
	}}

	svc := NewService(history, edges)
	for run := 0; run < 5; run++ {
		recs, err := svc.Recommend(context.Background(), "user1", models.ContentTypeMovie)
		if err != nil {
			t.Fatalf("Recommend() error = %v", err)
		}
		if len(recs) != 2 || recs[0].ID != 4 || recs[1].ID != 7 {
			t.Fatalf("tie not broken by content id ascending: %+v", recs)
		}
	}
}

func TestRecommend_NilGenresSerializedAsEmptyList(t *testing.T) {
	history := &mockHistorySource{items: []models.WatchHistoryItem{
		{TMDBID: "src", WatchProgress: 1, IsCompleted: true},
	}}
	edges := &mockEdgeSource{edges: []models.ScoredEdge{
		{SourceTMDBID: "src", Score: 0.5, Neighbor: neighbor(2, "n2", 8)},
	}}

	svc := NewService(history, edges)
	recs, err := svc.Recommend(context.Background(), "user1", models.ContentTypeMovie)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if recs[0].Genres == nil {
		t.Error("expected non-nil genres slice in output")
	}
}
