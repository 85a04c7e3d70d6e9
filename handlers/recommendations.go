package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"streamrec/models"
	"streamrec/services/history"
	"streamrec/services/recommend"
)

type recommendService interface {
	Recommend(ctx context.Context, userID string, targetType models.ContentType) ([]models.Recommendation, error)
}

var _ recommendService = (*recommend.Service)(nil)

// RecommendationsHandler serves ranked content recommendations.
type RecommendationsHandler struct {
	Service recommendService
}

func NewRecommendationsHandler(service recommendService) *RecommendationsHandler {
	return &RecommendationsHandler{Service: service}
}

// recommendationsResponse wraps the ranked list.
type recommendationsResponse struct {
	Recommendations []models.Recommendation `json:"recommendations"`
}

// Get handles GET /api/recommendations?user_id=..&content_type=..
// A user with no watch history gets an empty list, not an error.
func (h *RecommendationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	contentType := models.ContentType(r.URL.Query().Get("content_type"))
	if contentType == "" {
		contentType = models.ContentTypeMovie
	}

	recs, err := h.Service.Recommend(r.Context(), userID, contentType)
	if err != nil {
		if errors.Is(err, history.ErrUserIDRequired) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if recs == nil {
		recs = []models.Recommendation{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(recommendationsResponse{Recommendations: recs})
}
