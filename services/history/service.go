package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"streamrec/config"
	"streamrec/models"
)

const (
	watchHistoryTimeout       = 15 * time.Second
	watchHistoryResponseLimit = 5 * 1024 * 1024
)

// ErrUserIDRequired is returned when a history lookup has no user id.
var ErrUserIDRequired = errors.New("user id is required")

// Service reads a user's watch history from the external store. The store
// is read-only from this backend's side; being unreachable means "no
// history", never a failure.
type Service struct {
	configManager *config.Manager
	httpc         *http.Client
}

// NewService creates a watch-history client.
func NewService(configManager *config.Manager) *Service {
	return &Service{
		configManager: configManager,
		httpc:         &http.Client{Timeout: watchHistoryTimeout},
	}
}

// WatchHistory returns the user's watch history. An unconfigured or
// unreachable store degrades to an empty history.
func (s *Service) WatchHistory(ctx context.Context, userID string) ([]models.WatchHistoryItem, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	settings, err := s.configManager.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if settings.WatchHistory.BaseURL == "" {
		log.Printf("[history] watch-history store not configured, returning empty history")
		return nil, nil
	}

	apiURL := fmt.Sprintf("%s/rest/v1/Watching?user=eq.%s&select=*",
		strings.TrimRight(settings.WatchHistory.BaseURL, "/"), url.QueryEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", settings.WatchHistory.APIKey)
	req.Header.Set("Authorization", "Bearer "+settings.WatchHistory.APIKey)

	resp, err := s.httpc.Do(req)
	if err != nil {
		log.Printf("[history] watch-history store unreachable: %v", err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[history] watch-history store returned status %d", resp.StatusCode)
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, watchHistoryResponseLimit))
	if err != nil {
		log.Printf("[history] read watch history: %v", err)
		return nil, nil
	}

	var items []models.WatchHistoryItem
	if err := json.Unmarshal(body, &items); err != nil {
		log.Printf("[history] decode watch history: %v", err)
		return nil, nil
	}
	return items, nil
}
