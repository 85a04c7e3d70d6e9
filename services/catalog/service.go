package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"streamrec/config"
	"streamrec/models"
)

const (
	// newMoviesPerRun caps how many unseen movies get a detail fetch per
	// refresh. The remainder is picked up on subsequent runs.
	newMoviesPerRun = 50
	// infoFetchConcurrency bounds parallel get_vod_info requests so the
	// provider is not hammered.
	infoFetchConcurrency = 3
)

// ErrNotConfigured is returned when the Xtream provider settings are empty.
var ErrNotConfigured = errors.New("xtream provider is not configured")

// ContentStore is the catalog persistence surface the service needs.
type ContentStore interface {
	UpsertContent(c *models.Content) error
	StreamIDsByTypes(types ...models.ContentType) (map[int]bool, error)
}

// Service ingests the streaming provider's catalog into the local database.
type Service struct {
	configManager *config.Manager
	content       ContentStore
	httpc         *http.Client
}

// NewService creates a catalog ingestion service.
func NewService(configManager *config.Manager, content ContentStore) *Service {
	return &Service{
		configManager: configManager,
		content:       content,
		httpc:         &http.Client{},
	}
}

// UpdateContent refreshes the local catalog from the provider: new movies
// are detail-fetched and classified (accepted or rejected), the series
// listing is ingested wholesale, and everything is synced to the database.
// Returns the number of records synced.
func (s *Service) UpdateContent(ctx context.Context) (int, error) {
	settings, err := s.configManager.Load()
	if err != nil {
		return 0, fmt.Errorf("load settings: %w", err)
	}
	if settings.Xtream.BaseURL == "" {
		return 0, ErrNotConfigured
	}

	client := newXtreamClient(settings.Xtream.BaseURL, settings.Xtream.Username, settings.Xtream.Password, s.httpc)

	// Known movie stream ids, including rejected placeholders so known-bad
	// ids are never detail-fetched again.
	existing, err := s.content.StreamIDsByTypes(models.ContentTypeMovie, models.ContentTypeRejectedMovie)
	if err != nil {
		return 0, fmt.Errorf("list existing stream ids: %w", err)
	}

	streams, err := client.fetchAllMovies(ctx)
	if err != nil {
		log.Printf("[catalog] movie listing unavailable: %v", err)
	}

	accepted, rejected := s.fetchNewMovieDetails(ctx, client, streams, existing)

	series, err := client.fetchAllSeries(ctx)
	if err != nil {
		log.Printf("[catalog] series listing unavailable: %v", err)
	}

	if len(accepted) == 0 && len(series) == 0 && len(rejected) == 0 {
		log.Printf("[catalog] nothing to sync")
		return 0, nil
	}

	count := s.syncToDatabase(accepted, series, rejected)
	log.Printf("[catalog] synced %d records (%d new movies, %d series, %d rejected)",
		count, len(accepted), len(series), len(rejected))
	return count, nil
}

// movieRecord pairs a listing entry with its detail metadata.
type movieRecord struct {
	stream xtreamVODStream
	info   xtreamVODInfo
}

// fetchNewMovieDetails detail-fetches movies not yet in the catalog and
// classifies each: usable metadata is accepted, a metadata object without a
// name or genre is rejected (the id is remembered as known-bad), anything
// else is skipped and retried on a later run.
func (s *Service) fetchNewMovieDetails(ctx context.Context, client *xtreamClient, streams []xtreamVODStream, existing map[int]bool) (accepted []movieRecord, rejected []int) {
	var candidates []xtreamVODStream
	for _, stream := range streams {
		id, err := streamIDInt(stream.StreamID)
		if err != nil {
			log.Printf("[catalog] movie listing entry without usable stream_id (%q), skipping", stream.StreamID.String())
			continue
		}
		if existing[id] {
			continue
		}
		candidates = append(candidates, stream)
		if len(candidates) >= newMoviesPerRun {
			break
		}
	}

	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(infoFetchConcurrency)

	for _, stream := range candidates {
		p.Go(func() {
			id, _ := streamIDInt(stream.StreamID)

			info, isObject, err := client.fetchMovieInfo(ctx, id)
			if err != nil {
				log.Printf("[catalog] fetch info for movie %d failed: %v", id, err)
				return
			}
			if !isObject {
				// No metadata object at all; possibly transient, retry on
				// a later run.
				return
			}

			mu.Lock()
			defer mu.Unlock()
			if info.Name != "" && info.Genre != "" {
				accepted = append(accepted, movieRecord{stream: stream, info: *info})
			} else {
				rejected = append(rejected, id)
			}
		})
	}
	p.Wait()

	return accepted, rejected
}

// syncToDatabase writes rejected placeholders, accepted movies, and series
// to the catalog. Each record is isolated: a bad one logs and the rest
// still sync.
func (s *Service) syncToDatabase(movies []movieRecord, series []xtreamSeries, rejected []int) int {
	count := 0

	for _, id := range rejected {
		placeholder := &models.Content{
			StreamID:    id,
			ContentType: models.ContentTypeRejectedMovie,
			Genres:      []string{},
			Cast:        []string{},
		}
		if err := s.content.UpsertContent(placeholder); err != nil {
			log.Printf("[catalog] store rejected movie %d: %v", id, err)
			continue
		}
		count++
	}

	for _, m := range movies {
		id, err := streamIDInt(m.stream.StreamID)
		if err != nil {
			log.Printf("[catalog] movie without stream id, skipping")
			continue
		}

		rating := m.info.Rating.Float()
		if rating == 0 {
			rating = m.stream.Rating.Float()
		}

		content := &models.Content{
			StreamID:    id,
			TMDBID:      optionalString(m.info.TMDBID.String()),
			Name:        m.info.Name,
			ContentType: models.ContentTypeMovie,
			Poster:      m.stream.StreamIcon,
			Rating:      rating,
			Genres:      splitTrimmed(m.info.Genre, ","),
			Cast:        splitTrimmed(m.info.Cast, ","),
			Director:    m.info.Director,
			CategoryID:  m.stream.CategoryID.String(),
			Description: m.info.Description,
		}
		if err := s.content.UpsertContent(content); err != nil {
			log.Printf("[catalog] store movie %d: %v", id, err)
			continue
		}
		count++
	}

	for _, item := range series {
		id, err := streamIDInt(item.SeriesID)
		if err != nil {
			log.Printf("[catalog] series listing entry without usable series_id (%q), skipping", item.SeriesID.String())
			continue
		}

		content := &models.Content{
			StreamID:    id,
			TMDBID:      optionalString(item.TMDB.String()),
			Name:        item.Name,
			ContentType: models.ContentTypeSeries,
			Poster:      item.Cover,
			Rating:      item.Rating.Float(),
			// Series genre strings are slash-delimited, unlike movies.
			Genres:      splitTrimmed(item.Genre, "/"),
			Cast:        []string{},
			CategoryID:  item.CategoryID.String(),
			Description: item.Plot,
		}
		if err := s.content.UpsertContent(content); err != nil {
			log.Printf("[catalog] store series %d: %v", id, err)
			continue
		}
		count++
	}

	return count
}

func streamIDInt(n interface{ String() string }) (int, error) {
	raw := strings.TrimSpace(n.String())
	if raw == "" {
		return 0, fmt.Errorf("empty id")
	}
	return strconv.Atoi(raw)
}

func splitTrimmed(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func optionalString(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}
