package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ScheduledTaskType identifies what a scheduled task does.
type ScheduledTaskType string

const (
	// ScheduledTaskTypeCatalogRefresh pulls new movies and series from the
	// streaming provider into the local catalog.
	ScheduledTaskTypeCatalogRefresh ScheduledTaskType = "catalog_refresh"
	// ScheduledTaskTypeSimilarityRecompute rebuilds the content similarity
	// graph for every content type.
	ScheduledTaskTypeSimilarityRecompute ScheduledTaskType = "similarity_recompute"
)

// ScheduledTaskFrequency is how often a task should run.
type ScheduledTaskFrequency string

const (
	ScheduledTaskFrequencyHourly  ScheduledTaskFrequency = "hourly"
	ScheduledTaskFrequency6Hours  ScheduledTaskFrequency = "6h"
	ScheduledTaskFrequency12Hours ScheduledTaskFrequency = "12h"
	ScheduledTaskFrequencyDaily   ScheduledTaskFrequency = "daily"
)

// ScheduledTaskStatus is the outcome of a task's last run.
type ScheduledTaskStatus string

const (
	ScheduledTaskStatusSuccess ScheduledTaskStatus = "success"
	ScheduledTaskStatusError   ScheduledTaskStatus = "error"
	ScheduledTaskStatusRunning ScheduledTaskStatus = "running"
)

// ScheduledTask is one periodic background job.
type ScheduledTask struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Type           ScheduledTaskType      `json:"type"`
	Frequency      ScheduledTaskFrequency `json:"frequency"`
	Enabled        bool                   `json:"enabled"`
	LastRunAt      *time.Time             `json:"lastRunAt,omitempty"`
	LastStatus     ScheduledTaskStatus    `json:"lastStatus,omitempty"`
	LastError      string                 `json:"lastError,omitempty"`
	ItemsProcessed int                    `json:"itemsProcessed,omitempty"`
}

// XtreamSettings holds the streaming provider's player API credentials.
type XtreamSettings struct {
	BaseURL  string `json:"baseUrl"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// WatchHistorySettings holds the external watch-history store connection.
type WatchHistorySettings struct {
	BaseURL string `json:"baseUrl"`
	APIKey  string `json:"apiKey"`
}

// ScheduledTasksSettings groups the scheduler configuration.
type ScheduledTasksSettings struct {
	CheckIntervalSeconds int             `json:"checkIntervalSeconds"`
	Tasks                []ScheduledTask `json:"tasks"`
}

// LoggingSettings configures the rotating log file.
type LoggingSettings struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"maxSizeMb"`
	MaxBackups int    `json:"maxBackups"`
}

// Settings is the full persisted configuration.
type Settings struct {
	Port           int                    `json:"port"`
	DatabasePath   string                 `json:"databasePath"`
	Xtream         XtreamSettings         `json:"xtream"`
	WatchHistory   WatchHistorySettings   `json:"watchHistory"`
	ScheduledTasks ScheduledTasksSettings `json:"scheduledTasks"`
	Logging        LoggingSettings        `json:"logging"`
}

// DefaultSettings returns the settings used when no settings file exists.
func DefaultSettings() *Settings {
	return &Settings{
		Port:         8080,
		DatabasePath: "data/streamrec.db",
		ScheduledTasks: ScheduledTasksSettings{
			CheckIntervalSeconds: 60,
			Tasks: []ScheduledTask{
				{
					ID:        uuid.NewString(),
					Name:      "Catalog Refresh",
					Type:      ScheduledTaskTypeCatalogRefresh,
					Frequency: ScheduledTaskFrequencyHourly,
					Enabled:   true,
				},
				{
					ID:        uuid.NewString(),
					Name:      "Similarity Recompute",
					Type:      ScheduledTaskTypeSimilarityRecompute,
					Frequency: ScheduledTaskFrequencyDaily,
					Enabled:   true,
				},
			},
		},
		Logging: LoggingSettings{
			Path:       "data/logs/streamrec.log",
			MaxSizeMB:  20,
			MaxBackups: 3,
		},
	}
}

// Manager loads and saves the JSON settings file.
type Manager struct {
	mu   sync.Mutex
	path string
}

// NewManager creates a settings manager for the given file path.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Load reads the settings file, creating it with defaults if it does not
// exist yet.
func (m *Manager) Load() (*Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		settings := DefaultSettings()
		if err := m.save(settings); err != nil {
			return nil, err
		}
		return settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	return &settings, nil
}

// Save writes the settings file atomically.
func (m *Manager) Save(settings *Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.save(settings)
}

func (m *Manager) save(settings *Settings) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return os.Rename(tmp, m.path)
}
