package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	mgr := NewManager(path)

	settings, err := mgr.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("settings file was not created: %v", err)
	}
	if settings.Port != 8080 {
		t.Errorf("default port = %d, want 8080", settings.Port)
	}
	if settings.ScheduledTasks.CheckIntervalSeconds != 60 {
		t.Errorf("check interval = %d, want 60", settings.ScheduledTasks.CheckIntervalSeconds)
	}

	if len(settings.ScheduledTasks.Tasks) != 2 {
		t.Fatalf("expected 2 default tasks, got %d", len(settings.ScheduledTasks.Tasks))
	}
	seen := map[ScheduledTaskType]bool{}
	for _, task := range settings.ScheduledTasks.Tasks {
		if task.ID == "" {
			t.Errorf("task %q has no id", task.Name)
		}
		if !task.Enabled {
			t.Errorf("task %q should be enabled by default", task.Name)
		}
		seen[task.Type] = true
	}
	if !seen[ScheduledTaskTypeCatalogRefresh] || !seen[ScheduledTaskTypeSimilarityRecompute] {
		t.Errorf("default tasks missing a type: %v", seen)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	mgr := NewManager(path)

	settings := DefaultSettings()
	settings.Port = 9999
	settings.Xtream = XtreamSettings{BaseURL: "http://provider.example/player_api.php", Username: "u", Password: "p"}
	settings.WatchHistory = WatchHistorySettings{BaseURL: "http://history.example", APIKey: "key"}
	settings.ScheduledTasks.Tasks[0].Frequency = ScheduledTaskFrequency6Hours

	if err := mgr.Save(settings); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := mgr.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Port != 9999 {
		t.Errorf("port = %d, want 9999", loaded.Port)
	}
	if loaded.Xtream.BaseURL != "http://provider.example/player_api.php" {
		t.Errorf("xtream base url not persisted: %q", loaded.Xtream.BaseURL)
	}
	if loaded.WatchHistory.APIKey != "key" {
		t.Errorf("watch history key not persisted: %q", loaded.WatchHistory.APIKey)
	}
	if loaded.ScheduledTasks.Tasks[0].Frequency != ScheduledTaskFrequency6Hours {
		t.Errorf("task frequency = %s, want 6h", loaded.ScheduledTasks.Tasks[0].Frequency)
	}
}

func TestSaveDoesNotLeaveTempFile(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManager(filepath.Join(dir, "settings.json"))

	if err := mgr.Save(DefaultSettings()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "settings.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only settings.json, got %v", names)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewManager(path).Load(); err == nil {
		t.Error("expected error for malformed settings file")
	}
}
