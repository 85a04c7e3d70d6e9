package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"streamrec/api"
	"streamrec/config"
	"streamrec/handlers"
	"streamrec/internal/database"
	"streamrec/services/catalog"
	"streamrec/services/history"
	"streamrec/services/recommend"
	"streamrec/services/scheduler"
	"streamrec/services/similarity"
	"streamrec/utils"
)

func main() {
	settingsPath := flag.String("settings", "data/settings.json", "path to the settings file")
	flag.Parse()

	configManager := config.NewManager(*settingsPath)
	settings, err := configManager.Load()
	if err != nil {
		log.Fatalf("[main] failed to load settings: %v", err)
	}

	setupLogging(settings.Logging)

	db, err := database.NewDB(database.Config{DatabasePath: settings.DatabasePath})
	if err != nil {
		log.Fatalf("[main] failed to open database: %v", err)
	}
	defer db.Close()

	catalogService := catalog.NewService(configManager, db.Content)
	similarityService := similarity.NewService(db.Content, db.Similarity)
	historyService := history.NewService(configManager)
	recommendService := recommend.NewService(historyService, db.Similarity)
	schedulerService := scheduler.NewService(configManager, catalogService, similarityService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := schedulerService.Start(ctx); err != nil {
		log.Fatalf("[main] failed to start scheduler: %v", err)
	}

	r := utils.NewRouter()

	recHandler := handlers.NewRecommendationsHandler(recommendService)
	r.HandleFunc("/api/recommendations", recHandler.Get).Methods(http.MethodGet)

	tasksHandler := handlers.NewTasksHandler(schedulerService)
	r.HandleFunc("/api/tasks", tasksHandler.List).Methods(http.MethodGet)

	// Manual task triggers kick off catalog or similarity rebuilds; keep
	// them from being hammered.
	taskRunLimiter := api.NewIPRateLimiter(rate.Every(12*time.Second), 5)
	r.HandleFunc("/api/tasks/{id}/run", api.RateLimitHandlerFunc(taskRunLimiter, tasksHandler.Run)).Methods(http.MethodPost)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", settings.Port),
		Handler: r,
	}

	go func() {
		log.Printf("[main] listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[main] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] server shutdown: %v", err)
	}
	if err := schedulerService.Stop(shutdownCtx); err != nil {
		log.Printf("[main] scheduler shutdown: %v", err)
	}
}

// setupLogging tees log output to stderr and a rotating log file.
func setupLogging(cfg config.LoggingSettings) {
	if cfg.Path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		log.Printf("[main] failed to create log directory: %v", err)
		return
	}

	rotating := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotating))
}
