// forumindex/main.go
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forumindex/config"
	"forumindex/database"
	"forumindex/handlers"
	"forumindex/index"
	"forumindex/models"
	"forumindex/utils"

	"github.com/joho/godotenv"
)

type Application struct {
	db          *database.DatabaseService
	index       *index.Service
	urls        utils.URLBuilder
	rateLimiter *models.RateLimiter
	settings    config.Settings
	logger      *slog.Logger
}

// Methods to satisfy the handlers.App interface
func (a *Application) DB() *database.DatabaseService    { return a.db }
func (a *Application) Index() *index.Service            { return a.index }
func (a *Application) URLs() utils.URLBuilder           { return a.urls }
func (a *Application) RateLimiter() *models.RateLimiter { return a.rateLimiter }
func (a *Application) Settings() config.Settings        { return a.settings }
func (a *Application) Logger() *slog.Logger             { return a.logger }

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	settings := config.LoadSettings(logger)
	if err := settings.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// Unlock cookies survive restarts only with a configured secret.
	if settings.SessionSecret == "" {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			logger.Error("Failed to generate session secret", "error", err)
			os.Exit(1)
		}
		settings.SessionSecret = hex.EncodeToString(secret)
		logger.Warn("FORUMINDEX_SESSION_SECRET not set, forum unlock cookies will not survive a restart")
	}
	utils.SessionSecret = settings.SessionSecret

	dbService, err := database.InitDB(settings.DBPath, logger)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbService.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	if err := handlers.LoadTemplates(); err != nil {
		logger.Error("Failed to load templates", "error", err)
		os.Exit(1)
	}

	urls := utils.NewURLBuilder(settings.BaseURL, settings.DefaultFeedType)
	app := &Application{
		db: dbService,
		index: index.NewService(index.Options{
			Repo:            dbService,
			Access:          dbService,
			Unread:          dbService,
			URLs:            urls,
			Formatter:       utils.NewFormatter(settings.ThousandsSep, settings.DateLayout, settings.Location),
			Logger:          logger,
			DisableBatching: settings.DisableBatching,
		}),
		urls:        urls,
		rateLimiter: models.NewRateLimiter(settings.RateLimitEvery, settings.RateLimitBurst, settings.RateLimitPrune, settings.RateLimitExpire),
		settings:    settings,
		logger:      logger,
	}
	defer app.rateLimiter.Stop()

	mux := handlers.SetupRouter(app)

	// --- Graceful Shutdown ---
	server := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("forumindex server started successfully",
		"version", config.AppVersion,
		"address", "http://localhost:"+settings.Port,
		"show_new", settings.ShowNewOnIndex.String(),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("Server exiting")
}
