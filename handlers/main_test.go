package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"forumindex/config"
	"forumindex/database"
	"forumindex/index"
	"forumindex/models"
	"forumindex/utils"
)

// MockApplication holds dependencies for handler tests.
type MockApplication struct {
	db          *database.DatabaseService
	index       *index.Service
	urls        utils.URLBuilder
	rateLimiter *models.RateLimiter
	settings    config.Settings
	logger      *slog.Logger
}

func (a *MockApplication) DB() *database.DatabaseService    { return a.db }
func (a *MockApplication) Index() *index.Service            { return a.index }
func (a *MockApplication) URLs() utils.URLBuilder           { return a.urls }
func (a *MockApplication) RateLimiter() *models.RateLimiter { return a.rateLimiter }
func (a *MockApplication) Settings() config.Settings        { return a.settings }
func (a *MockApplication) Logger() *slog.Logger             { return a.logger }

// setupTestApp creates a full application stack with a test database for integration testing.
//
// The forum tree is: forum 5 "Lobby" at the root, folder 6 "Projects" holding
// forum 7 "Gophers" and the password protected forum 8 "Secret", and the empty
// folder 9 "Attic".
func setupTestApp(t *testing.T) *MockApplication {
	if err := LoadTemplates(); err != nil {
		t.Fatalf("Failed to load templates: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	dbDir, err := os.MkdirTemp("", "forumindex_test_db_*")
	if err != nil {
		t.Fatalf("Failed to create temp dir for test DB: %v", err)
	}
	dbPath := filepath.Join(dbDir, "test.db?_journal_mode=WAL&_foreign_keys=on")
	dbService, err := database.InitDB(dbPath, logger)
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	utils.SessionSecret = "test-secret"

	ctx := context.Background()
	if _, err := dbService.DB.Exec("DELETE FROM forums"); err != nil {
		t.Fatalf("Failed to clear seeded forums: %v", err)
	}
	for _, n := range []models.ForumNode{
		{ID: 5, Name: "Lobby", DisplayOrder: 1},
		{ID: 6, Name: "Projects", IsFolder: true, DisplayOrder: 2},
		{ID: 7, ParentID: 6, Name: "Gophers"},
		{ID: 8, ParentID: 6, Name: "Secret"},
		{ID: 9, Name: "Attic", IsFolder: true, DisplayOrder: 3},
	} {
		if _, err := dbService.CreateForum(ctx, n); err != nil {
			t.Fatalf("Failed to create forum %d: %v", n.ID, err)
		}
	}
	if err := dbService.SetForumPassword(ctx, 8, "open sesame"); err != nil {
		t.Fatalf("Failed to protect forum: %v", err)
	}

	settings := config.Settings{
		SiteTitle:               "Test Forums",
		ShowNewOnIndex:          models.UnreadCounts,
		HideForumsWithoutAccess: true,
		FeedEnabled:             true,
		DefaultFeedType:         config.FeedTypeAtom,
		ThousandsSep:            ",",
		DateLayout:              "2006-01-02 15:04",
		Location:                time.UTC,
	}
	urls := utils.NewURLBuilder("", settings.DefaultFeedType)

	app := &MockApplication{
		db: dbService,
		index: index.NewService(index.Options{
			Repo:      dbService,
			Access:    dbService,
			Unread:    dbService,
			URLs:      urls,
			Formatter: utils.NewFormatter(settings.ThousandsSep, settings.DateLayout, settings.Location),
			Logger:    logger,
		}),
		urls:        urls,
		rateLimiter: models.NewRateLimiter(time.Hour, 2, time.Hour, 24*time.Hour),
		settings:    settings,
		logger:      logger,
	}

	t.Cleanup(func() {
		app.rateLimiter.Stop()
		app.db.Close()
		os.RemoveAll(dbDir)
		utils.SessionSecret = ""
	})

	return app
}

// loginTestUser creates a user with a session and returns the session cookie.
func loginTestUser(t *testing.T, app *MockApplication, name string) (int64, *http.Cookie) {
	t.Helper()
	ctx := context.Background()
	userID, err := app.db.CreateUser(ctx, name)
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	token, err := app.db.CreateSession(ctx, userID)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	return userID, &http.Cookie{Name: config.SessionCookieName, Value: token}
}

// serve runs one request through the full router.
func serve(app App, method, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	SetupRouter(app).ServeHTTP(rr, req)
	return rr
}
