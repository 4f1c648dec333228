// forumindex/handlers/handlers.go

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"forumindex/config"
	"forumindex/database"
	"forumindex/index"
	"forumindex/models"
	"forumindex/utils"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

// App is an interface that defines the dependencies our handlers need.
type App interface {
	DB() *database.DatabaseService
	Index() *index.Service
	URLs() utils.URLBuilder
	RateLimiter() *models.RateLimiter
	Settings() config.Settings
	Logger() *slog.Logger
}

// MakeHandler adapts an App-aware handler to http.HandlerFunc.
func MakeHandler(app App, fn func(http.ResponseWriter, *http.Request, App)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(w, r, app)
	}
}

// parseForumID reads a non-negative forum id from the named URL parameter.
func parseForumID(r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

// viewScope builds the per-request scope for an index page.
func viewScope(r *http.Request, app App, current models.ForumNode) models.ViewScope {
	s := app.Settings()
	return models.ViewScope{
		CurrentForumID:   current.ID,
		VirtualRootID:    current.VirtualRootID,
		Viewer:           ViewerFromContext(r.Context()),
		UnreadMode:       s.ShowNewOnIndex,
		HideInaccessible: s.HideForumsWithoutAccess,
		FeedEnabled:      s.FeedEnabled,
	}
}

// HandleRootIndex serves the index of the absolute root.
func HandleRootIndex(w http.ResponseWriter, r *http.Request, app App) {
	serveIndex(w, r, app, 0)
}

// HandleIndex serves the index page of a folder.
func HandleIndex(w http.ResponseWriter, r *http.Request, app App) {
	forumID, ok := parseForumID(r, "forumID")
	if !ok {
		renderMessage(w, r, app, http.StatusNotFound, "Forum not found", "The requested forum does not exist.")
		return
	}
	serveIndex(w, r, app, forumID)
}

func serveIndex(w http.ResponseWriter, r *http.Request, app App, forumID int64) {
	logger := app.Logger().With("handler", "HandleIndex")

	node, err := app.DB().GetNode(r.Context(), forumID)
	if err != nil {
		if errors.Is(err, index.ErrNodeNotFound) {
			renderMessage(w, r, app, http.StatusNotFound, "Forum not found", "The requested forum does not exist.")
			return
		}
		logger.Error("Failed to load forum", "forum_id", forumID, "error", err)
		renderMessage(w, r, app, http.StatusInternalServerError, "Error", "The forum index is temporarily unavailable.")
		return
	}
	// Forums have no index of their own; show their message list instead.
	if !node.IsFolder {
		http.Redirect(w, r, app.URLs().Build(models.URLList, node.ID), http.StatusFound)
		return
	}

	page, err := app.Index().Render(r.Context(), viewScope(r, app, node))
	switch {
	case errors.Is(err, index.ErrEmptyIndex):
		renderMessage(w, r, app, http.StatusOK, pageTitle(app, page), "There are no forums to display.")
		return
	case errors.Is(err, index.ErrNodeNotFound):
		renderMessage(w, r, app, http.StatusNotFound, "Forum not found", "The requested forum does not exist.")
		return
	case err != nil:
		logger.Error("Failed to render index", "forum_id", forumID, "error", err)
		renderMessage(w, r, app, http.StatusInternalServerError, "Error", "The forum index is temporarily unavailable.")
		return
	}

	render(w, r, app, "layout.html", "index.html", map[string]interface{}{
		"Title": pageTitle(app, page),
		"Page":  page,
	})
}

func pageTitle(app App, page *models.Page) string {
	if page == nil || page.Title == "" {
		return app.Settings().SiteTitle
	}
	return page.Title
}

// HandleMarkRead marks one forum read for the logged-in viewer and returns to an index page.
func HandleMarkRead(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleMarkRead")

	viewer := ViewerFromContext(r.Context())
	if !viewer.LoggedIn {
		renderMessage(w, r, app, http.StatusForbidden, "Forbidden", "You must be logged in to mark forums read.")
		return
	}
	// Mark-read is a plain GET link, so it skips CSRFMiddleware. Browsers label
	// requests started by other sites.
	if r.Header.Get("Sec-Fetch-Site") == "cross-site" {
		renderMessage(w, r, app, http.StatusForbidden, "Forbidden", "Mark-read links only work from this site.")
		return
	}
	forumID, ok := parseForumID(r, "forumID")
	returnID, ok2 := parseForumID(r, "returnID")
	if !ok || !ok2 {
		renderMessage(w, r, app, http.StatusNotFound, "Forum not found", "The requested forum does not exist.")
		return
	}
	if !app.RateLimiter().Allow("markread:" + strconv.FormatInt(viewer.UserID, 10)) {
		renderMessage(w, r, app, http.StatusTooManyRequests, "Slow down", "You are doing that too often. Please wait a moment.")
		return
	}

	if err := app.DB().MarkForumRead(r.Context(), viewer.UserID, forumID); err != nil {
		if errors.Is(err, index.ErrNodeNotFound) {
			renderMessage(w, r, app, http.StatusNotFound, "Forum not found", "The requested forum does not exist.")
			return
		}
		logger.Error("Failed to mark forum read", "forum_id", forumID, "user_id", viewer.UserID, "error", err)
		renderMessage(w, r, app, http.StatusInternalServerError, "Error", "Could not mark the forum read.")
		return
	}
	logger.Info("Forum marked read", "forum_id", forumID, "user_id", viewer.UserID)
	http.Redirect(w, r, app.URLs().Build(models.URLIndex, returnID), http.StatusSeeOther)
}

// HandleUnlockForum serves and checks the password prompt of a protected forum.
func HandleUnlockForum(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleUnlockForum")

	forumID, ok := parseForumID(r, "forumID")
	if !ok || forumID == 0 {
		renderMessage(w, r, app, http.StatusNotFound, "Forum not found", "The requested forum does not exist.")
		return
	}
	node, err := app.DB().GetNode(r.Context(), forumID)
	if err != nil {
		if errors.Is(err, index.ErrNodeNotFound) {
			renderMessage(w, r, app, http.StatusNotFound, "Forum not found", "The requested forum does not exist.")
			return
		}
		logger.Error("Failed to load forum", "forum_id", forumID, "error", err)
		renderMessage(w, r, app, http.StatusInternalServerError, "Error", "Could not load the forum.")
		return
	}
	hashed, err := app.DB().GetForumPassword(r.Context(), forumID)
	if err != nil {
		logger.Error("Failed to load forum password", "forum_id", forumID, "error", err)
		renderMessage(w, r, app, http.StatusInternalServerError, "Error", "Could not load the forum.")
		return
	}
	if hashed == "" {
		http.Redirect(w, r, app.URLs().Build(models.URLIndex, node.ParentID), http.StatusSeeOther)
		return
	}

	loginError := false
	if r.Method == http.MethodPost {
		err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(r.FormValue("password")))
		if err == nil {
			http.SetCookie(w, &http.Cookie{
				Name:     config.ForumTokenCookiePrefix + strconv.FormatInt(forumID, 10),
				Value:    utils.GenerateForumSessionHash(hashed),
				Path:     "/",
				MaxAge:   config.ForumTokenMaxAge,
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			})
			http.Redirect(w, r, app.URLs().Build(models.URLIndex, node.ParentID), http.StatusSeeOther)
			return
		}
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			logger.Error("Bcrypt error comparing forum password", "forum_id", forumID, "error", err)
		}
		loginError = true
	}

	status := http.StatusOK
	if loginError {
		status = http.StatusUnauthorized
	}
	renderStatus(w, r, app, status, "layout.html", "login.html", map[string]interface{}{
		"Title":      "Password Required",
		"Forum":      node,
		"LoginError": loginError,
	})
}
