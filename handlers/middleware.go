package handlers

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"forumindex/config"
	"forumindex/models"
	"forumindex/utils"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	ViewerKey    ContextKey = "viewer"
	CSRFTokenKey ContextKey = "csrfToken"
)

// ViewerFromContext returns the viewer stored by SessionMiddleware, or an anonymous one.
func ViewerFromContext(ctx context.Context) models.Viewer {
	if v, ok := ctx.Value(ViewerKey).(models.Viewer); ok {
		return v
	}
	return models.Viewer{}
}

// SessionMiddleware resolves the session cookie and collects forum unlock cookies.
// It never creates sessions; unknown tokens browse anonymously.
func SessionMiddleware(app App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var viewer models.Viewer
			if c, err := r.Cookie(config.SessionCookieName); err == nil {
				userID, ok, err := app.DB().LookupSession(r.Context(), c.Value)
				if err != nil {
					app.Logger().Warn("Session lookup failed, continuing anonymously", "error", err)
				}
				viewer.UserID, viewer.LoggedIn = userID, ok
			}

			for _, c := range r.Cookies() {
				idStr, found := strings.CutPrefix(c.Name, config.ForumTokenCookiePrefix)
				if !found {
					continue
				}
				id, err := strconv.ParseInt(idStr, 10, 64)
				if err != nil {
					continue
				}
				if viewer.ForumTokens == nil {
					viewer.ForumTokens = make(map[int64]string)
				}
				viewer.ForumTokens[id] = c.Value
			}

			ctx := context.WithValue(r.Context(), ViewerKey, viewer)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CSRFMiddleware protects against Cross-Site Request Forgery attacks.
func CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		csrfCookie, err := r.Cookie("csrf_token")
		var csrfToken string

		if err != nil || csrfCookie.Value == "" {
			csrfToken = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     "csrf_token",
				Value:    csrfToken,
				Path:     "/",
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			})
		} else {
			csrfToken = csrfCookie.Value
		}

		if r.Method == http.MethodPost {
			tokenFromForm := r.FormValue("csrf_token")
			if tokenFromForm == "" {
				tokenFromForm = r.Header.Get("X-CSRF-Token")
			}

			if subtle.ConstantTimeCompare([]byte(tokenFromForm), []byte(csrfToken)) != 1 {
				http.Error(w, "Invalid CSRF token", http.StatusForbidden)
				return
			}
		}

		ctx := context.WithValue(r.Context(), CSRFTokenKey, csrfToken)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// NewStructuredLogger logs one line per request with chi's request id.
func NewStructuredLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := utils.GetTime()
			defer func() {
				logger.Info("Request served",
					"request_id", middleware.GetReqID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"remote_ip", utils.GetIPAddress(r),
					"duration", time.Since(start),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// SecurityHeadersMiddleware sets conservative browser security headers.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "same-origin")
		h.Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")
		next.ServeHTTP(w, r)
	})
}
