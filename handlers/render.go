// forumindex/handlers/render.go

package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"forumindex/config"
	"forumindex/models"
	"forumindex/utils"

	"github.com/dustin/go-humanize"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	templates *template.Template
)

// LoadTemplates parses all HTML files from the embedded templates directory.
func LoadTemplates() error {
	funcMap := template.FuncMap{
		"formatISO": func(t time.Time) string { return t.Format(time.RFC3339) },
		"relTime": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return humanize.RelTime(*t, utils.GetTime(), "ago", "from now")
		},
		"default": func(dflt, val string) string {
			if val == "" {
				return dflt
			}
			return val
		},
	}
	t, err := template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}
	templates = t
	return nil
}

// render executes the given templates with the provided data.
func render(w http.ResponseWriter, r *http.Request, app App, layout, contentTmpl string, data map[string]interface{}) {
	renderStatus(w, r, app, http.StatusOK, layout, contentTmpl, data)
}

// renderStatus renders the page into a buffer first so a template error can still
// produce a 500 instead of a half-written page.
func renderStatus(w http.ResponseWriter, r *http.Request, app App, status int, layout, contentTmpl string, data map[string]interface{}) {
	if data == nil {
		data = make(map[string]interface{})
	}

	settings := app.Settings()
	data["AppVersion"] = config.AppVersion
	data["SiteTitle"] = settings.SiteTitle
	data["HomeURL"] = app.URLs().Build(models.URLIndex, 0)
	data["Viewer"] = ViewerFromContext(r.Context())
	if csrfToken, ok := r.Context().Value(CSRFTokenKey).(string); ok {
		data["csrfToken"] = csrfToken
	}

	contentBuf := new(bytes.Buffer)
	if err := templates.ExecuteTemplate(contentBuf, contentTmpl, data); err != nil {
		app.Logger().Error("Error rendering content template", "template", contentTmpl, "error", err)
		http.Error(w, "Failed to render page content", http.StatusInternalServerError)
		return
	}
	data["Content"] = template.HTML(contentBuf.String())

	page := new(bytes.Buffer)
	if err := templates.ExecuteTemplate(page, layout, data); err != nil {
		app.Logger().Error("Error rendering layout template", "template", layout, "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := page.WriteTo(w); err != nil {
		app.Logger().Warn("Failed to write response", "error", err)
	}
}

// renderMessage shows a short notice inside the site layout.
func renderMessage(w http.ResponseWriter, r *http.Request, app App, status int, title, message string) {
	renderStatus(w, r, app, status, "layout.html", "message.html", map[string]interface{}{
		"Title":   title,
		"Message": message,
	})
}
