// forumindex/handlers/list.go

package handlers

import (
	"bytes"
	"encoding/xml"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"forumindex/config"
	"forumindex/index"
	"forumindex/models"
	"forumindex/utils"

	"golang.org/x/tools/blog/atom"
)

// threadRow is one thread starter prepared for the list template.
type threadRow struct {
	ID      int64
	Anchor  string
	Subject string
	Author  string
	Posted  string
}

// readableForum resolves the forumID parameter to a forum the viewer may read.
// It writes the response itself and returns false when the request ends here.
// Folders are sent to their index page; protected forums to their unlock form
// when promptUnlock is set.
func readableForum(w http.ResponseWriter, r *http.Request, app App, logger *slog.Logger, promptUnlock bool) (models.ForumNode, bool) {
	forumID, ok := parseForumID(r, "forumID")
	if !ok || forumID == 0 {
		renderMessage(w, r, app, http.StatusNotFound, "Forum not found", "The requested forum does not exist.")
		return models.ForumNode{}, false
	}
	node, err := app.DB().GetNode(r.Context(), forumID)
	if err != nil {
		if errors.Is(err, index.ErrNodeNotFound) {
			renderMessage(w, r, app, http.StatusNotFound, "Forum not found", "The requested forum does not exist.")
			return node, false
		}
		logger.Error("Failed to load forum", "forum_id", forumID, "error", err)
		renderMessage(w, r, app, http.StatusInternalServerError, "Error", "Could not load the forum.")
		return node, false
	}
	if node.IsFolder {
		http.Redirect(w, r, app.URLs().Build(models.URLIndex, node.ID), http.StatusFound)
		return node, false
	}

	allowed, err := app.DB().CheckReadAccess(r.Context(), ViewerFromContext(r.Context()), forumID)
	if err != nil {
		logger.Error("Failed to check forum access", "forum_id", forumID, "error", err)
		renderMessage(w, r, app, http.StatusInternalServerError, "Error", "Could not load the forum.")
		return node, false
	}
	if !allowed {
		if promptUnlock {
			if hashed, err := app.DB().GetForumPassword(r.Context(), forumID); err == nil && hashed != "" {
				http.Redirect(w, r, app.URLs().Build(models.URLUnlock, forumID), http.StatusFound)
				return node, false
			}
		}
		renderMessage(w, r, app, http.StatusForbidden, "Forbidden", "You do not have permission to read this forum.")
		return node, false
	}
	return node, true
}

func messageAnchor(id int64) string {
	return "msg-" + strconv.FormatInt(id, 10)
}

// HandleList shows the newest threads of a forum.
func HandleList(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleList")

	node, ok := readableForum(w, r, app, logger, true)
	if !ok {
		return
	}
	threads, err := app.DB().ListThreads(r.Context(), node.ID, config.ListThreadLimit)
	if err != nil {
		logger.Error("Failed to list threads", "forum_id", node.ID, "error", err)
		renderMessage(w, r, app, http.StatusInternalServerError, "Error", "Could not load the forum.")
		return
	}

	s := app.Settings()
	format := utils.NewFormatter(s.ThousandsSep, s.DateLayout, s.Location)
	rows := make([]threadRow, 0, len(threads))
	for _, m := range threads {
		rows = append(rows, threadRow{
			ID:      m.ID,
			Anchor:  messageAnchor(m.ID),
			Subject: m.Subject,
			Author:  m.Author,
			Posted:  format.FormatDateTime(m.Datestamp),
		})
	}

	data := map[string]interface{}{
		"Title":    node.Name,
		"Forum":    node,
		"Threads":  rows,
		"IndexURL": app.URLs().Build(models.URLIndex, node.ParentID),
	}
	if ViewerFromContext(r.Context()).LoggedIn {
		data["MarkReadURL"] = app.URLs().Build(models.URLMarkRead, node.ID, strconv.FormatInt(node.ParentID, 10))
	}
	if s.FeedEnabled {
		data["FeedURL"] = app.URLs().Build(models.URLFeed, node.ID)
	}
	render(w, r, app, "layout.html", "list.html", data)
}

// HandleFeed serves the newest threads of a forum as an Atom feed.
func HandleFeed(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleFeed")

	s := app.Settings()
	if !s.FeedEnabled {
		renderMessage(w, r, app, http.StatusNotFound, "Not found", "Feeds are disabled.")
		return
	}
	if ft := r.URL.Query().Get("type"); ft != "" && ft != config.FeedTypeAtom {
		renderMessage(w, r, app, http.StatusNotFound, "Not found", "Unsupported feed type.")
		return
	}

	node, ok := readableForum(w, r, app, logger, false)
	if !ok {
		return
	}
	threads, err := app.DB().ListThreads(r.Context(), node.ID, config.ListThreadLimit)
	if err != nil {
		logger.Error("Failed to list threads", "forum_id", node.ID, "error", err)
		http.Error(w, "Could not load the feed", http.StatusInternalServerError)
		return
	}

	feedURL := app.URLs().Build(models.URLFeed, node.ID)
	listURL := app.URLs().Build(models.URLList, node.ID)
	updated := utils.GetTime()
	switch {
	case node.LastPostTime != nil:
		updated = *node.LastPostTime
	case len(threads) > 0:
		updated = threads[0].Datestamp
	}

	feed := &atom.Feed{
		Title: node.Name + " - " + s.SiteTitle,
		ID:    feedURL,
		Link: []atom.Link{
			{Rel: "self", Href: feedURL},
			{Rel: "alternate", Type: "text/html", Href: listURL},
		},
		Updated: atom.Time(updated),
	}
	for _, m := range threads {
		link := listURL + "#" + messageAnchor(m.ID)
		author := m.Author
		if author == "" {
			author = "Anonymous"
		}
		feed.Entry = append(feed.Entry, &atom.Entry{
			Title:     m.Subject,
			ID:        link,
			Link:      []atom.Link{{Rel: "alternate", Type: "text/html", Href: link}},
			Published: atom.Time(m.Datestamp),
			Updated:   atom.Time(m.Datestamp),
			Author:    &atom.Person{Name: author},
		})
	}

	buf := new(bytes.Buffer)
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(buf).Encode(feed); err != nil {
		logger.Error("Failed to encode feed", "forum_id", node.ID, "error", err)
		http.Error(w, "Could not build the feed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/atom+xml; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		logger.Warn("Failed to write feed", "error", err)
	}
}
