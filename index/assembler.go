package index

import (
	"context"
	"log/slog"
	"strconv"

	"forumindex/models"
)

// LastPostPlaceholder is shown instead of a date for forums without messages.
const LastPostPlaceholder = "\u00a0"

// UnreadIndex holds unread state for the forums shown on one page.
type UnreadIndex struct {
	Counts map[int64]models.UnreadTally
	Flags  map[int64]bool
}

// Assembler turns a Hierarchy into ordered, decorated rows.
type Assembler struct {
	access AccessChecker
	unread UnreadTracker
	urls   URLBuilder
	format Formatter
	logger *slog.Logger
}

func NewAssembler(access AccessChecker, unread UnreadTracker, urls URLBuilder, format Formatter, logger *slog.Logger) *Assembler {
	return &Assembler{
		access: access,
		unread: unread,
		urls:   urls,
		format: format,
		logger: logger,
	}
}

type section struct {
	folder   models.ForumNode
	children []models.ForumNode
}

// Assemble filters and decorates the hierarchy. A folder without surviving children
// produces no rows at all.
func (a *Assembler) Assemble(ctx context.Context, h *Hierarchy, scope models.ViewScope) []models.RenderRow {
	access := make(map[int64]bool)
	sections := make([]section, 0, len(h.Scope))

	for _, folderID := range h.Scope {
		var kept []models.ForumNode
		for _, child := range h.Children[folderID] {
			if !child.IsFolder && scope.HideInaccessible && !a.canRead(ctx, scope.Viewer, child.ID, access) {
				continue
			}
			kept = append(kept, child)
		}
		if len(kept) == 0 {
			continue
		}
		sections = append(sections, section{folder: h.Folders[folderID], children: kept})
	}

	unread := a.loadUnread(ctx, scope, visibleCandidates(h.Candidates, scope, access))

	var rows []models.RenderRow
	for _, s := range sections {
		rows = append(rows, a.folderRow(s.folder, 0))
		for _, child := range s.children {
			if child.IsFolder {
				rows = append(rows, a.folderRow(child, MaxRenderLevel))
				continue
			}
			rows = append(rows, a.forumRow(child, scope, unread))
		}
	}
	return rows
}

// canRead treats a failed check as no access.
func (a *Assembler) canRead(ctx context.Context, viewer models.Viewer, forumID int64, memo map[int64]bool) bool {
	if ok, done := memo[forumID]; done {
		return ok
	}
	ok, err := a.access.CheckReadAccess(ctx, viewer, forumID)
	if err != nil {
		a.logger.Warn("Access check failed, hiding forum", "forum_id", forumID, "error", err)
		ok = false
	}
	memo[forumID] = ok
	return ok
}

// visibleCandidates drops the forums the access filter hid.
func visibleCandidates(candidates []int64, scope models.ViewScope, access map[int64]bool) []int64 {
	if !scope.HideInaccessible {
		return candidates
	}
	shown := make([]int64, 0, len(candidates))
	for _, id := range candidates {
		if access[id] {
			shown = append(shown, id)
		}
	}
	return shown
}

// loadUnread queries the tracker once for the forums that will be shown.
// Lookup failures yield an empty index.
func (a *Assembler) loadUnread(ctx context.Context, scope models.ViewScope, forumIDs []int64) UnreadIndex {
	var idx UnreadIndex
	if !scope.Viewer.LoggedIn || len(forumIDs) == 0 {
		return idx
	}
	switch scope.UnreadMode {
	case models.UnreadCounts:
		counts, err := a.unread.GetUnreadCounts(ctx, scope.Viewer, forumIDs)
		if err != nil {
			a.logger.Warn("Unread count lookup failed", "forums", len(forumIDs), "error", err)
			return idx
		}
		idx.Counts = counts
	case models.UnreadCheck:
		flags, err := a.unread.GetUnreadCheck(ctx, scope.Viewer, forumIDs)
		if err != nil {
			a.logger.Warn("Unread check lookup failed", "forums", len(forumIDs), "error", err)
			return idx
		}
		idx.Flags = flags
	}
	return idx
}

func (a *Assembler) folderRow(node models.ForumNode, level int) models.RenderRow {
	return models.RenderRow{
		Node:  node,
		Level: level,
		URLs:  map[models.URLKind]string{models.URLIndex: a.urls.Build(models.URLIndex, node.ID)},
	}
}

func (a *Assembler) forumRow(node models.ForumNode, scope models.ViewScope, unread UnreadIndex) models.RenderRow {
	row := models.RenderRow{
		Node:  node,
		Level: MaxRenderLevel,
		URLs: map[models.URLKind]string{
			models.URLList: a.urls.Build(models.URLList, node.ID),
		},
		MessageCount: a.format.FormatNumber(node.MessageCount),
		ThreadCount:  a.format.FormatNumber(node.ThreadCount),
		LastPost:     LastPostPlaceholder,
	}
	if scope.Viewer.LoggedIn {
		row.URLs[models.URLMarkRead] = a.urls.Build(models.URLMarkRead, node.ID, strconv.FormatInt(scope.CurrentForumID, 10))
	}
	if scope.FeedEnabled {
		row.URLs[models.URLFeed] = a.urls.Build(models.URLFeed, node.ID)
	}
	if node.MessageCount > 0 && node.LastPostTime != nil {
		t := *node.LastPostTime
		row.LastPost = a.format.FormatDateTime(t)
		row.RawLastPost = &t
	}

	if !scope.Viewer.LoggedIn {
		return row
	}
	switch scope.UnreadMode {
	case models.UnreadCounts:
		c := unread.Counts[node.ID]
		row.Unread = &models.FormattedUnread{
			Messages: a.format.FormatNumber(c.Messages),
			Threads:  a.format.FormatNumber(c.Threads),
		}
	case models.UnreadCheck:
		hasNew := unread.Flags[node.ID]
		row.HasNew = &hasNew
	}
	return row
}
