package index

import (
	"context"
	"time"

	"forumindex/models"
)

// ForumRepository supplies forum and folder records. Children are returned in display order.
type ForumRepository interface {
	// GetNode returns ErrNodeNotFound when no record exists. Id 0 is the synthetic root.
	GetNode(ctx context.Context, id int64) (models.ForumNode, error)
	GetChildrenByParent(ctx context.Context, parentID int64) ([]models.ForumNode, error)
	// GetDescendantsOfRoot returns every node anywhere beneath rootID, ordered so that
	// the nodes sharing a parent appear in the same order GetChildrenByParent uses.
	GetDescendantsOfRoot(ctx context.Context, rootID int64) ([]models.ForumNode, error)
}

// AccessChecker answers whether a viewer may read a forum.
type AccessChecker interface {
	CheckReadAccess(ctx context.Context, viewer models.Viewer, forumID int64) (bool, error)
}

// UnreadTracker supplies per-forum unread state for a viewer.
type UnreadTracker interface {
	GetUnreadCounts(ctx context.Context, viewer models.Viewer, forumIDs []int64) (map[int64]models.UnreadTally, error)
	GetUnreadCheck(ctx context.Context, viewer models.Viewer, forumIDs []int64) (map[int64]bool, error)
}

// URLBuilder builds links for rows and page chrome.
type URLBuilder interface {
	Build(kind models.URLKind, forumID int64, params ...string) string
}

// Formatter applies the locale's number and date conventions.
type Formatter interface {
	FormatNumber(n int64) string
	FormatDateTime(t time.Time) string
}

// Transform rewrites the assembled rows. Transforms run in registration order and
// may return a completely different slice.
type Transform func(rows []models.RenderRow) []models.RenderRow
