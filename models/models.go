// forumindex/models/models.go
package models

import (
	"fmt"
	"strings"
	"time"
)

// --- Core Data Models ---

// ForumNode is either a forum (accepts posts) or a folder (groups other nodes).
type ForumNode struct {
	ID            int64
	ParentID      int64
	IsFolder      bool
	VirtualRootID int64
	Name          string
	Description   string
	DisplayOrder  int
	MessageCount  int64
	ThreadCount   int64
	LastPostTime  *time.Time
}

// RootNode is the synthetic absolute root. It has no database record.
func RootNode() ForumNode {
	return ForumNode{ID: 0, ParentID: 0, IsFolder: true, VirtualRootID: 0}
}

// UnreadMode mirrors the show_new_on_index setting.
type UnreadMode int

const (
	UnreadOff UnreadMode = iota
	UnreadCounts
	UnreadCheck
)

func (m UnreadMode) String() string {
	switch m {
	case UnreadCounts:
		return "counts"
	case UnreadCheck:
		return "check"
	default:
		return "off"
	}
}

// ParseUnreadMode accepts the names used in configuration as well as the
// numeric values 0, 1 and 2.
func ParseUnreadMode(s string) (UnreadMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "0":
		return UnreadOff, nil
	case "counts", "1":
		return UnreadCounts, nil
	case "check", "boolean-check", "2":
		return UnreadCheck, nil
	}
	return UnreadOff, fmt.Errorf("unknown unread mode %q", s)
}

// Viewer identifies who is looking at the page.
type Viewer struct {
	UserID   int64
	LoggedIn bool
	// ForumTokens holds unlock cookie values for password protected forums, keyed by forum id.
	ForumTokens map[int64]string
}

// ViewScope is the per-request viewing context. It is read-only once built.
type ViewScope struct {
	CurrentForumID   int64
	VirtualRootID    int64
	Viewer           Viewer
	UnreadMode       UnreadMode
	HideInaccessible bool
	FeedEnabled      bool
}

// AtRoot reports whether the current location is the absolute root or the viewer's virtual root.
func (s ViewScope) AtRoot() bool {
	return s.CurrentForumID == 0 || s.CurrentForumID == s.VirtualRootID
}

// UnreadTally holds new message and thread counts for one forum.
type UnreadTally struct {
	Messages int64
	Threads  int64
}

// URLKind names a link attached to a rendered row.
type URLKind string

const (
	URLList     URLKind = "list"
	URLIndex    URLKind = "index"
	URLMarkRead URLKind = "markread"
	URLFeed     URLKind = "feed"
	URLUnlock   URLKind = "unlock"
)

// RenderRow is a node decorated for display.
type RenderRow struct {
	Node  ForumNode
	Level int
	URLs  map[URLKind]string

	// Set for forum rows only.
	MessageCount string
	ThreadCount  string
	LastPost     string
	RawLastPost  *time.Time

	// Unread is set in counts mode, HasNew in check mode. Both stay nil otherwise.
	Unread *FormattedUnread
	HasNew *bool
}

// FormattedUnread is UnreadTally after number formatting.
type FormattedUnread struct {
	Messages string
	Threads  string
}

// IsFolder is a template helper.
func (r RenderRow) IsFolder() bool { return r.Node.IsFolder }

// URL returns the link of the given kind or "".
func (r RenderRow) URL(kind URLKind) string { return r.URLs[kind] }

// Page is everything the index template needs besides the rows.
type Page struct {
	Title         string
	Current       ForumNode
	Rows          []RenderRow
	ShowIndexLink bool
	IndexURL      string
	LoggedIn      bool
	UnreadMode    UnreadMode
}

// Permission is a bitmask of per-forum rights.
type Permission int

const (
	PermRead Permission = 1 << iota
	PermReply
	PermNewThread
)

// Has reports whether all bits of want are set.
func (p Permission) Has(want Permission) bool { return p&want == want }

// Message is a post stored in a forum. ParentID 0 marks a thread starter.
type Message struct {
	ID        int64
	ForumID   int64
	ThreadID  int64
	ParentID  int64
	Subject   string
	Author    string
	Datestamp time.Time
}

// IsNew reports a set and true HasNew flag.
func (r RenderRow) IsNew() bool { return r.HasNew != nil && *r.HasNew }
