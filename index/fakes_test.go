package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"forumindex/models"
)

// memRepo is an in-memory ForumRepository that counts its queries.
type memRepo struct {
	nodes []models.ForumNode
	fail  error

	nodeCalls        int
	childCalls       int
	descendantsCalls int
}

func (r *memRepo) GetNode(_ context.Context, id int64) (models.ForumNode, error) {
	r.nodeCalls++
	if r.fail != nil {
		return models.ForumNode{}, r.fail
	}
	if id == 0 {
		return models.RootNode(), nil
	}
	for _, n := range r.nodes {
		if n.ID == id {
			return n, nil
		}
	}
	return models.ForumNode{}, ErrNodeNotFound
}

func (r *memRepo) children(parentID int64) []models.ForumNode {
	var out []models.ForumNode
	for _, n := range r.nodes {
		if n.ParentID == parentID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *memRepo) GetChildrenByParent(_ context.Context, parentID int64) ([]models.ForumNode, error) {
	r.childCalls++
	if r.fail != nil {
		return nil, r.fail
	}
	return r.children(parentID), nil
}

func (r *memRepo) GetDescendantsOfRoot(_ context.Context, rootID int64) ([]models.ForumNode, error) {
	r.descendantsCalls++
	if r.fail != nil {
		return nil, r.fail
	}
	var out []models.ForumNode
	queue := []int64{rootID}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		for _, c := range r.children(parent) {
			out = append(out, c)
			if c.IsFolder {
				queue = append(queue, c.ID)
			}
		}
	}
	return out, nil
}

type stubAccess struct {
	deny   map[int64]bool
	errFor map[int64]bool
	calls  int
}

func (a *stubAccess) CheckReadAccess(_ context.Context, _ models.Viewer, forumID int64) (bool, error) {
	a.calls++
	if a.errFor[forumID] {
		return false, errors.New("permission store offline")
	}
	return !a.deny[forumID], nil
}

type stubUnread struct {
	counts map[int64]models.UnreadTally
	flags  map[int64]bool
	err    error

	countCalls int
	checkCalls int
	lastIDs    []int64
}

func (u *stubUnread) GetUnreadCounts(_ context.Context, _ models.Viewer, ids []int64) (map[int64]models.UnreadTally, error) {
	u.countCalls++
	u.lastIDs = append([]int64(nil), ids...)
	return u.counts, u.err
}

func (u *stubUnread) GetUnreadCheck(_ context.Context, _ models.Viewer, ids []int64) (map[int64]bool, error) {
	u.checkCalls++
	u.lastIDs = append([]int64(nil), ids...)
	return u.flags, u.err
}

type stubURLs struct{}

func (stubURLs) Build(kind models.URLKind, forumID int64, params ...string) string {
	parts := append([]string{string(kind), fmt.Sprint(forumID)}, params...)
	return "/" + strings.Join(parts, "/")
}

type stubFormat struct{}

func (stubFormat) FormatNumber(n int64) string { return fmt.Sprintf("n%d", n) }

func (stubFormat) FormatDateTime(t time.Time) string { return t.UTC().Format("2006-01-02 15:04") }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func folder(id, parent, vroot int64) models.ForumNode {
	return models.ForumNode{ID: id, ParentID: parent, IsFolder: true, VirtualRootID: vroot, Name: fmt.Sprintf("folder %d", id)}
}

func forum(id, parent, vroot int64) models.ForumNode {
	return models.ForumNode{ID: id, ParentID: parent, VirtualRootID: vroot, Name: fmt.Sprintf("forum %d", id)}
}

func withPosts(n models.ForumNode, messages, threads int64, last time.Time) models.ForumNode {
	n.MessageCount = messages
	n.ThreadCount = threads
	n.LastPostTime = &last
	return n
}

// vrootFixture: virtual root folder 1 holding folders 2 and 3; forum 10 is the only child of 2.
func vrootFixture() *memRepo {
	return &memRepo{nodes: []models.ForumNode{
		folder(1, 0, 1),
		folder(2, 1, 1),
		folder(3, 1, 1),
		forum(10, 2, 1),
	}}
}

type rowSummary struct {
	ID    int64
	Level int
}

func summarize(rows []models.RenderRow) []rowSummary {
	out := make([]rowSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowSummary{ID: r.Node.ID, Level: r.Level})
	}
	return out
}
