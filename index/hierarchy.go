package index

import (
	"context"
	"errors"
	"fmt"

	"forumindex/models"
)

// MaxRenderLevel is the deepest row level produced. Folder headers are level 0 and
// their direct children level 1. Sub-folders are linked, never expanded.
const MaxRenderLevel = 1

// Hierarchy is the folder structure of one index page.
type Hierarchy struct {
	Current models.ForumNode
	// Scope lists the folders shown on the page in first-encountered order.
	Scope   []int64
	Folders map[int64]models.ForumNode
	// Children holds the retained direct children of every folder in Scope.
	Children map[int64][]models.ForumNode
	// Candidates are the retained forum (non-folder) ids, for unread tracking.
	Candidates []int64
}

// HierarchyBuilder derives the folder scope and child lists from repository reads.
type HierarchyBuilder struct {
	repo  ForumRepository
	batch bool
}

// NewHierarchyBuilder returns a builder that fetches the whole subtree in one
// query when the viewer is at a (virtual) root.
func NewHierarchyBuilder(repo ForumRepository) *HierarchyBuilder {
	return &HierarchyBuilder{repo: repo, batch: true}
}

// WithoutBatching returns a copy that always fetches children folder by folder.
func (b *HierarchyBuilder) WithoutBatching() *HierarchyBuilder {
	return &HierarchyBuilder{repo: b.repo}
}

// Build computes the hierarchy for currentID as seen from the viewer's virtual root.
func (b *HierarchyBuilder) Build(ctx context.Context, currentID, vrootID int64) (*Hierarchy, error) {
	current, err := b.repo.GetNode(ctx, currentID)
	if err != nil {
		if errors.Is(err, ErrNodeNotFound) {
			return nil, fmt.Errorf("forum %d: %w", currentID, err)
		}
		return nil, unavailable(fmt.Sprintf("get forum %d", currentID), err)
	}

	working := []models.ForumNode{current}

	// At a (virtual) root the first level folders are shown with their contents.
	var byParent map[int64][]models.ForumNode
	if currentID == vrootID {
		if b.batch {
			all, err := b.repo.GetDescendantsOfRoot(ctx, vrootID)
			if err != nil {
				return nil, unavailable(fmt.Sprintf("get descendants of %d", vrootID), err)
			}
			byParent = groupByParent(all)
			working = append(working, byParent[vrootID]...)
		} else {
			children, err := b.repo.GetChildrenByParent(ctx, vrootID)
			if err != nil {
				return nil, unavailable(fmt.Sprintf("get children of %d", vrootID), err)
			}
			working = append(working, children...)
		}
	}

	h := &Hierarchy{
		Current:  current,
		Folders:  make(map[int64]models.ForumNode),
		Children: make(map[int64][]models.ForumNode),
	}
	for _, node := range working {
		if !node.IsFolder || node.VirtualRootID != vrootID {
			continue
		}
		if _, dup := h.Folders[node.ID]; dup {
			continue
		}
		h.Scope = append(h.Scope, node.ID)
		h.Folders[node.ID] = node
	}

	seen := make(map[int64]bool)
	for _, folderID := range h.Scope {
		var children []models.ForumNode
		if byParent != nil {
			children = byParent[folderID]
		} else {
			children, err = b.repo.GetChildrenByParent(ctx, folderID)
			if err != nil {
				return nil, unavailable(fmt.Sprintf("get children of %d", folderID), err)
			}
		}

		kept := make([]models.ForumNode, 0, len(children))
		for _, child := range children {
			if !h.nestable(child) {
				continue
			}
			kept = append(kept, child)
			if !child.IsFolder && !seen[child.ID] {
				seen[child.ID] = true
				h.Candidates = append(h.Candidates, child.ID)
			}
		}
		h.Children[folderID] = kept
	}
	return h, nil
}

// nestable reports whether child may be shown as a level 1 row. Folders attached to
// the absolute root, and folders already shown as headers on this page, are not.
func (h *Hierarchy) nestable(child models.ForumNode) bool {
	if !child.IsFolder {
		return true
	}
	if child.ParentID == 0 {
		return false
	}
	_, header := h.Folders[child.ID]
	return !header
}

func groupByParent(nodes []models.ForumNode) map[int64][]models.ForumNode {
	out := make(map[int64][]models.ForumNode)
	for _, n := range nodes {
		out[n.ParentID] = append(out[n.ParentID], n)
	}
	return out
}
