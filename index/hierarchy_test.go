package index

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"forumindex/models"
)

// rootFixture: forum 5 and folder 6 directly under the absolute root, forum 7 in folder 6,
// sub-folder 11 in folder 6, and a virtual root folder 8 holding forum 9.
func rootFixture() *memRepo {
	return &memRepo{nodes: []models.ForumNode{
		forum(5, 0, 0),
		folder(6, 0, 0),
		forum(7, 6, 0),
		folder(8, 0, 8),
		forum(9, 8, 8),
		folder(11, 6, 0),
		forum(12, 11, 0),
	}}
}

func childIDs(nodes []models.ForumNode) []int64 {
	ids := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func TestBuild_AtVirtualRoot(t *testing.T) {
	repo := vrootFixture()
	h, err := NewHierarchyBuilder(repo).Build(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("Expected no error, but got: %v", err)
	}

	if want := []int64{1, 2, 3}; !reflect.DeepEqual(h.Scope, want) {
		t.Errorf("Expected scope %v, but got %v", want, h.Scope)
	}
	if got := childIDs(h.Children[1]); len(got) != 0 {
		t.Errorf("Expected folders shown as headers not to be nested under the root, but got %v", got)
	}
	if got := childIDs(h.Children[2]); !reflect.DeepEqual(got, []int64{10}) {
		t.Errorf("Expected folder 2 children [10], but got %v", got)
	}
	if got := childIDs(h.Children[3]); len(got) != 0 {
		t.Errorf("Expected folder 3 to have no children, but got %v", got)
	}
	if !reflect.DeepEqual(h.Candidates, []int64{10}) {
		t.Errorf("Expected unread candidates [10], but got %v", h.Candidates)
	}
	if repo.descendantsCalls != 1 || repo.childCalls != 0 {
		t.Errorf("Expected one batched query and no per-folder queries, got %d batched and %d per-folder", repo.descendantsCalls, repo.childCalls)
	}
}

func TestBuild_AtAbsoluteRoot(t *testing.T) {
	h, err := NewHierarchyBuilder(rootFixture()).Build(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("Expected no error, but got: %v", err)
	}

	if want := []int64{0, 6}; !reflect.DeepEqual(h.Scope, want) {
		t.Errorf("Expected scope %v (other virtual roots excluded), but got %v", want, h.Scope)
	}
	if got := childIDs(h.Children[0]); !reflect.DeepEqual(got, []int64{5}) {
		t.Errorf("Expected root-level folders to be excluded from nesting, got root children %v", got)
	}
	if got := childIDs(h.Children[6]); !reflect.DeepEqual(got, []int64{7, 11}) {
		t.Errorf("Expected folder 6 children [7 11], but got %v", got)
	}
	if _, ok := h.Children[11]; ok {
		t.Error("Expected sub-folder 11 not to be expanded")
	}
	if want := []int64{5, 7}; !reflect.DeepEqual(h.Candidates, want) {
		t.Errorf("Expected unread candidates %v, but got %v", want, h.Candidates)
	}
}

func TestBuild_InsideFolder(t *testing.T) {
	repo := rootFixture()
	h, err := NewHierarchyBuilder(repo).Build(context.Background(), 6, 0)
	if err != nil {
		t.Fatalf("Expected no error, but got: %v", err)
	}
	if !reflect.DeepEqual(h.Scope, []int64{6}) {
		t.Errorf("Expected only the current folder in scope, but got %v", h.Scope)
	}
	if got := childIDs(h.Children[6]); !reflect.DeepEqual(got, []int64{7, 11}) {
		t.Errorf("Expected sub-folder 11 to be kept as a nested row, got %v", got)
	}
	if repo.descendantsCalls != 0 || repo.childCalls != 1 {
		t.Errorf("Expected a single per-folder query, got %d batched and %d per-folder", repo.descendantsCalls, repo.childCalls)
	}
}

func TestBuild_CurrentIsForum(t *testing.T) {
	h, err := NewHierarchyBuilder(vrootFixture()).Build(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("Expected no error, but got: %v", err)
	}
	if len(h.Scope) != 0 {
		t.Errorf("Expected no folders in scope for a forum, but got %v", h.Scope)
	}
	if h.Current.ID != 10 {
		t.Errorf("Expected current node 10, but got %d", h.Current.ID)
	}
}

func TestBuild_BatchingMatchesPerFolder(t *testing.T) {
	testCases := []struct {
		name    string
		repo    func() *memRepo
		current int64
		vroot   int64
	}{
		{"Virtual root", vrootFixture, 1, 1},
		{"Absolute root", rootFixture, 0, 0},
		{"Nested virtual root", rootFixture, 8, 8},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			batched, err := NewHierarchyBuilder(tc.repo()).Build(context.Background(), tc.current, tc.vroot)
			if err != nil {
				t.Fatalf("Batched build failed: %v", err)
			}
			plain, err := NewHierarchyBuilder(tc.repo()).WithoutBatching().Build(context.Background(), tc.current, tc.vroot)
			if err != nil {
				t.Fatalf("Per-folder build failed: %v", err)
			}
			if !reflect.DeepEqual(batched, plain) {
				t.Errorf("Expected identical hierarchies, got batched %+v and per-folder %+v", batched, plain)
			}
		})
	}
}

func TestBuild_Errors(t *testing.T) {
	t.Run("Missing current node", func(t *testing.T) {
		_, err := NewHierarchyBuilder(vrootFixture()).Build(context.Background(), 99, 0)
		if !errors.Is(err, ErrNodeNotFound) {
			t.Errorf("Expected ErrNodeNotFound, but got %v", err)
		}
	})

	t.Run("Store failure", func(t *testing.T) {
		storeErr := errors.New("database is locked")
		repo := vrootFixture()
		repo.fail = storeErr
		_, err := NewHierarchyBuilder(repo).Build(context.Background(), 1, 1)
		if !errors.Is(err, ErrRepositoryUnavailable) {
			t.Errorf("Expected ErrRepositoryUnavailable, but got %v", err)
		}
		if !errors.Is(err, storeErr) {
			t.Errorf("Expected the store error to be wrapped, but got %v", err)
		}
	})
}
