package index

import (
	"context"
	"log/slog"

	"forumindex/models"
)

// Service renders index pages: hierarchy, assembly, empty detection and transforms.
type Service struct {
	builder    *HierarchyBuilder
	assembler  *Assembler
	urls       URLBuilder
	transforms []Transform
	logger     *slog.Logger
}

// Options wires a Service. Transforms run in slice order.
type Options struct {
	Repo       ForumRepository
	Access     AccessChecker
	Unread     UnreadTracker
	URLs       URLBuilder
	Formatter  Formatter
	Transforms []Transform
	Logger     *slog.Logger
	// DisableBatching forces per-folder child queries at the root.
	DisableBatching bool
}

func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "index")

	builder := NewHierarchyBuilder(opts.Repo)
	if opts.DisableBatching {
		builder = builder.WithoutBatching()
	}
	return &Service{
		builder:    builder,
		assembler:  NewAssembler(opts.Access, opts.Unread, opts.URLs, opts.Formatter, logger),
		urls:       opts.URLs,
		transforms: append([]Transform(nil), opts.Transforms...),
		logger:     logger,
	}
}

// Render builds the index page for scope.
//
// When nothing is visible it returns the page (title, current node, links) together
// with ErrEmptyIndex so the caller can show its "no forums" message. Any other error
// leaves the page nil.
func (s *Service) Render(ctx context.Context, scope models.ViewScope) (*models.Page, error) {
	h, err := s.builder.Build(ctx, scope.CurrentForumID, scope.VirtualRootID)
	if err != nil {
		return nil, err
	}

	page := &models.Page{
		Title:      h.Current.Name,
		Current:    h.Current,
		LoggedIn:   scope.Viewer.LoggedIn,
		UnreadMode: scope.UnreadMode,
	}
	if !scope.AtRoot() {
		page.ShowIndexLink = true
		page.IndexURL = s.urls.Build(models.URLIndex, h.Current.ParentID)
	}

	rows := s.assembler.Assemble(ctx, h, scope)
	if len(rows) == 0 {
		s.logger.Debug("Index is empty", "forum_id", scope.CurrentForumID, "folders", len(h.Scope))
		return page, ErrEmptyIndex
	}

	for _, t := range s.transforms {
		rows = t(rows)
	}
	page.Rows = rows

	s.logger.Debug("Index assembled",
		"forum_id", scope.CurrentForumID,
		"vroot", scope.VirtualRootID,
		"folders", len(h.Scope),
		"rows", len(rows),
	)
	return page, nil
}
