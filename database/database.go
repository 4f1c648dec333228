// forumindex/database/database.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"forumindex/index"
	"forumindex/models"
	"forumindex/utils"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/singleflight"
)

// DatabaseService is the central struct for all database operations. It implements
// index.ForumRepository, index.AccessChecker and index.UnreadTracker.
type DatabaseService struct {
	DB     *sql.DB
	logger *slog.Logger
	// flights collapses concurrent subtree reads for the same root.
	flights singleflight.Group
}

var (
	_ index.ForumRepository = (*DatabaseService)(nil)
	_ index.AccessChecker   = (*DatabaseService)(nil)
	_ index.UnreadTracker   = (*DatabaseService)(nil)
)

const nodeColumns = `forum_id, parent_id, folder_flag, vroot, name, description, display_order,
	message_count, thread_count, last_post_time`

// InitDB connects to the database, runs migrations, and seeds default data.
func InitDB(dataSourceName string, logger *slog.Logger) (*DatabaseService, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, err
	}

	// Run the base schema to ensure all tables exist.
	if _, err = db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to execute base schema: %w", err)
	}

	// Run versioned migrations
	if err := runMigrations(db, logger); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	// Seed database if empty
	var forumCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM forums").Scan(&forumCount); err == nil && forumCount == 0 {
		_, err = db.Exec("INSERT INTO forums (parent_id, folder_flag, vroot, name, description) VALUES (0, 0, 0, 'General Discussion', 'Talk about anything.')")
		if err != nil {
			return nil, fmt.Errorf("failed to seed forums: %w", err)
		}
		logger.Info("Seeded empty database with a default forum")
	}

	logger.Info("Database initialized")

	return &DatabaseService{
		DB:     db,
		logger: logger,
	}, nil
}

// Close releases the underlying connection pool.
func (ds *DatabaseService) Close() error {
	return ds.DB.Close()
}

// runMigrations applies all un-applied migrations.
func runMigrations(db *sql.DB, logger *slog.Logger) error {
	var latestVersion uint
	err := db.QueryRow("SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1").Scan(&latestVersion)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("could not get db version: %w", err)
	}

	logger.Info("Current database schema version", "version", latestVersion)

	for _, m := range allMigrations {
		if m.Version <= latestVersion {
			continue
		}
		logger.Info("Applying migration", "version", m.Version)
		tx, err := db.Begin()
		if err != nil {
			return err
		}

		if _, err := tx.Exec(m.Query); err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				logger.Error("Failed to rollback migration", "version", m.Version, "error", rerr)
			}
			return fmt.Errorf("failed to apply migration v%d: %w", m.Version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", m.Version, utils.GetSQLTime()); err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				logger.Error("Failed to rollback migration record", "version", m.Version, "error", rerr)
			}
			return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration v%d: %w", m.Version, err)
		}
		logger.Info("Successfully applied migration", "version", m.Version)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(s rowScanner) (models.ForumNode, error) {
	var n models.ForumNode
	var last sql.NullTime
	err := s.Scan(&n.ID, &n.ParentID, &n.IsFolder, &n.VirtualRootID, &n.Name, &n.Description,
		&n.DisplayOrder, &n.MessageCount, &n.ThreadCount, &last)
	if err != nil {
		return n, err
	}
	if last.Valid {
		t := last.Time
		n.LastPostTime = &t
	}
	return n, nil
}

// GetNode fetches one forum or folder. Id 0 is the synthetic root.
func (ds *DatabaseService) GetNode(ctx context.Context, id int64) (models.ForumNode, error) {
	if id == 0 {
		return models.RootNode(), nil
	}
	row := ds.DB.QueryRowContext(ctx, "SELECT "+nodeColumns+" FROM forums WHERE forum_id = ?", id)
	n, err := scanNode(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return n, index.ErrNodeNotFound
		}
		return n, fmt.Errorf("db error getting forum %d: %w", id, err)
	}
	return n, nil
}

// GetChildrenByParent returns the direct children of parentID in display order.
func (ds *DatabaseService) GetChildrenByParent(ctx context.Context, parentID int64) ([]models.ForumNode, error) {
	return ds.queryNodes(ctx, "GetChildrenByParent",
		"SELECT "+nodeColumns+" FROM forums WHERE parent_id = ? ORDER BY display_order, forum_id", parentID)
}

// GetDescendantsOfRoot returns every node below rootID. Within one parent the
// nodes keep display order. Concurrent calls for the same root share one query.
func (ds *DatabaseService) GetDescendantsOfRoot(ctx context.Context, rootID int64) ([]models.ForumNode, error) {
	return ds.sharedSubtree(ctx, rootID, ds.queryDescendants)
}

// sharedSubtree runs load once per root for all concurrent callers. The shared
// load ignores cancellation of whichever caller started it; each caller stops
// waiting when its own ctx is done.
func (ds *DatabaseService) sharedSubtree(ctx context.Context, rootID int64,
	load func(context.Context, int64) ([]models.ForumNode, error)) ([]models.ForumNode, error) {
	ch := ds.flights.DoChan("descendants:"+strconv.FormatInt(rootID, 10), func() (any, error) {
		return load(context.WithoutCancel(ctx), rootID)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("GetDescendantsOfRoot: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return append([]models.ForumNode(nil), res.Val.([]models.ForumNode)...), nil
	}
}

func (ds *DatabaseService) queryDescendants(ctx context.Context, rootID int64) ([]models.ForumNode, error) {
	return ds.queryNodes(ctx, "GetDescendantsOfRoot", `
		WITH RECURSIVE tree(id) AS (
			SELECT forum_id FROM forums WHERE parent_id = ?
			UNION
			SELECT f.forum_id FROM forums f JOIN tree t ON f.parent_id = t.id
		)
		SELECT `+nodeColumns+` FROM forums
		WHERE forum_id IN (SELECT id FROM tree)
		ORDER BY parent_id, display_order, forum_id`, rootID)
}

func (ds *DatabaseService) queryNodes(ctx context.Context, op, query string, args ...any) ([]models.ForumNode, error) {
	rows, err := ds.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			ds.logger.Error("Failed to close rows", "op", op, "error", err)
		}
	}()

	var nodes []models.ForumNode
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return nodes, nil
}

// CreateForum inserts a forum or folder. A zero ID lets the database assign one.
func (ds *DatabaseService) CreateForum(ctx context.Context, n models.ForumNode) (int64, error) {
	var last sql.NullTime
	if n.LastPostTime != nil {
		last = sql.NullTime{Time: *n.LastPostTime, Valid: true}
	}
	res, err := ds.DB.ExecContext(ctx, `
		INSERT INTO forums (forum_id, parent_id, folder_flag, vroot, name, description, display_order,
			message_count, thread_count, last_post_time)
		VALUES (NULLIF(?, 0), ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.ParentID, n.IsFolder, n.VirtualRootID, n.Name, n.Description, n.DisplayOrder,
		n.MessageCount, n.ThreadCount, last)
	if err != nil {
		return 0, fmt.Errorf("failed to create forum %q: %w", n.Name, err)
	}
	return res.LastInsertId()
}

// PostMessage stores a message and updates the forum's counters. A message without
// a parent starts a new thread.
func (ds *DatabaseService) PostMessage(ctx context.Context, m models.Message) (int64, error) {
	if m.Datestamp.IsZero() {
		m.Datestamp = utils.GetSQLTime()
	}
	tx, err := ds.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
			ds.logger.Error("Failed to rollback transaction in PostMessage", "error", rerr)
		}
	}()

	var isFolder bool
	if err := tx.QueryRowContext(ctx, "SELECT folder_flag FROM forums WHERE forum_id = ?", m.ForumID).Scan(&isFolder); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, index.ErrNodeNotFound
		}
		return 0, err
	}
	if isFolder {
		return 0, fmt.Errorf("forum %d is a folder", m.ForumID)
	}

	res, err := tx.ExecContext(ctx, "INSERT INTO messages (forum_id, thread, parent_id, subject, author, datestamp) VALUES (?, ?, ?, ?, ?, ?)",
		m.ForumID, m.ThreadID, m.ParentID, m.Subject, m.Author, m.Datestamp)
	if err != nil {
		return 0, fmt.Errorf("failed to insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	newThread := 0
	if m.ParentID == 0 {
		newThread = 1
		if _, err := tx.ExecContext(ctx, "UPDATE messages SET thread = ? WHERE message_id = ?", id, id); err != nil {
			return 0, err
		}
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE forums SET message_count = message_count + 1, thread_count = thread_count + ?, last_post_time = ?
		WHERE forum_id = ?`, newThread, m.Datestamp, m.ForumID); err != nil {
		return 0, fmt.Errorf("failed to update forum stats: %w", err)
	}

	return id, tx.Commit()
}

// ListThreads returns the newest thread starters of a forum, newest first.
func (ds *DatabaseService) ListThreads(ctx context.Context, forumID int64, limit int) ([]models.Message, error) {
	rows, err := ds.DB.QueryContext(ctx, `
		SELECT message_id, forum_id, thread, parent_id, COALESCE(subject, ''), COALESCE(author, ''), datestamp
		FROM messages WHERE forum_id = ? AND parent_id = 0
		ORDER BY message_id DESC LIMIT ?`, forumID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListThreads: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			ds.logger.Error("Failed to close rows", "op", "ListThreads", "error", err)
		}
	}()

	var threads []models.Message
	for rows.Next() {
		var m models.Message
		var stamp sql.NullTime
		if err := rows.Scan(&m.ID, &m.ForumID, &m.ThreadID, &m.ParentID, &m.Subject, &m.Author, &stamp); err != nil {
			return nil, fmt.Errorf("ListThreads: scan: %w", err)
		}
		if stamp.Valid {
			m.Datestamp = stamp.Time
		}
		threads = append(threads, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListThreads: %w", err)
	}
	return threads, nil
}

// placeholders returns "?,?,..." for n arguments along with ids as driver args.
func placeholders(ids []int64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return "?" + strings.Repeat(",?", len(ids)-1), args
}
