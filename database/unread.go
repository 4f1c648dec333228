package database

import (
	"context"
	"fmt"

	"forumindex/index"
	"forumindex/models"
	"forumindex/utils"
)

// Messages above a user's last_read_message_id for a forum count as unread. A
// user without a marker has read nothing.
const unreadFilter = `
	FROM messages m
	LEFT JOIN user_forum_markers k ON k.forum_id = m.forum_id AND k.user_id = ?
	WHERE m.forum_id IN (%s) AND m.message_id > COALESCE(k.last_read_message_id, 0)`

// GetUnreadCounts returns new message and thread counts for the given forums.
// Forums with nothing new are absent from the result.
func (ds *DatabaseService) GetUnreadCounts(ctx context.Context, viewer models.Viewer, forumIDs []int64) (map[int64]models.UnreadTally, error) {
	out := make(map[int64]models.UnreadTally)
	if !viewer.LoggedIn || len(forumIDs) == 0 {
		return out, nil
	}
	marks, args := placeholders(forumIDs)
	query := "SELECT m.forum_id, COUNT(*), SUM(CASE WHEN m.parent_id = 0 THEN 1 ELSE 0 END)" +
		fmt.Sprintf(unreadFilter, marks) + " GROUP BY m.forum_id"

	rows, err := ds.DB.QueryContext(ctx, query, append([]any{viewer.UserID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("unread counts: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			ds.logger.Error("Failed to close rows in GetUnreadCounts", "error", err)
		}
	}()
	for rows.Next() {
		var id int64
		var c models.UnreadTally
		if err := rows.Scan(&id, &c.Messages, &c.Threads); err != nil {
			return nil, fmt.Errorf("unread counts: scan: %w", err)
		}
		out[id] = c
	}
	return out, rows.Err()
}

// GetUnreadCheck reports which of the given forums hold at least one unread message.
func (ds *DatabaseService) GetUnreadCheck(ctx context.Context, viewer models.Viewer, forumIDs []int64) (map[int64]bool, error) {
	out := make(map[int64]bool)
	if !viewer.LoggedIn || len(forumIDs) == 0 {
		return out, nil
	}
	marks, args := placeholders(forumIDs)
	query := "SELECT DISTINCT m.forum_id" + fmt.Sprintf(unreadFilter, marks)

	rows, err := ds.DB.QueryContext(ctx, query, append([]any{viewer.UserID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("unread check: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			ds.logger.Error("Failed to close rows in GetUnreadCheck", "error", err)
		}
	}()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("unread check: scan: %w", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}

// MarkForumRead moves the user's watermark for forumID to its newest message.
func (ds *DatabaseService) MarkForumRead(ctx context.Context, userID, forumID int64) error {
	node, err := ds.GetNode(ctx, forumID)
	if err != nil {
		return err
	}
	if node.IsFolder {
		return fmt.Errorf("forum %d is a folder: %w", forumID, index.ErrNodeNotFound)
	}
	_, err = ds.DB.ExecContext(ctx, `
		INSERT INTO user_forum_markers (user_id, forum_id, last_read_message_id, updated_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(message_id), 0) FROM messages WHERE forum_id = ?), ?)
		ON CONFLICT(user_id, forum_id) DO UPDATE SET
			last_read_message_id = excluded.last_read_message_id,
			updated_at = excluded.updated_at`,
		userID, forumID, forumID, utils.GetSQLTime())
	if err != nil {
		return fmt.Errorf("failed to mark forum %d read: %w", forumID, err)
	}
	return nil
}
