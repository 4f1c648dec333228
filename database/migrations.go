package database

// migration represents a single database schema migration.
type migration struct {
	Version uint
	Query   string
}

// allMigrations holds all schema changes in order.
var allMigrations = []migration{
	{
		Version: 1,
		Query: `
-- Password protected forums
ALTER TABLE forums ADD COLUMN password TEXT DEFAULT '';
		`,
	},
	{
		Version: 2,
		Query: `
-- Read watermarks for unread tracking
CREATE TABLE IF NOT EXISTS user_forum_markers (
	user_id INTEGER NOT NULL,
	forum_id INTEGER NOT NULL,
	last_read_message_id INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME,
	PRIMARY KEY (user_id, forum_id)
);
CREATE INDEX IF NOT EXISTS idx_messages_forum_parent ON messages(forum_id, parent_id, message_id);
		`,
	},
}
