package database

const schema = `
CREATE TABLE IF NOT EXISTS forums (
	forum_id INTEGER PRIMARY KEY AUTOINCREMENT,
	parent_id INTEGER NOT NULL DEFAULT 0,
	folder_flag BOOLEAN NOT NULL DEFAULT 0,
	vroot INTEGER NOT NULL DEFAULT 0,
	name TEXT NOT NULL,
	description TEXT DEFAULT '',
	display_order INTEGER DEFAULT 0,
	message_count INTEGER DEFAULT 0,
	thread_count INTEGER DEFAULT 0,
	last_post_time DATETIME,
	pub_perms INTEGER DEFAULT 1,
	reg_perms INTEGER DEFAULT 7
);
CREATE TABLE IF NOT EXISTS messages (
	message_id INTEGER PRIMARY KEY AUTOINCREMENT,
	forum_id INTEGER NOT NULL,
	thread INTEGER NOT NULL DEFAULT 0,
	parent_id INTEGER NOT NULL DEFAULT 0,
	subject TEXT,
	author TEXT,
	datestamp DATETIME,
	FOREIGN KEY (forum_id) REFERENCES forums(forum_id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS users (
	user_id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	created_at DATETIME
);
CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	created_at DATETIME,
	FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
);
-- Per-user grants replace the forum's reg_perms for that user.
CREATE TABLE IF NOT EXISTS user_permissions (
	user_id INTEGER NOT NULL,
	forum_id INTEGER NOT NULL,
	permission INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (user_id, forum_id),
	FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE,
	FOREIGN KEY (forum_id) REFERENCES forums(forum_id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME NOT NULL
);

-- --- INDEXES ---
CREATE INDEX IF NOT EXISTS idx_forums_parent ON forums(parent_id, display_order, forum_id);
CREATE INDEX IF NOT EXISTS idx_messages_forum ON messages(forum_id, message_id);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
`
