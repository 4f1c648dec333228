package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"forumindex/utils"

	"github.com/google/uuid"
)

// CreateUser registers a user name and returns the new id.
func (ds *DatabaseService) CreateUser(ctx context.Context, username string) (int64, error) {
	res, err := ds.DB.ExecContext(ctx, "INSERT INTO users (username, created_at) VALUES (?, ?)", username, utils.GetSQLTime())
	if err != nil {
		return 0, fmt.Errorf("failed to create user %q: %w", username, err)
	}
	return res.LastInsertId()
}

// CreateSession issues a random session token for userID.
func (ds *DatabaseService) CreateSession(ctx context.Context, userID int64) (string, error) {
	token := uuid.NewString()
	if _, err := ds.DB.ExecContext(ctx, "INSERT INTO sessions (token, user_id, created_at) VALUES (?, ?, ?)",
		token, userID, utils.GetSQLTime()); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return token, nil
}

// LookupSession resolves a session token. Unknown tokens are not an error.
func (ds *DatabaseService) LookupSession(ctx context.Context, token string) (int64, bool, error) {
	if token == "" {
		return 0, false, nil
	}
	var userID int64
	err := ds.DB.QueryRowContext(ctx, "SELECT user_id FROM sessions WHERE token = ?", token).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("db error looking up session: %w", err)
	}
	return userID, true, nil
}
