package database

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"

	"forumindex/index"
	"forumindex/models"
	"forumindex/utils"

	"golang.org/x/crypto/bcrypt"
)

// CheckReadAccess decides whether viewer may read forumID.
//
// Anonymous viewers get the forum's pub_perms, registered viewers its reg_perms
// unless a user_permissions row overrides them. A password protected forum also
// needs the unlock token issued after a successful login.
func (ds *DatabaseService) CheckReadAccess(ctx context.Context, viewer models.Viewer, forumID int64) (bool, error) {
	if forumID == 0 {
		return true, nil
	}

	var pub, reg models.Permission
	var password string
	err := ds.DB.QueryRowContext(ctx, "SELECT pub_perms, reg_perms, password FROM forums WHERE forum_id = ?", forumID).
		Scan(&pub, &reg, &password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("forum %d: %w", forumID, index.ErrNodeNotFound)
		}
		return false, fmt.Errorf("db error checking access to forum %d: %w", forumID, err)
	}

	perms := pub
	if viewer.LoggedIn {
		perms = reg
		var override models.Permission
		err := ds.DB.QueryRowContext(ctx, "SELECT permission FROM user_permissions WHERE user_id = ? AND forum_id = ?",
			viewer.UserID, forumID).Scan(&override)
		switch {
		case err == nil:
			perms = override
		case !errors.Is(err, sql.ErrNoRows):
			return false, fmt.Errorf("db error reading user permissions: %w", err)
		}
	}
	if !perms.Has(models.PermRead) {
		return false, nil
	}

	if password == "" {
		return true, nil
	}
	token := viewer.ForumTokens[forumID]
	expected := utils.GenerateForumSessionHash(password)
	return token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1, nil
}

// SetForumPermissions sets the anonymous and registered permission masks of a forum.
func (ds *DatabaseService) SetForumPermissions(ctx context.Context, forumID int64, pub, reg models.Permission) error {
	_, err := ds.DB.ExecContext(ctx, "UPDATE forums SET pub_perms = ?, reg_perms = ? WHERE forum_id = ?", pub, reg, forumID)
	return err
}

// GrantUserPermission stores a per-user override for one forum.
func (ds *DatabaseService) GrantUserPermission(ctx context.Context, userID, forumID int64, perm models.Permission) error {
	_, err := ds.DB.ExecContext(ctx, `
		INSERT INTO user_permissions (user_id, forum_id, permission) VALUES (?, ?, ?)
		ON CONFLICT(user_id, forum_id) DO UPDATE SET permission = excluded.permission`,
		userID, forumID, perm)
	return err
}

// SetForumPassword protects a forum with a bcrypt hashed password. An empty
// password removes the protection.
func (ds *DatabaseService) SetForumPassword(ctx context.Context, forumID int64, password string) error {
	hashed := ""
	if password != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash forum password: %w", err)
		}
		hashed = string(b)
	}
	res, err := ds.DB.ExecContext(ctx, "UPDATE forums SET password = ? WHERE forum_id = ?", hashed, forumID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return index.ErrNodeNotFound
	}
	return nil
}

// GetForumPassword returns the stored password hash, or "" if the forum is open.
func (ds *DatabaseService) GetForumPassword(ctx context.Context, forumID int64) (string, error) {
	var hashed string
	err := ds.DB.QueryRowContext(ctx, "SELECT password FROM forums WHERE forum_id = ?", forumID).Scan(&hashed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", index.ErrNodeNotFound
	}
	return hashed, err
}
