// ABOUTME: Admin credential persistence on SQLiteStore
// ABOUTME: Create/count/lookup of administrator rows with salted password hashes

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateAdmin inserts a new administrator. The caller provides the password
// hash; plaintext passwords never reach the store. A duplicate username
// fails with ErrUsernameExists rather than overwriting.
func (s *SQLiteStore) CreateAdmin(ctx context.Context, admin *Admin) error {
	query := `
		INSERT INTO admins (id, username, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		admin.ID,
		admin.Username,
		admin.PasswordHash,
		admin.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUsernameExists
		}
		return fmt.Errorf("inserting admin: %w", err)
	}

	s.logger.Info("created admin", "id", admin.ID, "username", admin.Username)
	return nil
}

// CountAdmins returns the number of administrator rows.
func (s *SQLiteStore) CountAdmins(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM admins").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting admins: %w", err)
	}
	return count, nil
}

// GetAdminByUsername retrieves an administrator by username.
// Returns ErrNotFound if no such admin exists.
func (s *SQLiteStore) GetAdminByUsername(ctx context.Context, username string) (*Admin, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM admins
		WHERE username = ?
	`

	var admin Admin
	var createdAtStr string

	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&admin.ID,
		&admin.Username,
		&admin.PasswordHash,
		&createdAtStr,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying admin by username: %w", err)
	}

	admin.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &admin, nil
}
