// ABOUTME: Gallery item metadata persistence on SQLiteStore
// ABOUTME: CRUD plus compare-and-swap filename updates for artifact replacement

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateGalleryItem inserts metadata for an uploaded image.
func (s *SQLiteStore) CreateGalleryItem(ctx context.Context, item *GalleryItem) error {
	query := `
		INSERT INTO gallery_items (id, filename, caption, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		item.ID,
		item.Filename,
		nullString(item.Caption),
		item.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting gallery item: %w", err)
	}

	s.logger.Debug("created gallery item", "id", item.ID, "filename", item.Filename)
	return nil
}

// GetGalleryItem retrieves a gallery item by ID.
// Returns ErrNotFound if the item doesn't exist.
func (s *SQLiteStore) GetGalleryItem(ctx context.Context, id string) (*GalleryItem, error) {
	query := `
		SELECT id, filename, caption, created_at
		FROM gallery_items
		WHERE id = ?
	`

	var item GalleryItem
	var caption sql.NullString
	var createdAtStr string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID,
		&item.Filename,
		&caption,
		&createdAtStr,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying gallery item: %w", err)
	}

	item.Caption = caption.String
	item.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &item, nil
}

// ListGalleryItems returns all gallery items, oldest first.
func (s *SQLiteStore) ListGalleryItems(ctx context.Context) ([]*GalleryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, caption, created_at
		FROM gallery_items
		ORDER BY created_at ASC, rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying gallery items: %w", err)
	}
	defer rows.Close()

	var items []*GalleryItem
	for rows.Next() {
		var item GalleryItem
		var caption sql.NullString
		var createdAtStr string

		if err := rows.Scan(&item.ID, &item.Filename, &caption, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning gallery item: %w", err)
		}

		item.Caption = caption.String
		item.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating gallery items: %w", err)
	}

	return items, nil
}

// SwapGalleryFilename atomically updates an item's filename, but only if the
// row still references oldFilename. Two concurrent replacements of the same
// item otherwise form a read-modify-write race where one side deletes the
// artifact the other just wrote; the compare-and-swap makes the loser fail
// with ErrReplaceConflict instead. Returns ErrNotFound if the item is gone.
func (s *SQLiteStore) SwapGalleryFilename(ctx context.Context, id, oldFilename, newFilename string) error {
	query := `
		UPDATE gallery_items
		SET filename = ?
		WHERE id = ? AND filename = ?
	`

	result, err := s.db.ExecContext(ctx, query, newFilename, id, oldFilename)
	if err != nil {
		return fmt.Errorf("updating gallery filename: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected > 0 {
		s.logger.Debug("swapped gallery filename", "id", id, "filename", newFilename)
		return nil
	}

	// Zero rows: either the item vanished or another replace won the race.
	if _, err := s.GetGalleryItem(ctx, id); errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return ErrReplaceConflict
}

// DeleteGalleryItem removes a gallery item row.
// Returns ErrNotFound if the item doesn't exist.
func (s *SQLiteStore) DeleteGalleryItem(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM gallery_items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting gallery item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted gallery item", "id", id)
	return nil
}
