// ABOUTME: Visit event persistence on SQLiteStore
// ABOUTME: Append-only page-view records for the dashboard

package store

import (
	"context"
	"fmt"
	"time"
)

// RecordVisit appends a page-view event. Visit events are append-only;
// there is no update or delete path.
func (s *SQLiteStore) RecordVisit(ctx context.Context, event *VisitEvent) error {
	query := `
		INSERT INTO visit_events (id, ip, source, page, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.IP,
		event.Source,
		event.Page,
		event.Timestamp.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting visit event: %w", err)
	}

	s.logger.Debug("recorded visit", "page", event.Page, "source", event.Source)
	return nil
}

// CountVisits returns the total number of recorded page views.
func (s *SQLiteStore) CountVisits(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM visit_events").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting visits: %w", err)
	}
	return count, nil
}

// RecentVisits returns the newest visit events, newest first.
// If limit is 0 or negative a default of 10 is used.
func (s *SQLiteStore) RecentVisits(ctx context.Context, limit int) ([]*VisitEvent, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ip, source, page, timestamp
		FROM visit_events
		ORDER BY rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent visits: %w", err)
	}
	defer rows.Close()

	var events []*VisitEvent
	for rows.Next() {
		var ev VisitEvent
		var timestampStr string

		if err := rows.Scan(&ev.ID, &ev.IP, &ev.Source, &ev.Page, &timestampStr); err != nil {
			return nil, fmt.Errorf("scanning visit event: %w", err)
		}

		ev.Timestamp, err = time.Parse(time.RFC3339, timestampStr)
		if err != nil {
			return nil, fmt.Errorf("parsing visit timestamp: %w", err)
		}
		events = append(events, &ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating visit events: %w", err)
	}

	return events, nil
}
