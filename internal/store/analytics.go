// ABOUTME: Read-only dashboard aggregation queries on SQLiteStore
// ABOUTME: Grouped counts, top senders and the recent-activity feed

package store

import (
	"context"
	"fmt"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 50
)

// CountMessages returns the total number of ledger rows.
func (s *SQLiteStore) CountMessages(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting messages: %w", err)
	}
	return count, nil
}

// CountDistinctSenders returns the number of distinct senders, excluding the
// given sender name (the admin's replies don't count as visitors).
func (s *SQLiteStore) CountDistinctSenders(ctx context.Context, excluding string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT sender) FROM messages WHERE sender != ?", excluding,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting distinct senders: %w", err)
	}
	return count, nil
}

// CountByLocation groups message counts by location, excluding rows where
// the location is unset. An empty ledger yields an empty map.
func (s *SQLiteStore) CountByLocation(ctx context.Context) (map[string]int, error) {
	return s.countByField(ctx, "location")
}

// CountByPlatform groups message counts by platform, excluding rows where
// the platform is unset. An empty ledger yields an empty map.
func (s *SQLiteStore) CountByPlatform(ctx context.Context) (map[string]int, error) {
	return s.countByField(ctx, "platform")
}

// countByField runs the GROUP BY for a known optional column. The column
// name is interpolated from a fixed caller-controlled set, never user input.
func (s *SQLiteStore) countByField(ctx context.Context, field string) (map[string]int, error) {
	query := fmt.Sprintf(
		"SELECT %s, COUNT(*) FROM messages WHERE %s IS NOT NULL AND %s != '' GROUP BY %s",
		field, field, field, field,
	)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("grouping by %s: %w", field, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var value string
		var count int
		if err := rows.Scan(&value, &count); err != nil {
			return nil, fmt.Errorf("scanning %s count: %w", field, err)
		}
		counts[value] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s counts: %w", field, err)
	}

	return counts, nil
}

// TopSenders returns the most frequent senders in descending count order,
// excluding the given sender. Ties are broken by first appearance in the
// ledger so the ordering is stable. If limit is 0 or negative, 5 is used.
func (s *SQLiteStore) TopSenders(ctx context.Context, limit int, excluding string) ([]SenderCount, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT sender, COUNT(*) AS cnt
		FROM messages
		WHERE sender != ?
		GROUP BY sender
		ORDER BY cnt DESC, MIN(rowid) ASC
		LIMIT ?
	`, excluding, limit)
	if err != nil {
		return nil, fmt.Errorf("querying top senders: %w", err)
	}
	defer rows.Close()

	var senders []SenderCount
	for rows.Next() {
		var sc SenderCount
		if err := rows.Scan(&sc.Sender, &sc.Count); err != nil {
			return nil, fmt.Errorf("scanning top sender: %w", err)
		}
		senders = append(senders, sc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating top senders: %w", err)
	}

	return senders, nil
}

// RecentActivity returns the newest ledger rows, newest first. If limit is
// 0 or negative a default of 10 is used; limits above 50 are capped.
func (s *SQLiteStore) RecentActivity(ctx context.Context, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		ORDER BY rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent activity: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recent activity: %w", err)
	}

	return messages, nil
}
