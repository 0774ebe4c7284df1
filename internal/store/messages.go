// ABOUTME: Contact message ledger persistence on SQLiteStore
// ABOUTME: Append, list, iterate, mark-seen and delete operations over messages

package store

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"time"
)

const messageColumns = "id, sender, receiver, text, filename, seen, location, platform, timestamp"

// CreateMessage appends a message to the ledger. A message must carry text
// or an attachment filename; otherwise ErrEmptyMessage is returned and
// nothing is written.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *Message) error {
	if msg.Text == "" && msg.Filename == "" {
		return ErrEmptyMessage
	}

	query := `
		INSERT INTO messages (id, sender, receiver, text, filename, seen, location, platform, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		msg.ID,
		msg.Sender,
		nullString(msg.Receiver),
		nullString(msg.Text),
		nullString(msg.Filename),
		boolToInt(msg.Seen),
		nullString(msg.Location),
		nullString(msg.Platform),
		msg.Timestamp.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	s.logger.Debug("saved message", "id", msg.ID, "sender", msg.Sender)
	return nil
}

// ListMessages returns all messages in insertion order, oldest first.
func (s *SQLiteStore) ListMessages(ctx context.Context) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
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
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	return messages, nil
}

// ListThread returns the conversation with one counterpart in insertion
// order: the messages they sent plus the replies addressed to them.
func (s *SQLiteStore) ListThread(ctx context.Context, counterpart string) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE sender = ? OR receiver = ?
		ORDER BY rowid ASC
	`, counterpart, counterpart)
	if err != nil {
		return nil, fmt.Errorf("querying thread: %w", err)
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
		return nil, fmt.Errorf("iterating thread rows: %w", err)
	}

	return messages, nil
}

// Messages returns a lazy sequence over the ledger in insertion order.
// Each range over the sequence runs a fresh query, so it is restartable.
// A query or scan failure is yielded as the final pair's error.
func (s *SQLiteStore) Messages(ctx context.Context) iter.Seq2[*Message, error] {
	return func(yield func(*Message, error) bool) {
		rows, err := s.db.QueryContext(ctx, `
			SELECT `+messageColumns+`
			FROM messages
			ORDER BY rowid ASC
		`)
		if err != nil {
			yield(nil, fmt.Errorf("querying messages: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			msg, err := scanMessage(rows)
			if !yield(msg, err) {
				return
			}
			if err != nil {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("iterating message rows: %w", err))
		}
	}
}

// MarkSeen marks all messages from a sender as seen. Used when the admin
// opens a conversation thread. Marking an unknown sender is a no-op.
func (s *SQLiteStore) MarkSeen(ctx context.Context, sender string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE messages SET seen = 1 WHERE sender = ?", sender)
	if err != nil {
		return fmt.Errorf("marking messages seen: %w", err)
	}
	return nil
}

// DeleteMessage removes a message by ID.
// Returns ErrNotFound if the message doesn't exist.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted message", "id", id)
	return nil
}

// scanMessage reads one message row from a *sql.Rows positioned on a row.
func scanMessage(rows *sql.Rows) (*Message, error) {
	var msg Message
	var receiver, text, filename, location, platform sql.NullString
	var seen int
	var timestampStr string

	if err := rows.Scan(
		&msg.ID,
		&msg.Sender,
		&receiver,
		&text,
		&filename,
		&seen,
		&location,
		&platform,
		&timestampStr,
	); err != nil {
		return nil, fmt.Errorf("scanning message row: %w", err)
	}

	msg.Receiver = receiver.String
	msg.Text = text.String
	msg.Filename = filename.String
	msg.Seen = seen != 0
	msg.Location = location.String
	msg.Platform = platform.String

	var err error
	msg.Timestamp, err = time.Parse(time.RFC3339, timestampStr)
	if err != nil {
		return nil, fmt.Errorf("parsing message timestamp: %w", err)
	}

	return &msg, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
