package mail

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/asimpleforum/server/internal/apperror"
)

// MessageRepository defines data access for direct messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *Message) error
	Find(ctx context.Context, id string) (*Message, error)
	Inbox(ctx context.Context, recipientID string, offset, limit int, unreadOnly, flaggedOnly bool) ([]Message, error)
	Outbox(ctx context.Context, senderID string, offset, limit int) ([]Message, error)
	Mark(ctx context.Context, id string, read, flagged bool) error
}

// mysqlMessageRepository implements MessageRepository against MariaDB.
type mysqlMessageRepository struct {
	db *sql.DB
}

// NewMessageRepository creates a MariaDB-backed message repository.
func NewMessageRepository(db *sql.DB) MessageRepository {
	return &mysqlMessageRepository{db: db}
}

const messageColumns = "id, sender_id, recipient_id, subject, body, read_flag, flagged, created_at"

func (r *mysqlMessageRepository) Create(ctx context.Context, msg *Message) error {
	query := `
		INSERT INTO messages (id, sender_id, recipient_id, subject, body, read_flag, flagged, created_at)
		VALUES (?, ?, ?, ?, ?, FALSE, FALSE, ?)`

	_, err := r.db.ExecContext(ctx, query,
		msg.ID, msg.SenderID, msg.RecipientID, msg.Subject, msg.Body, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

func (r *mysqlMessageRepository) Find(ctx context.Context, id string) (*Message, error) {
	query := "SELECT " + messageColumns + " FROM messages WHERE id = ?"

	msg, err := scanMessage(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("message not found")
	}
	if err != nil {
		return nil, fmt.Errorf("finding message %s: %w", id, err)
	}
	return msg, nil
}

// Inbox returns a page of messages addressed to recipientID, oldest
// first, matching the mailbox ordering the clients expect.
func (r *mysqlMessageRepository) Inbox(ctx context.Context, recipientID string, offset, limit int, unreadOnly, flaggedOnly bool) ([]Message, error) {
	var sb strings.Builder
	sb.WriteString("SELECT " + messageColumns + " FROM messages WHERE recipient_id = ?")
	args := []any{recipientID}

	if unreadOnly {
		sb.WriteString(" AND read_flag = FALSE")
	}
	if flaggedOnly {
		sb.WriteString(" AND flagged = TRUE")
	}
	sb.WriteString(" ORDER BY created_at ASC LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	return r.queryMessages(ctx, sb.String(), args...)
}

func (r *mysqlMessageRepository) Outbox(ctx context.Context, senderID string, offset, limit int) ([]Message, error) {
	query := "SELECT " + messageColumns + ` FROM messages
		WHERE sender_id = ?
		ORDER BY created_at ASC
		LIMIT ? OFFSET ?`

	return r.queryMessages(ctx, query, senderID, limit, offset)
}

func (r *mysqlMessageRepository) Mark(ctx context.Context, id string, read, flagged bool) error {
	query := "UPDATE messages SET read_flag = ?, flagged = ? WHERE id = ?"

	res, err := r.db.ExecContext(ctx, query, read, flagged, id)
	if err != nil {
		return fmt.Errorf("marking message %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// RowsAffected is also 0 when the marks already match, so only
		// treat this as missing after a fresh existence check.
		if _, findErr := r.Find(ctx, id); findErr != nil {
			return findErr
		}
	}
	return nil
}

func (r *mysqlMessageRepository) queryMessages(ctx context.Context, query string, args ...any) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*Message, error) {
	var msg Message
	err := row.Scan(&msg.ID, &msg.SenderID, &msg.RecipientID,
		&msg.Subject, &msg.Body, &msg.Read, &msg.Flagged, &msg.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
