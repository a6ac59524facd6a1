package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/asimpleforum/server/internal/apperror"
	"github.com/asimpleforum/server/internal/plugins/accounts"
	"github.com/asimpleforum/server/internal/plugins/audit"
	"github.com/asimpleforum/server/internal/sanitize"
)

// Mailbox page bounds.
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// MailService defines the business logic contract for direct messages.
type MailService interface {
	Send(ctx context.Context, req SendRequest) (*Message, error)
	Inbox(ctx context.Context, req InboxRequest) ([]MessageSummary, error)
	Outbox(ctx context.Context, req OutboxRequest) ([]MessageSummary, error)
	Message(ctx context.Context, req MessageRequest) (*MessageView, error)
	Mark(ctx context.Context, req MarkRequest) error
}

// mailService implements MailService.
type mailService struct {
	repo     MessageRepository
	users    accounts.UserRepository
	identity accounts.IdentityResolver
	audit    audit.Recorder
}

// NewMailService creates a new mail service. The user repository is used
// to resolve recipient identifiers to ids on send.
func NewMailService(repo MessageRepository, users accounts.UserRepository, identity accounts.IdentityResolver, recorder audit.Recorder) MailService {
	return &mailService{
		repo:     repo,
		users:    users,
		identity: identity,
		audit:    recorder,
	}
}

// Send stores a new message from the caller to the named recipient. An
// unknown recipient is a client error, not an internal one.
func (s *mailService) Send(ctx context.Context, req SendRequest) (*Message, error) {
	actor, sess, err := s.identity.RequireActor(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	recipient, err := s.users.FindByIdentifier(ctx, req.Recipient)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == 404 {
			return nil, apperror.NewBadRequest(fmt.Sprintf("recipient %s not found", req.Recipient))
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding recipient: %w", err))
	}

	subject := sanitize.Title(req.Subject)
	body := sanitize.Body(req.Body)
	if subject == "" {
		return nil, apperror.NewValidation("subject is required")
	}
	if body == "" {
		return nil, apperror.NewValidation("body is required")
	}

	msg := &Message{
		ID:          uuid.NewString(),
		SenderID:    actor.UserID,
		RecipientID: recipient.ID,
		Subject:     subject,
		Body:        body,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("storing message: %w", err))
	}

	s.audit.Record(ctx, audit.Entry{
		UserID:    actor.UserID,
		SessionID: sess.ID,
		Action:    audit.ActionMailSent,
		Detail:    fmt.Sprintf("sent a direct message to %s", recipient.ID),
	})

	slog.Info("direct message sent",
		slog.String("sender_id", actor.UserID),
		slog.String("recipient_id", recipient.ID),
		slog.String("message_id", msg.ID),
	)

	return msg, nil
}

// Inbox returns a page of the caller's received messages, with the
// sender resolved to a display identifier.
func (s *mailService) Inbox(ctx context.Context, req InboxRequest) ([]MessageSummary, error) {
	actor, _, err := s.identity.RequireActor(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	offset, limit := clampPage(req.Offset, req.Limit)

	messages, err := s.repo.Inbox(ctx, actor.UserID, offset, limit, req.FilterUnread, req.FilterFlag)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing inbox: %w", err))
	}

	return s.summarize(ctx, messages, func(m Message) string { return m.SenderID })
}

// Outbox returns a page of the caller's sent messages, with the
// recipient resolved to a display identifier.
func (s *mailService) Outbox(ctx context.Context, req OutboxRequest) ([]MessageSummary, error) {
	actor, _, err := s.identity.RequireActor(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	offset, limit := clampPage(req.Offset, req.Limit)

	messages, err := s.repo.Outbox(ctx, actor.UserID, offset, limit)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing outbox: %w", err))
	}

	return s.summarize(ctx, messages, func(m Message) string { return m.RecipientID })
}

// Message returns one full message. Only the sender and the recipient
// may read it; everyone else gets the same error as for a missing
// message, so ids cannot be probed.
func (s *mailService) Message(ctx context.Context, req MessageRequest) (*MessageView, error) {
	if !isUUID(req.MessageID) {
		return nil, apperror.NewBadRequest("invalid message id")
	}

	actor, _, err := s.identity.RequireActor(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	msg, err := s.repo.Find(ctx, req.MessageID)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == 404 {
			return nil, apperror.NewForbidden("you are not allowed to access this message")
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding message: %w", err))
	}
	if msg.SenderID != actor.UserID && msg.RecipientID != actor.UserID {
		return nil, apperror.NewForbidden("you are not allowed to access this message")
	}

	sender, err := s.identity.Identifier(ctx, msg.SenderID)
	if err != nil {
		return nil, err
	}
	recipient, err := s.identity.Identifier(ctx, msg.RecipientID)
	if err != nil {
		return nil, err
	}

	return &MessageView{
		Sender:    sender,
		Recipient: recipient,
		Subject:   msg.Subject,
		Body:      msg.Body,
		Timestamp: msg.CreatedAt,
		Read:      msg.Read,
		Flagged:   msg.Flagged,
	}, nil
}

// Mark sets the read and flagged marks on a message. Only the sender may
// mark, matching the historical client protocol. The same opaque error
// covers missing messages and foreign ones.
func (s *mailService) Mark(ctx context.Context, req MarkRequest) error {
	if !isUUID(req.MessageID) {
		return apperror.NewBadRequest("invalid message id")
	}

	actor, _, err := s.identity.RequireActor(ctx, req.SessionID)
	if err != nil {
		return err
	}

	msg, err := s.repo.Find(ctx, req.MessageID)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == 404 {
			return apperror.NewForbidden("you are not allowed to access this message")
		}
		return apperror.NewInternal(fmt.Errorf("finding message: %w", err))
	}
	if msg.SenderID != actor.UserID {
		return apperror.NewForbidden("you are not allowed to access this message")
	}

	if err := s.repo.Mark(ctx, msg.ID, req.Read, req.Flagged); err != nil {
		return apperror.NewInternal(fmt.Errorf("marking message: %w", err))
	}
	return nil
}

// summarize maps messages to listing rows, resolving the counterparty
// chosen by other for each row.
func (s *mailService) summarize(ctx context.Context, messages []Message, other func(Message) string) ([]MessageSummary, error) {
	summaries := make([]MessageSummary, 0, len(messages))
	for _, m := range messages {
		name, err := s.identity.Identifier(ctx, other(m))
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, MessageSummary{
			ID:        m.ID,
			Other:     name,
			Subject:   m.Subject,
			Timestamp: m.CreatedAt,
			Unread:    !m.Read,
			Flagged:   m.Flagged,
		})
	}
	return summaries, nil
}

func clampPage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return offset, limit
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
