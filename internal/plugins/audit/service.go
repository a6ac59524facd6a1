package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/asimpleforum/server/internal/apperror"
)

// perPage is the number of audit entries per feed page.
const perPage = 50

// Recorder is the narrow write-side interface other plugins depend on.
// Record is fire-and-forget: failures are logged, never returned, so audit
// problems cannot fail a login or a mail send.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// AuditService handles business logic for the audit log.
type AuditService interface {
	Recorder

	// Feed returns a paginated audit feed, newest first. Pages are
	// 1-indexed. Returns entries, total count, and any error.
	Feed(ctx context.Context, page int) ([]Entry, int, error)
}

// auditService implements AuditService.
type auditService struct {
	repo AuditRepository
}

// NewAuditService creates a new audit service with the given repository.
func NewAuditService(repo AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// Record persists an audit entry. Entries missing an actor or action are
// dropped with a warning rather than stored half-formed.
func (s *auditService) Record(ctx context.Context, entry Entry) {
	if entry.UserID == "" || entry.Action == "" {
		slog.Warn("dropping malformed audit entry",
			slog.String("action", entry.Action),
		)
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if err := s.repo.Insert(ctx, &entry); err != nil {
		slog.Error("failed to write audit entry",
			slog.String("action", entry.Action),
			slog.String("user_id", entry.UserID),
			slog.Any("error", err),
		)
	}
}

// Feed returns the paginated audit feed. Invalid page numbers are clamped
// to 1.
func (s *auditService) Feed(ctx context.Context, page int) ([]Entry, int, error) {
	if page < 1 {
		page = 1
	}

	offset := (page - 1) * perPage
	entries, total, err := s.repo.List(ctx, offset, perPage)
	if err != nil {
		return nil, 0, apperror.NewInternal(fmt.Errorf("listing audit feed: %w", err))
	}

	return entries, total, nil
}
