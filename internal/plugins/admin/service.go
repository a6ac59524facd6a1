// Package admin exposes administrative queries over users and the audit
// log, gated by the permission tier ladder. Listing requires at least
// Administrator; changing tiers requires SuperUser.
package admin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/asimpleforum/server/internal/apperror"
	"github.com/asimpleforum/server/internal/authz"
	"github.com/asimpleforum/server/internal/plugins/accounts"
	"github.com/asimpleforum/server/internal/plugins/audit"
	"github.com/asimpleforum/server/internal/session"
)

// Users per page in the admin listing.
const usersPerPage = 50

// UserRow is the admin view of a user record. It includes fields hidden
// from the public profile, such as the email address and tier.
type UserRow struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Tier           string `json:"tier"`
	EmailConfirmed bool   `json:"emailConfirmed"`
}

// AdminService defines the administrative operations. Every method takes
// the caller's session token and authorizes it before touching data.
type AdminService interface {
	ListUsers(ctx context.Context, token string, page int) ([]UserRow, int, error)
	ChangeTier(ctx context.Context, token, userID, tierName string) error
	AuditFeed(ctx context.Context, token string, page int) ([]audit.Entry, int, error)
}

// adminService implements AdminService.
type adminService struct {
	users    accounts.UserRepository
	identity accounts.IdentityResolver
	audit    audit.AuditService
}

// NewAdminService creates a new admin service with the given dependencies.
func NewAdminService(users accounts.UserRepository, identity accounts.IdentityResolver, auditSvc audit.AuditService) AdminService {
	return &adminService{
		users:    users,
		identity: identity,
		audit:    auditSvc,
	}
}

// ListUsers returns a page of user records for administrators.
func (s *adminService) ListUsers(ctx context.Context, token string, page int) ([]UserRow, int, error) {
	if _, _, err := s.requireTier(ctx, token, authz.Administrator); err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	offset := (page - 1) * usersPerPage

	users, total, err := s.users.ListUsers(ctx, offset, usersPerPage)
	if err != nil {
		return nil, 0, apperror.NewInternal(fmt.Errorf("listing users: %w", err))
	}

	rows := make([]UserRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, UserRow{
			ID:             u.ID,
			Username:       u.Username,
			Email:          u.Email,
			Tier:           u.TierName(),
			EmailConfirmed: u.EmailConfirmed,
		})
	}

	return rows, total, nil
}

// ChangeTier moves a user to a new permission tier. Only SuperUsers may
// change tiers, and the last SuperUser can never be demoted, so the
// ladder always has someone at the top.
func (s *adminService) ChangeTier(ctx context.Context, token, userID, tierName string) error {
	actor, sess, err := s.requireTier(ctx, token, authz.SuperUser)
	if err != nil {
		return err
	}

	tier, err := authz.ParseTier(tierName)
	if err != nil {
		return apperror.NewBadRequest(fmt.Sprintf("unknown tier %q", tierName))
	}

	target, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if target.Tier == tier {
		return nil
	}

	if target.Tier == authz.SuperUser {
		count, err := s.users.CountByTier(ctx, authz.SuperUser)
		if err != nil {
			return apperror.NewInternal(fmt.Errorf("counting superusers: %w", err))
		}
		if count <= 1 {
			return apperror.NewConflict("cannot demote the last superuser")
		}
	}

	if err := s.users.UpdateTier(ctx, target.ID, tier); err != nil {
		return apperror.NewInternal(fmt.Errorf("updating tier: %w", err))
	}

	s.audit.Record(ctx, audit.Entry{
		UserID:    actor.UserID,
		SessionID: sess.ID,
		Action:    audit.ActionTierChanged,
		Detail:    fmt.Sprintf("user %s moved from %s to %s", target.ID, target.Tier, tier),
	})

	slog.Info("user tier changed",
		slog.String("actor_id", actor.UserID),
		slog.String("user_id", target.ID),
		slog.String("tier", tier.String()),
	)

	return nil
}

// AuditFeed returns a page of the audit log for administrators.
func (s *adminService) AuditFeed(ctx context.Context, token string, page int) ([]audit.Entry, int, error) {
	if _, _, err := s.requireTier(ctx, token, authz.Administrator); err != nil {
		return nil, 0, err
	}
	return s.audit.Feed(ctx, page)
}

// requireTier resolves the token and checks the caller's tier. The token
// is resolved first; a dead token is unauthorized, an insufficient tier
// is forbidden. Those are different failures and map to different codes.
func (s *adminService) requireTier(ctx context.Context, token string, required authz.Tier) (*authz.Actor, session.Session, error) {
	actor, sess, err := s.identity.RequireActor(ctx, token)
	if err != nil {
		return nil, session.Session{}, err
	}
	if !authz.HasTier(actor, required) {
		return nil, session.Session{}, apperror.NewForbidden("insufficient permission tier")
	}
	return actor, sess, nil
}
