package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/asimpleforum/server/internal/apperror"
	"github.com/asimpleforum/server/internal/authz"
	"github.com/asimpleforum/server/internal/plugins/accounts"
	"github.com/asimpleforum/server/internal/plugins/audit"
	"github.com/asimpleforum/server/internal/session"
)

// --- Mock User Repository ---

// mockUserRepo implements accounts.UserRepository for testing.
type mockUserRepo struct {
	findByIDFn    func(ctx context.Context, id string) (*accounts.User, error)
	listUsersFn   func(ctx context.Context, offset, limit int) ([]accounts.User, int, error)
	updateTierFn  func(ctx context.Context, id string, tier authz.Tier) error
	countByTierFn func(ctx context.Context, tier authz.Tier) (int, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *accounts.User) error { return nil }

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*accounts.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) FindByIdentifier(ctx context.Context, identifier string) (*accounts.User, error) {
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) IdentifierExists(ctx context.Context, username, email string) (bool, error) {
	return false, nil
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string) error { return nil }

func (m *mockUserRepo) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	return nil
}

func (m *mockUserRepo) Username(ctx context.Context, id string) (string, error) {
	return "", apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) ListUsers(ctx context.Context, offset, limit int) ([]accounts.User, int, error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(ctx, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockUserRepo) UpdateTier(ctx context.Context, id string, tier authz.Tier) error {
	if m.updateTierFn != nil {
		return m.updateTierFn(ctx, id, tier)
	}
	return nil
}

func (m *mockUserRepo) CountByTier(ctx context.Context, tier authz.Tier) (int, error) {
	if m.countByTierFn != nil {
		return m.countByTierFn(ctx, tier)
	}
	return 0, nil
}

// --- Mock Identity Resolver ---

type mockIdentity struct {
	actors map[string]*authz.Actor
}

func (m *mockIdentity) RequireActor(ctx context.Context, token string) (*authz.Actor, session.Session, error) {
	if actor, ok := m.actors[token]; ok {
		return actor, session.Session{ID: token, UserID: actor.UserID}, nil
	}
	return nil, session.Session{}, apperror.NewUnauthorized("invalid session id or session timed out")
}

func (m *mockIdentity) OptionalActor(ctx context.Context, token string) (*authz.Actor, error) {
	if actor, ok := m.actors[token]; ok {
		return actor, nil
	}
	return nil, nil
}

func (m *mockIdentity) Identifier(ctx context.Context, userID string) (string, error) {
	return "user-" + userID, nil
}

// --- Mock Audit Service ---

// mockAuditService implements audit.AuditService and captures recorded
// entries.
type mockAuditService struct {
	entries []audit.Entry
	feedFn  func(ctx context.Context, page int) ([]audit.Entry, int, error)
}

func (m *mockAuditService) Record(ctx context.Context, entry audit.Entry) {
	m.entries = append(m.entries, entry)
}

func (m *mockAuditService) Feed(ctx context.Context, page int) ([]audit.Entry, int, error) {
	if m.feedFn != nil {
		return m.feedFn(ctx, page)
	}
	return nil, 0, nil
}

// --- Test Helpers ---

const (
	userToken  = "token-user"
	adminToken = "token-admin"
	superToken = "token-super"

	targetID = "99999999-9999-9999-9999-999999999999"
)

func newTestAdminService(users *mockUserRepo) (*adminService, *mockAuditService) {
	auditSvc := &mockAuditService{}
	identity := &mockIdentity{actors: map[string]*authz.Actor{
		userToken:  {UserID: "user-1", Tier: authz.RegisteredUser},
		adminToken: {UserID: "admin-1", Tier: authz.Administrator},
		superToken: {UserID: "super-1", Tier: authz.SuperUser},
	}}
	return &adminService{
		users:    users,
		identity: identity,
		audit:    auditSvc,
	}, auditSvc
}

func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// --- ListUsers Tests ---

func TestListUsers_TierGate(t *testing.T) {
	users := &mockUserRepo{
		listUsersFn: func(ctx context.Context, offset, limit int) ([]accounts.User, int, error) {
			return []accounts.User{{ID: targetID, Username: "alice", Email: "alice@example.com", Tier: authz.RegisteredUser}}, 1, nil
		},
	}

	tests := []struct {
		name     string
		token    string
		wantCode int
	}{
		{"dead token", "token-dead", 401},
		{"registered user", userToken, 403},
		{"administrator", adminToken, 0},
		{"superuser", superToken, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestAdminService(users)
			rows, total, err := svc.ListUsers(context.Background(), tt.token, 1)
			if tt.wantCode != 0 {
				assertAppError(t, err, tt.wantCode)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if total != 1 || len(rows) != 1 {
				t.Fatalf("expected 1 user, got %d (total %d)", len(rows), total)
			}
			if rows[0].Email != "alice@example.com" {
				t.Errorf("admin listing must include the email, got %q", rows[0].Email)
			}
		})
	}
}

// --- ChangeTier Tests ---

func TestChangeTier_RequiresSuperUser(t *testing.T) {
	svc, _ := newTestAdminService(&mockUserRepo{})

	// An administrator clears the listing gate but not this one.
	err := svc.ChangeTier(context.Background(), adminToken, targetID, "administrator")
	assertAppError(t, err, 403)
}

func TestChangeTier_Success(t *testing.T) {
	var updatedTo authz.Tier
	users := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*accounts.User, error) {
			return &accounts.User{ID: targetID, Username: "alice", Tier: authz.RegisteredUser}, nil
		},
		updateTierFn: func(ctx context.Context, id string, tier authz.Tier) error {
			updatedTo = tier
			return nil
		},
	}

	svc, auditSvc := newTestAdminService(users)
	err := svc.ChangeTier(context.Background(), superToken, targetID, "administrator")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updatedTo != authz.Administrator {
		t.Errorf("tier updated to %v, want Administrator", updatedTo)
	}
	if len(auditSvc.entries) != 1 || auditSvc.entries[0].Action != audit.ActionTierChanged {
		t.Errorf("expected one %s audit entry, got %+v", audit.ActionTierChanged, auditSvc.entries)
	}
}

func TestChangeTier_UnknownTier(t *testing.T) {
	svc, _ := newTestAdminService(&mockUserRepo{})
	err := svc.ChangeTier(context.Background(), superToken, targetID, "wizard")
	assertAppError(t, err, 400)
}

func TestChangeTier_LastSuperUserProtected(t *testing.T) {
	users := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*accounts.User, error) {
			return &accounts.User{ID: targetID, Username: "root", Tier: authz.SuperUser}, nil
		},
		countByTierFn: func(ctx context.Context, tier authz.Tier) (int, error) {
			return 1, nil
		},
	}

	svc, _ := newTestAdminService(users)
	err := svc.ChangeTier(context.Background(), superToken, targetID, "administrator")
	assertAppError(t, err, 409)
}

func TestChangeTier_SecondSuperUserMayBeDemoted(t *testing.T) {
	var updated bool
	users := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*accounts.User, error) {
			return &accounts.User{ID: targetID, Username: "root2", Tier: authz.SuperUser}, nil
		},
		countByTierFn: func(ctx context.Context, tier authz.Tier) (int, error) {
			return 2, nil
		},
		updateTierFn: func(ctx context.Context, id string, tier authz.Tier) error {
			updated = true
			return nil
		},
	}

	svc, _ := newTestAdminService(users)
	if err := svc.ChangeTier(context.Background(), superToken, targetID, "registered"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated {
		t.Error("expected the demotion to be written")
	}
}

func TestChangeTier_NoopWhenUnchanged(t *testing.T) {
	users := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*accounts.User, error) {
			return &accounts.User{ID: targetID, Username: "alice", Tier: authz.Administrator}, nil
		},
		updateTierFn: func(ctx context.Context, id string, tier authz.Tier) error {
			t.Error("no update expected when the tier already matches")
			return nil
		},
	}

	svc, auditSvc := newTestAdminService(users)
	if err := svc.ChangeTier(context.Background(), superToken, targetID, "administrator"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(auditSvc.entries) != 0 {
		t.Error("no audit entry expected for a no-op change")
	}
}

// --- Audit Feed Tests ---

func TestAuditFeed_TierGate(t *testing.T) {
	svc, auditSvc := newTestAdminService(&mockUserRepo{})
	auditSvc.feedFn = func(ctx context.Context, page int) ([]audit.Entry, int, error) {
		return []audit.Entry{{ID: 1, UserID: "user-1", Action: audit.ActionLogin}}, 1, nil
	}

	_, _, err := svc.AuditFeed(context.Background(), userToken, 1)
	assertAppError(t, err, 403)

	entries, total, err := svc.AuditFeed(context.Background(), adminToken, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d (total %d)", len(entries), total)
	}
}
