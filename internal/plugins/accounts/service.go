package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/asimpleforum/server/internal/apperror"
	"github.com/asimpleforum/server/internal/authz"
	"github.com/asimpleforum/server/internal/plugins/audit"
	"github.com/asimpleforum/server/internal/session"
)

// deletedUserName is shown in place of identifiers for users that no
// longer exist.
const deletedUserName = "[deleted]"

// IdentityResolver is the narrow contract other plugins use to turn a
// session token into an authorization actor. Tokens always go through the
// session registry first; authorization is never evaluated before
// resolution.
type IdentityResolver interface {
	// RequireActor resolves a token to an actor, failing with an
	// unauthorized error when the token is empty, unknown, or expired.
	// The three cases produce the same error. Used by mail and admin,
	// which never serve anonymous callers.
	RequireActor(ctx context.Context, token string) (*authz.Actor, session.Session, error)

	// OptionalActor resolves a token to an actor, treating an empty,
	// unknown, or expired token as an anonymous caller (nil actor, nil
	// error). Used by forum reads, which serve public forums anonymously.
	OptionalActor(ctx context.Context, token string) (*authz.Actor, error)

	// Identifier returns the display identifier for a user id, serving
	// deleted users as a placeholder rather than an error.
	Identifier(ctx context.Context, userID string) (string, error)
}

// AccountService defines the business logic contract for accounts.
// Handlers call these methods -- they never touch the repository or the
// session registry directly.
type AccountService interface {
	IdentityResolver

	Register(ctx context.Context, input RegisterInput) (session.Session, *User, error)
	Login(ctx context.Context, identifier, password string) (session.Session, *User, error)
	Logout(ctx context.Context, sessionID string) error
	CurrentUser(ctx context.Context, token string) (*User, error)
}

// accountService implements AccountService.
type accountService struct {
	repo     UserRepository
	registry *session.Registry
	cache    *IdentifierCache
	audit    audit.Recorder
}

// NewAccountService creates a new account service with the given
// dependencies. The registry is the process-wide session registry created
// in main; cache may be nil in tests.
func NewAccountService(repo UserRepository, registry *session.Registry, cache *IdentifierCache, recorder audit.Recorder) AccountService {
	return &accountService{
		repo:     repo,
		registry: registry,
		cache:    cache,
		audit:    recorder,
	}
}

// Register creates a new user account and logs it straight in. It checks
// username/email uniqueness, hashes the password, persists the user, and
// creates a session in the registry.
func (s *accountService) Register(ctx context.Context, input RegisterInput) (session.Session, *User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if err := validateRegistration(username, email, input.Password); err != nil {
		return session.Session{}, nil, err
	}

	// Check uniqueness before doing expensive hashing.
	exists, err := s.repo.IdentifierExists(ctx, username, email)
	if err != nil {
		return session.Session{}, nil, apperror.NewInternal(fmt.Errorf("checking identifier: %w", err))
	}
	if exists {
		return session.Session{}, nil, apperror.NewConflict("username or email already in use")
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return session.Session{}, nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	user := &User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Tier:         authz.RegisteredUser,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return session.Session{}, nil, apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}

	sess, err := s.registry.Create(user.ID)
	if err != nil {
		// The account exists; only the session failed. The caller can
		// log in normally.
		return session.Session{}, nil, apperror.NewConflict("account registered but session creation collided; please log in")
	}

	s.audit.Record(ctx, audit.Entry{
		UserID:    user.ID,
		SessionID: sess.ID,
		Action:    audit.ActionRegister,
		Detail:    fmt.Sprintf("account %s registered", username),
	})

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", username),
	)

	return sess, user, nil
}

// Login authenticates a user by username or email. On success it creates a
// new session in the registry and returns its snapshot. Stored legacy
// digests are upgraded to argon2id on the way through.
func (s *accountService) Login(ctx context.Context, identifier, password string) (session.Session, *User, error) {
	user, err := s.repo.FindByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		// Don't reveal whether the identifier exists.
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == 404 {
			return session.Session{}, nil, apperror.NewUnauthorized("invalid username or password")
		}
		return session.Session{}, nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if !verifyPassword(password, user.PasswordHash) {
		return session.Session{}, nil, apperror.NewUnauthorized("invalid username or password")
	}

	// Upgrade rows imported with the previous system's unsalted digest.
	if isLegacyHash(user.PasswordHash) {
		if newHash, hashErr := hashPassword(password); hashErr == nil {
			if err := s.repo.UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
				slog.Warn("failed to upgrade legacy password hash",
					slog.String("user_id", user.ID),
					slog.Any("error", err),
				)
			} else {
				user.PasswordHash = newHash
			}
		}
	}

	sess, err := s.registry.Create(user.ID)
	if errors.Is(err, session.ErrCollision) {
		return session.Session{}, nil, apperror.NewConflict("failed to create session: id collision")
	}
	if err != nil {
		return session.Session{}, nil, apperror.NewInternal(fmt.Errorf("creating session: %w", err))
	}

	// Last-login update is non-critical.
	if err := s.repo.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("failed to update last login",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	s.audit.Record(ctx, audit.Entry{
		UserID:    user.ID,
		SessionID: sess.ID,
		Action:    audit.ActionLogin,
		Detail:    fmt.Sprintf("user %s logged in", user.Username),
	})

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return sess, user, nil
}

// Logout removes a session from the registry. The session must still
// resolve -- logging out an unknown or expired session reports
// unauthorized, matching every other use of a dead token.
func (s *accountService) Logout(ctx context.Context, sessionID string) error {
	sess, err := s.registry.Resolve(sessionID)
	if err != nil {
		return apperror.NewUnauthorized("invalid session id or session timed out")
	}

	// A concurrent logout may have removed it between resolve and remove;
	// the session is gone either way.
	s.registry.Remove(sessionID)

	s.audit.Record(ctx, audit.Entry{
		UserID:    sess.UserID,
		SessionID: sess.ID,
		Action:    audit.ActionLogout,
	})

	return nil
}

// CurrentUser resolves a token and loads the full user record behind it.
func (s *accountService) CurrentUser(ctx context.Context, token string) (*User, error) {
	sess, err := s.registry.Resolve(token)
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid session id or session timed out")
	}
	user, err := s.repo.FindByID(ctx, sess.UserID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("loading user %s: %w", sess.UserID, err))
	}
	return user, nil
}

// RequireActor implements IdentityResolver.
func (s *accountService) RequireActor(ctx context.Context, token string) (*authz.Actor, session.Session, error) {
	if token == "" {
		return nil, session.Session{}, apperror.NewUnauthorized("invalid session id or session timed out")
	}

	sess, err := s.registry.Resolve(token)
	if err != nil {
		return nil, session.Session{}, apperror.NewUnauthorized("invalid session id or session timed out")
	}

	user, err := s.repo.FindByID(ctx, sess.UserID)
	if err != nil {
		// The session outlived its user record.
		return nil, session.Session{}, apperror.NewUnauthorized("invalid session id or session timed out")
	}

	return user.Actor(), sess, nil
}

// OptionalActor implements IdentityResolver. Dead tokens come back as an
// anonymous caller, not an error, so public resources stay readable.
func (s *accountService) OptionalActor(ctx context.Context, token string) (*authz.Actor, error) {
	if token == "" {
		return nil, nil
	}

	sess, err := s.registry.Resolve(token)
	if err != nil {
		return nil, nil
	}

	user, err := s.repo.FindByID(ctx, sess.UserID)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == 404 {
			return nil, nil
		}
		return nil, apperror.NewInternal(fmt.Errorf("loading user %s: %w", sess.UserID, err))
	}

	return user.Actor(), nil
}

// Identifier implements IdentityResolver with a Redis read-through cache.
func (s *accountService) Identifier(ctx context.Context, userID string) (string, error) {
	if s.cache != nil {
		if name, ok := s.cache.Get(ctx, userID); ok {
			return name, nil
		}
	}

	name, err := s.repo.Username(ctx, userID)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == 404 {
			return deletedUserName, nil
		}
		return "", apperror.NewInternal(fmt.Errorf("resolving identifier %s: %w", userID, err))
	}

	if s.cache != nil {
		s.cache.Set(ctx, userID, name)
	}

	return name, nil
}

// validateRegistration applies the basic field rules before any storage
// work happens.
func validateRegistration(username, email, password string) error {
	if username == "" {
		return apperror.NewValidation("username is required")
	}
	if len(username) > 100 {
		return apperror.NewValidation("username must be at most 100 characters")
	}
	if email == "" || !strings.Contains(email, "@") {
		return apperror.NewValidation("a valid email address is required")
	}
	if len(password) < 8 {
		return apperror.NewValidation("password must be at least 8 characters")
	}
	if len(password) > 128 {
		return apperror.NewValidation("password must be at most 128 characters")
	}
	return nil
}
