package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/asimpleforum/server/internal/apperror"
	"github.com/asimpleforum/server/internal/authz"
)

// UserRepository defines the data access contract for user operations.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	// FindByIdentifier looks a user up by username first, then by email,
	// matching the login form's single identifier field.
	FindByIdentifier(ctx context.Context, identifier string) (*User, error)
	IdentifierExists(ctx context.Context, username, email string) (bool, error)
	UpdateLastLogin(ctx context.Context, id string) error
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	Username(ctx context.Context, id string) (string, error)

	// Admin operations.
	ListUsers(ctx context.Context, offset, limit int) ([]User, int, error)
	UpdateTier(ctx context.Context, id string, tier authz.Tier) error
	CountByTier(ctx context.Context, tier authz.Tier) (int, error)
}

// userRepository implements UserRepository with hand-written MariaDB queries.
type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository backed by the given DB pool.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

// userColumns is the column list shared by the single-row queries.
const userColumns = `id, username, email, password_hash, tier, email_confirmed, last_login_at, created_at`

// scanUser scans one user row, converting the stored tier name.
func scanUser(row *sql.Row) (*User, error) {
	user := &User{}
	var tierName string
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&tierName,
		&user.EmailConfirmed,
		&user.LastLoginAt,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	tier, err := authz.ParseTier(tierName)
	if err != nil {
		return nil, fmt.Errorf("scanning user %s: %w", user.ID, err)
	}
	user.Tier = tier
	return user, nil
}

// Create inserts a new user row.
func (r *userRepository) Create(ctx context.Context, user *User) error {
	query := `INSERT INTO users (id, username, email, password_hash, tier, email_confirmed, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Tier.String(),
		user.EmailConfirmed,
		user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

// FindByID retrieves a user by their UUID.
// Returns apperror.NotFound if no user exists with this id.
func (r *userRepository) FindByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by id: %w", err)
	}

	return user, nil
}

// FindByIdentifier retrieves a user by username, falling back to email.
// Returns apperror.NotFound if neither matches.
func (r *userRepository) FindByIdentifier(ctx context.Context, identifier string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, identifier))
	if errors.Is(err, sql.ErrNoRows) {
		query = `SELECT ` + userColumns + ` FROM users WHERE email = ?`
		user, err = scanUser(r.db.QueryRowContext(ctx, query, identifier))
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by identifier: %w", err)
	}

	return user, nil
}

// IdentifierExists returns true if the given username or email is already
// in use. Used during registration before hashing the password.
func (r *userRepository) IdentifierExists(ctx context.Context, username, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = ? OR email = ?)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, username, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking identifier existence: %w", err)
	}

	return exists, nil
}

// UpdateLastLogin sets the last_login_at timestamp to now for the given user.
func (r *userRepository) UpdateLastLogin(ctx context.Context, id string) error {
	query := `UPDATE users SET last_login_at = NOW() WHERE id = ?`

	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}

	return nil
}

// UpdatePasswordHash replaces a user's stored password hash. Used to
// upgrade legacy digests after a successful login.
func (r *userRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE users SET password_hash = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("updating password hash: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("user not found")
	}

	return nil
}

// Username returns the display identifier for a user id.
// Returns apperror.NotFound for unknown ids.
func (r *userRepository) Username(ctx context.Context, id string) (string, error) {
	query := `SELECT username FROM users WHERE id = ?`

	var username string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&username)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperror.NewNotFound("user not found")
	}
	if err != nil {
		return "", fmt.Errorf("querying username: %w", err)
	}

	return username, nil
}

// --- Admin operations ---

// ListUsers returns a paginated list of users ordered by creation date,
// plus the total count for pagination. Password hashes are deliberately
// excluded from the query.
func (r *userRepository) ListUsers(ctx context.Context, offset, limit int) ([]User, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting users: %w", err)
	}

	query := `SELECT id, username, email, tier, email_confirmed, last_login_at, created_at
	          FROM users ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		var tierName string
		if err := rows.Scan(
			&u.ID, &u.Username, &u.Email, &tierName,
			&u.EmailConfirmed, &u.LastLoginAt, &u.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning user row: %w", err)
		}
		tier, err := authz.ParseTier(tierName)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning user %s: %w", u.ID, err)
		}
		u.Tier = tier
		users = append(users, u)
	}

	return users, total, rows.Err()
}

// UpdateTier sets a user's permission tier.
func (r *userRepository) UpdateTier(ctx context.Context, id string, tier authz.Tier) error {
	query := `UPDATE users SET tier = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, tier.String(), id)
	if err != nil {
		return fmt.Errorf("updating tier: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("user not found")
	}

	return nil
}

// CountByTier returns the number of users at exactly the given tier.
// Used to prevent demoting the last superuser.
func (r *userRepository) CountByTier(ctx context.Context, tier authz.Tier) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE tier = ?`, tier.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting users by tier: %w", err)
	}
	return count, nil
}
