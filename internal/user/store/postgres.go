package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"clavis/internal/user"
	id "clavis/pkg/domain"
	"clavis/pkg/platform/sentinel"
)

// Schema is the users table DDL, applied by deploy tooling and integration tests.
//
//go:embed schema.sql
var Schema string

const uniqueViolation = pq.ErrorCode("23505")

// PostgresStore persists user records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, name, email, password_hash, token_version, last_login, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, u *user.User) error {
	now := time.Now().UTC()
	u.ID = id.NewUserID()
	u.CreatedAt = now
	u.UpdatedAt = now

	query := `
		INSERT INTO users (id, name, email, password_hash, token_version, last_login, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		u.ID.String(),
		u.Name,
		u.Email,
		u.PasswordHash,
		u.TokenVersion,
		u.LastLogin,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.db.QueryRowContext(ctx, query, userID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find user by id: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	u, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find user by email: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) Update(ctx context.Context, u *user.User) error {
	u.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE users
		SET name = $2, email = $3, password_hash = $4, token_version = $5, last_login = $6, updated_at = $7
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		u.ID.String(),
		u.Name,
		u.Email,
		u.PasswordHash,
		u.TokenVersion,
		u.LastLogin,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update user: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("update user: %w", err)
	}
	return requireRow(res, "update user")
}

func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID.String())
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireRow(res, "delete user")
}

func (s *PostgresStore) SetLastLogin(ctx context.Context, userID id.UserID, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login = $2, updated_at = $2 WHERE id = $1`,
		userID.String(), at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("set last login: %w", err)
	}
	return requireRow(res, "set last login")
}

func (s *PostgresStore) BumpTokenVersion(ctx context.Context, userID id.UserID) (int64, error) {
	var version int64
	err := s.db.QueryRowContext(ctx,
		`UPDATE users SET token_version = token_version + 1, updated_at = now() WHERE id = $1 RETURNING token_version`,
		userID.String(),
	).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("bump token version: %w", sentinel.ErrNotFound)
		}
		return 0, fmt.Errorf("bump token version: %w", err)
	}
	return version, nil
}

func scanUser(row *sql.Row) (*user.User, error) {
	var (
		u         user.User
		rawID     string
		lastLogin sql.NullTime
	)
	err := row.Scan(&rawID, &u.Name, &u.Email, &u.PasswordHash, &u.TokenVersion, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	parsed, err := id.ParseUserID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored user id %q is invalid: %w", rawID, err)
	}
	u.ID = parsed
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

func requireRow(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, sentinel.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	// Fallback for drivers that don't expose pq.Error (e.g. wrapped errors).
	return strings.Contains(err.Error(), "duplicate key value")
}
