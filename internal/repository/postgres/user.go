package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/codehouse/bookshop/internal/domain"
	apperrors "github.com/codehouse/bookshop/pkg/errors"
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByEmail retrieves a user with their roles.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT email, name, password_hash, created_at
		FROM users
		WHERE email = $1`

	var u domain.User
	err := r.db.QueryRow(ctx, query, email).Scan(
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user", email)
		}
		return nil, fmt.Errorf("select user: %w", err)
	}

	roleQuery := `
		SELECT role
		FROM user_roles
		WHERE user_email = $1
		ORDER BY role`

	rows, err := r.db.Query(ctx, roleQuery, email)
	if err != nil {
		return nil, fmt.Errorf("select roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		u.Roles = append(u.Roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}

	return &u, nil
}

// Create inserts a user and their roles in one transaction.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO users (email, name, password_hash, created_at)
		VALUES ($1, $2, $3, $4)`

	if _, err := tx.Exec(ctx, query, u.Email, u.Name, u.PasswordHash, u.CreatedAt); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	roleQuery := `
		INSERT INTO user_roles (user_email, role)
		VALUES ($1, $2)`

	for _, role := range u.Roles {
		if _, err := tx.Exec(ctx, roleQuery, u.Email, role); err != nil {
			return fmt.Errorf("insert role %s: %w", role, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}
