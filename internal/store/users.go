package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/fruit-store/internal/database"
	"github.com/safar/fruit-store/internal/models"
)

const userColumns = `id, name, email, password_hash, phone, role, created_at`

func scanUser(row interface{ Scan(...any) error }, user *models.User) error {
	return row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Phone,
		&user.Role,
		&user.CreatedAt,
	)
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	user := &models.User{}

	query := `
		INSERT INTO users (id, name, email, password_hash, phone, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING ` + userColumns

	err := scanUser(s.db.QueryRowContext(ctx, query,
		uuid.NewString(), u.Name, u.Email, u.PasswordHash, u.Phone, u.Role), user)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, database.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, database.ErrUserNotFound
	}

	user := &models.User{}
	err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id), user)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

// GetUserByEmail matches the email exactly; addresses are case-sensitive keys.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email), user)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return user, nil
}
