package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/RichardoC/lovegpt/internal/models"
)

// CreateUser inserts a user with an already hashed password. A duplicate
// email surfaces as models.ErrConflict.
func (d *Database) CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error) {
	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	err := d.WithTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `
			INSERT INTO users (email, password_hash, created_at)
			VALUES ($1, $2, $3)
			RETURNING id`,
			user.Email, user.PasswordHash, user.CreatedAt).Scan(&user.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (d *Database) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(d.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE id = $1`, id))
}

func (d *Database) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(d.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE email = $1`, email))
}

func scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, classify(fmt.Errorf("scan user: %w", err))
	}
	return &user, nil
}
