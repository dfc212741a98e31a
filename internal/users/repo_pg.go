package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dochub-backend/internal/shared/storage/db"
)

const userColumns = `id, username, email, password_hash, is_active, is_superuser, created_at, updated_at`

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, user User) (User, error) {
	const query = `
INSERT INTO users (id, username, email, password_hash, is_active, is_superuser, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now(), now())
RETURNING ` + userColumns
	created, err := scanUser(r.DB.QueryRowContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.IsActive,
		user.IsSuperuser,
	))
	if err != nil {
		return User{}, mapWriteError(err)
	}
	return created, nil
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	return r.getBy(ctx, "id", userID)
}

func (r *PGRepo) GetByUsername(ctx context.Context, username string) (User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *PGRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *PGRepo) Update(ctx context.Context, user User) (User, error) {
	const query = `
UPDATE users
SET email = $2, password_hash = $3, is_active = $4, is_superuser = $5, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns
	updated, err := scanUser(r.DB.QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.IsActive,
		user.IsSuperuser,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, mapWriteError(err)
	}
	return updated, nil
}

// Delete removes the user row; owned documents go with it via ON DELETE CASCADE.
func (r *PGRepo) Delete(ctx context.Context, userID string) error {
	return DeleteTx(ctx, r.DB, userID)
}

// DeleteTx deletes a user through q, which may be a transaction.
func DeleteTx(ctx context.Context, q db.DBTX, userID string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// getBy looks a user up by one of the unique columns. column is never user input.
func (r *PGRepo) getBy(ctx context.Context, column, value string) (User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s = $1 LIMIT 1`, userColumns, column)
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

func scanUser(row *sql.Row) (User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.IsActive,
		&user.IsSuperuser,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func mapWriteError(err error) error {
	if constraint, ok := db.UniqueViolation(err); ok {
		switch constraint {
		case "users_username_key":
			return ErrUsernameTaken
		case "users_email_key":
			return ErrEmailTaken
		}
	}
	return err
}
