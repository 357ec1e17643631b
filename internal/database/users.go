package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"lite-drive/internal/models"
)

const userColumns = `
	id, email, display_name, avatar_url, storage_used_mb, storage_limit_mb,
	is_admin, is_active, last_login_at, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.AvatarURL,
		&user.StorageUsedMB,
		&user.StorageLimitMB,
		&user.IsAdmin,
		&user.IsActive,
		&user.LastLoginAt,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

type UpsertUserParams struct {
	Email          string
	DisplayName    string
	AvatarURL      *string
	StorageLimitMB float64
	IsAdmin        bool
}

// UpsertUser creates the account on first login. On later logins only the
// profile fields are refreshed; the limit and flags set by an admin stay.
func (q *Queries) UpsertUser(ctx context.Context, arg UpsertUserParams) (*models.User, error) {
	query := `
		INSERT INTO users (email, display_name, avatar_url, storage_limit_mb, is_admin)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE
		SET display_name = EXCLUDED.display_name,
			avatar_url = EXCLUDED.avatar_url,
			is_admin = users.is_admin OR EXCLUDED.is_admin
		RETURNING` + userColumns

	return scanUser(q.db.QueryRow(ctx, query,
		arg.Email,
		arg.DisplayName,
		arg.AvatarURL,
		arg.StorageLimitMB,
		arg.IsAdmin,
	))
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(q.db.QueryRow(ctx, query, id))
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(q.db.QueryRow(ctx, query, email))
}

func (q *Queries) ListUsers(ctx context.Context, limit int, offset int) ([]models.User, error) {
	query := `SELECT` + userColumns + ` FROM users ORDER BY id LIMIT $1 OFFSET $2`
	rows, err := q.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if users == nil {
		return []models.User{}, nil
	}

	return users, nil
}

// UpdateUserParams lists the only fields an administrator may change. Nil
// fields are left untouched.
type UpdateUserParams struct {
	DisplayName    *string
	StorageLimitMB *float64
	IsAdmin        *bool
	IsActive       *bool
}

func (q *Queries) UpdateUser(ctx context.Context, id int64, arg UpdateUserParams) (*models.User, error) {
	query := `
		UPDATE users
		SET display_name = COALESCE($2::varchar, display_name),
			storage_limit_mb = COALESCE($3::double precision, storage_limit_mb),
			is_admin = COALESCE($4::boolean, is_admin),
			is_active = COALESCE($5::boolean, is_active)
		WHERE id = $1
		RETURNING` + userColumns

	return scanUser(q.db.QueryRow(ctx, query,
		id,
		arg.DisplayName,
		arg.StorageLimitMB,
		arg.IsAdmin,
		arg.IsActive,
	))
}

func (q *Queries) DeleteUser(ctx context.Context, id int64) (bool, error) {
	res, err := q.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (q *Queries) SetAdmin(ctx context.Context, email string, isAdmin bool) (bool, error) {
	res, err := q.db.Exec(ctx, `UPDATE users SET is_admin = $1 WHERE email = $2`, isAdmin, email)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (q *Queries) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := q.db.Exec(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, at, id)
	return err
}

// ReserveStorage adds sizeMB to the user's usage only if the result stays
// within the limit. The check and the increment are one statement.
func (q *Queries) ReserveStorage(ctx context.Context, userID int64, sizeMB float64) (bool, error) {
	query := `
		UPDATE users
		SET storage_used_mb = storage_used_mb + $1
		WHERE id = $2 AND storage_used_mb + $1 <= storage_limit_mb
	`
	res, err := q.db.Exec(ctx, query, sizeMB, userID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (q *Queries) AdjustStorageUsed(ctx context.Context, userID int64, deltaMB float64) error {
	query := `
		UPDATE users
		SET storage_used_mb = GREATEST(storage_used_mb + $1, 0)
		WHERE id = $2
	`
	_, err := q.db.Exec(ctx, query, deltaMB, userID)
	return err
}

// ReconcileStorageUsed realigns every user's usage counter with the sum of
// the sizes of the files they own and returns how many rows changed.
func (q *Queries) ReconcileStorageUsed(ctx context.Context) (int64, error) {
	query := `
		WITH totals AS (
			SELECT u.id, COALESCE(SUM(f.size_mb), 0) AS total
			FROM users u
			LEFT JOIN files f ON f.owner_id = u.id
			GROUP BY u.id
		)
		UPDATE users
		SET storage_used_mb = totals.total
		FROM totals
		WHERE users.id = totals.id AND users.storage_used_mb <> totals.total
	`
	res, err := q.db.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}
