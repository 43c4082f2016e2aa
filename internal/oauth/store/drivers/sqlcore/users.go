package sqlcore

import (
	"context"
	"database/sql"
	"time"

	"github.com/saltoplay/platform/internal/oauth/domain"
)

type usersRepo struct {
	q *queries
}

const userColumns = `id, username, display_name, email, avatar_url, totp_secret, created_at, updated_at`

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u                domain.User
		totp             sql.NullString
		created, updated int64
	)
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Email, &u.AvatarURL, &totp, &created, &updated)
	if err != nil {
		return domain.User{}, err
	}
	u.TOTPSecret = fromNullString(totp)
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	u, err := scanUser(r.q.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	u, err := scanUser(r.q.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.q.exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.DisplayName, u.Email, u.AvatarURL, toNullString(u.TOTPSecret),
		toMillis(u.CreatedAt), toMillis(u.UpdatedAt),
	)
	return err
}

func (r *usersRepo) UpdateUserProfile(ctx context.Context, u domain.User) error {
	return r.q.execOne(ctx,
		`UPDATE users SET display_name = ?, email = ?, avatar_url = ?, updated_at = ? WHERE id = ?`,
		u.DisplayName, u.Email, u.AvatarURL, toMillis(u.UpdatedAt), u.ID,
	)
}

func (r *usersRepo) UpdateUserTOTPSecret(ctx context.Context, id string, secret *string, now time.Time) error {
	return r.q.execOne(ctx,
		`UPDATE users SET totp_secret = ?, updated_at = ? WHERE id = ?`,
		toNullString(secret), toMillis(now), id,
	)
}
