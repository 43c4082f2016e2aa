package sqlcore

import (
	"context"
	"database/sql"
	"time"

	"github.com/saltoplay/platform/internal/oauth/domain"
)

type refreshTokensRepo struct {
	q *queries
}

const refreshTokenColumns = `id, token_hash, application_id, user_id, scopes, expires_at, revoked_at, created_at`

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.q.exec(ctx,
		`INSERT INTO refresh_tokens (`+refreshTokenColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.TokenHash, t.ClientID, t.UserID, joinScopes(t.Scopes),
		toMillis(t.ExpiresAt), toNullMillis(t.RevokedAt), toMillis(t.CreatedAt),
	)
	return err
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	var (
		t                domain.RefreshToken
		scopes           string
		revoked          sql.NullInt64
		expires, created int64
	)
	err := r.q.queryRow(ctx,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE token_hash = ?`, hash,
	).Scan(&t.ID, &t.TokenHash, &t.ClientID, &t.UserID, &scopes, &expires, &revoked, &created)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}

	t.Scopes = splitScopes(scopes)
	t.ExpiresAt = fromMillis(expires)
	t.RevokedAt = fromNullMillis(revoked)
	t.CreatedAt = fromMillis(created)
	return t, nil
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, id string, now time.Time) error {
	return r.q.execOne(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
		toMillis(now), id,
	)
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	return r.q.execCount(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= ? OR revoked_at IS NOT NULL`, toMillis(now))
}
