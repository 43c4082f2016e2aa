package sqlcore

import (
	"context"
	"database/sql"
	"time"

	"github.com/saltoplay/platform/internal/oauth/domain"
)

type accessTokensRepo struct {
	q *queries
}

const accessTokenColumns = `id, token_hash, application_id, user_id, scopes, refresh_token_id, expires_at, created_at`

func scanAccessToken(row rowScanner) (domain.AccessToken, error) {
	var (
		t                domain.AccessToken
		scopes           string
		refreshID        sql.NullString
		expires, created int64
	)
	err := row.Scan(&t.ID, &t.TokenHash, &t.ClientID, &t.UserID, &scopes, &refreshID, &expires, &created)
	if err != nil {
		return domain.AccessToken{}, err
	}
	t.Scopes = splitScopes(scopes)
	t.RefreshTokenID = refreshID.String
	t.ExpiresAt = fromMillis(expires)
	t.CreatedAt = fromMillis(created)
	return t, nil
}

func (r *accessTokensRepo) CreateAccessToken(ctx context.Context, t domain.AccessToken) error {
	_, err := r.q.exec(ctx,
		`INSERT INTO access_tokens (`+accessTokenColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.TokenHash, t.ClientID, t.UserID, joinScopes(t.Scopes), emptyToNull(t.RefreshTokenID),
		toMillis(t.ExpiresAt), toMillis(t.CreatedAt),
	)
	return err
}

func (r *accessTokensRepo) GetAccessTokenByHash(ctx context.Context, hash string) (domain.AccessToken, error) {
	t, err := scanAccessToken(r.q.queryRow(ctx,
		`SELECT `+accessTokenColumns+` FROM access_tokens WHERE token_hash = ?`, hash))
	if err != nil {
		return domain.AccessToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *accessTokensRepo) DeleteAccessTokenByHash(ctx context.Context, hash string) (domain.AccessToken, error) {
	t, err := scanAccessToken(r.q.queryRow(ctx,
		`DELETE FROM access_tokens WHERE token_hash = ? RETURNING `+accessTokenColumns, hash))
	if err != nil {
		return domain.AccessToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *accessTokensRepo) DeleteAccessTokensByRefreshTokenID(ctx context.Context, refreshTokenID string) ([]string, error) {
	return r.deleteReturningHashes(ctx,
		`DELETE FROM access_tokens WHERE refresh_token_id = ? RETURNING token_hash`, refreshTokenID)
}

func (r *accessTokensRepo) DeleteAccessTokensByApplicationID(ctx context.Context, applicationID string) ([]string, error) {
	return r.deleteReturningHashes(ctx,
		`DELETE FROM access_tokens WHERE application_id = ? RETURNING token_hash`, applicationID)
}

func (r *accessTokensRepo) deleteReturningHashes(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.q.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

func (r *accessTokensRepo) DeleteExpiredAccessTokens(ctx context.Context, now time.Time) (int64, error) {
	return r.q.execCount(ctx, `DELETE FROM access_tokens WHERE expires_at <= ?`, toMillis(now))
}
