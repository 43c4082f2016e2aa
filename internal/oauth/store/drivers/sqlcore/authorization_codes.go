package sqlcore

import (
	"context"
	"time"

	"github.com/saltoplay/platform/internal/oauth/domain"
)

type authorizationCodesRepo struct {
	q *queries
}

const authorizationCodeColumns = `id, code_hash, application_id, user_id, redirect_uri, scopes,
	code_challenge, code_challenge_method, expires_at, created_at`

func (r *authorizationCodesRepo) CreateAuthorizationCode(ctx context.Context, c domain.AuthorizationCode) error {
	_, err := r.q.exec(ctx,
		`INSERT INTO authorization_codes (`+authorizationCodeColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.CodeHash, c.ClientID, c.UserID, c.RedirectURI, joinScopes(c.Scopes),
		c.CodeChallenge, c.CodeChallengeMethod, toMillis(c.ExpiresAt), toMillis(c.CreatedAt),
	)
	return err
}

// ConsumeAuthorizationCode relies on DELETE ... RETURNING: the row lock taken
// by the delete means a second concurrent consumer sees no row.
func (r *authorizationCodesRepo) ConsumeAuthorizationCode(ctx context.Context, hash string) (domain.AuthorizationCode, error) {
	var (
		c                domain.AuthorizationCode
		scopes           string
		expires, created int64
	)
	err := r.q.queryRow(ctx,
		`DELETE FROM authorization_codes WHERE code_hash = ? RETURNING `+authorizationCodeColumns,
		hash,
	).Scan(&c.ID, &c.CodeHash, &c.ClientID, &c.UserID, &c.RedirectURI, &scopes,
		&c.CodeChallenge, &c.CodeChallengeMethod, &expires, &created)
	if err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}

	c.Scopes = splitScopes(scopes)
	c.ExpiresAt = fromMillis(expires)
	c.CreatedAt = fromMillis(created)
	return c, nil
}

func (r *authorizationCodesRepo) DeleteExpiredAuthorizationCodes(ctx context.Context, now time.Time) (int64, error) {
	return r.q.execCount(ctx, `DELETE FROM authorization_codes WHERE expires_at <= ?`, toMillis(now))
}
