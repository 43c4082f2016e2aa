package sqlcore

import (
	"context"
	"time"

	"github.com/saltoplay/platform/internal/oauth/domain"
)

type applicationsRepo struct {
	q *queries
}

const applicationColumns = `id, name, secret_hash, redirect_uri, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (domain.Application, error) {
	var (
		a                domain.Application
		created, updated int64
	)
	if err := row.Scan(&a.ID, &a.Name, &a.SecretHash, &a.RedirectURI, &created, &updated); err != nil {
		return domain.Application{}, err
	}
	a.CreatedAt = fromMillis(created)
	a.UpdatedAt = fromMillis(updated)
	return a, nil
}

func (r *applicationsRepo) GetApplicationByID(ctx context.Context, id string) (domain.Application, error) {
	a, err := scanApplication(r.q.queryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = ?`, id))
	if err != nil {
		return domain.Application{}, mapNotFound(err)
	}
	return a, nil
}

func (r *applicationsRepo) ListApplications(ctx context.Context) ([]domain.Application, error) {
	rows, err := r.q.query(ctx,
		`SELECT `+applicationColumns+` FROM applications ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *applicationsRepo) CreateApplication(ctx context.Context, a domain.Application) error {
	_, err := r.q.exec(ctx,
		`INSERT INTO applications (`+applicationColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.SecretHash, a.RedirectURI, toMillis(a.CreatedAt), toMillis(a.UpdatedAt),
	)
	return err
}

func (r *applicationsRepo) UpdateApplicationSecretHash(ctx context.Context, id, secretHash string, now time.Time) error {
	return r.q.execOne(ctx,
		`UPDATE applications SET secret_hash = ?, updated_at = ? WHERE id = ?`,
		secretHash, toMillis(now), id,
	)
}

func (r *applicationsRepo) UpdateApplicationRedirectURI(ctx context.Context, id, redirectURI string, now time.Time) error {
	return r.q.execOne(ctx,
		`UPDATE applications SET redirect_uri = ?, updated_at = ? WHERE id = ?`,
		redirectURI, toMillis(now), id,
	)
}

func (r *applicationsRepo) DeleteApplication(ctx context.Context, id string) error {
	return r.q.execOne(ctx, `DELETE FROM applications WHERE id = ?`, id)
}
