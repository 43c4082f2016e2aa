//go:build e2e

package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/saltoplay/platform/internal/oauth/store"
	"github.com/saltoplay/platform/internal/oauth/store/drivers/postgres"
	"github.com/saltoplay/platform/internal/oauth/store/storetest"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "oauth",
				"POSTGRES_PASSWORD": "oauth",
				"POSTGRES_DB":       "oauth",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://oauth:oauth@%s:%s/oauth?sslmode=disable", host, port.Port())
}

func TestStore(t *testing.T) {
	dsn := startPostgres(t)

	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := postgres.NewStore(dsn)
		require.NoError(t, err)
		require.NoError(t, s.ApplyMigrations())

		// Each subtest starts from empty tables.
		_, err = s.DB().Exec(`TRUNCATE applications, users CASCADE`)
		require.NoError(t, err)

		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
