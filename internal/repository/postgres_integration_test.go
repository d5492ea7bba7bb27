//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"flickr-shapes/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDatabase(t *testing.T) string {
	ctx := context.Background()

	// Start PostgreSQL container with PostGIS
	req := testcontainers.ContainerRequest{
		Image:        "postgis/postgis:16-3.4",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "testdb",
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(2 * time.Minute),
	}

	postgresC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		postgresC.Terminate(ctx)
	})

	host, err := postgresC.Host(ctx)
	require.NoError(t, err)

	port, err := postgresC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return "postgres://testuser:testpass@" + host + ":" + port.Port() + "/testdb?sslmode=disable"
}

func TestPostgresDataset(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	dbSource := setupTestDatabase(t)
	ctx := context.Background()

	t.Run("close commits every group", func(t *testing.T) {
		dataset, err := OpenPostgresDataset(ctx, dbSource)
		require.NoError(t, err)

		router := NewRouter(dataset)
		_, err = router.GetOrCreateGroup(ctx, models.PlaceholderGroup)
		require.NoError(t, err)
		feature := testFeature(time.Date(2009, 5, 21, 0, 0, 0, 0, time.UTC))
		require.NoError(t, router.Persist(ctx, "2009-05-21", feature))
		require.NoError(t, dataset.Close(ctx))

		conn, err := pgx.Connect(ctx, dbSource)
		require.NoError(t, err)
		defer conn.Close(ctx)

		var count int
		err = conn.QueryRow(ctx, `SELECT COUNT(*) FROM "Flickr Alpha Shapes"`).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		var (
			woeID   int
			label   string
			created time.Time
			rings   int
			srid    int
		)
		err = conn.QueryRow(ctx, `
			SELECT woe_id, label, created, ST_NumInteriorRings(geom) + 1, ST_SRID(geom)
			FROM "2009-05-21"
		`).Scan(&woeID, &label, &created, &rings, &srid)
		require.NoError(t, err)
		assert.Equal(t, 123, woeID)
		assert.Equal(t, "Test", label)
		assert.Equal(t, "2009-05-21", created.Format("2006-01-02"))
		assert.Equal(t, 2, rings)
		assert.Equal(t, models.SRID, srid)
	})

	t.Run("rerun replaces the group", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			dataset, err := OpenPostgresDataset(ctx, dbSource)
			require.NoError(t, err)
			router := NewRouter(dataset)
			require.NoError(t, router.Persist(ctx, "2011-03-04", testFeature(time.Now())))
			require.NoError(t, dataset.Close(ctx))
		}

		conn, err := pgx.Connect(ctx, dbSource)
		require.NoError(t, err)
		defer conn.Close(ctx)

		var count int
		err = conn.QueryRow(ctx, `SELECT COUNT(*) FROM "2011-03-04"`).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("abort rolls back", func(t *testing.T) {
		dataset, err := OpenPostgresDataset(ctx, dbSource)
		require.NoError(t, err)

		router := NewRouter(dataset)
		require.NoError(t, router.Persist(ctx, "2010-01-01", testFeature(time.Now())))
		require.NoError(t, dataset.Abort(ctx))

		conn, err := pgx.Connect(ctx, dbSource)
		require.NoError(t, err)
		defer conn.Close(ctx)

		var table *string
		err = conn.QueryRow(ctx, `SELECT to_regclass('"2010-01-01"')::text`).Scan(&table)
		require.NoError(t, err)
		assert.Nil(t, table)
	})
}
