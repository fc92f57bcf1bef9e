package session

import (
	"context"
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/salesbudget/internal/test_utils"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var pgContainer *postgres.PostgresContainer
var openDb func() *pgxpool.Pool

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}
	pgContainer, openDb = test_utils.TestWithDB()
	code := m.Run()
	if err := testcontainers.TerminateContainer(pgContainer); err != nil {
		log.Errorf("failed to terminate container: %s", err)
	}
	os.Exit(code)
}

func setupTestRepository(t *testing.T) (context.Context, *RepositoryImpl) {
	ctx := context.Background()
	test_utils.SkipWithoutDB(t)
	db := openDb()
	t.Cleanup(func() {
		db.Close()
		err := pgContainer.Restore(ctx)
		require.NoError(t, err)
	})
	return ctx, NewRepository(db)
}

func TestRepositoryImpl_Touch(t *testing.T) {
	t.Run("should report unknown sessions", func(t *testing.T) {
		// given
		ctx, repo := setupTestRepository(t)

		// when
		found, err := repo.Touch(ctx, uuid.NewString(), time.Now())

		// then
		assert.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("should touch an existing session", func(t *testing.T) {
		// given
		ctx, repo := setupTestRepository(t)
		id := uuid.NewString()
		now := time.Now().UTC()
		require.NoError(t, repo.Create(ctx, Session{Id: id, CreatedAt: now, LastAccessed: now}))

		// when
		found, err := repo.Touch(ctx, id, now.Add(time.Minute))

		// then
		assert.NoError(t, err)
		assert.True(t, found)
	})
}

func TestRepositoryImpl_DeleteIdleSince(t *testing.T) {
	// given
	ctx, repo := setupTestRepository(t)
	now := time.Now().UTC()
	idle := uuid.NewString()
	active := uuid.NewString()
	require.NoError(t, repo.Create(ctx, Session{Id: idle, CreatedAt: now.Add(-3 * time.Hour), LastAccessed: now.Add(-2 * time.Hour)}))
	require.NoError(t, repo.Create(ctx, Session{Id: active, CreatedAt: now, LastAccessed: now}))

	// when
	ids, err := repo.DeleteIdleSince(ctx, now.Add(-time.Hour))

	// then
	require.NoError(t, err)
	assert.Equal(t, []string{idle}, ids)
	found, err := repo.Touch(ctx, active, now)
	assert.NoError(t, err)
	assert.True(t, found)
}
