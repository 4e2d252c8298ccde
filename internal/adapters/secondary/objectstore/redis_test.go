//go:build integration

package objectstore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"blendpredict/internal/config"
	"blendpredict/internal/core/domain"
)

func setupRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	store, err := NewRedisStore(&config.RedisConfig{
		Addr:      strings.TrimPrefix(endpoint, "redis://"),
		KeyPrefix: "test:",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRedisStore_PutGet(t *testing.T) {
	store := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "predictions/r.csv", []byte("ID\n1\n"), "text/csv"))

	data, err := store.Get(ctx, "predictions/r.csv")
	require.NoError(t, err)
	assert.Equal(t, "ID\n1\n", string(data))
}

func TestRedisStore_WriteOnce(t *testing.T) {
	store := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "predictions/r.csv", []byte("a"), "text/csv"))
	assert.ErrorIs(t, store.Put(ctx, "predictions/r.csv", []byte("b"), "text/csv"), domain.ErrArtifactExists)
}

func TestRedisStore_GetMissing(t *testing.T) {
	store := setupRedisStore(t)

	_, err := store.Get(context.Background(), "predictions/none.csv")
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
}
