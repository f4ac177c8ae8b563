package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defillama-etl/internal/storage"
)

func TestChainStore_UpsertAndGetByName(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewChainStore(pool)
	ctx := context.Background()

	id, err := store.Upsert(ctx, "Ethereum")
	require.NoError(t, err)
	assert.NotZero(t, id)

	chain, err := store.GetByName(ctx, "Ethereum")
	require.NoError(t, err)
	assert.Equal(t, id, chain.ID)
	assert.Equal(t, "Ethereum", chain.Name)
	assert.NotZero(t, chain.CreatedAt)
}

func TestChainStore_UpsertIsIdempotent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewChainStore(pool)
	ctx := context.Background()

	id1, err := store.Upsert(ctx, "Arbitrum")
	require.NoError(t, err)

	id2, err := store.Upsert(ctx, "Arbitrum")
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "repeated upsert must return the same row id")
}

func TestChainStore_NamesAreCaseSensitive(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewChainStore(pool)
	ctx := context.Background()

	id1, err := store.Upsert(ctx, "Ethereum")
	require.NoError(t, err)

	id2, err := store.Upsert(ctx, "ethereum")
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
}

func TestChainStore_GetByNameNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewChainStore(pool)

	_, err := store.GetByName(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestChainStore_EmptyNameRejected(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewChainStore(pool)

	_, err := store.Upsert(context.Background(), "")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
