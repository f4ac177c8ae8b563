package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defillama-etl/internal/domain"
	"defillama-etl/internal/storage"
)

func TestPoolStore_UpsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	chainID, projectID := seedDimensions(t, ctx, pool)

	store := NewPoolStore(pool)
	p := &domain.Pool{
		PoolID:           "aa70268e-4b52-42bf-a116-3b5f9f8a2cf6",
		ChainID:          chainID,
		ProjectID:        projectID,
		Symbol:           ptr("USDC"),
		Stablecoin:       ptr(true),
		ILRisk:           ptr("no"),
		Exposure:         ptr("single"),
		UnderlyingTokens: []string{"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"},
		PoolMeta:         json.RawMessage(`"V3 0.05%"`),
	}

	require.NoError(t, store.Upsert(ctx, p))

	got, err := store.GetByID(ctx, p.PoolID)
	require.NoError(t, err)
	assert.Equal(t, chainID, got.ChainID)
	assert.Equal(t, projectID, got.ProjectID)
	require.NotNil(t, got.Symbol)
	assert.Equal(t, "USDC", *got.Symbol)
	require.NotNil(t, got.Stablecoin)
	assert.True(t, *got.Stablecoin)
	assert.Equal(t, p.UnderlyingTokens, got.UnderlyingTokens)
	assert.JSONEq(t, `"V3 0.05%"`, string(got.PoolMeta))
	assert.Nil(t, got.RewardTokens)
	assert.NotZero(t, got.CreatedAt)
	assert.NotZero(t, got.UpdatedAt)
}

func TestPoolStore_UpsertOverwritesAndBumpsUpdatedAt(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	chainID, projectID := seedDimensions(t, ctx, pool)

	store := NewPoolStore(pool)
	p := &domain.Pool{
		PoolID:    "pool-overwrite",
		ChainID:   chainID,
		ProjectID: projectID,
		Symbol:    ptr("WETH"),
	}
	require.NoError(t, store.Upsert(ctx, p))

	before, err := store.GetByID(ctx, p.PoolID)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	p.Symbol = ptr("WETH-USDC")
	p.Stablecoin = ptr(false)
	require.NoError(t, store.Upsert(ctx, p))

	after, err := store.GetByID(ctx, p.PoolID)
	require.NoError(t, err)
	assert.Equal(t, before.CreatedAt, after.CreatedAt, "created_at survives re-upsert")
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt), "updated_at advances on re-upsert")
	require.NotNil(t, after.Symbol)
	assert.Equal(t, "WETH-USDC", *after.Symbol)
}

func TestPoolStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPoolStore(pool)

	_, err := store.GetByID(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPoolStore_UpsertRejectsUnknownDimensions(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPoolStore(pool)

	err := store.Upsert(context.Background(), &domain.Pool{
		PoolID:    "orphan-pool",
		ChainID:   9999,
		ProjectID: 9999,
	})
	require.Error(t, err, "foreign keys must reject missing dimension rows")
}

func TestPoolStore_DeleteCascadesSnapshots(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	chainID, projectID := seedDimensions(t, ctx, pool)

	poolStore := NewPoolStore(pool)
	snapStore := NewSnapshotStore(pool)

	p := &domain.Pool{PoolID: "pool-cascade", ChainID: chainID, ProjectID: projectID}
	require.NoError(t, poolStore.Upsert(ctx, p))

	date := time.Date(2024, 5, 24, 0, 0, 0, 0, time.UTC)
	require.NoError(t, snapStore.Upsert(ctx, &domain.PoolSnapshot{
		PoolID:       "pool-cascade",
		SnapshotDate: date,
		FetchedAt:    date.Add(6 * time.Hour),
		TVLUsd:       ptr(1000.0),
	}))

	require.NoError(t, poolStore.Delete(ctx, "pool-cascade"))

	_, err := poolStore.GetByID(ctx, "pool-cascade")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	snaps, err := snapStore.GetByPool(ctx, "pool-cascade")
	require.NoError(t, err)
	assert.Empty(t, snaps, "snapshots must be removed with their pool")
}

func TestPoolStore_DeleteNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPoolStore(pool)

	err := store.Delete(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
