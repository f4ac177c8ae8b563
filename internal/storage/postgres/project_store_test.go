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

func TestProjectStore_UpsertNameIsIdempotent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewProjectStore(pool)
	ctx := context.Background()

	id1, err := store.UpsertName(ctx, "aave-v3")
	require.NoError(t, err)
	assert.NotZero(t, id1)

	id2, err := store.UpsertName(ctx, "aave-v3")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestProjectStore_UpsertMetadataCreatesRow(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewProjectStore(pool)
	ctx := context.Background()

	listedAt := time.Date(2022, 3, 12, 0, 0, 0, 0, time.UTC)
	project := &domain.Project{
		Name:        "AAVE V3",
		Slug:        ptr("aave-v3"),
		Category:    ptr("Lending"),
		Description: ptr("Non-custodial liquidity protocol"),
		Chains:      []string{"Ethereum", "Arbitrum"},
		ListedAt:    &listedAt,
		TVL:         ptr(5.0e9),
		Change1d:    ptr(-0.42),
		ChainTVLs:   json.RawMessage(`{"Ethereum": 4000000000}`),
		Oracles:     []string{"Chainlink"},
	}

	id, err := store.UpsertMetadata(ctx, project)
	require.NoError(t, err)
	assert.NotZero(t, id)

	got, err := store.GetBySlug(ctx, "aave-v3")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "AAVE V3", got.Name)
	require.NotNil(t, got.Category)
	assert.Equal(t, "Lending", *got.Category)
	assert.Equal(t, []string{"Ethereum", "Arbitrum"}, got.Chains)
	require.NotNil(t, got.ListedAt)
	assert.True(t, got.ListedAt.Equal(listedAt))
	require.NotNil(t, got.TVL)
	assert.InDelta(t, 5.0e9, *got.TVL, 1)
	assert.JSONEq(t, `{"Ethereum": 4000000000}`, string(got.ChainTVLs))
	assert.Equal(t, []string{"Chainlink"}, got.Oracles)
	assert.Nil(t, got.Mcap)
	assert.NotZero(t, got.CreatedAt)
}

func TestProjectStore_UpsertMetadataOverwrites(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewProjectStore(pool)
	ctx := context.Background()

	first := &domain.Project{
		Name:        "Lido",
		Slug:        ptr("lido"),
		Description: ptr("liquid staking"),
		TVL:         ptr(2.0e10),
	}
	id1, err := store.UpsertMetadata(ctx, first)
	require.NoError(t, err)

	before, err := store.GetByName(ctx, "Lido")
	require.NoError(t, err)

	second := &domain.Project{
		Name: "Lido",
		Slug: ptr("lido"),
		TVL:  ptr(3.0e10),
		// Description absent today: must overwrite with NULL.
	}
	id2, err := store.UpsertMetadata(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	after, err := store.GetByName(ctx, "Lido")
	require.NoError(t, err)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	assert.False(t, after.UpdatedAt.Before(before.UpdatedAt))
	require.NotNil(t, after.TVL)
	assert.InDelta(t, 3.0e10, *after.TVL, 1)
	assert.Nil(t, after.Description)
}

func TestProjectStore_UpsertMetadataFillsBareRow(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewProjectStore(pool)
	ctx := context.Background()

	// The pools feed creates bare rows with only a name.
	bareID, err := store.UpsertName(ctx, "uniswap-v3")
	require.NoError(t, err)

	id, err := store.UpsertMetadata(ctx, &domain.Project{
		Name:     "uniswap-v3",
		Slug:     ptr("uniswap-v3"),
		Category: ptr("Dexes"),
	})
	require.NoError(t, err)
	assert.Equal(t, bareID, id, "metadata must land on the bare row, not create a second one")

	got, err := store.GetByName(ctx, "uniswap-v3")
	require.NoError(t, err)
	require.NotNil(t, got.Category)
	assert.Equal(t, "Dexes", *got.Category)
}

func TestProjectStore_SlugCollision(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewProjectStore(pool)
	ctx := context.Background()

	_, err := store.UpsertMetadata(ctx, &domain.Project{
		Name: "Project A",
		Slug: ptr("shared-slug"),
	})
	require.NoError(t, err)

	_, err = store.UpsertMetadata(ctx, &domain.Project{
		Name: "Project B",
		Slug: ptr("shared-slug"),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestProjectStore_GetBySlugNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewProjectStore(pool)

	_, err := store.GetBySlug(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProjectStore_NullSlugsDoNotCollide(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewProjectStore(pool)
	ctx := context.Background()

	_, err := store.UpsertMetadata(ctx, &domain.Project{Name: "Project A"})
	require.NoError(t, err)

	_, err = store.UpsertMetadata(ctx, &domain.Project{Name: "Project B"})
	require.NoError(t, err, "multiple rows with NULL slug must coexist")
}
