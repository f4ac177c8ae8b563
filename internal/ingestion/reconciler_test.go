package ingestion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defillama-etl/internal/storage/memory"
)

func TestReconciler_CreatesDimensionsOnFirstSight(t *testing.T) {
	ctx := context.Background()
	chains := memory.NewChainStore()
	projects := memory.NewProjectStore()

	r := NewReconciler(chains, projects)

	chainID, projectID, err := r.Resolve(ctx, "Arbitrum", "aave-v3")
	require.NoError(t, err)
	assert.NotZero(t, chainID)
	assert.NotZero(t, projectID)

	chain, err := chains.GetByName(ctx, "Arbitrum")
	require.NoError(t, err)
	assert.Equal(t, chainID, chain.ID)

	project, err := projects.GetByName(ctx, "aave-v3")
	require.NoError(t, err)
	assert.Equal(t, projectID, project.ID)
}

func TestReconciler_SameNameResolvesToSameID(t *testing.T) {
	ctx := context.Background()
	r := NewReconciler(memory.NewChainStore(), memory.NewProjectStore())

	chainID1, projectID1, err := r.Resolve(ctx, "Ethereum", "lido")
	require.NoError(t, err)

	// Second record in the same batch referencing the same names.
	chainID2, projectID2, err := r.Resolve(ctx, "Ethereum", "lido")
	require.NoError(t, err)

	assert.Equal(t, chainID1, chainID2)
	assert.Equal(t, projectID1, projectID2)
}

func TestReconciler_CaseSensitiveNames(t *testing.T) {
	ctx := context.Background()
	chains := memory.NewChainStore()
	r := NewReconciler(chains, memory.NewProjectStore())

	id1, _, err := r.Resolve(ctx, "Ethereum", "lido")
	require.NoError(t, err)

	id2, _, err := r.Resolve(ctx, "ethereum", "lido")
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
}

func TestReconciler_MissingIdentifiers(t *testing.T) {
	ctx := context.Background()
	r := NewReconciler(memory.NewChainStore(), memory.NewProjectStore())

	_, _, err := r.Resolve(ctx, "", "aave-v3")
	assert.ErrorIs(t, err, ErrMissingIdentifiers)

	_, _, err = r.Resolve(ctx, "Ethereum", "")
	assert.ErrorIs(t, err, ErrMissingIdentifiers)
}
