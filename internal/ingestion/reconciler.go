package ingestion

import (
	"context"
	"errors"

	"defillama-etl/internal/storage"
)

// ErrMissingIdentifiers is returned for records lacking a required
// dimension key (pool id, chain name or project name). Such records are
// skipped, never fatal to the run.
var ErrMissingIdentifiers = errors.New("record missing required identifiers")

// Reconciler resolves chain and project names to dimension row ids,
// creating dimension rows on first sight.
//
// The name → id caches are scoped to one Reconciler, and a Reconciler is
// scoped to one run. The underlying stores resolve via atomic
// upsert-returning-id, so two records in the same batch (or two concurrent
// runs) introducing the same new name converge on a single row.
type Reconciler struct {
	chains   storage.ChainStore
	projects storage.ProjectStore

	chainIDs   map[string]int32
	projectIDs map[string]int32
}

// NewReconciler creates a Reconciler with empty caches.
func NewReconciler(chains storage.ChainStore, projects storage.ProjectStore) *Reconciler {
	return &Reconciler{
		chains:     chains,
		projects:   projects,
		chainIDs:   make(map[string]int32),
		projectIDs: make(map[string]int32),
	}
}

// Resolve maps a record's chain and project names onto dimension row ids.
// Names match case-sensitively and without normalization. Returns
// ErrMissingIdentifiers when either name is empty.
func (r *Reconciler) Resolve(ctx context.Context, chainName, projectName string) (chainID, projectID int32, err error) {
	if chainName == "" || projectName == "" {
		return 0, 0, ErrMissingIdentifiers
	}

	chainID, err = r.resolveChain(ctx, chainName)
	if err != nil {
		return 0, 0, err
	}

	projectID, err = r.resolveProject(ctx, projectName)
	if err != nil {
		return 0, 0, err
	}

	return chainID, projectID, nil
}

func (r *Reconciler) resolveChain(ctx context.Context, name string) (int32, error) {
	if id, ok := r.chainIDs[name]; ok {
		return id, nil
	}

	id, err := r.chains.Upsert(ctx, name)
	if err != nil {
		return 0, err
	}
	r.chainIDs[name] = id
	return id, nil
}

func (r *Reconciler) resolveProject(ctx context.Context, name string) (int32, error) {
	if id, ok := r.projectIDs[name]; ok {
		return id, nil
	}

	id, err := r.projects.UpsertName(ctx, name)
	if err != nil {
		return 0, err
	}
	r.projectIDs[name] = id
	return id, nil
}
