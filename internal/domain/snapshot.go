package domain

import (
	"encoding/json"
	"time"
)

// PoolSnapshot holds one day's measured metrics for a pool.
// Corresponds to pool_snapshots table in PostgreSQL. At most one row exists
// per (pool_id, snapshot_date); a re-run on the same calendar day updates
// the row in place, a run on a new day appends.
//
// Metric fields are pointers: a missing feed value is stored as NULL and
// must remain distinguishable from a true zero.
type PoolSnapshot struct {
	ID           int64     // PRIMARY KEY, surrogate
	PoolID       string    // FK -> pools.pool_id, ON DELETE CASCADE
	SnapshotDate time.Time // UTC calendar date of the run
	FetchedAt    time.Time // wall clock of the fetch, refreshed on re-run

	TVLUsd           *float64
	ApyBase          *float64
	ApyReward        *float64
	Apy              *float64
	ApyPct1D         *float64
	ApyPct7D         *float64
	ApyPct30D        *float64
	IL7D             *float64
	ApyBase7D        *float64
	ApyMean30D       *float64
	VolumeUsd1D      *float64
	VolumeUsd7D      *float64
	ApyBaseInception *float64
	Mu               *float64
	Sigma            *float64
	ObservationCount *int64
	Outlier          *bool

	PredictedClass         *string
	PredictedProbability   *float64
	PredictedConfidenceBin *int64
	Predictions            json.RawMessage // full predictions object, verbatim

	CreatedAt time.Time // preserved across same-day re-runs
}
