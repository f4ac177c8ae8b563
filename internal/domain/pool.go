package domain

import (
	"encoding/json"
	"time"
)

// Pool represents a yield-bearing position tracked by the feed.
// Corresponds to pools table in PostgreSQL. Keyed by the feed's opaque
// external pool id; upserted every run.
type Pool struct {
	PoolID    string // PRIMARY KEY, external identifier
	ChainID   int32  // FK -> chains.id
	ProjectID int32  // FK -> projects.id

	Symbol           *string
	Stablecoin       *bool
	ILRisk           *string
	Exposure         *string
	RewardTokens     []string
	UnderlyingTokens []string
	PoolMeta         json.RawMessage // preserved verbatim from the feed

	CreatedAt time.Time // set once on first insert
	UpdatedAt time.Time // refreshed on every write
}
