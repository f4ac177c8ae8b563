package domain

import (
	"encoding/json"
	"time"
)

// Project represents a DeFi protocol (project) that operates yield pools.
// Corresponds to projects table in PostgreSQL.
//
// A row is created on first reference by name from the pools feed and later
// enriched with descriptive/metric fields by the protocols feed. All
// nullable columns are pointer fields so an absent feed value stays NULL.
type Project struct {
	ID   int32   // PRIMARY KEY, assigned by the database
	Name string  // UNIQUE, exact name as supplied by the feed
	Slug *string // UNIQUE, nullable

	Symbol      *string
	Chain       *string
	Chains      []string
	Category    *string
	Description *string
	Twitter     *string
	ListedAt    *time.Time

	TVL          *float64
	TVLPrevDay   *float64
	TVLPrevWeek  *float64
	TVLPrevMonth *float64
	Mcap         *float64
	FDV          *float64
	Change1h     *float64
	Change1d     *float64
	Change7d     *float64

	ChainTVLs json.RawMessage // per-chain TVL breakdown, preserved verbatim
	Tokens    json.RawMessage // token holdings, preserved verbatim

	Audits          *string
	AuditNote       *string
	ForkedFrom      []string
	Oracles         []string
	ParentProtocols []string
	OtherChains     []string

	CreatedAt time.Time
	UpdatedAt time.Time // advances on every write touching the row
}
