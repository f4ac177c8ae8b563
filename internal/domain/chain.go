package domain

import "time"

// Chain represents a blockchain network referenced by yield pools.
// Corresponds to chains table in PostgreSQL. Rows are created lazily the
// first time a pool references an unseen chain name and are never updated.
type Chain struct {
	ID        int32     // PRIMARY KEY, assigned by the database
	Name      string    // UNIQUE, exact name as supplied by the feed
	CreatedAt time.Time // record creation timestamp
}
