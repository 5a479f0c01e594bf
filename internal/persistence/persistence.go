// Package persistence stores durable snapshots of the game ledger. The
// engine stays authoritative in memory; snapshots exist so a restarted
// process can pick the game back up where it left off.
package persistence

import "context"

// Backend writes and reads opaque ledger snapshots. Implementations keep a
// bounded history and always return the newest snapshot from Load.
type Backend interface {
	// Save appends a snapshot.
	Save(ctx context.Context, raw []byte) error
	// Load returns the most recent snapshot, or (nil, nil) when none exists.
	Load(ctx context.Context) ([]byte, error)
	Close() error
}

// keepSnapshots bounds how many historical snapshots a backend retains.
const keepSnapshots = 20
