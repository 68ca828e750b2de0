/*
store.go - Persistence interfaces for profiles, scans, and the directory

PURPOSE:
  Defines the boundary between the engine and durable storage. The engine
  owns the read-modify-write discipline; stores only load and save record
  sets. Implementations must make individual writes atomic (a reader never
  observes a partially written record set) but are not required to provide
  cross-record-set transactions.

RECORD SETS:
  Profiles:   keyed by loyalty id, mutated in place by the engine
  ScanEvents: append-only, never updated or deleted
  Employees:  externally managed, read-only from the ledger's perspective

IMPLEMENTATIONS:
  - store/sqlite: SQLite-backed production store (WAL mode)
  - ledger/store: in-memory store for tests and development
*/
package ledger

import "context"

// =============================================================================
// STORE - Durable persistence for the two ledger record sets
// =============================================================================

// Store persists loyalty profiles and scan events. Writes must be atomic
// per call: either the whole batch lands or none of it does. ScanEvents are
// append-only; there is no update or delete operation, ever.
type Store interface {
	// LoadProfiles returns all persisted profiles.
	LoadProfiles(ctx context.Context) ([]Profile, error)

	// SaveProfiles upserts the given profiles atomically, keyed by LoyaltyID.
	// Profiles not in the slice are left untouched.
	SaveProfiles(ctx context.Context, profiles []Profile) error

	// LoadScans returns all persisted scan events in append order.
	LoadScans(ctx context.Context) ([]ScanEvent, error)

	// AppendScan appends one scan event. This is the only scan write.
	AppendScan(ctx context.Context, ev ScanEvent) error
}

// =============================================================================
// DIRECTORY - Read-only employee reference dataset
// =============================================================================

// Directory resolves employee identifiers. Lookups are matched
// case-insensitively after trimming whitespace; implementations receive the
// already-normalized id. A missing employee is (nil, nil), not an error.
type Directory interface {
	FindEmployee(ctx context.Context, normalizedID string) (*Employee, error)
}
