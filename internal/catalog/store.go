package catalog

/*
 * store.go
 * The catalog capability the rest of the core depends on
 */

import (
	"context"
	"errors"
)

// ErrConflict is returned by Insert when a binding with the same
// fingerprint already exists among enabled rows.
var ErrConflict = errors.New("catalog: fingerprint conflict")

// Store is the capability the authenticator, router and admin CLI depend
// on. It is defined here as an interface, not a concrete type, because the
// persistence backend is meant to be pluggable; SQLiteStore below is the
// only provider this repository ships. A non-SQLite backend (e.g.
// Postgres, matching a DB_URL-style locator) is not yet implemented — this
// interface is the seam where one would be added.
type Store interface {
	// Find returns the binding for fingerprint, iff it exists and is
	// enabled.
	Find(ctx context.Context, fingerprint string) (*KeyBinding, error)

	// Insert adds a new binding. It returns ErrConflict if an enabled
	// binding with the same fingerprint already exists.
	Insert(ctx context.Context, b KeyBinding) error

	// RecordEvent appends a connection event. Failure is logged by the
	// caller and is never fatal to the connection it describes.
	RecordEvent(ctx context.Context, e ConnectionEvent) error

	// RouteFor is a convenience equivalent to Find projected onto
	// routing fields only.
	RouteFor(ctx context.Context, fingerprint string) (*Target, error)

	// List returns every binding, enabled or not, for the admin CLI's
	// list-keys command.
	List(ctx context.Context) ([]KeyBinding, error)

	// Close releases any resources held by the store.
	Close() error
}
