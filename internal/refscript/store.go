package refscript

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the requested unit does not exist.
var ErrNotFound = errors.New("unit not found")

// ErrDuplicateID is returned by Add when a unit with the same ID already exists.
var ErrDuplicateID = errors.New("unit with that ID already exists")

// Store manages the practice units available to a session.
//
// All implementations must be safe for concurrent use.
type Store interface {
	// Add creates a new unit. Returns the unit with a generated ID if the
	// provided unit's ID is empty.
	// Returns [ErrDuplicateID] if a unit with the same non-empty ID exists.
	Add(ctx context.Context, unit Unit) (Unit, error)

	// Get retrieves a unit by ID.
	// Returns [ErrNotFound] when no unit with that ID exists.
	Get(ctx context.Context, id string) (Unit, error)

	// List returns all units, optionally filtered by language and/or tags.
	// An empty [ListOptions] returns all units in import order.
	List(ctx context.Context, opts ListOptions) ([]Unit, error)

	// Remove deletes a unit by ID.
	// Returns [ErrNotFound] when no unit with that ID exists.
	Remove(ctx context.Context, id string) error

	// BulkImport adds multiple units in order. Returns the number of units
	// successfully imported and any error that caused the import to abort
	// early.
	BulkImport(ctx context.Context, units []Unit) (int, error)
}

// ListOptions narrows the result set of [Store.List].
// All non-zero fields are applied as AND conditions.
type ListOptions struct {
	// Language restricts results to units whose primary script is in this
	// base language. An empty value matches all languages.
	Language string

	// Tags restricts results to units that carry all of the specified tags.
	// An empty slice matches all units regardless of their tags.
	Tags []string
}
