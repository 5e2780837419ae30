package links

import "context"

// Store persists links. Implementations enforce code uniqueness with a storage
// constraint and apply click increments as a single atomic statement.
//
// Errors are errx errors: NotFound for unknown codes, Conflict wrapping
// ErrDuplicateCode for a create that lost to an existing row, Storage otherwise.
type Store interface {
	Create(ctx context.Context, code, targetURL string) (Link, error)
	Get(ctx context.Context, code string) (Link, error)
	Exists(ctx context.Context, code string) (bool, error)
	// List returns links newest first. A non-empty search keeps links whose code
	// or target URL contains it, ignoring case.
	List(ctx context.Context, search string) ([]Link, error)
	Delete(ctx context.Context, code string) error
	RecordClick(ctx context.Context, code string) error
}
