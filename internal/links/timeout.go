package links

import (
	"context"
	"time"
)

// timeoutStore bounds every call to the wrapped store.
type timeoutStore struct {
	next    Store
	timeout time.Duration
}

// WithTimeout wraps store so each call runs under its own deadline. A
// non-positive timeout returns store unchanged.
func WithTimeout(store Store, timeout time.Duration) Store {
	if timeout <= 0 {
		return store
	}
	return &timeoutStore{next: store, timeout: timeout}
}

func (s *timeoutStore) Create(ctx context.Context, code, targetURL string) (Link, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.Create(ctx, code, targetURL)
}

func (s *timeoutStore) Get(ctx context.Context, code string) (Link, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.Get(ctx, code)
}

func (s *timeoutStore) Exists(ctx context.Context, code string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.Exists(ctx, code)
}

func (s *timeoutStore) List(ctx context.Context, search string) ([]Link, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.List(ctx, search)
}

func (s *timeoutStore) Delete(ctx context.Context, code string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.Delete(ctx, code)
}

func (s *timeoutStore) RecordClick(ctx context.Context, code string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.RecordClick(ctx, code)
}
