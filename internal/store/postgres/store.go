// Package postgres stores links in PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sundayezeilo/tinylink/internal/errx"
	"github.com/sundayezeilo/tinylink/internal/links"
)

const uniqueViolation = "23505"

// querier abstracts *Queries.
type querier interface {
	CreateLink(ctx context.Context, arg CreateLinkParams) (LinkRow, error)
	GetLink(ctx context.Context, code string) (LinkRow, error)
	LinkExists(ctx context.Context, code string) (bool, error)
	ListLinks(ctx context.Context, search string) ([]LinkRow, error)
	DeleteLink(ctx context.Context, code string) (int64, error)
	RecordClick(ctx context.Context, code string) (int64, error)
}

// Store implements links.Store.
type Store struct {
	q querier
}

var _ links.Store = (*Store)(nil)

func New(q querier) *Store {
	return &Store{q: q}
}

// NewFromPool builds a Store that runs its queries on pool.
func NewFromPool(pool *pgxpool.Pool) *Store {
	return New(NewQueries(pool))
}

func mustTime(ts pgtype.Timestamptz, field string) (time.Time, error) {
	if !ts.Valid {
		return time.Time{}, fmt.Errorf("%s unexpectedly NULL", field)
	}
	return ts.Time, nil
}

func timePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

func toDomainLink(x LinkRow) (links.Link, error) {
	createdAt, err := mustTime(x.CreatedAt, "created_at")
	if err != nil {
		return links.Link{}, err
	}

	return links.Link{
		Code:        x.Code,
		TargetURL:   x.TargetUrl,
		TotalClicks: x.TotalClicks,
		LastClicked: timePtr(x.LastClicked),
		CreatedAt:   createdAt,
	}, nil
}

func isCodeUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && pgErr.ConstraintName == "links_pkey"
}

func mapStoreError(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return errx.E(op, errx.NotFound, links.ErrNotFound)

	case isCodeUniqueViolation(err):
		return errx.E(op, errx.Conflict, fmt.Errorf("%w: %w", links.ErrDuplicateCode, err))

	default:
		return errx.E(op, errx.Storage, err)
	}
}

func (s *Store) Create(ctx context.Context, code, targetURL string) (links.Link, error) {
	const op = "store.postgres.Create"

	row, err := s.q.CreateLink(ctx, CreateLinkParams{Code: code, TargetUrl: targetURL})
	if err != nil {
		return links.Link{}, mapStoreError(op, err)
	}

	link, err := toDomainLink(row)
	if err != nil {
		return links.Link{}, errx.E(op, errx.Storage, err)
	}
	return link, nil
}

func (s *Store) Get(ctx context.Context, code string) (links.Link, error) {
	const op = "store.postgres.Get"

	row, err := s.q.GetLink(ctx, code)
	if err != nil {
		return links.Link{}, mapStoreError(op, err)
	}

	link, err := toDomainLink(row)
	if err != nil {
		return links.Link{}, errx.E(op, errx.Storage, err)
	}
	return link, nil
}

func (s *Store) Exists(ctx context.Context, code string) (bool, error) {
	const op = "store.postgres.Exists"

	ok, err := s.q.LinkExists(ctx, code)
	if err != nil {
		return false, errx.E(op, errx.Storage, err)
	}
	return ok, nil
}

// List returns links newest first. A non-empty search keeps links whose code
// or target URL contains it, ignoring case.
func (s *Store) List(ctx context.Context, search string) ([]links.Link, error) {
	const op = "store.postgres.List"

	rows, err := s.q.ListLinks(ctx, search)
	if err != nil {
		return nil, errx.E(op, errx.Storage, err)
	}

	out := make([]links.Link, 0, len(rows))
	for _, row := range rows {
		link, err := toDomainLink(row)
		if err != nil {
			return nil, errx.E(op, errx.Storage, err)
		}
		out = append(out, link)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, code string) error {
	const op = "store.postgres.Delete"

	n, err := s.q.DeleteLink(ctx, code)
	if err != nil {
		return errx.E(op, errx.Storage, err)
	}
	if n == 0 {
		return errx.E(op, errx.NotFound, links.ErrNotFound)
	}
	return nil
}

// RecordClick increments the counter in a single UPDATE, so concurrent clicks
// on the same code are never lost.
func (s *Store) RecordClick(ctx context.Context, code string) error {
	const op = "store.postgres.RecordClick"

	n, err := s.q.RecordClick(ctx, code)
	if err != nil {
		return errx.E(op, errx.Storage, err)
	}
	if n == 0 {
		return errx.E(op, errx.NotFound, links.ErrNotFound)
	}
	return nil
}
