// Package sqlite stores links in a local SQLite file through modernc.org/sqlite,
// or in a remote libSQL database when the DSN names one.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sundayezeilo/tinylink/internal/errx"
	"github.com/sundayezeilo/tinylink/internal/links"
)

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const busyTimeout = 5 * time.Second

// Config holds the connection settings.
type Config struct {
	DSN       string // file path, ":memory:", or libsql://, https://, wss:// URL
	AuthToken string // libSQL only
}

// Store implements links.Store.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ links.Store = (*Store)(nil)

// IsRemote reports whether dsn points at a libSQL server rather than a local file.
func IsRemote(dsn string) bool {
	for _, scheme := range []string{"libsql://", "https://", "http://", "wss://", "ws://"} {
		if strings.HasPrefix(dsn, scheme) {
			return true
		}
	}
	return false
}

func withAuthToken(dsn, token string) (string, error) {
	if token == "" {
		return dsn, nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("authToken", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Open connects to the database named by cfg. The schema is not touched; call
// Migrate for that.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	const op = "store.sqlite.Open"

	if cfg.DSN == "" {
		return nil, errx.E(op, errx.Invalid, errors.New("dsn is required"))
	}

	driver, dsn := "sqlite", cfg.DSN
	remote := IsRemote(cfg.DSN)
	if remote {
		var err error
		driver = "libsql"
		if dsn, err = withAuthToken(cfg.DSN, cfg.AuthToken); err != nil {
			return nil, errx.E(op, errx.Invalid, fmt.Errorf("parse dsn: %w", err))
		}
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errx.E(op, errx.Storage, err)
	}

	if !remote {
		// One connection serializes writers inside the process; busy_timeout
		// covers other processes sharing the file.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)

		pragmas := []string{
			fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()),
			"PRAGMA journal_mode = WAL",
		}
		for _, p := range pragmas {
			if _, err := db.ExecContext(ctx, p); err != nil {
				_ = db.Close()
				return nil, errx.E(op, errx.Storage, fmt.Errorf("%s: %w", p, err))
			}
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errx.E(op, errx.Storage, err)
	}

	return New(db), nil
}

// New wraps an open database.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

type linkRow struct {
	Code        string         `db:"code"`
	TargetURL   string         `db:"target_url"`
	TotalClicks int64          `db:"total_clicks"`
	LastClicked sql.NullString `db:"last_clicked"`
	CreatedAt   string         `db:"created_at"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func toDomainLink(r linkRow) (links.Link, error) {
	createdAt, err := time.Parse(timeLayout, r.CreatedAt)
	if err != nil {
		return links.Link{}, fmt.Errorf("created_at: %w", err)
	}

	link := links.Link{
		Code:        r.Code,
		TargetURL:   r.TargetURL,
		TotalClicks: r.TotalClicks,
		CreatedAt:   createdAt,
	}
	if r.LastClicked.Valid {
		lc, err := time.Parse(timeLayout, r.LastClicked.String)
		if err != nil {
			return links.Link{}, fmt.Errorf("last_clicked: %w", err)
		}
		link.LastClicked = &lc
	}
	return link, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *moderncsqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
		return false
	}
	// libSQL reports constraint failures as text only.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func mapStoreError(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return errx.E(op, errx.NotFound, links.ErrNotFound)

	case isUniqueViolation(err):
		return errx.E(op, errx.Conflict, fmt.Errorf("%w: %w", links.ErrDuplicateCode, err))

	default:
		return errx.E(op, errx.Storage, err)
	}
}

const createLink = `INSERT INTO links (code, target_url, created_at) VALUES (?, ?, ?)`

func (s *Store) Create(ctx context.Context, code, targetURL string) (links.Link, error) {
	const op = "store.sqlite.Create"

	createdAt := s.now().UTC()
	if _, err := s.db.ExecContext(ctx, createLink, code, targetURL, formatTime(createdAt)); err != nil {
		return links.Link{}, mapStoreError(op, err)
	}

	return links.Link{
		Code:      code,
		TargetURL: targetURL,
		CreatedAt: createdAt,
	}, nil
}

const getLink = `SELECT code, target_url, total_clicks, last_clicked, created_at FROM links WHERE code = ?`

func (s *Store) Get(ctx context.Context, code string) (links.Link, error) {
	const op = "store.sqlite.Get"

	var row linkRow
	if err := s.db.GetContext(ctx, &row, getLink, code); err != nil {
		return links.Link{}, mapStoreError(op, err)
	}

	link, err := toDomainLink(row)
	if err != nil {
		return links.Link{}, errx.E(op, errx.Storage, err)
	}
	return link, nil
}

const linkExists = `SELECT EXISTS (SELECT 1 FROM links WHERE code = ?)`

func (s *Store) Exists(ctx context.Context, code string) (bool, error) {
	const op = "store.sqlite.Exists"

	var exists bool
	if err := s.db.GetContext(ctx, &exists, linkExists, code); err != nil {
		return false, errx.E(op, errx.Storage, err)
	}
	return exists, nil
}

const listLinks = `SELECT code, target_url, total_clicks, last_clicked, created_at
FROM links
ORDER BY created_at DESC, code`

// List filters in Go: SQLite's lower() folds ASCII only, and the term is
// matched literally rather than as a LIKE pattern.
func (s *Store) List(ctx context.Context, search string) ([]links.Link, error) {
	const op = "store.sqlite.List"

	var rows []linkRow
	if err := s.db.SelectContext(ctx, &rows, listLinks); err != nil {
		return nil, errx.E(op, errx.Storage, err)
	}

	term := strings.ToLower(search)
	out := make([]links.Link, 0, len(rows))
	for _, row := range rows {
		if term != "" && !containsFold(row.Code, term) && !containsFold(row.TargetURL, term) {
			continue
		}
		link, err := toDomainLink(row)
		if err != nil {
			return nil, errx.E(op, errx.Storage, err)
		}
		out = append(out, link)
	}
	return out, nil
}

func containsFold(s, lowerTerm string) bool {
	return strings.Contains(strings.ToLower(s), lowerTerm)
}

const deleteLink = `DELETE FROM links WHERE code = ?`

func (s *Store) Delete(ctx context.Context, code string) error {
	const op = "store.sqlite.Delete"

	res, err := s.db.ExecContext(ctx, deleteLink, code)
	if err != nil {
		return errx.E(op, errx.Storage, err)
	}
	return requireRow(op, res)
}

const recordClick = `UPDATE links
SET total_clicks = total_clicks + 1,
    last_clicked = ?
WHERE code = ?`

// RecordClick increments the counter in a single UPDATE, so concurrent clicks
// on the same code are never lost.
func (s *Store) RecordClick(ctx context.Context, code string) error {
	const op = "store.sqlite.RecordClick"

	res, err := s.db.ExecContext(ctx, recordClick, formatTime(s.now()), code)
	if err != nil {
		return errx.E(op, errx.Storage, err)
	}
	return requireRow(op, res)
}

func requireRow(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errx.E(op, errx.Storage, err)
	}
	if n == 0 {
		return errx.E(op, errx.NotFound, links.ErrNotFound)
	}
	return nil
}
