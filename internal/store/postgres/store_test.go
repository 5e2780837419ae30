package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sundayezeilo/tinylink/internal/errx"
	"github.com/sundayezeilo/tinylink/internal/links"
)

/***************
 * Mocks / Stubs
 ***************/

type mockQueries struct {
	createLinkFunc  func(ctx context.Context, arg CreateLinkParams) (LinkRow, error)
	getLinkFunc     func(ctx context.Context, code string) (LinkRow, error)
	linkExistsFunc  func(ctx context.Context, code string) (bool, error)
	listLinksFunc   func(ctx context.Context, search string) ([]LinkRow, error)
	deleteLinkFunc  func(ctx context.Context, code string) (int64, error)
	recordClickFunc func(ctx context.Context, code string) (int64, error)
}

func (m *mockQueries) CreateLink(ctx context.Context, arg CreateLinkParams) (LinkRow, error) {
	if m.createLinkFunc != nil {
		return m.createLinkFunc(ctx, arg)
	}
	return LinkRow{}, nil
}

func (m *mockQueries) GetLink(ctx context.Context, code string) (LinkRow, error) {
	if m.getLinkFunc != nil {
		return m.getLinkFunc(ctx, code)
	}
	return LinkRow{}, nil
}

func (m *mockQueries) LinkExists(ctx context.Context, code string) (bool, error) {
	if m.linkExistsFunc != nil {
		return m.linkExistsFunc(ctx, code)
	}
	return false, nil
}

func (m *mockQueries) ListLinks(ctx context.Context, search string) ([]LinkRow, error) {
	if m.listLinksFunc != nil {
		return m.listLinksFunc(ctx, search)
	}
	return nil, nil
}

func (m *mockQueries) DeleteLink(ctx context.Context, code string) (int64, error) {
	if m.deleteLinkFunc != nil {
		return m.deleteLinkFunc(ctx, code)
	}
	return 1, nil
}

func (m *mockQueries) RecordClick(ctx context.Context, code string) (int64, error) {
	if m.recordClickFunc != nil {
		return m.recordClickFunc(ctx, code)
	}
	return 1, nil
}

/***************
 * Helpers
 ***************/

func validTS(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func makeRow(now time.Time) LinkRow {
	return LinkRow{
		Code:      "abc123",
		TargetUrl: "https://example.com",
		CreatedAt: validTS(now),
	}
}

/***************
 * Unit tests: helpers
 ***************/

func TestMustTime(t *testing.T) {
	now := time.Now()
	got, err := mustTime(validTS(now), "created_at")
	if err != nil {
		t.Fatalf("mustTime() unexpected error: %v", err)
	}
	if !got.Equal(now) {
		t.Errorf("mustTime() = %v, want %v", got, now)
	}

	_, err = mustTime(pgtype.Timestamptz{}, "created_at")
	if err == nil || err.Error() != "created_at unexpectedly NULL" {
		t.Errorf("mustTime(NULL) error = %v", err)
	}
}

func TestTimePtr(t *testing.T) {
	if got := timePtr(pgtype.Timestamptz{}); got != nil {
		t.Errorf("timePtr(NULL) = %v, want nil", got)
	}

	now := time.Now()
	got := timePtr(validTS(now))
	if got == nil || !got.Equal(now) {
		t.Errorf("timePtr() = %v, want %v", got, now)
	}
}

func TestToDomainLink(t *testing.T) {
	t.Run("copies every field", func(t *testing.T) {
		now := time.Now()
		row := makeRow(now)
		row.TotalClicks = 7
		row.LastClicked = validTS(now.Add(time.Minute))

		got, err := toDomainLink(row)
		if err != nil {
			t.Fatalf("toDomainLink() unexpected error: %v", err)
		}
		if got.Code != "abc123" || got.TargetURL != "https://example.com" {
			t.Errorf("toDomainLink() = %+v", got)
		}
		if got.TotalClicks != 7 {
			t.Errorf("TotalClicks = %d, want 7", got.TotalClicks)
		}
		if got.LastClicked == nil || !got.LastClicked.Equal(now.Add(time.Minute)) {
			t.Errorf("LastClicked = %v", got.LastClicked)
		}
		if !got.CreatedAt.Equal(now) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, now)
		}
	})

	t.Run("never clicked leaves LastClicked nil", func(t *testing.T) {
		got, err := toDomainLink(makeRow(time.Now()))
		if err != nil {
			t.Fatalf("toDomainLink() unexpected error: %v", err)
		}
		if got.LastClicked != nil {
			t.Errorf("LastClicked = %v, want nil", got.LastClicked)
		}
	})

	t.Run("NULL created_at is an error", func(t *testing.T) {
		row := makeRow(time.Now())
		row.CreatedAt = pgtype.Timestamptz{}
		if _, err := toDomainLink(row); err == nil {
			t.Fatal("toDomainLink() expected error, got nil")
		}
	})
}

func TestMapStoreError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind errx.Kind
		wantIs   error
	}{
		{"no rows", pgx.ErrNoRows, errx.NotFound, links.ErrNotFound},
		{"primary key violation", &pgconn.PgError{Code: "23505", ConstraintName: "links_pkey"}, errx.Conflict, links.ErrDuplicateCode},
		{"other unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "something_else"}, errx.Storage, nil},
		{"check violation", &pgconn.PgError{Code: "23514", ConstraintName: "links_code_format"}, errx.Storage, nil},
		{"connection error", errors.New("connection refused"), errx.Storage, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapStoreError("test.op", tt.err)
			if got := errx.KindOf(err); got != tt.wantKind {
				t.Errorf("KindOf() = %v, want %v", got, tt.wantKind)
			}
			if errx.OpOf(err) != "test.op" {
				t.Errorf("OpOf() = %q, want %q", errx.OpOf(err), "test.op")
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantIs)
			}
		})
	}
}

func TestMigrationURL(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@localhost:5432/db?sslmode=disable":   "pgx5://u:p@localhost:5432/db?sslmode=disable",
		"postgresql://u:p@localhost:5432/db?sslmode=disable": "pgx5://u:p@localhost:5432/db?sslmode=disable",
		"pgx5://u:p@localhost/db":                            "pgx5://u:p@localhost/db",
	}
	for in, want := range tests {
		if got := MigrationURL(in); got != want {
			t.Errorf("MigrationURL(%q) = %q, want %q", in, got, want)
		}
	}
}

/***************
 * Unit tests: store methods
 ***************/

func TestStoreCreate(t *testing.T) {
	t.Run("passes code and url through", func(t *testing.T) {
		now := time.Now()
		mock := &mockQueries{
			createLinkFunc: func(_ context.Context, arg CreateLinkParams) (LinkRow, error) {
				if arg.Code != "abc123" || arg.TargetUrl != "https://example.com" {
					t.Errorf("CreateLink() params = %+v", arg)
				}
				return makeRow(now), nil
			},
		}

		got, err := New(mock).Create(context.Background(), "abc123", "https://example.com")
		if err != nil {
			t.Fatalf("Create() unexpected error: %v", err)
		}
		if got.Code != "abc123" || got.TotalClicks != 0 || got.LastClicked != nil {
			t.Errorf("Create() = %+v", got)
		}
	})

	t.Run("duplicate code is a Conflict", func(t *testing.T) {
		mock := &mockQueries{
			createLinkFunc: func(context.Context, CreateLinkParams) (LinkRow, error) {
				return LinkRow{}, &pgconn.PgError{Code: "23505", ConstraintName: "links_pkey"}
			},
		}

		_, err := New(mock).Create(context.Background(), "abc123", "https://example.com")
		if !errx.Is(err, errx.Conflict) {
			t.Fatalf("KindOf() = %v, want Conflict", errx.KindOf(err))
		}
		if !errors.Is(err, links.ErrDuplicateCode) {
			t.Error("expected ErrDuplicateCode in chain")
		}
		if errx.OpOf(err) != "store.postgres.Create" {
			t.Errorf("OpOf() = %q", errx.OpOf(err))
		}
	})

	t.Run("NULL created_at is a Storage error", func(t *testing.T) {
		mock := &mockQueries{
			createLinkFunc: func(context.Context, CreateLinkParams) (LinkRow, error) {
				return LinkRow{Code: "abc123"}, nil
			},
		}

		_, err := New(mock).Create(context.Background(), "abc123", "https://example.com")
		if !errx.Is(err, errx.Storage) {
			t.Errorf("KindOf() = %v, want Storage", errx.KindOf(err))
		}
	})
}

func TestStoreGet(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock := &mockQueries{
			getLinkFunc: func(_ context.Context, code string) (LinkRow, error) {
				row := makeRow(time.Now())
				row.Code = code
				return row, nil
			},
		}
		got, err := New(mock).Get(context.Background(), "xyz789")
		if err != nil {
			t.Fatalf("Get() unexpected error: %v", err)
		}
		if got.Code != "xyz789" {
			t.Errorf("Code = %q, want %q", got.Code, "xyz789")
		}
	})

	t.Run("missing is NotFound", func(t *testing.T) {
		mock := &mockQueries{
			getLinkFunc: func(context.Context, string) (LinkRow, error) {
				return LinkRow{}, pgx.ErrNoRows
			},
		}
		_, err := New(mock).Get(context.Background(), "xyz789")
		if !errx.Is(err, errx.NotFound) {
			t.Errorf("KindOf() = %v, want NotFound", errx.KindOf(err))
		}
	})
}

func TestStoreExists(t *testing.T) {
	mock := &mockQueries{
		linkExistsFunc: func(_ context.Context, code string) (bool, error) {
			return code == "taken1", nil
		},
	}
	s := New(mock)

	ok, err := s.Exists(context.Background(), "taken1")
	if err != nil || !ok {
		t.Errorf("Exists(taken1) = %v, %v; want true, nil", ok, err)
	}
	ok, err = s.Exists(context.Background(), "free01")
	if err != nil || ok {
		t.Errorf("Exists(free01) = %v, %v; want false, nil", ok, err)
	}

	mock.linkExistsFunc = func(context.Context, string) (bool, error) {
		return false, errors.New("timeout")
	}
	if _, err := s.Exists(context.Background(), "taken1"); !errx.Is(err, errx.Storage) {
		t.Errorf("KindOf() = %v, want Storage", errx.KindOf(err))
	}
}

func TestStoreList(t *testing.T) {
	t.Run("empty result is an empty slice", func(t *testing.T) {
		got, err := New(&mockQueries{}).List(context.Background(), "")
		if err != nil {
			t.Fatalf("List() unexpected error: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("List() = %#v, want empty non-nil slice", got)
		}
	})

	t.Run("passes search and keeps order", func(t *testing.T) {
		now := time.Now()
		mock := &mockQueries{
			listLinksFunc: func(_ context.Context, search string) ([]LinkRow, error) {
				if search != "doc" {
					t.Errorf("search = %q, want %q", search, "doc")
				}
				a, b := makeRow(now), makeRow(now.Add(-time.Hour))
				a.Code, b.Code = "newer1", "older1"
				return []LinkRow{a, b}, nil
			},
		}

		got, err := New(mock).List(context.Background(), "doc")
		if err != nil {
			t.Fatalf("List() unexpected error: %v", err)
		}
		if len(got) != 2 || got[0].Code != "newer1" || got[1].Code != "older1" {
			t.Errorf("List() = %+v", got)
		}
	})
}

func TestStoreDelete(t *testing.T) {
	tests := []struct {
		name     string
		rows     int64
		err      error
		wantKind errx.Kind
	}{
		{"deleted", 1, nil, errx.Unknown},
		{"missing", 0, nil, errx.NotFound},
		{"driver error", 0, errors.New("boom"), errx.Storage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockQueries{
				deleteLinkFunc: func(context.Context, string) (int64, error) { return tt.rows, tt.err },
			}
			err := New(mock).Delete(context.Background(), "abc123")
			if tt.wantKind == errx.Unknown {
				if err != nil {
					t.Fatalf("Delete() unexpected error: %v", err)
				}
				return
			}
			if got := errx.KindOf(err); got != tt.wantKind {
				t.Errorf("KindOf() = %v, want %v", got, tt.wantKind)
			}
		})
	}
}

func TestStoreRecordClick(t *testing.T) {
	tests := []struct {
		name     string
		rows     int64
		err      error
		wantKind errx.Kind
	}{
		{"incremented", 1, nil, errx.Unknown},
		{"missing", 0, nil, errx.NotFound},
		{"driver error", 0, errors.New("boom"), errx.Storage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockQueries{
				recordClickFunc: func(context.Context, string) (int64, error) { return tt.rows, tt.err },
			}
			err := New(mock).RecordClick(context.Background(), "abc123")
			if tt.wantKind == errx.Unknown {
				if err != nil {
					t.Fatalf("RecordClick() unexpected error: %v", err)
				}
				return
			}
			if got := errx.KindOf(err); got != tt.wantKind {
				t.Errorf("KindOf() = %v, want %v", got, tt.wantKind)
			}
		})
	}
}
