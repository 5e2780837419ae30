package sqlite

import (
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/sundayezeilo/tinylink/internal/errx"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies every pending up migration on the store's database.
func (s *Store) Migrate() error {
	const op = "store.sqlite.Migrate"

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errx.E(op, errx.Internal, err)
	}

	driver, err := migratesqlite.WithInstance(s.db.DB, &migratesqlite.Config{})
	if err != nil {
		return errx.E(op, errx.Storage, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return errx.E(op, errx.Storage, err)
	}
	// m.Close would close s.db along with the driver, so only the source is released.
	defer src.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errx.E(op, errx.Storage, err)
	}
	return nil
}
