package postgres

import (
	"embed"
	"errors"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/sundayezeilo/tinylink/internal/errx"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationURL rewrites a postgres:// or postgresql:// URL to the pgx5://
// scheme golang-migrate registers for pgx v5.
func MigrationURL(databaseURL string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if rest, ok := strings.CutPrefix(databaseURL, prefix); ok {
			return "pgx5://" + rest
		}
	}
	return databaseURL
}

// Migrate applies every pending up migration. It is a no-op when the schema
// is current.
func Migrate(databaseURL string) error {
	const op = "store.postgres.Migrate"

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errx.E(op, errx.Internal, err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, MigrationURL(databaseURL))
	if err != nil {
		return errx.E(op, errx.Storage, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errx.E(op, errx.Storage, err)
	}
	return nil
}
