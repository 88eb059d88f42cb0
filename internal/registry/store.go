package registry

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/jsdx761/nexus/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a sqlite-backed registry.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore opens the sqlite database at path. Call MigrateUp before use.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening registry store: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring registry store: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// MigrateUp applies every pending schema migration.
func (s *Store) MigrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the current schema version. A fresh database
// reports version 0.
func (s *Store) MigrateVersion() (version uint, dirty bool, err error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading migration version: %w", err)
	}
	return version, dirty, nil
}

// newMigrate builds a migrate instance over the embedded migrations. It is
// not closed since that would close the shared database handle.
func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	return m, nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (migrateLogger) Verbose() bool { return false }

// ImportCSV upserts the rows of a registry CSV in one transaction and
// returns how many were imported.
func (s *Store) ImportCSV(r io.Reader) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO aircraft (transponder, manufacturer, icao_description, owner)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(transponder) DO UPDATE SET
			manufacturer = excluded.manufacturer,
			icao_description = excluded.icao_description,
			owner = excluded.owner,
			imported_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, fmt.Errorf("preparing import: %w", err)
	}
	defer stmt.Close()

	n := 0
	err = ReadCSV(r, func(e Entry) error {
		if _, err := stmt.Exec(e.Transponder, e.Manufacturer, e.ICAODescription, e.Owner); err != nil {
			return fmt.Errorf("importing %s: %w", e.Transponder, err)
		}
		n++
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing import: %w", err)
	}
	return n, nil
}

// Lookup implements Lookup.
func (s *Store) Lookup(transponder string) (Entry, bool) {
	e := Entry{Transponder: normalize(transponder)}
	err := s.db.QueryRow(
		`SELECT manufacturer, icao_description, owner FROM aircraft WHERE transponder = ?`,
		e.Transponder,
	).Scan(&e.Manufacturer, &e.ICAODescription, &e.Owner)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			monitoring.Logf("registry: lookup %s: %v", e.Transponder, err)
		}
		return Entry{}, false
	}
	return e, true
}

// Len implements Lookup.
func (s *Store) Len() int {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM aircraft`).Scan(&n); err != nil {
		monitoring.Logf("registry: count: %v", err)
		return 0
	}
	return n
}

// AttachAdminRoutes mounts a SQL browser over the store on the debug pages.
func (s *Store) AttachAdminRoutes(debug *tsweb.DebugHandler) error {
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+s.path, s.db, &tailsql.DBOptions{
		Label: "Aircraft registry",
	})
	debug.Handle("tailsql/", "Registry SQL browser", tsql.NewMux())
	return nil
}
