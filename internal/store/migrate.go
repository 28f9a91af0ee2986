package store

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/matheus3301/gchat/internal/store/migrations"
)

// ErrDirtySchema means an earlier migration failed halfway. The cache holds
// nothing that cannot be refetched, so deleting gchat.db is the fix.
var ErrDirtySchema = errors.New("cache schema is dirty")

// MigrateResult describes what happened during migration.
type MigrateResult struct {
	From    uint
	Version uint
	Dirty   bool
	Changed bool
	// Applied names the migrations run by this call, e.g. "0002_uploads".
	Applied []string
}

// Migrate brings gchat.db up to the latest schema.
func (db *DB) Migrate() (*MigrateResult, error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("migration instance: %w", err)
	}

	from, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		from = 0
	case err != nil:
		return nil, fmt.Errorf("migration version: %w", err)
	case dirty:
		return nil, fmt.Errorf("%w at version %d", ErrDirtySchema, from)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return nil, fmt.Errorf("migration up from %d: %w", from, err)
	}

	to, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return nil, fmt.Errorf("migration version: %w", err)
	}
	applied, err := migrationsBetween(migrations.FS, from, to)
	if err != nil {
		return nil, err
	}
	return &MigrateResult{
		From:    from,
		Version: to,
		Dirty:   dirty,
		Changed: to != from,
		Applied: applied,
	}, nil
}

// migrationsBetween lists the up migrations with from < version <= to, in
// order.
func migrationsBetween(fsys fs.FS, from, to uint) ([]string, error) {
	files, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, err
	}
	type entry struct {
		version uint64
		name    string
	}
	var picked []entry
	for _, f := range files {
		name := strings.TrimSuffix(f, ".up.sql")
		prefix, _, _ := strings.Cut(name, "_")
		v, err := strconv.ParseUint(prefix, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("migration %s: bad version prefix", f)
		}
		if v > uint64(from) && v <= uint64(to) {
			picked = append(picked, entry{v, name})
		}
	}
	sort.Slice(picked, func(i, j int) bool { return picked[i].version < picked[j].version })
	names := make([]string, len(picked))
	for i, e := range picked {
		names[i] = e.name
	}
	return names, nil
}
