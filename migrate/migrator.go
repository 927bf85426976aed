// Package migrate applies versioned schema migrations per component.
// Applied versions are recorded in a schema_migration table so a
// database can be upgraded in place.
package migrate

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"modernc.org/sqlite"
)

// A Migration is one schema step of a component. Statements run inside
// a single transaction together with the version bookkeeping.
type Migration struct {
	Version    int
	Name       string
	Statements []string
}

type Migrator struct {
	db *sql.DB
}

func New(db *sql.DB) (*Migrator, error) {
	if _, ok := db.Driver().(*sqlite.Driver); !ok {
		return nil, errors.New("database instance is not using the sqlite driver")
	}

	m := &Migrator{db: db}

	if err := m.verify(); err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	return m, nil
}

// Migrate applies the component's migrations that have not run yet, in
// version order.
func (m *Migrator) Migrate(component string, migrations []Migration) error {
	if len(migrations) == 0 {
		return nil
	}

	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})

	versions, err := m.versions(component)
	if err != nil {
		return fmt.Errorf("versions: %v: %w", component, err)
	}

	for _, mg := range sorted {
		if _, exists := versions[mg.Version]; exists {
			continue
		}

		if err := m.exec(component, mg); err != nil {
			return fmt.Errorf("migrate: %v.%d: %w", component, mg.Version, err)
		}
	}

	return nil
}

// Version returns the highest applied version of a component, 0 when
// none ran yet.
func (m *Migrator) Version(component string) (int, error) {
	versions, err := m.versions(component)
	if err != nil {
		return 0, err
	}

	version := 0
	for v := range versions {
		if v > version {
			version = v
		}
	}
	return version, nil
}

func (m *Migrator) verify() error {
	if _, err := m.db.Exec(sqlSchema); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}

func (m *Migrator) versions(component string) (map[int]bool, error) {
	rows, err := m.db.Query(sqlVersions, component)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	versions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		versions[version] = true
	}

	return versions, rows.Err()
}

func (m *Migrator) exec(component string, migration Migration) (err error) {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	// commit - rollback
	defer func(tx *sql.Tx) {
		if err != nil {
			if errRb := tx.Rollback(); errRb != nil {
				err = fmt.Errorf("rollback: %v: %w", errRb, err)
			}
			return
		}

		if errCm := tx.Commit(); errCm != nil {
			err = fmt.Errorf("commit: %w", errCm)
		}
	}(tx)

	for _, stmt := range migration.Statements {
		if _, err = tx.Exec(stmt); err != nil {
			return fmt.Errorf("exec: %w", err)
		}
	}

	if _, err = tx.Exec(sqlInsertVersion, component, migration.Version); err != nil {
		return fmt.Errorf("schema_migration: %w", err)
	}

	return nil
}

const (
	sqlSchema        = `CREATE TABLE IF NOT EXISTS schema_migration (component VARCHAR(255) NOT NULL, version INTEGER NOT NULL, PRIMARY KEY (component, version))`
	sqlVersions      = `SELECT version FROM schema_migration WHERE component = ?`
	sqlInsertVersion = `INSERT INTO schema_migration (component, version) VALUES (?, ?)`
)
