package backend

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/openmdb/mediadb"
	"github.com/openmdb/mediadb/migrate"

	// sqlite driver
	sqlite "modernc.org/sqlite"
)

// dbtx is satisfied by *sql.DB and *sql.Tx, so object operations can
// run standalone or inside a directory-sync transaction.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

type datastore struct {
	*sql.DB
}

var registerCollation sync.Once

func newDatastore(path string) (*datastore, error) {
	registerCollation.Do(func() {
		// Localized ordering for browse results. The collation name is
		// referenced by the ORDER BY clauses below.
		c := collate.New(language.Und, collate.Loose)
		_ = sqlite.RegisterCollationUtf8("strcoll", func(a, b string) int {
			return c.CompareString(a, b)
		})
	})

	db, err := sql.Open("sqlite", mediadb.DSN(path, url.Values{
		"cache":         []string{"shared"},
		"mode":          []string{"rwc"},
		"_busy_timeout": []string{"5000"},
	}))
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	store := &datastore{db}

	return store, nil
}

const sqlHasSchema = `
SELECT COUNT(name) FROM sqlite_master WHERE type = 'table' AND name = 'objects'
`

func (store *datastore) hasSchema() (bool, error) {
	var n int64
	if err := store.QueryRow(sqlHasSchema).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (store *datastore) createSchema() error {
	m, err := migrate.New(store.DB)
	if err != nil {
		return fmt.Errorf("create schema: %s: %w", err, mediadb.ErrFatal)
	}

	migrations := []migrate.Migration{
		{Version: 1, Name: "initial", Statements: schemaStatements()},
	}

	if err = m.Migrate("backend", migrations); err != nil {
		return fmt.Errorf("create schema: %s: %w", err, mediadb.ErrFatal)
	}
	return nil
}

// maxID returns the highest value of col in table, or 0 for an empty
// table. New ids are allocated as maxID+1.
func (store *datastore) maxID(q dbtx, table, col string) (int64, error) {
	var id sql.NullInt64
	err := q.QueryRow(fmt.Sprintf("SELECT MAX(%q) FROM %s", col, table)).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id.Int64, nil
}

// stringToID resolves value in a lookup table, returning -1 when it is
// not present.
func (store *datastore) stringToID(q dbtx, table, idCol, nameCol, value string) (int64, error) {
	var id int64
	err := q.QueryRow(fmt.Sprintf("SELECT %q FROM %s WHERE %q = ?", idCol, table, nameCol), value).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return -1, nil
	case err != nil:
		return -1, err
	}
	return id, nil
}

// stringToIDAdd resolves value in a lookup table, inserting it first
// when it is not present yet.
func (store *datastore) stringToIDAdd(q dbtx, table, idCol, nameCol, value string) (int64, error) {
	id, err := store.stringToID(q, table, idCol, nameCol, value)
	if err != nil || id >= 0 {
		return id, err
	}

	id, err = store.maxID(q, table, idCol)
	if err != nil {
		return -1, err
	}
	id++

	_, err = q.Exec(fmt.Sprintf("INSERT INTO %s (%q, %q) VALUES (?, ?)", table, idCol, nameCol), id, value)
	if err != nil {
		return -1, err
	}
	return id, nil
}

// idToString is the reverse lookup; it returns "" for unknown ids.
func (store *datastore) idToString(q dbtx, table, nameCol, idCol string, id int64) (string, error) {
	var name sql.NullString
	err := q.QueryRow(fmt.Sprintf("SELECT %q FROM %s WHERE %q = ?", nameCol, table, idCol), id).Scan(&name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", nil
	case err != nil:
		return "", err
	}
	return name.String, nil
}

func (store *datastore) getInt(q dbtx, query string, args ...any) (int64, error) {
	var n sql.NullInt64
	err := q.QueryRow(query, args...).Scan(&n)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, nil
	case err != nil:
		return 0, err
	}
	return n.Int64, nil
}

func (store *datastore) getStrings(q dbtx, query string, args ...any) ([]string, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []string
	for rows.Next() {
		var s sql.NullString
		if err = rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s.String)
	}

	return out, rows.Err()
}

func (store *datastore) getInts(q dbtx, query string, args ...any) ([]int64, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []int64
	for rows.Next() {
		var n int64
		if err = rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}

	return out, rows.Err()
}

// withTx runs fn inside a transaction, rolling back on error.
func (store *datastore) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := store.Begin()
	if err != nil {
		return err
	}

	if err = fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			panic(rollbackErr)
		}

		return err
	}

	return tx.Commit()
}
