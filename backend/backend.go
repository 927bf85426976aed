// Package backend implements the SQLite media database: a schema
// materialized from a table registry, object storage with implicitly
// maintained containers, a filesystem synchronizer and a hierarchical
// facet browser.
package backend

import (
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/openmdb/mediadb"
)

// DatabaseFile is the name of the SQLite file inside the backend
// directory.
const DatabaseFile = "db.sqlite"

// A rootContainer is one of the fixed top-level browse entries. It is
// visible while its backing table has rows.
type rootContainer struct {
	id          string
	label       string
	class       string
	table       string
	numChildren int64
}

var rootContainers = []rootContainer{
	{id: "/songs", label: "Songs", class: mediadb.ClassRootSongs, table: "songs", numChildren: 5},
	{id: "/albums", label: "Albums", class: mediadb.ClassRootAlbums, table: "albums", numChildren: 4},
	{id: "/series", label: "Series", class: mediadb.ClassRootSeries, table: "shows", numChildren: 2},
	{id: "/movies", label: "Movies", class: mediadb.ClassRootMovies, table: "movies", numChildren: 7},
}

func rootByID(id string) *rootContainer {
	for i := range rootContainers {
		if rootContainers[i].id == id {
			return &rootContainers[i]
		}
	}
	return nil
}

// Backend is the SQLite media database backend. It is not safe for
// concurrent use; the dispatcher serializes access.
type Backend struct {
	store  *datastore
	log    zerolog.Logger
	loader mediadb.MediaLoader
	sink   mediadb.EventSink

	// ids of the root containers currently visible
	roots []string

	// set while a structural change runs; stamped on emitted events
	syncing bool

	numAdded   int64
	numRemoved int64
}

// New opens (or creates) the database below dir and returns the
// backend. sink may be nil when no events are wanted.
func New(dir string, loader mediadb.MediaLoader, sink mediadb.EventSink, log zerolog.Logger) (*Backend, error) {
	store, err := newDatastore(filepath.Join(dir, DatabaseFile))
	if err != nil {
		return nil, err
	}

	b := &Backend{
		store:  store,
		log:    log.With().Str("component", "backend").Logger(),
		loader: loader,
		sink:   sink,
	}

	ok, err := store.hasSchema()
	if err != nil {
		store.Close()
		return nil, err
	}
	if !ok {
		b.log.Info().Msg("Creating database")
	}
	if err = store.createSchema(); err != nil {
		store.Close()
		return nil, err
	}

	if b.roots, err = b.visibleRoots(); err != nil {
		store.Close()
		return nil, err
	}

	return b, nil
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.store.Close()
}

func (b *Backend) emit(ev mediadb.Event) {
	if b.sink != nil {
		ev.Syncing = b.syncing
		b.sink(ev)
	}
}

func (b *Backend) reply(sink mediadb.EventSink, ev mediadb.Event) {
	if sink != nil {
		ev.Syncing = b.syncing
		sink(ev)
		return
	}
	b.emit(ev)
}

// Stats reports the number of stored objects per root table, together
// with the add/remove counters of this session.
func (b *Backend) Stats() (map[string]int64, error) {
	stats := map[string]int64{
		"added":   b.numAdded,
		"removed": b.numRemoved,
	}
	for i := range rootContainers {
		r := &rootContainers[i]
		count, err := b.store.getInt(b.store.DB, "SELECT COUNT(DBID) FROM "+r.table)
		if err != nil {
			return nil, err
		}
		stats[r.table] = count
	}
	return stats, nil
}

func (b *Backend) visibleRoots() ([]string, error) {
	var roots []string
	for i := range rootContainers {
		r := &rootContainers[i]
		count, err := b.store.getInt(b.store.DB, "SELECT COUNT(DBID) FROM "+r.table)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			roots = append(roots, r.id)
		}
	}
	return roots, nil
}

func (r *rootContainer) dict() mediadb.Dict {
	return mediadb.Dict{
		mediadb.FieldID:          r.id,
		mediadb.FieldLabel:       r.label,
		mediadb.FieldClass:       r.class,
		mediadb.FieldChildClass:  mediadb.ClassContainer,
		mediadb.FieldNumChildren: r.numChildren,
	}
}

// updateRootContainers recomputes which root containers are visible
// and emits add/delete events for the difference.
func (b *Backend) updateRootContainers() error {
	roots, err := b.visibleRoots()
	if err != nil {
		return err
	}

	has := func(list []string, id string) bool {
		for _, v := range list {
			if v == id {
				return true
			}
		}
		return false
	}

	for _, id := range roots {
		if !has(b.roots, id) {
			b.emit(mediadb.Event{
				Verb:    mediadb.EvObjectsAdded,
				Path:    "/",
				Objects: []mediadb.Dict{rootByID(id).dict()},
			})
		}
	}
	for _, id := range b.roots {
		if !has(roots, id) {
			b.emit(mediadb.Event{
				Verb: mediadb.EvObjectsDeleted,
				Path: id,
			})
		}
	}

	b.roots = roots
	return nil
}
