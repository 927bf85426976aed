package backend

import (
	"database/sql"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/openmdb/mediadb"
)

// The synchronizer mirrors a directory tree into the database. Scans
// run in two passes: images and NFO files first, so that media files
// added in the second pass can resolve references to them.

var blacklistedExtensions = map[string]struct{}{
	".srt": {},
	".sub": {},
	".idx": {},
}

type scanFile struct {
	path  string
	mtime int64
}

// scanPass classifies a file: 1 for images and NFO files, 2 for
// everything else, 0 for files that are never stored.
func scanPass(path string) int {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := blacklistedExtensions[ext]; ok {
		return 0
	}
	if ext == ".nfo" {
		return 1
	}
	if mt := mime.TypeByExtension(ext); strings.HasPrefix(mt, "image/") {
		return 1
	}
	return 2
}

// scanDirectory walks dir recursively, skipping dot entries, and
// returns the regular files of each pass.
func (b *Backend) scanDirectory(dir string) (pass1, pass2 []scanFile, err error) {
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			b.log.Warn().Err(err).Str("path", path).Msg("Skipping unreadable entry")
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		f := scanFile{path: path, mtime: info.ModTime().Unix()}
		switch scanPass(path) {
		case 1:
			pass1 = append(pass1, f)
		case 2:
			pass2 = append(pass2, f)
		}
		return nil
	})
	return pass1, pass2, err
}

// passTables lists the object tables holding scanned files of a pass.
func passTables(pass int) []*objTable {
	var tabs []*objTable
	for i := range objTables {
		tab := &objTables[i]
		if tab.pass != pass {
			continue
		}
		if tab.col(mediadb.FieldScanDirID) == nil {
			continue
		}
		if tab.col(mediadb.FieldURI) == nil && tab.srcCol(mediadb.FieldURI) == nil {
			continue
		}
		tabs = append(tabs, tab)
	}
	return tabs
}

// filesDB returns the stored files of one scan directory for a pass,
// keyed by URI.
func (b *Backend) filesDB(q dbtx, pass int, scanDirID int64) (map[string]fileRef, error) {
	files := make(map[string]fileRef)

	for _, tab := range passTables(pass) {
		rows, err := q.Query(fmt.Sprintf(
			"SELECT URI, DBID, MTIME FROM %s WHERE ScanDirID = ?", tab.name), scanDirID)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var (
				uri   string
				id    int64
				mtime sql.NullInt64
			)
			if err = rows.Scan(&uri, &id, &mtime); err != nil {
				rows.Close()
				return nil, err
			}
			files[uri] = fileRef{ID: id, Type: tab.id, URI: uri, MTime: mtime.Int64}
		}
		rows.Close()
		if err = rows.Err(); err != nil {
			return nil, err
		}
	}
	return files, nil
}

// addFiles loads and stores scanned files. Multi-track files
// (playlists, disc images) are skipped.
func (b *Backend) addFiles(q dbtx, files []scanFile, scanDirID int64) error {
	for _, f := range files {
		if strings.ToLower(filepath.Ext(f.path)) == ".nfo" {
			m := mediadb.Dict{
				mediadb.FieldClass: mediadb.ClassNFO,
				mediadb.FieldURI:   f.path,
				mediadb.FieldMTime: f.mtime,
			}
			if _, err := b.addObject(q, &mediadb.Track{Meta: m}, scanDirID, -1); err != nil {
				return err
			}
			continue
		}

		tracks, err := b.loader.Load(f.path)
		if err != nil {
			b.log.Warn().Err(err).Str("path", f.path).Msg("Skipping unreadable file")
			continue
		}
		if len(tracks) != 1 {
			continue
		}

		track := tracks[0]
		if track.Class() == "" {
			continue
		}
		if src := track.Source(0); src != nil && !src.Has(mediadb.FieldMTime) {
			src.Set(mediadb.FieldMTime, f.mtime)
		}

		if _, err = b.addObject(q, track, scanDirID, -1); err != nil {
			return err
		}
	}
	return nil
}

// syncDirectory reconciles one directory against the database inside a
// transaction: objects whose file is gone are deleted, changed files
// are deleted and re-added, new files are added.
func (b *Backend) syncDirectory(q dbtx, dir string) error {
	pass1, pass2, err := b.scanDirectory(dir)
	if err != nil {
		return err
	}

	scanDirID, err := b.store.stringToID(q, "scandirs", "ID", "PATH", dir)
	if err != nil {
		return err
	}

	passes := [][]scanFile{pass1, pass2}

	if scanDirID >= 0 {
		for pass := 0; pass < 2; pass++ {
			dbFiles, err := b.filesDB(q, pass+1, scanDirID)
			if err != nil {
				return err
			}

			var keep []scanFile
			for _, f := range passes[pass] {
				ref, ok := dbFiles[f.path]
				if !ok {
					keep = append(keep, f)
					continue
				}
				delete(dbFiles, f.path)
				if f.mtime > ref.MTime {
					// stale, re-add below
					if err = b.deleteObject(q, ref.ID, ref.Type, delAll); err != nil {
						return err
					}
					keep = append(keep, f)
				}
			}
			passes[pass] = keep

			for _, ref := range dbFiles {
				if err = b.deleteObject(q, ref.ID, ref.Type, delAll); err != nil {
					return err
				}
			}
		}
	} else {
		if scanDirID, err = b.store.stringToIDAdd(q, "scandirs", "ID", "PATH", dir); err != nil {
			return err
		}
	}

	for pass := 0; pass < 2; pass++ {
		if err = b.addFiles(q, passes[pass], scanDirID); err != nil {
			return err
		}
	}
	return nil
}

// AddDirectory scans a directory into the database, registering it as
// a scan directory if it is new.
func (b *Backend) AddDirectory(dir string) error {
	dir = filepath.Clean(dir)

	b.syncing = true
	defer func() { b.syncing = false }()

	b.log.Info().Str("dir", dir).Msg("Scanning directory")

	err := b.store.withTx(func(tx *sql.Tx) error {
		return b.syncDirectory(tx, dir)
	})
	if err != nil {
		return fmt.Errorf("sync %s: %w", dir, err)
	}
	return b.updateRootContainers()
}

// DeleteDirectory removes a scan directory and every object found
// below it.
func (b *Backend) DeleteDirectory(dir string) error {
	dir = filepath.Clean(dir)

	b.syncing = true
	defer func() { b.syncing = false }()

	b.log.Info().Str("dir", dir).Msg("Removing directory")

	err := b.store.withTx(func(tx *sql.Tx) error {
		scanDirID, err := b.store.stringToID(tx, "scandirs", "ID", "PATH", dir)
		if err != nil {
			return err
		}
		if scanDirID < 0 {
			return nil
		}

		for pass := 1; pass <= 2; pass++ {
			files, err := b.filesDB(tx, pass, scanDirID)
			if err != nil {
				return err
			}
			for _, ref := range files {
				if err = b.deleteObject(tx, ref.ID, ref.Type, delAll); err != nil {
					return err
				}
			}
		}

		_, err = tx.Exec(`DELETE FROM scandirs WHERE ID = ?`, scanDirID)
		return err
	})
	if err != nil {
		return fmt.Errorf("remove %s: %w", dir, err)
	}
	return b.updateRootContainers()
}

// Directories lists the registered scan directories.
func (b *Backend) Directories() ([]string, error) {
	return b.store.getStrings(b.store.DB, `SELECT PATH FROM scandirs ORDER BY ID`)
}

// Rescan re-synchronizes every registered scan directory.
func (b *Backend) Rescan() error {
	dirs, err := b.Directories()
	if err != nil {
		return err
	}

	for _, dir := range dirs {
		if err = b.AddDirectory(dir); err != nil {
			return err
		}
	}
	return nil
}
