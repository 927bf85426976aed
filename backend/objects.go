package backend

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/openmdb/mediadb"
)

// Deletion cascade flags.
const (
	delRelated  = 1 << 0 // delete objects referencing a deleted image/NFO
	delChildren = 1 << 1 // delete child objects
	delParent   = 1 << 2 // shrink or delete the parent container
)

const delAll = delRelated | delChildren | delParent

func (b *Backend) createObject(q dbtx, typ typeID) (int64, error) {
	id, err := b.store.maxID(q, "objects", mediadb.FieldDBID)
	if err != nil {
		return -1, err
	}
	id++

	if _, err = q.Exec(`INSERT INTO objects (DBID, TYPE) VALUES (?, ?)`, id, int(typ)); err != nil {
		return -1, err
	}

	b.numAdded++

	return id, nil
}

func (b *Backend) objectType(q dbtx, id int64) (typeID, error) {
	var t int64
	err := q.QueryRow(`SELECT TYPE FROM objects WHERE DBID = ?`, id).Scan(&t)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, mediadb.ErrNotFound
	case err != nil:
		return 0, err
	}
	return typeID(t), nil
}

func (b *Backend) setImageType(q dbtx, imageID int64, imgType int) error {
	_, err := q.Exec(`UPDATE images SET IMAGETYPE = ? WHERE DBID = ?`, imgType, imageID)
	return err
}

// columnValue converts a metadata field into the value stored in its
// column, resolving lookup-table columns to their integer key. ok is
// false when the field is absent.
func (b *Backend) columnValue(q dbtx, c *column, d mediadb.Dict) (any, bool, error) {
	if !d.Has(c.name) {
		return nil, false, nil
	}

	switch c.kind {
	case colInt:
		n, ok := d.Int(c.name)
		return n, ok, nil
	case colText:
		s := d.String(c.name)
		if c.idTable != "" {
			id, err := b.store.stringToIDAdd(q, c.idTable, "ID", "NAME", s)
			if err != nil {
				return nil, false, err
			}
			return id, true, nil
		}
		return s, true, nil
	}
	return nil, false, nil
}

func (b *Backend) insertObject(q dbtx, tab *objTable, meta, src mediadb.Dict) error {
	var (
		names        []string
		placeholders []string
		args         []any
	)

	add := func(d mediadb.Dict, cs []column) error {
		for i := range cs {
			val, ok, err := b.columnValue(q, &cs[i], d)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			names = append(names, fmt.Sprintf("%q", cs[i].name))
			placeholders = append(placeholders, "?")
			args = append(args, val)
		}
		return nil
	}

	if err := add(meta, tab.cols); err != nil {
		return err
	}
	if tab.srcCols != nil {
		if err := add(src, tab.srcCols); err != nil {
			return err
		}
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		tab.name, strings.Join(names, ", "), strings.Join(placeholders, ", "))

	_, err := q.Exec(query, args...)
	return err
}

func (b *Backend) appendArray(q dbtx, arr *arrayField, meta mediadb.Dict, objID int64) error {
	values := meta.Strings(arr.field)
	if len(values) == 0 {
		return nil
	}

	rowID, err := b.store.maxID(q, arr.arrTable, "ID")
	if err != nil {
		return err
	}

	for _, v := range values {
		nameID, err := b.store.stringToIDAdd(q, arr.idTable, "ID", "NAME", v)
		if err != nil {
			return err
		}

		rowID++
		_, err = q.Exec(fmt.Sprintf("INSERT INTO %s (ID, OBJ_ID, NAME_ID) VALUES (?, ?, ?)", arr.arrTable),
			rowID, objID, nameID)
		if err != nil {
			return err
		}
	}
	return nil
}

// addObject stores a track. A negative objID allocates a new object;
// containers created implicitly (albums, shows, seasons, movies) pass
// their pre-allocated id instead. Single-part movies are stored as a
// movie part below a self-parenting movie row.
func (b *Backend) addObject(q dbtx, track *mediadb.Track, scanDirID, objID int64) (int64, error) {
	m := track.Meta

	class := m.String(mediadb.FieldClass)
	if class == "" {
		return -1, fmt.Errorf("add object: no class")
	}

	b.log.Debug().
		Str("label", m.String(mediadb.FieldTitle)).
		Str("class", class).
		Msg("Adding object")

	if class == mediadb.ClassMovie && objID < 0 {
		class = mediadb.ClassMoviePart
		m.Set(mediadb.FieldClass, class)
	}

	typ := typeForClass(class)
	tab := tableForType(typ)
	if tab == nil {
		return -1, fmt.Errorf("add object: unknown class %q", class)
	}

	if tab.col(mediadb.FieldDate) != nil && m.String(mediadb.FieldDate) == "" {
		m.Set(mediadb.FieldDate, mediadb.DateUndefined)
	}
	if tab.col(mediadb.FieldImageType) != nil && !m.Has(mediadb.FieldImageType) {
		m.Set(mediadb.FieldImageType, int64(imageTypeImage))
	}

	// Parent container
	switch typ {
	case typeSong:
		parent, err := b.addChildAlbum(q, track)
		if err != nil {
			return -1, err
		}
		m.Set(mediadb.FieldParentID, parent)
	case typeTVEpisode:
		parent, err := b.addChildSeason(q, track)
		if err != nil {
			return -1, err
		}
		m.Set(mediadb.FieldParentID, parent)
	case typeMoviePart:
		parent, err := b.addMoviePart(q, track)
		if err != nil {
			return -1, err
		}
		m.Set(mediadb.FieldParentID, parent)
	}

	// Resolve references to previously scanned images and NFO files.
	if err := b.resolveRef(q, tab, m, mediadb.FieldPosterID, mediadb.FieldPosterURL, imageTypePoster); err != nil {
		return -1, err
	}
	if err := b.resolveRef(q, tab, m, mediadb.FieldWallpaperID, mediadb.FieldWallpaperURL, imageTypeWallpaper); err != nil {
		return -1, err
	}
	if err := b.resolveRef(q, tab, m, mediadb.FieldCoverID, mediadb.FieldCoverURL, imageTypeCover); err != nil {
		return -1, err
	}
	if tab.col(mediadb.FieldNFOID) != nil {
		if uri := m.String(mediadb.FieldNFOFile); uri != "" {
			id, err := b.store.stringToID(q, "nfos", mediadb.FieldDBID, mediadb.FieldURI, uri)
			if err != nil {
				return -1, err
			}
			m.Set(mediadb.FieldNFOID, id)
		} else {
			m.Set(mediadb.FieldNFOID, int64(-1))
		}
	}

	if tab.array(mediadb.FieldCountry) != nil && len(m.Strings(mediadb.FieldCountry)) == 0 {
		m.Set(mediadb.FieldCountry, "Unknown")
	}

	if scanDirID >= 0 {
		m.Set(mediadb.FieldScanDirID, scanDirID)
	}

	if objID < 0 {
		var err error
		if objID, err = b.createObject(q, typ); err != nil {
			return -1, err
		}
	}

	// A movie row is its own parent; its parts point at it.
	if class == mediadb.ClassMovie {
		m.Set(mediadb.FieldParentID, objID)
	}

	m.Set(mediadb.FieldDBID, objID)

	if err := b.insertObject(q, tab, m, track.Source(0)); err != nil {
		return -1, err
	}

	for i := range tab.arrays {
		if err := b.appendArray(q, &tab.arrays[i], m, objID); err != nil {
			return -1, err
		}
	}

	return objID, nil
}

// resolveRef binds an image reference (by URI) to its images-table row
// and marks the image with its role.
func (b *Backend) resolveRef(q dbtx, tab *objTable, m mediadb.Dict, idField, uriField string, imgType int) error {
	if tab.col(idField) == nil {
		return nil
	}

	uri := m.String(uriField)
	if uri == "" {
		m.Set(idField, int64(-1))
		return nil
	}

	id, err := b.store.stringToID(q, "images", mediadb.FieldDBID, mediadb.FieldURI, uri)
	if err != nil {
		return err
	}
	m.Set(idField, id)

	if id >= 0 {
		return b.setImageType(q, id, imgType)
	}
	return nil
}

// updateObject writes back the scalar columns of a previously queried
// object row.
func (b *Backend) updateObject(q dbtx, tab *objTable, m mediadb.Dict) error {
	id, ok := m.Int(mediadb.FieldDBID)
	if !ok {
		return fmt.Errorf("update %s: no id", tab.name)
	}

	var (
		sets []string
		args []any
	)

	for i := range tab.cols {
		c := &tab.cols[i]
		if c.name == mediadb.FieldDBID {
			continue
		}
		val, present, err := b.columnValue(q, c, m)
		if err != nil {
			return err
		}
		if !present {
			continue
		}
		sets = append(sets, fmt.Sprintf("%q = ?", c.name))
		args = append(args, val)
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	_, err := q.Exec(fmt.Sprintf("UPDATE %s SET %s WHERE DBID = ?", tab.name, strings.Join(sets, ", ")), args...)
	return err
}

// queryColumns reads selected columns of one row into a Dict, decoding
// lookup-table columns back to strings.
func (b *Backend) queryColumns(q dbtx, tab *objTable, names []string, where string, args ...any) (mediadb.Dict, error) {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}

	row := q.QueryRow(fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(quoted, ", "), tab.name, where), args...)

	vals := make([]sql.NullString, len(names))
	ptrs := make([]any, len(names))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	err := row.Scan(ptrs...)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, mediadb.ErrNotFound
	case err != nil:
		return nil, err
	}

	m := mediadb.Dict{}
	for i, name := range names {
		c := tab.col(name)
		if c == nil {
			c = tab.srcCol(name)
		}
		if c == nil || !vals[i].Valid {
			continue
		}
		if err := b.setDictValue(q, m, c, vals[i].String); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (b *Backend) setDictValue(q dbtx, m mediadb.Dict, c *column, raw string) error {
	switch {
	case c.idTable != "" && c.kind == colText:
		var id int64
		fmt.Sscanf(raw, "%d", &id)
		name, err := b.store.idToString(q, c.idTable, "NAME", "ID", id)
		if err != nil {
			return err
		}
		m.Set(c.name, name)
	case c.kind == colInt:
		var n int64
		fmt.Sscanf(raw, "%d", &n)
		m.Set(c.name, n)
	default:
		m.Set(c.name, raw)
	}
	return nil
}

func colNames(cs []column) []string {
	names := make([]string, len(cs))
	for i := range cs {
		names[i] = cs[i].name
	}
	return names
}

// queryObject loads a full object: its row, per-source fields, array
// fields with parallel id arrays, image URLs, album name and movie
// parts. typ < 0 resolves the type through the objects table.
func (b *Backend) queryObject(q dbtx, id int64, typ typeID) (*mediadb.Track, error) {
	if typ <= 0 {
		var err error
		if typ, err = b.objectType(q, id); err != nil {
			return nil, err
		}
	}

	tab := tableForType(typ)
	if tab == nil {
		return nil, mediadb.ErrNotFound
	}

	names := colNames(tab.cols)
	names = append(names, colNames(tab.srcCols)...)

	all, err := b.queryColumns(q, tab, names, "DBID = ?", id)
	if err != nil {
		return nil, err
	}

	track := &mediadb.Track{Meta: mediadb.Dict{}}
	for _, c := range tab.cols {
		if all.Has(c.name) {
			track.Meta.Set(c.name, all[c.name])
		}
	}
	if tab.srcCols != nil {
		src := mediadb.Dict{}
		for _, c := range tab.srcCols {
			if all.Has(c.name) {
				src.Set(c.name, all[c.name])
			}
		}
		track.Src = append(track.Src, src)
	}

	m := track.Meta

	// Array fields, ordered by insertion.
	for i := range tab.arrays {
		arr := &tab.arrays[i]
		query := fmt.Sprintf(
			"SELECT %[1]s.NAME, %[1]s.ID FROM %[2]s INNER JOIN %[1]s ON %[1]s.ID = %[2]s.NAME_ID "+
				"WHERE %[2]s.OBJ_ID = ? ORDER BY %[2]s.ID", arr.idTable, arr.arrTable)

		rows, err := q.Query(query, id)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var name string
			var nameID int64
			if err = rows.Scan(&name, &nameID); err != nil {
				rows.Close()
				return nil, err
			}
			m.Append(arr.field, name)
			m.Append(arr.field+mediadb.IDSuffix, fmt.Sprintf("%d", nameID))
		}
		rows.Close()
		if err = rows.Err(); err != nil {
			return nil, err
		}
	}

	if err = b.queryImages(q, m); err != nil {
		return nil, err
	}

	// Album name for songs
	if parent, ok := m.Int(mediadb.FieldParentID); ok && parent > 0 && typ == typeSong {
		album, err := b.store.idToString(q, "albums", mediadb.FieldTitle, mediadb.FieldDBID, parent)
		if err != nil {
			return nil, err
		}
		if album != "" {
			m.Set(mediadb.FieldAlbum, album)
		}
	}

	if typ == typeMovie {
		if err = b.queryMovieParts(q, track, id); err != nil {
			return nil, err
		}
		m.Set(mediadb.FieldClass, mediadb.ClassMovie)
	} else {
		m.Set(mediadb.FieldClass, classForType(typ))
	}

	return track, nil
}

// queryImages replaces cover/poster/wallpaper ids with the source
// dictionaries of the referenced image objects.
func (b *Backend) queryImages(q dbtx, m mediadb.Dict) error {
	refs := []struct {
		idField  string
		uriField string
	}{
		{mediadb.FieldCoverID, mediadb.FieldCoverURL},
		{mediadb.FieldPosterID, mediadb.FieldPosterURL},
		{mediadb.FieldWallpaperID, mediadb.FieldWallpaperURL},
	}

	tab := tableForType(typeImage)

	for _, ref := range refs {
		id, ok := m.Int(ref.idField)
		if !ok || id <= 0 {
			continue
		}

		img, err := b.queryColumns(q, tab, colNames(tab.srcCols), "DBID = ?", id)
		switch {
		case errors.Is(err, mediadb.ErrNotFound):
			continue
		case err != nil:
			return err
		}

		m.Set(ref.uriField, img)
	}
	return nil
}

func (b *Backend) queryMovieParts(q dbtx, track *mediadb.Track, id int64) error {
	// The mimetype lookup is joined in: a nested query while the part
	// cursor is open would starve the single database connection.
	rows, err := q.Query(`
SELECT p.APPROX_DURATION, p.URI, m.NAME, p.MTIME
FROM movie_parts p LEFT JOIN movie_mimetypes m ON m.ID = p.MIMETYPE
WHERE p.ParentID = ? ORDER BY p.IDX`, id)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			duration sql.NullInt64
			uri      sql.NullString
			mimetype sql.NullString
			mtime    sql.NullInt64
		)
		if err = rows.Scan(&duration, &uri, &mimetype, &mtime); err != nil {
			return err
		}

		track.Src = append(track.Src, mediadb.Dict{
			mediadb.FieldURI:      uri.String,
			mediadb.FieldMimetype: mimetype.String,
			mediadb.FieldMTime:    mtime.Int64,
			mediadb.FieldDuration: duration.Int64,
		})
	}
	return rows.Err()
}

// fileRef identifies an object during deletion cascades and directory
// reconciliation.
type fileRef struct {
	ID    int64
	Type  typeID
	URI   string
	MTime int64
}

// relatedRefs finds objects in all tables whose given column points at
// id (poster, wallpaper, cover or NFO references).
func (b *Backend) relatedRefs(q dbtx, field string, id int64) ([]fileRef, error) {
	var refs []fileRef

	for i := range objTables {
		tab := &objTables[i]
		if tab.col(field) == nil {
			continue
		}

		query := fmt.Sprintf("SELECT DBID FROM %s WHERE %q = ?", tab.name, field)
		ids, err := b.store.getInts(q, query, id)
		if err != nil {
			return nil, err
		}
		for _, objID := range ids {
			refs = append(refs, fileRef{ID: objID, Type: tab.id})
		}
	}
	return refs, nil
}

func (b *Backend) childRefs(q dbtx, typ typeID, parent int64) ([]fileRef, error) {
	tab := tableForType(typ)

	ids, err := b.store.getInts(q, fmt.Sprintf("SELECT DBID FROM %s WHERE ParentID = ?", tab.name), parent)
	if err != nil {
		return nil, err
	}

	refs := make([]fileRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, fileRef{ID: id, Type: typ})
	}
	return refs, nil
}

func (b *Backend) deleteRefs(q dbtx, refs []fileRef, flags int) error {
	for _, ref := range refs {
		if err := b.deleteObject(q, ref.ID, ref.Type, flags); err != nil {
			return err
		}
	}
	return nil
}

// deleteObject removes an object and, depending on flags, cascades to
// related objects, children and the parent container. A parent whose
// child count or duration drops to zero is deleted as well.
func (b *Backend) deleteObject(q dbtx, id int64, typ typeID, flags int) error {
	b.log.Debug().Int64("id", id).Msg("Deleting object")

	var (
		parentType typeID
		childType  typeID
	)

	switch typ {
	case typeSong:
		parentType = typeAlbum
	case typeTVSeason:
		parentType = typeTVShow
		childType = typeTVEpisode
	case typeTVEpisode:
		parentType = typeTVSeason
	case typeMoviePart:
		parentType = typeMovie
	case typeAlbum:
		childType = typeSong
	case typeTVShow:
		childType = typeTVSeason
	case typeMovie:
		childType = typeMoviePart
	case typeImage:
		if flags&delRelated != 0 {
			for _, field := range []string{mediadb.FieldPosterID, mediadb.FieldWallpaperID, mediadb.FieldCoverID} {
				refs, err := b.relatedRefs(q, field, id)
				if err != nil {
					return err
				}
				if err = b.deleteRefs(q, refs, flags); err != nil {
					return err
				}
			}
		}
	case typeNFO:
		if flags&delRelated != 0 {
			refs, err := b.relatedRefs(q, mediadb.FieldNFOID, id)
			if err != nil {
				return err
			}
			if err = b.deleteRefs(q, refs, flags); err != nil {
				return err
			}
		}
	}

	if flags&delChildren != 0 && childType > 0 {
		refs, err := b.childRefs(q, childType, id)
		if err != nil {
			return err
		}
		if err = b.deleteRefs(q, refs, flags&^delParent); err != nil {
			return err
		}
	}

	if flags&delParent != 0 && parentType > 0 {
		if err := b.shrinkParent(q, id, typ, parentType, flags); err != nil {
			return err
		}
	}

	tab := tableForType(typ)
	if tab != nil {
		if _, err := q.Exec(fmt.Sprintf("DELETE FROM %s WHERE DBID = ?", tab.name), id); err != nil {
			return err
		}

		for i := range tab.arrays {
			arr := &tab.arrays[i]
			if _, err := q.Exec(fmt.Sprintf("DELETE FROM %s WHERE OBJ_ID = ?", arr.arrTable), id); err != nil {
				return err
			}
			// Drop names no entry references anymore
			if _, err := q.Exec(fmt.Sprintf(
				"DELETE FROM %s WHERE ID NOT IN (SELECT DISTINCT NAME_ID FROM %s)",
				arr.idTable, arr.arrTable)); err != nil {
				return err
			}
		}
	}

	if _, err := q.Exec(`DELETE FROM objects WHERE DBID = ?`, id); err != nil {
		return err
	}

	b.numRemoved++

	return nil
}

func (b *Backend) shrinkParent(q dbtx, id int64, typ, parentType typeID, flags int) error {
	tab := tableForType(typ)

	obj, err := b.queryColumns(q, tab,
		[]string{mediadb.FieldDBID, mediadb.FieldDuration, mediadb.FieldParentID}, "DBID = ?", id)
	switch {
	case errors.Is(err, mediadb.ErrNotFound):
		return nil
	case err != nil:
		return err
	}

	parentID, ok := obj.Int(mediadb.FieldParentID)
	if !ok || parentID <= 0 || parentID == id {
		return nil
	}

	parentTab := tableForType(parentType)

	var names []string
	switch parentType {
	case typeMovie:
		names = []string{mediadb.FieldDBID, mediadb.FieldDuration}
	case typeTVShow:
		names = []string{mediadb.FieldDBID, mediadb.FieldNumChildren}
	default:
		names = []string{mediadb.FieldDBID, mediadb.FieldDuration, mediadb.FieldNumChildren}
	}

	parent, err := b.queryColumns(q, parentTab, names, "DBID = ?", parentID)
	switch {
	case errors.Is(err, mediadb.ErrNotFound):
		return nil
	case err != nil:
		return err
	}

	if parentDuration, ok := parent.Int(mediadb.FieldDuration); ok {
		duration, _ := obj.Int(mediadb.FieldDuration)
		parentDuration -= duration
		if parentDuration <= 0 {
			return b.deleteObject(q, parentID, parentType, flags)
		}
		parent.Set(mediadb.FieldDuration, parentDuration)
	}

	if num, ok := parent.Int(mediadb.FieldNumChildren); ok && num > 0 {
		num--
		if num <= 0 {
			return b.deleteObject(q, parentID, parentType, 0)
		}
		parent.Set(mediadb.FieldNumChildren, num)
	}

	return b.updateObject(q, parentTab, parent)
}
