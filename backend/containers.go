package backend

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/openmdb/mediadb"
)

// Containers (albums, shows, seasons, movies) are created implicitly
// when their first child arrives and grow as further children are
// stored.

// addChildAlbum finds or creates the album a song belongs to and
// returns its id.
func (b *Backend) addChildAlbum(q dbtx, track *mediadb.Track) (int64, error) {
	m := track.Meta

	album := m.String(mediadb.FieldAlbum)
	artists := m.Strings(mediadb.FieldAlbumArtist)
	if album == "" || len(artists) == 0 {
		return -1, nil
	}

	artistID, err := b.store.stringToID(q, "album_artists", "ID", "NAME", artists[0])
	if err != nil {
		return -1, err
	}

	if artistID >= 0 {
		var (
			id       int64
			duration sql.NullInt64
			date     sql.NullString
			num      sql.NullInt64
		)
		err = q.QueryRow(`
SELECT DBID, APPROX_DURATION, DATE, NUM_CHILDREN FROM albums
WHERE DBID IN (SELECT OBJ_ID FROM album_artists_arr WHERE NAME_ID = ?) AND TITLE = ?`,
			artistID, album).Scan(&id, &duration, &date, &num)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// fall through to creation
		case err != nil:
			return -1, err
		default:
			upd := mediadb.Dict{
				mediadb.FieldDBID:        id,
				mediadb.FieldNumChildren: num.Int64 + 1,
			}
			// Albums spanning several years lose their date.
			if date.String != mediadb.DateUndefined && date.String != m.String(mediadb.FieldDate) {
				upd.Set(mediadb.FieldDate, mediadb.DateUndefined)
			}
			if songDuration, ok := m.Int(mediadb.FieldDuration); ok {
				upd.Set(mediadb.FieldDuration, duration.Int64+songDuration)
			}
			if err = b.updateObject(q, tableForType(typeAlbum), upd); err != nil {
				return -1, err
			}
			return id, nil
		}
	}

	cm := mediadb.Dict{
		mediadb.FieldClass:       mediadb.ClassAlbum,
		mediadb.FieldTitle:       album,
		mediadb.FieldSearchTitle: mediadb.SearchTitle(album),
		mediadb.FieldNumChildren: int64(1),
	}
	for _, a := range artists {
		cm.Append(mediadb.FieldArtist, a)
		cm.Append(mediadb.FieldAlbumArtist, a)
	}
	for _, g := range m.Strings(mediadb.FieldGenre) {
		cm.Append(mediadb.FieldGenre, g)
	}
	if date := m.String(mediadb.FieldDate); date != "" {
		cm.Set(mediadb.FieldDate, date)
	}
	if duration, ok := m.Int(mediadb.FieldDuration); ok {
		cm.Set(mediadb.FieldDuration, duration)
	}

	return b.createContainer(q, typeAlbum, cm)
}

// addChildShow finds or creates the show with the given title.
func (b *Backend) addChildShow(q dbtx, track *mediadb.Track, title string) (int64, error) {
	var (
		id  int64
		num sql.NullInt64
	)
	err := q.QueryRow(`SELECT DBID, NUM_CHILDREN FROM shows WHERE TITLE = ?`, title).Scan(&id, &num)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// fall through to creation
	case err != nil:
		return -1, err
	default:
		upd := mediadb.Dict{
			mediadb.FieldDBID:        id,
			mediadb.FieldNumChildren: num.Int64 + 1,
		}
		if err = b.updateObject(q, tableForType(typeTVShow), upd); err != nil {
			return -1, err
		}
		return id, nil
	}

	cm := mediadb.Dict{
		mediadb.FieldClass:       mediadb.ClassTVShow,
		mediadb.FieldTitle:       title,
		mediadb.FieldSearchTitle: mediadb.SearchTitle(title),
		mediadb.FieldNumChildren: int64(1),
	}
	for _, g := range track.Meta.Strings(mediadb.FieldGenre) {
		cm.Append(mediadb.FieldGenre, g)
	}

	return b.createContainer(q, typeTVShow, cm)
}

// addChildSeason finds or creates the season an episode belongs to,
// creating the show along the way if needed, and returns the season id.
func (b *Backend) addChildSeason(q dbtx, track *mediadb.Track) (int64, error) {
	m := track.Meta

	show := m.String(mediadb.FieldShow)
	season, haveSeason := m.Int(mediadb.FieldSeason)
	if show == "" || !haveSeason {
		return -1, nil
	}

	showID, err := b.store.stringToID(q, "shows", mediadb.FieldDBID, mediadb.FieldTitle, show)
	if err != nil {
		return -1, err
	}

	if showID >= 0 {
		var (
			id       int64
			duration sql.NullInt64
			date     sql.NullString
			num      sql.NullInt64
		)
		err = q.QueryRow(`
SELECT DBID, APPROX_DURATION, DATE, NUM_CHILDREN FROM seasons
WHERE ParentID = ? AND SEASON = ?`, showID, season).Scan(&id, &duration, &date, &num)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// fall through to creation
		case err != nil:
			return -1, err
		default:
			upd := mediadb.Dict{
				mediadb.FieldDBID:        id,
				mediadb.FieldNumChildren: num.Int64 + 1,
			}
			// Season date is the date of its earliest episode.
			if epDate := m.String(mediadb.FieldDate); epDate != "" && epDate < date.String {
				upd.Set(mediadb.FieldDate, epDate)
			}
			if epDuration, ok := m.Int(mediadb.FieldDuration); ok {
				upd.Set(mediadb.FieldDuration, duration.Int64+epDuration)
			}
			if err = b.updateObject(q, tableForType(typeTVSeason), upd); err != nil {
				return -1, err
			}
			return id, nil
		}
	}

	if showID < 0 {
		if showID, err = b.addChildShow(q, track, show); err != nil {
			return -1, err
		}
	}

	cm := mediadb.Dict{
		mediadb.FieldClass:       mediadb.ClassTVSeason,
		mediadb.FieldTitle:       fmt.Sprintf("Season %d", season),
		mediadb.FieldSeason:      season,
		mediadb.FieldParentID:    showID,
		mediadb.FieldNumChildren: int64(1),
	}
	if date := m.String(mediadb.FieldDate); date != "" {
		cm.Set(mediadb.FieldDate, date)
	}
	if duration, ok := m.Int(mediadb.FieldDuration); ok {
		cm.Set(mediadb.FieldDuration, duration)
	}

	return b.createContainer(q, typeTVSeason, cm)
}

// addMoviePart finds or creates the movie a part belongs to. A new
// movie copies the part's metadata minus its source fields.
func (b *Backend) addMoviePart(q dbtx, track *mediadb.Track) (int64, error) {
	m := track.Meta

	title := m.String(mediadb.FieldTitle)
	date := m.String(mediadb.FieldDate)

	var (
		id       int64
		duration sql.NullInt64
	)
	err := q.QueryRow(`SELECT DBID, APPROX_DURATION FROM movies WHERE TITLE = ? AND DATE = ?`,
		title, date).Scan(&id, &duration)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// fall through to creation
	case err != nil:
		return -1, err
	default:
		upd := mediadb.Dict{mediadb.FieldDBID: id}
		if partDuration, ok := m.Int(mediadb.FieldDuration); ok {
			upd.Set(mediadb.FieldDuration, duration.Int64+partDuration)
		}
		if err = b.updateObject(q, tableForType(typeMovie), upd); err != nil {
			return -1, err
		}
		return id, nil
	}

	cm := m.Clone()
	tab := tableForType(typeMoviePart)
	for i := range tab.srcCols {
		cm.Delete(tab.srcCols[i].name)
	}
	cm.Delete(mediadb.FieldScanDirID)
	cm.Set(mediadb.FieldClass, mediadb.ClassMovie)

	movieID, err := b.createObject(q, typeMovie)
	if err != nil {
		return -1, err
	}

	if _, err = b.addObject(q, &mediadb.Track{Meta: cm}, -1, movieID); err != nil {
		return -1, err
	}
	return movieID, nil
}

func (b *Backend) createContainer(q dbtx, typ typeID, m mediadb.Dict) (int64, error) {
	id, err := b.createObject(q, typ)
	if err != nil {
		return -1, err
	}
	if _, err = b.addObject(q, &mediadb.Track{Meta: m}, -1, id); err != nil {
		return -1, err
	}
	return id, nil
}
