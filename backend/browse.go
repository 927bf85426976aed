package backend

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/openmdb/mediadb"
)

// The browser exposes the database as a virtual tree. Below each root
// container a fixed set of facets fans out into groups, lookup-table
// containers and finally media objects; a path like
// "/songs/artist/f/12/804" addresses one song. Child lists are ordered
// the way a UI presents them, using the strcoll collation for titles.

type facet struct {
	id    string
	label string
}

var (
	songFacets = []facet{
		{"artist", "Artist"},
		{"genre", "Genre"},
		{"genre-artist", "Genre-Artist"},
		{"genre-year", "Genre-Year"},
		{"year", "Year"},
	}
	albumFacets = []facet{
		{"artist", "Artist"},
		{"genre-artist", "Genre-Artist"},
		{"genre-year", "Genre-Year"},
		{"year", "Year"},
	}
	movieFacets = []facet{
		{"all", "All"},
		{"actor", "Actor"},
		{"director", "Director"},
		{"genre", "Genre"},
		{"year", "Year"},
		{"country", "Country"},
		{"language", "Language"},
	}
	seriesFacets = []facet{
		{"all", "All"},
		{"genre", "Genre"},
	}
)

func facetLabel(facets []facet, id string) string {
	for _, f := range facets {
		if f.id == id {
			return f.label
		}
	}
	return ""
}

func facetIDs(facets []facet) []string {
	ids := make([]string, len(facets))
	for i, f := range facets {
		ids[i] = f.id
	}
	return ids
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func parseID(seg string) (int64, bool) {
	id, err := strconv.ParseInt(seg, 10, 64)
	return id, err == nil
}

func yearLabel(year string) string {
	if year == "9999" || year == "" {
		return "Unknown"
	}
	return year
}

func yearOf(date string) string {
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}

func intSegs(ids []int64) []string {
	segs := make([]string, len(ids))
	for i, id := range ids {
		segs[i] = strconv.FormatInt(id, 10)
	}
	return segs
}

// nonEmptyGroups buckets names alphabetically and returns the ids of
// the non-empty buckets.
func nonEmptyGroups(names []string) []string {
	var segs []string
	for _, g := range groups {
		if groupSize(names, g.id) > 0 {
			segs = append(segs, g.id)
		}
	}
	return segs
}

// childSegments returns the path segments of a container's children,
// in presentation order. Item paths yield an empty list.
func (b *Backend) childSegments(path string) ([]string, error) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return append([]string(nil), b.roots...), nil
	}

	rest := segs[1:]
	switch "/" + segs[0] {
	case "/songs":
		return b.songChildren(rest)
	case "/albums":
		return b.albumChildren(rest)
	case "/movies":
		return b.movieChildren(rest)
	case "/series":
		return b.seriesChildren(rest)
	}
	return nil, mediadb.ErrNotFound
}

func (b *Backend) songChildren(rest []string) ([]string, error) {
	q := b.store.DB

	if len(rest) == 0 {
		return facetIDs(songFacets), nil
	}

	switch rest[0] {
	case "artist":
		switch len(rest) {
		case 1:
			names, err := b.store.getStrings(q, `SELECT NAME FROM song_artists`)
			if err != nil {
				return nil, err
			}
			return nonEmptyGroups(names), nil
		case 2:
			cond := groupCondition(rest[1])
			if cond == "" {
				return nil, mediadb.ErrNotFound
			}
			ids, err := b.store.getInts(q,
				fmt.Sprintf("SELECT ID FROM song_artists WHERE NAME %s ORDER BY NAME", cond))
			if err != nil {
				return nil, err
			}
			return intSegs(ids), nil
		case 3:
			artistID, ok := parseID(rest[2])
			if !ok {
				return nil, mediadb.ErrNotFound
			}
			ids, err := b.store.getInts(q, `
SELECT songs.DBID FROM songs
INNER JOIN song_artists_arr ON songs.DBID = song_artists_arr.OBJ_ID
WHERE song_artists_arr.NAME_ID = ?
ORDER BY songs.SEARCH_TITLE COLLATE strcoll`, artistID)
			if err != nil {
				return nil, err
			}
			return intSegs(ids), nil
		case 4:
			return nil, nil
		}

	case "genre":
		switch len(rest) {
		case 1:
			ids, err := b.store.getInts(q, `SELECT ID FROM song_genres ORDER BY NAME`)
			if err != nil {
				return nil, err
			}
			return intSegs(ids), nil
		case 2:
			genreID, ok := parseID(rest[1])
			if !ok {
				return nil, mediadb.ErrNotFound
			}
			names, err := b.store.getStrings(q, `
SELECT songs.SEARCH_TITLE FROM songs
INNER JOIN song_genres_arr ON songs.DBID = song_genres_arr.OBJ_ID
WHERE song_genres_arr.NAME_ID = ?`, genreID)
			if err != nil {
				return nil, err
			}
			return nonEmptyGroups(names), nil
		case 3:
			genreID, ok := parseID(rest[1])
			cond := groupCondition(rest[2])
			if !ok || cond == "" {
				return nil, mediadb.ErrNotFound
			}
			ids, err := b.store.getInts(q, fmt.Sprintf(`
SELECT songs.DBID FROM songs
INNER JOIN song_genres_arr ON songs.DBID = song_genres_arr.OBJ_ID
WHERE song_genres_arr.NAME_ID = ? AND songs.SEARCH_TITLE %s
ORDER BY songs.SEARCH_TITLE COLLATE strcoll`, cond), genreID)
			if err != nil {
				return nil, err
			}
			return intSegs(ids), nil
		case 4:
			return nil, nil
		}

	case "genre-artist":
		switch len(rest) {
		case 1:
			ids, err := b.store.getInts(q, `SELECT ID FROM song_genres ORDER BY NAME`)
			if err != nil {
				return nil, err
			}
			return intSegs(ids), nil
		case 2:
			genreID, ok := parseID(rest[1])
			if !ok {
				return nil, mediadb.ErrNotFound
			}
			ids, err := b.store.getInts(q, `
SELECT ID FROM song_artists WHERE ID in
(SELECT DISTINCT song_artists_arr.NAME_ID FROM song_artists_arr
 INNER JOIN song_genres_arr ON song_artists_arr.OBJ_ID = song_genres_arr.OBJ_ID
 WHERE song_genres_arr.NAME_ID = ?)
ORDER BY NAME`, genreID)
			if err != nil {
				return nil, err
			}
			return intSegs(ids), nil
		case 3:
			genreID, ok1 := parseID(rest[1])
			artistID, ok2 := parseID(rest[2])
			if !ok1 || !ok2 {
				return nil, mediadb.ErrNotFound
			}
			ids, err := b.store.getInts(q, `
SELECT songs.DBID FROM songs
INNER JOIN song_artists_arr ON songs.DBID = song_artists_arr.OBJ_ID
INNER JOIN song_genres_arr ON songs.DBID = song_genres_arr.OBJ_ID
WHERE song_genres_arr.NAME_ID = ? AND song_artists_arr.NAME_ID = ?
ORDER BY songs.SEARCH_TITLE COLLATE strcoll`, genreID, artistID)
			if err != nil {
				return nil, err
			}
			return intSegs(ids), nil
		case 4:
			return nil, nil
		}

	case "genre-year":
		switch len(rest) {
		case 1:
			ids, err := b.store.getInts(q, `SELECT ID FROM song_genres ORDER BY NAME`)
			if err != nil {
				return nil, err
			}
			return intSegs(ids), nil
		case 2:
			genreID, ok := parseID(rest[1])
			if !ok {
				return nil, mediadb.ErrNotFound
			}
			return b.store.getStrings(q, `
SELECT DISTINCT substr(songs.DATE, 1, 4) FROM songs
INNER JOIN song_genres_arr ON songs.DBID = song_genres_arr.OBJ_ID
WHERE song_genres_arr.NAME_ID = ?
ORDER BY songs.DATE`, genreID)
		case 3:
			genreID, ok := parseID(rest[1])
			if !ok {
				return nil, mediadb.ErrNotFound
			}
			ids, err := b.store.getInts(q, `
SELECT songs.DBID FROM songs
INNER JOIN song_genres_arr ON songs.DBID = song_genres_arr.OBJ_ID
WHERE song_genres_arr.NAME_ID = ? AND songs.DATE GLOB ?
ORDER BY songs.SEARCH_TITLE COLLATE strcoll`, genreID, rest[2]+"*")
			if err != nil {
				return nil, err
			}
			return intSegs(ids), nil
		case 4:
			return nil, nil
		}

	case "year":
		switch len(rest) {
		case 1:
			return b.store.getStrings(q, `SELECT DISTINCT substr(DATE, 1, 4) FROM songs ORDER BY DATE`)
		case 2:
			ids, err := b.store.getInts(q, `
SELECT DBID FROM songs WHERE DATE GLOB ?
ORDER BY SEARCH_TITLE COLLATE strcoll`, rest[1]+"*")
			if err != nil {
				return nil, err
			}
			return intSegs(ids), nil
		case 3:
			return nil, nil
		}
	}

	return nil, mediadb.ErrNotFound
}

const albumOrder = `ORDER BY albums.DATE, albums.SEARCH_TITLE COLLATE strcoll`

// albumSongs lists an album's songs in track order; albums are one
// level deeper than songs in every facet.
func (b *Backend) albumSongs(albumID int64) ([]string, error) {
	ids, err := b.store.getInts(b.store.DB,
		`SELECT DBID FROM songs WHERE ParentID = ? ORDER BY TRACKNUMBER`, albumID)
	if err != nil {
		return nil, err
	}
	return intSegs(ids), nil
}

func (b *Backend) albumChildren(rest []string) ([]string, error) {
	q := b.store.DB

	if len(rest) == 0 {
		return facetIDs(albumFacets), nil
	}

	switch rest[0] {
	case "artist":
		switch len(rest) {
		case 1:
			names, err := b.store.getStrings(q, `SELECT NAME FROM album_artists`)
			if err != nil {
				return nil, err
			}
			return nonEmptyGroups(names), nil
		case 2:
			cond := groupCondition(rest[1])
			if cond == "" {
				return nil, mediadb.ErrNotFound
			}
			ids, err := b.store.getInts(q,
				fmt.Sprintf("SELECT ID FROM album_artists WHERE NAME %s ORDER BY NAME", cond))
			if err != nil {
				return nil, err
			}
			return intSegs(ids), nil
		case 3:
			artistID, ok := parseID(rest[2])
			if !ok {
				return nil, mediadb.ErrNotFound
			}
			ids, err := b.store.getInts(q, `
SELECT albums.DBID FROM albums
INNER JOIN album_artists_arr ON albums.DBID = album_artists_arr.OBJ_ID
WHERE album_artists_arr.NAME_ID = ?
`+albumOrder, artistID)
			if err != nil {
				return nil, err
			}
			return intSegs(ids), nil
		case 4:
			albumID, ok := parseID(rest[3])
			if !ok {
				return nil, mediadb.ErrNotFound
			}
			return b.albumSongs(albumID)
		case 5:
			return nil, nil
		}

	case "genre-artist":
		switch len(rest) {
		case 1:
			ids, err := b.store.getInts(q, `SELECT ID FROM album_genres ORDER BY NAME`)
			if err != nil {
				return nil, err
			}
			return intSegs(ids), nil
		case 2:
			genreID, ok := parseID(rest[1])
			if !ok {
				return nil, mediadb.ErrNotFound
			}
			ids, err := b.store.getInts(q, `
SELECT ID FROM album_artists WHERE ID in
(SELECT DISTINCT album_artists_arr.NAME_ID FROM album_artists_arr
 INNER JOIN album_genres_arr ON album_artists_arr.OBJ_ID = album_genres_arr.OBJ_ID
 WHERE album_genres_arr.NAME_ID = ?)
ORDER BY NAME`, genreID)
			if err != nil {
				return nil, err
			}
			return intSegs(ids), nil
		case 3:
			genreID, ok1 := parseID(rest[1])
			artistID, ok2 := parseID(rest[2])
			if !ok1 || !ok2 {
				return nil, mediadb.ErrNotFound
			}
			ids, err := b.store.getInts(q, `
SELECT albums.DBID FROM albums
INNER JOIN album_artists_arr ON albums.DBID = album_artists_arr.OBJ_ID
INNER JOIN album_genres_arr ON albums.DBID = album_genres_arr.OBJ_ID
WHERE album_genres_arr.NAME_ID = ? AND album_artists_arr.NAME_ID = ?
`+albumOrder, genreID, artistID)
			if err != nil {
				return nil, err
			}
			return intSegs(ids), nil
		case 4:
			albumID, ok := parseID(rest[3])
			if !ok {
				return nil, mediadb.ErrNotFound
			}
			return b.albumSongs(albumID)
		case 5:
			return nil, nil
		}

	case "genre-year":
		switch len(rest) {
		case 1:
			ids, err := b.store.getInts(q, `SELECT ID FROM album_genres ORDER BY NAME`)
			if err != nil {
				return nil, err
			}
			return intSegs(ids), nil
		case 2:
			genreID, ok := parseID(rest[1])
			if !ok {
				return nil, mediadb.ErrNotFound
			}
			return b.store.getStrings(q, `
SELECT DISTINCT substr(albums.DATE, 1, 4) FROM albums
INNER JOIN album_genres_arr ON albums.DBID = album_genres_arr.OBJ_ID
WHERE album_genres_arr.NAME_ID = ?
ORDER BY albums.DATE`, genreID)
		case 3:
			genreID, ok := parseID(rest[1])
			if !ok {
				return nil, mediadb.ErrNotFound
			}
			ids, err := b.store.getInts(q, `
SELECT albums.DBID FROM albums
INNER JOIN album_genres_arr ON albums.DBID = album_genres_arr.OBJ_ID
WHERE album_genres_arr.NAME_ID = ? AND albums.DATE GLOB ?
`+albumOrder, genreID, rest[2]+"*")
			if err != nil {
				return nil, err
			}
			return intSegs(ids), nil
		case 4:
			albumID, ok := parseID(rest[3])
			if !ok {
				return nil, mediadb.ErrNotFound
			}
			return b.albumSongs(albumID)
		case 5:
			return nil, nil
		}

	case "year":
		switch len(rest) {
		case 1:
			return b.store.getStrings(q, `SELECT DISTINCT substr(DATE, 1, 4) FROM albums ORDER BY DATE`)
		case 2:
			ids, err := b.store.getInts(q,
				`SELECT albums.DBID FROM albums WHERE DATE GLOB ? `+albumOrder, rest[1]+"*")
			if err != nil {
				return nil, err
			}
			return intSegs(ids), nil
		case 3:
			albumID, ok := parseID(rest[2])
			if !ok {
				return nil, mediadb.ErrNotFound
			}
			return b.albumSongs(albumID)
		case 4:
			return nil, nil
		}
	}

	return nil, mediadb.ErrNotFound
}

// personFacet handles the grouped actor/director facets: group
// buckets, then persons, then their movies in release order.
func (b *Backend) personFacet(rest []string, idTable, arrTable string) ([]string, error) {
	q := b.store.DB

	switch len(rest) {
	case 1:
		names, err := b.store.getStrings(q, "SELECT NAME FROM "+idTable)
		if err != nil {
			return nil, err
		}
		return nonEmptyGroups(names), nil
	case 2:
		cond := groupCondition(rest[1])
		if cond == "" {
			return nil, mediadb.ErrNotFound
		}
		ids, err := b.store.getInts(q,
			fmt.Sprintf("SELECT ID FROM %s WHERE NAME %s ORDER BY NAME", idTable, cond))
		if err != nil {
			return nil, err
		}
		return intSegs(ids), nil
	case 3:
		personID, ok := parseID(rest[2])
		if !ok {
			return nil, mediadb.ErrNotFound
		}
		ids, err := b.store.getInts(q, fmt.Sprintf(`
SELECT movies.DBID FROM movies
INNER JOIN %[1]s ON movies.DBID = %[1]s.OBJ_ID
WHERE %[1]s.NAME_ID = ?
ORDER BY movies.DATE`, arrTable), personID)
		if err != nil {
			return nil, err
		}
		return intSegs(ids), nil
	case 4:
		return nil, nil
	}
	return nil, mediadb.ErrNotFound
}

// nameFacet handles flat lookup-table facets (genre, country,
// language): all names, then their movies.
func (b *Backend) nameFacet(rest []string, idTable, arrTable, order string) ([]string, error) {
	q := b.store.DB

	switch len(rest) {
	case 1:
		ids, err := b.store.getInts(q, fmt.Sprintf("SELECT ID FROM %s ORDER BY NAME", idTable))
		if err != nil {
			return nil, err
		}
		return intSegs(ids), nil
	case 2:
		nameID, ok := parseID(rest[1])
		if !ok {
			return nil, mediadb.ErrNotFound
		}
		ids, err := b.store.getInts(q, fmt.Sprintf(`
SELECT movies.DBID FROM movies
INNER JOIN %[1]s ON movies.DBID = %[1]s.OBJ_ID
WHERE %[1]s.NAME_ID = ?
%[2]s`, arrTable, order), nameID)
		if err != nil {
			return nil, err
		}
		return intSegs(ids), nil
	case 3:
		return nil, nil
	}
	return nil, mediadb.ErrNotFound
}

func (b *Backend) movieChildren(rest []string) ([]string, error) {
	q := b.store.DB

	if len(rest) == 0 {
		return facetIDs(movieFacets), nil
	}

	switch rest[0] {
	case "all":
		switch len(rest) {
		case 1:
			ids, err := b.store.getInts(q, `SELECT DBID FROM movies ORDER BY SEARCH_TITLE COLLATE strcoll`)
			if err != nil {
				return nil, err
			}
			return intSegs(ids), nil
		case 2:
			return nil, nil
		}

	case "actor":
		return b.personFacet(rest, "movie_actors", "movie_actors_arr")

	case "director":
		return b.personFacet(rest, "movie_directors", "movie_directors_arr")

	case "genre":
		return b.nameFacet(rest, "movie_genres", "movie_genres_arr",
			`ORDER BY movies.SEARCH_TITLE COLLATE strcoll`)

	case "country":
		return b.nameFacet(rest, "movie_countries", "movie_countries_arr",
			`ORDER BY movies.SEARCH_TITLE`)

	case "language":
		return b.nameFacet(rest, "movie_audio_languages", "movie_audio_languages_arr",
			`ORDER BY movies.SEARCH_TITLE COLLATE strcoll`)

	case "year":
		switch len(rest) {
		case 1:
			return b.store.getStrings(q, `SELECT DISTINCT substr(DATE, 1, 4) FROM movies ORDER BY DATE`)
		case 2:
			ids, err := b.store.getInts(q, `
SELECT DBID FROM movies WHERE substr(DATE, 1, 4) = ?
ORDER BY SEARCH_TITLE COLLATE strcoll`, rest[1])
			if err != nil {
				return nil, err
			}
			return intSegs(ids), nil
		case 3:
			return nil, nil
		}
	}

	return nil, mediadb.ErrNotFound
}

// showChildren handles a show subtree: the show's seasons plus a
// synthetic "all" entry, then episodes.
func (b *Backend) showChildren(rest []string) ([]string, error) {
	q := b.store.DB

	showID, ok := parseID(rest[0])
	if !ok {
		return nil, mediadb.ErrNotFound
	}

	switch len(rest) {
	case 1:
		ids, err := b.store.getInts(q, `SELECT DBID FROM seasons WHERE ParentID = ? ORDER BY SEASON`, showID)
		if err != nil {
			return nil, err
		}
		return append(intSegs(ids), "all"), nil
	case 2:
		if rest[1] == "all" {
			ids, err := b.store.getInts(q, `
SELECT DBID FROM episodes
WHERE ParentID in (SELECT DBID FROM seasons WHERE ParentID = ?)
ORDER BY SEARCH_TITLE COLLATE strcoll`, showID)
			if err != nil {
				return nil, err
			}
			return intSegs(ids), nil
		}
		seasonID, ok := parseID(rest[1])
		if !ok {
			return nil, mediadb.ErrNotFound
		}
		ids, err := b.store.getInts(q,
			`SELECT DBID FROM episodes WHERE ParentID = ? ORDER BY EPISODENUMBER`, seasonID)
		if err != nil {
			return nil, err
		}
		return intSegs(ids), nil
	case 3:
		return nil, nil
	}
	return nil, mediadb.ErrNotFound
}

func (b *Backend) seriesChildren(rest []string) ([]string, error) {
	q := b.store.DB

	if len(rest) == 0 {
		return facetIDs(seriesFacets), nil
	}

	switch rest[0] {
	case "all":
		if len(rest) == 1 {
			ids, err := b.store.getInts(q, `SELECT DBID FROM shows ORDER BY SEARCH_TITLE`)
			if err != nil {
				return nil, err
			}
			return intSegs(ids), nil
		}
		return b.showChildren(rest[1:])

	case "genre":
		switch len(rest) {
		case 1:
			ids, err := b.store.getInts(q, `SELECT ID FROM show_genres ORDER BY NAME`)
			if err != nil {
				return nil, err
			}
			return intSegs(ids), nil
		case 2:
			genreID, ok := parseID(rest[1])
			if !ok {
				return nil, mediadb.ErrNotFound
			}
			ids, err := b.store.getInts(q, `
SELECT shows.DBID FROM shows
INNER JOIN show_genres_arr ON shows.DBID = show_genres_arr.OBJ_ID
WHERE show_genres_arr.NAME_ID = ?
ORDER BY shows.SEARCH_TITLE COLLATE strcoll`, genreID)
			if err != nil {
				return nil, err
			}
			return intSegs(ids), nil
		default:
			return b.showChildren(rest[2:])
		}
	}

	return nil, mediadb.ErrNotFound
}
