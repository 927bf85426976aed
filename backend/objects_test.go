package backend

import (
	"reflect"
	"testing"

	"github.com/openmdb/mediadb"
)

func TestAddSongCreatesAlbum(t *testing.T) {
	b := newTestBackend(t, nil, nil)

	id := addTrack(t, b, songTrack("Death on Two Legs", "Queen", "A Night at the Opera", 1, 223))

	track, err := b.queryObject(b.store.DB, id, 0)
	if err != nil {
		t.Fatalf("Could not query the song: %v", err)
	}

	m := track.Meta
	if got := m.String(mediadb.FieldClass); got != mediadb.ClassSong {
		t.Errorf("class %q does not equal %q", got, mediadb.ClassSong)
	}
	if got := m.String(mediadb.FieldAlbum); got != "A Night at the Opera" {
		t.Errorf("album %q does not equal %q", got, "A Night at the Opera")
	}
	if got := m.Strings(mediadb.FieldArtist); !reflect.DeepEqual(got, []string{"Queen"}) {
		t.Errorf("artists %v do not equal %v", got, []string{"Queen"})
	}
	if got := m.Strings(mediadb.FieldArtist + mediadb.IDSuffix); len(got) != 1 {
		t.Errorf("expected one artist id, got %v", got)
	}

	albumID, ok := m.Int(mediadb.FieldParentID)
	if !ok || albumID <= 0 {
		t.Fatalf("song has no album parent: %v", m[mediadb.FieldParentID])
	}

	album, err := b.queryObject(b.store.DB, albumID, 0)
	if err != nil {
		t.Fatalf("Could not query the album: %v", err)
	}
	if got := album.Meta.IntDefault(mediadb.FieldNumChildren, 0); got != 1 {
		t.Errorf("album child count %d does not equal 1", got)
	}
	if got := album.Meta.IntDefault(mediadb.FieldDuration, 0); got != 223 {
		t.Errorf("album duration %d does not equal 223", got)
	}
}

func TestAlbumGrowsWithSongs(t *testing.T) {
	b := newTestBackend(t, nil, nil)

	first := songTrack("Death on Two Legs", "Queen", "A Night at the Opera", 1, 223)
	addTrack(t, b, first)

	// second song of the same album, released in another year
	second := songTrack("Bohemian Rhapsody", "Queen", "A Night at the Opera", 11, 355)
	second.Meta.Set(mediadb.FieldDate, "1976-99-99")
	id := addTrack(t, b, second)

	if got := countRows(t, b, "albums"); got != 1 {
		t.Fatalf("album count %d does not equal 1", got)
	}

	track, err := b.queryObject(b.store.DB, id, 0)
	if err != nil {
		t.Fatalf("Could not query the song: %v", err)
	}
	albumID, _ := track.Meta.Int(mediadb.FieldParentID)

	album, err := b.queryObject(b.store.DB, albumID, 0)
	if err != nil {
		t.Fatalf("Could not query the album: %v", err)
	}

	m := album.Meta
	if got := m.IntDefault(mediadb.FieldNumChildren, 0); got != 2 {
		t.Errorf("album child count %d does not equal 2", got)
	}
	if got := m.IntDefault(mediadb.FieldDuration, 0); got != 223+355 {
		t.Errorf("album duration %d does not equal %d", got, 223+355)
	}
	if got := m.String(mediadb.FieldDate); got != mediadb.DateUndefined {
		t.Errorf("album spanning two years kept date %q", got)
	}
}

func TestAddMovieCreatesPart(t *testing.T) {
	b := newTestBackend(t, nil, nil)

	partID := addTrack(t, b, movieTrack("Parasite", "2019-99-99", 7932))

	part, err := b.queryObject(b.store.DB, partID, 0)
	if err != nil {
		t.Fatalf("Could not query the part: %v", err)
	}
	if got := part.Meta.String(mediadb.FieldClass); got != mediadb.ClassMoviePart {
		t.Errorf("class %q does not equal %q", got, mediadb.ClassMoviePart)
	}

	movieID, ok := part.Meta.Int(mediadb.FieldParentID)
	if !ok || movieID <= 0 {
		t.Fatalf("part has no movie parent: %v", part.Meta[mediadb.FieldParentID])
	}

	movie, err := b.queryObject(b.store.DB, movieID, 0)
	if err != nil {
		t.Fatalf("Could not query the movie: %v", err)
	}

	m := movie.Meta
	if got := m.String(mediadb.FieldClass); got != mediadb.ClassMovie {
		t.Errorf("class %q does not equal %q", got, mediadb.ClassMovie)
	}
	if got, _ := m.Int(mediadb.FieldParentID); got != movieID {
		t.Errorf("movie is not its own parent: %d != %d", got, movieID)
	}
	if got := m.Strings(mediadb.FieldCountry); !reflect.DeepEqual(got, []string{"Unknown"}) {
		t.Errorf("country default %v does not equal %v", got, []string{"Unknown"})
	}
	if len(movie.Src) != 1 {
		t.Fatalf("expected one part source, got %d", len(movie.Src))
	}
	if got := movie.Src[0].String(mediadb.FieldURI); got != "/movies/Parasite.mkv" {
		t.Errorf("part uri %q does not equal %q", got, "/movies/Parasite.mkv")
	}
	if got := movie.Src[0].String(mediadb.FieldMimetype); got != "video/x-matroska" {
		t.Errorf("part mimetype %q does not equal %q", got, "video/x-matroska")
	}
}

func TestTwoPartMovie(t *testing.T) {
	b := newTestBackend(t, nil, nil)

	one := movieTrack("Novecento", "1976-99-99", 9000)
	one.Meta.Set(mediadb.FieldIdx, int64(1))
	one.Src[0].Set(mediadb.FieldURI, "/movies/Novecento.part1.mkv")
	addTrack(t, b, one)

	two := movieTrack("Novecento", "1976-99-99", 9600)
	two.Meta.Set(mediadb.FieldIdx, int64(2))
	two.Src[0].Set(mediadb.FieldURI, "/movies/Novecento.part2.mkv")
	partID := addTrack(t, b, two)

	if got := countRows(t, b, "movies"); got != 1 {
		t.Fatalf("movie count %d does not equal 1", got)
	}
	if got := countRows(t, b, "movie_parts"); got != 2 {
		t.Fatalf("part count %d does not equal 2", got)
	}

	part, err := b.queryObject(b.store.DB, partID, 0)
	if err != nil {
		t.Fatalf("Could not query the part: %v", err)
	}
	movieID, _ := part.Meta.Int(mediadb.FieldParentID)

	movie, err := b.queryObject(b.store.DB, movieID, 0)
	if err != nil {
		t.Fatalf("Could not query the movie: %v", err)
	}
	if got := movie.Meta.IntDefault(mediadb.FieldDuration, 0); got != 9000+9600 {
		t.Errorf("movie duration %d does not equal %d", got, 9000+9600)
	}
	if len(movie.Src) != 2 {
		t.Fatalf("expected two part sources, got %d", len(movie.Src))
	}
	// parts come back in index order
	if got := movie.Src[0].String(mediadb.FieldURI); got != "/movies/Novecento.part1.mkv" {
		t.Errorf("first part %q is out of order", got)
	}
}

func TestDeleteLastSongDeletesAlbum(t *testing.T) {
	b := newTestBackend(t, nil, nil)

	id := addTrack(t, b, songTrack("Death on Two Legs", "Queen", "A Night at the Opera", 1, 223))

	if err := b.deleteObject(b.store.DB, id, typeSong, delAll); err != nil {
		t.Fatalf("Could not delete the song: %v", err)
	}

	for _, table := range []string{"songs", "albums", "objects", "song_artists", "song_genres", "song_artists_arr"} {
		if got := countRows(t, b, table); got != 0 {
			t.Errorf("%s still has %d rows", table, got)
		}
	}
}

func TestDeleteSongKeepsSiblings(t *testing.T) {
	b := newTestBackend(t, nil, nil)

	first := addTrack(t, b, songTrack("Death on Two Legs", "Queen", "A Night at the Opera", 1, 223))
	addTrack(t, b, songTrack("Bohemian Rhapsody", "Queen", "A Night at the Opera", 11, 355))

	if err := b.deleteObject(b.store.DB, first, typeSong, delAll); err != nil {
		t.Fatalf("Could not delete the song: %v", err)
	}

	if got := countRows(t, b, "songs"); got != 1 {
		t.Errorf("song count %d does not equal 1", got)
	}
	if got := countRows(t, b, "albums"); got != 1 {
		t.Errorf("album count %d does not equal 1", got)
	}

	albums, err := b.store.getInts(b.store.DB, `SELECT DBID FROM albums`)
	if err != nil || len(albums) != 1 {
		t.Fatalf("Could not list albums: %v %v", albums, err)
	}

	album, err := b.queryObject(b.store.DB, albums[0], 0)
	if err != nil {
		t.Fatalf("Could not query the album: %v", err)
	}
	if got := album.Meta.IntDefault(mediadb.FieldNumChildren, 0); got != 1 {
		t.Errorf("album child count %d does not equal 1", got)
	}
	if got := album.Meta.IntDefault(mediadb.FieldDuration, 0); got != 355 {
		t.Errorf("album duration %d does not equal 355", got)
	}
}

func TestDeleteAlbumDeletesSongs(t *testing.T) {
	b := newTestBackend(t, nil, nil)

	id := addTrack(t, b, songTrack("Death on Two Legs", "Queen", "A Night at the Opera", 1, 223))

	track, err := b.queryObject(b.store.DB, id, 0)
	if err != nil {
		t.Fatalf("Could not query the song: %v", err)
	}
	albumID, _ := track.Meta.Int(mediadb.FieldParentID)

	if err := b.deleteObject(b.store.DB, albumID, typeAlbum, delChildren); err != nil {
		t.Fatalf("Could not delete the album: %v", err)
	}

	for _, table := range []string{"songs", "albums", "objects"} {
		if got := countRows(t, b, table); got != 0 {
			t.Errorf("%s still has %d rows", table, got)
		}
	}
}

func TestEpisodeBuildsShowAndSeason(t *testing.T) {
	b := newTestBackend(t, nil, nil)

	addTrack(t, b, episodeTrack("Chernobyl", "1:23:45", 1, 1, 3500))
	id := addTrack(t, b, episodeTrack("Chernobyl", "Please Remain Calm", 1, 2, 3700))

	if got := countRows(t, b, "shows"); got != 1 {
		t.Errorf("show count %d does not equal 1", got)
	}
	if got := countRows(t, b, "seasons"); got != 1 {
		t.Errorf("season count %d does not equal 1", got)
	}

	track, err := b.queryObject(b.store.DB, id, 0)
	if err != nil {
		t.Fatalf("Could not query the episode: %v", err)
	}
	seasonID, _ := track.Meta.Int(mediadb.FieldParentID)

	season, err := b.queryObject(b.store.DB, seasonID, 0)
	if err != nil {
		t.Fatalf("Could not query the season: %v", err)
	}
	if got := season.Meta.IntDefault(mediadb.FieldNumChildren, 0); got != 2 {
		t.Errorf("season child count %d does not equal 2", got)
	}
	if got := season.Meta.IntDefault(mediadb.FieldDuration, 0); got != 3500+3700 {
		t.Errorf("season duration %d does not equal %d", got, 3500+3700)
	}
	if got, _ := season.Meta.Int(mediadb.FieldSeason); got != 1 {
		t.Errorf("season number %d does not equal 1", got)
	}
}
