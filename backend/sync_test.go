package backend

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openmdb/mediadb"
)

func TestScanPass(t *testing.T) {
	type Test struct {
		Name     string
		Path     string
		Expected int
	}

	var testCases = []Test{
		{"Audio file", "/music/song.mp3", 2},
		{"Video file", "/movies/movie.mkv", 2},
		{"Image file", "/movies/poster.jpg", 1},
		{"NFO file", "/movies/movie.nfo", 1},
		{"Subtitle is skipped", "/movies/movie.srt", 0},
		{"Subtitle index is skipped", "/movies/movie.idx", 0},
		{"Upper case extension", "/movies/POSTER.JPG", 1},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			result := scanPass(tc.Path)
			if result != tc.Expected {
				t.Errorf("%d does not equal %d", result, tc.Expected)
			}
		})
	}
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Could not create the directory: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("Could not write the file: %v", err)
	}
	return path
}

func TestAddDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.flac")
	writeFile(t, dir, "two.flac")
	writeFile(t, dir, "ignored.srt")
	writeFile(t, dir, filepath.Join(".hidden", "three.flac"))

	loader := &fakeLoader{tracks: map[string]*mediadb.Track{
		"one.flac": songTrack("Death on Two Legs", "Queen", "A Night at the Opera", 1, 223),
		"two.flac": songTrack("Bohemian Rhapsody", "Queen", "A Night at the Opera", 11, 355),
	}}

	b := newTestBackend(t, loader, nil)

	if err := b.AddDirectory(dir); err != nil {
		t.Fatalf("Could not scan the directory: %v", err)
	}

	if got := countRows(t, b, "songs"); got != 2 {
		t.Errorf("song count %d does not equal 2", got)
	}
	if got := countRows(t, b, "albums"); got != 1 {
		t.Errorf("album count %d does not equal 1", got)
	}

	dirs, err := b.Directories()
	if err != nil {
		t.Fatalf("Could not list directories: %v", err)
	}
	if len(dirs) != 1 || dirs[0] != dir {
		t.Errorf("%v does not equal [%s]", dirs, dir)
	}

	// a second scan of an unchanged directory is a no-op
	if err := b.AddDirectory(dir); err != nil {
		t.Fatalf("Could not rescan the directory: %v", err)
	}
	if got := countRows(t, b, "songs"); got != 2 {
		t.Errorf("song count after rescan %d does not equal 2", got)
	}
}

func TestSyncRemovesDeletedFiles(t *testing.T) {
	dir := t.TempDir()
	one := writeFile(t, dir, "one.flac")
	writeFile(t, dir, "two.flac")

	loader := &fakeLoader{tracks: map[string]*mediadb.Track{
		"one.flac": songTrack("Death on Two Legs", "Queen", "A Night at the Opera", 1, 223),
		"two.flac": songTrack("Bohemian Rhapsody", "Queen", "A Night at the Opera", 11, 355),
	}}

	b := newTestBackend(t, loader, nil)

	if err := b.AddDirectory(dir); err != nil {
		t.Fatalf("Could not scan the directory: %v", err)
	}

	if err := os.Remove(one); err != nil {
		t.Fatalf("Could not remove the file: %v", err)
	}
	if err := b.AddDirectory(dir); err != nil {
		t.Fatalf("Could not rescan the directory: %v", err)
	}

	if got := countRows(t, b, "songs"); got != 1 {
		t.Errorf("song count %d does not equal 1", got)
	}

	album, err := b.store.getInts(b.store.DB, `SELECT NUM_CHILDREN FROM albums`)
	if err != nil || len(album) != 1 {
		t.Fatalf("Could not read the album: %v %v", album, err)
	}
	if album[0] != 1 {
		t.Errorf("album child count %d does not equal 1", album[0])
	}
}

func TestSyncReaddsChangedFiles(t *testing.T) {
	dir := t.TempDir()
	one := writeFile(t, dir, "one.flac")

	loader := &fakeLoader{tracks: map[string]*mediadb.Track{
		"one.flac": songTrack("Death on Two Legs", "Queen", "A Night at the Opera", 1, 223),
	}}

	b := newTestBackend(t, loader, nil)

	if err := b.AddDirectory(dir); err != nil {
		t.Fatalf("Could not scan the directory: %v", err)
	}

	before, err := b.store.getInts(b.store.DB, `SELECT MTIME FROM songs`)
	if err != nil || len(before) != 1 {
		t.Fatalf("Could not read the song: %v %v", before, err)
	}

	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(one, future, future); err != nil {
		t.Fatalf("Could not change the mtime: %v", err)
	}
	if err := b.AddDirectory(dir); err != nil {
		t.Fatalf("Could not rescan the directory: %v", err)
	}

	after, err := b.store.getInts(b.store.DB, `SELECT MTIME FROM songs`)
	if err != nil || len(after) != 1 {
		t.Fatalf("Could not read the song: %v %v", after, err)
	}
	if after[0] <= before[0] {
		t.Errorf("changed file kept mtime %d", after[0])
	}
}

func TestDeleteDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.flac")

	loader := &fakeLoader{tracks: map[string]*mediadb.Track{
		"one.flac": songTrack("Death on Two Legs", "Queen", "A Night at the Opera", 1, 223),
	}}

	b := newTestBackend(t, loader, nil)

	if err := b.AddDirectory(dir); err != nil {
		t.Fatalf("Could not scan the directory: %v", err)
	}
	if err := b.DeleteDirectory(dir); err != nil {
		t.Fatalf("Could not remove the directory: %v", err)
	}

	for _, table := range []string{"songs", "albums", "objects", "scandirs"} {
		if got := countRows(t, b, table); got != 0 {
			t.Errorf("%s still has %d rows", table, got)
		}
	}
}

func TestSyncResolvesImageReferences(t *testing.T) {
	dir := t.TempDir()
	cover := writeFile(t, dir, "cover.jpg")
	writeFile(t, dir, "one.flac")

	song := songTrack("Death on Two Legs", "Queen", "A Night at the Opera", 1, 223)
	song.Meta.Set(mediadb.FieldCoverURL, cover)

	loader := &fakeLoader{tracks: map[string]*mediadb.Track{
		"one.flac": song,
		"cover.jpg": {
			Meta: mediadb.Dict{mediadb.FieldClass: mediadb.ClassImage},
			Src: []mediadb.Dict{{
				mediadb.FieldMimetype: "image/jpeg",
				mediadb.FieldWidth:    int64(500),
				mediadb.FieldHeight:   int64(500),
			}},
		},
	}}

	b := newTestBackend(t, loader, nil)

	if err := b.AddDirectory(dir); err != nil {
		t.Fatalf("Could not scan the directory: %v", err)
	}

	ids, err := b.store.getInts(b.store.DB, `SELECT DBID FROM songs`)
	if err != nil || len(ids) != 1 {
		t.Fatalf("Could not read the song: %v %v", ids, err)
	}

	track, err := b.queryObject(b.store.DB, ids[0], 0)
	if err != nil {
		t.Fatalf("Could not query the song: %v", err)
	}

	img, ok := track.Meta[mediadb.FieldCoverURL].(mediadb.Dict)
	if !ok {
		t.Fatalf("song has no resolved cover: %v", track.Meta[mediadb.FieldCoverURL])
	}
	if got := img.String(mediadb.FieldURI); got != cover {
		t.Errorf("cover uri %q does not equal %q", got, cover)
	}

	// the referenced image was reclassified
	imgType, err := b.store.getInt(b.store.DB, `SELECT IMAGETYPE FROM images`)
	if err != nil {
		t.Fatalf("Could not read the image type: %v", err)
	}
	if imgType != imageTypeCover {
		t.Errorf("image type %d does not equal %d", imgType, imageTypeCover)
	}
}
