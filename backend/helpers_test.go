package backend

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/openmdb/mediadb"
)

// fakeLoader serves canned tracks keyed by file base name, standing in
// for the prober during synchronizer tests.
type fakeLoader struct {
	tracks map[string]*mediadb.Track
}

func (f *fakeLoader) Load(uri string) ([]*mediadb.Track, error) {
	track, ok := f.tracks[filepath.Base(uri)]
	if !ok {
		return nil, nil
	}

	// fresh copy, the backend mutates metadata while storing
	clone := &mediadb.Track{Meta: track.Meta.Clone()}
	for _, src := range track.Src {
		s := src.Clone()
		s.Set(mediadb.FieldURI, uri)
		// let the synchronizer fill in the actual file mtime
		s.Delete(mediadb.FieldMTime)
		clone.Src = append(clone.Src, s)
	}
	return []*mediadb.Track{clone}, nil
}

func newTestBackend(t *testing.T, loader mediadb.MediaLoader, sink mediadb.EventSink) *Backend {
	t.Helper()

	b, err := New(t.TempDir(), loader, sink, zerolog.Nop())
	if err != nil {
		t.Fatalf("Could not create the backend: %v", err)
	}

	t.Cleanup(func() {
		_ = b.Close()
	})

	return b
}

func songTrack(title, artist, album string, trackNumber, duration int64) *mediadb.Track {
	return &mediadb.Track{
		Meta: mediadb.Dict{
			mediadb.FieldClass:       mediadb.ClassSong,
			mediadb.FieldTitle:       title,
			mediadb.FieldSearchTitle: mediadb.SearchTitle(title),
			mediadb.FieldArtist:      []string{artist},
			mediadb.FieldAlbumArtist: []string{artist},
			mediadb.FieldAlbum:       album,
			mediadb.FieldGenre:       []string{"Rock"},
			mediadb.FieldDate:        "1975-99-99",
			mediadb.FieldTrackNumber: trackNumber,
			mediadb.FieldDuration:    duration,
		},
		Src: []mediadb.Dict{{
			mediadb.FieldURI:      "/music/" + title + ".flac",
			mediadb.FieldMTime:    int64(1),
			mediadb.FieldMimetype: "audio/flac",
		}},
	}
}

func movieTrack(title, date string, duration int64) *mediadb.Track {
	return &mediadb.Track{
		Meta: mediadb.Dict{
			mediadb.FieldClass:       mediadb.ClassMovie,
			mediadb.FieldTitle:       title,
			mediadb.FieldSearchTitle: mediadb.SearchTitle(title),
			mediadb.FieldDate:        date,
			mediadb.FieldDuration:    duration,
			mediadb.FieldDirector:    []string{"Bong Joon-ho"},
			mediadb.FieldActor:       []string{"Song Kang-ho"},
			mediadb.FieldGenre:       []string{"Thriller"},
		},
		Src: []mediadb.Dict{{
			mediadb.FieldURI:      "/movies/" + title + ".mkv",
			mediadb.FieldMTime:    int64(1),
			mediadb.FieldMimetype: "video/x-matroska",
		}},
	}
}

func episodeTrack(show, title string, season, episode, duration int64) *mediadb.Track {
	return &mediadb.Track{
		Meta: mediadb.Dict{
			mediadb.FieldClass:         mediadb.ClassTVEpisode,
			mediadb.FieldTitle:         title,
			mediadb.FieldSearchTitle:   mediadb.SearchTitle(title),
			mediadb.FieldShow:          show,
			mediadb.FieldSeason:        season,
			mediadb.FieldEpisodeNumber: episode,
			mediadb.FieldDuration:      duration,
			mediadb.FieldDate:          "2019-99-99",
		},
		Src: []mediadb.Dict{{
			mediadb.FieldURI:      "/series/" + title + ".mkv",
			mediadb.FieldMTime:    int64(1),
			mediadb.FieldMimetype: "video/x-matroska",
		}},
	}
}

// addTrack stores a track outside of a directory sync.
func addTrack(t *testing.T, b *Backend, track *mediadb.Track) int64 {
	t.Helper()

	id, err := b.addObject(b.store.DB, track, -1, -1)
	if err != nil {
		t.Fatalf("Could not add the object: %v", err)
	}
	return id
}

func countRows(t *testing.T, b *Backend, table string) int64 {
	t.Helper()

	n, err := b.store.getInt(b.store.DB, "SELECT COUNT(*) FROM "+table)
	if err != nil {
		t.Fatalf("Could not count %s: %v", table, err)
	}
	return n
}
