package probe

import (
	"os"
	"path/filepath"

	"github.com/openmdb/mediadb"
)

// Artwork and NFO files live next to the media they describe. The
// scanner stores them in its first pass; here we only record their
// paths so the database can resolve them to object references.

func firstExisting(candidates []string) string {
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// attachSongArt records a cover image stored next to an audio file.
func attachSongArt(m mediadb.Dict, uri string) {
	dir := filepath.Dir(uri)

	if cover := firstExisting([]string{
		filepath.Join(dir, "cover.jpg"),
		filepath.Join(dir, "cover.png"),
		filepath.Join(dir, "folder.jpg"),
	}); cover != "" {
		m.Set(mediadb.FieldCoverURL, cover)
	}
}

// attachVideoArt records poster, wallpaper and NFO files stored next
// to a video file.
func attachVideoArt(m mediadb.Dict, uri string) {
	dir := filepath.Dir(uri)
	base := stem(uri)

	if poster := firstExisting([]string{
		filepath.Join(dir, base+".jpg"),
		filepath.Join(dir, base+"-poster.jpg"),
		filepath.Join(dir, "poster.jpg"),
	}); poster != "" {
		m.Set(mediadb.FieldPosterURL, poster)
	}

	if wallpaper := firstExisting([]string{
		filepath.Join(dir, base+"-fanart.jpg"),
		filepath.Join(dir, "fanart.jpg"),
	}); wallpaper != "" {
		m.Set(mediadb.FieldWallpaperURL, wallpaper)
	}

	if nfo := firstExisting([]string{
		filepath.Join(dir, base+".nfo"),
		filepath.Join(dir, "movie.nfo"),
	}); nfo != "" {
		m.Set(mediadb.FieldNFOFile, nfo)
	}
}
