// Package probe turns media files into tracks: it classifies a file by
// extension, reads audio tags and image dimensions and parses episode
// or movie information out of video filenames.
package probe

import (
	"fmt"
	"image"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dhowden/tag"
	"github.com/oriser/regroup"
	"github.com/rs/zerolog"

	// image decoders for DecodeConfig
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/openmdb/mediadb"
)

var (
	audioExtensions = map[string]struct{}{
		".mp3": {}, ".flac": {}, ".ogg": {}, ".oga": {}, ".m4a": {},
		".wav": {}, ".opus": {}, ".wma": {}, ".aac": {},
	}
	videoExtensions = map[string]struct{}{
		".mkv": {}, ".mp4": {}, ".avi": {}, ".mov": {}, ".wmv": {},
		".webm": {}, ".mpg": {}, ".mpeg": {}, ".m2ts": {}, ".ts": {},
	}
	imageExtensions = map[string]struct{}{
		".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {}, ".bmp": {},
	}
)

var (
	episodeRe     = regroup.MustCompile(`(?i)^(?P<Show>.+?)[. _-]+[Ss](?P<Season>\d+)[Ee](?P<Episode>\d+)`)
	episodeMarker = regexp.MustCompile(`(?i)[Ss]\d+[Ee]\d+`)
	movieRe       = regroup.MustCompile(`^(?P<Title>.+?)[. _(-]+(?P<Year>(?:19|20)\d{2})`)
)

type episodeMatch struct {
	Show    string `regroup:"Show"`
	Season  int64  `regroup:"Season"`
	Episode int64  `regroup:"Episode"`
}

type movieMatch struct {
	Title string `regroup:"Title"`
	Year  string `regroup:"Year"`
}

type Prober struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Prober {
	return &Prober{log: log.With().Str("component", "probe").Logger()}
}

// Load probes one file and returns its track. Files of no known media
// kind yield an empty result.
func (p *Prober) Load(uri string) ([]*mediadb.Track, error) {
	info, err := os.Stat(uri)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(uri))

	var track *mediadb.Track
	switch {
	case isExt(audioExtensions, ext):
		track, err = p.loadAudio(uri)
	case isExt(videoExtensions, ext):
		track, err = p.loadVideo(uri)
	case isExt(imageExtensions, ext):
		track, err = p.loadImage(uri)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	src := mediadb.Dict{
		mediadb.FieldURI:      uri,
		mediadb.FieldMTime:    info.ModTime().Unix(),
		mediadb.FieldMimetype: mimetype(ext),
	}
	if len(track.Src) > 0 {
		track.Src[0].Merge(src)
	} else {
		track.Src = append(track.Src, src)
	}

	return []*mediadb.Track{track}, nil
}

func isExt(set map[string]struct{}, ext string) bool {
	_, ok := set[ext]
	return ok
}

func mimetype(ext string) string {
	if mt := mime.TypeByExtension(ext); mt != "" {
		// strip optional parameters like "; charset=utf-8"
		if i := strings.IndexByte(mt, ';'); i >= 0 {
			mt = mt[:i]
		}
		return mt
	}
	return "application/octet-stream"
}

func (p *Prober) loadAudio(uri string) (*mediadb.Track, error) {
	f, err := os.Open(uri)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m := mediadb.Dict{mediadb.FieldClass: mediadb.ClassSong}

	meta, err := tag.ReadFrom(f)
	if err != nil {
		// untagged file, fall back to the filename
		p.log.Debug().Err(err).Str("path", uri).Msg("No tags")
		title := stem(uri)
		m.Set(mediadb.FieldTitle, title)
		m.Set(mediadb.FieldSearchTitle, mediadb.SearchTitle(title))
		return &mediadb.Track{Meta: m}, nil
	}

	title := meta.Title()
	if title == "" {
		title = stem(uri)
	}
	m.Set(mediadb.FieldTitle, title)
	m.Set(mediadb.FieldSearchTitle, mediadb.SearchTitle(title))

	if artist := meta.Artist(); artist != "" {
		m.Append(mediadb.FieldArtist, artist)
	}
	if album := meta.Album(); album != "" {
		m.Set(mediadb.FieldAlbum, album)
	}
	albumArtist := meta.AlbumArtist()
	if albumArtist == "" {
		albumArtist = meta.Artist()
	}
	if albumArtist != "" {
		m.Append(mediadb.FieldAlbumArtist, albumArtist)
	}
	if genre := meta.Genre(); genre != "" {
		m.Append(mediadb.FieldGenre, genre)
	}
	if year := meta.Year(); year > 0 {
		m.Set(mediadb.FieldDate, fmt.Sprintf("%04d-99-99", year))
	}
	if num, _ := meta.Track(); num > 0 {
		m.Set(mediadb.FieldTrackNumber, int64(num))
	}

	attachSongArt(m, uri)

	return &mediadb.Track{Meta: m}, nil
}

func (p *Prober) loadVideo(uri string) (*mediadb.Track, error) {
	name := stem(uri)

	var em episodeMatch
	if err := episodeRe.MatchToTarget(name, &em); err == nil {
		m := mediadb.Dict{
			mediadb.FieldClass:         mediadb.ClassTVEpisode,
			mediadb.FieldShow:          cleanName(em.Show),
			mediadb.FieldSeason:        em.Season,
			mediadb.FieldEpisodeNumber: em.Episode,
		}
		title := episodeTitle(name)
		if title == "" {
			title = fmt.Sprintf("%s S%02dE%02d", cleanName(em.Show), em.Season, em.Episode)
		}
		m.Set(mediadb.FieldTitle, title)
		m.Set(mediadb.FieldSearchTitle, mediadb.SearchTitle(title))
		attachVideoArt(m, uri)
		return &mediadb.Track{Meta: m}, nil
	}

	m := mediadb.Dict{mediadb.FieldClass: mediadb.ClassMovie}

	var mm movieMatch
	if err := movieRe.MatchToTarget(name, &mm); err == nil {
		title := cleanName(mm.Title)
		m.Set(mediadb.FieldTitle, title)
		m.Set(mediadb.FieldSearchTitle, mediadb.SearchTitle(title))
		m.Set(mediadb.FieldDate, mm.Year+"-99-99")
		attachVideoArt(m, uri)
		return &mediadb.Track{Meta: m}, nil
	}

	title := cleanName(name)
	m.Set(mediadb.FieldTitle, title)
	m.Set(mediadb.FieldSearchTitle, mediadb.SearchTitle(title))
	attachVideoArt(m, uri)
	return &mediadb.Track{Meta: m}, nil
}

func (p *Prober) loadImage(uri string) (*mediadb.Track, error) {
	m := mediadb.Dict{mediadb.FieldClass: mediadb.ClassImage}
	src := mediadb.Dict{}

	f, err := os.Open(uri)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if cfg, _, err := image.DecodeConfig(f); err == nil {
		src.Set(mediadb.FieldWidth, int64(cfg.Width))
		src.Set(mediadb.FieldHeight, int64(cfg.Height))
	} else {
		p.log.Debug().Err(err).Str("path", uri).Msg("Undecodable image")
	}

	return &mediadb.Track{Meta: m, Src: []mediadb.Dict{src}}, nil
}

func stem(uri string) string {
	base := filepath.Base(uri)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// cleanName turns a filename fragment into a display name: separator
// characters become spaces.
func cleanName(s string) string {
	s = strings.NewReplacer(".", " ", "_", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// episodeTitle extracts the part after the SxxEyy marker, when the
// filename carries one.
func episodeTitle(name string) string {
	loc := episodeMarker.FindStringIndex(name)
	if loc == nil {
		return ""
	}
	rest := cleanName(name[loc[1]:])
	return strings.TrimLeft(rest, "- ")
}
