package mediadb

import "errors"

// Field names used both as metadata-dictionary keys and as SQL column
// names. The browser's path grammar and the schema depend on these
// exact spellings; treat them as a wire contract.
const (
	FieldDBID        = "DBID"
	FieldType        = "TYPE"
	FieldParentID    = "ParentID"
	FieldPosterID    = "PosterID"
	FieldWallpaperID = "WallpaperID"
	FieldCoverID     = "CoverID"
	FieldNFOID       = "NFOID"
	FieldScanDirID   = "ScanDirID"
	FieldImageType   = "IMAGETYPE"

	FieldTitle         = "TITLE"
	FieldSearchTitle   = "SEARCH_TITLE"
	FieldOriginalTitle = "ORIGINAL_TITLE"
	FieldDate          = "DATE"
	FieldPlot          = "PLOT"
	FieldNumChildren   = "NUM_CHILDREN"
	FieldDuration      = "APPROX_DURATION"
	FieldTrackNumber   = "TRACKNUMBER"
	FieldEpisodeNumber = "EPISODENUMBER"
	FieldSeason        = "SEASON"
	FieldIdx           = "IDX"

	FieldURI      = "URI"
	FieldMTime    = "MTIME"
	FieldMimetype = "MIMETYPE"
	FieldWidth    = "WIDTH"
	FieldHeight   = "HEIGHT"

	FieldAudioBitrate    = "AUDIO_BITRATE"
	FieldAudioCodec      = "AUDIO_CODEC"
	FieldAudioChannels   = "AUDIO_CHANNELS"
	FieldAudioSamplerate = "AUDIO_SAMPLERATE"
	FieldVideoCodec      = "VIDEO_CODEC"

	FieldArtist           = "Artist"
	FieldAlbumArtist      = "AlbumArtist"
	FieldAlbum            = "Album"
	FieldShow             = "Show"
	FieldGenre            = "Genre"
	FieldActor            = "Actor"
	FieldDirector         = "Director"
	FieldCountry          = "Country"
	FieldAudioLanguage    = "AudioLanguage"
	FieldSubtitleLanguage = "SubtitleLanguage"

	FieldID           = "ID"
	FieldLabel        = "Label"
	FieldClass        = "Class"
	FieldChildClass   = "ChildClass"
	FieldPreviousID   = "PreviousID"
	FieldNextID       = "NextID"
	FieldCoverURL     = "CoverURL"
	FieldPosterURL    = "PosterURL"
	FieldWallpaperURL = "WallpaperURL"
	FieldNFOFile      = "NFOFile"
)

// IDSuffix marks the parallel id array of a facet array field, e.g.
// "Artist" names and "ArtistId" lookup-table ids.
const IDSuffix = "Id"

// ContainerSuffix marks the synthetic facet-path shortcut fields, e.g.
// "ArtistContainer" = "/songs/artist/f/12".
const ContainerSuffix = "Container"

// Media classes. The class of a track selects which schema table its
// object lands in.
const (
	ClassSong      = "song"
	ClassAlbum     = "album"
	ClassTVShow    = "tvshow"
	ClassTVSeason  = "tvseason"
	ClassTVEpisode = "tvepisode"
	ClassMovie     = "movie"
	ClassMoviePart = "moviepart"
	ClassImage     = "image"
	ClassNFO       = "nfo"

	ClassContainer         = "container"
	ClassContainerArtist   = "container.artist"
	ClassContainerGenre    = "container.genre"
	ClassContainerYear     = "container.year"
	ClassContainerActor    = "container.actor"
	ClassContainerDirector = "container.director"
	ClassContainerCountry  = "container.country"
	ClassContainerLanguage = "container.language"

	ClassRootSongs  = "root.songs"
	ClassRootAlbums = "root.albums"
	ClassRootMovies = "root.movies"
	ClassRootSeries = "root.series"
)

// DateUndefined is stored when a track carries no date; it sorts after
// every real date and is rendered as "Unknown" in year facets.
const DateUndefined = "9999-99-99"

var (
	// ErrNotFound is returned when a browse path does not resolve to
	// an object.
	ErrNotFound = errors.New("mediadb: object not found")

	// ErrFatal marks errors after which the backend cannot continue
	// (schema creation, broken database file).
	ErrFatal = errors.New("mediadb: fatal error")
)

// A Track is one media object as delivered by a prober: its metadata
// plus zero or more file sources. The first source provides the URI,
// mtime and mimetype columns of the object's table row.
type Track struct {
	Meta Dict
	Src  []Dict
}

// Class returns the media class of the track.
func (t *Track) Class() string {
	return t.Meta.String(FieldClass)
}

// Source returns the n-th file source, or nil.
func (t *Track) Source(n int) Dict {
	if n < 0 || n >= len(t.Src) {
		return nil
	}
	return t.Src[n]
}

// A MediaLoader turns a file into zero or more tracks. Multi-track
// container files are skipped by the synchronizer, so loaders may
// return more than one track but only single-track results are added.
type MediaLoader interface {
	Load(uri string) ([]*Track, error)
}
