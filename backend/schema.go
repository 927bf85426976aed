package backend

import (
	"fmt"
	"strings"

	"github.com/openmdb/mediadb"
)

// Numeric type ids stored in the objects table. These values are part
// of the database format; never renumber them.
type typeID int

const (
	typeSong      typeID = 1
	typeAlbum     typeID = 2
	typeTVShow    typeID = 3
	typeTVSeason  typeID = 4
	typeTVEpisode typeID = 5
	typeMovie     typeID = 6
	typeImage     typeID = 7
	typeNFO       typeID = 8
	typeMoviePart typeID = 9
)

// Image subtypes stored in the IMAGETYPE column of the images table.
const (
	imageTypeImage     = 0
	imageTypeCover     = 1
	imageTypePoster    = 2
	imageTypeWallpaper = 3
)

var classTypes = map[string]typeID{
	mediadb.ClassSong:      typeSong,
	mediadb.ClassAlbum:     typeAlbum,
	mediadb.ClassTVShow:    typeTVShow,
	mediadb.ClassTVSeason:  typeTVSeason,
	mediadb.ClassTVEpisode: typeTVEpisode,
	mediadb.ClassMovie:     typeMovie,
	mediadb.ClassMoviePart: typeMoviePart,
	mediadb.ClassImage:     typeImage,
	mediadb.ClassNFO:       typeNFO,
}

func typeForClass(class string) typeID {
	return classTypes[class]
}

func classForType(t typeID) string {
	for class, id := range classTypes {
		if id == t {
			return class
		}
	}
	return ""
}

type colKind int

const (
	colInt colKind = iota
	colText
)

// A column maps a metadata field to a table column. Columns with an
// idTable store an integer key into that lookup table instead of the
// raw string.
type column struct {
	name    string
	kind    colKind
	idTable string
}

// An arrayField is a multi-valued string field stored in a junction
// table (ID, OBJ_ID, NAME_ID) plus a name lookup table (ID, NAME).
type arrayField struct {
	field    string
	arrTable string
	idTable  string
}

// An objTable describes one media-object table: its scalar columns,
// the per-source columns taken from the first file source, and its
// array fields. pass orders the scan: images and NFOs must exist
// before the media files that reference them.
type objTable struct {
	id      typeID
	name    string
	cols    []column
	srcCols []column
	arrays  []arrayField
	pass    int
}

func fileCols(prefix string) []column {
	return []column{
		{name: mediadb.FieldURI, kind: colText},
		{name: mediadb.FieldMTime, kind: colInt},
		{name: mediadb.FieldMimetype, kind: colText, idTable: prefix + "_mimetypes"},
	}
}

var audioCols = []column{
	{name: mediadb.FieldAudioBitrate, kind: colInt},
	{name: mediadb.FieldAudioCodec, kind: colText},
	{name: mediadb.FieldAudioChannels, kind: colInt},
	{name: mediadb.FieldAudioSamplerate, kind: colInt},
}

var videoCols = []column{
	{name: mediadb.FieldVideoCodec, kind: colText},
	{name: mediadb.FieldWidth, kind: colInt},
	{name: mediadb.FieldHeight, kind: colInt},
}

func cols(groups ...[]column) []column {
	var out []column
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var objTables = []objTable{
	{
		id:   typeImage,
		name: "images",
		pass: 1,
		cols: []column{
			{name: mediadb.FieldDBID, kind: colInt},
			{name: mediadb.FieldScanDirID, kind: colInt},
			{name: mediadb.FieldImageType, kind: colInt},
		},
		srcCols: cols(fileCols("image"), []column{
			{name: mediadb.FieldWidth, kind: colInt},
			{name: mediadb.FieldHeight, kind: colInt},
		}),
	},
	{
		id:   typeNFO,
		name: "nfos",
		pass: 1,
		cols: []column{
			{name: mediadb.FieldDBID, kind: colInt},
			{name: mediadb.FieldScanDirID, kind: colInt},
			{name: mediadb.FieldURI, kind: colText},
			{name: mediadb.FieldMTime, kind: colInt},
		},
	},
	{
		id:   typeSong,
		name: "songs",
		pass: 2,
		cols: cols([]column{
			{name: mediadb.FieldDBID, kind: colInt},
			{name: mediadb.FieldTitle, kind: colText},
			{name: mediadb.FieldSearchTitle, kind: colText},
			{name: mediadb.FieldParentID, kind: colInt},
			{name: mediadb.FieldTrackNumber, kind: colInt},
			{name: mediadb.FieldDuration, kind: colInt},
			{name: mediadb.FieldDate, kind: colText},
		}, audioCols, []column{
			{name: mediadb.FieldScanDirID, kind: colInt},
			{name: mediadb.FieldCoverID, kind: colInt},
		}),
		srcCols: fileCols("song"),
		arrays: []arrayField{
			{field: mediadb.FieldArtist, arrTable: "song_artists_arr", idTable: "song_artists"},
			{field: mediadb.FieldGenre, arrTable: "song_genres_arr", idTable: "song_genres"},
		},
	},
	{
		id:   typeAlbum,
		name: "albums",
		pass: 2,
		cols: []column{
			{name: mediadb.FieldDBID, kind: colInt},
			{name: mediadb.FieldTitle, kind: colText},
			{name: mediadb.FieldSearchTitle, kind: colText},
			{name: mediadb.FieldDuration, kind: colInt},
			{name: mediadb.FieldDate, kind: colText},
			{name: mediadb.FieldNumChildren, kind: colInt},
			{name: mediadb.FieldCoverID, kind: colInt},
		},
		arrays: []arrayField{
			{field: mediadb.FieldArtist, arrTable: "album_artists_arr", idTable: "album_artists"},
			{field: mediadb.FieldGenre, arrTable: "album_genres_arr", idTable: "album_genres"},
		},
	},
	{
		id:   typeTVShow,
		name: "shows",
		pass: 2,
		cols: []column{
			{name: mediadb.FieldDBID, kind: colInt},
			{name: mediadb.FieldTitle, kind: colText},
			{name: mediadb.FieldSearchTitle, kind: colText},
			{name: mediadb.FieldNumChildren, kind: colInt},
			{name: mediadb.FieldPlot, kind: colText},
			{name: mediadb.FieldPosterID, kind: colInt},
			{name: mediadb.FieldWallpaperID, kind: colInt},
			{name: mediadb.FieldNFOID, kind: colInt},
		},
		arrays: []arrayField{
			{field: mediadb.FieldGenre, arrTable: "show_genres_arr", idTable: "show_genres"},
		},
	},
	{
		id:   typeTVSeason,
		name: "seasons",
		pass: 2,
		cols: []column{
			{name: mediadb.FieldDBID, kind: colInt},
			{name: mediadb.FieldParentID, kind: colInt},
			{name: mediadb.FieldSeason, kind: colInt},
			{name: mediadb.FieldDuration, kind: colInt},
			{name: mediadb.FieldDate, kind: colText},
			{name: mediadb.FieldNumChildren, kind: colInt},
			{name: mediadb.FieldPosterID, kind: colInt},
			{name: mediadb.FieldWallpaperID, kind: colInt},
		},
	},
	{
		id:   typeTVEpisode,
		name: "episodes",
		pass: 2,
		cols: cols([]column{
			{name: mediadb.FieldDBID, kind: colInt},
			{name: mediadb.FieldParentID, kind: colInt},
			{name: mediadb.FieldTitle, kind: colText},
			{name: mediadb.FieldSearchTitle, kind: colText},
			{name: mediadb.FieldEpisodeNumber, kind: colInt},
			{name: mediadb.FieldDuration, kind: colInt},
			{name: mediadb.FieldDate, kind: colText},
			{name: mediadb.FieldScanDirID, kind: colInt},
			{name: mediadb.FieldPosterID, kind: colInt},
			{name: mediadb.FieldWallpaperID, kind: colInt},
		}, audioCols, videoCols),
		srcCols: fileCols("episode"),
	},
	{
		id:   typeMovie,
		name: "movies",
		pass: 2,
		cols: cols([]column{
			{name: mediadb.FieldDBID, kind: colInt},
			{name: mediadb.FieldTitle, kind: colText},
			{name: mediadb.FieldSearchTitle, kind: colText},
			{name: mediadb.FieldOriginalTitle, kind: colText},
			{name: mediadb.FieldDuration, kind: colInt},
			{name: mediadb.FieldPlot, kind: colText},
			{name: mediadb.FieldDate, kind: colText},
			{name: mediadb.FieldPosterID, kind: colInt},
			{name: mediadb.FieldWallpaperID, kind: colInt},
			{name: mediadb.FieldNFOID, kind: colInt},
		}, audioCols, videoCols),
		arrays: []arrayField{
			{field: mediadb.FieldDirector, arrTable: "movie_directors_arr", idTable: "movie_directors"},
			{field: mediadb.FieldActor, arrTable: "movie_actors_arr", idTable: "movie_actors"},
			{field: mediadb.FieldGenre, arrTable: "movie_genres_arr", idTable: "movie_genres"},
			{field: mediadb.FieldCountry, arrTable: "movie_countries_arr", idTable: "movie_countries"},
			{field: mediadb.FieldAudioLanguage, arrTable: "movie_audio_languages_arr", idTable: "movie_audio_languages"},
			{field: mediadb.FieldSubtitleLanguage, arrTable: "movie_subtitle_languages_arr", idTable: "movie_subtitle_languages"},
		},
	},
	{
		id:   typeMoviePart,
		name: "movie_parts",
		pass: 2,
		cols: []column{
			{name: mediadb.FieldDBID, kind: colInt},
			{name: mediadb.FieldScanDirID, kind: colInt},
			{name: mediadb.FieldDuration, kind: colInt},
			{name: mediadb.FieldIdx, kind: colInt},
			{name: mediadb.FieldParentID, kind: colInt},
		},
		srcCols: fileCols("movie"),
	},
}

func tableForType(t typeID) *objTable {
	for i := range objTables {
		if objTables[i].id == t {
			return &objTables[i]
		}
	}
	return nil
}

func (t *objTable) col(name string) *column {
	for i := range t.cols {
		if t.cols[i].name == name {
			return &t.cols[i]
		}
	}
	return nil
}

func (t *objTable) srcCol(name string) *column {
	for i := range t.srcCols {
		if t.srcCols[i].name == name {
			return &t.srcCols[i]
		}
	}
	return nil
}

func (t *objTable) array(field string) *arrayField {
	for i := range t.arrays {
		if t.arrays[i].field == field {
			return &t.arrays[i]
		}
	}
	return nil
}

func sqlType(k colKind) string {
	if k == colText {
		return "TEXT"
	}
	return "INTEGER"
}

// schemaStatements materializes the registry into CREATE TABLE
// statements. The first declared column of each object table is its
// primary key.
func schemaStatements() []string {
	stmts := []string{
		`CREATE TABLE objects (DBID INTEGER PRIMARY KEY, TYPE INTEGER)`,
		`CREATE TABLE scandirs (ID INTEGER PRIMARY KEY, PATH TEXT)`,
	}

	lookups := make(map[string]struct{})
	lookup := func(name string) {
		if _, ok := lookups[name]; ok {
			return
		}
		lookups[name] = struct{}{}
		stmts = append(stmts,
			fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (ID INTEGER PRIMARY KEY, NAME TEXT)", name))
	}

	for i := range objTables {
		tab := &objTables[i]

		var defs []string
		for j, c := range tab.cols {
			kind := sqlType(c.kind)
			if c.idTable != "" {
				kind = "INTEGER"
			}
			def := fmt.Sprintf("%q %s", c.name, kind)
			if j == 0 {
				def += " PRIMARY KEY"
			}
			defs = append(defs, def)
		}
		for _, c := range tab.srcCols {
			kind := sqlType(c.kind)
			if c.idTable != "" {
				kind = "INTEGER"
			}
			defs = append(defs, fmt.Sprintf("%q %s", c.name, kind))
		}

		stmts = append(stmts,
			fmt.Sprintf("CREATE TABLE %s (%s)", tab.name, strings.Join(defs, ", ")))

		for _, arr := range tab.arrays {
			lookup(arr.idTable)
			stmts = append(stmts,
				fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (ID INTEGER PRIMARY KEY, OBJ_ID INTEGER, NAME_ID INTEGER)", arr.arrTable))
		}
		for _, c := range tab.cols {
			if c.idTable != "" {
				lookup(c.idTable)
			}
		}
		for _, c := range tab.srcCols {
			if c.idTable != "" {
				lookup(c.idTable)
			}
		}
	}

	return stmts
}
