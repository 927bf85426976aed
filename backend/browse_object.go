package backend

import (
	"fmt"
	"strings"
	"time"

	"github.com/openmdb/mediadb"
)

func joinChild(path, seg string) string {
	if path == "" || path == "/" {
		return "/" + seg
	}
	return strings.TrimRight(path, "/") + "/" + seg
}

func parentPath(path string) string {
	segs := splitPath(path)
	if len(segs) <= 1 {
		return "/"
	}
	return "/" + strings.Join(segs[:len(segs)-1], "/")
}

// containerDict builds the browse object of a virtual container. The
// child count is derived from the child list itself.
func (b *Backend) containerDict(path, label, class string) (mediadb.Dict, error) {
	children, err := b.childSegments(path)
	if err != nil {
		return nil, err
	}
	return mediadb.Dict{
		mediadb.FieldID:          path,
		mediadb.FieldLabel:       label,
		mediadb.FieldClass:       class,
		mediadb.FieldNumChildren: int64(len(children)),
	}, nil
}

func (b *Backend) nameDict(path, idTable, class, seg string) (mediadb.Dict, error) {
	id, ok := parseID(seg)
	if !ok {
		return nil, mediadb.ErrNotFound
	}
	name, err := b.store.idToString(b.store.DB, idTable, "NAME", "ID", id)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, mediadb.ErrNotFound
	}
	return b.containerDict(path, name, class)
}

func (b *Backend) groupDict(path, seg string) (mediadb.Dict, error) {
	label := groupLabel(seg)
	if label == "" {
		return nil, mediadb.ErrNotFound
	}
	return b.containerDict(path, label, mediadb.ClassContainer)
}

func (b *Backend) yearDict(path, seg string) (mediadb.Dict, error) {
	return b.containerDict(path, yearLabel(seg), mediadb.ClassContainerYear)
}

// allEpisodesDict is the synthetic "all episodes" season below a show.
func (b *Backend) allEpisodesDict(path, showSeg string) (mediadb.Dict, error) {
	showID, ok := parseID(showSeg)
	if !ok {
		return nil, mediadb.ErrNotFound
	}

	m, err := b.containerDict(path, "All episodes", mediadb.ClassTVSeason)
	if err != nil {
		return nil, err
	}

	show, err := b.queryObject(b.store.DB, showID, typeTVShow)
	if err != nil {
		return nil, err
	}
	for _, field := range []string{mediadb.FieldPosterURL, mediadb.FieldWallpaperURL} {
		if show.Meta.Has(field) {
			m.Set(field, show.Meta[field])
		}
	}
	return m, nil
}

// objectDict resolves a database object into its browse form: label,
// class and the shortcut paths into the facet tree.
func (b *Backend) objectDict(path, seg string) (mediadb.Dict, error) {
	id, ok := parseID(seg)
	if !ok {
		return nil, mediadb.ErrNotFound
	}

	track, err := b.queryObject(b.store.DB, id, 0)
	if err != nil {
		return nil, err
	}

	m := track.Meta
	if src := track.Source(0); src != nil {
		m.Merge(src)
	}
	m.Set(mediadb.FieldID, path)

	title := m.String(mediadb.FieldTitle)
	year := yearOf(m.String(mediadb.FieldDate))

	nameRef := func(field string) (string, string) {
		names := m.Strings(field)
		ids := m.Strings(field + mediadb.IDSuffix)
		if len(names) == 0 || len(ids) == 0 {
			return "", ""
		}
		return names[0], ids[0]
	}

	setContainer := func(field, path string) {
		m.Set(field+mediadb.ContainerSuffix, path)
	}

	switch m.String(mediadb.FieldClass) {
	case mediadb.ClassSong:
		m.Set(mediadb.FieldLabel, title)
		if name, nameID := nameRef(mediadb.FieldArtist); nameID != "" {
			setContainer(mediadb.FieldArtist, "/songs/artist/"+groupID(name)+"/"+nameID)
		}
		if _, nameID := nameRef(mediadb.FieldGenre); nameID != "" {
			setContainer(mediadb.FieldGenre, "/songs/genre-artist/"+nameID)
		}
		if year != "" {
			m.Set("Year"+mediadb.ContainerSuffix, "/songs/year/"+year)
		}

	case mediadb.ClassAlbum:
		if year != "" && year != "9999" {
			m.Set(mediadb.FieldLabel, fmt.Sprintf("%s (%s)", title, year))
		} else {
			m.Set(mediadb.FieldLabel, title)
		}
		if name, nameID := nameRef(mediadb.FieldArtist); nameID != "" {
			setContainer(mediadb.FieldArtist, "/albums/artist/"+groupID(name)+"/"+nameID)
		}
		if _, nameID := nameRef(mediadb.FieldGenre); nameID != "" {
			setContainer(mediadb.FieldGenre, "/albums/genre-artist/"+nameID)
		}
		if year != "" {
			m.Set("Year"+mediadb.ContainerSuffix, "/albums/year/"+year)
		}

	case mediadb.ClassMovie:
		m.Set(mediadb.FieldLabel, title)
		if name, nameID := nameRef(mediadb.FieldActor); nameID != "" {
			setContainer(mediadb.FieldActor, "/movies/actor/"+groupID(name)+"/"+nameID)
		}
		if name, nameID := nameRef(mediadb.FieldDirector); nameID != "" {
			setContainer(mediadb.FieldDirector, "/movies/director/"+groupID(name)+"/"+nameID)
		}
		if _, nameID := nameRef(mediadb.FieldGenre); nameID != "" {
			setContainer(mediadb.FieldGenre, "/movies/genre/"+nameID)
		}
		if _, nameID := nameRef(mediadb.FieldCountry); nameID != "" {
			setContainer(mediadb.FieldCountry, "/movies/country/"+nameID)
		}
		if year != "" {
			m.Set("Year"+mediadb.ContainerSuffix, "/movies/year/"+year)
		}

	case mediadb.ClassTVShow:
		m.Set(mediadb.FieldLabel, title)
		// the synthetic "all episodes" entry
		if num, ok := m.Int(mediadb.FieldNumChildren); ok {
			m.Set(mediadb.FieldNumChildren, num+1)
		}

	case mediadb.ClassTVSeason:
		if season, ok := m.Int(mediadb.FieldSeason); ok {
			m.Set(mediadb.FieldLabel, fmt.Sprintf("Season %d", season))
		}

	default:
		m.Set(mediadb.FieldLabel, title)
	}

	return m, nil
}

// objectForPath resolves a browse path to its object, without the
// sibling links.
func (b *Backend) objectForPath(path string) (mediadb.Dict, error) {
	segs := splitPath(path)

	if len(segs) == 0 {
		return mediadb.Dict{
			mediadb.FieldID:          "/",
			mediadb.FieldClass:       mediadb.ClassContainer,
			mediadb.FieldNumChildren: int64(len(b.roots)),
		}, nil
	}

	if len(segs) == 1 {
		r := rootByID("/" + segs[0])
		if r == nil {
			return nil, mediadb.ErrNotFound
		}
		return r.dict(), nil
	}

	rest := segs[1:]
	switch "/" + segs[0] {
	case "/songs":
		return b.songObject(path, rest)
	case "/albums":
		return b.albumObject(path, rest)
	case "/movies":
		return b.movieObject(path, rest)
	case "/series":
		return b.seriesObject(path, rest)
	}
	return nil, mediadb.ErrNotFound
}

func (b *Backend) songObject(path string, rest []string) (mediadb.Dict, error) {
	if len(rest) == 1 {
		if label := facetLabel(songFacets, rest[0]); label != "" {
			return b.containerDict(path, label, mediadb.ClassContainer)
		}
		return nil, mediadb.ErrNotFound
	}

	last := rest[len(rest)-1]

	switch rest[0] {
	case "artist":
		switch len(rest) {
		case 2:
			return b.groupDict(path, last)
		case 3:
			return b.nameDict(path, "song_artists", mediadb.ClassContainerArtist, last)
		case 4:
			return b.objectDict(path, last)
		}
	case "genre":
		switch len(rest) {
		case 2:
			return b.nameDict(path, "song_genres", mediadb.ClassContainerGenre, last)
		case 3:
			return b.groupDict(path, last)
		case 4:
			return b.objectDict(path, last)
		}
	case "genre-artist":
		switch len(rest) {
		case 2:
			return b.nameDict(path, "song_genres", mediadb.ClassContainerGenre, last)
		case 3:
			return b.nameDict(path, "song_artists", mediadb.ClassContainerArtist, last)
		case 4:
			return b.objectDict(path, last)
		}
	case "genre-year":
		switch len(rest) {
		case 2:
			return b.nameDict(path, "song_genres", mediadb.ClassContainerGenre, last)
		case 3:
			return b.yearDict(path, last)
		case 4:
			return b.objectDict(path, last)
		}
	case "year":
		switch len(rest) {
		case 2:
			return b.yearDict(path, last)
		case 3:
			return b.objectDict(path, last)
		}
	}
	return nil, mediadb.ErrNotFound
}

func (b *Backend) albumObject(path string, rest []string) (mediadb.Dict, error) {
	if len(rest) == 1 {
		if label := facetLabel(albumFacets, rest[0]); label != "" {
			return b.containerDict(path, label, mediadb.ClassContainer)
		}
		return nil, mediadb.ErrNotFound
	}

	last := rest[len(rest)-1]

	switch rest[0] {
	case "artist":
		switch len(rest) {
		case 2:
			return b.groupDict(path, last)
		case 3:
			return b.nameDict(path, "album_artists", mediadb.ClassContainerArtist, last)
		case 4, 5:
			return b.objectDict(path, last)
		}
	case "genre-artist":
		switch len(rest) {
		case 2:
			return b.nameDict(path, "album_genres", mediadb.ClassContainerGenre, last)
		case 3:
			return b.nameDict(path, "album_artists", mediadb.ClassContainerArtist, last)
		case 4, 5:
			return b.objectDict(path, last)
		}
	case "genre-year":
		switch len(rest) {
		case 2:
			return b.nameDict(path, "album_genres", mediadb.ClassContainerGenre, last)
		case 3:
			return b.yearDict(path, last)
		case 4, 5:
			return b.objectDict(path, last)
		}
	case "year":
		switch len(rest) {
		case 2:
			return b.yearDict(path, last)
		case 3, 4:
			return b.objectDict(path, last)
		}
	}
	return nil, mediadb.ErrNotFound
}

func (b *Backend) movieObject(path string, rest []string) (mediadb.Dict, error) {
	if len(rest) == 1 {
		if label := facetLabel(movieFacets, rest[0]); label != "" {
			return b.containerDict(path, label, mediadb.ClassContainer)
		}
		return nil, mediadb.ErrNotFound
	}

	last := rest[len(rest)-1]

	switch rest[0] {
	case "all":
		if len(rest) == 2 {
			return b.objectDict(path, last)
		}
	case "actor":
		switch len(rest) {
		case 2:
			return b.groupDict(path, last)
		case 3:
			return b.nameDict(path, "movie_actors", mediadb.ClassContainerActor, last)
		case 4:
			return b.objectDict(path, last)
		}
	case "director":
		switch len(rest) {
		case 2:
			return b.groupDict(path, last)
		case 3:
			return b.nameDict(path, "movie_directors", mediadb.ClassContainerDirector, last)
		case 4:
			return b.objectDict(path, last)
		}
	case "genre":
		switch len(rest) {
		case 2:
			return b.nameDict(path, "movie_genres", mediadb.ClassContainerGenre, last)
		case 3:
			return b.objectDict(path, last)
		}
	case "country":
		switch len(rest) {
		case 2:
			return b.nameDict(path, "movie_countries", mediadb.ClassContainerCountry, last)
		case 3:
			return b.objectDict(path, last)
		}
	case "language":
		switch len(rest) {
		case 2:
			return b.nameDict(path, "movie_audio_languages", mediadb.ClassContainerLanguage, last)
		case 3:
			return b.objectDict(path, last)
		}
	case "year":
		switch len(rest) {
		case 2:
			return b.yearDict(path, last)
		case 3:
			return b.objectDict(path, last)
		}
	}
	return nil, mediadb.ErrNotFound
}

func (b *Backend) seriesObject(path string, rest []string) (mediadb.Dict, error) {
	if len(rest) == 1 {
		if label := facetLabel(seriesFacets, rest[0]); label != "" {
			return b.containerDict(path, label, mediadb.ClassContainer)
		}
		return nil, mediadb.ErrNotFound
	}

	last := rest[len(rest)-1]

	switch rest[0] {
	case "all":
		switch len(rest) {
		case 2:
			return b.objectDict(path, last)
		case 3:
			if last == "all" {
				return b.allEpisodesDict(path, rest[1])
			}
			return b.objectDict(path, last)
		case 4:
			return b.objectDict(path, last)
		}
	case "genre":
		switch len(rest) {
		case 2:
			return b.nameDict(path, "show_genres", mediadb.ClassContainerGenre, last)
		case 3:
			return b.objectDict(path, last)
		case 4:
			if last == "all" {
				return b.allEpisodesDict(path, rest[2])
			}
			return b.objectDict(path, last)
		case 5:
			return b.objectDict(path, last)
		}
	}
	return nil, mediadb.ErrNotFound
}

// BrowseObject resolves a path to its object, including the links to
// the previous and next sibling.
func (b *Backend) BrowseObject(path string) (mediadb.Dict, error) {
	obj, err := b.objectForPath(path)
	if err != nil {
		return nil, err
	}

	segs := splitPath(path)
	if len(segs) == 0 {
		return obj, nil
	}

	parent := parentPath(path)
	siblings, err := b.childSegments(parent)
	if err != nil {
		return obj, nil
	}

	last := segs[len(segs)-1]
	for i, seg := range siblings {
		if seg != last {
			continue
		}
		if i > 0 {
			obj.Set(mediadb.FieldPreviousID, joinChild(parent, siblings[i-1]))
		}
		if i < len(siblings)-1 {
			obj.Set(mediadb.FieldNextID, joinChild(parent, siblings[i+1]))
		}
		break
	}
	return obj, nil
}

// browseFlushInterval is how long child objects are batched before an
// incremental reply goes out.
const browseFlushInterval = time.Second

// BrowseChildren resolves the requested window of a container's
// children and delivers them through sink, in batches when the
// listing takes long.
func (b *Backend) BrowseChildren(cmd mediadb.Command, sink mediadb.EventSink) error {
	segs, err := b.childSegments(cmd.Path)
	if err != nil {
		return err
	}

	total := len(segs)
	start := cmd.Start
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	num := cmd.Num
	if num <= 0 || start+num > total {
		num = total - start
	}

	var (
		batch     []mediadb.Dict
		idx       = start
		lastFlush = time.Now()
	)

	flush := func(last bool) {
		b.reply(sink, mediadb.Event{
			Verb:          mediadb.EvObject,
			CorrelationID: cmd.CorrelationID,
			Path:          cmd.Path,
			Objects:       batch,
			Idx:           idx,
			Total:         total,
			Last:          last,
		})
		idx += len(batch)
		batch = nil
		lastFlush = time.Now()
	}

	for i := start; i < start+num; i++ {
		childPath := joinChild(cmd.Path, segs[i])

		obj, err := b.objectForPath(childPath)
		if err != nil {
			return err
		}
		if i > 0 {
			obj.Set(mediadb.FieldPreviousID, joinChild(cmd.Path, segs[i-1]))
		}
		if i < total-1 {
			obj.Set(mediadb.FieldNextID, joinChild(cmd.Path, segs[i+1]))
		}
		batch = append(batch, obj)

		if !cmd.OneAnswer && time.Since(lastFlush) > browseFlushInterval {
			flush(false)
		}
	}

	flush(true)
	return nil
}
