package main

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openmdb/mediadb/server"
)

// libraryStats periodically logs the size of the library.
func libraryStats(srv *server.Server, interval time.Duration) {
	st := time.NewTicker(interval)
	defer st.Stop()

	for range st.C {
		stats, err := srv.Stats()
		if err != nil {
			log.Error().
				Err(err).
				Msg("Failed determining library stats")
			continue
		}

		log.Info().
			Int64("songs", stats["songs"]).
			Int64("albums", stats["albums"]).
			Int64("movies", stats["movies"]).
			Int64("shows", stats["shows"]).
			Int64("added", stats["added"]).
			Int64("removed", stats["removed"]).
			Msg("Library stats")
	}
}
