// Package server exposes the media database over HTTP: browsing the
// object tree and managing the scan directories.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openmdb/mediadb"
	"github.com/openmdb/mediadb/backend"
)

type Config struct {
	Verbosity string `yaml:"verbosity"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

// Server serializes HTTP access to the backend; the backend itself is
// single-threaded.
type Server struct {
	backend *backend.Backend
	log     zerolog.Logger

	mu sync.Mutex
}

func New(b *backend.Backend, c Config) *Server {
	return &Server{
		backend: b,
		log:     mediadb.GetLogger(c.Verbosity).With().Str("component", "server").Logger(),
	}
}

// Router builds the HTTP routes. Authentication applies to the API,
// not to the health check.
func (s *Server) Router(c Config) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(WithLogger(s.log))

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(WithAuth(c.Username, c.Password))

		r.Get("/object", s.objectHandler)
		r.Get("/object/*", s.objectHandler)
		r.Get("/children", s.childrenHandler)
		r.Get("/children/*", s.childrenHandler)

		r.Get("/directories", s.directoriesHandler)
		r.Post("/directories", s.setDirectoriesHandler)
		r.Post("/rescan", s.rescanHandler)

		r.Get("/stats", s.statsHandler)
	})

	return r
}

func healthHandler(rw http.ResponseWriter, r *http.Request) {
	rw.WriteHeader(http.StatusOK)
}

// run executes a command on the backend and collects its replies.
func (s *Server) run(cmd mediadb.Command) []mediadb.Event {
	cmd.CorrelationID = uuid.NewString()

	var events []mediadb.Event

	s.mu.Lock()
	s.backend.Handle(cmd, func(ev mediadb.Event) {
		events = append(events, ev)
	})
	s.mu.Unlock()

	return events
}

// Sync re-synchronizes one scan directory. Used by the filesystem
// watcher, which shares the server's serialization.
func (s *Server) Sync(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.AddDirectory(dir)
}

// Rescan re-synchronizes every scan directory.
func (s *Server) Rescan() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Rescan()
}

// Stats returns the backend's library statistics.
func (s *Server) Stats() (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Stats()
}

type browseResponse struct {
	Path    string         `json:"path"`
	Objects []mediadb.Dict `json:"objects"`
	Total   int            `json:"total"`
}

func wildcardPath(r *http.Request) string {
	return "/" + chi.URLParam(r, "*")
}

func writeJSON(rw http.ResponseWriter, v any) {
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(v)
}

func writeError(rw http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, mediadb.ErrNotFound) {
		status = http.StatusNotFound
	}
	http.Error(rw, err.Error(), status)
}

func firstError(events []mediadb.Event) error {
	for _, ev := range events {
		if ev.Verb == mediadb.EvError {
			return ev.Err
		}
	}
	return nil
}

func (s *Server) objectHandler(rw http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)

	events := s.run(mediadb.Command{
		Verb: mediadb.CmdBrowseObject,
		Path: path,
	})
	if err := firstError(events); err != nil {
		writeError(rw, err)
		return
	}

	resp := browseResponse{Path: path}
	for _, ev := range events {
		resp.Objects = append(resp.Objects, ev.Objects...)
	}
	resp.Total = len(resp.Objects)

	writeJSON(rw, resp)
}

func (s *Server) childrenHandler(rw http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)

	start, _ := strconv.Atoi(r.URL.Query().Get("start"))
	num, _ := strconv.Atoi(r.URL.Query().Get("num"))

	events := s.run(mediadb.Command{
		Verb:      mediadb.CmdBrowseChildren,
		Path:      path,
		Start:     start,
		Num:       num,
		OneAnswer: true,
	})
	if err := firstError(events); err != nil {
		writeError(rw, err)
		return
	}

	resp := browseResponse{Path: path}
	for _, ev := range events {
		resp.Objects = append(resp.Objects, ev.Objects...)
		resp.Total = ev.Total
	}

	writeJSON(rw, resp)
}

func (s *Server) directoriesHandler(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	dirs, err := s.backend.Directories()
	s.mu.Unlock()

	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, dirs)
}

func (s *Server) setDirectoriesHandler(rw http.ResponseWriter, r *http.Request) {
	var dirs []string
	if err := json.NewDecoder(r.Body).Decode(&dirs); err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}

	events := s.run(mediadb.Command{
		Verb:        mediadb.CmdSetDirectories,
		Directories: dirs,
	})
	if err := firstError(events); err != nil {
		writeError(rw, err)
		return
	}

	rw.WriteHeader(http.StatusNoContent)
}

func (s *Server) rescanHandler(rw http.ResponseWriter, r *http.Request) {
	events := s.run(mediadb.Command{Verb: mediadb.CmdRescan})
	if err := firstError(events); err != nil {
		writeError(rw, err)
		return
	}

	rw.WriteHeader(http.StatusNoContent)
}

func (s *Server) statsHandler(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	stats, err := s.backend.Stats()
	s.mu.Unlock()

	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, stats)
}
