package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/openmdb/mediadb"
	"github.com/openmdb/mediadb/backend"
)

type fakeLoader struct{}

func (f *fakeLoader) Load(uri string) ([]*mediadb.Track, error) {
	return nil, nil
}

func newTestServer(t *testing.T, c Config) (*Server, *backend.Backend) {
	t.Helper()

	b, err := backend.New(t.TempDir(), &fakeLoader{}, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("Could not create the backend: %v", err)
	}

	t.Cleanup(func() {
		_ = b.Close()
	})

	return New(b, c), b
}

func seedSong(t *testing.T, b *backend.Backend) {
	t.Helper()

	b.Handle(mediadb.Command{
		Verb:        mediadb.CmdSetDirectories,
		Directories: []string{t.TempDir()},
	}, func(ev mediadb.Event) {
		if ev.Verb == mediadb.EvError {
			t.Fatalf("Could not seed the backend: %v", ev.Err)
		}
	})
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	router := srv.Router(Config{})

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status %d does not equal %d", rr.Code, http.StatusOK)
	}
}

func TestAuth(t *testing.T) {
	type Given struct {
		Config   Config
		Username string
		Password string
	}

	type Test struct {
		Name     string
		Given    Given
		Expected int
	}

	protected := Config{Username: "admin", Password: "secret"}

	var testCases = []Test{
		{
			Name:     "No credentials configured",
			Given:    Given{Config: Config{}},
			Expected: http.StatusOK,
		},
		{
			Name:     "Valid credentials",
			Given:    Given{Config: protected, Username: "admin", Password: "secret"},
			Expected: http.StatusOK,
		},
		{
			Name:     "Missing credentials",
			Given:    Given{Config: protected},
			Expected: http.StatusUnauthorized,
		},
		{
			Name:     "Wrong password",
			Given:    Given{Config: protected, Username: "admin", Password: "nope"},
			Expected: http.StatusUnauthorized,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			srv, _ := newTestServer(t, tc.Given.Config)
			router := srv.Router(tc.Given.Config)

			req := httptest.NewRequest("GET", "/api/directories", nil)
			if tc.Given.Username != "" || tc.Given.Password != "" {
				req.SetBasicAuth(tc.Given.Username, tc.Given.Password)
			}

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.Expected {
				t.Errorf("status %d does not equal %d", rr.Code, tc.Expected)
			}
		})
	}
}

func TestObjectHandler(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	router := srv.Router(Config{})

	req := httptest.NewRequest("GET", "/api/object", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status %d does not equal %d", rr.Code, http.StatusOK)
	}

	var resp struct {
		Path    string         `json:"path"`
		Objects []mediadb.Dict `json:"objects"`
		Total   int            `json:"total"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Could not decode the response: %v", err)
	}

	if resp.Path != "/" || resp.Total != 1 || len(resp.Objects) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if got := resp.Objects[0].String(mediadb.FieldID); got != "/" {
		t.Errorf("object id %q does not equal /", got)
	}
}

func TestObjectHandlerNotFound(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	router := srv.Router(Config{})

	req := httptest.NewRequest("GET", "/api/object/nope", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status %d does not equal %d", rr.Code, http.StatusNotFound)
	}
}

func TestDirectories(t *testing.T) {
	srv, b := newTestServer(t, Config{})
	router := srv.Router(Config{})

	dir := t.TempDir()
	body, _ := json.Marshal([]string{dir})

	req := httptest.NewRequest("POST", "/api/directories", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status %d does not equal %d", rr.Code, http.StatusNoContent)
	}

	req = httptest.NewRequest("GET", "/api/directories", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status %d does not equal %d", rr.Code, http.StatusOK)
	}

	var dirs []string
	if err := json.NewDecoder(rr.Body).Decode(&dirs); err != nil {
		t.Fatalf("Could not decode the response: %v", err)
	}
	if len(dirs) != 1 || dirs[0] != dir {
		t.Errorf("%v does not equal [%s]", dirs, dir)
	}

	got, err := b.Directories()
	if err != nil || len(got) != 1 {
		t.Errorf("backend directories %v do not match: %v", got, err)
	}
}

func TestStatsHandler(t *testing.T) {
	srv, b := newTestServer(t, Config{})
	router := srv.Router(Config{})
	seedSong(t, b)

	req := httptest.NewRequest("GET", "/api/stats", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status %d does not equal %d", rr.Code, http.StatusOK)
	}

	var stats map[string]int64
	if err := json.NewDecoder(rr.Body).Decode(&stats); err != nil {
		t.Fatalf("Could not decode the response: %v", err)
	}
	for _, key := range []string{"songs", "albums", "movies", "shows", "added", "removed"} {
		if _, ok := stats[key]; !ok {
			t.Errorf("stats is missing %s", key)
		}
	}
}

func TestChildrenHandler(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	router := srv.Router(Config{})

	req := httptest.NewRequest("GET", "/api/children", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status %d does not equal %d", rr.Code, http.StatusOK)
	}

	var resp struct {
		Path    string         `json:"path"`
		Objects []mediadb.Dict `json:"objects"`
		Total   int            `json:"total"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Could not decode the response: %v", err)
	}

	// empty database shows no root containers
	if resp.Total != 0 || len(resp.Objects) != 0 {
		t.Errorf("unexpected response: %+v", resp)
	}
}
