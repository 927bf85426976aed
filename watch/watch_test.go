package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRootOf(t *testing.T) {
	d := &daemon{roots: []string{"/media/music", "/media/movies"}}

	type Test struct {
		Name     string
		Path     string
		Expected string
	}

	var testCases = []Test{
		{
			Name:     "File below a root",
			Path:     "/media/music/queen/opera.flac",
			Expected: "/media/music",
		},
		{
			Name:     "The root itself",
			Path:     "/media/movies",
			Expected: "/media/movies",
		},
		{
			Name:     "Sibling with a shared prefix",
			Path:     "/media/musical/cats.mkv",
			Expected: "",
		},
		{
			Name:     "Outside every root",
			Path:     "/tmp/file",
			Expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			result := d.rootOf(tc.Path)
			if result != tc.Expected {
				t.Errorf("%q does not equal %q", result, tc.Expected)
			}
		})
	}
}

func TestWatchTriggersSync(t *testing.T) {
	dir := t.TempDir()

	synced := make(chan string, 1)
	callback := func(root string) error {
		select {
		case synced <- root:
		default:
		}
		return nil
	}

	w, err := New(Config{
		Settle:      50 * time.Millisecond,
		MinInterval: 10 * time.Millisecond,
	}, []string{dir}, callback)
	if err != nil {
		t.Fatalf("Could not create the watcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "new.flac"), []byte("x"), 0o644); err != nil {
		t.Fatalf("Could not write the file: %v", err)
	}

	select {
	case root := <-synced:
		if root != dir {
			t.Errorf("%q does not equal %q", root, dir)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no sync after a filesystem change")
	}
}
