package backend

import (
	"fmt"
	"strings"
)

// Alphabetic grouping for long name lists (artists, actors, song
// titles). Groups are addressed by id in browse paths: "0-9", "a"
// through "z" and "others".
type group struct {
	id    string
	label string
}

var groups = buildGroups()

func buildGroups() []group {
	out := make([]group, 0, 28)
	out = append(out, group{id: "0-9", label: "0-9"})
	for c := 'a'; c <= 'z'; c++ {
		out = append(out, group{id: string(c), label: strings.ToUpper(string(c))})
	}
	out = append(out, group{id: "others", label: "Others"})
	return out
}

func groupLabel(id string) string {
	for _, g := range groups {
		if g.id == id {
			return g.label
		}
	}
	return ""
}

// groupCondition returns a SQL match clause for the group, to be
// appended after a column name. Unknown ids return "".
func groupCondition(id string) string {
	switch {
	case id == "0-9":
		return `GLOB '[0-9]*'`
	case id == "others":
		return `NOT GLOB '[0-9a-zA-Z]*'`
	case len(id) == 1 && id[0] >= 'a' && id[0] <= 'z':
		return fmt.Sprintf("GLOB '[%c%c]*'", id[0], id[0]-'a'+'A')
	}
	return ""
}

// inGroup reports whether name falls into the group.
func inGroup(id, name string) bool {
	if name == "" {
		return id == "others"
	}

	c := name[0]
	switch {
	case id == "0-9":
		return c >= '0' && c <= '9'
	case id == "others":
		return !(c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z')
	case len(id) == 1:
		return c == id[0] || c == id[0]-'a'+'A'
	}
	return false
}

// groupID returns the id of the group name falls into.
func groupID(name string) string {
	for _, g := range groups {
		if inGroup(g.id, name) {
			return g.id
		}
	}
	return "others"
}

// groupSize returns how many names fall into the given group.
func groupSize(names []string, id string) int {
	n := 0
	for _, name := range names {
		if inGroup(id, name) {
			n++
		}
	}
	return n
}
