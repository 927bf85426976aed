package mediadb

import (
	"reflect"
	"testing"
)

func TestDictString(t *testing.T) {
	type Test struct {
		Name     string
		Dict     Dict
		Key      string
		Expected string
	}

	var testCases = []Test{
		{
			Name:     "String value",
			Dict:     Dict{"TITLE": "Parasite"},
			Key:      "TITLE",
			Expected: "Parasite",
		},
		{
			Name:     "First element of an array",
			Dict:     Dict{"Artist": []string{"Queen", "David Bowie"}},
			Key:      "Artist",
			Expected: "Queen",
		},
		{
			Name:     "Integer is formatted",
			Dict:     Dict{"SEASON": int64(3)},
			Key:      "SEASON",
			Expected: "3",
		},
		{
			Name:     "Missing key",
			Dict:     Dict{},
			Key:      "TITLE",
			Expected: "",
		},
		{
			Name:     "Nil dict",
			Dict:     nil,
			Key:      "TITLE",
			Expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			result := tc.Dict.String(tc.Key)
			if result != tc.Expected {
				t.Errorf("%q does not equal %q", result, tc.Expected)
			}
		})
	}
}

func TestDictInt(t *testing.T) {
	type Expected struct {
		Value int64
		OK    bool
	}

	type Test struct {
		Name     string
		Dict     Dict
		Key      string
		Expected Expected
	}

	var testCases = []Test{
		{
			Name:     "Int64 value",
			Dict:     Dict{"DBID": int64(42)},
			Key:      "DBID",
			Expected: Expected{42, true},
		},
		{
			Name:     "Plain int value",
			Dict:     Dict{"SEASON": 2},
			Key:      "SEASON",
			Expected: Expected{2, true},
		},
		{
			Name:     "Numeric string",
			Dict:     Dict{"TRACKNUMBER": "7"},
			Key:      "TRACKNUMBER",
			Expected: Expected{7, true},
		},
		{
			Name:     "Non-numeric string",
			Dict:     Dict{"TITLE": "Parasite"},
			Key:      "TITLE",
			Expected: Expected{0, false},
		},
		{
			Name:     "Missing key",
			Dict:     Dict{},
			Key:      "DBID",
			Expected: Expected{0, false},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			value, ok := tc.Dict.Int(tc.Key)
			if value != tc.Expected.Value || ok != tc.Expected.OK {
				t.Errorf("(%d, %t) does not equal (%d, %t)", value, ok, tc.Expected.Value, tc.Expected.OK)
			}
		})
	}
}

func TestDictAppend(t *testing.T) {
	d := Dict{"Genre": "Rock"}
	d.Append("Genre", "Pop")
	d.Append("Artist", "Queen")

	if want := []string{"Rock", "Pop"}; !reflect.DeepEqual(d.Strings("Genre"), want) {
		t.Errorf("%v does not equal %v", d.Strings("Genre"), want)
	}
	if want := []string{"Queen"}; !reflect.DeepEqual(d.Strings("Artist"), want) {
		t.Errorf("%v does not equal %v", d.Strings("Artist"), want)
	}
}

func TestDictClone(t *testing.T) {
	src := Dict{
		"TITLE":  "A Night at the Opera",
		"Artist": []string{"Queen"},
		"URI":    Dict{"URI": "/music/opera.flac"},
	}

	clone := src.Clone()
	if !reflect.DeepEqual(src, clone) {
		t.Fatalf("%v does not equal %v", clone, src)
	}

	clone.Append("Artist", "David Bowie")
	clone["URI"].(Dict).Set("URI", "/changed")

	if got := src.Strings("Artist"); len(got) != 1 {
		t.Errorf("clone mutated the source arrays: %v", got)
	}
	if got := src["URI"].(Dict).String("URI"); got != "/music/opera.flac" {
		t.Errorf("clone mutated the nested dict: %q", got)
	}
}

func TestDictMerge(t *testing.T) {
	d := Dict{"TITLE": "Kept"}
	d.Merge(Dict{
		"TITLE": "Overwritten",
		"DATE":  "1975-99-99",
	})

	if got := d.String("TITLE"); got != "Kept" {
		t.Errorf("existing field was overwritten: %q", got)
	}
	if got := d.String("DATE"); got != "1975-99-99" {
		t.Errorf("missing field was not merged: %q", got)
	}
}
