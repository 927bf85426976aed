package backend

import (
	"reflect"
	"testing"
)

func TestGroupID(t *testing.T) {
	type Test struct {
		Name     string
		Input    string
		Expected string
	}

	var testCases = []Test{
		{
			Name:     "Lower case letter",
			Input:    "queen",
			Expected: "q",
		},
		{
			Name:     "Upper case letter",
			Input:    "Queen",
			Expected: "q",
		},
		{
			Name:     "Digit",
			Input:    "2Pac",
			Expected: "0-9",
		},
		{
			Name:     "Punctuation",
			Input:    "!!!",
			Expected: "others",
		},
		{
			Name:     "Empty name",
			Input:    "",
			Expected: "others",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			result := groupID(tc.Input)
			if result != tc.Expected {
				t.Errorf("%s does not equal %s", result, tc.Expected)
			}
		})
	}
}

func TestGroupCondition(t *testing.T) {
	type Test struct {
		Name     string
		Input    string
		Expected string
	}

	var testCases = []Test{
		{
			Name:     "Letter matches both cases",
			Input:    "q",
			Expected: "GLOB '[qQ]*'",
		},
		{
			Name:     "Digits",
			Input:    "0-9",
			Expected: "GLOB '[0-9]*'",
		},
		{
			Name:     "Others",
			Input:    "others",
			Expected: "NOT GLOB '[0-9a-zA-Z]*'",
		},
		{
			Name:     "Unknown group",
			Input:    "zz",
			Expected: "",
		},
		{
			Name:     "Upper case letter is not a group id",
			Input:    "Q",
			Expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			result := groupCondition(tc.Input)
			if result != tc.Expected {
				t.Errorf("%s does not equal %s", result, tc.Expected)
			}
		})
	}
}

func TestNonEmptyGroups(t *testing.T) {
	names := []string{"Queen", "quicksand", "2Pac", "!!!"}

	want := []string{"0-9", "q", "others"}
	if got := nonEmptyGroups(names); !reflect.DeepEqual(got, want) {
		t.Errorf("%v does not equal %v", got, want)
	}
}

func TestGroupCount(t *testing.T) {
	if got := len(groups); got != 28 {
		t.Errorf("group count %d does not equal 28", got)
	}
	if got := groups[0].id; got != "0-9" {
		t.Errorf("first group %q does not equal 0-9", got)
	}
	if got := groups[len(groups)-1].id; got != "others" {
		t.Errorf("last group %q does not equal others", got)
	}
}
