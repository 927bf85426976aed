package mediadb

import "strings"

var titleArticles = []string{"the ", "a ", "an ", "der ", "die ", "das ", "le ", "la ", "les "}

// SearchTitle derives the sort key for a title: lower case with a
// leading article removed.
func SearchTitle(title string) string {
	s := strings.ToLower(title)
	for _, article := range titleArticles {
		if strings.HasPrefix(s, article) {
			return strings.TrimSpace(s[len(article):])
		}
	}
	return s
}
