package note

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	unsafeChars  = regexp.MustCompile(`[<>:"/\\|?*]+`)
	whitespace   = regexp.MustCompile(`\s+`)
	multiHyphens = regexp.MustCompile(`-{2,}`)
)

const maxTitleSlug = 50

// SanitizeTitle produces the filename slug for a title: lowercase,
// filesystem-unsafe characters and whitespace runs collapsed to single
// hyphens, trimmed, truncated to 50 characters.
func SanitizeTitle(title string) string {
	s := strings.ToLower(title)
	s = unsafeChars.ReplaceAllString(s, "-")
	s = whitespace.ReplaceAllString(s, "-")
	s = multiHyphens.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxTitleSlug {
		// Back off to a rune boundary so the cut never leaves invalid
		// UTF-8 in the filename.
		cut := maxTitleSlug
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = strings.Trim(s[:cut], "-")
	}
	if s == "" {
		s = "untitled"
	}
	return s
}

// FileName returns the canonical filename for a note.
func FileName(title, uid string) string {
	return SanitizeTitle(title) + "-" + uid + ".md"
}
