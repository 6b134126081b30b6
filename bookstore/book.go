package bookstore

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// max length in bytes of text fields. On disk each field
// has one more byte for the NUL terminator
const (
	MaxTitleLen  = 99
	MaxAuthorLen = 99
	MaxISBNLen   = 12
)

// Book is a single catalog entry
type Book struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	ISBN      string `json:"isbn"`
	Year      int    `json:"year"`
	Available bool   `json:"available"`
}

// AvailabilityString returns "Available" or "Not Available"
func (b *Book) AvailabilityString() string {
	if b.Available {
		return "Available"
	}
	return "Not Available"
}

// Entry is a book together with its 1-based position in the store
type Entry struct {
	ID   int
	Book Book
}

// trimInput removes trailing newline and other whitespace left over
// from reading a line of input
func trimInput(s string) string {
	return strings.TrimRightFunc(s, unicode.IsSpace)
}

// truncate limits s to at most max bytes without splitting
// a utf-8 sequence
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	s = s[:max]
	for len(s) > 0 {
		r, size := utf8.DecodeLastRuneInString(s)
		if r != utf8.RuneError || size > 1 {
			break
		}
		s = s[:len(s)-1]
	}
	return s
}

// cleanText makes s fit a NUL terminated field of max bytes.
// Text after an embedded NUL would be lost on disk so it's dropped here.
func cleanText(s string, max int) string {
	if idx := strings.IndexByte(s, 0); idx != -1 {
		s = s[:idx]
	}
	return truncate(trimInput(s), max)
}
