// Package catalog exports books in human-readable formats and
// imports them back.
package catalog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/kjk/bookstore/bookstore"
	"github.com/kjk/bookstore/siser"
	"github.com/tidwall/pretty"
	"github.com/toon-format/toon-go"
)

// Format is the name of an export / import format
type Format string

const (
	FormatJSON  Format = "json"
	FormatTOON  Format = "toon"
	FormatSiser Format = "siser"
)

// siser record name for a book
const bookRecordName = "book"

// ParseFormat validates format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatTOON, FormatSiser:
		return f, nil
	}
	return "", fmt.Errorf("unknown format '%s', must be one of: json, toon, siser", s)
}

// CanImport returns true if we can import data in this format
func (f Format) CanImport() bool {
	return f == FormatJSON || f == FormatSiser
}

type jsonCatalog struct {
	Books []bookstore.Book `json:"books"`
}

func bookToMap(id int, b *bookstore.Book) map[string]any {
	return map[string]any{
		"id":        id,
		"title":     b.Title,
		"author":    b.Author,
		"isbn":      b.ISBN,
		"year":      b.Year,
		"available": b.Available,
	}
}

// Export writes books to w in a given format
func Export(w io.Writer, entries []bookstore.Entry, format Format) error {
	switch format {
	case FormatJSON:
		return exportJSON(w, entries)
	case FormatTOON:
		return exportTOON(w, entries)
	case FormatSiser:
		return exportSiser(w, entries)
	}
	return fmt.Errorf("unknown format '%s'", format)
}

func exportJSON(w io.Writer, entries []bookstore.Entry) error {
	c := jsonCatalog{Books: make([]bookstore.Book, 0, len(entries))}
	for _, e := range entries {
		c.Books = append(c.Books, e.Book)
	}
	d, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = w.Write(pretty.Pretty(d))
	return err
}

func exportTOON(w io.Writer, entries []bookstore.Entry) error {
	books := make([]any, 0, len(entries))
	for _, e := range entries {
		books = append(books, bookToMap(e.ID, &e.Book))
	}
	d, err := toon.Marshal(map[string]any{"books": books})
	if err != nil {
		return err
	}
	if len(d) > 0 && d[len(d)-1] != '\n' {
		d = append(d, '\n')
	}
	_, err = w.Write(d)
	return err
}

func exportSiser(w io.Writer, entries []bookstore.Entry) error {
	sw := siser.NewWriter(w)
	sw.NoTimestamp = true
	r := &siser.Record{Name: bookRecordName}
	for _, e := range entries {
		b := &e.Book
		err := r.Write("id", e.ID, "title", b.Title, "author", b.Author, "isbn", b.ISBN, "year", b.Year, "available", b.Available)
		if err != nil {
			return err
		}
		if _, err = sw.WriteRecord(r); err != nil {
			return err
		}
	}
	return nil
}

// Import reads books from r in a given format.
// Books are not validated, see bookstore.Store.Replace
func Import(r io.Reader, format Format) ([]bookstore.Book, error) {
	switch format {
	case FormatJSON:
		return importJSON(r)
	case FormatSiser:
		return importSiser(r)
	}
	return nil, fmt.Errorf("importing format '%s' is not supported", format)
}

func importJSON(r io.Reader) ([]bookstore.Book, error) {
	var c jsonCatalog
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("invalid json catalog: %w", err)
	}
	return c.Books, nil
}

func importSiser(r io.Reader) ([]bookstore.Book, error) {
	var books []bookstore.Book
	sr := siser.NewReader(bufio.NewReader(r))
	sr.NoTimestamp = true
	for sr.ReadNextRecord() {
		rec := sr.Record
		if rec.Name != bookRecordName {
			return nil, fmt.Errorf("record %d: unexpected record '%s'", len(books)+1, rec.Name)
		}
		b, err := bookFromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(books)+1, err)
		}
		books = append(books, b)
	}
	if err := sr.Err(); err != nil {
		return nil, err
	}
	return books, nil
}

func bookFromRecord(rec *siser.ReadRecord) (bookstore.Book, error) {
	var b bookstore.Book
	get := func(key string) (string, error) {
		v, ok := rec.Get(key)
		if !ok {
			return "", fmt.Errorf("missing '%s'", key)
		}
		return v, nil
	}
	var err error
	if b.Title, err = get("title"); err != nil {
		return b, err
	}
	if b.Author, err = get("author"); err != nil {
		return b, err
	}
	if b.ISBN, err = get("isbn"); err != nil {
		return b, err
	}
	s, err := get("year")
	if err != nil {
		return b, err
	}
	if b.Year, err = strconv.Atoi(s); err != nil {
		return b, fmt.Errorf("invalid year '%s'", s)
	}
	// availability is optional, defaults to available
	b.Available = true
	if s, ok := rec.Get("available"); ok {
		if b.Available, err = strconv.ParseBool(s); err != nil {
			return b, fmt.Errorf("invalid available '%s'", s)
		}
	}
	return b, nil
}
