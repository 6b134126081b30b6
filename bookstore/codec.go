package bookstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/kjk/bookstore/u"
)

/*
Binary format of the data file, all integers are little-endian int32:

	count
	count * record

record is 224 bytes, same as C struct { char title[100]; char author[100];
char isbn[13]; int year; int available; } on x86-64:

	title     100 bytes, NUL terminated, zero padded
	author    100 bytes
	isbn       13 bytes
	padding     3 bytes
	year        4 bytes
	available   4 bytes, 0 or 1
*/

const (
	titleFieldSize  = MaxTitleLen + 1
	authorFieldSize = MaxAuthorLen + 1
	isbnFieldSize   = MaxISBNLen + 1

	offTitle     = 0
	offAuthor    = offTitle + titleFieldSize
	offISBN      = offAuthor + authorFieldSize
	offYear      = 216 // offISBN + isbnFieldSize rounded up to 4
	offAvailable = offYear + 4

	// RecordSize is size in bytes of a single book on disk
	RecordSize = offAvailable + 4

	countSize = 4
)

var le = binary.LittleEndian

func putText(d []byte, s string) {
	u.PanicIf(len(s) >= len(d), "text '%s' too long for a field of size %d", s, len(d))
	n := copy(d, s)
	clear(d[n:])
}

func getText(d []byte) (string, error) {
	idx := bytes.IndexByte(d, 0)
	if idx == -1 {
		return "", fmt.Errorf("%w: text field not terminated", ErrMalformed)
	}
	return string(d[:idx]), nil
}

func marshalBook(d []byte, b *Book) {
	putText(d[offTitle:offTitle+titleFieldSize], b.Title)
	putText(d[offAuthor:offAuthor+authorFieldSize], b.Author)
	putText(d[offISBN:offISBN+isbnFieldSize], b.ISBN)
	clear(d[offISBN+isbnFieldSize : offYear])
	le.PutUint32(d[offYear:], uint32(int32(b.Year)))
	var avail uint32
	if b.Available {
		avail = 1
	}
	le.PutUint32(d[offAvailable:], avail)
}

func unmarshalBook(d []byte) (Book, error) {
	var b Book
	var err error
	if b.Title, err = getText(d[offTitle : offTitle+titleFieldSize]); err != nil {
		return b, err
	}
	if b.Author, err = getText(d[offAuthor : offAuthor+authorFieldSize]); err != nil {
		return b, err
	}
	if b.ISBN, err = getText(d[offISBN : offISBN+isbnFieldSize]); err != nil {
		return b, err
	}
	b.Year = int(int32(le.Uint32(d[offYear:])))
	if b.Year <= 0 {
		return b, fmt.Errorf("%w: invalid publication year %d", ErrMalformed, b.Year)
	}
	switch le.Uint32(d[offAvailable:]) {
	case 0:
		b.Available = false
	case 1:
		b.Available = true
	default:
		return b, fmt.Errorf("%w: invalid availability value", ErrMalformed)
	}
	return b, nil
}

func (s *Store) marshal() []byte {
	d := make([]byte, countSize+len(s.books)*RecordSize)
	le.PutUint32(d, uint32(int32(len(s.books))))
	for i := range s.books {
		off := countSize + i*RecordSize
		marshalBook(d[off:off+RecordSize], &s.books[i])
	}
	return d
}

// MarshalBinary encodes all books in the data file format
func (s *Store) MarshalBinary() ([]byte, error) {
	return s.marshal(), nil
}

// WriteTo writes all books to w in the data file format
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(s.marshal())
	return int64(n), err
}

func decodeBooks(r io.Reader) ([]Book, int64, error) {
	var nRead int64
	var hdr [countSize]byte
	n, err := io.ReadFull(r, hdr[:])
	nRead += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, nRead, fmt.Errorf("%w: missing book count", ErrMalformed)
		}
		return nil, nRead, err
	}
	count := int(int32(le.Uint32(hdr[:])))
	if count < 0 || count > Capacity {
		return nil, nRead, fmt.Errorf("%w: invalid book count %d", ErrMalformed, count)
	}

	d := make([]byte, count*RecordSize)
	n, err = io.ReadFull(r, d)
	nRead += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, nRead, fmt.Errorf("%w: expected %d books, file is truncated", ErrMalformed, count)
		}
		return nil, nRead, err
	}

	books := make([]Book, 0, Capacity)
	for i := 0; i < count; i++ {
		off := i * RecordSize
		b, err := unmarshalBook(d[off : off+RecordSize])
		if err != nil {
			return nil, nRead, fmt.Errorf("book %d: %w", i+1, err)
		}
		books = append(books, b)
	}

	var extra [1]byte
	n, err = io.ReadFull(r, extra[:])
	nRead += int64(n)
	if n > 0 {
		return nil, nRead, fmt.Errorf("%w: unexpected data after %d books", ErrMalformed, count)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, nRead, err
	}
	return books, nRead, nil
}

// ReadFrom replaces books with those decoded from r.
// On error the store is not modified.
func (s *Store) ReadFrom(r io.Reader) (int64, error) {
	books, n, err := decodeBooks(r)
	if err != nil {
		return n, err
	}
	s.books = books
	return n, nil
}

// UnmarshalBinary is like ReadFrom but decodes from memory
func (s *Store) UnmarshalBinary(d []byte) error {
	_, err := s.ReadFrom(bytes.NewReader(d))
	return err
}
