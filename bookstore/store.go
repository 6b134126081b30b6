// Package bookstore is a fixed-capacity, ordered collection of books
// that can be saved to and loaded from a binary file.
package bookstore

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"strings"
)

// Capacity is the maximum number of books in a Store
const Capacity = 100

var (
	ErrFull        = errors.New("library is full")
	ErrInvalidID   = errors.New("invalid book id")
	ErrInvalidYear = errors.New("invalid publication year")
	// ErrNoData is returned by Load if the data file doesn't exist
	ErrNoData = fmt.Errorf("no existing data file: %w", fs.ErrNotExist)
	// ErrMalformed is returned when decoding truncated or corrupted data
	ErrMalformed = errors.New("malformed data file")
)

// Store holds books in insertion order. Book id is 1-based position.
// It's not safe for concurrent use.
type Store struct {
	books []Book
}

// New creates an empty store
func New() *Store {
	return &Store{
		books: make([]Book, 0, Capacity),
	}
}

// Len returns number of books
func (s *Store) Len() int {
	return len(s.books)
}

// IsFull returns true if no more books can be added
func (s *Store) IsFull() bool {
	return len(s.books) >= Capacity
}

// year is stored as int32
func validYear(year int) bool {
	return year > 0 && year <= math.MaxInt32
}

func newBook(title, author, isbn string, year int) (Book, error) {
	if !validYear(year) {
		return Book{}, fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}
	return Book{
		Title:     cleanText(title, MaxTitleLen),
		Author:    cleanText(author, MaxAuthorLen),
		ISBN:      cleanText(isbn, MaxISBNLen),
		Year:      year,
		Available: true,
	}, nil
}

// Add appends a new, available book and returns its id
func (s *Store) Add(title, author, isbn string, year int) (int, error) {
	if s.IsFull() {
		return 0, ErrFull
	}
	b, err := newBook(title, author, isbn, year)
	if err != nil {
		return 0, err
	}
	s.books = append(s.books, b)
	return len(s.books), nil
}

func (s *Store) validID(id int) bool {
	return id >= 1 && id <= len(s.books)
}

// Book returns a copy of a book with a given id
func (s *Store) Book(id int) (Book, error) {
	if !s.validID(id) {
		return Book{}, fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	return s.books[id-1], nil
}

// List returns all books in insertion order
func (s *Store) List() []Entry {
	res := make([]Entry, 0, len(s.books))
	for i, b := range s.books {
		res = append(res, Entry{ID: i + 1, Book: b})
	}
	return res
}

// Books returns a copy of all books
func (s *Store) Books() []Book {
	return append([]Book{}, s.books...)
}

// Update describes changes to a book. nil fields are left unchanged.
// Blank text and invalid Year are treated as not set.
type Update struct {
	Title     *string
	Author    *string
	ISBN      *string
	Year      *int
	Available *bool
}

func applyText(dst *string, v *string, max int) {
	if v == nil {
		return
	}
	s := cleanText(*v, max)
	if strings.TrimSpace(s) == "" {
		return
	}
	*dst = s
}

// Update changes fields of a book with a given id
func (s *Store) Update(id int, upd Update) error {
	if !s.validID(id) {
		return fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	b := &s.books[id-1]
	applyText(&b.Title, upd.Title, MaxTitleLen)
	applyText(&b.Author, upd.Author, MaxAuthorLen)
	applyText(&b.ISBN, upd.ISBN, MaxISBNLen)
	if upd.Year != nil && validYear(*upd.Year) {
		b.Year = *upd.Year
	}
	if upd.Available != nil {
		b.Available = *upd.Available
	}
	return nil
}

// Search returns books whose title or author contains keyword.
// Matching is case-sensitive. Empty keyword matches all books.
func (s *Store) Search(keyword string) []Entry {
	var res []Entry
	for i, b := range s.books {
		if strings.Contains(b.Title, keyword) || strings.Contains(b.Author, keyword) {
			res = append(res, Entry{ID: i + 1, Book: b})
		}
	}
	return res
}

// Replace replaces all books. Books are validated and normalized
// the same way as in Add. On error the store is not modified.
func (s *Store) Replace(books []Book) error {
	if len(books) > Capacity {
		return fmt.Errorf("%w: %d books, capacity is %d", ErrFull, len(books), Capacity)
	}
	res := make([]Book, 0, Capacity)
	for i, b := range books {
		nb, err := newBook(b.Title, b.Author, b.ISBN, b.Year)
		if err != nil {
			return fmt.Errorf("book %d: %w", i+1, err)
		}
		nb.Available = b.Available
		res = append(res, nb)
	}
	s.books = res
	return nil
}
