package bookstore

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDuneFoundation(t *testing.T) *Store {
	s := New()
	id, err := s.Add("Dune", "Herbert", "0441013597", 1965)
	require.NoError(t, err)
	require.Equal(t, 1, id)
	id, err = s.Add("Foundation", "Asimov", "0553293354", 1951)
	require.NoError(t, err)
	require.Equal(t, 2, id)
	return s
}

func entryIDs(entries []Entry) []int {
	var res []int
	for _, e := range entries {
		res = append(res, e.ID)
	}
	return res
}

func ptr[T any](v T) *T {
	return &v
}

func TestDuneFoundation(t *testing.T) {
	s := newDuneFoundation(t)

	list := s.List()
	assert.Equal(t, []int{1, 2}, entryIDs(list))
	assert.Equal(t, "Dune", list[0].Book.Title)
	assert.Equal(t, "Foundation", list[1].Book.Title)
	assert.True(t, list[0].Book.Available)

	assert.Equal(t, []int{2}, entryIDs(s.Search("Asi")))

	require.NoError(t, s.Update(1, Update{Year: ptr(2000)}))
	b, err := s.Book(1)
	require.NoError(t, err)
	exp := Book{Title: "Dune", Author: "Herbert", ISBN: "0441013597", Year: 2000, Available: true}
	assert.Equal(t, exp, b)
}

func TestAddUntilFull(t *testing.T) {
	s := New()
	for i := 0; i < Capacity; i++ {
		id, err := s.Add(fmt.Sprintf("title %d", i), "author", "isbn", 1900+i)
		require.NoError(t, err)
		assert.Equal(t, i+1, id)
	}
	assert.True(t, s.IsFull())
	_, err := s.Add("one too many", "author", "isbn", 2000)
	assert.ErrorIs(t, err, ErrFull)
	assert.Equal(t, Capacity, s.Len())
}

func TestAddInvalidYear(t *testing.T) {
	s := New()
	for _, year := range []int{0, -1965, math.MaxInt32 + 1} {
		_, err := s.Add("Dune", "Herbert", "0441013597", year)
		assert.ErrorIs(t, err, ErrInvalidYear)
	}
	assert.Equal(t, 0, s.Len())
}

func TestAddCleansText(t *testing.T) {
	s := New()
	long := strings.Repeat("x", 150)
	_, err := s.Add("Dune \r\n", long, "978044101359755\n", 1965)
	require.NoError(t, err)
	b, err := s.Book(1)
	require.NoError(t, err)
	assert.Equal(t, "Dune", b.Title)
	assert.Equal(t, strings.Repeat("x", MaxAuthorLen), b.Author)
	assert.Equal(t, "978044101359", b.ISBN)
}

func TestTruncateKeepsUTF8(t *testing.T) {
	// "ł" is 2 bytes so 99 bytes would split the last one
	s := strings.Repeat("ł", 50)
	got := truncate(s, MaxTitleLen)
	assert.Equal(t, strings.Repeat("ł", 49), got)
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "", truncate("", 3))
}

func TestBookInvalidID(t *testing.T) {
	s := newDuneFoundation(t)
	for _, id := range []int{-1, 0, 3} {
		_, err := s.Book(id)
		assert.ErrorIs(t, err, ErrInvalidID)
	}
}

func TestUpdateInvalidID(t *testing.T) {
	s := newDuneFoundation(t)
	before := s.Books()
	for _, id := range []int{-1, 0, 3, 100} {
		err := s.Update(id, Update{Title: ptr("Changed"), Year: ptr(2000)})
		assert.ErrorIs(t, err, ErrInvalidID)
	}
	assert.Equal(t, before, s.Books())

	err := New().Update(1, Update{})
	assert.True(t, errors.Is(err, ErrInvalidID))
}

func TestUpdateBlankKeepsValues(t *testing.T) {
	s := newDuneFoundation(t)
	before, _ := s.Book(2)

	updates := []Update{
		{},
		{Title: ptr(""), Author: ptr("\n"), ISBN: ptr("   "), Year: ptr(0)},
		{Year: ptr(-5)},
	}
	for _, upd := range updates {
		require.NoError(t, s.Update(2, upd))
		got, _ := s.Book(2)
		assert.Equal(t, before, got)
	}
}

func TestUpdateAllFields(t *testing.T) {
	s := newDuneFoundation(t)
	upd := Update{
		Title:     ptr("Children of Dune\n"),
		Author:    ptr("Frank Herbert"),
		ISBN:      ptr("0593098242123456"),
		Year:      ptr(1976),
		Available: ptr(false),
	}
	require.NoError(t, s.Update(1, upd))
	got, _ := s.Book(1)
	exp := Book{Title: "Children of Dune", Author: "Frank Herbert", ISBN: "059309824212", Year: 1976}
	assert.Equal(t, exp, got)
	assert.Equal(t, "Not Available", got.AvailabilityString())

	// other book is not affected
	other, _ := s.Book(2)
	assert.Equal(t, "Foundation", other.Title)
}

func TestSearch(t *testing.T) {
	s := newDuneFoundation(t)
	_, err := s.Add("I, Robot", "Isaac Asimov", "0553382563", 1950)
	require.NoError(t, err)

	tests := []struct {
		keyword string
		exp     []int
	}{
		// empty keyword is contained in every string so it matches all books
		{"", []int{1, 2, 3}},
		{"Asimov", []int{2, 3}},
		{"asimov", nil},
		{"Dun", []int{1}},
		{"Robot", []int{3}},
		{"on", []int{2}},
		{"0441013597", nil},
		{"Tolkien", nil},
	}
	for _, test := range tests {
		got := s.Search(test.keyword)
		assert.Equal(t, test.exp, entryIDs(got), "keyword: '%s'", test.keyword)
	}
}

func TestListEmpty(t *testing.T) {
	s := New()
	assert.Empty(t, s.List())
	assert.Empty(t, s.Search(""))
}

func TestReplace(t *testing.T) {
	s := newDuneFoundation(t)
	books := []Book{
		{Title: "Neuromancer ", Author: "William Gibson", ISBN: "0441569595", Year: 1984, Available: false},
	}
	require.NoError(t, s.Replace(books))
	assert.Equal(t, 1, s.Len())
	b, _ := s.Book(1)
	assert.Equal(t, "Neuromancer", b.Title)
	assert.False(t, b.Available)

	before := s.Books()
	err := s.Replace([]Book{{Title: "x", Year: 2000}, {Title: "bad year"}})
	assert.ErrorIs(t, err, ErrInvalidYear)
	assert.Equal(t, before, s.Books())

	err = s.Replace(make([]Book, Capacity+1))
	assert.ErrorIs(t, err, ErrFull)
	assert.Equal(t, before, s.Books())
}
