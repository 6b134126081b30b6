package bookstore

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/kjk/bookstore/atomicfile"
	"github.com/kjk/bookstore/u"
)

// DefaultDataPath is the name of the data file used by the shell
const DefaultDataPath = "library_books.dat"

// Save writes all books to a file at path. The file is replaced
// atomically: on error the previous content stays intact.
// Paths ending with .zst or .br are compressed.
func (s *Store) Save(path string) error {
	f, err := atomicfile.New(path)
	if err != nil {
		return err
	}
	defer f.RemoveIfNotClosed()

	w, err := u.NewWriterMaybeCompressed(f, path)
	if err != nil {
		return err
	}
	if _, err = s.WriteTo(w); err != nil {
		return err
	}
	if err = w.Close(); err != nil {
		return err
	}
	return f.Close()
}

// Load replaces books with those read from a file at path.
// Returns ErrNoData if the file doesn't exist and ErrMalformed if it
// can't be decoded, including a corrupted compressed stream.
// On error the store is not modified.
func (s *Store) Load(path string) error {
	r, err := u.OpenFileMaybeCompressed(path)
	if err == nil {
		defer u.CloseNoError(r)
		_, err = s.ReadFrom(r)
	}
	if err == nil || errors.Is(err, ErrMalformed) {
		return err
	}
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNoData
	}
	// errors from the file itself are *fs.PathError, anything else
	// comes from a decompressor rejecting the data
	var pathErr *fs.PathError
	if u.IsCompressedPath(path) && !errors.As(err, &pathErr) {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return err
}
