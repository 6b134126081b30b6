// Package shell implements the interactive, menu-driven interface
// to a bookstore.Store.
package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/kjk/bookstore/bookstore"
	"github.com/kjk/bookstore/log"
)

const (
	choiceAdd = iota + 1
	choiceList
	choiceUpdate
	choiceSearch
	choiceSave
	choiceLoad
	choiceExit
)

const menuText = `
=== Library Book Database Management System ===
1. Add a new book
2. Display all books
3. Update a book record
4. Search for a book
5. Save to file
6. Load from file
7. Exit
Enter your choice (1-7): `

// Config configures the shell
type Config struct {
	// path of the data file, loaded on start and saved on exit
	DataPath string
}

// Shell reads commands from in and writes results to out.
// Data file is loaded when Run starts and saved when it ends.
type Shell struct {
	store    *bookstore.Store
	dataPath string
	in       *bufio.Reader
	out      io.Writer
	eof      bool
}

// New creates a shell operating on store
func New(store *bookstore.Store, config *Config, in io.Reader, out io.Writer) *Shell {
	dataPath := config.DataPath
	if dataPath == "" {
		dataPath = bookstore.DefaultDataPath
	}
	return &Shell{
		store:    store,
		dataPath: dataPath,
		in:       bufio.NewReader(in),
		out:      out,
	}
}

func (sh *Shell) printf(format string, args ...any) {
	fmt.Fprintf(sh.out, format, args...)
}

// readLine reads a whole line and returns it without the line terminator.
// Returns false at the end of input.
func (sh *Shell) readLine() (string, bool) {
	if sh.eof {
		return "", false
	}
	line, err := sh.in.ReadString('\n')
	if err != nil {
		// io.EOF or a read error, either way there's no more input
		sh.eof = true
		if !errors.Is(err, io.EOF) {
			log.Errorf("shell: reading input failed with '%s'", err)
		}
		if line == "" {
			return "", false
		}
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, true
}

func (sh *Shell) prompt(msg string) string {
	sh.printf("%s", msg)
	line, _ := sh.readLine()
	return line
}

// scanInt parses an integer at the start of s, like scanf("%d"):
// leading whitespace is skipped and anything after the number is ignored
func scanInt(s string) (int, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Run runs the menu loop until the user chooses exit or input ends
func (sh *Shell) Run() {
	sh.load()
	for {
		sh.printf("%s", menuText)
		line, ok := sh.readLine()
		if !ok {
			sh.printf("\n")
			break
		}
		choice, ok := scanInt(line)
		if !ok {
			sh.printf("Invalid input. Please enter a number between 1 and 7.\n")
			continue
		}
		if choice == choiceExit {
			break
		}
		sh.dispatch(choice)
	}
	sh.printf("Exiting the system. Goodbye!\n")
	sh.save()
}

func (sh *Shell) dispatch(choice int) {
	log.Verbosef("shell: choice %d\n", choice)
	switch choice {
	case choiceAdd:
		sh.addBook()
	case choiceList:
		sh.displayBooks()
	case choiceUpdate:
		sh.updateBook()
	case choiceSearch:
		sh.searchBooks()
	case choiceSave:
		sh.save()
	case choiceLoad:
		sh.load()
	default:
		sh.printf("Invalid choice. Please try again.\n")
	}
}

func (sh *Shell) addBook() {
	if sh.store.IsFull() {
		sh.printf("Library is full! Cannot add more books.\n")
		return
	}
	title := sh.prompt("Enter the title of the book: ")
	author := sh.prompt("Enter the author of the book: ")
	isbn := sh.prompt("Enter the ISBN (13 characters): ")
	year, ok := scanInt(sh.prompt("Enter the publication year: "))
	if !ok || year <= 0 {
		sh.printf("Invalid publication year. Book not added.\n")
		return
	}
	id, err := sh.store.Add(title, author, isbn, year)
	if err != nil {
		sh.printf("Book not added: %s.\n", err)
		return
	}
	sh.printf("Book added successfully!\n")
	b, _ := sh.store.Book(id)
	log.Event("book-added", "id", id, "title", b.Title, "author", b.Author)
}

func (sh *Shell) printEntry(e *bookstore.Entry) {
	b := &e.Book
	sh.printf("Book ID: %d\n", e.ID)
	sh.printf("Title: %s\n", b.Title)
	sh.printf("Author: %s\n", b.Author)
	sh.printf("ISBN: %s\n", b.ISBN)
	sh.printf("Publication Year: %d\n", b.Year)
	sh.printf("Availability: %s\n", b.AvailabilityString())
	sh.printf("-----------------------------\n")
}

func (sh *Shell) displayBooks() {
	entries := sh.store.List()
	if len(entries) == 0 {
		sh.printf("No books in the library.\n")
		return
	}
	sh.printf("\n=== List of Books ===\n")
	for i := range entries {
		sh.printEntry(&entries[i])
	}
}

func (sh *Shell) updateBook() {
	msg := fmt.Sprintf("Enter the book ID to update (1 to %d): ", sh.store.Len())
	id, ok := scanInt(sh.prompt(msg))
	if !ok {
		sh.printf("Invalid book ID.\n")
		return
	}
	b, err := sh.store.Book(id)
	if err != nil {
		sh.printf("Invalid book ID.\n")
		return
	}
	sh.printf("Updating book: %s\n", b.Title)

	var upd bookstore.Update
	title := sh.prompt("Enter the new title (leave blank to keep current): ")
	upd.Title = &title
	author := sh.prompt("Enter the new author (leave blank to keep current): ")
	upd.Author = &author
	isbn := sh.prompt("Enter the new ISBN (leave blank to keep current): ")
	upd.ISBN = &isbn
	if year, ok := scanInt(sh.prompt("Enter the new publication year (or 0 to keep current): ")); ok {
		upd.Year = &year
	}
	if v, ok := scanInt(sh.prompt("Is the book available? (1 for Yes, 0 for No): ")); ok && (v == 0 || v == 1) {
		avail := v == 1
		upd.Available = &avail
	}

	if err = sh.store.Update(id, upd); err != nil {
		sh.printf("Invalid book ID.\n")
		return
	}
	sh.printf("Book updated successfully!\n")
	log.Event("book-updated", "id", id)
}

func (sh *Shell) searchBooks() {
	keyword := sh.prompt("Enter a keyword to search for (title or author): ")
	entries := sh.store.Search(keyword)
	sh.printf("\n=== Search Results ===\n")
	for i := range entries {
		sh.printEntry(&entries[i])
	}
	if len(entries) == 0 {
		sh.printf("No books found matching the keyword.\n")
	}
	log.Event("search", "keyword", keyword, "found", len(entries))
}

func (sh *Shell) save() {
	err := sh.store.Save(sh.dataPath)
	if log.IfErrf(err, "shell: saving '%s' failed with '%s'", sh.dataPath, err) {
		sh.printf("Error saving data to file.\n")
		return
	}
	sh.printf("Data saved to file successfully!\n")
	log.Event("catalog-saved", "path", sh.dataPath, "books", sh.store.Len())
}

func (sh *Shell) load() {
	err := sh.store.Load(sh.dataPath)
	if errors.Is(err, bookstore.ErrNoData) {
		sh.printf("No existing data file found. Starting fresh.\n")
		return
	}
	if log.IfErrf(err, "shell: loading '%s' failed with '%s'", sh.dataPath, err) {
		if errors.Is(err, bookstore.ErrMalformed) {
			sh.printf("Error loading data from file: the file is corrupted.\n")
		} else {
			sh.printf("Error loading data from file.\n")
		}
		return
	}
	sh.printf("Data loaded from file successfully!\n")
	log.Event("catalog-loaded", "path", sh.dataPath, "books", sh.store.Len())
}
