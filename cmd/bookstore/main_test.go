package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kjk/bookstore/bookstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runArgs(t *testing.T, stdin string, args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeTestData(t *testing.T, path string) *bookstore.Store {
	s := bookstore.New()
	_, err := s.Add("Dune", "Frank Herbert", "0441013597", 1965)
	require.NoError(t, err)
	_, err = s.Add("Foundation", "Isaac Asimov", "0553293354", 1951)
	require.NoError(t, err)
	require.NoError(t, s.Save(path))
	return s
}

func TestRunShell(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), "books.dat")
	input := "1\nDune\nFrank Herbert\n0441013597\n1965\n7\n"
	code, out, _ := runArgs(t, input, "-data", dataPath)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Book added successfully!")

	s := bookstore.New()
	require.NoError(t, s.Load(dataPath))
	assert.Equal(t, 1, s.Len())
}

func TestRunShellExtraArgs(t *testing.T) {
	code, _, errOut := runArgs(t, "", "-data", "books.dat", "-verbose=false", "--", "extra")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unexpected arguments")
}

func TestUnknownCommand(t *testing.T) {
	code, _, errOut := runArgs(t, "", "print")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown command 'print'")
}

func TestExportImportRoundTrip(t *testing.T) {
	for _, format := range []string{"json", "siser"} {
		t.Run(format, func(t *testing.T) {
			dir := t.TempDir()
			dataPath := filepath.Join(dir, "books.dat")
			orig := writeTestData(t, dataPath)

			exportPath := filepath.Join(dir, "books."+format)
			code, out, errOut := runArgs(t, "", "export", "-data", dataPath, "-format", format, "-o", exportPath)
			require.Equal(t, 0, code, errOut)
			assert.Contains(t, out, "Exported 2 books")

			importedPath := filepath.Join(dir, "imported.dat.zst")
			code, out, errOut = runArgs(t, "", "import", "-data", importedPath, "-format", format, exportPath)
			require.Equal(t, 0, code, errOut)
			assert.Contains(t, out, "Imported 2 books")

			s := bookstore.New()
			require.NoError(t, s.Load(importedPath))
			assert.Equal(t, orig.List(), s.List())
		})
	}
}

func TestExportToStdout(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), "books.dat")
	writeTestData(t, dataPath)
	code, out, _ := runArgs(t, "", "export", "-data", dataPath, "-format", "toon")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Foundation")
}

func TestExportErrors(t *testing.T) {
	dir := t.TempDir()
	code, _, errOut := runArgs(t, "", "export", "-data", filepath.Join(dir, "missing.dat"))
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "missing.dat")

	code, _, errOut = runArgs(t, "", "export", "-format", "xml")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown format")
}

func TestImportErrors(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "books.dat")
	orig := writeTestData(t, dataPath)

	code, _, _ := runArgs(t, "", "import", "-data", dataPath)
	assert.Equal(t, 1, code)

	code, _, errOut := runArgs(t, "", "import", "-data", dataPath, "-format", "toon", "books.toon")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not supported")

	// invalid books don't change the data file
	badPath := filepath.Join(dir, "bad.json")
	bad := `{"books": [{"title": "Dune", "author": "Frank Herbert", "isbn": "1", "year": 0, "available": true}]}`
	require.NoError(t, os.WriteFile(badPath, []byte(bad), 0644))
	code, _, _ = runArgs(t, "", "import", "-data", dataPath, badPath)
	assert.Equal(t, 1, code)

	s := bookstore.New()
	require.NoError(t, s.Load(dataPath))
	assert.Equal(t, orig.List(), s.List())
}

func TestBackupConfigErrors(t *testing.T) {
	for _, name := range []string{"BOOKSTORE_S3_ACCESS", "BOOKSTORE_S3_SECRET", "BOOKSTORE_S3_BUCKET", "BOOKSTORE_S3_ENDPOINT"} {
		t.Setenv(name, "")
	}
	for _, cmd := range []string{"backup", "restore"} {
		code, _, errOut := runArgs(t, "", cmd)
		assert.Equal(t, 1, code)
		assert.Contains(t, errOut, "missing backup config")
	}

	t.Setenv("BOOKSTORE_S3_ACCESS", "access")
	t.Setenv("BOOKSTORE_S3_SECRET", "secret")
	t.Setenv("BOOKSTORE_S3_BUCKET", "books")
	code, _, errOut := runArgs(t, "", "backup", "-s3-endpoint", "localhost:9000", "-data", "books.dat.zst")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "uncompressed data file")
}

func TestHelp(t *testing.T) {
	code, _, errOut := runArgs(t, "", "export", "-h")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "-format")
	assert.NotContains(t, errOut, "error:")
}
