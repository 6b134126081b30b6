package backup

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kjk/bookstore/u"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	c := &Config{}
	err := c.Validate()
	require.Error(t, err)
	assert.Equal(t, "missing backup config: access key, secret key, bucket, endpoint", err.Error())

	c = &Config{Access: "a", Secret: "s", Bucket: "books", Endpoint: "localhost:9000"}
	assert.NoError(t, c.Validate())
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)
	_, err = New(context.Background(), &Config{Access: "a"})
	assert.Error(t, err)
}

func TestRemoteName(t *testing.T) {
	assert.Equal(t, "library_books.dat.br", RemoteName("library_books.dat"))
	assert.Equal(t, "books.dat.br", RemoteName(filepath.Join("data", "books.dat")))
}

func compressed(t *testing.T, d []byte) []byte {
	dc, err := u.BrCompressData(d, 5)
	require.NoError(t, err)
	return dc
}

func TestRestoreData(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "library_books.dat")
	d := []byte("\x00\x00\x00\x00")

	var validated []byte
	validate := func(d []byte) error {
		validated = d
		return nil
	}
	require.NoError(t, restoreData(dst, bytes.NewReader(compressed(t, d)), validate))
	assert.Equal(t, d, validated)
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestRestoreDataValidationFails(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "library_books.dat")
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0644))

	errInvalid := errors.New("invalid")
	validate := func(d []byte) error {
		return errInvalid
	}
	err := restoreData(dst, bytes.NewReader(compressed(t, []byte("new"))), validate)
	assert.ErrorIs(t, err, errInvalid)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))
}

func TestRestoreDataNotCompressed(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "library_books.dat")
	err := restoreData(dst, strings.NewReader("definitely not brotli data"), nil)
	assert.Error(t, err)
	_, err = os.Stat(dst)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
