package u

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// implement io.ReadCloser over os.File wrapped with io.Reader.
// io.Closer goes to os.File, io.Reader goes to wrapping reader
type readerWrappedFile struct {
	f       *os.File
	r       io.Reader
	onClose func()
}

func (rc *readerWrappedFile) Close() error {
	if rc.onClose != nil {
		rc.onClose()
	}
	return rc.f.Close()
}

func (rc *readerWrappedFile) Read(p []byte) (int, error) {
	return rc.r.Read(p)
}

func wrapInReadCloser(f *os.File, r io.Reader, onClose func(), err error) (io.ReadCloser, error) {
	if err != nil {
		f.Close()
		return nil, err
	}
	return &readerWrappedFile{
		f:       f,
		r:       r,
		onClose: onClose,
	}, nil
}

func compressionExt(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// IsCompressedPath returns true if, based on extension, we
// compress / decompress the file
func IsCompressedPath(path string) bool {
	switch compressionExt(path) {
	case ".gz", ".bz2", ".zst", ".zstd", ".br":
		return true
	}
	return false
}

// OpenFileMaybeCompressed opens a file that might be compressed with gzip
// or bzip2 or zstd or brotli
func OpenFileMaybeCompressed(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch compressionExt(path) {
	case ".gz":
		r, err := gzip.NewReader(f)
		return wrapInReadCloser(f, r, nil, err)
	case ".bz2":
		r := bzip2.NewReader(f)
		return wrapInReadCloser(f, r, nil, nil)
	case ".zst", ".zstd":
		r, err := zstd.NewReader(f)
		if err != nil {
			return wrapInReadCloser(f, nil, nil, err)
		}
		return wrapInReadCloser(f, r, r.Close, nil)
	case ".br":
		r := brotli.NewReader(f)
		return wrapInReadCloser(f, r, nil, nil)
	}
	return f, nil
}

// ReadFileMaybeCompressed reads file, decompressing if needed
func ReadFileMaybeCompressed(path string) ([]byte, error) {
	r, err := OpenFileMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}

// NewWriterMaybeCompressed wraps w in a compressor picked based on
// extension of path (same as OpenFileMaybeCompressed, except .bz2
// which we can only read and is an error).
// Close() flushes the compressor but doesn't close w.
func NewWriterMaybeCompressed(w io.Writer, path string) (io.WriteCloser, error) {
	switch compressionExt(path) {
	case ".gz":
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	case ".zst", ".zstd":
		return zstdNewWriter(w)
	case ".br":
		return brotli.NewWriterLevel(w, brotli.DefaultCompression), nil
	case ".bz2":
		return nil, errors.New("writing .bz2 files is not supported")
	}
	return nopWriteCloser{w}, nil
}

func getErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// BrCompressFile compresses file at path with brotli and
// returns compressed data
func BrCompressFile(path string, level int) ([]byte, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return BrCompressData(d, level)
}

func BrCompressData(d []byte, level int) ([]byte, error) {
	var dst bytes.Buffer
	w := brotli.NewWriterLevel(&dst, level)
	_, err := w.Write(d)
	err2 := w.Close()
	if err = getErr(err, err2); err != nil {
		return nil, err
	}
	return dst.Bytes(), nil
}

func zstdNewWriter(dst io.Writer) (*zstd.Encoder, error) {
	// zstd.SpeedBestCompression is much slower and not much better
	return zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedDefault))
}
