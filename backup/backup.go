// Package backup copies the data file to and from S3-compatible storage.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/kjk/bookstore/atomicfile"
	"github.com/kjk/bookstore/u"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// data file is at most a few tens of kB, this is a sanity limit
const maxBackupSize = 16 * 1024 * 1024

type Config struct {
	Access   string
	Secret   string
	Bucket   string
	Endpoint string
	Region   string
	// use http instead of https e.g. for local minio server
	Insecure bool
}

// Validate returns an error if required fields are missing
func (c *Config) Validate() error {
	var missing []string
	if c.Access == "" {
		missing = append(missing, "access key")
	}
	if c.Secret == "" {
		missing = append(missing, "secret key")
	}
	if c.Bucket == "" {
		missing = append(missing, "bucket")
	}
	if c.Endpoint == "" {
		missing = append(missing, "endpoint")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing backup config: %s", strings.Join(missing, ", "))
	}
	return nil
}

type Client struct {
	Client *minio.Client
	Bucket string
}

// New creates a client and checks that the bucket exists
func New(ctx context.Context, config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("must provide config")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	mc, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.Access, config.Secret, ""),
		Region: config.Region,
		Secure: !config.Insecure,
	})
	if err != nil {
		return nil, err
	}
	found, err := mc.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("bucket '%s' doesn't exist", config.Bucket)
	}
	return &Client{
		Client: mc,
		Bucket: config.Bucket,
	}, nil
}

// RemoteName returns name of backup object for a data file
// e.g. "library_books.dat" => "library_books.dat.br"
func RemoteName(dataPath string) string {
	return filepath.Base(dataPath) + ".br"
}

// Upload uploads brotli-compressed file at path as remotePath
func (c *Client) Upload(ctx context.Context, remotePath string, path string) (minio.UploadInfo, error) {
	d, err := u.BrCompressFile(path, brotli.BestCompression)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	opts := minio.PutObjectOptions{
		ContentType:     "application/octet-stream",
		ContentEncoding: "br",
	}
	return c.Client.PutObject(ctx, c.Bucket, remotePath, bytes.NewReader(d), int64(len(d)), opts)
}

// Download downloads remotePath, decompresses it and saves as dstPath.
// validate is called with decompressed data before dstPath is replaced
func (c *Client) Download(ctx context.Context, dstPath string, remotePath string, validate func([]byte) error) error {
	obj, err := c.Client.GetObject(ctx, c.Bucket, remotePath, minio.GetObjectOptions{})
	if err != nil {
		return err
	}
	defer obj.Close()
	return restoreData(dstPath, obj, validate)
}

// restoreData decompresses brotli data from r and atomically writes it to dstPath
func restoreData(dstPath string, r io.Reader, validate func([]byte) error) error {
	br := brotli.NewReader(io.LimitReader(r, maxBackupSize))
	d, err := io.ReadAll(io.LimitReader(br, maxBackupSize+1))
	if err != nil {
		return fmt.Errorf("decompressing backup: %w", err)
	}
	if len(d) > maxBackupSize {
		return fmt.Errorf("backup larger than %d bytes", maxBackupSize)
	}
	if validate != nil {
		if err = validate(d); err != nil {
			return err
		}
	}

	f, err := atomicfile.New(dstPath)
	if err != nil {
		return err
	}
	defer f.RemoveIfNotClosed()
	if _, err = f.Write(d); err != nil {
		return err
	}
	return f.Close()
}
