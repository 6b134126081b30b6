package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kjk/bookstore/atomicfile"
	"github.com/kjk/bookstore/backup"
	"github.com/kjk/bookstore/bookstore"
	"github.com/kjk/bookstore/catalog"
	"github.com/kjk/bookstore/log"
	"github.com/kjk/bookstore/shell"
	"github.com/kjk/bookstore/u"
)

const backupTimeout = 5 * time.Minute

type options struct {
	DataPath string
	LogDir   string
	Verbose  bool
}

func addCommonFlags(fs *flag.FlagSet, opts *options) {
	fs.StringVar(&opts.DataPath, "data", bookstore.DefaultDataPath, "path of the data file (.zst, .br and .gz are compressed)")
	fs.StringVar(&opts.LogDir, "log-dir", "", "directory for log files, logging is disabled if empty")
	fs.BoolVar(&opts.Verbose, "verbose", false, "verbose logging, also to stderr")
}

func initLogging(opts *options) {
	if opts.Verbose {
		log.Verbose = true
		log.Console = os.Stderr
	}
	log.Init(&log.Config{Dir: opts.LogDir})
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code
func run(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	defer log.Close()
	cmd := ""
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}
	var err error
	switch cmd {
	case "":
		err = cmdShell(args, stdin, stdout, stderr)
	case "export":
		err = cmdExport(args, stdout, stderr)
	case "import":
		err = cmdImport(args, stdout, stderr)
	case "backup":
		err = cmdBackup(args, stdout, stderr)
	case "restore":
		err = cmdRestore(args, stdout, stderr)
	default:
		err = fmt.Errorf("unknown command '%s', must be one of: export, import, backup, restore", cmd)
	}
	if err == nil {
		return 0
	}
	if !errors.Is(err, flag.ErrHelp) {
		log.Errorf("%s failed with '%s'\n", cmdName(cmd), err)
		fmt.Fprintf(stderr, "error: %s\n", err)
	}
	return 1
}

func cmdName(cmd string) string {
	if cmd == "" {
		return "bookstore"
	}
	return "bookstore " + cmd
}

func newFlagSet(cmd string, stderr io.Writer, opts *options) *flag.FlagSet {
	fs := flag.NewFlagSet(cmdName(cmd), flag.ContinueOnError)
	fs.SetOutput(stderr)
	addCommonFlags(fs, opts)
	return fs
}

func cmdShell(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) error {
	var opts options
	fs := newFlagSet("", stderr, &opts)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	initLogging(&opts)
	log.Logf("bookstore: starting with data file '%s'\n", opts.DataPath)
	sh := shell.New(bookstore.New(), &shell.Config{DataPath: opts.DataPath}, stdin, stdout)
	sh.Run()
	return nil
}

// loadExisting loads the data file, which must exist
func loadExisting(path string) (*bookstore.Store, error) {
	store := bookstore.New()
	if err := store.Load(path); err != nil {
		return nil, fmt.Errorf("loading '%s': %w", path, err)
	}
	return store, nil
}

func cmdExport(args []string, stdout io.Writer, stderr io.Writer) error {
	var opts options
	fs := newFlagSet("export", stderr, &opts)
	formatName := fs.String("format", string(catalog.FormatJSON), "output format: json, toon or siser")
	outPath := fs.String("o", "", "output file, stdout if empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	format, err := catalog.ParseFormat(*formatName)
	if err != nil {
		return err
	}
	initLogging(&opts)
	store, err := loadExisting(opts.DataPath)
	if err != nil {
		return err
	}
	if *outPath == "" {
		return catalog.Export(stdout, store.List(), format)
	}

	f, err := atomicfile.New(*outPath)
	if err != nil {
		return err
	}
	defer f.RemoveIfNotClosed()
	if err = catalog.Export(f, store.List(), format); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	log.Event("catalog-exported", "path", *outPath, "format", string(format), "books", store.Len())
	fmt.Fprintf(stdout, "Exported %d books to '%s'\n", store.Len(), *outPath)
	return nil
}

func cmdImport(args []string, stdout io.Writer, stderr io.Writer) error {
	var opts options
	fs := newFlagSet("import", stderr, &opts)
	formatName := fs.String("format", string(catalog.FormatJSON), "input format: json or siser, the file can be compressed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected exactly one file to import")
	}
	format, err := catalog.ParseFormat(*formatName)
	if err != nil {
		return err
	}
	if !format.CanImport() {
		return fmt.Errorf("importing format '%s' is not supported", format)
	}
	initLogging(&opts)

	// the file can be compressed, e.g. books.json.gz
	path := fs.Arg(0)
	d, err := u.ReadFileMaybeCompressed(path)
	if err != nil {
		return err
	}
	books, err := catalog.Import(bytes.NewReader(d), format)
	if err != nil {
		return fmt.Errorf("importing '%s': %w", path, err)
	}
	store := bookstore.New()
	if err = store.Replace(books); err != nil {
		return fmt.Errorf("importing '%s': %w", path, err)
	}
	if err = store.Save(opts.DataPath); err != nil {
		return err
	}
	log.Event("catalog-imported", "path", path, "format", string(format), "books", store.Len())
	fmt.Fprintf(stdout, "Imported %d books into '%s'\n", store.Len(), opts.DataPath)
	return nil
}

// addBackupFlags registers flags for S3 access. Values not given
// on the command line come from environment variables.
func addBackupFlags(fs *flag.FlagSet, config *backup.Config, remote *string) {
	fs.StringVar(&config.Access, "s3-access", os.Getenv("BOOKSTORE_S3_ACCESS"), "S3 access key (env BOOKSTORE_S3_ACCESS)")
	fs.StringVar(&config.Secret, "s3-secret", os.Getenv("BOOKSTORE_S3_SECRET"), "S3 secret key (env BOOKSTORE_S3_SECRET)")
	fs.StringVar(&config.Bucket, "s3-bucket", os.Getenv("BOOKSTORE_S3_BUCKET"), "S3 bucket (env BOOKSTORE_S3_BUCKET)")
	fs.StringVar(&config.Endpoint, "s3-endpoint", os.Getenv("BOOKSTORE_S3_ENDPOINT"), "S3 endpoint, e.g. s3.amazonaws.com (env BOOKSTORE_S3_ENDPOINT)")
	fs.StringVar(&config.Region, "s3-region", "", "S3 region")
	fs.BoolVar(&config.Insecure, "s3-insecure", false, "use http instead of https")
	fs.StringVar(remote, "remote", "", "name of the backup object, defaults to data file name with .br extension")
}

func parseBackupArgs(cmd string, args []string, stderr io.Writer) (*options, *backup.Config, string, error) {
	var opts options
	var config backup.Config
	var remote string
	fs := newFlagSet(cmd, stderr, &opts)
	addBackupFlags(fs, &config, &remote)
	if err := fs.Parse(args); err != nil {
		return nil, nil, "", err
	}
	if fs.NArg() > 0 {
		return nil, nil, "", fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if err := config.Validate(); err != nil {
		return nil, nil, "", err
	}
	// backups are compressed and validated as the raw record format
	if u.IsCompressedPath(opts.DataPath) {
		return nil, nil, "", fmt.Errorf("%s needs an uncompressed data file, got '%s'", cmd, opts.DataPath)
	}
	if remote == "" {
		remote = backup.RemoteName(opts.DataPath)
	}
	return &opts, &config, remote, nil
}

func cmdBackup(args []string, stdout io.Writer, stderr io.Writer) error {
	opts, config, remote, err := parseBackupArgs("backup", args, stderr)
	if err != nil {
		return err
	}
	initLogging(opts)
	// make sure we don't upload a corrupted file
	store, err := loadExisting(opts.DataPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()
	client, err := backup.New(ctx, config)
	if err != nil {
		return err
	}
	timeStart := time.Now()
	info, err := client.Upload(ctx, remote, opts.DataPath)
	if err != nil {
		return err
	}
	log.Logf("backup: uploaded '%s' as '%s', %d bytes in %s\n", opts.DataPath, remote, info.Size, time.Since(timeStart))
	log.Event("catalog-backup", "path", opts.DataPath, "remote", remote, "books", store.Len())
	fmt.Fprintf(stdout, "Backed up %d books to '%s/%s'\n", store.Len(), config.Bucket, remote)
	return nil
}

func validateData(d []byte) error {
	return bookstore.New().UnmarshalBinary(d)
}

func cmdRestore(args []string, stdout io.Writer, stderr io.Writer) error {
	opts, config, remote, err := parseBackupArgs("restore", args, stderr)
	if err != nil {
		return err
	}
	initLogging(opts)

	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()
	client, err := backup.New(ctx, config)
	if err != nil {
		return err
	}
	if err = client.Download(ctx, opts.DataPath, remote, validateData); err != nil {
		return err
	}
	log.Event("catalog-restore", "path", opts.DataPath, "remote", remote)
	fmt.Fprintf(stdout, "Restored '%s' from '%s/%s'\n", opts.DataPath, config.Bucket, remote)
	return nil
}
