package zipfs

import (
	"bytes"
	"context"
	"io"
	"maps"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/mholt/archives"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/text/encoding"
)

// LoadOpts holds load options
type LoadOpts struct {
	// Context is checked between entries and while an entry is read.
	Context context.Context
	// Logger receives skipped entries at debug level. The zero value discards.
	Logger zerolog.Logger
	// Filter selects entries to load. nil loads everything, an empty
	// FilterSet loads nothing.
	Filter *FilterSet
	// MaxArchiveSize is the largest accepted archive size in bytes. Zero or
	// less disables the check.
	MaxArchiveSize int64
	// MaxEntrySize is the largest decompressed size accepted for one entry.
	// Larger entries are skipped. Zero or less disables the check.
	MaxEntrySize int64
	// TextEncoding decodes entry names that are not flagged as UTF-8.
	TextEncoding encoding.Encoding
	// OnSkip, if set, is called for every entry dropped because it is unsafe,
	// too large or unreadable. Filtered out entries and directories are not
	// reported.
	OnSkip func(name string, err error)
}

// FS is a read-only in-memory file system materialized from a zip archive.
// It is safe for concurrent use once returned by New or Open.
type FS struct {
	files map[string][]byte
	dirs  map[string][]string
}

// Open loads the zip archive stored in filename.
func Open(filename string, opts LoadOpts) (*FS, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return New(f, opts)
}

// New reads the archive from r and loads every entry accepted by
// opts.Filter. Entries that cannot be read are skipped; only a broken
// central directory, an oversized archive or a failing source abort the
// load.
func New(r io.ReadSeeker, opts LoadOpts) (*FS, error) {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	if err := checkArchiveSize(r, opts.MaxArchiveSize); err != nil {
		return nil, err
	}
	src, err := seekReaderAt(r)
	if err != nil {
		return nil, err
	}

	fsys := &FS{
		files: make(map[string][]byte),
		dirs:  make(map[string][]string),
	}

	z := archives.Zip{TextEncoding: opts.TextEncoding}
	err = z.Extract(ctx, src, func(ctx context.Context, f archives.FileInfo) error {
		fsys.load(ctx, f, opts)
		return nil
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, &MalformedError{Err: err}
	}

	opts.Logger.Debug().Msgf("Loaded %d files in %d directories", len(fsys.files), len(fsys.dirs))
	return fsys, nil
}

// File returns the content of the named file. The returned slice is owned
// by fsys and must not be modified.
func (fsys *FS) File(name string) ([]byte, bool) {
	b, ok := fsys.files[Normalize(name)]
	return b, ok
}

// ListFiles returns the full paths of the files directly under dir, in
// archive order. Subdirectories are not traversed.
func (fsys *FS) ListFiles(dir string) []string {
	return slices.Clone(fsys.dirs[NormalizeDir(dir)])
}

// Len returns the number of loaded files.
func (fsys *FS) Len() int {
	return len(fsys.files)
}

// Paths returns every loaded file path, sorted.
func (fsys *FS) Paths() []string {
	return slices.Sorted(maps.Keys(fsys.files))
}

// Dirs returns every directory holding at least one loaded file, sorted.
// The root directory is the empty string.
func (fsys *FS) Dirs() []string {
	return slices.Sorted(maps.Keys(fsys.dirs))
}

func (fsys *FS) load(ctx context.Context, f archives.FileInfo, opts LoadOpts) {
	name := Normalize(f.NameInArchive)
	if strings.HasSuffix(name, "/") {
		return
	}
	if !IsSafe(name) {
		opts.skip(f.NameInArchive, ErrUnsafePath)
		return
	}
	if opts.Filter != nil && !opts.Filter.Matches(name) {
		return
	}

	size := declaredSize(f)
	if size > math.MaxInt || (opts.MaxEntrySize > 0 && size > uint64(opts.MaxEntrySize)) {
		opts.skip(name, errors.Wrapf(ErrEntryTooLarge, "declared size %d", size))
		return
	}

	rc, err := f.Open()
	if err != nil {
		opts.skip(name, err)
		return
	}
	defer rc.Close()

	content, err := readContent(ctx, rc, size, opts.MaxEntrySize)
	if err != nil {
		opts.skip(name, err)
		return
	}

	opts.Logger.Trace().Msgf("Loaded %s", name)
	fsys.insert(name, content)
}

// insert stores content under name. A name seen twice keeps the last
// content and stays indexed once.
func (fsys *FS) insert(name string, content []byte) {
	if _, ok := fsys.files[name]; !ok {
		parent := Parent(name)
		fsys.dirs[parent] = append(fsys.dirs[parent], name)
	}
	fsys.files[name] = content
}

func (o LoadOpts) skip(name string, err error) {
	o.Logger.Debug().Err(err).Str("entry", name).Msg("Skipping entry")
	if o.OnSkip != nil {
		o.OnSkip(name, err)
	}
}

func checkArchiveSize(r io.Seeker, limit int64) error {
	if limit > 0 {
		size, err := r.Seek(0, io.SeekEnd)
		if err != nil {
			return &IOError{Op: "seek", Err: err}
		}
		if size > limit {
			return &ArchiveTooLargeError{Size: size, Limit: limit}
		}
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return &IOError{Op: "seek", Err: err}
	}
	return nil
}

type readerAtSeeker interface {
	io.Reader
	io.ReaderAt
	io.Seeker
}

// seekReaderAt returns r itself when it supports random access, otherwise
// the whole source is buffered in memory.
func seekReaderAt(r io.ReadSeeker) (readerAtSeeker, error) {
	if ra, ok := r.(readerAtSeeker); ok {
		return ra, nil
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, &IOError{Op: "read", Err: err}
	}
	return bytes.NewReader(b), nil
}

func declaredSize(f archives.FileInfo) uint64 {
	if hdr, ok := f.Header.(zip.FileHeader); ok {
		return hdr.UncompressedSize64
	}
	if f.FileInfo != nil && f.Size() > 0 {
		return uint64(f.Size())
	}
	return 0
}
