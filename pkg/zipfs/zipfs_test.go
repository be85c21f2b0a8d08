package zipfs

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

type testEntry struct {
	name    string
	content string
	method  uint16
}

func buildZip(t *testing.T, entries []testEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		method := e.method
		if method == 0 && !strings.HasSuffix(e.name, "/") {
			method = zip.Deflate
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: method})
		require.NoError(t, err)
		if e.content != "" {
			_, err = w.Write([]byte(e.content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

var workbook = []testEntry{
	{name: "[Content_Types].xml", content: "<Types/>"},
	{name: "_rels/.rels", content: "<Relationships/>"},
	{name: "xl/"},
	{name: "xl/workbook.xml", content: "<workbook/>"},
	{name: "xl/styles.xml", content: "<styleSheet/>"},
	{name: "xl/worksheets/"},
	{name: "xl/worksheets/sheet1.xml", content: "<worksheet>1</worksheet>"},
	{name: "xl/worksheets/sheet2.xml", content: "<worksheet>2</worksheet>"},
	{name: "xl/worksheets/_rels/sheet1.xml.rels", content: "<Relationships/>"},
	{name: "xl/sharedStrings.xml", content: "<sst/>"},
	{name: "docProps/core.xml", content: "<coreProperties/>"},
}

func loadWorkbook(t *testing.T, opts LoadOpts) *FS {
	t.Helper()
	fsys, err := New(bytes.NewReader(buildZip(t, workbook)), opts)
	require.NoError(t, err)
	return fsys
}

func TestNewLoadsEverything(t *testing.T) {
	fsys := loadWorkbook(t, LoadOpts{})

	assert.Equal(t, 9, fsys.Len())
	content, ok := fsys.File("xl/workbook.xml")
	require.True(t, ok)
	assert.Equal(t, "<workbook/>", string(content))

	assert.Equal(t, []string{"[Content_Types].xml"}, fsys.ListFiles(""))
	assert.Equal(t, []string{"xl/workbook.xml", "xl/styles.xml", "xl/sharedStrings.xml"}, fsys.ListFiles("xl"))
	assert.Equal(t, []string{"xl/worksheets/sheet1.xml", "xl/worksheets/sheet2.xml"}, fsys.ListFiles("xl/worksheets"))
	assert.Equal(t, []string{"xl/worksheets/_rels/sheet1.xml.rels"}, fsys.ListFiles("xl/worksheets/_rels"))
	assert.Equal(t, []string{"_rels/.rels"}, fsys.ListFiles("_rels"))
	assert.Equal(t, []string{"", "_rels", "docProps", "xl", "xl/worksheets", "xl/worksheets/_rels"}, fsys.Dirs())
}

func TestNewWithFilter(t *testing.T) {
	filter, err := NewFilterSetFrom(
		[]string{"xl/workbook.xml"},
		[]string{"xl/worksheets/*.xml", "xl/sharedStrings.xml"},
	)
	require.NoError(t, err)

	fsys := loadWorkbook(t, LoadOpts{Filter: filter})
	assert.Equal(t, []string{
		"xl/sharedStrings.xml",
		"xl/workbook.xml",
		"xl/worksheets/sheet1.xml",
		"xl/worksheets/sheet2.xml",
	}, fsys.Paths())

	_, ok := fsys.File("xl/styles.xml")
	assert.False(t, ok)
	_, ok = fsys.File("xl/worksheets/_rels/sheet1.xml.rels")
	assert.False(t, ok)
	assert.Empty(t, fsys.ListFiles("xl/worksheets/_rels"))
}

func TestNewWithEmptyFilter(t *testing.T) {
	fsys := loadWorkbook(t, LoadOpts{Filter: NewFilterSet()})
	assert.Zero(t, fsys.Len())
	assert.Empty(t, fsys.ListFiles(""))
	assert.Empty(t, fsys.Dirs())
}

func TestListFilesScope(t *testing.T) {
	fsys, err := New(bytes.NewReader(buildZip(t, []testEntry{
		{name: "a/b.txt", content: "b"},
		{name: "a/c/d.txt", content: "d"},
	})), LoadOpts{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a/b.txt"}, fsys.ListFiles("a"))
	assert.Equal(t, []string{"a/b.txt"}, fsys.ListFiles("/a/"))
	assert.Equal(t, []string{"a/c/d.txt"}, fsys.ListFiles("a/c"))
	assert.Equal(t, []string{"a/c/d.txt"}, fsys.ListFiles(`a\c\`))
	assert.Empty(t, fsys.ListFiles(""))
	assert.Empty(t, fsys.ListFiles("missing"))

	// callers get their own copy
	files := fsys.ListFiles("a")
	files[0] = "mutated"
	assert.Equal(t, []string{"a/b.txt"}, fsys.ListFiles("a"))
}

func TestIndexConsistency(t *testing.T) {
	fsys := loadWorkbook(t, LoadOpts{})

	seen := map[string]int{}
	for _, dir := range fsys.Dirs() {
		for _, name := range fsys.ListFiles(dir) {
			seen[name]++
			assert.Equal(t, dir, Parent(name))
			_, ok := fsys.File(name)
			assert.True(t, ok, "listed file %q must be readable", name)
		}
	}
	assert.Len(t, seen, fsys.Len())
	for _, name := range fsys.Paths() {
		assert.Equal(t, 1, seen[name], "file %q must be indexed exactly once", name)
	}
}

func TestEntryNames(t *testing.T) {
	var skipped []string
	fsys, err := New(bytes.NewReader(buildZip(t, []testEntry{
		{name: "/abs.txt", content: "abs"},
		{name: `win\dir\file.txt`, content: "win"},
		{name: `win\dir\`},
		{name: "../evil.txt", content: "evil"},
		{name: "ok/../../evil.txt", content: "evil"},
		{name: "ok/file..txt", content: "dots"},
		{name: "/"},
	})), LoadOpts{
		OnSkip: func(name string, err error) {
			assert.ErrorIs(t, err, ErrUnsafePath)
			skipped = append(skipped, name)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"abs.txt", "win/dir/file.txt"}, fsys.Paths())
	content, ok := fsys.File("/abs.txt")
	require.True(t, ok)
	assert.Equal(t, "abs", string(content))
	content, ok = fsys.File(`win\dir\file.txt`)
	require.True(t, ok)
	assert.Equal(t, "win", string(content))
	assert.Equal(t, []string{"win/dir/file.txt"}, fsys.ListFiles("win/dir"))

	assert.Equal(t, []string{"../evil.txt", "ok/../../evil.txt", "ok/file..txt"}, skipped)
}

func TestDirectoryModeWithoutSlash(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"data", "dir/"} {
		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate}
		hdr.SetMode(fs.ModeDir | 0o755)
		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)
		if name == "data" {
			_, err = w.Write([]byte("payload"))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())

	fsys, err := New(bytes.NewReader(buf.Bytes()), LoadOpts{
		OnSkip: func(name string, err error) {
			t.Errorf("unexpected skip of %q: %v", name, err)
		},
	})
	require.NoError(t, err)

	content, ok := fsys.File("data")
	require.True(t, ok)
	assert.Equal(t, "payload", string(content))
	assert.Equal(t, []string{"data"}, fsys.Paths())
	assert.Equal(t, []string{"data"}, fsys.ListFiles(""))
}

func TestDuplicateEntries(t *testing.T) {
	fsys, err := New(bytes.NewReader(buildZip(t, []testEntry{
		{name: "dup.txt", content: "first"},
		{name: "other.txt", content: "other"},
		{name: "/dup.txt", content: "second"},
	})), LoadOpts{})
	require.NoError(t, err)

	content, ok := fsys.File("dup.txt")
	require.True(t, ok)
	assert.Equal(t, "second", string(content))
	assert.Equal(t, []string{"dup.txt", "other.txt"}, fsys.ListFiles(""))
}

func TestArchiveTooLarge(t *testing.T) {
	data := buildZip(t, workbook)
	src := &countingReader{Reader: bytes.NewReader(data)}

	_, err := New(src, LoadOpts{MaxArchiveSize: int64(len(data)) - 1})
	var tooLarge *ArchiveTooLargeError
	require.True(t, errors.As(err, &tooLarge))
	assert.Equal(t, int64(len(data)), tooLarge.Size)
	assert.Equal(t, int64(len(data))-1, tooLarge.Limit)
	assert.Zero(t, src.reads, "nothing must be read once the ceiling is exceeded")

	fsys, err := New(bytes.NewReader(data), LoadOpts{MaxArchiveSize: int64(len(data))})
	require.NoError(t, err)
	assert.Equal(t, 9, fsys.Len())
}

func TestMalformed(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("definitely not a zip archive")} {
		_, err := New(bytes.NewReader(data), LoadOpts{})
		var malformed *MalformedError
		assert.True(t, errors.As(err, &malformed), "got %v", err)
	}
}

func TestSeekFailure(t *testing.T) {
	_, err := New(failingSeeker{}, LoadOpts{MaxArchiveSize: 10})
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "seek", ioErr.Op)
	assert.ErrorIs(t, err, errSeek)
}

func TestNonReaderAtSource(t *testing.T) {
	src := struct{ io.ReadSeeker }{bytes.NewReader(buildZip(t, workbook))}
	fsys, err := New(src, LoadOpts{})
	require.NoError(t, err)
	assert.Equal(t, 9, fsys.Len())
}

func TestCorruptedEntries(t *testing.T) {
	const payload = "CORRUPTED-PAYLOAD-CONTENT"
	data := buildZip(t, []testEntry{
		{name: "one.txt", content: "one"},
		{name: "checksum.txt", content: payload, method: zip.Store},
		{name: "two.txt", content: "two"},
		{name: "header.txt", content: "header"},
		{name: "three.txt", content: "three"},
	})

	// flip a stored byte so the CRC no longer matches
	i := bytes.Index(data, []byte(payload))
	require.GreaterOrEqual(t, i, 0)
	data[i] = 'X'

	// break the local file header signature of header.txt
	j := bytes.Index(data, []byte("header.txt"))
	require.GreaterOrEqual(t, j, 30)
	data[j-30] = 'X'

	var skipped []string
	fsys, err := New(bytes.NewReader(data), LoadOpts{
		OnSkip: func(name string, err error) {
			assert.Error(t, err)
			skipped = append(skipped, name)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"one.txt", "three.txt", "two.txt"}, fsys.Paths())
	assert.Equal(t, []string{"one.txt", "two.txt", "three.txt"}, fsys.ListFiles(""))
	assert.Equal(t, []string{"checksum.txt", "header.txt"}, skipped)
}

func TestMaxEntrySize(t *testing.T) {
	var skipped []string
	fsys, err := New(bytes.NewReader(buildZip(t, []testEntry{
		{name: "small.txt", content: "0123456789"},
		{name: "big.txt", content: strings.Repeat("x", 1024)},
	})), LoadOpts{
		MaxEntrySize: 10,
		OnSkip: func(name string, err error) {
			assert.ErrorIs(t, err, ErrEntryTooLarge)
			skipped = append(skipped, name)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"small.txt"}, fsys.Paths())
	assert.Equal(t, []string{"big.txt"}, skipped)
}

func TestReadContent(t *testing.T) {
	ctx := context.Background()
	data := strings.Repeat("abc", 1000)

	testCases := []struct {
		desc string
		size uint64
	}{
		{desc: "exact hint", size: uint64(len(data))},
		{desc: "no hint", size: 0},
		{desc: "short hint", size: 10},
		{desc: "lying hint", size: 1 << 62},
	}

	for _, tt := range testCases {
		t.Run(tt.desc, func(t *testing.T) {
			b, err := readContent(ctx, strings.NewReader(data), tt.size, 0)
			require.NoError(t, err)
			assert.Equal(t, data, string(b))
		})
	}

	_, err := readContent(ctx, strings.NewReader(data), 0, int64(len(data))-1)
	assert.ErrorIs(t, err, ErrEntryTooLarge)
	b, err := readContent(ctx, strings.NewReader(data), 0, int64(len(data)))
	require.NoError(t, err)
	assert.Len(t, b, len(data))
}

func TestContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(bytes.NewReader(buildZip(t, workbook)), LoadOpts{Context: ctx})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTextEncoding(t *testing.T) {
	name, err := charmap.CodePage437.NewEncoder().String("données/é.txt")
	require.NoError(t, err)
	data := buildZip(t, []testEntry{{name: name, content: "cp437"}})

	fsys, err := New(bytes.NewReader(data), LoadOpts{TextEncoding: charmap.CodePage437})
	require.NoError(t, err)
	content, ok := fsys.File("données/é.txt")
	require.True(t, ok)
	assert.Equal(t, "cp437", string(content))
	assert.Equal(t, []string{"données/é.txt"}, fsys.ListFiles("données"))
}

func TestOpen(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, os.WriteFile(filename, buildZip(t, workbook), 0o644))

	fsys, err := Open(filename, LoadOpts{})
	require.NoError(t, err)
	assert.Equal(t, 9, fsys.Len())

	_, err = Open(filepath.Join(t.TempDir(), "missing.xlsx"), LoadOpts{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConcurrentReads(t *testing.T) {
	fsys := loadWorkbook(t, LoadOpts{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, dir := range fsys.Dirs() {
				for _, name := range fsys.ListFiles(dir) {
					_, ok := fsys.File(name)
					assert.True(t, ok)
				}
			}
		}()
	}
	wg.Wait()
}

type countingReader struct {
	*bytes.Reader
	reads int
}

func (c *countingReader) Read(p []byte) (int, error) {
	c.reads++
	return c.Reader.Read(p)
}

func (c *countingReader) ReadAt(p []byte, off int64) (int, error) {
	c.reads++
	return c.Reader.ReadAt(p, off)
}

var errSeek = errors.New("seek failed")

type failingSeeker struct{}

func (failingSeeker) Read([]byte) (int, error)       { return 0, io.EOF }
func (failingSeeker) Seek(int64, int) (int64, error) { return 0, errSeek }
