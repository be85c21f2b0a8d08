// Package zipfs materializes a zip archive into a read-only in-memory file
// system.
//
// The archive is read once. Only entries accepted by an optional FilterSet
// are decompressed, every entry name is normalized to a slash separated
// path without leading slash and names trying to escape the root are
// dropped. Afterwards two lookups are available without touching the
// archive again: the content of a file and the files directly under a
// directory.
//
//	filter := zipfs.NewFilterSet()
//	_ = filter.AddExact("xl/workbook.xml")
//	_ = filter.AddGlob("xl/worksheets/*.xml")
//
//	fsys, err := zipfs.Open("book.xlsx", zipfs.LoadOpts{
//		Filter:         filter,
//		MaxArchiveSize: 100 << 20,
//	})
//	if err != nil {
//		return err
//	}
//	for _, name := range fsys.ListFiles("xl/worksheets") {
//		content, _ := fsys.File(name)
//		fmt.Println(name, len(content))
//	}
package zipfs
