// Package sharedstrings reads the shared string table of a spreadsheet
// package (xl/sharedStrings.xml) and searches it.
package sharedstrings

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// DefaultPath is where spreadsheet packages keep their shared strings.
const DefaultPath = "xl/sharedStrings.xml"

// Table is an indexed, immutable list of shared strings. Index i is the
// value referenced by cells of type "s" holding i.
type Table struct {
	strings []string
}

// Load parses the shared strings XML. Every <si> item gives one string made
// of all the <t> fragments it holds, rich text runs included. Whitespace is
// kept as is.
func Load(data []byte) (*Table, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	var (
		res    []string
		cur    strings.Builder
		inItem bool
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrap(err, "cannot parse shared strings")
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "si":
				inItem = true
				cur.Reset()
			case "t":
				inText = inItem
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "si":
				if inItem {
					res = append(res, cur.String())
				}
				inItem = false
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				cur.Write(el)
			}
		}
	}

	return &Table{strings: res}, nil
}

// Get returns the string at index i.
func (t *Table) Get(i int) (string, bool) {
	if i < 0 || i >= len(t.strings) {
		return "", false
	}
	return t.strings[i], true
}

// Len returns the number of strings.
func (t *Table) Len() int {
	return len(t.strings)
}

// Strings returns a copy of all strings in index order.
func (t *Table) Strings() []string {
	return append([]string(nil), t.strings...)
}
