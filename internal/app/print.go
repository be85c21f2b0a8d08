package app

import (
	"fmt"

	"github.com/opencontainers/go-digest"
)

func (c *Xlfs) print(res *result) error {
	for _, dir := range c.cli.List {
		name := dir
		if len(name) == 0 {
			name = "/"
		}
		if _, err := fmt.Fprintf(c.out, "%s:\n", name); err != nil {
			return err
		}
		for _, file := range res.fsys.ListFiles(dir) {
			line := "  " + file
			if c.cli.Digest {
				content, _ := res.fsys.File(file)
				line += "  " + digest.FromBytes(content).String()
			}
			if _, err := fmt.Fprintln(c.out, line); err != nil {
				return err
			}
		}
	}

	if res.table == nil {
		return nil
	}
	if _, err := fmt.Fprintf(c.out, "search %q:\n", c.cli.Search); err != nil {
		return err
	}
	for _, m := range res.matches {
		s, _ := res.table.Get(m.Index)
		if _, err := fmt.Fprintf(c.out, "  [%d] %d %s\n", m.Index, m.Score, s); err != nil {
			return err
		}
	}
	return nil
}
