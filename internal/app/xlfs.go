package app

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/crazy-max/xlfs/pkg/config"
	"github.com/crazy-max/xlfs/pkg/zipfs"
	"github.com/docker/go-units"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// Xlfs represents an active xlfs object
type Xlfs struct {
	ctx    context.Context
	meta   config.Meta
	cli    config.Cli
	out    io.Writer
	filter *zipfs.FilterSet

	maxSize      int64
	maxEntrySize int64
	nameEncoding encoding.Encoding
}

// New creates new xlfs instance
func New(ctx context.Context, meta config.Meta, cli config.Cli, out io.Writer) (*Xlfs, error) {
	maxSize, err := parseSize(cli.MaxSize)
	if err != nil {
		return nil, errors.Wrap(err, "invalid max archive size")
	}
	maxEntrySize, err := parseSize(cli.MaxEntrySize)
	if err != nil {
		return nil, errors.Wrap(err, "invalid max entry size")
	}

	var enc encoding.Encoding
	if len(cli.NameEncoding) > 0 {
		if enc, err = ianaindex.IANA.Encoding(cli.NameEncoding); err != nil {
			return nil, errors.Wrapf(err, "invalid name encoding %q", cli.NameEncoding)
		} else if enc == nil {
			return nil, errors.Errorf("name encoding %q not supported", cli.NameEncoding)
		}
	}

	filter, err := newFilter(cli)
	if err != nil {
		return nil, errors.Wrap(err, "invalid filter")
	}

	if len(cli.List) == 0 {
		cli.List = []string{""}
	}

	return &Xlfs{
		ctx:          ctx,
		meta:         meta,
		cli:          cli,
		out:          out,
		filter:       filter,
		maxSize:      maxSize,
		maxEntrySize: maxEntrySize,
		nameEncoding: enc,
	}, nil
}

// Start loads every archive concurrently then prints the results in the
// order the archives were given.
func (c *Xlfs) Start() error {
	log.Debug().Str("version", c.meta.Version).Msgf("Starting %s", c.meta.Name)
	results := make([]*result, len(c.cli.Archives))

	eg, ctx := errgroup.WithContext(c.ctx)
	for i, filename := range c.cli.Archives {
		eg.Go(func() error {
			res, err := c.load(ctx, filename)
			if err != nil {
				return errors.Wrapf(err, "cannot load %s", filename)
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for i, res := range results {
		if len(results) > 1 {
			if i > 0 {
				fmt.Fprintln(c.out)
			}
			fmt.Fprintf(c.out, "==> %s <==\n", res.filename)
		}
		if err := c.print(res); err != nil {
			return err
		}
	}
	return nil
}

// Close closes xlfs
func (c *Xlfs) Close() {
	// noop
}

// newFilter returns nil when no rule is given so every entry is loaded.
// A dry run gets an empty filter that loads nothing.
func newFilter(cli config.Cli) (*zipfs.FilterSet, error) {
	if cli.DryRun {
		return zipfs.NewFilterSet(), nil
	}
	if len(cli.Includes) == 0 && len(cli.Globs) == 0 {
		return nil, nil
	}
	includes := cli.Includes
	if len(cli.Search) > 0 {
		includes = append(slices.Clone(includes), cli.Strings)
	}
	return zipfs.NewFilterSetFrom(includes, cli.Globs)
}

func parseSize(s string) (int64, error) {
	if len(s) == 0 {
		return 0, nil
	}
	size, err := units.RAMInBytes(s)
	if err != nil {
		return 0, err
	}
	if size < 0 {
		return 0, errors.Errorf("negative size %q", s)
	}
	log.Trace().Msgf("Size %q parsed as %d bytes", s, size)
	return size, nil
}
