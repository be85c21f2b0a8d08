package app

import (
	"context"
	"os"

	"github.com/crazy-max/xlfs/pkg/sharedstrings"
	"github.com/crazy-max/xlfs/pkg/zipfs"
	"github.com/mholt/archives"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type result struct {
	filename string
	fsys     *zipfs.FS
	skipped  int
	table    *sharedstrings.Table
	matches  []sharedstrings.Match
}

func (c *Xlfs) load(ctx context.Context, filename string) (*result, error) {
	logger := log.With().Str("archive", filename).Logger()

	if err := identify(ctx, filename); err != nil {
		return nil, err
	}

	res := &result{filename: filename}
	fsys, err := zipfs.Open(filename, zipfs.LoadOpts{
		Context:        ctx,
		Logger:         logger,
		Filter:         c.filter,
		MaxArchiveSize: c.maxSize,
		MaxEntrySize:   c.maxEntrySize,
		TextEncoding:   c.nameEncoding,
		OnSkip: func(name string, err error) {
			res.skipped++
			logger.Warn().Err(err).Msgf("Skipping %s", name)
		},
	})
	if err != nil {
		return nil, err
	}
	res.fsys = fsys
	logger.Info().Int("skipped", res.skipped).Msgf("%d files loaded", fsys.Len())

	if len(c.cli.Search) == 0 {
		return res, nil
	}

	content, ok := fsys.File(c.cli.Strings)
	if !ok {
		logger.Warn().Msgf("Shared strings %s not found", c.cli.Strings)
		return res, nil
	}
	if res.table, err = sharedstrings.Load(content); err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", c.cli.Strings)
	}
	res.matches = res.table.Search(c.cli.Search, c.cli.MinScore)
	logger.Debug().Msgf("%d shared strings, %d matching %q", res.table.Len(), len(res.matches), c.cli.Search)

	return res, nil
}

// identify makes sure filename holds a zip archive.
func identify(ctx context.Context, filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	format, _, err := archives.Identify(ctx, filename, f)
	if err != nil {
		return errors.Wrap(err, "archive format not recognized")
	}
	log.Debug().Str("archive", filename).Msgf("Archive format %s detected", format.Extension())

	if _, ok := format.(archives.Zip); !ok {
		return errors.Errorf("archive format not supported: %s", format.Extension())
	}
	return nil
}
