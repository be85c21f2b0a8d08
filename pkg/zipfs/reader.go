package zipfs

import (
	"context"
	"io"
)

// maxPrealloc bounds the buffer reserved up front from a declared entry
// size. Larger entries grow as data actually arrives.
const maxPrealloc = 64 << 20

// readContent reads r until EOF. size is the declared uncompressed size
// and is only used as a capacity hint. If limit is positive, content
// longer than limit is rejected with ErrEntryTooLarge.
func readContent(ctx context.Context, r io.Reader, size uint64, limit int64) ([]byte, error) {
	src := readerContext(ctx, r)
	if limit > 0 {
		src = io.LimitReader(src, limit+1)
	}

	b := make([]byte, 0, min(size, maxPrealloc)+1)
	for {
		n, err := src.Read(b[len(b):cap(b)])
		b = b[:len(b)+n]
		if err != nil {
			if err != io.EOF {
				return nil, err
			}
			break
		}
		if len(b) == cap(b) {
			b = append(b, 0)[:len(b)]
		}
	}

	if limit > 0 && int64(len(b)) > limit {
		return nil, ErrEntryTooLarge
	}
	return b, nil
}

type reader struct {
	ctx context.Context
	r   io.Reader
}

func readerContext(ctx context.Context, r io.Reader) io.Reader {
	return reader{ctx, r}
}

func (r reader) Read(p []byte) (int, error) {
	err := r.ctx.Err()
	if err != nil {
		return 0, err
	}
	n, err := r.r.Read(p)
	if err != nil {
		return n, err
	}
	return n, r.ctx.Err()
}
