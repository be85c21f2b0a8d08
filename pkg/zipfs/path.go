package zipfs

import (
	"strings"

	"github.com/pkg/errors"
)

// Normalize converts a raw entry name into its canonical form: backslashes
// become forward slashes and leading slashes are removed. The input is
// returned as is when it is already canonical.
func Normalize(p string) string {
	if strings.IndexByte(p, '\\') >= 0 {
		p = strings.ReplaceAll(p, `\`, "/")
	}
	return strings.TrimLeft(p, "/")
}

// NormalizeDir is like Normalize but also strips trailing slashes. The root
// directory is the empty string.
func NormalizeDir(p string) string {
	return strings.TrimRight(Normalize(p), "/")
}

// Parent returns the directory part of a canonical path or an empty string
// if the path lives at the root.
func Parent(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return ""
}

// IsSafe reports whether p is non-empty and free of "..". Names that merely
// contain ".." inside a segment are rejected too.
func IsSafe(p string) bool {
	return p != "" && !strings.Contains(p, "..")
}

// Validate normalizes p and checks it can be used as a filter rule.
func Validate(p string) (string, error) {
	n := Normalize(p)
	if n == "" {
		return "", errors.Wrapf(ErrInvalidPattern, "%q: empty path", p)
	}
	if !IsSafe(n) {
		return "", errors.Wrapf(ErrInvalidPattern, "%q: path traversal not allowed", p)
	}
	return n, nil
}
