package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrBadEncoding reports a request path with malformed percent-escapes.
	ErrBadEncoding = errors.New("malformed percent-encoding")
	// ErrInvalidPath reports a decoded path that can never name a file.
	ErrInvalidPath = errors.New("invalid path")
)

// DecodeRequestPath percent-decodes a raw request path exactly once.
// "+" is left alone; it only means space in query strings.
func DecodeRequestPath(raw string) (string, error) {
	p, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadEncoding, err)
	}
	if strings.Contains(p, "\x00") {
		return "", ErrInvalidPath
	}
	return p, nil
}

// Root is the directory everything is served from. It is an immutable value;
// build it once with NewRoot and pass it around.
type Root struct {
	abs string
}

func NewRoot(dir string) (Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Root{}, err
	}
	st, err := os.Stat(abs)
	if err != nil {
		return Root{}, err
	}
	if !st.IsDir() {
		return Root{}, fmt.Errorf("root %s: not a directory", abs)
	}
	return Root{abs: abs}, nil
}

func (r Root) Path() string { return r.abs }

// Resolve appends a decoded request path to the root. The result is NOT
// cleaned: ".." segments must survive until Check sees them.
func (r Root) Resolve(decoded string) string {
	rel := strings.TrimLeft(filepath.FromSlash(decoded), string(filepath.Separator))
	if rel == "" {
		return r.abs
	}
	return strings.TrimSuffix(r.abs, string(filepath.Separator)) + string(filepath.Separator) + rel
}

// Verdict is the outcome of Check.
type Verdict bool

const (
	Denied  Verdict = false
	Allowed Verdict = true
)

func (v Verdict) String() string {
	if v {
		return "allowed"
	}
	return "denied"
}

// Check decides whether candidate may be served. Literal ".." segments are
// refused without touching the disk. Otherwise both root and candidate are
// canonicalized (symlinks resolved) and the candidate must stay under the
// canonical root. Anything that cannot be canonicalized is denied.
//
// When allowed, Check also returns where candidate really lives, as a slash
// path relative to the root ("/" for the root itself). When denied, the
// error says why.
func (r Root) Check(candidate string) (Verdict, string, error) {
	if HasParentSegment(candidate) {
		return Denied, "", errors.New("parent segment in path")
	}
	root, err := filepath.EvalSymlinks(r.abs)
	if err != nil {
		return Denied, "", fmt.Errorf("canonicalize root: %w", err)
	}
	target, err := canonicalize(candidate)
	if err != nil {
		return Denied, "", fmt.Errorf("canonicalize: %w", err)
	}
	rel, ok := relativeTo(root, target)
	if !ok {
		return Denied, "", fmt.Errorf("path escape: %s", target)
	}
	return Allowed, rel, nil
}

// HasParentSegment reports whether any segment of p is "..".
func HasParentSegment(p string) bool {
	for _, seg := range strings.FieldsFunc(p, isSeparator) {
		if seg == ".." {
			return true
		}
	}
	return false
}

func isSeparator(r rune) bool {
	return r == '/' || r == filepath.Separator
}

// canonicalize resolves symlinks in p. A path that does not exist is
// resolved through its deepest existing ancestor with the missing tail
// appended, so missing files stay distinguishable from escapes.
func canonicalize(p string) (string, error) {
	p = filepath.Clean(p)
	_, err := os.Lstat(p)
	if err == nil {
		return filepath.EvalSymlinks(p)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	var tail []string
	dir := p
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", err
		}
		tail = append(tail, filepath.Base(dir))
		dir = parent
		_, lerr := os.Lstat(dir)
		if lerr == nil {
			break
		}
		if !errors.Is(lerr, fs.ErrNotExist) {
			return "", lerr
		}
	}
	base, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return "", err
	}
	parts := []string{base}
	for i := len(tail) - 1; i >= 0; i-- {
		parts = append(parts, tail[i])
	}
	return filepath.Join(parts...), nil
}

// relativeTo reports whether p is root or lies under it, and if so returns
// p as a slash path rooted at "/".
func relativeTo(root, p string) (string, bool) {
	root = filepath.Clean(root)
	p = filepath.Clean(p)
	if p == root {
		return "/", true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	rest, ok := strings.CutPrefix(p, prefix)
	if !ok {
		return "", false
	}
	return "/" + filepath.ToSlash(rest), true
}

// Kind classifies a guard-approved path at the moment of access.
type Kind int

const (
	Missing Kind = iota
	File
	Directory
)

func (k Kind) String() string {
	switch k {
	case File:
		return "file"
	case Directory:
		return "directory"
	default:
		return "missing"
	}
}

// Stat returns the Kind of p, following symlinks. Entries that are neither
// regular files nor directories count as Missing. Errors other than
// "does not exist" are returned as-is.
func Stat(p string) (Kind, error) {
	st, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Missing, nil
		}
		return Missing, err
	}
	switch {
	case st.IsDir():
		return Directory, nil
	case st.Mode().IsRegular():
		return File, nil
	default:
		return Missing, nil
	}
}
