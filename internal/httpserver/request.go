package httpserver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"strings"
)

// MaxRequestSize bounds how much of a request is ever read. Headers beyond it
// are ignored.
const MaxRequestSize = 1024

// maxEmptyReads is how many (0, nil) reads in a row ReadRequest tolerates.
const maxEmptyReads = 100

var ErrMalformedRequest = errors.New("malformed request")

// Request is the little we need from a request head.
type Request struct {
	Method  string
	Target  string // as sent, e.g. "/docs/a%20b.txt?x=1"
	Path    string // Target without query or fragment, still escaped
	Version string
	Header  map[string]string // keys in canonical MIME form, e.g. "Authorization"
}

// ReadRequest reads at most MaxRequestSize bytes, stopping early at the end
// of the header block, and parses the request line and headers.
func ReadRequest(r io.Reader) (*Request, error) {
	buf := make([]byte, MaxRequestSize)
	var n, empty int
	for n < len(buf) {
		rn, err := r.Read(buf[n:])
		n += rn
		if rn == 0 && err == nil {
			empty++
			if empty >= maxEmptyReads {
				return nil, fmt.Errorf("read request: %w", io.ErrNoProgress)
			}
			continue
		}
		empty = 0
		if bytes.Contains(buf[:n], []byte("\r\n\r\n")) || bytes.Contains(buf[:n], []byte("\n\n")) {
			break
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read request: %w", err)
		}
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: empty request", ErrMalformedRequest)
	}
	return ParseRequest(string(buf[:n]))
}

// ParseRequest parses a (possibly truncated) request head.
func ParseRequest(head string) (*Request, error) {
	lines := strings.Split(head, "\n")
	parts := strings.Fields(strings.TrimSpace(lines[0]))
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: request line %q", ErrMalformedRequest, strings.TrimSpace(lines[0]))
	}
	method, target, version := parts[0], parts[1], parts[2]
	if !strings.HasPrefix(version, "HTTP/") {
		return nil, fmt.Errorf("%w: version %q", ErrMalformedRequest, version)
	}
	if !strings.HasPrefix(target, "/") {
		return nil, fmt.Errorf("%w: target %q", ErrMalformedRequest, target)
	}

	p := target
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}

	req := &Request{
		Method:  method,
		Target:  target,
		Path:    p,
		Version: version,
		Header:  map[string]string{},
	}
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			break
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		req.Header[textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return req, nil
}
