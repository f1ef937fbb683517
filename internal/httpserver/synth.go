package httpserver

import (
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"

	"dirserve/internal/fsutil"
)

// IOError is a filesystem failure after the guard approved a path. It is
// never turned into a response; the connection is dropped instead.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Synthesizer maps request paths below Root onto responses. It holds no
// mutable state and is safe for concurrent use.
type Synthesizer struct {
	Root    fsutil.Root
	Version string
}

// Respond runs the whole pipeline for one raw (possibly percent-encoded)
// request path. A non-nil error is always an *IOError and comes with a nil
// response.
func (s *Synthesizer) Respond(rawPath string) (*Response, error) {
	return s.RespondFiltered(rawPath, nil)
}

// RespondFiltered is Respond with a read filter. Once the guard approves a
// path, canRead must accept both the request path and the location the path
// resolves to (symlinks followed), or the reply is Forbidden. A nil canRead
// accepts everything.
func (s *Synthesizer) RespondFiltered(rawPath string, canRead func(reqPath string) bool) (*Response, error) {
	decoded, err := fsutil.DecodeRequestPath(rawPath)
	if err != nil {
		log.Printf("reject %q: %v", rawPath, err)
		return s.Forbidden(rawPath), nil
	}

	candidate := s.Root.Resolve(decoded)
	v, location, why := s.Root.Check(candidate)
	if v == fsutil.Denied {
		log.Printf("reject %q: %v", decoded, why)
		return s.Forbidden(decoded), nil
	}
	if canRead != nil && !(canRead(path.Clean("/"+decoded)) && canRead(location)) {
		log.Printf("reject %q: read not permitted (resolves to %s)", decoded, location)
		return s.Forbidden(decoded), nil
	}

	target := filepath.Clean(candidate)
	kind, err := fsutil.Stat(target)
	if err != nil {
		return nil, &IOError{Op: "stat", Path: target, Err: err}
	}

	var resp *Response
	switch kind {
	case fsutil.File:
		resp, err = s.file(target)
	case fsutil.Directory:
		resp, err = s.directory(target, decoded)
	default:
		resp = s.NotFound(decoded)
	}
	if err != nil {
		return nil, err
	}
	resp.Path = decoded
	return resp, nil
}

func (s *Synthesizer) file(target string) (*Response, error) {
	content, err := os.ReadFile(target)
	if err != nil {
		return nil, &IOError{Op: "read", Path: target, Err: err}
	}
	desc := ClassifyContent(target, content)
	if desc.IsBinary() {
		return binaryResponse(s.version(), StatusOK, desc.MIME, content), nil
	}
	body, err := lossyText(content)
	if err != nil {
		return nil, &IOError{Op: "decode", Path: target, Err: err}
	}
	return textResponse(s.version(), StatusOK, desc.MIME, body), nil
}

func (s *Synthesizer) directory(target, decoded string) (*Response, error) {
	body, err := RenderListing(target, decoded)
	if err != nil {
		return nil, &IOError{Op: "readdir", Path: target, Err: err}
	}
	return textResponse(s.version(), StatusOK, "text/html", body), nil
}

// Forbidden is the generic 403 reply. It never mentions the filesystem.
func (s *Synthesizer) Forbidden(reqPath string) *Response {
	r := textResponse(s.version(), StatusForbidden, "text/html", ForbiddenPage)
	r.Path = reqPath
	return r
}

func (s *Synthesizer) NotFound(reqPath string) *Response {
	r := textResponse(s.version(), StatusNotFound, "text/html", NotFoundPage)
	r.Path = reqPath
	return r
}

func (s *Synthesizer) version() string {
	if s.Version == "" {
		return "HTTP/1.1"
	}
	return s.Version
}
