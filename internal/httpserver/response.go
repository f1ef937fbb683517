package httpserver

import (
	"fmt"
	"io"
	"strings"
)

type Status int

const (
	StatusOK        Status = 200
	StatusForbidden Status = 403
	StatusNotFound  Status = 404
)

// String is the status part of the status line.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "200 OK"
	case StatusNotFound:
		return "404 NOT FOUND"
	case StatusForbidden:
		return "403 FORBIDDEN"
	default:
		return fmt.Sprintf("%d UNKNOWN", int(s))
	}
}

const (
	NotFoundPage  = "<html><body><h1>404 NOT FOUND</h1></body></html>"
	ForbiddenPage = "<html><body><h1>403 Forbidden</h1></body></html>"
)

// Response is a fully built reply. Body is the textual section written right
// after the header block; Payload, when non-nil, is written after it as raw
// bytes. ContentLength always matches whichever of the two carries content.
type Response struct {
	Version       string
	Status        Status
	ContentType   string
	ContentLength int
	Body          string
	Payload       []byte

	// Path is the decoded request path, kept for logging.
	Path string
}

func textResponse(version string, status Status, contentType, body string) *Response {
	return &Response{
		Version:       version,
		Status:        status,
		ContentType:   contentType,
		ContentLength: len(body),
		Body:          body,
	}
}

func binaryResponse(version string, status Status, contentType string, payload []byte) *Response {
	if payload == nil {
		payload = []byte{}
	}
	return &Response{
		Version:       version,
		Status:        status,
		ContentType:   contentType,
		ContentLength: len(payload),
		Payload:       payload,
	}
}

// IsBinary reports whether the content travels in Payload.
func (r *Response) IsBinary() bool { return r.Payload != nil }

// Head renders the status line and headers, including the blank line that
// ends the header block.
func (r *Response) Head() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\r\n", r.Version, r.Status)
	fmt.Fprintf(&b, "Content-Type: %s\r\n", r.ContentType)
	fmt.Fprintf(&b, "Content-Length: %d\r\n", r.ContentLength)
	b.WriteString("\r\n")
	return b.String()
}

// WriteTo writes the textual section and then, for binary responses, the
// payload. The caller flushes.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, r.Head()+r.Body)
	total := int64(n)
	if err != nil || r.Payload == nil {
		return total, err
	}
	n, err = w.Write(r.Payload)
	total += int64(n)
	return total, err
}

// Bytes is the exact wire image of the response.
func (r *Response) Bytes() []byte {
	out := make([]byte, 0, len(r.Head())+len(r.Body)+len(r.Payload))
	out = append(out, r.Head()...)
	out = append(out, r.Body...)
	return append(out, r.Payload...)
}
