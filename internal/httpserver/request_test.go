package httpserver

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name     string
		head     string
		wantPath string
		wantErr  bool
	}{
		{name: "simple", head: "GET /a/b.txt HTTP/1.1\r\nHost: x\r\n\r\n", wantPath: "/a/b.txt"},
		{name: "query dropped", head: "GET /a%20b.txt?x=1 HTTP/1.1\r\n\r\n", wantPath: "/a%20b.txt"},
		{name: "fragment dropped", head: "GET /a#top HTTP/1.0\r\n\r\n", wantPath: "/a"},
		{name: "bare newlines", head: "GET / HTTP/1.0\n\n", wantPath: "/"},
		{name: "no headers", head: "GET /x HTTP/1.1", wantPath: "/x"},
		{name: "two fields", head: "GET /\r\n\r\n", wantErr: true},
		{name: "bad version", head: "GET / FTP/1.0\r\n\r\n", wantErr: true},
		{name: "absolute form", head: "GET http://h/x HTTP/1.1\r\n\r\n", wantErr: true},
		{name: "garbage", head: "\x00\x01\x02", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseRequest(tt.head)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedRequest) {
					t.Fatalf("err = %v, want ErrMalformedRequest", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if req.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", req.Path, tt.wantPath)
			}
		})
	}
}

func TestParseRequestHeaders(t *testing.T) {
	req, err := ParseRequest("GET / HTTP/1.1\r\nauthorization:  Basic abc \r\nX-Thing: 1\r\n\r\nbody: ignored")
	if err != nil {
		t.Fatal(err)
	}
	if got := req.Header["Authorization"]; got != "Basic abc" {
		t.Errorf("Authorization = %q", got)
	}
	if got := req.Header["X-Thing"]; got != "1" {
		t.Errorf("X-Thing = %q", got)
	}
	if _, ok := req.Header["Body"]; ok {
		t.Error("parsed past the end of the header block")
	}
	if req.Method != "GET" || req.Version != "HTTP/1.1" {
		t.Errorf("method=%q version=%q", req.Method, req.Version)
	}
}

func TestReadRequestSmallReads(t *testing.T) {
	r := iotest.OneByteReader(strings.NewReader("GET /a/b.txt HTTP/1.1\r\nHost: x\r\n\r\n"))
	req, err := ReadRequest(r)
	if err != nil {
		t.Fatal(err)
	}
	if req.Path != "/a/b.txt" || req.Header["Host"] != "x" {
		t.Errorf("req = %+v", req)
	}
}

func TestReadRequestBounded(t *testing.T) {
	long := "GET /x HTTP/1.1\r\nX-Pad: " + strings.Repeat("a", 4*MaxRequestSize) + "\r\n\r\n"
	sr := strings.NewReader(long)
	req, err := ReadRequest(sr)
	if err != nil {
		t.Fatal(err)
	}
	if req.Path != "/x" {
		t.Errorf("Path = %q", req.Path)
	}
	if consumed := len(long) - sr.Len(); consumed > MaxRequestSize {
		t.Errorf("consumed %d bytes, limit is %d", consumed, MaxRequestSize)
	}
}

func TestReadRequestEmpty(t *testing.T) {
	if _, err := ReadRequest(strings.NewReader("")); !errors.Is(err, ErrMalformedRequest) {
		t.Fatalf("err = %v, want ErrMalformedRequest", err)
	}
}

type stalledReader struct{ reads int }

func (r *stalledReader) Read([]byte) (int, error) {
	r.reads++
	return 0, nil
}

func TestReadRequestGivesUpOnEmptyReads(t *testing.T) {
	r := &stalledReader{}
	if _, err := ReadRequest(r); !errors.Is(err, io.ErrNoProgress) {
		t.Fatalf("err = %v, want io.ErrNoProgress", err)
	}
	if r.reads != maxEmptyReads {
		t.Errorf("reads = %d, want %d", r.reads, maxEmptyReads)
	}
}

func TestReadRequestToleratesSomeEmptyReads(t *testing.T) {
	r := io.MultiReader(&limitedStall{n: maxEmptyReads - 1}, strings.NewReader("GET /x HTTP/1.1\r\n\r\n"))
	req, err := ReadRequest(r)
	if err != nil {
		t.Fatal(err)
	}
	if req.Path != "/x" {
		t.Errorf("Path = %q", req.Path)
	}
}

// limitedStall returns (0, nil) n times, then EOF.
type limitedStall struct{ n int }

func (r *limitedStall) Read([]byte) (int, error) {
	if r.n == 0 {
		return 0, io.EOF
	}
	r.n--
	return 0, nil
}
