package httpserver

import (
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/text/encoding/unicode"
)

const defaultContentType = "application/octet-stream"

// ContentDescriptor says what a file is and how it travels.
type ContentDescriptor struct {
	MIME string
	Text bool
}

func (d ContentDescriptor) IsBinary() bool { return !d.Text }

func describe(mime string) ContentDescriptor {
	return ContentDescriptor{MIME: mime, Text: strings.HasPrefix(mime, "text/")}
}

// ClassifyContent sniffs content for a known binary signature and falls back
// to the file extension of name.
func ClassifyContent(name string, content []byte) ContentDescriptor {
	if mime := sniff(content); mime != "" {
		return describe(mime)
	}
	if mime := contentTypeForName(name); mime != "" {
		return describe(mime)
	}
	return describe(defaultContentType)
}

func sniff(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	kind, err := filetype.Match(content)
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	return kind.MIME.Value
}

func contentTypeForName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".html":
		return "text/html"
	case ".css":
		return "text/css"
	case ".js":
		return "application/javascript"
	case ".json":
		return "application/json"
	// images
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	// docs/video
	case ".pdf":
		return "application/pdf"
	case ".mp4":
		return "video/mp4"
	// text, including project metadata files
	case ".txt", ".toml", ".lock":
		return "text/plain"
	default:
		return ""
	}
}

// lossyText renders b as UTF-8, replacing every invalid byte with U+FFFD.
func lossyText(b []byte) (string, error) {
	out, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
