package httpserver

import (
	"bytes"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// RenderListing renders the HTML index of dir. reqPath is the decoded request
// path that named dir; links are built from it.
//
// Entries come in os.ReadDir order (sorted by name). Subdirectories, symlinked
// ones included, are displayed with a trailing "/".
func RenderListing(dir, reqPath string) (string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	ul := element(atom.Ul)
	ul.AppendChild(listItem(parentHref(reqPath), "up"))
	for _, e := range ents {
		name := e.Name()
		display := name
		if isDir(filepath.Join(dir, name), e) {
			display += "/"
		}
		ul.AppendChild(listItem(entryHref(reqPath, name), display))
	}

	h1 := element(atom.H1)
	h1.AppendChild(text("Directory Listing"))
	body := element(atom.Body)
	body.AppendChild(h1)
	body.AppendChild(ul)
	doc := element(atom.Html)
	doc.AppendChild(body)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func isDir(p string, e os.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&os.ModeSymlink == 0 {
		return false
	}
	st, err := os.Stat(p)
	return err == nil && st.IsDir()
}

// entryHref joins the request path and an entry name into an absolute link,
// escaping every segment.
func entryHref(reqPath, name string) string {
	base := strings.Trim(reqPath, "/")
	if base == "" {
		return "/" + url.PathEscape(name)
	}
	return "/" + escapePath(base) + "/" + url.PathEscape(name)
}

// parentHref links to the parent of reqPath; "/" at the top.
func parentHref(reqPath string) string {
	parent := path.Dir("/" + strings.Trim(reqPath, "/"))
	return "/" + escapePath(strings.TrimPrefix(parent, "/"))
}

func escapePath(p string) string {
	if p == "" {
		return ""
	}
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

func listItem(href, label string) *html.Node {
	a := element(atom.A, html.Attribute{Key: "href", Val: href})
	a.AppendChild(text(label))
	li := element(atom.Li)
	li.AppendChild(a)
	return li
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
