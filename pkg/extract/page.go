// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package extract loads HTML pages, from the network or from local
// files, and extracts their microdata.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"

	"codeberg.org/readeck/microdata/pkg/extract/microdata"
)

// DefaultMaxBodySize is the default maximum size of a loaded document.
const DefaultMaxBodySize = 10 << 20

var (
	// ErrNotHTML is returned when a resource is not an HTML document.
	ErrNotHTML = errors.New("not an HTML document")
	// ErrTooLarge is returned when a document exceeds the loader's maximum size.
	ErrTooLarge = errors.New("document too large")
)

// Page is a loaded HTML document. Its body is always UTF-8 encoded.
type Page struct {
	URL         *url.URL
	ContentType string
	Body        []byte
}

// Loader loads remote pages.
type Loader struct {
	Client  *http.Client
	MaxSize int64
	Logger  *slog.Logger
}

// NewLoader returns a [Loader] using the given client.
func NewLoader(client *http.Client) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Loader{
		Client:  client,
		MaxSize: DefaultMaxBodySize,
		Logger:  slog.Default(),
	}
}

// Load retrieves a page. The final URL, after redirects, becomes the page's URL.
func (l *Loader) Load(ctx context.Context, src string) (*Page, error) {
	if _, ok := CheckRequestHeader(ctx); !ok {
		ctx = WithRequestHeader(ctx, http.Header{
			"Accept": []string{"text/html,application/xhtml+xml;q=0.9,*/*;q=0.8"},
		})
	}

	rsp, err := Fetch(ctx, l.Client, src)
	if err != nil {
		return nil, err
	}
	defer rsp.Body.Close() //nolint:errcheck

	if rsp.StatusCode >= 400 {
		return nil, fmt.Errorf("invalid response status (%d)", rsp.StatusCode)
	}

	body, err := readLimit(rsp.Body, l.MaxSize)
	if err != nil {
		return nil, err
	}

	contentType := rsp.Header.Get("content-type")
	if mediaType(contentType) == "" || mediaType(contentType) == "binary/octet-stream" ||
		mediaType(contentType) == "application/octet-stream" {
		contentType = mimetype.Detect(body).String()
	}
	if !isHTML(contentType) {
		return nil, fmt.Errorf("%w (%s)", ErrNotHTML, mediaType(contentType))
	}

	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, err
	}
	if body, err = io.ReadAll(r); err != nil {
		return nil, err
	}

	var u *url.URL
	if rsp.Request != nil && rsp.Request.URL != nil {
		u = rsp.Request.URL
	} else if u, err = url.Parse(src); err != nil {
		return nil, err
	}

	l.log().Debug("page loaded",
		slog.String("url", u.String()),
		slog.String("content-type", contentType),
		slog.Int("size", len(body)),
	)

	return &Page{
		URL:         u,
		ContentType: mediaType(contentType),
		Body:        body,
	}, nil
}

func (l *Loader) log() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

// Read reads a page from a reader. pageURL can be empty, in which case
// relative URLs are left as is. When encoding is empty, the document's
// encoding is detected from its content.
func Read(r io.Reader, pageURL, encoding string) (*Page, error) {
	p := &Page{ContentType: "text/html"}
	if pageURL != "" {
		u, err := url.Parse(pageURL)
		if err != nil {
			return nil, err
		}
		p.URL = u
	}

	if encoding != "" {
		enc, err := htmlindex.Get(encoding)
		if err != nil {
			return nil, fmt.Errorf("unknown encoding %q: %w", encoding, err)
		}
		r = enc.NewDecoder().Reader(r)
	} else {
		var err error
		if r, err = charset.NewReader(r, ""); err != nil {
			return nil, err
		}
	}

	var err error
	if p.Body, err = io.ReadAll(r); err != nil {
		return nil, err
	}
	return p, nil
}

// Document parses the page and returns its microdata. A "base" element in
// the document's head takes precedence over the page's URL.
func (p *Page) Document() (*microdata.Document, error) {
	root, err := html.Parse(bytes.NewReader(p.Body))
	if err != nil {
		return nil, err
	}

	return microdata.ParseNode(root, p.baseURL(root)), nil
}

func (p *Page) baseURL(root *html.Node) string {
	base := ""
	if p.URL != nil {
		base = p.URL.String()
	}

	n := htmlquery.FindOne(root, "//head/base[@href]")
	if n == nil {
		return base
	}
	href := strings.TrimSpace(htmlquery.SelectAttr(n, "href"))
	if href == "" {
		return base
	}
	return microdata.MakeAbsoluteURL(href, base)
}

func readLimit(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxBodySize
	}
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, ErrTooLarge
	}
	return body, nil
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

func isHTML(contentType string) bool {
	switch mediaType(contentType) {
	case "text/html", "application/xhtml+xml":
		return true
	}
	return false
}
