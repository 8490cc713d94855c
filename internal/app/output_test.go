// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package app

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/kinbiko/jsonassert"
	"github.com/stretchr/testify/require"

	"codeberg.org/readeck/microdata/pkg/extract/microdata"
)

const testHTML = `<div itemscope itemtype="https://schema.org/Product">
  <span itemprop="name">Widget</span>
  <a itemprop="url" href="/widget">link</a>
</div>`

func testDocument(t *testing.T) *microdata.Document {
	doc, err := microdata.Parse(strings.NewReader(testHTML), "https://example.net/shop/")
	require.NoError(t, err)
	return doc
}

func TestOutput(t *testing.T) {
	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			format string
			query  string
			err    string
		}{
			{"xml", "", `unknown format "xml"`},
			{"paths", ".items", "a query can't be used with the paths format"},
			{"json", ".items[", "invalid query"},
		}

		for _, test := range tests {
			t.Run(test.format, func(t *testing.T) {
				_, err := newOutput(test.format, test.query)
				require.ErrorContains(t, err, test.err)
			})
		}
	})

	t.Run("json", func(t *testing.T) {
		assert := require.New(t)
		out, err := newOutput("json", "")
		assert.NoError(err)

		buf := new(bytes.Buffer)
		assert.NoError(out.write(context.Background(), buf, testDocument(t)))

		jsonassert.New(t).Assertf(buf.String(), `{
			"items": [{
				"type": ["https://schema.org/Product"],
				"properties": {
					"name": ["Widget"],
					"url": ["https://example.net/widget"]
				}
			}]
		}`)
	})

	t.Run("jsonld", func(t *testing.T) {
		assert := require.New(t)
		out, err := newOutput("jsonld", "")
		assert.NoError(err)

		buf := new(bytes.Buffer)
		assert.NoError(out.write(context.Background(), buf, testDocument(t)))

		jsonassert.New(t).Assertf(buf.String(), `[{
			"@context": "https://schema.org",
			"@type": "Product",
			"name": "Widget",
			"url": "https://example.net/widget"
		}]`)
	})

	t.Run("query", func(t *testing.T) {
		assert := require.New(t)
		out, err := newOutput("jsonld", ".[].name, .[].url")
		assert.NoError(err)

		buf := new(bytes.Buffer)
		assert.NoError(out.write(context.Background(), buf, testDocument(t)))
		assert.Equal("\"Widget\"\n\"https://example.net/widget\"\n", buf.String())
	})

	t.Run("yaml", func(t *testing.T) {
		assert := require.New(t)
		out, err := newOutput("yaml", "")
		assert.NoError(err)

		buf := new(bytes.Buffer)
		assert.NoError(out.write(context.Background(), buf, testDocument(t)))
		assert.Equal(strings.Join([]string{
			"items:",
			"  - type:",
			"      - https://schema.org/Product",
			"    properties:",
			"      name:",
			"        - Widget",
			"      url:",
			"        - https://example.net/widget",
			"",
		}, "\n"), buf.String())
	})

	t.Run("paths", func(t *testing.T) {
		assert := require.New(t)
		out, err := newOutput("paths", "")
		assert.NoError(err)

		buf := new(bytes.Buffer)
		assert.NoError(out.write(context.Background(), buf, testDocument(t)))
		assert.Equal(strings.Join([]string{
			"Product.@context = https://schema.org",
			"Product.@type = Product",
			"Product.name = Widget",
			"Product.url = https://example.net/widget",
			"",
		}, "\n"), buf.String())
	})
}

func TestParseHeaders(t *testing.T) {
	assert := require.New(t)

	h, err := parseHeaders([]string{"Accept-Language: fr", "x-test:abc"})
	assert.NoError(err)
	assert.Equal("fr", h.Get("Accept-Language"))
	assert.Equal("abc", h.Get("X-Test"))

	_, err = parseHeaders([]string{"nope"})
	assert.ErrorContains(err, `invalid header "nope"`)
}
