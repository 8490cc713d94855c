// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package microdata_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"codeberg.org/readeck/microdata/pkg/extract/microdata"
)

const movieHTML = `
<div itemscope itemtype="https://schema.org/Movie">
	<h1 itemprop="name">Pirates of the Carribean: On Stranger Tides (2011)</h1>
	Director:
	<div itemprop="director" itemscope itemtype="https://schema.org/Person">
		<span itemprop="name">Rob Marshall</span>
	</div>
	Stars:
	<div itemprop="actor" itemscope itemtype="https://schema.org/Person">
		<span itemprop="name">Johnny Depp</span>,
	</div>
	<div itemprop="actor" itemscope itemtype="https://schema.org/Person">
		<span itemprop="name">Penelope Cruz</span>
	</div>
	<div itemprop="aggregateRating" itemscope itemtype="https://schema.org/AggregateRating">
		<span itemprop="ratingValue">8</span>/<span itemprop="bestRating">10</span> stars
	</div>
	<a itemprop="trailer" href="/trailer.mp4">Trailer</a>
</div>
`

func runParse(src string, f func(t *testing.T, doc *microdata.Document)) func(t *testing.T) {
	return func(t *testing.T) {
		doc, err := microdata.Parse(strings.NewReader(src), "https://example.org/movies/")
		require.NoError(t, err)
		f(t, doc)
	}
}

func runParseJSON(src string, expected string) func(t *testing.T) {
	return runParse(src, func(t *testing.T, doc *microdata.Document) {
		data, err := json.Marshal(doc)
		require.NoError(t, err)
		require.JSONEq(t, expected, string(data))
	})
}

func TestDocument(t *testing.T) {
	t.Run("movie", runParseJSON(movieHTML, `{"items": [{
		"type": ["https://schema.org/Movie"],
		"properties": {
			"name": ["Pirates of the Carribean: On Stranger Tides (2011)"],
			"director": [{
				"type": ["https://schema.org/Person"],
				"properties": {"name": ["Rob Marshall"]}
			}],
			"actor": [
				{"type": ["https://schema.org/Person"], "properties": {"name": ["Johnny Depp"]}},
				{"type": ["https://schema.org/Person"], "properties": {"name": ["Penelope Cruz"]}}
			],
			"aggregateRating": [{
				"type": ["https://schema.org/AggregateRating"],
				"properties": {"ratingValue": ["8"], "bestRating": ["10"]}
			}],
			"trailer": ["https://example.org/trailer.mp4"]
		}
	}]}`))

	t.Run("product", runParseJSON(`
	<div itemscope itemtype="http://schema.org/Product" itemid="urn:sku:1234">
		<span itemprop="name">Kenmore White 17" Microwave</span>
		<img itemprop="image" src="kenmore-microwave-17in.jpg" alt='Kenmore 17" Microwave' />
		<div itemprop="offers" itemscope itemtype="http://schema.org/Offer">
			<span itemprop="priceCurrency" content="USD">$</span><span
				itemprop="price" content="55.00">55.00</span>
			<link itemprop="availability" href="http://schema.org/InStock" />In stock
		</div>
	</div>`, `{"items": [{
		"type": ["http://schema.org/Product"],
		"id": "urn:sku:1234",
		"properties": {
			"name": ["Kenmore White 17\" Microwave"],
			"image": ["https://example.org/movies/kenmore-microwave-17in.jpg"],
			"offers": [{
				"type": ["http://schema.org/Offer"],
				"properties": {
					"priceCurrency": ["USD"],
					"price": ["55.00"],
					"availability": ["http://schema.org/InStock"]
				}
			}]
		}
	}]}`))

	t.Run("multiple top level items", runParseJSON(`
	<div itemscope itemtype="https://schema.org/Person"><span itemprop="name">A</span></div>
	<div itemscope itemtype="https://schema.org/Person"><span itemprop="name">B</span>
		<div itemscope><span itemprop="name">C</span></div>
	</div>`, `{"items": [
		{"type": ["https://schema.org/Person"], "properties": {"name": ["A"]}},
		{"type": ["https://schema.org/Person"], "properties": {"name": ["B"]}},
		{"properties": {"name": ["C"]}}
	]}`))

	t.Run("multiple types", runParse(`
	<div itemscope itemtype="https://schema.org/Book  https://schema.org/Product">
		<span itemprop="name">Dune</span>
	</div>`, func(t *testing.T, doc *microdata.Document) {
		require.Len(t, doc.Items, 1)
		require.Equal(t, []string{"https://schema.org/Book", "https://schema.org/Product"}, doc.Items[0].Types)
		require.True(t, doc.Items[0].HasType("https://schema.org/Product"))
		require.Len(t, doc.ItemsOfType("https://schema.org/Book"), 1)
		require.Empty(t, doc.ItemsOfType("https://schema.org/Movie"))
	}))

	t.Run("no items", runParseJSON(`<p itemprop="name">orphan</p>`, `{"items": []}`))

	t.Run("item values", runParse(movieHTML, func(t *testing.T, doc *microdata.Document) {
		item := doc.Items[0]
		require.Equal(t, []string{"name", "director", "actor", "aggregateRating", "trailer"}, item.Names())
		require.Len(t, item.Values("actor"), 2)
		require.Empty(t, item.Values("unknown"))

		_, ok := item.Value("unknown")
		require.False(t, ok)

		director, ok := item.Value("director")
		require.True(t, ok)
		require.True(t, director.IsItem())
		name, _ := director.Item.Value("name")
		require.Equal(t, "Rob Marshall", name.String())
	}))
}

func TestJSONLD(t *testing.T) {
	t.Run("items", runParse(movieHTML, func(t *testing.T, doc *microdata.Document) {
		data, err := json.Marshal(doc.Raw())
		require.NoError(t, err)
		require.JSONEq(t, `[{
			"@context": "https://schema.org",
			"@type": "Movie",
			"name": "Pirates of the Carribean: On Stranger Tides (2011)",
			"director": {"@type": "Person", "name": "Rob Marshall"},
			"actor": [
				{"@type": "Person", "name": "Johnny Depp"},
				{"@type": "Person", "name": "Penelope Cruz"}
			],
			"aggregateRating": {"@type": "AggregateRating", "ratingValue": "8", "bestRating": "10"},
			"trailer": "https://example.org/trailer.mp4"
		}]`, string(data))
	}))

	t.Run("scripts", runParse(`
	<div itemscope itemtype="urn:x-type"><span itemprop="name">A &amp; B</span></div>
	<script type="application/ld+json">{"@context": "https://schema.org", "@type": "Article", "headline": "A &middot; B"}</script>
	<script type="application/ld+json">[{"@type": "Person", "name": "X"}, "skipped"]</script>
	<script type="application/ld+json">{invalid</script>
	<script type="text/javascript">{"@type": "Ignored"}</script>
	`, func(t *testing.T, doc *microdata.Document) {
		require.Len(t, doc.JSONLD, 2)
		data, err := json.Marshal(doc.Raw())
		require.NoError(t, err)
		require.JSONEq(t, `[
			{"@type": "urn:x-type", "name": "A & B"},
			{"@context": "https://schema.org", "@type": "Article", "headline": "A · B"},
			{"@type": "Person", "name": "X"}
		]`, string(data))
	}))

	t.Run("multiple types", runParse(`
	<div itemscope itemtype="https://schema.org/Book https://schema.org/Product" itemid="#book">
		<span itemprop="name">Dune</span>
	</div>`, func(t *testing.T, doc *microdata.Document) {
		require.Equal(t, map[string]any{
			"@type": []any{"https://schema.org/Book", "https://schema.org/Product"},
			"@id":   "#book",
			"name":  "Dune",
		}, doc.Items[0].JSONLD())
	}))

	t.Run("raw itemid", runParse(`
	<div itemscope itemtype="https://schema.org/Book" itemid=" urn:isbn:0-330-34032-8 ">
		<span itemprop="name">Dune</span>
	</div>`, func(t *testing.T, doc *microdata.Document) {
		require.Equal(t, " urn:isbn:0-330-34032-8 ", doc.Items[0].ID)
	}))
}

func TestParseSelection(t *testing.T) {
	gd, err := goquery.NewDocumentFromReader(strings.NewReader(movieHTML))
	require.NoError(t, err)

	fromSelection := microdata.ParseSelection(gd.Selection, "https://example.org/movies/")
	fromNode, err := microdata.Parse(strings.NewReader(movieHTML), "https://example.org/movies/")
	require.NoError(t, err)

	a, err := json.Marshal(fromSelection)
	require.NoError(t, err)
	b, err := json.Marshal(fromNode)
	require.NoError(t, err)
	require.JSONEq(t, string(b), string(a))

	require.Nil(t, microdata.SelectionElement(gd.Find("nothing")))
	require.Empty(t, microdata.ParseSelection(nil, "").Items)
}

func TestTree(t *testing.T) {
	src := movieHTML + `
	<script type="application/ld+json">{"@graph": [
		{"@type": "ImageObject", "width": 250, "ratio": 1.5, "url": "https://example.org/a.png"}
	]}</script>`

	t.Run("lookup", runParse(src, func(t *testing.T, doc *microdata.Document) {
		tree := doc.Tree()
		require.Len(t, tree.Nodes, 2)
		require.Equal(t, []any{"Pirates of the Carribean: On Stranger Tides (2011)"}, tree.Lookup("Movie.name"))
		require.Equal(t, []any{"Rob Marshall"}, tree.Lookup("Movie.director.name"))
		require.Equal(t, []any{"Johnny Depp", "Penelope Cruz"}, tree.Lookup("Movie.actor.name"))
		require.Equal(t, []any{250}, tree.Lookup("ImageObject.width"))
		require.Equal(t, []any{1.5}, tree.Lookup("ImageObject.ratio"))
		require.Len(t, tree.Raw(), 2)
	}))

	t.Run("all", runParse(src, func(t *testing.T, doc *microdata.Document) {
		tree := doc.Tree()
		paths := []string{}
		for n := range tree.Properties() {
			if n.Name == "@type" {
				paths = append(paths, n.Path)
			}
		}
		require.Equal(t, []string{
			"Movie.@type",
			"Movie.actor.@type", "Movie.actor.@type",
			"Movie.aggregateRating.@type",
			"Movie.director.@type",
			"ImageObject.@type",
		}, paths)

		count := 0
		for range tree.All(nil) {
			count++
			if count == 3 {
				break
			}
		}
		require.Equal(t, 3, count)
	}))
}
